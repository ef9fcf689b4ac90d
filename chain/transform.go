package chain

import (
	"cmp"
	"errors"
	"math"
	"slices"

	"optionchain/models"
)

const DefaultWindowHalfWidth = 500.0

// ErrEmptyResult is returned when no strike survives the window. It ends the
// cycle; retrying before the next refresh would see the same data.
var ErrEmptyResult = errors.New("no strikes within window")

// Transform keeps strikes within windowHalfWidth of underlying and returns
// them sorted ascending by strike. It is pure: identical input yields an
// identical table.
//
// Missing values follow one rule set:
//   - buy/sell/OI/OI change/LTP/IV are copied as-is, nil stays nil;
//   - net volume substitutes 0 for a missing buy or sell quantity;
//   - diff % substitutes 0 for missing open interest and is nil when both
//     sides come out as 0.
func Transform(records []models.OptionData, underlying, windowHalfWidth float64) (models.ChainTable, error) {
	table := make(models.ChainTable, 0, len(records))
	for _, rec := range records {
		if math.Abs(rec.StrikePrice-underlying) > windowHalfWidth {
			continue
		}
		table = append(table, BuildRow(rec))
	}
	if len(table) == 0 {
		return nil, ErrEmptyResult
	}
	slices.SortStableFunc(table, func(a, b models.StrikeRow) int {
		return cmp.Compare(a.Strike, b.Strike)
	})
	return table, nil
}

func BuildRow(rec models.OptionData) models.StrikeRow {
	ce, pe := leg(rec.CE), leg(rec.PE)
	return models.StrikeRow{
		IVCall:       clone(ce.ImpliedVolatility),
		BuyVolCall:   clone(ce.TotalBuyQuantity),
		SellVolCall:  clone(ce.TotalSellQuantity),
		NetVolCall:   NetVol(ce),
		OICall:       clone(ce.OpenInterest),
		OIChgPctCall: clone(ce.PchangeinOpenInterest),
		LTPCall:      clone(ce.LastPrice),

		Strike: rec.StrikePrice,

		LTPPut:      clone(pe.LastPrice),
		OIChgPctPut: clone(pe.PchangeinOpenInterest),
		OIPut:       clone(pe.OpenInterest),
		NetVolPut:   NetVol(pe),
		SellVolPut:  clone(pe.TotalSellQuantity),
		BuyVolPut:   clone(pe.TotalBuyQuantity),
		IVPut:       clone(pe.ImpliedVolatility),

		DiffPct: DiffPct(ce.OpenInterest, pe.OpenInterest),
	}
}

// NetVol is buy minus sell quantity, 0 for a missing operand.
func NetVol(l *models.OptionLeg) float64 {
	if l == nil {
		return 0
	}
	return orZero(l.TotalBuyQuantity) - orZero(l.TotalSellQuantity)
}

// DiffPct is the call/put open interest imbalance in percent. It returns nil
// when the combined open interest is zero.
func DiffPct(oiCall, oiPut *float64) *float64 {
	c, p := orZero(oiCall), orZero(oiPut)
	if c+p == 0 {
		return nil
	}
	d := (c - p) * 100 / (c + p)
	return &d
}

var emptyLeg = models.OptionLeg{}

func leg(l *models.OptionLeg) *models.OptionLeg {
	if l == nil {
		return &emptyLeg
	}
	return l
}

func orZero(p *float64) float64 {
	if p == nil {
		return 0
	}
	return *p
}

func clone(p *float64) *float64 {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}
