package models

// Group is the top level of the two-level column header.
type Group string

const (
	GroupCall   Group = "Call"
	GroupStrike Group = ""
	GroupPut    Group = "Put"
	GroupDiff   Group = "D"
)

type Column struct {
	Group Group  `json:"group"`
	Name  string `json:"name"`
}

var (
	ColIVCall       = Column{GroupCall, "IV"}
	ColBuyVolCall   = Column{GroupCall, "BuyVol"}
	ColSellVolCall  = Column{GroupCall, "SellVol"}
	ColNetVolCall   = Column{GroupCall, "NetVol"}
	ColOICall       = Column{GroupCall, "OI"}
	ColOIChgPctCall = Column{GroupCall, "OI_Chg%"}
	ColLTPCall      = Column{GroupCall, "LTP"}

	ColStrike = Column{GroupStrike, "Strike"}

	ColLTPPut      = Column{GroupPut, "LTP"}
	ColOIChgPctPut = Column{GroupPut, "OI_Chg%"}
	ColOIPut       = Column{GroupPut, "OI"}
	ColNetVolPut   = Column{GroupPut, "NetVol"}
	ColSellVolPut  = Column{GroupPut, "SellVol"}
	ColBuyVolPut   = Column{GroupPut, "BuyVol"}
	ColIVPut       = Column{GroupPut, "IV"}

	ColDiffPct = Column{GroupDiff, "D%"}
)

// Columns returns the display order: Call | Strike | Put | D. The put side
// mirrors the call side around the strike.
func Columns() []Column {
	return []Column{
		ColIVCall, ColBuyVolCall, ColSellVolCall, ColNetVolCall, ColOICall, ColOIChgPctCall, ColLTPCall,
		ColStrike,
		ColLTPPut, ColOIChgPctPut, ColOIPut, ColNetVolPut, ColSellVolPut, ColBuyVolPut, ColIVPut,
		ColDiffPct,
	}
}

// StrikeRow is one windowed strike. Nil pointers mean the upstream sent no
// value, which is not the same as zero. NetVol is always defined; DiffPct is
// nil when open interest on both sides is absent or zero.
type StrikeRow struct {
	IVCall       *float64 `json:"ivCall"`
	BuyVolCall   *float64 `json:"buyVolCall"`
	SellVolCall  *float64 `json:"sellVolCall"`
	NetVolCall   float64  `json:"netVolCall"`
	OICall       *float64 `json:"oiCall"`
	OIChgPctCall *float64 `json:"oiChgPctCall"`
	LTPCall      *float64 `json:"ltpCall"`

	Strike float64 `json:"strike"`

	LTPPut      *float64 `json:"ltpPut"`
	OIChgPctPut *float64 `json:"oiChgPctPut"`
	OIPut       *float64 `json:"oiPut"`
	NetVolPut   float64  `json:"netVolPut"`
	SellVolPut  *float64 `json:"sellVolPut"`
	BuyVolPut   *float64 `json:"buyVolPut"`
	IVPut       *float64 `json:"ivPut"`

	DiffPct *float64 `json:"diffPct"`
}

// Value returns the cell for c and whether it holds a value.
func (r StrikeRow) Value(c Column) (float64, bool) {
	switch c {
	case ColNetVolCall:
		return r.NetVolCall, true
	case ColNetVolPut:
		return r.NetVolPut, true
	case ColStrike:
		return r.Strike, true
	}
	var p *float64
	switch c {
	case ColIVCall:
		p = r.IVCall
	case ColBuyVolCall:
		p = r.BuyVolCall
	case ColSellVolCall:
		p = r.SellVolCall
	case ColOICall:
		p = r.OICall
	case ColOIChgPctCall:
		p = r.OIChgPctCall
	case ColLTPCall:
		p = r.LTPCall
	case ColLTPPut:
		p = r.LTPPut
	case ColOIChgPctPut:
		p = r.OIChgPctPut
	case ColOIPut:
		p = r.OIPut
	case ColSellVolPut:
		p = r.SellVolPut
	case ColBuyVolPut:
		p = r.BuyVolPut
	case ColIVPut:
		p = r.IVPut
	case ColDiffPct:
		p = r.DiffPct
	}
	if p == nil {
		return 0, false
	}
	return *p, true
}

// ChainTable is sorted ascending by strike.
type ChainTable []StrikeRow

// ChainMetadata is extracted from the unwindowed base fetch.
type ChainMetadata struct {
	ExpiryDates     []string `json:"expiryDates"`
	UnderlyingValue float64  `json:"underlyingValue"`
	Timestamp       string   `json:"timestamp"`
}
