// Package emphasis derives highlight directives from a chain table. Nothing
// here knows about colors; renderers map categories to styles.
package emphasis

import (
	"math"

	"optionchain/models"
)

// Extremes are the columns whose max and min rows are highlighted.
var Extremes = []models.Column{
	models.ColNetVolCall,
	models.ColNetVolPut,
	models.ColOIChgPctCall,
	models.ColOIChgPctPut,
}

// Compute returns directives in a fixed order: column extremes, the ATM row,
// strike labels, then diff signs.
func Compute(table models.ChainTable, underlying float64) []models.Directive {
	if len(table) == 0 {
		return nil
	}
	out := make([]models.Directive, 0, 2*len(Extremes)+1+2*len(table))

	for _, col := range Extremes {
		maxRow, minRow := Extreme(table, col)
		if maxRow >= 0 {
			out = append(out, cell(table, maxRow, col, models.CategoryMax))
		}
		if minRow >= 0 {
			out = append(out, cell(table, minRow, col, models.CategoryMin))
		}
	}

	atm := ATMRow(table, underlying)
	out = append(out, models.Directive{Row: atm, Strike: table[atm].Strike, Category: models.CategoryATM})

	for i := range table {
		out = append(out, cell(table, i, models.ColStrike, models.CategoryLabel))
	}
	for i, row := range table {
		out = append(out, cell(table, i, models.ColDiffPct, Sign(row.DiffPct)))
	}
	return out
}

// Extreme returns the first row holding the maximum and the first row holding
// the minimum of col, skipping empty cells. -1 means no row has a value.
func Extreme(table models.ChainTable, col models.Column) (maxRow, minRow int) {
	maxRow, minRow = -1, -1
	var hi, lo float64
	for i, row := range table {
		v, ok := row.Value(col)
		if !ok || math.IsNaN(v) {
			continue
		}
		if maxRow < 0 || v > hi {
			maxRow, hi = i, v
		}
		if minRow < 0 || v < lo {
			minRow, lo = i, v
		}
	}
	return maxRow, minRow
}

// ATMRow is the first row minimizing |strike - underlying|. table must be non-empty.
func ATMRow(table models.ChainTable, underlying float64) int {
	best := 0
	bestDist := math.Abs(table[0].Strike - underlying)
	for i := 1; i < len(table); i++ {
		if d := math.Abs(table[i].Strike - underlying); d < bestDist {
			best, bestDist = i, d
		}
	}
	return best
}

// Sign classifies a diff percentage; an undefined diff is neutral.
func Sign(diff *float64) models.Category {
	switch {
	case diff == nil || math.IsNaN(*diff):
		return models.CategoryNeutral
	case *diff > 0:
		return models.CategoryPositive
	case *diff < 0:
		return models.CategoryNegative
	}
	return models.CategoryNeutral
}

func cell(table models.ChainTable, row int, col models.Column, cat models.Category) models.Directive {
	c := col
	return models.Directive{Row: row, Strike: table[row].Strike, Column: &c, Category: cat}
}
