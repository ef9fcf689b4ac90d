package models

type Category string

const (
	CategoryMax      Category = "max"
	CategoryMin      Category = "min"
	CategoryATM      Category = "atm"
	CategoryLabel    Category = "label"
	CategoryPositive Category = "positive"
	CategoryNegative Category = "negative"
	CategoryNeutral  Category = "neutral"
)

// Directive annotates one cell, or a whole row when Column is nil.
type Directive struct {
	Row      int      `json:"row"`
	Strike   float64  `json:"strike"`
	Column   *Column  `json:"column,omitempty"`
	Category Category `json:"category"`
}
