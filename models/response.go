package models

type Response[T any] struct {
	Data T    `json:"data"`
	Meta Meta `json:"meta"`
}

// Meta is the metadata strip shown above the table.
type Meta struct {
	Symbol      string     `json:"symbol"`
	Expiry      string     `json:"expiry"`
	Underlying  float64    `json:"underlying"`
	LastUpdated string     `json:"lastUpdated,omitempty"`
	ExpiryDates []string   `json:"expiryDates,omitempty"`
	CycleID     string     `json:"cycleId,omitempty"`
	Error       *ErrorInfo `json:"error,omitempty"`
}

type ErrorInfo struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

type ChainView struct {
	Columns  []Column    `json:"columns"`
	Rows     ChainTable  `json:"rows"`
	Emphasis []Directive `json:"emphasis"`
}

type Snapshot = Response[ChainView]
