package models

// OptionChainResp is the payload of GET /api/option-chain-v3.
type OptionChainResp struct {
	Records ChainRecords `json:"records"`
}

// ChainRecords holds the chain for one expiry. Pointer fields are absent
// when the upstream omits them.
type ChainRecords struct {
	ExpiryDates     []string     `json:"expiryDates"`
	UnderlyingValue *float64     `json:"underlyingValue"`
	Timestamp       string       `json:"timestamp"`
	Data            []OptionData `json:"data"`
}

// OptionData is one strike. Either side may be missing, typically for
// freshly listed strikes.
type OptionData struct {
	StrikePrice float64    `json:"strikePrice"`
	ExpiryDate  string     `json:"expiryDate,omitempty"`
	CE          *OptionLeg `json:"CE,omitempty"`
	PE          *OptionLeg `json:"PE,omitempty"`
}

type OptionLeg struct {
	ImpliedVolatility     *float64 `json:"impliedVolatility"`
	TotalBuyQuantity      *float64 `json:"totalBuyQuantity"`
	TotalSellQuantity     *float64 `json:"totalSellQuantity"`
	OpenInterest          *float64 `json:"openInterest"`
	PchangeinOpenInterest *float64 `json:"pchangeinOpenInterest"`
	LastPrice             *float64 `json:"lastPrice"`
}
