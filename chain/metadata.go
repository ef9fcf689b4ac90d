package chain

import (
	"context"
	"fmt"
	"slices"
	"time"

	"optionchain/models"
)

// TimestampLayout is the upstream snapshot time format, e.g. "17-Apr-2026 15:30:00".
const TimestampLayout = "02-Jan-2006 15:04:05"

// SchemaError means the payload parsed but a required field was missing or unusable.
type SchemaError struct {
	Field string
	Err   error
}

func (e *SchemaError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("option chain payload: bad %s: %v", e.Field, e.Err)
	}
	return "option chain payload: missing " + e.Field
}

func (e *SchemaError) Unwrap() error { return e.Err }

type Fetcher interface {
	FetchChain(ctx context.Context, symbol, expiry string) (*models.OptionChainResp, error)
}

// ResolveMetadata performs the unwindowed base fetch. It should be handed the
// session client directly rather than the cache so the expiry list is current.
func ResolveMetadata(ctx context.Context, f Fetcher, symbol, provisionalExpiry string) (models.ChainMetadata, error) {
	resp, err := f.FetchChain(ctx, symbol, provisionalExpiry)
	if err != nil {
		return models.ChainMetadata{}, err
	}
	return ExtractMetadata(resp)
}

func ExtractMetadata(resp *models.OptionChainResp) (models.ChainMetadata, error) {
	if resp == nil {
		return models.ChainMetadata{}, &SchemaError{Field: "records"}
	}
	r := resp.Records
	if len(r.ExpiryDates) == 0 {
		return models.ChainMetadata{}, &SchemaError{Field: "records.expiryDates"}
	}
	if r.UnderlyingValue == nil {
		return models.ChainMetadata{}, &SchemaError{Field: "records.underlyingValue"}
	}
	if r.Timestamp == "" {
		return models.ChainMetadata{}, &SchemaError{Field: "records.timestamp"}
	}
	if _, err := time.Parse(TimestampLayout, r.Timestamp); err != nil {
		return models.ChainMetadata{}, &SchemaError{Field: "records.timestamp", Err: err}
	}
	return models.ChainMetadata{
		ExpiryDates:     slices.Clone(r.ExpiryDates),
		UnderlyingValue: *r.UnderlyingValue,
		Timestamp:       r.Timestamp,
	}, nil
}

// SelectExpiry keeps previous if still listed, else falls back to def, else
// to the nearest listed expiry.
func SelectExpiry(expiries []string, previous, def string) string {
	if previous != "" && slices.Contains(expiries, previous) {
		return previous
	}
	if slices.Contains(expiries, def) {
		return def
	}
	if len(expiries) == 0 {
		return def
	}
	return expiries[0]
}

// LastUpdated reformats an upstream timestamp to HH:MM:SS.
func LastUpdated(timestamp string) (string, error) {
	t, err := time.Parse(TimestampLayout, timestamp)
	if err != nil {
		return "", &SchemaError{Field: "records.timestamp", Err: err}
	}
	return t.Format("15:04:05"), nil
}
