package domain

import (
	"encoding/json"
	"fmt"

	"gorm.io/datatypes"
)

// MetadataKey is the order-metadata key the ledger is serialized under.
const MetadataKey = "payment_ledger"

// Entry records one provider-side transaction captured for an order.
// TransactionID and Amount are immutable; RefundedAmount only grows.
// Invariant: 0 <= RefundedAmount <= Amount.
type Entry struct {
	TransactionID  string `json:"transaction_id"`
	Amount         int64  `json:"amount"`
	RefundedAmount int64  `json:"refunded_amount"`
}

// Refundable returns the amount still open on this entry.
func (e Entry) Refundable() int64 {
	return e.Amount - e.RefundedAmount
}

// Ledger is the per-order list of entries in insertion order. The order is
// load-bearing: refund allocation walks entries first to last, and callers
// depend on that being deterministic.
type Ledger []Entry

// TotalRefundable sums the open amount across all entries.
func (l Ledger) TotalRefundable() int64 {
	var total int64
	for _, entry := range l {
		total += entry.Refundable()
	}
	return total
}

// Validate checks the per-entry invariants.
func (l Ledger) Validate() error {
	for i, entry := range l {
		if entry.TransactionID == "" {
			return fmt.Errorf("ledger entry %d has no transaction id", i)
		}
		if entry.Amount < 0 {
			return fmt.Errorf("ledger entry %d has negative amount", i)
		}
		if entry.RefundedAmount < 0 || entry.RefundedAmount > entry.Amount {
			return fmt.Errorf("ledger entry %d refunded amount out of range", i)
		}
	}
	return nil
}

// FromMetadata deserializes the ledger stored in order metadata. A missing
// key yields an empty ledger.
func FromMetadata(metadata datatypes.JSONMap) (Ledger, error) {
	if metadata == nil {
		return nil, nil
	}
	value, ok := metadata[MetadataKey]
	if !ok {
		return nil, nil
	}

	raw, err := json.Marshal(value)
	if err != nil {
		return nil, err
	}
	var ledger Ledger
	if err := json.Unmarshal(raw, &ledger); err != nil {
		return nil, err
	}
	if err := ledger.Validate(); err != nil {
		return nil, err
	}
	return ledger, nil
}

// ApplyTo writes the ledger back into order metadata, allocating the map
// when needed, and returns it.
func (l Ledger) ApplyTo(metadata datatypes.JSONMap) (datatypes.JSONMap, error) {
	if err := l.Validate(); err != nil {
		return nil, err
	}
	if metadata == nil {
		metadata = datatypes.JSONMap{}
	}

	// Round-trip through JSON so the stored value is plain maps, matching
	// what a re-read from the database produces.
	raw, err := json.Marshal(l)
	if err != nil {
		return nil, err
	}
	var plain any
	if err := json.Unmarshal(raw, &plain); err != nil {
		return nil, err
	}
	metadata[MetadataKey] = plain
	return metadata, nil
}
