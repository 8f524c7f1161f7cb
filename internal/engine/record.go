package engine

import (
	"sort"
	"time"
)

// Side is the direction of a fill
type Side string

const (
	SideBuy  Side = "buy"
	SideSell Side = "sell"
)

// RecordKind distinguishes realized fills from funding cash flows
type RecordKind string

const (
	KindTrade   RecordKind = "trade"
	KindFunding RecordKind = "funding"
)

// TradeRecord is one realized fill or funding event.
// The engine never mutates input records.
type TradeRecord struct {
	Timestamp   time.Time  `json:"timestamp"`
	Symbol      string     `json:"symbol"`
	Side        Side       `json:"side"`
	Quantity    float64    `json:"quantity"`
	Price       float64    `json:"price"`
	RealizedPnL float64    `json:"realized_pnl"`
	Fee         float64    `json:"fee"`
	Funding     float64    `json:"funding"` // positive = paid, negative = received
	Kind        RecordKind `json:"kind"`
}

// SkippedRecord is a malformed input record excluded from all aggregates
type SkippedRecord struct {
	Index  int         `json:"index"`
	Reason string      `json:"reason"`
	Record TradeRecord `json:"record"`
}

// invalidReason returns a non-empty reason when the record is malformed.
// Funding events carry no fill, so quantity/price/side rules apply to
// trade-kind records only.
func (r TradeRecord) invalidReason() string {
	if r.Timestamp.IsZero() {
		return "missing timestamp"
	}
	if r.Symbol == "" {
		return "missing symbol"
	}
	if r.Fee < 0 {
		return "negative fee"
	}

	switch r.Kind {
	case KindTrade:
		if r.Side != SideBuy && r.Side != SideSell {
			return "invalid side"
		}
		if r.Quantity <= 0 {
			return "non-positive quantity"
		}
		if r.Price <= 0 {
			return "non-positive price"
		}
	case KindFunding:
		// nothing further to check
	default:
		return "unknown record kind"
	}

	return ""
}

// sanitizeRecords validates each record individually, drops malformed ones
// into the skipped list, and returns a UTC-normalized copy sorted ascending
// by timestamp. Input order and contents are left untouched.
func sanitizeRecords(records []TradeRecord) ([]TradeRecord, []SkippedRecord) {
	clean := make([]TradeRecord, 0, len(records))
	var skipped []SkippedRecord

	for i, r := range records {
		if reason := r.invalidReason(); reason != "" {
			skipped = append(skipped, SkippedRecord{Index: i, Reason: reason, Record: r})
			continue
		}
		r.Timestamp = r.Timestamp.UTC()
		clean = append(clean, r)
	}

	sort.SliceStable(clean, func(i, j int) bool {
		return clean[i].Timestamp.Before(clean[j].Timestamp)
	})

	return clean, skipped
}
