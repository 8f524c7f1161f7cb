package engine

import (
	"sort"
	"time"
)

// TimeBucket is the per-period aggregate of trade records
type TimeBucket struct {
	Start       time.Time   `json:"start"`
	Granularity Granularity `json:"granularity"`
	PnLSum      float64     `json:"pnl_sum"`
	FeeSum      float64     `json:"fee_sum"`
	FundingSum  float64     `json:"funding_sum"`
	TradeCount  int         `json:"trade_count"`
	WinCount    int         `json:"win_count"`
	LossCount   int         `json:"loss_count"`
}

// bucketStart truncates t to the containing bucket boundary in UTC.
// Hour boundary = top of hour, day boundary = midnight UTC. Truncation is
// applied once per record here; no per-record timezone conversion happens
// anywhere else, so DST-style drift cannot occur.
func bucketStart(t time.Time, g Granularity) time.Time {
	u := t.UTC()
	if g == GranularityHour {
		return u.Truncate(time.Hour)
	}
	return time.Date(u.Year(), u.Month(), u.Day(), 0, 0, 0, 0, time.UTC)
}

// BucketRecords assigns each record to exactly one bucket and accumulates
// per-bucket sums. Only trade-kind records contribute to P&L and win/loss
// counts; fee and funding accumulate from every record. Buckets with no
// records are not synthesized. Output is ascending by start.
func BucketRecords(records []TradeRecord, g Granularity) []TimeBucket {
	byStart := make(map[time.Time]*TimeBucket)

	for _, r := range records {
		start := bucketStart(r.Timestamp, g)
		b, ok := byStart[start]
		if !ok {
			b = &TimeBucket{Start: start, Granularity: g}
			byStart[start] = b
		}

		b.FeeSum += r.Fee
		b.FundingSum += r.Funding

		if r.Kind != KindTrade {
			continue
		}

		b.PnLSum += r.RealizedPnL
		b.TradeCount++
		switch {
		case r.RealizedPnL > 0:
			b.WinCount++
		case r.RealizedPnL < 0:
			b.LossCount++
		}
	}

	buckets := make([]TimeBucket, 0, len(byStart))
	for _, b := range byStart {
		buckets = append(buckets, *b)
	}
	sort.Slice(buckets, func(i, j int) bool {
		return buckets[i].Start.Before(buckets[j].Start)
	})

	return buckets
}

// PadBuckets materializes a contiguous series covering [from, to] inclusive
// of both boundary buckets, inserting zero-valued buckets for gaps. The risk
// engine needs this: drawdown is defined over elapsed time, not just
// actively-traded periods.
func PadBuckets(buckets []TimeBucket, g Granularity, from, to time.Time) []TimeBucket {
	start := bucketStart(from, g)
	end := bucketStart(to, g)
	if end.Before(start) {
		return nil
	}

	step := g.Duration()
	n := int(end.Sub(start)/step) + 1

	padded := make([]TimeBucket, 0, n)
	i := 0
	for cur := start; !cur.After(end); cur = cur.Add(step) {
		// Skip any source bucket before the window
		for i < len(buckets) && buckets[i].Start.Before(cur) {
			i++
		}
		if i < len(buckets) && buckets[i].Start.Equal(cur) {
			padded = append(padded, buckets[i])
			i++
			continue
		}
		padded = append(padded, TimeBucket{Start: cur, Granularity: g})
	}

	return padded
}

// PnLSeries extracts the per-period P&L values from a bucket series
func PnLSeries(buckets []TimeBucket) []float64 {
	series := make([]float64, len(buckets))
	for i, b := range buckets {
		series[i] = b.PnLSum
	}
	return series
}
