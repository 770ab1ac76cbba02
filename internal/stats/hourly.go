package stats

import (
	"sort"

	"dock-stats-backend/internal/model"
)

// HourlyRow is one time bucket's slice of an hourly breakdown.
type HourlyRow struct {
	Bucket string `json:"bucket"`
	Count  int    `json:"count"`
	Pieces int    `json:"pieces"`
	Load   int    `json:"load"`
}

// HourlyInbound groups a window's arrivals by time bucket. Buckets that do
// not parse fall back to the arrival hour, mirroring Aggregate.
func (a *Aggregator) HourlyInbound(records []model.ArrivalRecord) []HourlyRow {
	return a.hourly(records, func(*model.ArrivalRecord) bool { return true })
}

// HourlyPallets groups pallet loads by time bucket, counting only the truck
// types that carry pallets.
func (a *Aggregator) HourlyPallets(records []model.ArrivalRecord) []HourlyRow {
	return a.hourly(records, func(r *model.ArrivalRecord) bool {
		return palletType(r.VehicleType)
	})
}

func (a *Aggregator) hourly(records []model.ArrivalRecord, include func(*model.ArrivalRecord) bool) []HourlyRow {
	byBucket := make(map[string]*HourlyRow)
	for i := range records {
		r := &records[i]
		if !include(r) {
			continue
		}
		key := r.TimeBucket
		if key == "" {
			key = "unspecified"
		}
		row, ok := byBucket[key]
		if !ok {
			row = &HourlyRow{Bucket: key}
			byBucket[key] = row
		}
		row.Count++
		if !ExcludedFromLoad(r) {
			row.Pieces += r.Pieces
			row.Load += r.LoadAmount
		}
	}

	rows := make([]HourlyRow, 0, len(byBucket))
	for _, row := range byBucket {
		rows = append(rows, *row)
	}
	sort.Slice(rows, func(i, j int) bool { return bucketLess(rows[i].Bucket, rows[j].Bucket) })
	return rows
}

// SortingHourlyRow is one time bucket's sorted piece total.
type SortingHourlyRow struct {
	Bucket      string `json:"bucket"`
	TotalPieces int    `json:"total_pieces"`
}

// SortingHourly sums a day's sorting records per time bucket. Rows without
// a bucket are left out.
func SortingHourly(records []model.SortingRecord) []SortingHourlyRow {
	byBucket := make(map[string]int)
	for i := range records {
		if records[i].TimeBucket == "" {
			continue
		}
		byBucket[records[i].TimeBucket] += records[i].Pieces
	}

	rows := make([]SortingHourlyRow, 0, len(byBucket))
	for bucket, pieces := range byBucket {
		rows = append(rows, SortingHourlyRow{Bucket: bucket, TotalPieces: pieces})
	}
	sort.Slice(rows, func(i, j int) bool { return bucketLess(rows[i].Bucket, rows[j].Bucket) })
	return rows
}

// bucketLess orders numeric buckets numerically and pushes non-numeric
// labels to the end.
func bucketLess(a, b string) bool {
	an, aok := atoi(a)
	bn, bok := atoi(b)
	switch {
	case aok && bok:
		return an < bn
	case aok:
		return true
	case bok:
		return false
	default:
		return a < b
	}
}

func atoi(s string) (int, bool) {
	if s == "" {
		return 0, false
	}
	n := 0
	for _, c := range s {
		if c < '0' || c > '9' {
			return 0, false
		}
		n = n*10 + int(c-'0')
	}
	return n, true
}
