// Package stats aggregates the arrival records of one business-day window
// into the counts the dashboard and daily report are built from.
package stats

import (
	"strconv"
	"strings"
	"time"

	"dock-stats-backend/internal/model"
)

// VehicleTypeStat is the per-type slice of a snapshot. The piece sum honors
// the G-plate rule; the count never does.
type VehicleTypeStat struct {
	Count       int `json:"count"`
	TotalPieces int `json:"total_pieces"`
}

// BucketStat counts arrivals attributed to one time bucket, with a per-type
// breakdown.
type BucketStat struct {
	Count  int            `json:"count"`
	ByType map[string]int `json:"by_type"`
}

// Snapshot is the aggregate over one window of arrival records.
type Snapshot struct {
	TotalVehicles int                        `json:"total_vehicles"`
	TotalPieces   int                        `json:"total_pieces"`
	TotalPallets  int                        `json:"total_pallets"`
	ByVehicleType map[string]VehicleTypeStat `json:"by_vehicle_type"`
	Bucket19      BucketStat                 `json:"bucket_19"`
	Bucket20      BucketStat                 `json:"bucket_20"`
	BucketAfter24 BucketStat                 `json:"bucket_after_24"`
}

// Aggregator computes snapshots. It carries only the governing timezone,
// needed to fall back from an unparseable time bucket to the arrival hour.
type Aggregator struct {
	loc *time.Location
}

// New returns an Aggregator governed by loc. A nil loc means UTC.
func New(loc *time.Location) *Aggregator {
	if loc == nil {
		loc = time.UTC
	}
	return &Aggregator{loc: loc}
}

// ExcludedFromLoad reports whether a record falls under the G-plate rule:
// a 53ft whose plate contains (or is exactly) the letter G still counts as a
// vehicle but contributes nothing to piece and pallet sums.
func ExcludedFromLoad(r *model.ArrivalRecord) bool {
	return r.VehicleType == model.VehicleType53ft && strings.Contains(r.VehiclePlate, "G")
}

// palletType reports whether load amounts of this type count toward the
// pallet total.
func palletType(vehicleType string) bool {
	return vehicleType == model.VehicleType26ft || vehicleType == model.VehicleType53ft
}

// Aggregate reduces records to a Snapshot. It is pure, total over any input
// including the empty slice, and idempotent. day is the calendar date of the
// business day being aggregated: a record whose bucket falls back to its
// arrival time and whose local date lies past day is attributed to the
// after-24 bucket. A zero day disables that attribution.
func (a *Aggregator) Aggregate(records []model.ArrivalRecord, day time.Time) Snapshot {
	snap := Snapshot{
		ByVehicleType: make(map[string]VehicleTypeStat),
		Bucket19:      BucketStat{ByType: make(map[string]int)},
		Bucket20:      BucketStat{ByType: make(map[string]int)},
		BucketAfter24: BucketStat{ByType: make(map[string]int)},
	}

	for i := range records {
		r := &records[i]
		excluded := ExcludedFromLoad(r)

		snap.TotalVehicles++
		ts := snap.ByVehicleType[r.VehicleType]
		ts.Count++
		if !excluded {
			snap.TotalPieces += r.Pieces
			ts.TotalPieces += r.Pieces
			if palletType(r.VehicleType) {
				snap.TotalPallets += r.LoadAmount
			}
		}
		snap.ByVehicleType[r.VehicleType] = ts

		hour, nextDay, ok := a.bucketHour(r, day)
		if !ok {
			continue
		}
		switch {
		case hour == 19:
			snap.Bucket19.add(r.VehicleType)
		case hour == 20:
			snap.Bucket20.add(r.VehicleType)
		}
		if hour >= 24 || nextDay {
			snap.BucketAfter24.add(r.VehicleType)
		}
	}
	return snap
}

func (b *BucketStat) add(vehicleType string) {
	b.Count++
	b.ByType[vehicleType]++
}

// bucketHour resolves the hour a record is attributed to: the recorded time
// bucket when it parses as an integer, otherwise the arrival hour in the
// governing timezone. The fallback's wall clock only reaches 23, so nextDay
// flags a fallback record from a later calendar date than day; the explicit
// bucket expresses the same thing as a value of 24 or more. Records with a
// blank bucket and a zero timestamp are skipped.
func (a *Aggregator) bucketHour(r *model.ArrivalRecord, day time.Time) (hour int, nextDay, ok bool) {
	if s := strings.TrimSpace(r.TimeBucket); s != "" {
		if n, err := strconv.Atoi(s); err == nil {
			return n, false, true
		}
	}
	if r.CreatedAt.IsZero() {
		return 0, false, false
	}
	local := r.CreatedAt.In(a.loc)
	nextDay = !day.IsZero() && dateAfter(local, day)
	return local.Hour(), nextDay, true
}

// dateAfter reports whether t's calendar date is later than day's.
func dateAfter(t, day time.Time) bool {
	ty, tm, td := t.Date()
	dy, dm, dd := day.Date()
	if ty != dy {
		return ty > dy
	}
	if tm != dm {
		return tm > dm
	}
	return td > dd
}
