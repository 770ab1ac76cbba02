package stats

import (
	"math"
	"sort"
	"time"

	"dock-stats-backend/internal/model"
)

// TrendPoint is one date's totals in the multi-day trend series. Piece
// totals are floored to the nearest ten thousand; the charts show volume
// shape, not exact counts.
type TrendPoint struct {
	Date          string `json:"date"`
	Weekday       string `json:"weekday"`
	WeekdayNum    int    `json:"weekday_num"` // 0 = Monday
	IsHoliday     bool   `json:"is_holiday"`
	HolidayName   string `json:"holiday_name"`
	TotalPieces   int    `json:"total_pieces"`
	TotalVehicles int    `json:"total_vehicles"`
	TotalPallets  int    `json:"total_pallets"`
}

// WeekStat is one natural week (Monday through Sunday) with week-over-week
// change percentages against the preceding week.
type WeekStat struct {
	StartDate             string  `json:"start_date"`
	EndDate               string  `json:"end_date"`
	VehicleCount          int     `json:"vehicle_count"`
	TotalPieces           int     `json:"total_pieces"`
	PiecesChangePercent   float64 `json:"pieces_change_percent"`
	VehiclesChangePercent float64 `json:"vehicles_change_percent"`
}

// RoundDownTenThousand floors a piece total to the nearest ten thousand,
// e.g. 1232342 becomes 1230000.
func RoundDownTenThousand(v int) int {
	return v / 10000 * 10000
}

// DailyTrend groups records into per-date totals over every recorded day.
// dateOf attributes an arrival instant to its business day, so the series
// slices days exactly like the single-day snapshot does. The G-plate rule
// applies to the piece and pallet sums, never to the vehicle count.
func (a *Aggregator) DailyTrend(records []model.ArrivalRecord, dateOf func(time.Time) time.Time) []TrendPoint {
	type totals struct {
		pieces, vehicles, pallets int
	}
	byDate := make(map[string]*totals)
	for i := range records {
		r := &records[i]
		key := dateOf(r.CreatedAt).Format("2006-01-02")
		day := byDate[key]
		if day == nil {
			day = &totals{}
			byDate[key] = day
		}
		day.vehicles++
		if ExcludedFromLoad(r) {
			continue
		}
		day.pieces += r.Pieces
		if palletType(r.VehicleType) {
			day.pallets += r.LoadAmount
		}
	}

	dates := make([]string, 0, len(byDate))
	for d := range byDate {
		dates = append(dates, d)
	}
	sort.Strings(dates)

	points := make([]TrendPoint, 0, len(dates))
	for _, d := range dates {
		day := byDate[d]
		parsed, err := time.ParseInLocation("2006-01-02", d, a.loc)
		if err != nil {
			continue
		}
		holiday, isHoliday := usFederalHolidays[d]
		points = append(points, TrendPoint{
			Date:          d,
			Weekday:       parsed.Weekday().String(),
			WeekdayNum:    mondayIndex(parsed.Weekday()),
			IsHoliday:     isHoliday,
			HolidayName:   holiday,
			TotalPieces:   RoundDownTenThousand(day.pieces),
			TotalVehicles: day.vehicles,
			TotalPallets:  day.pallets,
		})
	}
	return points
}

// WeekComparison sums records over natural weeks, from the week of the
// earliest arrival up to and including the week containing now. Weeks with
// no arrivals still appear, so the series has no gaps.
func (a *Aggregator) WeekComparison(records []model.ArrivalRecord, now time.Time) []WeekStat {
	if len(records) == 0 {
		return []WeekStat{}
	}

	earliest := records[0].CreatedAt
	for i := range records {
		if records[i].CreatedAt.Before(earliest) {
			earliest = records[i].CreatedAt
		}
	}

	weekStart := startOfWeek(earliest.In(a.loc), a.loc)
	today := startOfDay(now.In(a.loc), a.loc)

	var weeks []WeekStat
	for ws := weekStart; !ws.After(today); ws = ws.AddDate(0, 0, 7) {
		we := ws.AddDate(0, 0, 7)

		var count, pieces int
		for i := range records {
			r := &records[i]
			local := r.CreatedAt.In(a.loc)
			if local.Before(ws) || !local.Before(we) {
				continue
			}
			count++
			if !ExcludedFromLoad(r) {
				pieces += r.Pieces
			}
		}
		pieces = RoundDownTenThousand(pieces)

		stat := WeekStat{
			StartDate:    ws.Format("2006-01-02"),
			EndDate:      ws.AddDate(0, 0, 6).Format("2006-01-02"),
			VehicleCount: count,
			TotalPieces:  pieces,
		}
		if len(weeks) > 0 {
			prev := weeks[len(weeks)-1]
			stat.PiecesChangePercent = changePercent(pieces, prev.TotalPieces)
			stat.VehiclesChangePercent = changePercent(count, prev.VehicleCount)
		}
		weeks = append(weeks, stat)
	}
	return weeks
}

// mondayIndex maps Go's Sunday-based weekday to the Monday-based 0-6 the
// trend consumers expect.
func mondayIndex(wd time.Weekday) int {
	return (int(wd) + 6) % 7
}

func startOfWeek(t time.Time, loc *time.Location) time.Time {
	d := startOfDay(t, loc)
	return d.AddDate(0, 0, -mondayIndex(d.Weekday()))
}

func startOfDay(t time.Time, loc *time.Location) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, loc)
}

// changePercent is the week-over-week delta, rounded to two decimals. A
// zero previous week reads as a 100% jump when anything arrived at all.
func changePercent(current, previous int) float64 {
	if previous > 0 {
		return math.Round(float64(current-previous)/float64(previous)*10000) / 100
	}
	if current > 0 {
		return 100
	}
	return 0
}
