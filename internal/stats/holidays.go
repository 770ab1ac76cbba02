package stats

// usFederalHolidays annotates trend dates with the published 2025-2026 US
// federal holiday schedule. Volume on these dates drops sharply, so the
// charts call them out.
// TODO: extend for 2027 before the 2026 season ends.
var usFederalHolidays = map[string]string{
	"2025-01-01": "New Year's Day",
	"2025-01-20": "Martin Luther King Jr. Day",
	"2025-02-17": "Presidents' Day",
	"2025-05-26": "Memorial Day",
	"2025-07-04": "Independence Day",
	"2025-09-01": "Labor Day",
	"2025-10-13": "Columbus Day",
	"2025-11-11": "Veterans Day",
	"2025-11-27": "Thanksgiving",
	"2025-12-25": "Christmas Day",
	"2026-01-01": "New Year's Day",
	"2026-01-19": "Martin Luther King Jr. Day",
	"2026-02-16": "Presidents' Day",
	"2026-05-25": "Memorial Day",
	"2026-07-03": "Independence Day (Observed)",
	"2026-07-04": "Independence Day",
	"2026-09-07": "Labor Day",
	"2026-10-12": "Columbus Day",
	"2026-11-11": "Veterans Day",
	"2026-11-26": "Thanksgiving",
	"2026-12-25": "Christmas Day",
}
