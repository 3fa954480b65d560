package models

const PeriodAll = "all"

var periodDays = map[string]int{
	"week":    7,
	"month":   30,
	"3months": 90,
	"year":    365,
	"3years":  1095,
}

// PeriodKeys lists the supported periods in display order.
var PeriodKeys = []string{"week", "month", "3months", "year", "3years", PeriodAll}

// PeriodDays reports the window length for a period key. "all" and unknown
// keys return ok=false, meaning the history is not filtered.
func PeriodDays(period string) (int, bool) {
	d, ok := periodDays[period]
	return d, ok
}
