package models

import (
	"sort"
	"time"
)

const DateLayout = "2006-01-02"

// PricePoint is a single daily (or weekly) close as stored and served.
type PricePoint struct {
	Date  string  `json:"date"`
	Price float64 `json:"price"`
}

type History struct {
	Resource  string       `json:"resource"`
	Source    string       `json:"source"`
	Points    []PricePoint `json:"points"`
	FetchedAt time.Time    `json:"fetchedAt"`
}

// Latest returns the last point, or false when the history is empty.
func (h *History) Latest() (PricePoint, bool) {
	if h == nil || len(h.Points) == 0 {
		return PricePoint{}, false
	}
	return h.Points[len(h.Points)-1], true
}

type Quote struct {
	Resource string  `json:"resource"`
	Name     string  `json:"name"`
	Unit     string  `json:"unit"`
	Price    float64 `json:"price"`
	Date     string  `json:"date"`
}

func SortPoints(points []PricePoint) {
	sort.SliceStable(points, func(i, j int) bool { return points[i].Date < points[j].Date })
}

// MergeHistory unions old and fresh by date. Fresh values win on conflict and
// the result is ascending by date.
func MergeHistory(old, fresh []PricePoint) []PricePoint {
	byDate := make(map[string]float64, len(old)+len(fresh))
	for _, p := range old {
		byDate[p.Date] = p.Price
	}
	for _, p := range fresh {
		byDate[p.Date] = p.Price
	}

	out := make([]PricePoint, 0, len(byDate))
	for d, v := range byDate {
		out = append(out, PricePoint{Date: d, Price: v})
	}
	SortPoints(out)
	return out
}

// FilterSince keeps points dated on or after cutoff's calendar day.
// Points with unparsable dates are dropped.
func FilterSince(points []PricePoint, cutoff time.Time) []PricePoint {
	day := time.Date(cutoff.Year(), cutoff.Month(), cutoff.Day(), 0, 0, 0, 0, time.UTC)
	out := make([]PricePoint, 0, len(points))
	for _, p := range points {
		d, err := time.Parse(DateLayout, p.Date)
		if err != nil {
			continue
		}
		if !d.Before(day) {
			out = append(out, p)
		}
	}
	return out
}

// ClonePoints copies points. The result is never nil so it encodes as [].
func ClonePoints(points []PricePoint) []PricePoint {
	out := make([]PricePoint, len(points))
	copy(out, points)
	return out
}
