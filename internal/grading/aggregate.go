package grading

import "math"

// Summary is the aggregate outcome of grading a whole session.
type Summary struct {
	TotalEarned   float64 `json:"total_earned"`
	TotalPossible float64 `json:"total_possible"`
	Percentage    float64 `json:"percentage"`
}

// Summarize folds per-question results into a session total and percentage,
// rounded to the exam's declared precision. An exam with zero possible points
// yields a zero percentage rather than dividing by zero.
func Summarize(results []Result, precision int) Summary {
	var sum Summary
	for _, r := range results {
		sum.TotalEarned += r.PointsEarned
		sum.TotalPossible += r.PointsPossible
	}

	sum.TotalEarned = RoundTo(sum.TotalEarned, precision)
	if sum.TotalPossible > 0 {
		sum.Percentage = RoundTo(sum.TotalEarned/sum.TotalPossible*100, precision)
	}
	return sum
}

// RoundTo rounds v half-up to the given number of decimal places.
func RoundTo(v float64, places int) float64 {
	if places < 0 {
		places = 0
	}
	p := math.Pow10(places)
	return math.Floor(v*p+0.5) / p
}
