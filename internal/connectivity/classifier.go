package connectivity

import (
	"math"

	"github.com/google/uuid"

	"github.com/nurpe/giga-contracts/internal/model"
)

// Class buckets a school by how its measured averages compare to a contract's targets.
type Class int

const (
	WithoutConnection Class = iota
	AtLeastOneBelowAverage
	AllAtOrAboveAverage
)

func (c Class) String() string {
	switch c {
	case WithoutConnection:
		return "WithoutConnection"
	case AtLeastOneBelowAverage:
		return "AtLeastOneBelowAverage"
	case AllAtOrAboveAverage:
		return "AllAtOrAboveAverage"
	}
	return "Unknown"
}

// Classify compares a school's averages (keyed by metric id) against the
// expected metrics in order. The first expected metric that is unmeasured or
// strictly below target decides the result. With no expected metrics any
// measured school counts as at or above average.
func Classify(averages map[uuid.UUID]float64, expected []model.ExpectedMetric) Class {
	if len(averages) == 0 {
		return WithoutConnection
	}
	for _, metric := range expected {
		avg, ok := averages[metric.MetricID]
		if !ok || avg < metric.Value {
			return AtLeastOneBelowAverage
		}
	}
	return AllAtOrAboveAverage
}

// Tally counts classified schools for one contract.
type Tally struct {
	Without int
	Below   int
	Above   int
}

func (t *Tally) Add(c Class) {
	switch c {
	case WithoutConnection:
		t.Without++
	case AtLeastOneBelowAverage:
		t.Below++
	case AllAtOrAboveAverage:
		t.Above++
	}
}

func (t Tally) Total() int {
	return t.Without + t.Below + t.Above
}

func (t Tally) Share() model.ConnectivityShare {
	total := t.Total()
	return model.ConnectivityShare{
		WithoutConnection:      Percentage(total, t.Without),
		AtLeastOneBelowAverage: Percentage(total, t.Below),
		AllEqualOrAboveAverage: Percentage(total, t.Above),
	}
}

// Percentage returns round(part/total*100), or 0 when either side is zero.
func Percentage[T int | int64 | float64](total, part T) int {
	if part == 0 || total == 0 {
		return 0
	}
	return int(math.Round(float64(part) / float64(total) * 100))
}
