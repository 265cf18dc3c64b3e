package plants

import (
	"fmt"
	"hash/fnv"
	"math"
	"math/rand/v2"
	"strconv"
	"time"

	"github.com/kroma-labs/solarops/normalize"
)

// Fallback supplies stand-in data for reads that failed.
type Fallback interface {
	Plants() []Plant
	Plant(id string) Plant
	Weather(plantID string, date time.Time) Weather
	KPIs(plantID string, date time.Time) KPIs
	Alerts(filter AlertFilter) []Alert
	Trackers(plantID string) []Tracker
}

var _ Fallback = (*Synthetic)(nil)

// Synthetic generates plausible plant data. Output depends only on the
// arguments, so repeated calls agree with each other.
type Synthetic struct {
	count int
}

// NewSynthetic creates a generator for a fleet of count plants, numbered
// from 1.
func NewSynthetic(count int) *Synthetic {
	if count < 1 {
		count = 1
	}
	return &Synthetic{count: count}
}

func (s *Synthetic) Plants() []Plant {
	out := make([]Plant, 0, s.count)
	for i := 1; i <= s.count; i++ {
		out = append(out, s.Plant(strconv.Itoa(i)))
	}
	return out
}

func (s *Synthetic) Plant(id string) Plant {
	r := rng(id)
	return Plant{
		ID:         id,
		Name:       "Plant " + id,
		Location:   "Synthetic site " + id,
		Latitude:   round(35+r.Float64()*10, 4),
		Longitude:  round(-5+r.Float64()*20, 4),
		CapacityKW: float64(1000 * (1 + r.IntN(50))),
		Status:     StatusOperational,
	}
}

func (s *Synthetic) Weather(plantID string, date time.Time) Weather {
	r := rng(plantID, day(date))
	return Weather{
		PlantID:      plantID,
		Date:         normalize.Time(date),
		TemperatureC: round(10+r.Float64()*20, 1),
		Irradiance:   round(200+r.Float64()*800, 0),
		CloudCover:   round(r.Float64()*100, 0),
		WindSpeed:    round(r.Float64()*15, 1),
	}
}

func (s *Synthetic) KPIs(plantID string, date time.Time) KPIs {
	r := rng(plantID, day(date))
	capacity := s.Plant(plantID).CapacityKW
	yield := round(2+r.Float64()*4, 2)
	return KPIs{
		PlantID:          plantID,
		Date:             normalize.Time(date),
		EnergyKWh:        round(capacity*yield, 0),
		PerformanceRatio: round(0.75+r.Float64()*0.15, 3),
		Availability:     round(0.95+r.Float64()*0.05, 3),
		SpecificYield:    yield,
	}
}

// Alerts returns no alerts: synthetic data must not raise alarms that do
// not exist.
func (s *Synthetic) Alerts(AlertFilter) []Alert {
	return []Alert{}
}

func (s *Synthetic) Trackers(plantID string) []Tracker {
	r := rng(plantID, "trackers")
	n := 2 + r.IntN(4)
	out := make([]Tracker, 0, n)
	for i := 1; i <= n; i++ {
		out = append(out, Tracker{
			ID:       fmt.Sprintf("%s-T%02d", plantID, i),
			PlantID:  plantID,
			AngleDeg: round(-60+r.Float64()*120, 1),
			Mode:     "auto",
			Status:   StatusOperational,
		})
	}
	return out
}

// rng returns a generator seeded from parts.
func rng(parts ...string) *rand.Rand {
	h := fnv.New64a()
	for _, p := range parts {
		h.Write([]byte(p))
		h.Write([]byte{0})
	}
	seed := h.Sum64()
	return rand.New(rand.NewPCG(seed, seed>>1))
}

func day(t time.Time) string {
	return t.UTC().Format(time.DateOnly)
}

func round(v float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(v*p) / p
}
