package geo

import (
	"errors"
	"fmt"
	"math"
	"time"
)

var ErrInvalidCoordinates = errors.New("invalid coordinates")

// Rough bounding box for Lahore.
const (
	lahoreNorth = 31.7
	lahoreSouth = 31.35
	lahoreEast  = 74.5
	lahoreWest  = 74.15
)

// Location keeps the raw fix next to its fuzzed form. Only the fuzzy
// coordinates leave the process.
type Location struct {
	Latitude       float64   `json:"-"`
	Longitude      float64   `json:"-"`
	Accuracy       float64   `json:"accuracy,omitempty"`
	FuzzyLatitude  float64   `json:"latitude"`
	FuzzyLongitude float64   `json:"longitude"`
	Address        string    `json:"address,omitempty"`
	Timestamp      time.Time `json:"timestamp"`
}

func NewLocation(lat, lng, accuracy float64, at time.Time) (*Location, error) {
	if math.IsNaN(lat) || math.IsNaN(lng) || lat < -90 || lat > 90 || lng < -180 || lng > 180 {
		return nil, fmt.Errorf("%w: %v, %v", ErrInvalidCoordinates, lat, lng)
	}
	if accuracy < 0 || math.IsNaN(accuracy) {
		accuracy = 0
	}
	return &Location{
		Latitude:       lat,
		Longitude:      lng,
		Accuracy:       accuracy,
		FuzzyLatitude:  Fuzz(lat),
		FuzzyLongitude: Fuzz(lng),
		Timestamp:      at,
	}, nil
}

// Fuzz rounds to two decimals (roughly 1km), half up.
func Fuzz(v float64) float64 {
	return math.Floor(v*100+0.5) / 100
}

func InLahore(lat, lng float64) bool {
	return lat >= lahoreSouth && lat <= lahoreNorth && lng >= lahoreWest && lng <= lahoreEast
}

func (l *Location) InLahore() bool {
	return InLahore(l.FuzzyLatitude, l.FuzzyLongitude)
}

func (l *Location) Format() string {
	if l.Address != "" {
		return l.Address
	}
	return fmt.Sprintf("%.2f, %.2f", l.FuzzyLatitude, l.FuzzyLongitude)
}
