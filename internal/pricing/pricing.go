// Package pricing holds the fare arithmetic shared by quoting and the
// selection panel. All functions are pure.
package pricing

import (
	"math"

	"github.com/example/trip-tracking/internal/geo"
	"github.com/example/trip-tracking/internal/models"
)

// fare amounts based on business rules
const (
	baseFare    = 15.0
	ratePerKm   = 7.5
	stopFee     = 5.0
	minimumFare = 25.0
)

// Class multipliers applied on top of a base price.
var classMultipliers = map[string]float64{
	"lite":    1.0,
	"comfort": 1.25,
	"xl":      1.6,
	"premium": 2.0,
}

// PriceWithStops computes the fare for pickup -> stops... -> destination,
// charging per-km over every leg plus a flat fee per intermediate stop.
func PriceWithStops(pickup, destination models.Coord, stops []models.Coord) float64 {
	legs := append(append([]models.Coord{pickup}, stops...), destination)
	var meters float64
	for i := 1; i < len(legs); i++ {
		meters += geo.Haversine(legs[i-1].Lat, legs[i-1].Lng, legs[i].Lat, legs[i].Lng)
	}
	price := baseFare + ratePerKm*meters/1000.0 + stopFee*float64(len(stops))
	if price < minimumFare {
		price = minimumFare
	}
	return round2(price)
}

// CarTypePrice applies the vehicle-class multiplier to a base price.
// Unknown classes price as the base class.
func CarTypePrice(base float64, class string) float64 {
	m, ok := classMultipliers[class]
	if !ok {
		m = 1.0
	}
	return round2(base * m)
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
