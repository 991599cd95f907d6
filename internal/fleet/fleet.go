// Package fleet sources the vehicle offers shown by the selection panel:
// a static priced catalog for ride mode, and a store-backed fetch for the
// other service modes.
package fleet

import (
	"context"

	"github.com/example/trip-tracking/internal/models"
	"github.com/example/trip-tracking/internal/pricing"
	"github.com/example/trip-tracking/internal/storage"
)

const ModeRide = "ride"

// rideClasses is the fixed ride-mode catalog, in recommended order.
var rideClasses = []struct {
	class    string
	eta      string
	capacity int
	badge    string
}{
	{"lite", "3 mins", 4, ""},
	{"comfort", "5 mins", 4, "Popular"},
	{"xl", "8 mins", 6, ""},
	{"premium", "10 mins", 4, "Top rated drivers"},
}

type Catalog struct {
	store storage.Store
}

func NewCatalog(store storage.Store) *Catalog {
	return &Catalog{store: store}
}

// Options returns the offers for a service mode. Ride mode prices the
// static catalog from the trip's base price; other modes come from the
// fleet store.
func (c *Catalog) Options(ctx context.Context, serviceMode, extraOption string, basePrice float64) ([]models.VehicleOffer, error) {
	if serviceMode == ModeRide {
		return RideOffers(basePrice), nil
	}
	return c.store.FleetOptions(ctx, serviceMode, extraOption)
}

// RideOffers prices the static ride catalog against a trip's base price.
func RideOffers(basePrice float64) []models.VehicleOffer {
	out := make([]models.VehicleOffer, 0, len(rideClasses))
	for _, rc := range rideClasses {
		out = append(out, models.VehicleOffer{
			Class:    rc.class,
			Price:    pricing.CarTypePrice(basePrice, rc.class),
			ETA:      rc.eta,
			Capacity: rc.capacity,
			Badge:    rc.badge,
		})
	}
	return out
}
