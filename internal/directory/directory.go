// Package directory resolves driver profiles for tracking sessions. A
// lookup is best-effort: any failure or missing profile yields the fixed
// placeholder driver, so the caller never blocks on a profile.
package directory

import (
	"context"
	"log/slog"

	"github.com/example/trip-tracking/internal/geo"
	"github.com/example/trip-tracking/internal/models"
	"github.com/example/trip-tracking/internal/storage"
)

type Directory struct {
	store  storage.Store
	index  geo.Index // optional; enriches LastKnown
	logger *slog.Logger
}

func New(store storage.Store, index geo.Index, logger *slog.Logger) *Directory {
	return &Directory{store: store, index: index, logger: logger}
}

// Resolve returns the driver's profile, or the placeholder record when the
// lookup fails or finds nothing. It never returns an error: falling back is
// the degrade-gracefully policy, not a failure.
func (d *Directory) Resolve(ctx context.Context, driverID string) models.DriverInfo {
	info, err := d.store.GetDriver(ctx, driverID)
	if err != nil {
		if err != storage.ErrNotFound {
			d.logger.Warn("driver lookup failed, using placeholder", "driver_id", driverID, "error", err)
		}
		return models.PlaceholderDriver
	}
	out := *info
	if d.index != nil {
		if loc, ok := d.index.LastKnown(driverID); ok {
			out.LastKnown = loc
		}
	}
	return out
}
