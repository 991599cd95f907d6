package tracker

import (
	"fmt"

	"github.com/example/trip-tracking/internal/models"
)

// StatusText is the pure projection from order status and the latest ETA
// estimate to the rendered status line. etaKnown is false until a location
// sample has produced an estimate for the current phase; the subscription
// plumbing never leaks into this function, so it is testable on its own.
func StatusText(status models.OrderStatus, etaMins int, etaKnown bool) string {
	switch status {
	case models.StatusPending:
		return "Finding your driver"
	case models.StatusAccepted:
		if etaKnown {
			return fmt.Sprintf("Arriving in %s", minutes(etaMins))
		}
		return "Your driver is on the way"
	case models.StatusStarted:
		if etaKnown {
			return fmt.Sprintf("On trip - ETA %s", minutes(etaMins))
		}
		return "Heading to your destination"
	case models.StatusArrived:
		return "Your driver has arrived"
	case models.StatusCompleted, models.StatusDelivered:
		return "You've arrived at your destination"
	case models.StatusCancelled:
		return "Your ride was cancelled"
	default:
		return ""
	}
}

func minutes(n int) string {
	if n == 1 {
		return "1 min"
	}
	return fmt.Sprintf("%d mins", n)
}

// tracksLocation reports whether a status still wants live driver
// positions. Samples arriving after the status left this set are discarded.
func tracksLocation(status models.OrderStatus) bool {
	return status == models.StatusAccepted || status == models.StatusStarted
}
