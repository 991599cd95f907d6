// Package selection implements the vehicle-picker logic: an offer list
// with three mutually exclusive sort modes, single selection, and the
// guard that blocks a new ride request while another trip is active.
package selection

import (
	"context"
	"errors"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/example/trip-tracking/internal/models"
)

type SortMode string

const (
	SortRecommended SortMode = "recommended" // input order
	SortFaster      SortMode = "faster"      // ascending parsed ETA minutes
	SortCheaper     SortMode = "cheaper"     // ascending price
)

// ErrRideInProgress is surfaced as a blocking notice: a new request is
// refused while another trip is active.
var ErrRideInProgress = errors.New("a ride is already in progress")

// ActiveTripChecker reports whether the rider already has a live order.
type ActiveTripChecker interface {
	HasActiveOrder(ctx context.Context, riderID string) (bool, error)
}

type Panel struct {
	mu       sync.Mutex
	offers   []models.VehicleOffer
	mode     SortMode
	selected string // class of the explicitly selected offer; "" = default
	checker  ActiveTripChecker
}

func NewPanel(offers []models.VehicleOffer, checker ActiveTripChecker) *Panel {
	return &Panel{offers: offers, mode: SortRecommended, checker: checker}
}

// SetOffers replaces the offer list, e.g. after an async fleet fetch.
func (p *Panel) SetOffers(offers []models.VehicleOffer) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.offers = offers
	if p.selected != "" && p.indexOfLocked(p.selected) < 0 {
		p.selected = ""
	}
}

func (p *Panel) SetSort(mode SortMode) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.mode = mode
}

// Offers returns the list in the current sort order. The order is
// recomputed on every call from the current mode, never cached.
func (p *Panel) Offers() []models.VehicleOffer {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.sortedLocked()
}

func (p *Panel) sortedLocked() []models.VehicleOffer {
	out := make([]models.VehicleOffer, len(p.offers))
	copy(out, p.offers)
	switch p.mode {
	case SortFaster:
		sort.SliceStable(out, func(i, j int) bool { return parseETAMinutes(out[i].ETA) < parseETAMinutes(out[j].ETA) })
	case SortCheaper:
		sort.SliceStable(out, func(i, j int) bool { return out[i].Price < out[j].Price })
	}
	return out
}

// Select marks the offer with the given class as chosen.
func (p *Panel) Select(class string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.indexOfLocked(class) < 0 {
		return errors.New("no such offer: " + class)
	}
	p.selected = class
	return nil
}

// Selected returns the chosen offer, defaulting to the first item of the
// active (sorted) list when nothing was picked explicitly.
func (p *Panel) Selected() (models.VehicleOffer, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	sorted := p.sortedLocked()
	if len(sorted) == 0 {
		return models.VehicleOffer{}, false
	}
	if p.selected != "" {
		for _, o := range sorted {
			if o.Class == p.selected {
				return o, true
			}
		}
	}
	return sorted[0], true
}

// RequestRide validates the guard and hands back the offer to book. A
// rider with an active trip gets ErrRideInProgress instead.
func (p *Panel) RequestRide(ctx context.Context, riderID string) (models.VehicleOffer, error) {
	if p.checker != nil {
		active, err := p.checker.HasActiveOrder(ctx, riderID)
		if err != nil {
			return models.VehicleOffer{}, err
		}
		if active {
			return models.VehicleOffer{}, ErrRideInProgress
		}
	}
	offer, ok := p.Selected()
	if !ok {
		return models.VehicleOffer{}, errors.New("no offers available")
	}
	return offer, nil
}

func (p *Panel) indexOfLocked(class string) int {
	for i, o := range p.offers {
		if o.Class == class {
			return i
		}
	}
	return -1
}

// parseETAMinutes extracts the leading integer of an ETA display string
// like "5 mins". Unparseable strings sort last.
func parseETAMinutes(eta string) int {
	fields := strings.Fields(strings.TrimSpace(eta))
	if len(fields) == 0 {
		return int(^uint(0) >> 1)
	}
	n, err := strconv.Atoi(fields[0])
	if err != nil {
		return int(^uint(0) >> 1)
	}
	return n
}
