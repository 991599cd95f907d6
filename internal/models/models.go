package models

import "time"

type Coord struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// OrderKind distinguishes the two order collections: rides and food deliveries.
type OrderKind string

const (
	KindRide OrderKind = "ride"
	KindFood OrderKind = "food"
)

type OrderStatus string

const (
	StatusPending   OrderStatus = "pending"
	StatusAccepted  OrderStatus = "accepted"
	StatusArrived   OrderStatus = "arrived"
	StatusStarted   OrderStatus = "started"
	StatusCompleted OrderStatus = "completed"
	// StatusDelivered is the food-delivery terminal equivalent of completed.
	StatusDelivered OrderStatus = "delivered"
	StatusCancelled OrderStatus = "cancelled"
)

// Terminal reports whether no further status transitions are expected.
func (s OrderStatus) Terminal() bool {
	return s == StatusCompleted || s == StatusDelivered || s == StatusCancelled
}

type OrderItem struct {
	Name  string  `json:"name"`
	Qty   int     `json:"qty"`
	Price float64 `json:"price"`
}

// PriceBreakdown is populated for food orders only.
type PriceBreakdown struct {
	Subtotal    float64 `json:"subtotal"`
	DeliveryFee float64 `json:"delivery_fee"`
	Total       float64 `json:"total"`
}

type Order struct {
	ID          string          `json:"id"`
	Kind        OrderKind       `json:"kind"`
	Status      OrderStatus     `json:"status"`
	RiderID     string          `json:"rider_id"`
	DriverID    string          `json:"driver_id,omitempty"`
	Pickup      Coord           `json:"pickup"`
	Destination Coord           `json:"destination"`
	Stops       []Coord         `json:"stops,omitempty"`
	CarType     string          `json:"car_type,omitempty"`
	Price       float64         `json:"price"`
	Items       []OrderItem     `json:"items,omitempty"`
	Breakdown   *PriceBreakdown `json:"breakdown,omitempty"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

type DriverInfo struct {
	ID          string  `json:"id"`
	Name        string  `json:"name"`
	Rating      float64 `json:"rating"` // 0..5
	Plate       string  `json:"plate"`
	Vehicle     string  `json:"vehicle"`
	AvatarGlyph string  `json:"avatar_glyph"`
	LastKnown   Coord   `json:"last_known"`
}

// PlaceholderDriver is substituted whenever a driver profile lookup fails or
// returns nothing, so the tracking view never blocks on a missing profile.
var PlaceholderDriver = DriverInfo{
	ID:          "placeholder",
	Name:        "Allen",
	Rating:      4.9,
	Plate:       "KW14CKGP",
	Vehicle:     "Toyota Corolla",
	AvatarGlyph: "A",
}

// LocationSample is one pushed driver position. Samples are not persisted by
// the tracker; each one only feeds the next ETA recomputation.
type LocationSample struct {
	DriverID   string    `json:"driver_id"`
	Loc        Coord     `json:"loc"`
	ReceivedAt time.Time `json:"received_at"`
}

// VehicleOffer is one row of the selection panel. ETA is a display string
// whose leading integer is the minute estimate used by the faster sort.
type VehicleOffer struct {
	Class    string  `json:"class"`
	Price    float64 `json:"price"`
	ETA      string  `json:"eta"`
	Capacity int     `json:"capacity"`
	Badge    string  `json:"badge,omitempty"`
}

type Rating struct {
	OrderID   string    `json:"order_id"`
	DriverID  string    `json:"driver_id"`
	RiderID   string    `json:"rider_id"`
	Value     int       `json:"value"` // 1-based
	Feedback  string    `json:"feedback"`
	CreatedAt time.Time `json:"created_at"`
}
