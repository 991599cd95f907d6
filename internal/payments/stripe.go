package payments

import (
	"context"
	"math"
	"os"

	stripe "github.com/stripe/stripe-go/v74"
	"github.com/stripe/stripe-go/v74/paymentintent"
)

// Gateway is the fare-payment surface the rides service depends on: hold
// at booking, capture at completion, release on cancel.
type Gateway interface {
	HoldFare(ctx context.Context, orderID string, amount float64, currency string) (string, error)
	CaptureFare(ctx context.Context, holdID string) error
	ReleaseFare(ctx context.Context, holdID string) error
}

// StripeGateway implements Gateway with manual-capture PaymentIntents.
type StripeGateway struct{}

// NewStripeGateway initializes the stripe client with the STRIPE_API_KEY env var.
func NewStripeGateway() *StripeGateway {
	stripe.Key = os.Getenv("STRIPE_API_KEY")
	return &StripeGateway{}
}

// HoldFare creates a PaymentIntent with capture_method=manual so the fare
// is reserved when the ride is booked but only charged on completion.
// Returns the PaymentIntent ID.
func (s *StripeGateway) HoldFare(ctx context.Context, orderID string, amount float64, currency string) (string, error) {
	params := &stripe.PaymentIntentParams{
		Amount:   stripe.Int64(toMinorUnits(amount)),
		Currency: stripe.String(currency),
	}
	params.CaptureMethod = stripe.String(string(stripe.PaymentIntentCaptureMethodManual))
	params.AddMetadata("order_id", orderID)
	pi, err := paymentintent.New(params)
	if err != nil {
		return "", err
	}
	return pi.ID, nil
}

// CaptureFare finalizes a previously-held fare.
func (s *StripeGateway) CaptureFare(ctx context.Context, holdID string) error {
	_, err := paymentintent.Capture(holdID, nil)
	return err
}

// ReleaseFare releases the hold on a cancelled ride.
func (s *StripeGateway) ReleaseFare(ctx context.Context, holdID string) error {
	_, err := paymentintent.Cancel(holdID, nil)
	return err
}

func toMinorUnits(amount float64) int64 {
	return int64(math.Round(amount * 100))
}
