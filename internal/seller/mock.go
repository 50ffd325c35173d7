// Package seller provides a scripted counterparty used to drive the buyer in
// simulations and tests.
package seller

import (
	"fmt"

	"buyer_agent/internal/models"

	"github.com/shopspring/decimal"
)

// DefaultJitter is the half-width of the random adjustment applied to counters.
const DefaultJitter = 500

var (
	openingMarkup   = decimal.RequireFromString("1.5")
	defaultFloor    = decimal.RequireFromString("0.82")
	acceptThreshold = decimal.RequireFromString("1.1")
	counterMarkup   = decimal.RequireFromString("1.15")
)

// RandSource is the randomness the seller draws jitter from. *rand.Rand satisfies it.
type RandSource interface {
	Int63n(n int64) int64
}

// MockSeller opens at 150% of market and concedes toward its floor.
type MockSeller struct {
	MarketPrice decimal.Decimal
	MinPrice    decimal.Decimal
	OpeningAsk  decimal.Decimal

	lastCounter *decimal.Decimal
	jitter      int64
	rnd         RandSource
}

// New builds a seller for sc. The floor is sc.SellerMin when set, else 82% of market.
// A nil rnd disables jitter.
func New(sc models.Scenario, rnd RandSource, jitter int64) *MockSeller {
	market := sc.Product.BaseMarketPrice.Floor()

	floor := market.Mul(defaultFloor).Floor()
	if sc.SellerMin != nil {
		floor = sc.SellerMin.Floor()
	}

	opening := market.Mul(openingMarkup).Floor()
	return &MockSeller{
		MarketPrice: market,
		MinPrice:    floor,
		OpeningAsk:  opening,
		lastCounter: models.Price(opening),
		jitter:      jitter,
		rnd:         rnd,
	}
}

// LastCounter is the price the next message will quote.
func (s *MockSeller) LastCounter() decimal.Decimal {
	if s.lastCounter == nil {
		return s.OpeningAsk
	}
	return *s.lastCounter
}

// SendMessage renders the current ask.
func (s *MockSeller) SendMessage() string {
	if s.lastCounter == nil {
		s.lastCounter = models.Price(s.OpeningAsk)
	}
	return fmt.Sprintf("Seller opening ask: ₹%s", s.lastCounter.String())
}

// ReceiveBuyerOffer updates the counter in reaction to the buyer.
//
// An offer at or above 110% of the floor is echoed back unchanged, which the
// buyer reads as the seller agreeing to its price.
func (s *MockSeller) ReceiveBuyerOffer(offer decimal.Decimal) {
	if !offer.IsPositive() {
		s.lastCounter = models.Price(s.OpeningAsk)
		return
	}

	if offer.GreaterThanOrEqual(s.MinPrice.Mul(acceptThreshold).Floor()) {
		s.lastCounter = models.Price(offer)
		return
	}

	proposed := decimal.Max(s.MinPrice, offer.Mul(counterMarkup).Floor())
	proposed = decimal.Max(s.MinPrice, proposed.Add(s.drawJitter()))
	s.lastCounter = &proposed
}

// drawJitter returns a uniform integer in [-jitter, +jitter].
func (s *MockSeller) drawJitter() decimal.Decimal {
	if s.rnd == nil || s.jitter <= 0 {
		return decimal.Zero
	}
	return decimal.NewFromInt(s.rnd.Int63n(2*s.jitter+1) - s.jitter)
}
