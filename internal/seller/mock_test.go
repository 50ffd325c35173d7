package seller

import (
	"math/rand"
	"testing"

	"buyer_agent/internal/models"
	"buyer_agent/internal/observation"

	"github.com/shopspring/decimal"
)

// fixedRand always returns the same draw.
type fixedRand struct{ v int64 }

func (f fixedRand) Int63n(n int64) int64 { return f.v }

func easyMarket() models.Scenario {
	return models.Scenario{
		Name:      "Easy Market",
		Product:   models.Product{Name: "Alphonso Mangoes", Quantity: 100, BaseMarketPrice: decimal.NewFromInt(180000)},
		Budget:    decimal.NewFromInt(200000),
		SellerMin: models.Price(decimal.NewFromInt(150000)),
	}
}

func TestNew_Defaults(t *testing.T) {
	sc := easyMarket()
	sc.SellerMin = nil
	s := New(sc, nil, 0)

	if !s.OpeningAsk.Equal(decimal.NewFromInt(270000)) {
		t.Errorf("Expected opening ask 270000, got %s", s.OpeningAsk)
	}
	// 0.82 * 180000
	if !s.MinPrice.Equal(decimal.NewFromInt(147600)) {
		t.Errorf("Expected default floor 147600, got %s", s.MinPrice)
	}
	if msg := s.SendMessage(); msg != "Seller opening ask: ₹270000" {
		t.Errorf("Unexpected opening message: %q", msg)
	}
}

func TestReceiveBuyerOffer_EchoesAcceptableOffer(t *testing.T) {
	s := New(easyMarket(), fixedRand{v: 0}, DefaultJitter)

	// Threshold is 150000 * 1.1 = 165000.
	s.ReceiveBuyerOffer(decimal.NewFromInt(165000))

	price := observation.ExtractPrice(s.SendMessage())
	if price == nil || !price.Equal(decimal.NewFromInt(165000)) {
		t.Errorf("Expected seller to quote the buyer's 165000, got %v", price)
	}
}

func TestReceiveBuyerOffer_CounterWithJitter(t *testing.T) {
	// Int63n(1001) returning 0 maps to a jitter of -500.
	s := New(easyMarket(), fixedRand{v: 0}, DefaultJitter)
	s.ReceiveBuyerOffer(decimal.NewFromInt(160000))

	// 160000 * 1.15 = 184000, minus 500
	if !s.LastCounter().Equal(decimal.NewFromInt(183500)) {
		t.Errorf("Expected counter 183500, got %s", s.LastCounter())
	}

	s = New(easyMarket(), fixedRand{v: 1000}, DefaultJitter)
	s.ReceiveBuyerOffer(decimal.NewFromInt(160000))
	if !s.LastCounter().Equal(decimal.NewFromInt(184500)) {
		t.Errorf("Expected counter 184500, got %s", s.LastCounter())
	}
}

func TestReceiveBuyerOffer_NeverBelowFloor(t *testing.T) {
	s := New(easyMarket(), rand.New(rand.NewSource(7)), DefaultJitter)
	for i := 0; i < 200; i++ {
		s.ReceiveBuyerOffer(decimal.NewFromInt(100000))
		if s.LastCounter().LessThan(s.MinPrice) {
			t.Fatalf("Counter %s below floor %s", s.LastCounter(), s.MinPrice)
		}
	}
}

func TestReceiveBuyerOffer_ZeroResetsToOpening(t *testing.T) {
	s := New(easyMarket(), nil, 0)
	s.ReceiveBuyerOffer(decimal.NewFromInt(140000))
	if s.LastCounter().Equal(s.OpeningAsk) {
		t.Fatal("Expected counter to move away from opening ask")
	}

	s.ReceiveBuyerOffer(decimal.Zero)
	if !s.LastCounter().Equal(s.OpeningAsk) {
		t.Errorf("Expected reset to opening ask %s, got %s", s.OpeningAsk, s.LastCounter())
	}
}

func TestReceiveBuyerOffer_SeededIsReproducible(t *testing.T) {
	a := New(easyMarket(), rand.New(rand.NewSource(42)), DefaultJitter)
	b := New(easyMarket(), rand.New(rand.NewSource(42)), DefaultJitter)

	for _, offer := range []int64{120000, 130000, 140000} {
		a.ReceiveBuyerOffer(decimal.NewFromInt(offer))
		b.ReceiveBuyerOffer(decimal.NewFromInt(offer))
		if !a.LastCounter().Equal(b.LastCounter()) {
			t.Fatalf("Seeded sellers diverged: %s vs %s", a.LastCounter(), b.LastCounter())
		}
	}
}
