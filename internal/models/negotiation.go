package models

import (
	"strings"

	"github.com/shopspring/decimal"
)

// Action is the buyer's move for a round.
type Action string

const (
	ActionOffer  Action = "OFFER"
	ActionAccept Action = "ACCEPT"
	// ActionReject is never produced by the current policy but stays part of the
	// contract so callers handle it.
	ActionReject Action = "REJECT"
)

// Tone is the coarse stance read from a seller message.
type Tone string

const (
	ToneFirm     Tone = "firm"
	ToneFlexible Tone = "flexible"
	ToneNeutral  Tone = "neutral"
)

// Product is the item under negotiation. It does not change during a session.
//
// BaseMarketPrice is what the seller side anchors on. MarketPrice is the
// buyer's reference price and is usually absent, in which case the policy
// falls back to the budget.
type Product struct {
	Name            string           `json:"name" yaml:"name"`
	Quantity        int              `json:"quantity" yaml:"quantity"`
	BaseMarketPrice decimal.Decimal  `json:"base_market_price" yaml:"base_market_price"`
	MarketPrice     *decimal.Decimal `json:"market_price,omitempty" yaml:"market_price,omitempty"`
	Symbol          string           `json:"symbol,omitempty" yaml:"symbol,omitempty"` // Optional ticker used to look up MarketPrice
}

// Scenario is one materialized negotiation setup: product, budget and seller floor.
type Scenario struct {
	Name      string           `json:"name" yaml:"name"`
	Product   Product          `json:"product" yaml:"product"`
	Budget    decimal.Decimal  `json:"budget" yaml:"budget"`
	SellerMin *decimal.Decimal `json:"seller_min,omitempty" yaml:"seller_min,omitempty"`
}

// Personality is the buyer persona. Archetype selects the opening ratio,
// traits only flavour the generated text.
type Personality struct {
	Archetype string   `json:"archetype" yaml:"archetype"`
	Traits    []string `json:"traits" yaml:"traits"`
}

// Describe renders the persona the way it is shown to the language model.
func (p Personality) Describe() string {
	return p.Archetype + " personality: " + strings.Join(p.Traits, ", ")
}

// RoundRecord is the immutable log entry for one round.
type RoundRecord struct {
	Round         int              `json:"round"`
	SellerPrice   *decimal.Decimal `json:"seller_price"`
	SellerMessage string           `json:"seller_message"`
	BuyerOffer    *decimal.Decimal `json:"buyer_offer"`
	BuyerAction   Action           `json:"buyer_action"`
}

// NegotiationContext bundles everything the policy needs for one round.
// It is built fresh every round and never stored.
type NegotiationContext struct {
	Product     Product
	Budget      decimal.Decimal
	MarketPrice *decimal.Decimal // nil means "use Budget"
	SellerPrice *decimal.Decimal // nil means no price could be read
	SellerTone  Tone
	Round       int
	LastOffer   *decimal.Decimal
}

// ReferencePrice returns the market price the opening offer is computed from.
func (c NegotiationContext) ReferencePrice() decimal.Decimal {
	if c.MarketPrice != nil && c.MarketPrice.IsPositive() {
		return *c.MarketPrice
	}
	return c.Budget
}

// Decision is the policy output. Offer is meaningful for OFFER and ACCEPT only.
type Decision struct {
	Action Action          `json:"action"`
	Offer  decimal.Decimal `json:"offer"`
}

// Price returns a pointer copy of d, handy for optional fields.
func Price(d decimal.Decimal) *decimal.Decimal {
	return &d
}
