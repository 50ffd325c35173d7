// Package policy is the buyer's decision engine: it turns one round's context
// into an ACCEPT or an OFFER at a concrete price.
package policy

import (
	"errors"
	"fmt"

	"buyer_agent/internal/models"

	"github.com/shopspring/decimal"
)

// ErrInvalidContext is returned when the context breaks the caller contract
// (budget <= 0 or round < 1).
var ErrInvalidContext = errors.New("invalid negotiation context")

const (
	// LateRound is the first round with the slower concession rate.
	LateRound = 5
	// EndgameRound is the first round where any in-budget ask is accepted.
	EndgameRound = 9
)

var (
	acceptMargin = decimal.RequireFromString("0.88")
	earlyRate    = decimal.RequireFromString("0.5")
	lateRate     = decimal.RequireFromString("0.3")
	minStep      = decimal.NewFromInt(1)
)

// Policy is stateless apart from the personality it was built with.
type Policy struct {
	archetype    Archetype
	openingRatio decimal.Decimal
}

func New(p models.Personality) *Policy {
	a := ParseArchetype(p.Archetype)
	return &Policy{archetype: a, openingRatio: OpeningRatio(a)}
}

// Archetype reports which table entry this policy uses.
func (p *Policy) Archetype() Archetype {
	return p.archetype
}

// Compute decides the buyer's move. The returned offer never exceeds the budget.
//
// A missing (or non-positive) seller price means "no signal yet": the
// acceptance tests are skipped and the buyer either opens or holds its last offer.
func (p *Policy) Compute(c models.NegotiationContext) (models.Decision, error) {
	if !c.Budget.IsPositive() || c.Round < 1 {
		return models.Decision{}, fmt.Errorf("%w: budget=%s round=%d", ErrInvalidContext, c.Budget, c.Round)
	}

	var seller decimal.Decimal
	known := c.SellerPrice != nil && c.SellerPrice.IsPositive()
	if known {
		seller = *c.SellerPrice
	}

	// 1. Clearly favourable ask, any round, any personality.
	if known && seller.LessThanOrEqual(c.Budget.Mul(acceptMargin)) {
		return models.Decision{Action: models.ActionAccept, Offer: seller}, nil
	}

	// 2. Opening offer or concession.
	var offer decimal.Decimal
	switch {
	case c.Round == 1 || c.LastOffer == nil:
		offer = c.ReferencePrice().Mul(p.openingRatio).Floor()
	case !known:
		offer = *c.LastOffer
	default:
		rate := earlyRate
		if c.Round >= LateRound {
			rate = lateRate
		}
		gap := seller.Sub(*c.LastOffer)
		concession := decimal.Max(minStep, gap.Mul(rate).Floor())
		offer = c.LastOffer.Add(concession)
	}

	// 3. Budget is a hard ceiling.
	offer = decimal.Min(offer, c.Budget)

	// 4. Near the horizon take any ask we can afford rather than deadlock.
	if known && c.Round >= EndgameRound && seller.LessThanOrEqual(c.Budget) {
		return models.Decision{Action: models.ActionAccept, Offer: seller}, nil
	}

	return models.Decision{Action: models.ActionOffer, Offer: offer}, nil
}
