// Package session runs a buyer negotiation one round at a time.
package session

import (
	"context"
	"fmt"
	"strings"
	"time"

	"buyer_agent/internal/ai"
	"buyer_agent/internal/logger"
	"buyer_agent/internal/memory"
	"buyer_agent/internal/models"
	"buyer_agent/internal/observation"
	"buyer_agent/internal/policy"

	"github.com/oklog/ulid/v2"
	"github.com/shopspring/decimal"
)

const (
	DefaultMaxTokens     = 50
	DefaultRenderTimeout = 15 * time.Second
)

// Options configures a Session. Generator may be nil, in which case every
// round uses the fallback message.
type Options struct {
	ID            string // Generated when empty
	BuyerName     string
	Personality   models.Personality
	Product       models.Product
	Budget        decimal.Decimal
	Generator     ai.Generator
	Memory        memory.Store // Defaults to a fresh RoundMemory
	MaxTokens     int
	RenderTimeout time.Duration
}

// Outcome is what one round hands back to the caller.
type Outcome struct {
	Round       int
	Action      models.Action
	Offer       decimal.Decimal
	Message     string
	SellerPrice *decimal.Decimal
	SellerTone  models.Tone
	Fallback    bool // Message came from the template, not the generator
}

// Session owns the memory and policy for one product and one budget.
// It is turn-based and not safe for concurrent use; separate sessions share nothing.
type Session struct {
	id            string
	buyerName     string
	personality   models.Personality
	product       models.Product
	budget        decimal.Decimal
	policy        *policy.Policy
	memory        memory.Store
	generator     ai.Generator
	maxTokens     int
	renderTimeout time.Duration
}

func New(o Options) (*Session, error) {
	if !o.Budget.IsPositive() {
		return nil, fmt.Errorf("%w: budget must be positive, got %s", policy.ErrInvalidContext, o.Budget)
	}

	s := &Session{
		id:            o.ID,
		buyerName:     o.BuyerName,
		personality:   o.Personality,
		product:       o.Product,
		budget:        o.Budget,
		policy:        policy.New(o.Personality),
		memory:        o.Memory,
		generator:     o.Generator,
		maxTokens:     o.MaxTokens,
		renderTimeout: o.RenderTimeout,
	}
	if s.id == "" {
		s.id = ulid.Make().String()
	}
	if s.buyerName == "" {
		s.buyerName = "BuyerBot"
	}
	if s.memory == nil {
		s.memory = memory.New()
	}
	if s.maxTokens <= 0 {
		s.maxTokens = DefaultMaxTokens
	}
	if s.renderTimeout <= 0 {
		s.renderTimeout = DefaultRenderTimeout
	}
	return s, nil
}

func (s *Session) ID() string { return s.id }

func (s *Session) Memory() memory.Store { return s.memory }

// Negotiate plays one round: read the seller, decide, record, then phrase the
// decision. Rendering problems only affect Outcome.Message.
func (s *Session) Negotiate(ctx context.Context, sellerMessage string, round int) (Outcome, error) {
	// 1. Understand the seller
	sellerPrice := observation.ExtractPrice(sellerMessage)
	tone := observation.AnalyzeTone(sellerMessage)

	// 2. Decide
	decision, err := s.policy.Compute(models.NegotiationContext{
		Product:     s.product,
		Budget:      s.budget,
		MarketPrice: s.product.MarketPrice,
		SellerPrice: sellerPrice,
		SellerTone:  tone,
		Round:       round,
		LastOffer:   s.memory.LastOffer(),
	})
	if err != nil {
		return Outcome{}, fmt.Errorf("round %d: %w", round, err)
	}

	// The prompt shows history up to the previous round.
	prompt := s.buildPrompt(sellerMessage, decision)

	// 3. Record before rendering so the numeric outcome stands on its own
	rec := models.RoundRecord{
		Round:         round,
		SellerPrice:   sellerPrice,
		SellerMessage: sellerMessage,
		BuyerAction:   decision.Action,
	}
	if decision.Action != models.ActionReject {
		rec.BuyerOffer = models.Price(decision.Offer)
	}
	s.memory.Record(rec)

	logger.Debugf("[%s] round %d: seller=%s tone=%s -> %s %s", s.id, round, priceString(sellerPrice), tone, decision.Action, decision.Offer)

	// 4. Phrase it
	msg, fallback := s.render(ctx, prompt, decision)

	return Outcome{
		Round:       round,
		Action:      decision.Action,
		Offer:       decision.Offer,
		Message:     msg,
		SellerPrice: sellerPrice,
		SellerTone:  tone,
		Fallback:    fallback,
	}, nil
}

func (s *Session) render(ctx context.Context, prompt string, d models.Decision) (string, bool) {
	if s.generator == nil {
		return FallbackMessage(s.product, d), true
	}

	rctx, cancel := context.WithTimeout(ctx, s.renderTimeout)
	defer cancel()

	text, err := s.generator.Generate(rctx, prompt, s.maxTokens)
	if err != nil {
		logger.Warnf("[%s] message generation failed, using fallback: %v", s.id, err)
		return FallbackMessage(s.product, d), true
	}

	text = strings.TrimSpace(text)
	if text == "" {
		logger.Warnf("[%s] message generation returned nothing, using fallback", s.id)
		return FallbackMessage(s.product, d), true
	}
	return text, false
}

func priceString(p *decimal.Decimal) string {
	if p == nil {
		return "none"
	}
	return p.String()
}
