// Package simulation plays buyer sessions against the scripted seller.
package simulation

import (
	"context"
	"fmt"
	"time"

	"buyer_agent/internal/ai"
	"buyer_agent/internal/logger"
	"buyer_agent/internal/market"
	"buyer_agent/internal/memory"
	"buyer_agent/internal/models"
	"buyer_agent/internal/seller"
	"buyer_agent/internal/session"
	"buyer_agent/internal/storage"

	"github.com/shopspring/decimal"
)

const DefaultMaxRounds = 10

// RoundSink receives every recorded round. *storage.RoundLogRepository satisfies it.
type RoundSink interface {
	Save(ctx context.Context, sessionID string, rec models.RoundRecord) error
}

// Notifier delivers a finished negotiation summary. *telegram.Notifier satisfies it.
type Notifier interface {
	Notify(ctx context.Context, text string) error
}

// Options wires the Runner. Every collaborator except Rand may be nil.
type Options struct {
	BuyerName     string
	Generator     ai.Generator
	Prices        market.PriceProvider
	Sink          RoundSink
	Notifier      Notifier
	Rand          seller.RandSource
	Jitter        int64
	MaxRounds     int
	MaxTokens     int
	RenderTimeout time.Duration
	StateDir      string // Session state is saved here after each scenario when set
	ResumeID      string // Session in StateDir to continue; applies to the scenario it was saved for
}

// Result summarizes one scenario.
type Result struct {
	Scenario   string
	SessionID  string
	Accepted   bool
	Rounds     int
	FinalOffer decimal.Decimal
	History    []Exchange
}

// Exchange is one round as seen from outside the session.
type Exchange struct {
	Round         int
	SellerMessage string
	Outcome       session.Outcome
}

type Runner struct {
	opts Options
}

func NewRunner(o Options) *Runner {
	if o.MaxRounds <= 0 {
		o.MaxRounds = DefaultMaxRounds
	}
	return &Runner{opts: o}
}

// Run negotiates sc with personality p until the buyer accepts or the round
// limit is reached.
func (r *Runner) Run(ctx context.Context, sc models.Scenario, p models.Personality) (Result, error) {
	product := sc.Product
	market.ApplyReferencePrice(r.opts.Prices, &product)

	mem, id, err := r.resume(sc)
	if err != nil {
		return Result{Scenario: sc.Name}, fmt.Errorf("scenario %s: %w", sc.Name, err)
	}

	sess, err := session.New(session.Options{
		ID:            id,
		Memory:        mem,
		BuyerName:     r.opts.BuyerName,
		Personality:   p,
		Product:       product,
		Budget:        sc.Budget,
		Generator:     r.opts.Generator,
		MaxTokens:     r.opts.MaxTokens,
		RenderTimeout: r.opts.RenderTimeout,
	})
	if err != nil {
		return Result{Scenario: sc.Name}, fmt.Errorf("scenario %s: %w", sc.Name, err)
	}

	s := seller.New(sc, r.opts.Rand, r.opts.Jitter)
	res := Result{Scenario: sc.Name, SessionID: sess.ID(), Rounds: mem.Rounds()}

	logger.Infof("=== %s [%s] ===", sc.Name, sess.ID())
	logger.Infof("Product: %s x%d | Budget: ₹%s | Seller floor: ₹%s", product.Name, product.Quantity, sc.Budget, s.MinPrice)

	// A resumed session picks up where it stopped; the seller reacts to the last offer again.
	if history := mem.History(); len(history) > 0 {
		last := history[len(history)-1]
		if last.BuyerAction == models.ActionAccept && last.BuyerOffer != nil {
			logger.Infof("%s: session %s already closed at ₹%s", sc.Name, sess.ID(), last.BuyerOffer)
			res.Accepted = true
			res.FinalOffer = *last.BuyerOffer
			return res, nil
		}
		if lastOffer := mem.LastOffer(); lastOffer != nil {
			res.FinalOffer = *lastOffer
			s.ReceiveBuyerOffer(*lastOffer)
		}
	}

	for round := mem.Rounds() + 1; round <= r.opts.MaxRounds; round++ {
		if err := ctx.Err(); err != nil {
			return res, err
		}

		// 1. Seller speaks
		msg := s.SendMessage()

		// 2. Buyer decides and replies
		out, err := sess.Negotiate(ctx, msg, round)
		if err != nil {
			return res, fmt.Errorf("scenario %s: %w", sc.Name, err)
		}
		logger.Infof("Round %d | %s | Buyer %s ₹%s | %q", round, msg, out.Action, out.Offer, out.Message)

		res.History = append(res.History, Exchange{Round: round, SellerMessage: msg, Outcome: out})
		res.Rounds = round
		res.FinalOffer = out.Offer

		// 3. Mirror the round to the external log
		r.saveRound(ctx, sess)

		if out.Action == models.ActionAccept {
			res.Accepted = true
			break
		}

		// 4. Seller reacts
		s.ReceiveBuyerOffer(out.Offer)
	}

	if res.Accepted {
		logger.Infof("✅ %s: deal at ₹%s after %d rounds", sc.Name, res.FinalOffer, res.Rounds)
	} else {
		logger.Infof("⚠️ %s: no deal after %d rounds (last offer ₹%s)", sc.Name, res.Rounds, res.FinalOffer)
	}

	r.persist(sc.Name, sess)
	r.notify(ctx, res)
	return res, nil
}

// RunAll plays every scenario in order. A failing scenario is logged and
// skipped; the first error is returned alongside the results gathered.
func (r *Runner) RunAll(ctx context.Context, scenarios []models.Scenario, p models.Personality) ([]Result, error) {
	var results []Result
	var firstErr error
	for _, sc := range scenarios {
		res, err := r.Run(ctx, sc, p)
		if err != nil {
			logger.Errorf("%v", err)
			if firstErr == nil {
				firstErr = err
			}
			if ctx.Err() != nil {
				break
			}
			continue
		}
		results = append(results, res)
	}
	return results, firstErr
}

// resume returns the memory and session ID to start sc with: the saved
// session when ResumeID names one for this scenario, otherwise a fresh memory.
func (r *Runner) resume(sc models.Scenario) (*memory.RoundMemory, string, error) {
	mem := memory.New()
	if r.opts.ResumeID == "" || r.opts.StateDir == "" {
		return mem, "", nil
	}

	st, found, err := storage.LoadSessionState(r.opts.StateDir, r.opts.ResumeID)
	if err != nil {
		return nil, "", fmt.Errorf("resume %s: %w", r.opts.ResumeID, err)
	}
	if !found || st.Scenario != sc.Name {
		return mem, "", nil
	}

	mem.Import(st.Memory)
	logger.Infof("Resuming session %s for %s after round %d", st.SessionID, sc.Name, mem.Rounds())
	return mem, st.SessionID, nil
}

func (r *Runner) saveRound(ctx context.Context, sess *session.Session) {
	if r.opts.Sink == nil {
		return
	}
	history := sess.Memory().Export().History
	if len(history) == 0 {
		return
	}
	if err := r.opts.Sink.Save(ctx, sess.ID(), history[len(history)-1]); err != nil {
		logger.Warnf("[%s] failed to save round: %v", sess.ID(), err)
	}
}

func (r *Runner) persist(scenario string, sess *session.Session) {
	if r.opts.StateDir == "" {
		return
	}
	err := storage.SaveSessionState(r.opts.StateDir, storage.SessionState{
		SessionID: sess.ID(),
		Scenario:  scenario,
		Memory:    sess.Memory().Export(),
	})
	if err != nil {
		logger.Errorf("[%s] failed to save session state: %v", sess.ID(), err)
	}
}

func (r *Runner) notify(ctx context.Context, res Result) {
	if r.opts.Notifier == nil {
		return
	}
	if err := r.opts.Notifier.Notify(ctx, FormatSummary(res)); err != nil {
		logger.Warnf("[%s] notification failed: %v", res.SessionID, err)
	}
}

// FormatSummary renders res as a short Markdown report.
func FormatSummary(res Result) string {
	status := "NO DEAL 🔴"
	if res.Accepted {
		status = "DEAL 🟢"
	}
	return fmt.Sprintf("🤝 *%s*\nStatus: %s\nRounds: %d\nFinal price: ₹%s",
		res.Scenario, status, res.Rounds, res.FinalOffer)
}
