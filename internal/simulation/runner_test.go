package simulation

import (
	"context"
	"errors"
	"math/rand"
	"strings"
	"testing"

	"buyer_agent/internal/models"
	"buyer_agent/internal/storage"

	"github.com/shopspring/decimal"
)

type fakeSink struct {
	saved []models.RoundRecord
	ids   map[string]bool
}

func (f *fakeSink) Save(ctx context.Context, sessionID string, rec models.RoundRecord) error {
	if f.ids == nil {
		f.ids = make(map[string]bool)
	}
	f.ids[sessionID] = true
	f.saved = append(f.saved, rec)
	return nil
}

type fakeNotifier struct {
	messages []string
	err      error
}

func (f *fakeNotifier) Notify(ctx context.Context, text string) error {
	f.messages = append(f.messages, text)
	return f.err
}

type fakePrices struct {
	price decimal.Decimal
}

func (f fakePrices) GetPrice(symbol string) (decimal.Decimal, error) {
	return f.price, nil
}

var diplomatic = models.Personality{Archetype: "Diplomatic-Analytical", Traits: []string{"polite"}}

func easyMarket() models.Scenario {
	return storage.DefaultScenarios()[0]
}

func TestRun_EasyMarketConverges(t *testing.T) {
	sink := &fakeSink{}
	notifier := &fakeNotifier{}
	dir := t.TempDir()

	r := NewRunner(Options{
		Sink:     sink,
		Notifier: notifier,
		Rand:     rand.New(rand.NewSource(42)),
		Jitter:   500,
		StateDir: dir,
	})

	res, err := r.Run(context.Background(), easyMarket(), diplomatic)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	// 160000 -> seller ~184000 -> 172000 (echoed) -> accept.
	if !res.Accepted || res.Rounds != 3 {
		t.Fatalf("Expected acceptance in round 3, got accepted=%v rounds=%d", res.Accepted, res.Rounds)
	}
	if res.FinalOffer.LessThan(decimal.NewFromInt(165000)) || res.FinalOffer.GreaterThan(decimal.NewFromInt(176000)) {
		t.Errorf("Final price %s outside expected window", res.FinalOffer)
	}
	if first := res.History[0].Outcome; !first.Offer.Equal(decimal.NewFromInt(160000)) {
		t.Errorf("Expected opening offer 160000, got %s", first.Offer)
	}

	if len(sink.saved) != 3 || len(sink.ids) != 1 {
		t.Errorf("Expected 3 rounds for one session in sink, got %d rounds / %d sessions", len(sink.saved), len(sink.ids))
	}
	if sink.saved[2].BuyerAction != models.ActionAccept {
		t.Errorf("Last saved round should be ACCEPT, got %s", sink.saved[2].BuyerAction)
	}

	if len(notifier.messages) != 1 || !strings.Contains(notifier.messages[0], "DEAL 🟢") {
		t.Errorf("Unexpected notifications %v", notifier.messages)
	}

	state, found, err := storage.LoadSessionState(dir, res.SessionID)
	if err != nil || !found {
		t.Fatalf("Session state not saved: found=%v err=%v", found, err)
	}
	if state.Scenario != "Easy Market" || state.Memory.Rounds != 3 {
		t.Errorf("Unexpected saved state: scenario=%q rounds=%d", state.Scenario, state.Memory.Rounds)
	}
}

func TestRun_NeverOffersAboveBudget(t *testing.T) {
	personalities := storage.DefaultPersonalities()
	for _, name := range personalities.Names() {
		p, _ := personalities.Lookup(name)
		for _, sc := range storage.DefaultScenarios() {
			for seed := int64(1); seed <= 5; seed++ {
				r := NewRunner(Options{Rand: rand.New(rand.NewSource(seed)), Jitter: 500})
				res, err := r.Run(context.Background(), sc, p)
				if err != nil {
					t.Fatalf("%s/%s seed %d: %v", name, sc.Name, seed, err)
				}
				if res.Rounds < 1 || res.Rounds > DefaultMaxRounds {
					t.Errorf("%s/%s seed %d: rounds %d out of range", name, sc.Name, seed, res.Rounds)
				}
				for _, ex := range res.History {
					if ex.Outcome.Offer.GreaterThan(sc.Budget) {
						t.Errorf("%s/%s seed %d round %d: offer %s exceeds budget %s",
							name, sc.Name, seed, ex.Round, ex.Outcome.Offer, sc.Budget)
					}
				}
			}
		}
	}
}

func TestRun_StopsAtMaxRounds(t *testing.T) {
	premium := storage.DefaultScenarios()[2]
	r := NewRunner(Options{MaxRounds: 4})

	res, err := r.Run(context.Background(), premium, diplomatic)
	if err != nil {
		t.Fatal(err)
	}
	if res.Accepted || res.Rounds != 4 || len(res.History) != 4 {
		t.Errorf("Expected 4 rounds without a deal, got accepted=%v rounds=%d", res.Accepted, res.Rounds)
	}
	if !strings.Contains(FormatSummary(res), "NO DEAL") {
		t.Errorf("Unexpected summary %q", FormatSummary(res))
	}
}

func TestRun_UsesReferencePrice(t *testing.T) {
	sc := easyMarket()
	sc.Product.Symbol = "MANGO"

	r := NewRunner(Options{Prices: fakePrices{price: decimal.NewFromInt(150000)}})
	res, err := r.Run(context.Background(), sc, diplomatic)
	if err != nil {
		t.Fatal(err)
	}
	if got := res.History[0].Outcome.Offer; !got.Equal(decimal.NewFromInt(120000)) {
		t.Errorf("Expected opening at 80%% of the 150000 reference, got %s", got)
	}
}

func TestRun_NotifierFailureIsNotFatal(t *testing.T) {
	r := NewRunner(Options{Notifier: &fakeNotifier{err: errors.New("telegram down")}})
	if _, err := r.Run(context.Background(), easyMarket(), diplomatic); err != nil {
		t.Errorf("Notifier failure must not fail the run: %v", err)
	}
}

func TestRun_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	r := NewRunner(Options{})
	if _, err := r.Run(ctx, easyMarket(), diplomatic); !errors.Is(err, context.Canceled) {
		t.Errorf("Expected context.Canceled, got %v", err)
	}
}

func TestRunAll_SkipsInvalidScenario(t *testing.T) {
	scenarios := storage.DefaultScenarios()
	scenarios = append([]models.Scenario{{Name: "Broken", Budget: decimal.Zero}}, scenarios...)

	results, err := NewRunner(Options{}).RunAll(context.Background(), scenarios, diplomatic)
	if err == nil {
		t.Error("Expected the invalid scenario's error to be reported")
	}
	if len(results) != 3 {
		t.Fatalf("Expected 3 results, got %d", len(results))
	}
	if results[0].Scenario != "Easy Market" {
		t.Errorf("Expected results in input order, got %s first", results[0].Scenario)
	}
}

func TestRun_ResumesSavedSession(t *testing.T) {
	dir := t.TempDir()

	first, err := NewRunner(Options{MaxRounds: 1, StateDir: dir}).Run(context.Background(), easyMarket(), diplomatic)
	if err != nil {
		t.Fatal(err)
	}
	if first.Accepted || first.Rounds != 1 {
		t.Fatalf("Expected one open round, got accepted=%v rounds=%d", first.Accepted, first.Rounds)
	}

	sink := &fakeSink{}
	r := NewRunner(Options{StateDir: dir, ResumeID: first.SessionID, Sink: sink})

	// Another scenario is not touched by the resume.
	tight, err := r.Run(context.Background(), storage.DefaultScenarios()[1], diplomatic)
	if err != nil {
		t.Fatal(err)
	}
	if tight.SessionID == first.SessionID || tight.History[0].Round != 1 {
		t.Errorf("Unrelated scenario should start fresh, got session %s round %d", tight.SessionID, tight.History[0].Round)
	}

	res, err := r.Run(context.Background(), easyMarket(), diplomatic)
	if err != nil {
		t.Fatal(err)
	}
	if res.SessionID != first.SessionID {
		t.Errorf("Expected session %s to continue, got %s", first.SessionID, res.SessionID)
	}
	if res.History[0].Round != 2 {
		t.Errorf("Expected to continue at round 2, got %d", res.History[0].Round)
	}
	// 160000 restored -> seller ~184000 -> 172000 -> accept in round 3.
	if !res.Accepted || res.Rounds != 3 {
		t.Errorf("Expected acceptance in round 3, got accepted=%v rounds=%d", res.Accepted, res.Rounds)
	}

	state, _, err := storage.LoadSessionState(dir, first.SessionID)
	if err != nil {
		t.Fatal(err)
	}
	if state.Memory.Rounds != 3 {
		t.Errorf("Expected 3 rounds in saved state, got %d", state.Memory.Rounds)
	}

	// Once closed, resuming again plays nothing.
	again, err := r.Run(context.Background(), easyMarket(), diplomatic)
	if err != nil {
		t.Fatal(err)
	}
	if !again.Accepted || len(again.History) != 0 || !again.FinalOffer.Equal(res.FinalOffer) {
		t.Errorf("Expected closed session to be reported as is, got %+v", again)
	}
}
