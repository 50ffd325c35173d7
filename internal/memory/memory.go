// Package memory keeps the per-session negotiation history.
package memory

import (
	"fmt"
	"strings"

	"buyer_agent/internal/models"

	"github.com/shopspring/decimal"
)

// StateVersion is the schema version written by Export.
const StateVersion = "1.1"

// NoHistory is returned by RecentSummary before anything was recorded.
const NoHistory = "No prior negotiation history."

// DefaultSummaryRounds is how many rounds RecentSummary shows by default.
const DefaultSummaryRounds = 3

// Store is the capability the session needs from its memory.
type Store interface {
	Record(rec models.RoundRecord)
	RecentSummary(n int) string
	LastOffer() *decimal.Decimal
	Export() State
	Import(s State)
}

// State is the plain, serializable form of a RoundMemory.
type State struct {
	Version   string               `json:"version"`
	History   []models.RoundRecord `json:"history"`
	Rounds    int                  `json:"rounds"`
	LastOffer *decimal.Decimal     `json:"last_offer"`
}

// RoundMemory is an append-only round log. It is owned by exactly one session
// and is not safe for concurrent use.
type RoundMemory struct {
	history   []models.RoundRecord
	rounds    int
	lastOffer *decimal.Decimal
}

var _ Store = (*RoundMemory)(nil)

func New() *RoundMemory {
	return &RoundMemory{history: []models.RoundRecord{}}
}

// Record appends rec. Round numbers are not checked; duplicates are the caller's business.
func (m *RoundMemory) Record(rec models.RoundRecord) {
	m.history = append(m.history, rec)
	m.rounds++
	if rec.BuyerOffer != nil {
		m.lastOffer = models.Price(*rec.BuyerOffer)
	}
}

// LastOffer is nil until a round with a buyer offer was recorded.
func (m *RoundMemory) LastOffer() *decimal.Decimal {
	if m.lastOffer == nil {
		return nil
	}
	return models.Price(*m.lastOffer)
}

// Rounds is the number of recorded rounds.
func (m *RoundMemory) Rounds() int {
	return m.rounds
}

// History returns a copy of every recorded round, oldest first.
func (m *RoundMemory) History() []models.RoundRecord {
	out := make([]models.RoundRecord, len(m.history))
	copy(out, m.history)
	return out
}

// RecentSummary renders the last n rounds for the prompt. It has no effect on decisions.
func (m *RoundMemory) RecentSummary(n int) string {
	if len(m.history) == 0 {
		return NoHistory
	}
	if n <= 0 {
		n = DefaultSummaryRounds
	}

	recent := m.history
	if len(recent) > n {
		recent = recent[len(recent)-n:]
	}

	lines := make([]string, 0, len(recent))
	for _, r := range recent {
		lines = append(lines, fmt.Sprintf("Round %d: Seller asked ₹%s | Buyer %s ₹%s",
			r.Round, formatPrice(r.SellerPrice), r.BuyerAction, formatPrice(r.BuyerOffer)))
	}
	return strings.Join(lines, "\n")
}

// Export snapshots the memory for suspend/resume.
func (m *RoundMemory) Export() State {
	var last *decimal.Decimal
	if m.lastOffer != nil {
		last = models.Price(*m.lastOffer)
	}
	return State{
		Version:   StateVersion,
		History:   m.History(),
		Rounds:    m.rounds,
		LastOffer: last,
	}
}

// Import replaces the memory with s. Missing counters are rebuilt from the history.
func (m *RoundMemory) Import(s State) {
	m.history = make([]models.RoundRecord, len(s.History))
	copy(m.history, s.History)

	m.rounds = s.Rounds
	if m.rounds == 0 {
		m.rounds = len(m.history)
	}

	m.lastOffer = nil
	if s.LastOffer != nil {
		m.lastOffer = models.Price(*s.LastOffer)
		return
	}
	for i := len(m.history) - 1; i >= 0; i-- {
		if offer := m.history[i].BuyerOffer; offer != nil {
			m.lastOffer = models.Price(*offer)
			break
		}
	}
}

func formatPrice(p *decimal.Decimal) string {
	if p == nil {
		return "?"
	}
	return p.String()
}
