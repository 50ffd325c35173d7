package session

import (
	"fmt"
	"strings"

	"buyer_agent/internal/models"
)

// buildPrompt assembles the persona, the recent history and the already-made
// decision. The model only phrases the decision; it never changes it.
func (s *Session) buildPrompt(sellerMessage string, d models.Decision) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "You are %s, a %s buyer.\n", s.buyerName, s.personality.Archetype)
	fmt.Fprintf(&sb, "Traits: %s.\n", strings.Join(s.personality.Traits, ", "))
	fmt.Fprintf(&sb, "You are negotiating for %s.\n", s.product.Name)
	fmt.Fprintf(&sb, "Budget: ₹%s.\n", s.budget.String())
	sb.WriteString("Never exceed your budget.\n")
	sb.WriteString("Maintain personality consistency.\n")
	sb.WriteString("Negotiation history:\n")
	sb.WriteString(s.memory.RecentSummary(3))
	fmt.Fprintf(&sb, "\nSeller: %s\n", sellerMessage)
	fmt.Fprintf(&sb, "Action: %s ₹%s\n", d.Action, d.Offer.String())
	sb.WriteString("Buyer message:")
	return sb.String()
}

// FallbackMessage is used whenever the text generator fails or times out.
func FallbackMessage(p models.Product, d models.Decision) string {
	switch d.Action {
	case models.ActionAccept:
		return fmt.Sprintf("Deal. I accept ₹%s for the %s.", d.Offer.String(), p.Name)
	case models.ActionReject:
		return fmt.Sprintf("I'm afraid I have to pass on the %s at that price.", p.Name)
	default:
		if p.Quantity > 0 {
			return fmt.Sprintf("I can offer ₹%s for %d units of %s.", d.Offer.String(), p.Quantity, p.Name)
		}
		return fmt.Sprintf("I can offer ₹%s for the %s.", d.Offer.String(), p.Name)
	}
}
