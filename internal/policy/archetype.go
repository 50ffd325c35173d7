package policy

import (
	"strings"

	"github.com/shopspring/decimal"
)

// Archetype is the closed set of buyer personalities the policy knows about.
type Archetype int

const (
	// ArchetypeDefault covers every archetype name not in the table below.
	ArchetypeDefault Archetype = iota
	ArchetypeAggressive
	ArchetypeDiplomatic
	ArchetypeDataDriven
)

// archetypeKeys maps the leading segment of an archetype name ("Diplomatic" in
// "Diplomatic-Analytical") to its enumeration value.
var archetypeKeys = map[string]Archetype{
	"aggressive": ArchetypeAggressive,
	"diplomatic": ArchetypeDiplomatic,
	"data":       ArchetypeDataDriven,
}

// openingRatios is the fraction of the market price offered in round one.
var openingRatios = map[Archetype]decimal.Decimal{
	ArchetypeDefault:    decimal.RequireFromString("0.78"),
	ArchetypeAggressive: decimal.RequireFromString("0.65"),
	ArchetypeDiplomatic: decimal.RequireFromString("0.80"),
	ArchetypeDataDriven: decimal.RequireFromString("0.75"),
}

// ParseArchetype maps a configured archetype name onto the enumeration.
// Only the first segment (split on '-', '_' or space) is compared, case-insensitively.
// Anything unrecognized is ArchetypeDefault, never an error.
func ParseArchetype(name string) Archetype {
	lead := strings.ToLower(strings.TrimSpace(name))
	if i := strings.IndexAny(lead, "-_ "); i >= 0 {
		lead = lead[:i]
	}
	if a, ok := archetypeKeys[lead]; ok {
		return a
	}
	return ArchetypeDefault
}

// OpeningRatio returns the round-one ratio for a.
func OpeningRatio(a Archetype) decimal.Decimal {
	if r, ok := openingRatios[a]; ok {
		return r
	}
	return openingRatios[ArchetypeDefault]
}

func (a Archetype) String() string {
	switch a {
	case ArchetypeAggressive:
		return "aggressive"
	case ArchetypeDiplomatic:
		return "diplomatic"
	case ArchetypeDataDriven:
		return "data-driven"
	default:
		return "default"
	}
}
