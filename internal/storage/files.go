package storage

import (
	"fmt"
	"os"

	"buyer_agent/internal/logger"
	"buyer_agent/internal/models"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"
)

// PersonalitySet is a name -> personality mapping that remembers file order.
type PersonalitySet struct {
	names  []string
	byName map[string]models.Personality
}

// Names lists the personalities in file order.
func (s *PersonalitySet) Names() []string {
	return append([]string(nil), s.names...)
}

// Lookup returns the personality called name. When it is absent the first
// entry in file order is returned and exact is false.
func (s *PersonalitySet) Lookup(name string) (p models.Personality, exact bool) {
	if p, ok := s.byName[name]; ok {
		return p, true
	}
	if len(s.names) == 0 {
		return models.Personality{Archetype: name}, false
	}
	return s.byName[s.names[0]], false
}

// DefaultPersonalities is used when no personality file exists.
func DefaultPersonalities() *PersonalitySet {
	set, _ := ParsePersonalities([]byte(`
Diplomatic-Analytical:
  archetype: Diplomatic-Analytical
  traits: [polite, analytical, patient]
Aggressive-Blunt:
  archetype: Aggressive-Blunt
  traits: [direct, impatient, price-focused]
Data-Driven:
  archetype: Data-Driven
  traits: [methodical, evidence-based, calm]
`))
	return set
}

// LoadPersonalities reads a YAML (or JSON) mapping of name -> {archetype, traits}.
func LoadPersonalities(path string) (*PersonalitySet, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		logger.Warnf("Personality file %s missing, using built-in personalities", path)
		return DefaultPersonalities(), nil
	}
	if err != nil {
		return nil, err
	}
	return ParsePersonalities(data)
}

func ParsePersonalities(data []byte) (*PersonalitySet, error) {
	var root yaml.Node
	if err := yaml.Unmarshal(data, &root); err != nil {
		return nil, fmt.Errorf("parse personalities: %w", err)
	}
	if len(root.Content) == 0 {
		return nil, fmt.Errorf("parse personalities: empty document")
	}

	doc := root.Content[0]
	if doc.Kind != yaml.MappingNode {
		return nil, fmt.Errorf("parse personalities: expected a mapping, line %d", doc.Line)
	}

	set := &PersonalitySet{byName: make(map[string]models.Personality)}
	for i := 0; i+1 < len(doc.Content); i += 2 {
		name := doc.Content[i].Value
		var p models.Personality
		if err := doc.Content[i+1].Decode(&p); err != nil {
			return nil, fmt.Errorf("parse personality %q: %w", name, err)
		}
		if p.Archetype == "" {
			p.Archetype = name
		}
		if _, dup := set.byName[name]; !dup {
			set.names = append(set.names, name)
		}
		set.byName[name] = p
	}
	return set, nil
}

// DefaultScenarios is used when no scenario file exists.
func DefaultScenarios() []models.Scenario {
	mk := func(name, product string, qty int, market, budget, floor int64) models.Scenario {
		return models.Scenario{
			Name: name,
			Product: models.Product{
				Name:            product,
				Quantity:        qty,
				BaseMarketPrice: decimal.NewFromInt(market),
			},
			Budget:    decimal.NewFromInt(budget),
			SellerMin: models.Price(decimal.NewFromInt(floor)),
		}
	}
	return []models.Scenario{
		mk("Easy Market", "Alphonso Mangoes", 100, 180000, 200000, 150000),
		mk("Tight Budget", "Kesar Mangoes", 150, 150000, 140000, 125000),
		mk("Premium Product", "Export Mangoes", 50, 200000, 190000, 175000),
	}
}

// LoadScenarios reads scenarios from path. The file may hold a list, an
// object with a "scenarios" list, or a name -> scenario mapping.
func LoadScenarios(path string) ([]models.Scenario, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		logger.Warnf("Scenario file %s missing, using built-in scenarios", path)
		return DefaultScenarios(), nil
	}
	if err != nil {
		return nil, err
	}
	return ParseScenarios(data)
}

func ParseScenarios(data []byte) ([]models.Scenario, error) {
	var root yaml.Node
	if err := yaml.Unmarshal(data, &root); err != nil {
		return nil, fmt.Errorf("parse scenarios: %w", err)
	}
	if len(root.Content) == 0 {
		return nil, fmt.Errorf("parse scenarios: empty document")
	}

	var scenarios []models.Scenario
	doc := root.Content[0]
	switch doc.Kind {
	case yaml.SequenceNode:
		if err := doc.Decode(&scenarios); err != nil {
			return nil, fmt.Errorf("parse scenarios: %w", err)
		}
	case yaml.MappingNode:
		if list := mappingValue(doc, "scenarios"); list != nil {
			if err := list.Decode(&scenarios); err != nil {
				return nil, fmt.Errorf("parse scenarios: %w", err)
			}
			break
		}
		for i := 0; i+1 < len(doc.Content); i += 2 {
			var sc models.Scenario
			if err := doc.Content[i+1].Decode(&sc); err != nil {
				return nil, fmt.Errorf("parse scenario %q: %w", doc.Content[i].Value, err)
			}
			if sc.Name == "" {
				sc.Name = doc.Content[i].Value
			}
			scenarios = append(scenarios, sc)
		}
	default:
		return nil, fmt.Errorf("parse scenarios: unexpected document at line %d", doc.Line)
	}

	for i, sc := range scenarios {
		if !sc.Budget.IsPositive() {
			return nil, fmt.Errorf("scenario %d (%s): budget must be positive", i, sc.Name)
		}
	}
	return scenarios, nil
}

func mappingValue(n *yaml.Node, key string) *yaml.Node {
	for i := 0; i+1 < len(n.Content); i += 2 {
		if n.Content[i].Value == key {
			return n.Content[i+1]
		}
	}
	return nil
}
