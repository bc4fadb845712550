package catalog

import (
	"encoding/json"
	"fmt"
	"os"
)

// EffectType identifies the gameplay consequence a card declares.
type EffectType string

const (
	EffectDamage        EffectType = "DAMAGE"
	EffectHeal          EffectType = "HEAL"
	EffectDrawCard      EffectType = "DRAW_CARD"
	EffectRestoreEnergy EffectType = "RESTORE_ENERGY"
	EffectApplyShield   EffectType = "APPLY_SHIELD"
	EffectApplyStatus   EffectType = "APPLY_STATUS"
)

// CardDef is an immutable card definition. Definitions are owned by the
// catalog and never mutated at runtime.
type CardDef struct {
	ID         string     `json:"id"`
	Name       string     `json:"name"`
	Cost       int        `json:"cost"`
	Effect     EffectType `json:"effect"`
	Magnitude  int        `json:"magnitude"`
	StatusKind string     `json:"status_kind,omitempty"`
	Duration   int        `json:"duration,omitempty"`
}

// Catalog is a read-only card id -> definition lookup. It is safe to share
// across fights without locking because it is never written after Load.
type Catalog struct {
	cards map[string]CardDef
}

// New builds a catalog from the given definitions.
func New(defs []CardDef) (*Catalog, error) {
	cards := make(map[string]CardDef, len(defs))
	for _, def := range defs {
		if def.ID == "" {
			return nil, fmt.Errorf("card definition missing id (name %q)", def.Name)
		}
		if _, exists := cards[def.ID]; exists {
			return nil, fmt.Errorf("duplicate card id %s", def.ID)
		}
		if def.Cost < 0 {
			return nil, fmt.Errorf("card %s has negative cost %d", def.ID, def.Cost)
		}
		if def.Magnitude < 0 {
			return nil, fmt.Errorf("card %s has negative magnitude %d", def.ID, def.Magnitude)
		}
		cards[def.ID] = def
	}
	return &Catalog{cards: cards}, nil
}

// LoadFile reads a JSON array of card definitions from disk.
func LoadFile(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading card set %s: %w", path, err)
	}
	var defs []CardDef
	if err := json.Unmarshal(data, &defs); err != nil {
		return nil, fmt.Errorf("parsing card set %s: %w", path, err)
	}
	if len(defs) == 0 {
		return nil, fmt.Errorf("card set %s contains no cards", path)
	}
	return New(defs)
}

// Get returns the definition for a card id.
func (c *Catalog) Get(id string) (CardDef, bool) {
	def, ok := c.cards[id]
	return def, ok
}

// Size returns the number of known card definitions.
func (c *Catalog) Size() int {
	return len(c.cards)
}

// IDs returns every known card id. Order is unspecified.
func (c *Catalog) IDs() []string {
	ids := make([]string, 0, len(c.cards))
	for id := range c.cards {
		ids = append(ids, id)
	}
	return ids
}

// DefaultSet returns the built-in starter card set used when no card set
// file is configured.
func DefaultSet() []CardDef {
	return []CardDef{
		{ID: "strike", Name: "Strike", Cost: 1, Effect: EffectDamage, Magnitude: 4},
		{ID: "heavy_blow", Name: "Heavy Blow", Cost: 2, Effect: EffectDamage, Magnitude: 8},
		{ID: "crushing_slam", Name: "Crushing Slam", Cost: 3, Effect: EffectDamage, Magnitude: 13},
		{ID: "mend", Name: "Mend", Cost: 1, Effect: EffectHeal, Magnitude: 4},
		{ID: "regrowth", Name: "Regrowth", Cost: 2, Effect: EffectHeal, Magnitude: 9},
		{ID: "foresight", Name: "Foresight", Cost: 1, Effect: EffectDrawCard, Magnitude: 2},
		{ID: "second_wind", Name: "Second Wind", Cost: 0, Effect: EffectRestoreEnergy, Magnitude: 1},
		{ID: "barrier", Name: "Barrier", Cost: 1, Effect: EffectApplyShield, Magnitude: 5},
		{ID: "venom_fang", Name: "Venom Fang", Cost: 2, Effect: EffectApplyStatus, Magnitude: 2, StatusKind: "poison", Duration: 3},
		{ID: "hobble", Name: "Hobble", Cost: 1, Effect: EffectApplyStatus, Magnitude: 1, StatusKind: "weak", Duration: 2},
	}
}
