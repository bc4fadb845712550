package combat

import (
	"math/rand"
	"testing"

	"go.uber.org/zap/zaptest"

	"github.com/cardclash/combat-server-go/internal/catalog"
)

func newTestCombatantWithID(id string, side Side) *Combatant {
	return NewCombatant(id, id, side, 30, 3, 10, rand.New(rand.NewSource(1)))
}

// testCardSet is the catalog used by resolver, executor and director tests.
func testCardSet(t *testing.T) *catalog.Catalog {
	t.Helper()
	cat, err := catalog.New([]catalog.CardDef{
		{ID: "jab", Name: "Jab", Cost: 1, Effect: catalog.EffectDamage, Magnitude: 3},
		{ID: "slash", Name: "Slash", Cost: 2, Effect: catalog.EffectDamage, Magnitude: 5},
		{ID: "salve", Name: "Salve", Cost: 1, Effect: catalog.EffectHeal, Magnitude: 4},
		{ID: "insight", Name: "Insight", Cost: 1, Effect: catalog.EffectDrawCard, Magnitude: 2},
		{ID: "scry", Name: "Scry", Cost: 0, Effect: catalog.EffectDrawCard, Magnitude: 1},
		{ID: "surge", Name: "Surge", Cost: 0, Effect: catalog.EffectRestoreEnergy, Magnitude: 1},
		{ID: "aegis", Name: "Aegis", Cost: 1, Effect: catalog.EffectApplyShield, Magnitude: 5},
		{ID: "venom", Name: "Venom", Cost: 2, Effect: catalog.EffectApplyStatus, Magnitude: 2, StatusKind: "poison", Duration: 3},
		{ID: "hex", Name: "Hex", Cost: 1, Effect: catalog.EffectApplyStatus, Magnitude: 2, StatusKind: "weak", Duration: 2},
		{ID: "mystery", Name: "Mystery", Cost: 0, Effect: "TELEPORT", Magnitude: 1},
	})
	if err != nil {
		t.Fatalf("building test card set: %v", err)
	}
	return cat
}

// directorHarness wires a director with a recording event listener and a
// fixed shuffle seed so fights replay identically.
type directorHarness struct {
	t        *testing.T
	catalog  *catalog.Catalog
	registry *Registry
	bus      *EventBus
	director *Director
	events   []Event

	fightID string
	humanID string
	allyID  string
}

func newDirectorHarness(t *testing.T, cfg Config) *directorHarness {
	t.Helper()
	if cfg.Seed == 0 {
		cfg.Seed = 42
	}
	h := &directorHarness{
		t:        t,
		catalog:  testCardSet(t),
		registry: NewRegistry(),
		bus:      NewEventBus(),
	}
	h.director = NewDirector(h.catalog, h.registry, h.bus, cfg, zaptest.NewLogger(t))
	h.bus.Subscribe(func(event Event) {
		h.events = append(h.events, event)
	})
	return h
}

// startFight creates, seeds and begins a fight with the given decks.
func (h *directorHarness) startFight(humanDeck, allyDeck []string) {
	h.t.Helper()
	h.humanID = "human-1"
	h.allyID = "ally-1"

	fightID, err := h.director.CreateFight(h.humanID, "Hero", h.allyID, "Bristleback")
	if err != nil {
		h.t.Fatalf("creating fight: %v", err)
	}
	h.fightID = fightID

	if err := h.director.SetupDeck(h.humanID, humanDeck); err != nil {
		h.t.Fatalf("seeding human deck: %v", err)
	}
	if err := h.director.SetupDeck(h.allyID, allyDeck); err != nil {
		h.t.Fatalf("seeding ally deck: %v", err)
	}
	if err := h.director.Begin(fightID); err != nil {
		h.t.Fatalf("beginning fight: %v", err)
	}
}

// fight exposes the internal state for direct inspection and setup.
func (h *directorHarness) fight() *fightState {
	h.t.Helper()
	fight, ok := h.director.fight(h.fightID)
	if !ok {
		h.t.Fatalf("fight %s not found", h.fightID)
	}
	return fight
}

func (h *directorHarness) countEvents(eventType EventType) int {
	n := 0
	for _, event := range h.events {
		if event.Type == eventType {
			n++
		}
	}
	return n
}

func (h *directorHarness) lastEvent(eventType EventType) (Event, bool) {
	for i := len(h.events) - 1; i >= 0; i-- {
		if h.events[i].Type == eventType {
			return h.events[i], true
		}
	}
	return Event{}, false
}

// repeat builds a deck of n copies of the same card id.
func repeat(cardID string, n int) []string {
	deck := make([]string, n)
	for i := range deck {
		deck[i] = cardID
	}
	return deck
}
