package combat

import (
	"fmt"
	"sync"
)

// Registry owns the human <-> ally pairing for every active fight. It is the
// single place any component asks "who is my opponent". Pairings are
// established once at fight start and never reassigned mid-fight.
type Registry struct {
	mu        sync.RWMutex
	opponents map[string]*Combatant // combatant id -> opposing combatant
	fights    map[string]string     // combatant id -> fight id
}

// NewRegistry creates an empty fight registry.
func NewRegistry() *Registry {
	return &Registry{
		opponents: make(map[string]*Combatant),
		fights:    make(map[string]string),
	}
}

// AssignFight records a new pairing. It fails if either combatant is already
// paired in an active fight.
func (r *Registry) AssignFight(fightID string, human, ally *Combatant) error {
	if human == nil || ally == nil {
		return fmt.Errorf("both combatants are required")
	}
	if human.ID == ally.ID {
		return fmt.Errorf("combatant %s cannot fight itself", human.ID)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if existing, ok := r.fights[human.ID]; ok {
		return fmt.Errorf("combatant %s already paired in fight %s", human.ID, existing)
	}
	if existing, ok := r.fights[ally.ID]; ok {
		return fmt.Errorf("combatant %s already paired in fight %s", ally.ID, existing)
	}

	r.opponents[human.ID] = ally
	r.opponents[ally.ID] = human
	r.fights[human.ID] = fightID
	r.fights[ally.ID] = fightID
	return nil
}

// Opponent returns the opposing combatant for the given combatant id, or
// false if the combatant is not in a registered fight.
func (r *Registry) Opponent(combatantID string) (*Combatant, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	opponent, ok := r.opponents[combatantID]
	return opponent, ok
}

// FightID returns the fight a combatant belongs to.
func (r *Registry) FightID(combatantID string) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	fightID, ok := r.fights[combatantID]
	return fightID, ok
}

// Release removes the pairing both combatants of a fight belong to. Called
// after a concluded fight's post-fight reporting is done.
func (r *Registry) Release(combatantID string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	opponent, ok := r.opponents[combatantID]
	if !ok {
		return
	}
	delete(r.opponents, combatantID)
	delete(r.fights, combatantID)
	delete(r.opponents, opponent.ID)
	delete(r.fights, opponent.ID)
}

// ActivePairs returns the number of registered fights.
func (r *Registry) ActivePairs() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.fights) / 2
}
