package combat

// CombatantView is a read-only snapshot of one combatant for broadcast.
// Presentation consumes views; the live structures never leave the fight.
type CombatantView struct {
	ID           string       `json:"id"`
	Name         string       `json:"name"`
	Side         Side         `json:"side"`
	Health       int          `json:"health"`
	MaxHealth    int          `json:"max_health"`
	Energy       int          `json:"energy"`
	MaxEnergy    int          `json:"max_energy"`
	Hand         []string     `json:"hand"`
	DeckCount    int          `json:"deck_count"`
	DiscardCount int          `json:"discard_count"`
	Statuses     []StatusView `json:"statuses,omitempty"`
}

// StatusView is a broadcast copy of one active status.
type StatusView struct {
	Kind      string `json:"kind"`
	Amount    int    `json:"amount"`
	Remaining int    `json:"remaining,omitempty"`
}

// FightView is a consistent snapshot of one fight.
type FightView struct {
	FightID string        `json:"fight_id"`
	Round   int           `json:"round"`
	Phase   string        `json:"phase"`
	Winner  Side          `json:"winner,omitempty"`
	Failed  bool          `json:"failed,omitempty"`
	Human   CombatantView `json:"human"`
	Ally    CombatantView `json:"ally"`
}

// Snapshot builds a broadcast view of a fight.
func (d *Director) Snapshot(fightID string) (FightView, error) {
	fight, ok := d.fight(fightID)
	if !ok {
		return FightView{}, reject(RejectUnknownFight, "fight %s not found", fightID)
	}

	fight.mu.Lock()
	defer fight.mu.Unlock()

	return FightView{
		FightID: fight.id,
		Round:   fight.round,
		Phase:   fight.phase.String(),
		Winner:  fight.winner,
		Failed:  fight.failed,
		Human:   d.combatantView(fight, fight.human),
		Ally:    d.combatantView(fight, fight.ally),
	}, nil
}

// SnapshotFor returns the snapshot of the fight a combatant belongs to.
func (d *Director) SnapshotFor(combatantID string) (FightView, error) {
	fight, ok := d.fightFor(combatantID)
	if !ok {
		return FightView{}, reject(RejectUnknownCombatant, "combatant %s is not in a fight", combatantID)
	}
	return d.Snapshot(fight.id)
}

func (d *Director) combatantView(fight *fightState, combatant *Combatant) CombatantView {
	statuses := fight.ledger.Active(combatant.ID)
	views := make([]StatusView, len(statuses))
	for i, status := range statuses {
		views[i] = StatusView{
			Kind:      string(status.Kind),
			Amount:    status.Amount,
			Remaining: status.Remaining,
		}
	}
	return CombatantView{
		ID:           combatant.ID,
		Name:         combatant.Name,
		Side:         combatant.Side,
		Health:       combatant.Health,
		MaxHealth:    combatant.MaxHealth,
		Energy:       combatant.Energy,
		MaxEnergy:    combatant.MaxEnergy,
		Hand:         combatant.Zones.Hand(),
		DeckCount:    combatant.Zones.DeckSize(),
		DiscardCount: combatant.Zones.DiscardSize(),
		Statuses:     views,
	}
}
