package combat

import "math/rand"

// Side identifies which seat of a fight a combatant occupies.
type Side string

const (
	SideHuman Side = "HUMAN"
	SideAlly  Side = "ALLY"
)

// Combatant is one participant of a fight: the human-controlled character or
// the server-driven ally creature. It owns its three card zones; health and
// energy are clamped to [0, max]. The opponent is never stored here — it is
// resolved through the fight registry.
//
// Combatant is guarded by its fight's lock, not by its own.
type Combatant struct {
	ID   string
	Name string
	Side Side

	Health    int
	MaxHealth int
	Energy    int
	MaxEnergy int

	Zones *ZoneSet
}

// NewCombatant creates a combatant at full health with zero energy and empty
// zones. Energy is replenished by the round-start step.
func NewCombatant(id, name string, side Side, maxHealth, maxEnergy, maxHand int, rng *rand.Rand) *Combatant {
	return &Combatant{
		ID:        id,
		Name:      name,
		Side:      side,
		Health:    maxHealth,
		MaxHealth: maxHealth,
		MaxEnergy: maxEnergy,
		Zones:     NewZoneSet(maxHand, rng),
	}
}

// ApplyDamage subtracts amount from health, flooring at 0, and returns the
// damage actually dealt.
func (c *Combatant) ApplyDamage(amount int) int {
	if amount <= 0 {
		return 0
	}
	if amount > c.Health {
		amount = c.Health
	}
	c.Health -= amount
	return amount
}

// Heal adds amount to health, capping at max health, and returns the amount
// actually healed.
func (c *Combatant) Heal(amount int) int {
	if amount <= 0 {
		return 0
	}
	if c.Health+amount > c.MaxHealth {
		amount = c.MaxHealth - c.Health
	}
	c.Health += amount
	return amount
}

// SpendEnergy deducts amount from energy. It returns false, without any
// deduction, if the combatant cannot afford it; energy never goes negative.
func (c *Combatant) SpendEnergy(amount int) bool {
	if amount < 0 {
		return false
	}
	if c.Energy < amount {
		return false
	}
	c.Energy -= amount
	return true
}

// RestoreEnergy adds amount to energy, capping at max energy, and returns
// the amount actually restored.
func (c *Combatant) RestoreEnergy(amount int) int {
	if amount <= 0 {
		return 0
	}
	if c.Energy+amount > c.MaxEnergy {
		amount = c.MaxEnergy - c.Energy
	}
	c.Energy += amount
	return amount
}

// ReplenishEnergy resets energy to max. Called at round start.
func (c *Combatant) ReplenishEnergy() {
	c.Energy = c.MaxEnergy
}

// Defeated reports whether this combatant's health has reached zero.
func (c *Combatant) Defeated() bool {
	return c.Health <= 0
}
