package combat

// StatusKind names a status effect a card can apply.
type StatusKind string

const (
	StatusShield StatusKind = "shield"
	StatusPoison StatusKind = "poison"
	StatusWeak   StatusKind = "weak"
)

// StatusSink receives status applications from the effect resolver. The
// resolver only notifies; how statuses resolve over time is the sink's
// business.
type StatusSink interface {
	ApplyStatus(targetID string, kind StatusKind, amount, duration int)
}

// StatusEffect is one active status on a combatant. Remaining counts rounds;
// zero or less means the status persists until consumed or the fight ends.
type StatusEffect struct {
	Kind      StatusKind
	Amount    int
	Remaining int
}

// StatusLedger tracks active statuses per combatant. Shields absorb damage
// before health, poison deals its amount at round end, and duration-limited
// statuses decay one round at a time.
//
// The ledger belongs to a single fight and is guarded by the fight's lock.
type StatusLedger struct {
	statuses map[string][]*StatusEffect
}

// NewStatusLedger creates an empty ledger.
func NewStatusLedger() *StatusLedger {
	return &StatusLedger{statuses: make(map[string][]*StatusEffect)}
}

// ApplyStatus registers or stacks a status on the target. Applying a kind
// the target already has adds the amount and keeps the longer duration.
func (l *StatusLedger) ApplyStatus(targetID string, kind StatusKind, amount, duration int) {
	if amount <= 0 {
		return
	}
	for _, effect := range l.statuses[targetID] {
		if effect.Kind == kind {
			effect.Amount += amount
			if duration > effect.Remaining {
				effect.Remaining = duration
			}
			return
		}
	}
	l.statuses[targetID] = append(l.statuses[targetID], &StatusEffect{
		Kind:      kind,
		Amount:    amount,
		Remaining: duration,
	})
}

// AbsorbDamage consumes shield from the target and returns the damage left
// over after absorption.
func (l *StatusLedger) AbsorbDamage(targetID string, amount int) int {
	if amount <= 0 {
		return 0
	}
	effects := l.statuses[targetID]
	for i, effect := range effects {
		if effect.Kind != StatusShield {
			continue
		}
		if effect.Amount > amount {
			effect.Amount -= amount
			return 0
		}
		amount -= effect.Amount
		l.statuses[targetID] = append(effects[:i], effects[i+1:]...)
		return amount
	}
	return amount
}

// Active returns copies of the target's active statuses.
func (l *StatusLedger) Active(targetID string) []StatusEffect {
	effects := l.statuses[targetID]
	out := make([]StatusEffect, len(effects))
	for i, effect := range effects {
		out[i] = *effect
	}
	return out
}

// PoisonAmount returns the poison damage the target takes at round end.
func (l *StatusLedger) PoisonAmount(targetID string) int {
	for _, effect := range l.statuses[targetID] {
		if effect.Kind == StatusPoison {
			return effect.Amount
		}
	}
	return 0
}

// ExpireRound decays duration-limited statuses on the target by one round
// and drops the ones that ran out. Shields with no duration persist.
func (l *StatusLedger) ExpireRound(targetID string) {
	effects := l.statuses[targetID]
	kept := effects[:0]
	for _, effect := range effects {
		if effect.Remaining > 0 {
			effect.Remaining--
			if effect.Remaining == 0 {
				continue
			}
		}
		kept = append(kept, effect)
	}
	if len(kept) == 0 {
		delete(l.statuses, targetID)
		return
	}
	l.statuses[targetID] = kept
}

// Clear drops every status the target has. Called when a fight concludes.
func (l *StatusLedger) Clear(targetID string) {
	delete(l.statuses, targetID)
}
