package combat

import (
	"errors"

	"go.uber.org/zap"

	"github.com/cardclash/combat-server-go/internal/catalog"
)

// EffectResolver applies one card's declared effect to the combatants of a
// fight. Damage and statuses land on the opponent; heals, draws, energy and
// shields land on the actor. Unknown effect types are logged and skipped so
// new card effects can ship ahead of engine support.
type EffectResolver struct {
	logger *zap.Logger
	ledger *StatusLedger
	bus    *EventBus
}

// NewEffectResolver creates a resolver wired to one fight's status ledger
// and the shared event bus.
func NewEffectResolver(ledger *StatusLedger, bus *EventBus, logger *zap.Logger) *EffectResolver {
	return &EffectResolver{
		logger: logger,
		ledger: ledger,
		bus:    bus,
	}
}

// Resolve applies the card's effect. The caller has already validated the
// play and spent the energy cost.
func (r *EffectResolver) Resolve(fightID string, def catalog.CardDef, actor, opponent *Combatant) {
	switch def.Effect {
	case catalog.EffectDamage:
		r.resolveDamage(fightID, def, actor, opponent)

	case catalog.EffectHeal:
		healed := actor.Heal(def.Magnitude)
		r.emitHealthChanged(fightID, actor, healed)

	case catalog.EffectDrawCard:
		r.resolveDraw(fightID, def, actor)

	case catalog.EffectRestoreEnergy:
		restored := actor.RestoreEnergy(def.Magnitude)
		r.emitEnergyChanged(fightID, actor, restored)

	case catalog.EffectApplyShield:
		r.ledger.ApplyStatus(actor.ID, StatusShield, def.Magnitude, def.Duration)
		r.emitStatusApplied(fightID, actor, string(StatusShield), def.Magnitude)

	case catalog.EffectApplyStatus:
		kind := StatusKind(def.StatusKind)
		if kind == "" {
			r.logger.Warn("status card without status kind",
				zap.String("fight_id", fightID),
				zap.String("card_id", def.ID),
			)
			return
		}
		r.ledger.ApplyStatus(opponent.ID, kind, def.Magnitude, def.Duration)
		r.emitStatusApplied(fightID, opponent, def.StatusKind, def.Magnitude)

	default:
		r.logger.Warn("unknown card effect, skipping",
			zap.String("fight_id", fightID),
			zap.String("card_id", def.ID),
			zap.String("effect", string(def.Effect)),
		)
	}
}

func (r *EffectResolver) resolveDamage(fightID string, def catalog.CardDef, actor, opponent *Combatant) {
	amount := def.Magnitude
	for _, effect := range r.ledger.Active(actor.ID) {
		if effect.Kind == StatusWeak {
			amount -= effect.Amount
		}
	}
	if amount <= 0 {
		return
	}
	remaining := r.ledger.AbsorbDamage(opponent.ID, amount)
	dealt := opponent.ApplyDamage(remaining)
	if absorbed := amount - remaining; absorbed > 0 {
		r.logger.Debug("shield absorbed damage",
			zap.String("fight_id", fightID),
			zap.String("target_id", opponent.ID),
			zap.Int("absorbed", absorbed),
		)
	}
	r.emitHealthChanged(fightID, opponent, -dealt)
}

func (r *EffectResolver) resolveDraw(fightID string, def catalog.CardDef, actor *Combatant) {
	drawn, err := actor.Zones.Draw(def.Magnitude)
	if errors.Is(err, ErrHandFull) {
		r.logger.Debug("draw effect stopped at hand cap",
			zap.String("fight_id", fightID),
			zap.String("actor_id", actor.ID),
			zap.Int("drawn", len(drawn)),
		)
	}
	if len(drawn) == 0 {
		return
	}
	event := NewEvent(EventCardDrawn, fightID)
	event.TargetID = actor.ID
	event.Amount = len(drawn)
	r.bus.Publish(event)
	r.emitZoneChanged(fightID, actor.ID, ZoneDeck)
	r.emitZoneChanged(fightID, actor.ID, ZoneHand)
}

func (r *EffectResolver) emitHealthChanged(fightID string, target *Combatant, delta int) {
	if delta == 0 {
		return
	}
	event := NewEvent(EventHealthChanged, fightID)
	event.TargetID = target.ID
	event.Amount = delta
	r.bus.Publish(event)
}

func (r *EffectResolver) emitEnergyChanged(fightID string, target *Combatant, delta int) {
	if delta == 0 {
		return
	}
	event := NewEvent(EventEnergyChanged, fightID)
	event.TargetID = target.ID
	event.Amount = delta
	r.bus.Publish(event)
}

func (r *EffectResolver) emitStatusApplied(fightID string, target *Combatant, kind string, amount int) {
	event := NewEvent(EventStatusApplied, fightID)
	event.TargetID = target.ID
	event.Reason = kind
	event.Amount = amount
	r.bus.Publish(event)
}

func (r *EffectResolver) emitZoneChanged(fightID, combatantID string, zone ZoneKind) {
	event := NewEvent(EventZoneChanged, fightID)
	event.TargetID = combatantID
	event.Zone = zone
	r.bus.Publish(event)
}
