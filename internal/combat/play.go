package combat

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/cardclash/combat-server-go/internal/catalog"
)

// RejectReason is a machine-readable code explaining why a command was
// refused. Rejections are recoverable: nothing was mutated and the caller
// may retry with a corrected command.
type RejectReason string

const (
	RejectNotYourTurn        RejectReason = "NOT_YOUR_TURN"
	RejectCardNotInHand      RejectReason = "CARD_NOT_IN_HAND"
	RejectInsufficientEnergy RejectReason = "INSUFFICIENT_ENERGY"
	RejectNoOpponent         RejectReason = "NO_OPPONENT"
	RejectFightConcluded     RejectReason = "FIGHT_CONCLUDED"
	RejectFightStarted       RejectReason = "FIGHT_ALREADY_STARTED"
	RejectUnknownCombatant   RejectReason = "UNKNOWN_COMBATANT"
	RejectUnknownFight       RejectReason = "UNKNOWN_FIGHT"
)

// Rejection is the structured refusal of a command. It satisfies error so
// it can travel the normal error path, but it is expected traffic, not a
// failure of the engine.
type Rejection struct {
	Reason RejectReason
	Detail string
}

func (r *Rejection) Error() string {
	if r.Detail == "" {
		return string(r.Reason)
	}
	return fmt.Sprintf("%s: %s", r.Reason, r.Detail)
}

// reject builds a Rejection with a formatted detail.
func reject(reason RejectReason, format string, args ...any) *Rejection {
	return &Rejection{Reason: reason, Detail: fmt.Sprintf(format, args...)}
}

// IntegrityError marks corrupted fight data (an unresolvable card id, an
// inconsistent zone). It is fatal for the affected fight only: the director
// forces the fight to a concluded state and other fights keep running.
type IntegrityError struct {
	Detail string
}

func (e *IntegrityError) Error() string {
	return "fight data integrity error: " + e.Detail
}

// PlayResult describes one successful card play for downstream observers.
type PlayResult struct {
	FightID    string
	ActorID    string
	CardID     string
	OpponentID string
	Def        catalog.CardDef
}

// PlayExecutor is the single path by which a card is played, for human input
// and ally decisions alike. Requests name only an actor and a card id; the
// executor independently re-derives and re-validates everything else, so it
// is safe to drive from untrusted clients.
//
// Play must be invoked with the fight's lock held; rejection at any
// validation step performs zero mutation.
type PlayExecutor struct {
	catalog  *catalog.Catalog
	registry *Registry
	resolver *EffectResolver
	bus      *EventBus
	logger   *zap.Logger
}

// NewPlayExecutor creates an executor for one fight's resolver.
func NewPlayExecutor(cat *catalog.Catalog, registry *Registry, resolver *EffectResolver, bus *EventBus, logger *zap.Logger) *PlayExecutor {
	return &PlayExecutor{
		catalog:  cat,
		registry: registry,
		resolver: resolver,
		bus:      bus,
		logger:   logger,
	}
}

// Play validates and executes one card play. It returns a *Rejection error
// for invalid requests (stale, forged, unaffordable) and an *IntegrityError
// when fight data is corrupt; any other outcome is a successful play.
func (x *PlayExecutor) Play(fightID string, actor *Combatant, cardID string) (*PlayResult, error) {
	// Stale, duplicate or forged requests name cards the actor no longer
	// holds. Checked first so nothing below runs for junk input.
	if !actor.Zones.InHand(cardID) {
		return nil, reject(RejectCardNotInHand, "card %s not in hand of %s", cardID, actor.ID)
	}

	def, ok := x.catalog.Get(cardID)
	if !ok {
		return nil, &IntegrityError{Detail: fmt.Sprintf("card %s in hand of %s has no catalog entry", cardID, actor.ID)}
	}

	if actor.Energy < def.Cost {
		return nil, reject(RejectInsufficientEnergy, "card %s costs %d, %s has %d energy", cardID, def.Cost, actor.ID, actor.Energy)
	}

	opponent, ok := x.registry.Opponent(actor.ID)
	if !ok {
		return nil, reject(RejectNoOpponent, "combatant %s has no active opponent", actor.ID)
	}

	// Validation is done; from here the play applies as one unit.
	if !actor.SpendEnergy(def.Cost) {
		return nil, &IntegrityError{Detail: fmt.Sprintf("energy for %s changed mid-play", actor.ID)}
	}

	x.resolver.Resolve(fightID, def, actor, opponent)

	if err := actor.Zones.MoveToDiscard(cardID); err != nil {
		return nil, &IntegrityError{Detail: fmt.Sprintf("card %s vanished from hand of %s mid-play", cardID, actor.ID)}
	}

	result := &PlayResult{
		FightID:    fightID,
		ActorID:    actor.ID,
		CardID:     cardID,
		OpponentID: opponent.ID,
		Def:        def,
	}

	x.logger.Info("card played",
		zap.String("fight_id", fightID),
		zap.String("actor_id", actor.ID),
		zap.String("card_id", cardID),
		zap.String("opponent_id", opponent.ID),
	)

	played := NewEvent(EventCardPlayed, fightID)
	played.ActorID = actor.ID
	played.CardID = cardID
	played.TargetID = opponent.ID
	played.Amount = def.Cost
	played.Description = def.Name
	x.bus.Publish(played)

	for _, zone := range []ZoneKind{ZoneHand, ZoneDiscard} {
		changed := NewEvent(EventZoneChanged, fightID)
		changed.TargetID = actor.ID
		changed.Zone = zone
		x.bus.Publish(changed)
	}

	return result, nil
}

// CanAfford reports whether the actor holds any card it has the energy to
// play. Used by the ally turn policy.
func (x *PlayExecutor) CanAfford(actor *Combatant) (string, bool) {
	for _, cardID := range actor.Zones.Hand() {
		def, ok := x.catalog.Get(cardID)
		if !ok {
			continue
		}
		if actor.Energy >= def.Cost {
			return cardID, true
		}
	}
	return "", false
}
