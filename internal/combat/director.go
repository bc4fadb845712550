package combat

import (
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/cardclash/combat-server-go/internal/catalog"
)

// Phase is the state of one fight's turn machine.
type Phase int

const (
	PhaseSetup Phase = iota // fight created, decks not yet sealed
	PhaseRoundStart
	PhaseHumanTurn
	PhaseAllyTurn
	PhaseRoundEnd
	PhaseConcluded
)

var phaseNames = map[Phase]string{
	PhaseSetup:      "SETUP",
	PhaseRoundStart: "ROUND_START",
	PhaseHumanTurn:  "AWAITING_HUMAN_TURN",
	PhaseAllyTurn:   "AWAITING_ALLY_TURN",
	PhaseRoundEnd:   "ROUND_END",
	PhaseConcluded:  "FIGHT_CONCLUDED",
}

func (p Phase) String() string {
	if name, ok := phaseNames[p]; ok {
		return name
	}
	return fmt.Sprintf("PHASE_%d", int(p))
}

// PacingHook is an optional callback invoked between phase transitions so a
// presentation layer can pace animations. It runs on the fight's command
// goroutine; the authoritative state never waits on it for correctness.
type PacingHook func(fightID string, from, to Phase)

// Config carries the combat tuning knobs.
type Config struct {
	MaxHandSize  int
	DrawPerRound int
	MaxHealth    int
	MaxEnergy    int
	Seed         int64 // 0 seeds from the clock; fixed values give reproducible shuffles
}

// fightState is everything one fight owns. All fields are guarded by mu;
// no two commands touching the same fight ever interleave, and different
// fights share no mutable state.
type fightState struct {
	mu       sync.Mutex
	id       string
	human    *Combatant
	ally     *Combatant
	round    int
	phase    Phase
	winner   Side
	failed   bool // integrity failure flag
	ledger   *StatusLedger
	executor *PlayExecutor
}

// Director orchestrates round and turn sequencing across all active fights.
// It is the only component that advances turn state; zones, combatants and
// the resolver are pure mutators it invokes.
type Director struct {
	logger   *zap.Logger
	catalog  *catalog.Catalog
	registry *Registry
	bus      *EventBus
	cfg      Config
	pacing   PacingHook

	mu          sync.RWMutex
	fights      map[string]*fightState
	byCombatant map[string]*fightState
}

// NewDirector creates a director. Multiple directors may run in one process
// (one per game session); nothing here is ambient or global.
func NewDirector(cat *catalog.Catalog, registry *Registry, bus *EventBus, cfg Config, logger *zap.Logger) *Director {
	if cfg.MaxHandSize <= 0 {
		cfg.MaxHandSize = DefaultMaxHandSize
	}
	if cfg.DrawPerRound <= 0 {
		cfg.DrawPerRound = 5
	}
	if cfg.MaxHealth <= 0 {
		cfg.MaxHealth = 30
	}
	if cfg.MaxEnergy <= 0 {
		cfg.MaxEnergy = 3
	}
	return &Director{
		logger:      logger,
		catalog:     cat,
		registry:    registry,
		bus:         bus,
		cfg:         cfg,
		fights:      make(map[string]*fightState),
		byCombatant: make(map[string]*fightState),
	}
}

// SetPacingHook installs the presentation pacing callback.
func (d *Director) SetPacingHook(hook PacingHook) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.pacing = hook
}

// CreateFight pairs a human and an ally creature into a new fight and
// returns the fight id. The fight stays in setup until Begin.
func (d *Director) CreateFight(humanID, humanName, allyID, allyName string) (string, error) {
	fightID := uuid.New().String()

	seed := d.cfg.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	rng := rand.New(rand.NewSource(seed))

	human := NewCombatant(humanID, humanName, SideHuman, d.cfg.MaxHealth, d.cfg.MaxEnergy, d.cfg.MaxHandSize, rng)
	ally := NewCombatant(allyID, allyName, SideAlly, d.cfg.MaxHealth, d.cfg.MaxEnergy, d.cfg.MaxHandSize, rng)

	if err := d.registry.AssignFight(fightID, human, ally); err != nil {
		return "", fmt.Errorf("pairing fight: %w", err)
	}

	ledger := NewStatusLedger()
	resolver := NewEffectResolver(ledger, d.bus, d.logger)

	fight := &fightState{
		id:       fightID,
		human:    human,
		ally:     ally,
		round:    0,
		phase:    PhaseSetup,
		ledger:   ledger,
		executor: NewPlayExecutor(d.catalog, d.registry, resolver, d.bus, d.logger),
	}

	d.mu.Lock()
	d.fights[fightID] = fight
	d.byCombatant[humanID] = fight
	d.byCombatant[allyID] = fight
	d.mu.Unlock()

	d.logger.Info("fight created",
		zap.String("fight_id", fightID),
		zap.String("human_id", humanID),
		zap.String("ally_id", allyID),
	)

	return fightID, nil
}

// SetupDeck seeds a combatant's deck from its persistent collection. Only
// accepted while the fight is still in setup, before round 1 starts. Every
// card id must resolve in the catalog.
func (d *Director) SetupDeck(combatantID string, cardIDs []string) error {
	fight, ok := d.fightFor(combatantID)
	if !ok {
		return d.rejected("", combatantID, reject(RejectUnknownCombatant, "combatant %s is not in a fight", combatantID))
	}

	fight.mu.Lock()
	defer fight.mu.Unlock()

	if fight.phase != PhaseSetup {
		return d.rejected(fight.id, combatantID, reject(RejectFightStarted, "fight %s already started", fight.id))
	}
	for _, id := range cardIDs {
		if _, ok := d.catalog.Get(id); !ok {
			return fmt.Errorf("deck for %s references unknown card %s", combatantID, id)
		}
	}

	combatant, err := fight.combatant(combatantID)
	if err != nil {
		return d.rejected(fight.id, combatantID, err)
	}
	combatant.Zones.SetDeck(cardIDs)
	return nil
}

// Begin seals setup and runs round 1's start step: initial shuffle, energy
// replenish and the opening draw for both sides.
func (d *Director) Begin(fightID string) error {
	fight, ok := d.fight(fightID)
	if !ok {
		return reject(RejectUnknownFight, "fight %s not found", fightID)
	}

	fight.mu.Lock()
	defer fight.mu.Unlock()

	if fight.phase != PhaseSetup {
		return reject(RejectFightStarted, "fight %s already started", fightID)
	}

	started := NewEvent(EventFightStarted, fightID)
	started.ActorID = fight.human.ID
	started.TargetID = fight.ally.ID
	d.bus.Publish(started)

	fight.human.Zones.Shuffle()
	fight.ally.Zones.Shuffle()
	d.startRound(fight)
	return nil
}

// PlayCard handles an inbound play request for the named actor. Requests
// from the wrong side, the wrong phase, or with stale card ids are rejected
// with zero mutation.
func (d *Director) PlayCard(actorID, cardID string) (*PlayResult, error) {
	fight, ok := d.fightFor(actorID)
	if !ok {
		return nil, d.rejected("", actorID, reject(RejectUnknownCombatant, "combatant %s is not in a fight", actorID))
	}

	fight.mu.Lock()
	defer fight.mu.Unlock()

	if fight.phase == PhaseConcluded {
		return nil, d.rejected(fight.id, actorID, reject(RejectFightConcluded, "fight %s is over", fight.id))
	}
	if fight.phase != PhaseHumanTurn || actorID != fight.human.ID {
		return nil, d.rejected(fight.id, actorID, reject(RejectNotYourTurn, "not %s's turn in phase %s", actorID, fight.phase))
	}

	result, err := fight.executor.Play(fight.id, fight.human, cardID)
	if err != nil {
		if integrity, ok := err.(*IntegrityError); ok {
			d.failFight(fight, integrity)
			return nil, integrity
		}
		return nil, d.rejected(fight.id, actorID, err)
	}

	d.checkConcluded(fight)
	return result, nil
}

// EndTurn is the human's explicit end-of-turn signal. It discards the
// human's hand, runs the ally's turn to completion, closes the round and
// opens the next one. There is no timeout: until this arrives, the fight
// simply waits in the human phase.
func (d *Director) EndTurn(actorID string) error {
	fight, ok := d.fightFor(actorID)
	if !ok {
		return d.rejected("", actorID, reject(RejectUnknownCombatant, "combatant %s is not in a fight", actorID))
	}

	fight.mu.Lock()
	defer fight.mu.Unlock()

	if fight.phase == PhaseConcluded {
		return d.rejected(fight.id, actorID, reject(RejectFightConcluded, "fight %s is over", fight.id))
	}
	if fight.phase != PhaseHumanTurn || actorID != fight.human.ID {
		return d.rejected(fight.id, actorID, reject(RejectNotYourTurn, "end-turn from %s in phase %s", actorID, fight.phase))
	}

	fight.human.Zones.DiscardAll()
	d.emitZoneChanged(fight.id, fight.human.ID, ZoneHand)
	d.emitZoneChanged(fight.id, fight.human.ID, ZoneDiscard)

	d.transition(fight, PhaseAllyTurn)
	if fight.phase == PhaseConcluded {
		return nil
	}

	d.runAllyTurn(fight)
	if fight.phase == PhaseConcluded {
		return nil
	}

	d.endRound(fight)
	return nil
}

// Concede resolves the fight deterministically against the named combatant.
// Used for explicit concession and for disconnect abandonment; it is not an
// error path.
func (d *Director) Concede(combatantID string) error {
	fight, ok := d.fightFor(combatantID)
	if !ok {
		return d.rejected("", combatantID, reject(RejectUnknownCombatant, "combatant %s is not in a fight", combatantID))
	}

	fight.mu.Lock()
	defer fight.mu.Unlock()

	if fight.phase == PhaseConcluded {
		return d.rejected(fight.id, combatantID, reject(RejectFightConcluded, "fight %s is over", fight.id))
	}

	winner := SideHuman
	if combatantID == fight.human.ID {
		winner = SideAlly
	}
	d.logger.Info("fight conceded",
		zap.String("fight_id", fight.id),
		zap.String("combatant_id", combatantID),
	)
	d.conclude(fight, winner)
	return nil
}

// Abandon handles a player disconnect: a forced concession with no further
// mutation attempted.
func (d *Director) Abandon(combatantID string) error {
	return d.Concede(combatantID)
}

// RemoveFight drops a concluded fight from the director once post-fight
// reporting is done.
func (d *Director) RemoveFight(fightID string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	fight, ok := d.fights[fightID]
	if !ok {
		return
	}
	delete(d.fights, fightID)
	delete(d.byCombatant, fight.human.ID)
	delete(d.byCombatant, fight.ally.ID)
}

// ActiveFights returns the number of fights the director still tracks.
func (d *Director) ActiveFights() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.fights)
}

// startRound runs the round-start step: bump the round counter, replenish
// both sides' energy to max and deal the per-round draw. Round N's start
// completes before any round-N command is accepted because the fight lock
// is held throughout.
func (d *Director) startRound(fight *fightState) {
	fight.round++
	d.transition(fight, PhaseRoundStart)

	event := NewEvent(EventRoundStarted, fight.id)
	event.Amount = fight.round
	d.bus.Publish(event)

	for _, combatant := range []*Combatant{fight.human, fight.ally} {
		combatant.ReplenishEnergy()
		energy := NewEvent(EventEnergyChanged, fight.id)
		energy.TargetID = combatant.ID
		energy.Amount = combatant.Energy
		d.bus.Publish(energy)

		drawn, err := combatant.Zones.Draw(d.cfg.DrawPerRound)
		if err != nil {
			d.logger.Debug("round-start draw stopped at hand cap",
				zap.String("fight_id", fight.id),
				zap.String("combatant_id", combatant.ID),
				zap.Int("drawn", len(drawn)),
			)
		}
		if len(drawn) > 0 {
			drew := NewEvent(EventCardDrawn, fight.id)
			drew.TargetID = combatant.ID
			drew.Amount = len(drawn)
			d.bus.Publish(drew)
			d.emitZoneChanged(fight.id, combatant.ID, ZoneDeck)
			d.emitZoneChanged(fight.id, combatant.ID, ZoneHand)
		}
	}

	d.transition(fight, PhaseHumanTurn)
}

// runAllyTurn plays the ally side automatically: greedily play any
// affordable card until none remains, then discard the rest of the hand.
// Plays are bounded by the hand size at turn start: a free draw card can
// otherwise cycle through discard, reshuffle and back into the hand, and
// the loop would never exhaust.
func (d *Director) runAllyTurn(fight *fightState) {
	for plays := fight.ally.Zones.HandSize(); plays > 0; plays-- {
		cardID, ok := fight.executor.CanAfford(fight.ally)
		if !ok {
			break
		}
		if _, err := fight.executor.Play(fight.id, fight.ally, cardID); err != nil {
			if integrity, isIntegrity := err.(*IntegrityError); isIntegrity {
				d.failFight(fight, integrity)
				return
			}
			// A rejection here means the greedy pick raced nothing (the
			// lock is held), so treat it as exhausted and stop.
			d.logger.Warn("ally play rejected",
				zap.String("fight_id", fight.id),
				zap.Error(err),
			)
			break
		}
		if d.checkConcluded(fight) {
			return
		}
	}

	fight.ally.Zones.DiscardAll()
	d.emitZoneChanged(fight.id, fight.ally.ID, ZoneHand)
	d.emitZoneChanged(fight.id, fight.ally.ID, ZoneDiscard)
}

// endRound ticks round-end statuses, re-checks health and rolls into the
// next round.
func (d *Director) endRound(fight *fightState) {
	d.transition(fight, PhaseRoundEnd)
	if fight.phase == PhaseConcluded {
		return
	}

	for _, combatant := range []*Combatant{fight.human, fight.ally} {
		if poison := fight.ledger.PoisonAmount(combatant.ID); poison > 0 {
			dealt := combatant.ApplyDamage(poison)
			health := NewEvent(EventHealthChanged, fight.id)
			health.TargetID = combatant.ID
			health.Amount = -dealt
			health.Reason = string(StatusPoison)
			d.bus.Publish(health)
			if d.checkConcluded(fight) {
				return
			}
		}
		fight.ledger.ExpireRound(combatant.ID)
	}

	event := NewEvent(EventRoundChanged, fight.id)
	event.Amount = fight.round + 1
	d.bus.Publish(event)

	d.startRound(fight)
}

// transition moves the fight to a new phase, running the pacing hook and
// emitting the turn-change notification. A terminal fight never leaves
// PhaseConcluded.
func (d *Director) transition(fight *fightState, to Phase) {
	if fight.phase == PhaseConcluded {
		return
	}
	from := fight.phase
	fight.phase = to

	d.mu.RLock()
	hook := d.pacing
	d.mu.RUnlock()
	if hook != nil {
		hook(fight.id, from, to)
	}

	if to == PhaseHumanTurn || to == PhaseAllyTurn {
		event := NewEvent(EventTurnChanged, fight.id)
		if to == PhaseHumanTurn {
			event.TargetID = fight.human.ID
		} else {
			event.TargetID = fight.ally.ID
		}
		event.Amount = fight.round
		d.bus.Publish(event)
		d.checkConcluded(fight)
	}
}

// checkConcluded concludes the fight if either side's health reached zero.
// Returns true when the fight is (now) over.
func (d *Director) checkConcluded(fight *fightState) bool {
	if fight.phase == PhaseConcluded {
		return true
	}
	switch {
	case fight.ally.Defeated():
		d.conclude(fight, SideHuman)
	case fight.human.Defeated():
		d.conclude(fight, SideAlly)
	default:
		return false
	}
	return true
}

// conclude is the single exit into the terminal state. The registry entry
// is released immediately; the fight record stays queryable until
// RemoveFight.
func (d *Director) conclude(fight *fightState, winner Side) {
	fight.phase = PhaseConcluded
	fight.winner = winner
	fight.ledger.Clear(fight.human.ID)
	fight.ledger.Clear(fight.ally.ID)

	event := NewEvent(EventFightConcluded, fight.id)
	event.Winner = winner
	if fight.failed {
		event.Reason = "integrity_failure"
	}
	event.Amount = fight.round
	d.bus.Publish(event)

	d.registry.Release(fight.human.ID)

	d.logger.Info("fight concluded",
		zap.String("fight_id", fight.id),
		zap.String("winner", string(winner)),
		zap.Int("rounds", fight.round),
		zap.Bool("failed", fight.failed),
	)
}

// failFight handles a data integrity error: the fight is forced to the
// terminal state with the error flag set rather than left inconsistent.
// Other fights are unaffected.
func (d *Director) failFight(fight *fightState, integrity *IntegrityError) {
	d.logger.Error("fight data integrity failure",
		zap.String("fight_id", fight.id),
		zap.String("detail", integrity.Detail),
	)
	failure := NewEvent(EventIntegrityFailure, fight.id)
	failure.Reason = integrity.Detail
	d.bus.Publish(failure)

	fight.failed = true
	if fight.phase != PhaseConcluded {
		// Nobody won; report the ally side as standing so downstream
		// bookkeeping has a deterministic outcome.
		d.conclude(fight, SideAlly)
	}
}

// rejected logs and publishes a command rejection, then returns it.
func (d *Director) rejected(fightID, actorID string, err error) error {
	rejection, ok := err.(*Rejection)
	if !ok {
		return err
	}
	d.logger.Info("command rejected",
		zap.String("fight_id", fightID),
		zap.String("actor_id", actorID),
		zap.String("reason", string(rejection.Reason)),
		zap.String("detail", rejection.Detail),
	)
	event := NewEvent(EventCommandRejected, fightID)
	event.ActorID = actorID
	event.Reason = string(rejection.Reason)
	d.bus.Publish(event)
	return rejection
}

func (d *Director) emitZoneChanged(fightID, combatantID string, zone ZoneKind) {
	event := NewEvent(EventZoneChanged, fightID)
	event.TargetID = combatantID
	event.Zone = zone
	d.bus.Publish(event)
}

func (d *Director) fight(fightID string) (*fightState, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	fight, ok := d.fights[fightID]
	return fight, ok
}

func (d *Director) fightFor(combatantID string) (*fightState, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	fight, ok := d.byCombatant[combatantID]
	return fight, ok
}

func (f *fightState) combatant(id string) (*Combatant, error) {
	switch id {
	case f.human.ID:
		return f.human, nil
	case f.ally.ID:
		return f.ally, nil
	default:
		return nil, reject(RejectUnknownCombatant, "combatant %s not in fight %s", id, f.id)
	}
}
