package combat

import (
	"errors"
	"math/rand"
)

// ZoneKind names one of the three card zones a combatant owns.
type ZoneKind string

const (
	ZoneDeck    ZoneKind = "DECK"
	ZoneHand    ZoneKind = "HAND"
	ZoneDiscard ZoneKind = "DISCARD"
)

// DefaultMaxHandSize is the hand cap applied when none is configured.
const DefaultMaxHandSize = 10

var (
	// ErrHandFull is reported when a card cannot enter the hand because the
	// hand is at its configured maximum.
	ErrHandFull = errors.New("hand is full")

	// ErrCardNotInHand is reported when a discard targets a card id that is
	// not currently in the hand.
	ErrCardNotInHand = errors.New("card not in hand")
)

// ZoneSet holds the three zones of one combatant. Every card id in play for
// a combatant is in exactly one of deck, hand or discard; operations only
// move ids between the three, never create or drop them.
//
// ZoneSet is not safe for concurrent use; the owning fight serializes access.
type ZoneSet struct {
	deck    []string
	hand    []string
	discard []string
	maxHand int
	rng     *rand.Rand
}

// NewZoneSet creates an empty zone set. A maxHand of 0 or less selects
// DefaultMaxHandSize. rng drives shuffles and may be shared by both zone
// sets of one fight; it must not be shared across fights.
func NewZoneSet(maxHand int, rng *rand.Rand) *ZoneSet {
	if maxHand <= 0 {
		maxHand = DefaultMaxHandSize
	}
	return &ZoneSet{maxHand: maxHand, rng: rng}
}

// SetDeck replaces the deck contents. Intended for pre-fight seeding only.
func (z *ZoneSet) SetDeck(cardIDs []string) {
	z.deck = append(z.deck[:0:0], cardIDs...)
}

// Deck returns a copy of the deck in order.
func (z *ZoneSet) Deck() []string {
	return append([]string(nil), z.deck...)
}

// Hand returns a copy of the hand in order.
func (z *ZoneSet) Hand() []string {
	return append([]string(nil), z.hand...)
}

// Discard returns a copy of the discard pile in order.
func (z *ZoneSet) Discard() []string {
	return append([]string(nil), z.discard...)
}

// DeckSize returns the number of cards in the deck.
func (z *ZoneSet) DeckSize() int { return len(z.deck) }

// HandSize returns the number of cards in the hand.
func (z *ZoneSet) HandSize() int { return len(z.hand) }

// DiscardSize returns the number of cards in the discard pile.
func (z *ZoneSet) DiscardSize() int { return len(z.discard) }

// MaxHandSize returns the configured hand cap.
func (z *ZoneSet) MaxHandSize() int { return z.maxHand }

// InHand reports whether the given card id is currently in the hand.
func (z *ZoneSet) InHand(cardID string) bool {
	for _, id := range z.hand {
		if id == cardID {
			return true
		}
	}
	return false
}

// Draw moves up to n cards from the front of the deck into the hand. When
// the deck runs out mid-draw the discard pile is reshuffled into the deck
// first; if both are empty the draw stops short, which is not an error.
// Draw returns the ids actually drawn, and ErrHandFull if it stopped because
// the hand reached its cap (cards drawn before the cap remain drawn).
func (z *ZoneSet) Draw(n int) ([]string, error) {
	drawn := make([]string, 0, n)
	for i := 0; i < n; i++ {
		if len(z.hand) >= z.maxHand {
			return drawn, ErrHandFull
		}
		if len(z.deck) == 0 {
			z.ReshuffleDiscardIntoDeck()
			if len(z.deck) == 0 {
				break
			}
		}
		card := z.deck[0]
		z.deck = z.deck[1:]
		z.hand = append(z.hand, card)
		drawn = append(drawn, card)
	}
	return drawn, nil
}

// AddCard appends a card id to the hand, failing with ErrHandFull without
// mutating anything if the hand is at its cap. The id must not currently be
// in another zone of this set; callers adding external cards own that check.
func (z *ZoneSet) AddCard(cardID string) error {
	if len(z.hand) >= z.maxHand {
		return ErrHandFull
	}
	z.hand = append(z.hand, cardID)
	return nil
}

// MoveToDiscard moves one specific card from the hand to the discard pile.
// It is the enforcement point for "a card is played at most once": if the id
// is not in the hand the call is a no-op and reports ErrCardNotInHand.
func (z *ZoneSet) MoveToDiscard(cardID string) error {
	for i, id := range z.hand {
		if id == cardID {
			z.hand = append(z.hand[:i], z.hand[i+1:]...)
			z.discard = append(z.discard, cardID)
			return nil
		}
	}
	return ErrCardNotInHand
}

// DiscardAll moves every card in the hand to the discard pile and returns
// the moved ids in hand order.
func (z *ZoneSet) DiscardAll() []string {
	moved := append([]string(nil), z.hand...)
	z.discard = append(z.discard, z.hand...)
	z.hand = z.hand[:0]
	return moved
}

// Shuffle randomizes the deck in place with a uniform permutation. A deck of
// zero or one cards is left as-is.
func (z *ZoneSet) Shuffle() {
	if len(z.deck) < 2 {
		return
	}
	z.rng.Shuffle(len(z.deck), func(i, j int) {
		z.deck[i], z.deck[j] = z.deck[j], z.deck[i]
	})
}

// ReshuffleDiscardIntoDeck moves the entire discard pile into the deck,
// clears the discard pile and shuffles the deck.
func (z *ZoneSet) ReshuffleDiscardIntoDeck() {
	if len(z.discard) == 0 {
		return
	}
	z.deck = append(z.deck, z.discard...)
	z.discard = z.discard[:0]
	z.Shuffle()
}

// CardCounts returns the multiset of card ids across all three zones. Used
// to verify the partition invariant in tests and integrity checks.
func (z *ZoneSet) CardCounts() map[string]int {
	counts := make(map[string]int, len(z.deck)+len(z.hand)+len(z.discard))
	for _, id := range z.deck {
		counts[id]++
	}
	for _, id := range z.hand {
		counts[id]++
	}
	for _, id := range z.discard {
		counts[id]++
	}
	return counts
}
