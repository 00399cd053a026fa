package game

import (
	"fmt"
	"math/rand"
)

// CardKind is the effect a drawn card has. Cards are immutable content; the
// machine interprets the kind and the two values.
type CardKind int

const (
	CardReceiveMoney CardKind = iota
	CardPayMoney
	CardPayEachPlayer
	CardReceiveFromEachPlayer
	CardAdvanceToAbsolute
	CardAdvanceToNearestRailroad
	CardAdvanceToNearestUtility
	CardGoBack
	CardGoToJail
	CardKeepJailCard
	CardStreetRepairs
)

var cardKindNames = map[CardKind]string{
	CardReceiveMoney:             "RECEIVE_MONEY",
	CardPayMoney:                 "PAY_MONEY",
	CardPayEachPlayer:            "PAY_EACH_PLAYER",
	CardReceiveFromEachPlayer:    "RECEIVE_FROM_EACH_PLAYER",
	CardAdvanceToAbsolute:        "ADVANCE_TO_ABSOLUTE",
	CardAdvanceToNearestRailroad: "ADVANCE_TO_NEAREST_RAILROAD",
	CardAdvanceToNearestUtility:  "ADVANCE_TO_NEAREST_UTILITY",
	CardGoBack:                   "GO_BACK",
	CardGoToJail:                 "GO_TO_JAIL",
	CardKeepJailCard:             "KEEP_JAIL_CARD",
	CardStreetRepairs:            "STREET_REPAIRS",
}

func (k CardKind) String() string {
	if name, ok := cardKindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("CARD_%d", int(k))
}

// Card is one entry of a draw deck. Value and Value2 are interpreted by
// kind: amount, target tile, step count, or per-house/per-hotel cost pair.
type Card struct {
	ID     int
	Text   string
	Kind   CardKind
	Value  int
	Value2 int
}

// Deck is a finite card cycle consumed front to back. When the draw index
// reaches the end it wraps; a removed keep-card shrinks the cycle until the
// card is played back in.
type Deck struct {
	Name  string
	cards []Card
	next  int
}

// NewDeck shuffles the cards with the game's rng and returns a ready deck.
func NewDeck(name string, cards []Card, rng *rand.Rand) *Deck {
	shuffled := append([]Card(nil), cards...)
	if rng != nil {
		rng.Shuffle(len(shuffled), func(i, j int) {
			shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
		})
	}
	return &Deck{Name: name, cards: shuffled}
}

// Draw returns the next card and advances the cycle.
func (d *Deck) Draw() Card {
	card := d.cards[d.next]
	d.next = (d.next + 1) % len(d.cards)
	return card
}

// Remove takes a card out of the cycle (a kept get-out-of-jail-free card).
func (d *Deck) Remove(cardID int) {
	for i, c := range d.cards {
		if c.ID == cardID {
			d.cards = append(d.cards[:i], d.cards[i+1:]...)
			if i < d.next {
				d.next--
			}
			if len(d.cards) > 0 {
				d.next %= len(d.cards)
			} else {
				d.next = 0
			}
			return
		}
	}
}

// Return puts a played keep-card at the back of the cycle.
func (d *Deck) Return(card Card) {
	if d.next == 0 {
		d.cards = append(d.cards, card)
		return
	}
	// Insert just before the next draw position so the returned card is
	// drawn last.
	d.cards = append(d.cards[:d.next], append([]Card{card}, d.cards[d.next:]...)...)
	d.next++
}

// Size returns the number of cards currently in the cycle.
func (d *Deck) Size() int {
	return len(d.cards)
}

const (
	DeckChance = "chance"
	DeckChest  = "community-chest"
)

// jailCardChance and jailCardChest identify the two keep-cards so they can
// be returned to the right deck.
const (
	jailCardChanceID = 107
	jailCardChestID  = 205
)

func chanceCards() []Card {
	return []Card{
		{ID: 101, Text: "Advance to Go. Collect $200.", Kind: CardAdvanceToAbsolute, Value: GoIndex},
		{ID: 102, Text: "Advance to Illinois Avenue.", Kind: CardAdvanceToAbsolute, Value: 24},
		{ID: 103, Text: "Advance to St. Charles Place.", Kind: CardAdvanceToAbsolute, Value: 11},
		{ID: 104, Text: "Advance to the nearest Utility.", Kind: CardAdvanceToNearestUtility},
		{ID: 105, Text: "Advance to the nearest Railroad.", Kind: CardAdvanceToNearestRailroad},
		{ID: 106, Text: "Bank pays you dividend of $50.", Kind: CardReceiveMoney, Value: 50},
		{ID: jailCardChanceID, Text: "Get Out of Jail Free.", Kind: CardKeepJailCard},
		{ID: 108, Text: "Go back 3 spaces.", Kind: CardGoBack, Value: 3},
		{ID: 109, Text: "Go directly to Jail.", Kind: CardGoToJail},
		{ID: 110, Text: "Make general repairs: $25 per house, $100 per hotel.", Kind: CardStreetRepairs, Value: 25, Value2: 100},
		{ID: 111, Text: "Pay poor tax of $15.", Kind: CardPayMoney, Value: 15},
		{ID: 112, Text: "Take a trip to Reading Railroad.", Kind: CardAdvanceToAbsolute, Value: 5},
		{ID: 113, Text: "Take a walk on the Boardwalk.", Kind: CardAdvanceToAbsolute, Value: 39},
		{ID: 114, Text: "You have been elected Chairman of the Board. Pay each player $50.", Kind: CardPayEachPlayer, Value: 50},
		{ID: 115, Text: "Your building loan matures. Receive $150.", Kind: CardReceiveMoney, Value: 150},
		{ID: 116, Text: "Advance to the nearest Railroad.", Kind: CardAdvanceToNearestRailroad},
	}
}

func communityChestCards() []Card {
	return []Card{
		{ID: 201, Text: "Advance to Go. Collect $200.", Kind: CardAdvanceToAbsolute, Value: GoIndex},
		{ID: 202, Text: "Bank error in your favor. Receive $200.", Kind: CardReceiveMoney, Value: 200},
		{ID: 203, Text: "Doctor's fee. Pay $50.", Kind: CardPayMoney, Value: 50},
		{ID: 204, Text: "From sale of stock you receive $50.", Kind: CardReceiveMoney, Value: 50},
		{ID: jailCardChestID, Text: "Get Out of Jail Free.", Kind: CardKeepJailCard},
		{ID: 206, Text: "Go directly to Jail.", Kind: CardGoToJail},
		{ID: 207, Text: "Grand Opera Night. Collect $50 from every player.", Kind: CardReceiveFromEachPlayer, Value: 50},
		{ID: 208, Text: "Holiday fund matures. Receive $100.", Kind: CardReceiveMoney, Value: 100},
		{ID: 209, Text: "Income tax refund. Receive $20.", Kind: CardReceiveMoney, Value: 20},
		{ID: 210, Text: "Life insurance matures. Receive $100.", Kind: CardReceiveMoney, Value: 100},
		{ID: 211, Text: "Pay hospital fees of $100.", Kind: CardPayMoney, Value: 100},
		{ID: 212, Text: "Pay school fees of $150.", Kind: CardPayMoney, Value: 150},
		{ID: 213, Text: "Receive $25 consultancy fee.", Kind: CardReceiveMoney, Value: 25},
		{ID: 214, Text: "Street repairs: $40 per house, $115 per hotel.", Kind: CardStreetRepairs, Value: 40, Value2: 115},
		{ID: 215, Text: "You have won second prize in a beauty contest. Receive $10.", Kind: CardReceiveMoney, Value: 10},
		{ID: 216, Text: "You inherit $100.", Kind: CardReceiveMoney, Value: 100},
	}
}
