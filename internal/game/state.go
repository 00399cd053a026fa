package game

import (
	"math/rand"

	"github.com/openmonopoly/monopoly-server-go/internal/game/rules"
)

// GameState is the aggregate root: one mutable instance per game, owned by
// the table goroutine. Everything clients see derives from it.
type GameState struct {
	ID      string
	Players []*Player
	Tiles   []Tile
	Deeds   map[string]*Deed
	Chance  *Deck
	Chest   *Deck

	Current int // index into Players, seating order
	Phase   rules.Phase

	// Pending sub-protocol state. At most one of Auction, Trade and Debt
	// is non-nil at a time. Forced debts incurred while another debtor is
	// still liquidating wait their turn in DebtQueue.
	Auction   *Auction
	Trade     *Trade
	Debt      *Debt
	DebtQueue []*Debt

	// resumePhase is where the machine returns after a side-branch
	// (Trading, DebtResolution) resolves.
	resumePhase rules.Phase

	TurnNumber int
	// Seq increases on every applied state change; it orders the event
	// stream and doubles as an idempotency marker for clients.
	Seq uint64

	LastDie1, LastDie2 int
	DoublesCount       int
	pendingExtraRoll   bool

	FreeParkingPot int

	rng *rand.Rand
}

// NewGameState builds a fresh game: fixed board, shuffled decks, no players
// seated yet.
func NewGameState(id string, seed int64) *GameState {
	rng := rand.New(rand.NewSource(seed))
	return &GameState{
		ID:     id,
		Tiles:  standardBoard(),
		Deeds:  standardDeeds(),
		Chance: NewDeck(DeckChance, chanceCards(), rng),
		Chest:  NewDeck(DeckChest, communityChestCards(), rng),
		Phase:  rules.PhaseTurnStart,
		rng:    rng,
	}
}

// PlayerByID returns the seated player or nil.
func (s *GameState) PlayerByID(id string) *Player {
	for _, p := range s.Players {
		if p.ID == id {
			return p
		}
	}
	return nil
}

// CurrentPlayer returns the turn-owner.
func (s *GameState) CurrentPlayer() *Player {
	if len(s.Players) == 0 {
		return nil
	}
	return s.Players[s.Current]
}

// ActivePlayers counts players still in the game.
func (s *GameState) ActivePlayers() int {
	n := 0
	for _, p := range s.Players {
		if !p.Bankrupt {
			n++
		}
	}
	return n
}

// NextActiveIndex returns the next seat after from, skipping bankrupt
// players. Returns from itself when nobody else remains.
func (s *GameState) NextActiveIndex(from int) int {
	for i := 1; i <= len(s.Players); i++ {
		idx := (from + i) % len(s.Players)
		if !s.Players[idx].Bankrupt {
			return idx
		}
	}
	return from
}

// TileAt returns the tile at a wrapped position.
func (s *GameState) TileAt(pos int) Tile {
	return s.Tiles[((pos%BoardSize)+BoardSize)%BoardSize]
}

// DeedAt returns the deed backing the tile at pos, or nil.
func (s *GameState) DeedAt(pos int) *Deed {
	tile := s.TileAt(pos)
	if tile.DeedID == "" {
		return nil
	}
	return s.Deeds[tile.DeedID]
}

// DeckByName resolves a deck name recorded on a kept jail card.
func (s *GameState) DeckByName(name string) *Deck {
	if name == DeckChest {
		return s.Chest
	}
	return s.Chance
}

// GroupComplete reports whether the player owns every deed in the group.
// Only then may houses be built on its members.
func (s *GameState) GroupComplete(playerID string, group ColorGroup) bool {
	for _, id := range groupMembers(group) {
		if s.Deeds[id].OwnerID != playerID {
			return false
		}
	}
	return true
}

// GroupUnmortgaged reports whether no deed in the group is mortgaged.
func (s *GameState) GroupUnmortgaged(group ColorGroup) bool {
	for _, id := range groupMembers(group) {
		if s.Deeds[id].Mortgaged {
			return false
		}
	}
	return true
}

// OwnedInGroup returns the player's deeds in the group.
func (s *GameState) OwnedInGroup(playerID string, group ColorGroup) []*Deed {
	var out []*Deed
	for _, id := range groupMembers(group) {
		if d := s.Deeds[id]; d.OwnerID == playerID {
			out = append(out, d)
		}
	}
	return out
}

// RailroadsOwned counts the player's railroads.
func (s *GameState) RailroadsOwned(playerID string) int {
	n := 0
	for _, id := range groupMembers(GroupRailroad) {
		if s.Deeds[id].OwnerID == playerID {
			n++
		}
	}
	return n
}

// OwnsBothUtilities reports whether the player holds both utilities.
func (s *GameState) OwnsBothUtilities(playerID string) bool {
	for _, id := range groupMembers(GroupUtility) {
		if s.Deeds[id].OwnerID != playerID {
			return false
		}
	}
	return true
}

// LiquidationValue is cash plus the mortgage value of unmortgaged deeds plus
// half the value of buildings: the ceiling a player can raise to cover debt,
// and the cap on auction bids.
func (s *GameState) LiquidationValue(playerID string) int {
	p := s.PlayerByID(playerID)
	if p == nil {
		return 0
	}
	total := p.Money
	for _, id := range p.PropertyIDs() {
		d := s.Deeds[id]
		if !d.Mortgaged {
			total += d.MortgageValue
		}
		total += d.BuildingValue() / 2
	}
	return total
}

// NearestTile returns the first tile of the kind strictly ahead of pos.
func (s *GameState) NearestTile(pos int, kind TileKind) int {
	for i := 1; i <= BoardSize; i++ {
		idx := (pos + i) % BoardSize
		if s.Tiles[idx].Kind == kind {
			return idx
		}
	}
	return pos
}

func (s *GameState) nextSeq() uint64 {
	s.Seq++
	return s.Seq
}
