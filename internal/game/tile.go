package game

import "fmt"

// TileKind classifies what kind of landing event a tile produces. Tiles carry
// no behavior of their own; the turn machine dispatches on the kind.
type TileKind int

const (
	TileGo TileKind = iota
	TileStreet
	TileRailroad
	TileUtility
	TileChance
	TileCommunityChest
	TileTax
	TileJail
	TileGoToJail
	TileFreeParking
)

var tileKindNames = map[TileKind]string{
	TileGo:             "GO",
	TileStreet:         "STREET",
	TileRailroad:       "RAILROAD",
	TileUtility:        "UTILITY",
	TileChance:         "CHANCE",
	TileCommunityChest: "COMMUNITY_CHEST",
	TileTax:            "TAX",
	TileJail:           "JAIL",
	TileGoToJail:       "GO_TO_JAIL",
	TileFreeParking:    "FREE_PARKING",
}

func (k TileKind) String() string {
	if name, ok := tileKindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("TILE_%d", int(k))
}

// Deedable reports whether tiles of this kind are backed by a purchasable deed.
func (k TileKind) Deedable() bool {
	return k == TileStreet || k == TileRailroad || k == TileUtility
}

// Tile is one of the 40 board slots. The board is fixed at game creation;
// only the deed referenced by DeedID carries mutable state.
type Tile struct {
	Index     int
	Kind      TileKind
	Name      string
	DeedID    string // set iff Kind.Deedable()
	TaxAmount int    // set iff Kind == TileTax
}
