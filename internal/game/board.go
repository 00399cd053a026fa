package game

// Board geometry and classic rule constants.
const (
	BoardSize        = 40
	GoIndex          = 0
	JailIndex        = 10
	FreeParkingIndex = 20
	GoToJailIndex    = 30

	GoBonus               = 200
	BailAmount            = 50
	IncomeTax             = 200
	LuxuryTax             = 100
	MaxJailTurns          = 3
	MaxConsecutiveDoubles = 3

	// Unmortgaging costs the mortgage value plus 10% interest; selling a
	// building refunds half its cost.
	unmortgageInterestPct = 10
)

type deedSpec struct {
	id     string
	name   string
	kind   TileKind
	group  ColorGroup
	tile   int
	price  int
	house  int
	rent   [6]int
}

var deedSpecs = []deedSpec{
	{"mediterranean-avenue", "Mediterranean Avenue", TileStreet, GroupBrown, 1, 60, 50, [6]int{2, 10, 30, 90, 160, 250}},
	{"baltic-avenue", "Baltic Avenue", TileStreet, GroupBrown, 3, 60, 50, [6]int{4, 20, 60, 180, 320, 450}},
	{"reading-railroad", "Reading Railroad", TileRailroad, GroupRailroad, 5, 200, 0, [6]int{}},
	{"oriental-avenue", "Oriental Avenue", TileStreet, GroupLightBlue, 6, 100, 50, [6]int{6, 30, 90, 270, 400, 550}},
	{"vermont-avenue", "Vermont Avenue", TileStreet, GroupLightBlue, 8, 100, 50, [6]int{6, 30, 90, 270, 400, 550}},
	{"connecticut-avenue", "Connecticut Avenue", TileStreet, GroupLightBlue, 9, 120, 50, [6]int{8, 40, 100, 300, 450, 600}},
	{"st-charles-place", "St. Charles Place", TileStreet, GroupPink, 11, 140, 100, [6]int{10, 50, 150, 450, 625, 750}},
	{"electric-company", "Electric Company", TileUtility, GroupUtility, 12, 150, 0, [6]int{}},
	{"states-avenue", "States Avenue", TileStreet, GroupPink, 13, 140, 100, [6]int{10, 50, 150, 450, 625, 750}},
	{"virginia-avenue", "Virginia Avenue", TileStreet, GroupPink, 14, 160, 100, [6]int{12, 60, 180, 500, 700, 900}},
	{"pennsylvania-railroad", "Pennsylvania Railroad", TileRailroad, GroupRailroad, 15, 200, 0, [6]int{}},
	{"st-james-place", "St. James Place", TileStreet, GroupOrange, 16, 180, 100, [6]int{14, 70, 200, 550, 750, 950}},
	{"tennessee-avenue", "Tennessee Avenue", TileStreet, GroupOrange, 18, 180, 100, [6]int{14, 70, 200, 550, 750, 950}},
	{"new-york-avenue", "New York Avenue", TileStreet, GroupOrange, 19, 200, 100, [6]int{16, 80, 220, 600, 800, 1000}},
	{"kentucky-avenue", "Kentucky Avenue", TileStreet, GroupRed, 21, 220, 150, [6]int{18, 90, 250, 700, 875, 1050}},
	{"indiana-avenue", "Indiana Avenue", TileStreet, GroupRed, 23, 220, 150, [6]int{18, 90, 250, 700, 875, 1050}},
	{"illinois-avenue", "Illinois Avenue", TileStreet, GroupRed, 24, 240, 150, [6]int{20, 100, 300, 750, 925, 1100}},
	{"b-and-o-railroad", "B. & O. Railroad", TileRailroad, GroupRailroad, 25, 200, 0, [6]int{}},
	{"atlantic-avenue", "Atlantic Avenue", TileStreet, GroupYellow, 26, 260, 150, [6]int{22, 110, 330, 800, 975, 1150}},
	{"ventnor-avenue", "Ventnor Avenue", TileStreet, GroupYellow, 27, 260, 150, [6]int{22, 110, 330, 800, 975, 1150}},
	{"water-works", "Water Works", TileUtility, GroupUtility, 28, 150, 0, [6]int{}},
	{"marvin-gardens", "Marvin Gardens", TileStreet, GroupYellow, 29, 280, 150, [6]int{24, 120, 360, 850, 1025, 1200}},
	{"pacific-avenue", "Pacific Avenue", TileStreet, GroupGreen, 31, 300, 200, [6]int{26, 130, 390, 900, 1100, 1275}},
	{"north-carolina-avenue", "North Carolina Avenue", TileStreet, GroupGreen, 32, 300, 200, [6]int{26, 130, 390, 900, 1100, 1275}},
	{"pennsylvania-avenue", "Pennsylvania Avenue", TileStreet, GroupGreen, 34, 320, 200, [6]int{28, 150, 450, 1000, 1200, 1400}},
	{"short-line", "Short Line", TileRailroad, GroupRailroad, 35, 200, 0, [6]int{}},
	{"park-place", "Park Place", TileStreet, GroupDarkBlue, 37, 350, 200, [6]int{35, 175, 500, 1100, 1300, 1500}},
	{"boardwalk", "Boardwalk", TileStreet, GroupDarkBlue, 39, 400, 200, [6]int{50, 200, 600, 1400, 1700, 2000}},
}

// standardDeeds builds a fresh mutable deed set from the static table.
func standardDeeds() map[string]*Deed {
	deeds := make(map[string]*Deed, len(deedSpecs))
	for _, s := range deedSpecs {
		deeds[s.id] = &Deed{
			ID:            s.id,
			Name:          s.name,
			Kind:          s.kind,
			Group:         s.group,
			TileIndex:     s.tile,
			Price:         s.price,
			HouseCost:     s.house,
			MortgageValue: s.price / 2,
			Rent:          s.rent,
		}
	}
	return deeds
}

// standardBoard builds the fixed 40-tile board. Deed tiles reference deeds
// by id; everything else is classified by kind alone.
func standardBoard() []Tile {
	tiles := make([]Tile, BoardSize)
	tiles[0] = Tile{Index: 0, Kind: TileGo, Name: "Go"}
	tiles[2] = Tile{Index: 2, Kind: TileCommunityChest, Name: "Community Chest"}
	tiles[4] = Tile{Index: 4, Kind: TileTax, Name: "Income Tax", TaxAmount: IncomeTax}
	tiles[7] = Tile{Index: 7, Kind: TileChance, Name: "Chance"}
	tiles[10] = Tile{Index: 10, Kind: TileJail, Name: "Jail"}
	tiles[17] = Tile{Index: 17, Kind: TileCommunityChest, Name: "Community Chest"}
	tiles[20] = Tile{Index: 20, Kind: TileFreeParking, Name: "Free Parking"}
	tiles[22] = Tile{Index: 22, Kind: TileChance, Name: "Chance"}
	tiles[30] = Tile{Index: 30, Kind: TileGoToJail, Name: "Go To Jail"}
	tiles[33] = Tile{Index: 33, Kind: TileCommunityChest, Name: "Community Chest"}
	tiles[36] = Tile{Index: 36, Kind: TileChance, Name: "Chance"}
	tiles[38] = Tile{Index: 38, Kind: TileTax, Name: "Luxury Tax", TaxAmount: LuxuryTax}
	for _, s := range deedSpecs {
		tiles[s.tile] = Tile{Index: s.tile, Kind: s.kind, Name: s.name, DeedID: s.id}
	}
	return tiles
}

// groupMembers returns the deed ids of a color group on the standard board.
func groupMembers(group ColorGroup) []string {
	var ids []string
	for _, s := range deedSpecs {
		if s.group == group {
			ids = append(ids, s.id)
		}
	}
	return ids
}
