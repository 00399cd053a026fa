package game

import "fmt"

// ColorGroup names the set of streets a deed belongs to. Railroads and
// utilities use their own pseudo-groups so group accounting stays uniform.
type ColorGroup string

const (
	GroupBrown     ColorGroup = "brown"
	GroupLightBlue ColorGroup = "light-blue"
	GroupPink      ColorGroup = "pink"
	GroupOrange    ColorGroup = "orange"
	GroupRed       ColorGroup = "red"
	GroupYellow    ColorGroup = "yellow"
	GroupGreen     ColorGroup = "green"
	GroupDarkBlue  ColorGroup = "dark-blue"
	GroupRailroad  ColorGroup = "railroad"
	GroupUtility   ColorGroup = "utility"
)

// Unowned is the sentinel owner id for deeds held by the bank.
const Unowned = ""

// MaxHouses is the house count at which the next build is a hotel.
const MaxHouses = 4

// Deed is a purchasable property: immutable identity plus mutable ownership
// and development state.
type Deed struct {
	ID            string
	Name          string
	Kind          TileKind
	Group         ColorGroup
	TileIndex     int
	Price         int
	HouseCost     int
	MortgageValue int
	// Rent is indexed by development level 0-5; level 5 is the hotel.
	// Only meaningful for streets.
	Rent [6]int

	OwnerID   string
	Houses    int
	Hotel     bool
	Mortgaged bool
}

// DevelopmentLevel returns 0-4 for house counts and 5 for a hotel.
func (d *Deed) DevelopmentLevel() int {
	if d.Hotel {
		return 5
	}
	return d.Houses
}

// RentContext carries the owner-wide facts a single deed cannot know.
type RentContext struct {
	OwnerRailroads     int
	OwnerBothUtilities bool
	DiceTotal          int
	GroupComplete      bool
}

// RentDue computes the rent a visitor owes. Mortgaged deeds charge nothing.
func (d *Deed) RentDue(ctx RentContext) int {
	if d.Mortgaged || d.OwnerID == Unowned {
		return 0
	}
	switch d.Kind {
	case TileRailroad:
		if ctx.OwnerRailroads <= 0 {
			return 0
		}
		rent := 25
		for i := 1; i < ctx.OwnerRailroads && i < 4; i++ {
			rent *= 2
		}
		return rent
	case TileUtility:
		if ctx.OwnerBothUtilities {
			return 10 * ctx.DiceTotal
		}
		return 4 * ctx.DiceTotal
	default:
		rent := d.Rent[d.DevelopmentLevel()]
		if ctx.GroupComplete && d.DevelopmentLevel() == 0 {
			rent *= 2
		}
		return rent
	}
}

// BuildingValue returns the full purchase value of the buildings on the deed,
// counting a hotel as five houses.
func (d *Deed) BuildingValue() int {
	units := d.Houses
	if d.Hotel {
		units = 5
	}
	return units * d.HouseCost
}

func (d *Deed) addHouse() error {
	if d.Kind != TileStreet {
		return fmt.Errorf("%w: %s cannot be developed", ErrInvariantViolation, d.ID)
	}
	if d.Mortgaged {
		return fmt.Errorf("%w: %s is mortgaged", ErrInvariantViolation, d.ID)
	}
	if d.Hotel || d.Houses >= MaxHouses {
		return fmt.Errorf("%w: %s is fully developed", ErrInvariantViolation, d.ID)
	}
	d.Houses++
	return nil
}

func (d *Deed) removeHouse() error {
	if d.Hotel || d.Houses == 0 {
		return fmt.Errorf("%w: no house to sell on %s", ErrInvariantViolation, d.ID)
	}
	d.Houses--
	return nil
}

func (d *Deed) addHotel() error {
	if d.Kind != TileStreet || d.Mortgaged {
		return fmt.Errorf("%w: %s cannot take a hotel", ErrInvariantViolation, d.ID)
	}
	if d.Hotel {
		return fmt.Errorf("%w: %s already has a hotel", ErrInvariantViolation, d.ID)
	}
	if d.Houses != MaxHouses {
		return fmt.Errorf("%w: %s needs %d houses before a hotel", ErrInvariantViolation, d.ID, MaxHouses)
	}
	d.Houses = 0
	d.Hotel = true
	return nil
}

func (d *Deed) removeHotel() error {
	if !d.Hotel {
		return fmt.Errorf("%w: no hotel on %s", ErrInvariantViolation, d.ID)
	}
	d.Hotel = false
	d.Houses = MaxHouses
	return nil
}

func (d *Deed) setMortgaged(v bool) error {
	if v {
		if d.Houses > 0 || d.Hotel {
			return fmt.Errorf("%w: %s still has buildings", ErrInvariantViolation, d.ID)
		}
		if d.Mortgaged {
			return fmt.Errorf("%w: %s already mortgaged", ErrInvariantViolation, d.ID)
		}
	} else if !d.Mortgaged {
		return fmt.Errorf("%w: %s is not mortgaged", ErrInvariantViolation, d.ID)
	}
	d.Mortgaged = v
	return nil
}

type deedMemento struct {
	ownerID   string
	houses    int
	hotel     bool
	mortgaged bool
}

func (d *Deed) memento() deedMemento {
	return deedMemento{ownerID: d.OwnerID, houses: d.Houses, hotel: d.Hotel, mortgaged: d.Mortgaged}
}

func (d *Deed) restore(m deedMemento) {
	d.OwnerID = m.ownerID
	d.Houses = m.houses
	d.Hotel = m.hotel
	d.Mortgaged = m.mortgaged
}
