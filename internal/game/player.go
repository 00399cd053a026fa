package game

import "sort"

// Player holds a seated player's mutable state. All mutation happens on the
// table goroutine; the struct itself is not concurrency safe.
type Player struct {
	ID       string
	Name     string
	Money    int
	Position int

	InJail    bool
	JailTurns int
	// JailCards counts held get-out-of-jail-free cards; jailCardFrom
	// remembers which deck each came from so a used card returns there.
	JailCards    int
	jailCardFrom []string

	Bankrupt  bool
	Connected bool

	properties map[string]struct{}
}

// NewPlayer seats a player with the configured starting money.
func NewPlayer(id, name string, money int) *Player {
	return &Player{
		ID:         id,
		Name:       name,
		Money:      money,
		Connected:  true,
		properties: make(map[string]struct{}),
	}
}

// AddProperty records ownership of a deed. Exclusive ownership is enforced
// at the deed, not here; the ledger flips both sides together.
func (p *Player) AddProperty(deedID string) {
	p.properties[deedID] = struct{}{}
}

// RemoveProperty is the inverse of AddProperty.
func (p *Player) RemoveProperty(deedID string) {
	delete(p.properties, deedID)
}

// Owns reports whether the player owns the deed.
func (p *Player) Owns(deedID string) bool {
	_, ok := p.properties[deedID]
	return ok
}

// PropertyIDs returns the owned deed ids in stable order.
func (p *Player) PropertyIDs() []string {
	ids := make([]string, 0, len(p.properties))
	for id := range p.properties {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// PropertyCount returns the number of owned deeds.
func (p *Player) PropertyCount() int {
	return len(p.properties)
}

// AdvanceBy moves the player forward, wrapping at the board size, and
// reports whether the move passed or landed on Go.
func (p *Player) AdvanceBy(steps int) (newPos int, passedGo bool) {
	old := p.Position
	p.Position = ((old+steps)%BoardSize + BoardSize) % BoardSize
	if steps > 0 && p.Position < old {
		passedGo = true
	}
	return p.Position, passedGo
}

// MoveTo places the player on an absolute tile and reports whether the move
// crossed Go going forward.
func (p *Player) MoveTo(pos int) (passedGo bool) {
	pos = ((pos % BoardSize) + BoardSize) % BoardSize
	passedGo = pos <= p.Position // forward wrap crosses index 0
	if pos == p.Position {
		passedGo = false
	}
	p.Position = pos
	return passedGo
}

// memento captures the fields a transaction may touch, for undo snapshots.
type playerMemento struct {
	money     int
	position  int
	inJail    bool
	jailTurns int
	jailCards int
	cardFrom  []string
	bankrupt  bool
	props     []string
}

func (p *Player) memento() playerMemento {
	return playerMemento{
		money:     p.Money,
		position:  p.Position,
		inJail:    p.InJail,
		jailTurns: p.JailTurns,
		jailCards: p.JailCards,
		cardFrom:  append([]string(nil), p.jailCardFrom...),
		bankrupt:  p.Bankrupt,
		props:     p.PropertyIDs(),
	}
}

func (p *Player) restore(m playerMemento) {
	p.Money = m.money
	p.Position = m.position
	p.InJail = m.inJail
	p.JailTurns = m.jailTurns
	p.JailCards = m.jailCards
	p.jailCardFrom = append([]string(nil), m.cardFrom...)
	p.Bankrupt = m.bankrupt
	p.properties = make(map[string]struct{}, len(m.props))
	for _, id := range m.props {
		p.properties[id] = struct{}{}
	}
}
