package rules

import "fmt"

// Phase represents a state of the turn machine. Commands are only legal in
// specific phases; the engine rejects anything else without mutating state.
type Phase int

const (
	PhaseTurnStart Phase = iota
	PhasePreRoll
	PhaseRolling
	PhaseMoving
	PhaseLanded
	PhasePropertyDecision
	PhasePayingRent
	PhaseDrawingCard
	PhaseAuction
	PhaseInJail
	PhaseTrading
	PhaseDebtResolution
	PhasePostAction
	PhaseTurnEnd
	PhaseGameOver
)

var phaseNames = map[Phase]string{
	PhaseTurnStart:        "TURN_START",
	PhasePreRoll:          "PRE_ROLL",
	PhaseRolling:          "ROLLING",
	PhaseMoving:           "MOVING",
	PhaseLanded:           "LANDED",
	PhasePropertyDecision: "PROPERTY_DECISION",
	PhasePayingRent:       "PAYING_RENT",
	PhaseDrawingCard:      "DRAWING_CARD",
	PhaseAuction:          "AUCTION",
	PhaseInJail:           "IN_JAIL",
	PhaseTrading:          "TRADING",
	PhaseDebtResolution:   "DEBT_RESOLUTION",
	PhasePostAction:       "POST_ACTION",
	PhaseTurnEnd:          "TURN_END",
	PhaseGameOver:         "GAME_OVER",
}

func (p Phase) String() string {
	if name, ok := phaseNames[p]; ok {
		return name
	}
	return fmt.Sprintf("PHASE_%d", int(p))
}

// Terminal reports whether the phase is absorbing: no command can leave it.
func (p Phase) Terminal() bool {
	return p == PhaseGameOver
}

// AwaitsCommand reports whether the machine parks in this phase waiting for
// a player command. The remaining phases are passed through synchronously
// while a single command resolves.
func (p Phase) AwaitsCommand() bool {
	switch p {
	case PhasePreRoll, PhasePropertyDecision, PhaseAuction, PhaseInJail,
		PhaseTrading, PhaseDebtResolution, PhasePostAction:
		return true
	}
	return false
}
