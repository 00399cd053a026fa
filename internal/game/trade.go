package game

import "github.com/google/uuid"

// TradeStatus tracks the two-party negotiation state machine.
type TradeStatus int

const (
	TradeProposed TradeStatus = iota
	TradeAccepted
	TradeDeclined
	TradeCountered
	TradeCancelled
)

var tradeStatusNames = map[TradeStatus]string{
	TradeProposed:  "PROPOSED",
	TradeAccepted:  "ACCEPTED",
	TradeDeclined:  "DECLINED",
	TradeCountered: "COUNTERED",
	TradeCancelled: "CANCELLED",
}

func (s TradeStatus) String() string {
	if name, ok := tradeStatusNames[s]; ok {
		return name
	}
	return "UNKNOWN"
}

// TradeSide is one party's contribution: deeds given away plus money paid.
type TradeSide struct {
	Money int      `json:"money"`
	Deeds []string `json:"deeds,omitempty"`
}

// Trade is a pending proposal from FromID to ToID. Offer is what the
// proposer gives; Request is what they want back. Acceptance settles the
// whole set atomically through the ledger; either party may walk away
// before that, never after.
type Trade struct {
	ID      uuid.UUID
	FromID  string
	ToID    string
	Offer   TradeSide
	Request TradeSide
	Status  TradeStatus
}

// NewTrade opens a proposal.
func NewTrade(fromID, toID string, offer, request TradeSide) *Trade {
	return &Trade{
		ID:      uuid.New(),
		FromID:  fromID,
		ToID:    toID,
		Offer:   offer,
		Request: request,
		Status:  TradeProposed,
	}
}

// Counter replaces the terms with the responder's counter-proposal and
// swaps the roles: the original proposer must now respond.
func (t *Trade) Counter(offer, request TradeSide) {
	t.FromID, t.ToID = t.ToID, t.FromID
	t.Offer = offer
	t.Request = request
	t.Status = TradeProposed
}
