package game

// CommandType names a player intent. The wire layer decodes JSON straight
// into Command; the table loop consumes them one at a time.
type CommandType string

const (
	CmdHello        CommandType = "HELLO"
	CmdStartGame    CommandType = "START_GAME"
	CmdRollDice     CommandType = "ROLL_DICE"
	CmdBuyProperty  CommandType = "BUY_PROPERTY"
	CmdDeclineBuy   CommandType = "DECLINE_BUY"
	CmdBid          CommandType = "BID"
	CmdPassBid      CommandType = "PASS_BID"
	CmdBuild        CommandType = "BUILD"
	CmdSellBuilding CommandType = "SELL_BUILDING"
	CmdMortgage     CommandType = "MORTGAGE"
	CmdUnmortgage   CommandType = "UNMORTGAGE"
	CmdJailPayFine  CommandType = "JAIL_PAY_FINE"
	CmdJailUseCard  CommandType = "JAIL_USE_CARD"
	CmdProposeTrade CommandType = "PROPOSE_TRADE"
	CmdAcceptTrade  CommandType = "ACCEPT_TRADE"
	CmdDeclineTrade CommandType = "DECLINE_TRADE"
	CmdCounterTrade CommandType = "COUNTER_TRADE"
	CmdCancelTrade  CommandType = "CANCEL_TRADE"
	CmdUndo         CommandType = "UNDO"
	CmdRedo         CommandType = "REDO"
	CmdEndTurn      CommandType = "END_TURN"
	CmdDisconnect   CommandType = "DISCONNECT"
)

// Command is one decoded client intent. PlayerID is stamped by the
// connection layer from the authenticated session, never trusted from the
// payload.
type Command struct {
	Type          CommandType `json:"type"`
	PlayerID      string      `json:"playerId,omitempty"`
	Name          string      `json:"name,omitempty"`
	Password      string      `json:"password,omitempty"`
	PropertyID    string      `json:"propertyId,omitempty"`
	Amount        int         `json:"amount,omitempty"`
	Hotel         bool        `json:"hotel,omitempty"`
	OtherPlayerID string      `json:"otherPlayerId,omitempty"`
	Offer         TradeSide   `json:"offer,omitempty"`
	Request       TradeSide   `json:"request,omitempty"`
}
