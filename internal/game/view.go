package game

// GameView is the client-facing projection of a game state. It carries no
// engine internals; everything in it is safe to show every player.
type GameView struct {
	GameID         string        `json:"gameId"`
	Seq            uint64        `json:"seq"`
	Phase          string        `json:"phase"`
	TurnNumber     int           `json:"turnNumber"`
	CurrentPlayer  string        `json:"currentPlayer,omitempty"`
	LastDice       [2]int        `json:"lastDice"`
	FreeParkingPot int           `json:"freeParkingPot,omitempty"`
	Players        []PlayerView  `json:"players"`
	Deeds          []DeedView    `json:"deeds"`
	Auction        *AuctionView  `json:"auction,omitempty"`
	Trade          *TradeView    `json:"trade,omitempty"`
	Debt           *DebtView     `json:"debt,omitempty"`
	PendingDebts   []DebtView    `json:"pendingDebts,omitempty"`
}

type PlayerView struct {
	ID         string   `json:"id"`
	Name       string   `json:"name"`
	Money      int      `json:"money"`
	Position   int      `json:"position"`
	InJail     bool     `json:"inJail"`
	JailCards  int      `json:"jailCards,omitempty"`
	Bankrupt   bool     `json:"bankrupt,omitempty"`
	Connected  bool     `json:"connected"`
	Properties []string `json:"properties,omitempty"`
}

type DeedView struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	OwnerID   string `json:"ownerId,omitempty"`
	Houses    int    `json:"houses,omitempty"`
	Hotel     bool   `json:"hotel,omitempty"`
	Mortgaged bool   `json:"mortgaged,omitempty"`
}

type AuctionView struct {
	PropertyID   string `json:"propertyId"`
	HighBid      int    `json:"highBid"`
	HighBidderID string `json:"highBidderId,omitempty"`
	TurnOf       string `json:"turnOf,omitempty"`
}

type TradeView struct {
	FromID  string    `json:"fromId"`
	ToID    string    `json:"toId"`
	Offer   TradeSide `json:"offer"`
	Request TradeSide `json:"request"`
	Status  string    `json:"status"`
}

type DebtView struct {
	DebtorID   string `json:"debtorId"`
	CreditorID string `json:"creditorId,omitempty"`
	Amount     int    `json:"amount"`
}

// NewGameView projects the full state. Runs on the table goroutine.
func NewGameView(s *GameState) GameView {
	v := GameView{
		GameID:         s.ID,
		Seq:            s.Seq,
		Phase:          s.Phase.String(),
		TurnNumber:     s.TurnNumber,
		LastDice:       [2]int{s.LastDie1, s.LastDie2},
		FreeParkingPot: s.FreeParkingPot,
		Players:        make([]PlayerView, 0, len(s.Players)),
		Deeds:          make([]DeedView, 0, len(s.Deeds)),
	}
	if cp := s.CurrentPlayer(); cp != nil {
		v.CurrentPlayer = cp.ID
	}
	for _, p := range s.Players {
		v.Players = append(v.Players, PlayerView{
			ID:         p.ID,
			Name:       p.Name,
			Money:      p.Money,
			Position:   p.Position,
			InJail:     p.InJail,
			JailCards:  p.JailCards,
			Bankrupt:   p.Bankrupt,
			Connected:  p.Connected,
			Properties: p.PropertyIDs(),
		})
	}
	// Deeds in board order keeps the view deterministic.
	for _, tile := range s.Tiles {
		if tile.DeedID == "" {
			continue
		}
		d := s.Deeds[tile.DeedID]
		v.Deeds = append(v.Deeds, DeedView{
			ID:        d.ID,
			Name:      d.Name,
			OwnerID:   d.OwnerID,
			Houses:    d.Houses,
			Hotel:     d.Hotel,
			Mortgaged: d.Mortgaged,
		})
	}
	if a := s.Auction; a != nil && !a.Closed() {
		v.Auction = &AuctionView{
			PropertyID:   a.DeedID,
			HighBid:      a.HighBid,
			HighBidderID: a.HighBidderID,
			TurnOf:       a.CurrentBidder(),
		}
	}
	if tr := s.Trade; tr != nil && (tr.Status == TradeProposed || tr.Status == TradeCountered) {
		v.Trade = &TradeView{
			FromID:  tr.FromID,
			ToID:    tr.ToID,
			Offer:   tr.Offer,
			Request: tr.Request,
			Status:  tr.Status.String(),
		}
	}
	if d := s.Debt; d != nil {
		v.Debt = &DebtView{
			DebtorID:   d.DebtorID,
			CreditorID: d.CreditorID,
			Amount:     d.Amount,
		}
	}
	for _, d := range s.DebtQueue {
		v.PendingDebts = append(v.PendingDebts, DebtView{
			DebtorID:   d.DebtorID,
			CreditorID: d.CreditorID,
			Amount:     d.Amount,
		})
	}
	return v
}
