package game

import "fmt"

// AuctionStatus tracks the auction sub-protocol state.
type AuctionStatus int

const (
	AuctionOpen AuctionStatus = iota
	AuctionBidding
	AuctionClosedWon
	AuctionClosedNoBids
)

// Auction is the nested state machine entered when a player declines to buy
// (or a house rule puts a deed up for bid). Eligible players take sequential
// turns to raise or pass; passing removes them from the round.
type Auction struct {
	DeedID       string
	Status       AuctionStatus
	MinBid       int
	HighBid      int
	HighBidderID string

	order  []string
	active map[string]bool
	turn   int
}

// NewAuction opens an auction among the given bidders, in seating order.
func NewAuction(deedID string, bidders []string, minBid int) *Auction {
	a := &Auction{
		DeedID: deedID,
		Status: AuctionOpen,
		MinBid: minBid,
		order:  append([]string(nil), bidders...),
		active: make(map[string]bool, len(bidders)),
	}
	for _, id := range bidders {
		a.active[id] = true
	}
	return a
}

// CurrentBidder returns the player whose bid or pass is expected, or ""
// when the auction has closed.
func (a *Auction) CurrentBidder() string {
	if a.Closed() || len(a.order) == 0 {
		return ""
	}
	for i := 0; i < len(a.order); i++ {
		id := a.order[(a.turn+i)%len(a.order)]
		if a.active[id] {
			a.turn = (a.turn + i) % len(a.order)
			return id
		}
	}
	return ""
}

// Closed reports whether the auction reached a terminal state.
func (a *Auction) Closed() bool {
	return a.Status == AuctionClosedWon || a.Status == AuctionClosedNoBids
}

// Bid places a bid strictly above the current highest (and at least the
// minimum). The liquidation cap is enforced by the machine, which knows the
// bidder's assets.
func (a *Auction) Bid(playerID string, amount int) error {
	if a.Closed() {
		return fmt.Errorf("%w: auction closed", ErrInvalidBid)
	}
	if playerID != a.CurrentBidder() {
		return fmt.Errorf("%w: not %s's turn to bid", ErrNotYourTurn, playerID)
	}
	if amount < a.MinBid {
		return fmt.Errorf("%w: below minimum bid $%d", ErrInvalidBid, a.MinBid)
	}
	// Every bid strictly exceeds the standing high bid, which starts at
	// zero: nobody wins a deed for $0.
	if amount <= a.HighBid {
		return fmt.Errorf("%w: must exceed current bid $%d", ErrInvalidBid, a.HighBid)
	}
	a.HighBid = amount
	a.HighBidderID = playerID
	a.Status = AuctionBidding
	a.advance()
	a.tryClose()
	return nil
}

// Pass removes the player from the round.
func (a *Auction) Pass(playerID string) error {
	if a.Closed() {
		return fmt.Errorf("%w: auction closed", ErrInvalidBid)
	}
	if playerID != a.CurrentBidder() {
		return fmt.Errorf("%w: not %s's turn to bid", ErrNotYourTurn, playerID)
	}
	a.active[playerID] = false
	a.advance()
	a.tryClose()
	return nil
}

func (a *Auction) advance() {
	a.turn = (a.turn + 1) % len(a.order)
}

func (a *Auction) tryClose() {
	remaining := 0
	var last string
	for _, id := range a.order {
		if a.active[id] {
			remaining++
			last = id
		}
	}
	switch {
	case remaining == 0:
		a.Status = AuctionClosedNoBids
	case remaining == 1 && last == a.HighBidderID:
		// The last bidder standing wins at their own bid.
		a.Status = AuctionClosedWon
	}
}
