package game

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openmonopoly/monopoly-server-go/internal/game/rules"
)

func TestAuctionBidAndPass(t *testing.T) {
	a := NewAuction("baltic-avenue", []string{"a", "b", "c"}, 0)
	require.Equal(t, "a", a.CurrentBidder())

	require.NoError(t, a.Bid("a", 50))
	require.Equal(t, "b", a.CurrentBidder())
	require.NoError(t, a.Bid("b", 60))
	require.NoError(t, a.Pass("c"))
	require.NoError(t, a.Pass("a"))

	// Only the high bidder remains.
	assert.True(t, a.Closed())
	assert.Equal(t, AuctionClosedWon, a.Status)
	assert.Equal(t, "b", a.HighBidderID)
	assert.Equal(t, 60, a.HighBid)
}

func TestAuctionBidMustExceedHigh(t *testing.T) {
	a := NewAuction("baltic-avenue", []string{"a", "b"}, 0)
	require.NoError(t, a.Bid("a", 50))

	err := a.Bid("b", 50)
	assert.ErrorIs(t, err, ErrInvalidBid)
	err = a.Bid("b", 40)
	assert.ErrorIs(t, err, ErrInvalidBid)
	require.NoError(t, a.Bid("b", 51))
}

func TestAuctionZeroBidNeverWins(t *testing.T) {
	a := NewAuction("baltic-avenue", []string{"a", "b"}, 0)

	// With no minimum the floor is still above $0.
	err := a.Bid("a", 0)
	assert.ErrorIs(t, err, ErrInvalidBid)
	require.NoError(t, a.Bid("a", 1))

	// A positive minimum may be met exactly by the opening bid.
	a = NewAuction("baltic-avenue", []string{"a", "b"}, 50)
	require.NoError(t, a.Bid("a", 50))
	err = a.Bid("b", 50)
	assert.ErrorIs(t, err, ErrInvalidBid)
}

func TestAuctionOutOfTurnBid(t *testing.T) {
	a := NewAuction("baltic-avenue", []string{"a", "b"}, 0)
	err := a.Bid("b", 10)
	assert.ErrorIs(t, err, ErrNotYourTurn)
}

func TestAuctionAllPass(t *testing.T) {
	a := NewAuction("baltic-avenue", []string{"a", "b", "c"}, 0)
	require.NoError(t, a.Pass("a"))
	require.NoError(t, a.Pass("b"))
	require.NoError(t, a.Pass("c"))

	assert.True(t, a.Closed())
	assert.Equal(t, AuctionClosedNoBids, a.Status)
	assert.Empty(t, a.HighBidderID)
}

func TestDeclineStartsAuction(t *testing.T) {
	tbl := newTestTable(t, 4, [2]int{1, 2})
	tbl.handleCommand(Command{Type: CmdRollDice, PlayerID: "p1"})
	require.Equal(t, rules.PhasePropertyDecision, tbl.state.Phase)

	tbl.handleCommand(Command{Type: CmdDeclineBuy, PlayerID: "p1"})
	require.Equal(t, rules.PhaseAuction, tbl.state.Phase)
	a := tbl.state.Auction
	require.NotNil(t, a)
	// The declining player does not bid.
	assert.Equal(t, "p2", a.CurrentBidder())

	tbl.handleCommand(Command{Type: CmdBid, PlayerID: "p2", Amount: 50})
	tbl.handleCommand(Command{Type: CmdBid, PlayerID: "p3", Amount: 60})
	tbl.handleCommand(Command{Type: CmdPassBid, PlayerID: "p4"})
	tbl.handleCommand(Command{Type: CmdPassBid, PlayerID: "p2"})

	// p3 wins at 60 and pays the bank; p1's turn resumes.
	assert.Nil(t, tbl.state.Auction)
	assert.Equal(t, "p3", tbl.state.Deeds["baltic-avenue"].OwnerID)
	assert.Equal(t, 1440, tbl.state.PlayerByID("p3").Money)
	assert.Equal(t, 1500, tbl.state.PlayerByID("p2").Money)
	assert.Equal(t, rules.PhasePostAction, tbl.state.Phase)
}

func TestAuctionNoBidsLeavesPropertyUnowned(t *testing.T) {
	tbl := newTestTable(t, 3, [2]int{1, 2})
	tbl.handleCommand(Command{Type: CmdRollDice, PlayerID: "p1"})
	tbl.handleCommand(Command{Type: CmdDeclineBuy, PlayerID: "p1"})

	tbl.handleCommand(Command{Type: CmdPassBid, PlayerID: "p2"})
	tbl.handleCommand(Command{Type: CmdPassBid, PlayerID: "p3"})

	assert.Nil(t, tbl.state.Auction)
	assert.Equal(t, Unowned, tbl.state.Deeds["baltic-avenue"].OwnerID)
	assert.Equal(t, rules.PhasePostAction, tbl.state.Phase)
}

func TestBidCappedByLiquidationValue(t *testing.T) {
	tbl := newTestTable(t, 3, [2]int{1, 2})
	tbl.state.PlayerByID("p2").Money = 40
	tbl.handleCommand(Command{Type: CmdRollDice, PlayerID: "p1"})
	tbl.handleCommand(Command{Type: CmdDeclineBuy, PlayerID: "p1"})

	err := tbl.handleBid("p2", 100)
	assert.ErrorIs(t, err, ErrInvalidBid)
	// A bid within liquidation value is fine.
	require.NoError(t, tbl.handleBid("p2", 40))
}
