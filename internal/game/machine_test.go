package game

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/openmonopoly/monopoly-server-go/internal/config"
	"github.com/openmonopoly/monopoly-server-go/internal/game/history"
	"github.com/openmonopoly/monopoly-server-go/internal/game/rules"
)

var testNames = []string{"Alice", "Bob", "Carol", "Dave", "Erin", "Frank", "Grace", "Heidi"}

func testGameConfig() config.GameConfig {
	return config.GameConfig{
		MinPlayers:    2,
		MaxPlayers:    8,
		StartingMoney: 1500,
		AuctionMinBid: 0,
		Seed:          42,
	}
}

// newTestTable seats and starts a game driven synchronously, with scripted
// dice. Commands are fed straight into handleCommand, no goroutine involved.
func newTestTable(t *testing.T, players int, rolls ...[2]int) *Table {
	t.Helper()
	return newTestTableCfg(t, testGameConfig(), players, rolls...)
}

func newTestTableCfg(t *testing.T, cfg config.GameConfig, players int, rolls ...[2]int) *Table {
	t.Helper()
	tbl := NewTable("test-game", cfg, 32, zaptest.NewLogger(t))
	tbl.SetRoller(&rules.ScriptedRoller{Rolls: rolls})
	for i := 0; i < players; i++ {
		tbl.handleCommand(Command{
			Type:     CmdHello,
			PlayerID: fmt.Sprintf("p%d", i+1),
			Name:     testNames[i],
		})
	}
	tbl.handleCommand(Command{Type: CmdStartGame, PlayerID: "p1"})
	require.True(t, tbl.started, "game should have started")
	require.Equal(t, rules.PhasePreRoll, tbl.state.Phase)
	return tbl
}

// grant hands a deed to a player outside the ledger, for test setup only.
func grant(tbl *Table, playerID, deedID string) {
	deed := tbl.state.Deeds[deedID]
	deed.OwnerID = playerID
	tbl.state.PlayerByID(playerID).AddProperty(deedID)
}

func TestRollMoveAndBuy(t *testing.T) {
	tbl := newTestTable(t, 2, [2]int{1, 2})
	p1 := tbl.state.PlayerByID("p1")

	tbl.handleCommand(Command{Type: CmdRollDice, PlayerID: "p1"})
	assert.Equal(t, 3, p1.Position)
	assert.Equal(t, rules.PhasePropertyDecision, tbl.state.Phase)

	tbl.handleCommand(Command{Type: CmdBuyProperty, PlayerID: "p1"})
	assert.Equal(t, 1440, p1.Money)
	assert.Equal(t, "p1", tbl.state.Deeds["baltic-avenue"].OwnerID)
	assert.True(t, p1.Owns("baltic-avenue"))
	assert.Equal(t, rules.PhasePostAction, tbl.state.Phase)

	tbl.handleCommand(Command{Type: CmdEndTurn, PlayerID: "p1"})
	assert.Equal(t, "p2", tbl.state.CurrentPlayer().ID)
	assert.Equal(t, rules.PhasePreRoll, tbl.state.Phase)
}

func TestRollRejectedOutOfTurn(t *testing.T) {
	tbl := newTestTable(t, 2, [2]int{1, 2})

	tbl.handleCommand(Command{Type: CmdRollDice, PlayerID: "p2"})
	assert.Equal(t, rules.PhasePreRoll, tbl.state.Phase)
	assert.Equal(t, 0, tbl.state.PlayerByID("p2").Position)
	assert.Equal(t, 1500, tbl.state.PlayerByID("p2").Money)
}

func TestPassingGoPaysBonus(t *testing.T) {
	tbl := newTestTable(t, 2, [2]int{1, 4})
	p1 := tbl.state.PlayerByID("p1")
	p1.Position = 38

	tbl.handleCommand(Command{Type: CmdRollDice, PlayerID: "p1"})
	assert.Equal(t, 3, p1.Position)
	// Go bonus lands before the property decision.
	assert.Equal(t, 1700, p1.Money)
	assert.Equal(t, rules.PhasePropertyDecision, tbl.state.Phase)
}

func TestDoublesGrantExtraRoll(t *testing.T) {
	tbl := newTestTable(t, 2, [2]int{2, 2}, [2]int{3, 3})
	p1 := tbl.state.PlayerByID("p1")

	// First doubles: income tax at 4, then back to PreRoll for the bonus roll.
	tbl.handleCommand(Command{Type: CmdRollDice, PlayerID: "p1"})
	assert.Equal(t, 4, p1.Position)
	assert.Equal(t, 1300, p1.Money)
	assert.Equal(t, rules.PhasePreRoll, tbl.state.Phase)
	assert.Equal(t, "p1", tbl.state.CurrentPlayer().ID)
}

func TestThreeDoublesGoToJail(t *testing.T) {
	tbl := newTestTable(t, 2, [2]int{2, 2}, [2]int{3, 3}, [2]int{4, 4})
	p1 := tbl.state.PlayerByID("p1")

	tbl.handleCommand(Command{Type: CmdRollDice, PlayerID: "p1"}) // 4: income tax
	tbl.handleCommand(Command{Type: CmdRollDice, PlayerID: "p1"}) // 10: just visiting
	tbl.handleCommand(Command{Type: CmdRollDice, PlayerID: "p1"}) // third doubles

	assert.True(t, p1.InJail)
	assert.Equal(t, JailIndex, p1.Position)
	// The third roll's landing is never resolved and no extra roll is owed.
	assert.Equal(t, rules.PhasePostAction, tbl.state.Phase)
	assert.False(t, tbl.state.pendingExtraRoll)
}

func TestGoToJailTile(t *testing.T) {
	tbl := newTestTable(t, 2, [2]int{1, 3})
	p1 := tbl.state.PlayerByID("p1")
	p1.Position = 26

	tbl.handleCommand(Command{Type: CmdRollDice, PlayerID: "p1"})
	assert.True(t, p1.InJail)
	assert.Equal(t, JailIndex, p1.Position)
	assert.Equal(t, rules.PhasePostAction, tbl.state.Phase)

	tbl.handleCommand(Command{Type: CmdEndTurn, PlayerID: "p1"})
	require.Equal(t, "p2", tbl.state.CurrentPlayer().ID)
	tbl.state.Phase = rules.PhasePostAction
	tbl.handleCommand(Command{Type: CmdEndTurn, PlayerID: "p2"})
	// Back to p1, now parked in the jail phase.
	require.Equal(t, "p1", tbl.state.CurrentPlayer().ID)
	assert.Equal(t, rules.PhaseInJail, tbl.state.Phase)
}

func TestRentPayment(t *testing.T) {
	tbl := newTestTable(t, 2, [2]int{1, 2})
	p1 := tbl.state.PlayerByID("p1")
	p2 := tbl.state.PlayerByID("p2")
	grant(tbl, "p2", "baltic-avenue")

	tbl.handleCommand(Command{Type: CmdRollDice, PlayerID: "p1"})
	assert.Equal(t, 3, p1.Position)
	assert.Equal(t, 1500-4, p1.Money)
	assert.Equal(t, 1500+4, p2.Money)
	assert.Equal(t, rules.PhasePostAction, tbl.state.Phase)
}

func TestRentDoubledOnCompleteGroup(t *testing.T) {
	tbl := newTestTable(t, 2, [2]int{1, 2})
	grant(tbl, "p2", "baltic-avenue")
	grant(tbl, "p2", "mediterranean-avenue")

	tbl.handleCommand(Command{Type: CmdRollDice, PlayerID: "p1"})
	assert.Equal(t, 1500-8, tbl.state.PlayerByID("p1").Money)
	assert.Equal(t, 1500+8, tbl.state.PlayerByID("p2").Money)
}

func TestNoRentOnMortgagedProperty(t *testing.T) {
	tbl := newTestTable(t, 2, [2]int{1, 2})
	grant(tbl, "p2", "baltic-avenue")
	tbl.state.Deeds["baltic-avenue"].Mortgaged = true

	tbl.handleCommand(Command{Type: CmdRollDice, PlayerID: "p1"})
	assert.Equal(t, 1500, tbl.state.PlayerByID("p1").Money)
	assert.Equal(t, rules.PhasePostAction, tbl.state.Phase)
}

func TestRailroadRentScales(t *testing.T) {
	tbl := newTestTable(t, 2, [2]int{2, 3})
	grant(tbl, "p2", "reading-railroad")
	grant(tbl, "p2", "pennsylvania-railroad")
	grant(tbl, "p2", "b-and-o-railroad")

	tbl.handleCommand(Command{Type: CmdRollDice, PlayerID: "p1"})
	// Three railroads: 25 * 2^2.
	assert.Equal(t, 1500-100, tbl.state.PlayerByID("p1").Money)
}

func TestUtilityRentUsesDice(t *testing.T) {
	tbl := newTestTable(t, 2, [2]int{4, 6})
	tbl.state.PlayerByID("p1").Position = 2
	grant(tbl, "p2", "electric-company")

	tbl.handleCommand(Command{Type: CmdRollDice, PlayerID: "p1"})
	assert.Equal(t, 12, tbl.state.PlayerByID("p1").Position)
	// One utility: 4x the dice total.
	assert.Equal(t, 1500-4*10, tbl.state.PlayerByID("p1").Money)
}

// --- jail ---

func TestJailPayFine(t *testing.T) {
	tbl := newTestTable(t, 2)
	p1 := tbl.state.PlayerByID("p1")
	tbl.sendToJail(p1)
	tbl.state.Phase = rules.PhaseInJail

	tbl.handleCommand(Command{Type: CmdJailPayFine, PlayerID: "p1"})
	assert.False(t, p1.InJail)
	assert.Equal(t, 1450, p1.Money)
	assert.Equal(t, rules.PhasePreRoll, tbl.state.Phase)
}

func TestJailRollDoublesReleases(t *testing.T) {
	tbl := newTestTable(t, 2, [2]int{2, 2})
	p1 := tbl.state.PlayerByID("p1")
	tbl.sendToJail(p1)
	tbl.state.Phase = rules.PhaseInJail

	tbl.handleCommand(Command{Type: CmdRollDice, PlayerID: "p1"})
	assert.False(t, p1.InJail)
	assert.Equal(t, 14, p1.Position)
	// Jail doubles never earn an extra roll.
	assert.False(t, tbl.state.pendingExtraRoll)
	assert.Equal(t, rules.PhasePropertyDecision, tbl.state.Phase)
}

func TestJailFailedRollStays(t *testing.T) {
	tbl := newTestTable(t, 2, [2]int{1, 2})
	p1 := tbl.state.PlayerByID("p1")
	tbl.sendToJail(p1)
	tbl.state.Phase = rules.PhaseInJail

	tbl.handleCommand(Command{Type: CmdRollDice, PlayerID: "p1"})
	assert.True(t, p1.InJail)
	assert.Equal(t, 1, p1.JailTurns)
	assert.Equal(t, JailIndex, p1.Position)
	assert.Equal(t, rules.PhasePostAction, tbl.state.Phase)
}

func TestJailForcedBailOnThirdTurn(t *testing.T) {
	tbl := newTestTable(t, 2, [2]int{1, 2})
	p1 := tbl.state.PlayerByID("p1")
	tbl.sendToJail(p1)
	p1.JailTurns = 2
	tbl.state.Phase = rules.PhaseInJail

	tbl.handleCommand(Command{Type: CmdRollDice, PlayerID: "p1"})
	assert.False(t, p1.InJail)
	assert.Equal(t, 13, p1.Position)
	assert.Equal(t, 1450, p1.Money)
	assert.Equal(t, rules.PhasePropertyDecision, tbl.state.Phase)
}

func TestJailUseCard(t *testing.T) {
	tbl := newTestTable(t, 2)
	p1 := tbl.state.PlayerByID("p1")
	tbl.sendToJail(p1)
	tbl.state.Phase = rules.PhaseInJail
	p1.JailCards = 1
	p1.jailCardFrom = []string{DeckChance}
	tbl.state.Chance.Remove(jailCardChanceID)
	sizeBefore := tbl.state.Chance.Size()

	tbl.handleCommand(Command{Type: CmdJailUseCard, PlayerID: "p1"})
	assert.False(t, p1.InJail)
	assert.Equal(t, 0, p1.JailCards)
	assert.Equal(t, 1500, p1.Money)
	assert.Equal(t, rules.PhasePreRoll, tbl.state.Phase)
	assert.Equal(t, sizeBefore+1, tbl.state.Chance.Size(), "card returned to its deck")
}

func TestJailUseCardWithoutCard(t *testing.T) {
	tbl := newTestTable(t, 2)
	p1 := tbl.state.PlayerByID("p1")
	tbl.sendToJail(p1)
	tbl.state.Phase = rules.PhaseInJail

	err := tbl.handleJailUseCard("p1")
	assert.ErrorIs(t, err, ErrInvariantViolation)
	assert.True(t, p1.InJail)
}

// --- estate management ---

func TestBuildRequiresCompleteGroup(t *testing.T) {
	tbl := newTestTable(t, 2)
	grant(tbl, "p1", "baltic-avenue")

	err := tbl.handleBuild("p1", "baltic-avenue", false)
	assert.ErrorIs(t, err, ErrInvalidOwnership)
}

func TestBuildEvenRule(t *testing.T) {
	tbl := newTestTable(t, 2)
	grant(tbl, "p1", "baltic-avenue")
	grant(tbl, "p1", "mediterranean-avenue")

	require.NoError(t, tbl.handleBuild("p1", "baltic-avenue", false))
	// Second house on the same street before the sibling has one.
	err := tbl.handleBuild("p1", "baltic-avenue", false)
	assert.ErrorIs(t, err, ErrInvariantViolation)

	require.NoError(t, tbl.handleBuild("p1", "mediterranean-avenue", false))
	require.NoError(t, tbl.handleBuild("p1", "baltic-avenue", false))
	assert.Equal(t, 2, tbl.state.Deeds["baltic-avenue"].Houses)
	assert.Equal(t, 1500-3*50, tbl.state.PlayerByID("p1").Money)
}

func TestMortgageAndUnmortgage(t *testing.T) {
	tbl := newTestTable(t, 2)
	p1 := tbl.state.PlayerByID("p1")
	grant(tbl, "p1", "baltic-avenue")

	require.NoError(t, tbl.handleMortgage("p1", "baltic-avenue"))
	assert.True(t, tbl.state.Deeds["baltic-avenue"].Mortgaged)
	assert.Equal(t, 1530, p1.Money)

	require.NoError(t, tbl.handleUnmortgage("p1", "baltic-avenue"))
	assert.False(t, tbl.state.Deeds["baltic-avenue"].Mortgaged)
	// 30 mortgage value plus 10% interest.
	assert.Equal(t, 1530-33, p1.Money)
}

func TestSellBuildingRefundsHalf(t *testing.T) {
	tbl := newTestTable(t, 2)
	grant(tbl, "p1", "baltic-avenue")
	grant(tbl, "p1", "mediterranean-avenue")
	require.NoError(t, tbl.handleBuild("p1", "baltic-avenue", false))
	moneyAfterBuild := tbl.state.PlayerByID("p1").Money

	require.NoError(t, tbl.handleSellBuilding("p1", "baltic-avenue"))
	assert.Equal(t, 0, tbl.state.Deeds["baltic-avenue"].Houses)
	assert.Equal(t, moneyAfterBuild+25, tbl.state.PlayerByID("p1").Money)
}

// --- cards ---

// stackChance replaces the chance deck so the next draw is known.
func stackChance(tbl *Table, cards ...Card) {
	tbl.state.Chance = NewDeck(DeckChance, cards, nil)
}

func TestCardAdvanceAcrossGoPaysBonus(t *testing.T) {
	tbl := newTestTable(t, 2, [2]int{1, 2})
	p1 := tbl.state.PlayerByID("p1")
	p1.Position = 33 // rolls onto Chance at 36
	stackChance(tbl, Card{ID: 901, Text: "Advance to St. Charles Place.", Kind: CardAdvanceToAbsolute, Value: 11})

	tbl.handleCommand(Command{Type: CmdRollDice, PlayerID: "p1"})
	assert.Equal(t, 11, p1.Position)
	// Passing Go on the way pays the bonus before the landing resolves.
	assert.Equal(t, 1700, p1.Money)
	assert.Equal(t, rules.PhasePropertyDecision, tbl.state.Phase)
}

func TestCardPayEachPlayer(t *testing.T) {
	tbl := newTestTable(t, 3, [2]int{1, 2})
	p1 := tbl.state.PlayerByID("p1")
	p1.Position = 4 // rolls onto Chance at 7
	stackChance(tbl, Card{ID: 902, Text: "Pay each player $50.", Kind: CardPayEachPlayer, Value: 50})

	tbl.handleCommand(Command{Type: CmdRollDice, PlayerID: "p1"})
	assert.Equal(t, 1400, p1.Money)
	assert.Equal(t, 1550, tbl.state.PlayerByID("p2").Money)
	assert.Equal(t, 1550, tbl.state.PlayerByID("p3").Money)
	assert.Equal(t, rules.PhasePostAction, tbl.state.Phase)
}

func TestCardReceiveFromEachPlayer(t *testing.T) {
	tbl := newTestTable(t, 3, [2]int{1, 2})
	p1 := tbl.state.PlayerByID("p1")
	p1.Position = 4
	stackChance(tbl, Card{ID: 903, Text: "Collect $50 from every player.", Kind: CardReceiveFromEachPlayer, Value: 50})

	tbl.handleCommand(Command{Type: CmdRollDice, PlayerID: "p1"})
	assert.Equal(t, 1600, p1.Money)
	assert.Equal(t, 1450, tbl.state.PlayerByID("p2").Money)
	assert.Equal(t, 1450, tbl.state.PlayerByID("p3").Money)
	assert.Equal(t, rules.PhasePostAction, tbl.state.Phase)
}

func TestCardStreetRepairs(t *testing.T) {
	tbl := newTestTable(t, 2, [2]int{1, 2})
	p1 := tbl.state.PlayerByID("p1")
	p1.Position = 4
	grant(tbl, "p1", "baltic-avenue")
	grant(tbl, "p1", "mediterranean-avenue")
	tbl.state.Deeds["baltic-avenue"].Houses = 3
	tbl.state.Deeds["mediterranean-avenue"].Hotel = true
	stackChance(tbl, Card{ID: 904, Text: "Make general repairs.", Kind: CardStreetRepairs, Value: 25, Value2: 100})

	tbl.handleCommand(Command{Type: CmdRollDice, PlayerID: "p1"})
	// 3 houses at $25 plus one hotel at $100.
	assert.Equal(t, 1500-175, p1.Money)
	assert.Equal(t, rules.PhasePostAction, tbl.state.Phase)
}

func TestCardKeepJailCardLeavesDeck(t *testing.T) {
	tbl := newTestTable(t, 2, [2]int{1, 2})
	p1 := tbl.state.PlayerByID("p1")
	p1.Position = 4
	stackChance(tbl,
		Card{ID: jailCardChanceID, Text: "Get Out of Jail Free.", Kind: CardKeepJailCard},
		Card{ID: 905, Text: "Bank pays you dividend of $50.", Kind: CardReceiveMoney, Value: 50},
	)

	tbl.handleCommand(Command{Type: CmdRollDice, PlayerID: "p1"})
	assert.Equal(t, 1, p1.JailCards)
	assert.Equal(t, []string{DeckChance}, p1.jailCardFrom)
	// The kept card leaves the cycle until it is played back in.
	assert.Equal(t, 1, tbl.state.Chance.Size())
	assert.Equal(t, rules.PhasePostAction, tbl.state.Phase)
}

// --- undo/redo ---

func TestUndoRedoPurchase(t *testing.T) {
	tbl := newTestTable(t, 2, [2]int{1, 2})
	p1 := tbl.state.PlayerByID("p1")

	tbl.handleCommand(Command{Type: CmdRollDice, PlayerID: "p1"})
	tbl.handleCommand(Command{Type: CmdBuyProperty, PlayerID: "p1"})
	require.Equal(t, 1440, p1.Money)

	tbl.handleCommand(Command{Type: CmdUndo, PlayerID: "p1"})
	assert.Equal(t, 1500, p1.Money)
	assert.Equal(t, Unowned, tbl.state.Deeds["baltic-avenue"].OwnerID)
	assert.False(t, p1.Owns("baltic-avenue"))

	tbl.handleCommand(Command{Type: CmdRedo, PlayerID: "p1"})
	assert.Equal(t, 1440, p1.Money)
	assert.Equal(t, "p1", tbl.state.Deeds["baltic-avenue"].OwnerID)
}

func TestUndoRejectedOutOfRestPhase(t *testing.T) {
	tbl := newTestTable(t, 2, [2]int{1, 2})
	tbl.handleCommand(Command{Type: CmdRollDice, PlayerID: "p1"})
	require.Equal(t, rules.PhasePropertyDecision, tbl.state.Phase)

	err := tbl.handleUndo("p1")
	assert.ErrorIs(t, err, ErrWrongPhase)
}

func TestRentNotUndoable(t *testing.T) {
	tbl := newTestTable(t, 2, [2]int{1, 2})
	p1 := tbl.state.PlayerByID("p1")
	grant(tbl, "p2", "baltic-avenue")

	tbl.handleCommand(Command{Type: CmdRollDice, PlayerID: "p1"})
	require.Equal(t, rules.PhasePostAction, tbl.state.Phase)
	require.Equal(t, 1496, p1.Money)

	err := tbl.handleUndo("p1")
	assert.ErrorIs(t, err, history.ErrActionNotReversible)
	assert.Equal(t, 1496, p1.Money)
	assert.Equal(t, 1504, tbl.state.PlayerByID("p2").Money)
	assert.Equal(t, 3, p1.Position)
}

func TestAuctionPaymentNotUndoable(t *testing.T) {
	tbl := newTestTable(t, 3, [2]int{1, 2})
	tbl.handleCommand(Command{Type: CmdRollDice, PlayerID: "p1"})
	tbl.handleCommand(Command{Type: CmdDeclineBuy, PlayerID: "p1"})
	tbl.handleCommand(Command{Type: CmdBid, PlayerID: "p2", Amount: 60})
	tbl.handleCommand(Command{Type: CmdPassBid, PlayerID: "p3"})
	require.Equal(t, rules.PhasePostAction, tbl.state.Phase)
	require.Equal(t, "p2", tbl.state.Deeds["baltic-avenue"].OwnerID)

	err := tbl.handleUndo("p1")
	assert.ErrorIs(t, err, history.ErrActionNotReversible)
	assert.Equal(t, 1440, tbl.state.PlayerByID("p2").Money)
	assert.Equal(t, "p2", tbl.state.Deeds["baltic-avenue"].OwnerID)
}

// --- debt and bankruptcy ---

func TestRentIntoDebtResolution(t *testing.T) {
	tbl := newTestTable(t, 2, [2]int{2, 3})
	p1 := tbl.state.PlayerByID("p1")
	p1.Position = 34
	p1.Money = 50
	grant(tbl, "p1", "baltic-avenue")
	grant(tbl, "p1", "mediterranean-avenue")
	grant(tbl, "p2", "boardwalk")
	grant(tbl, "p2", "park-place")

	// Lands on Boardwalk: 50 base rent doubled on the complete group.
	tbl.handleCommand(Command{Type: CmdRollDice, PlayerID: "p1"})
	assert.Equal(t, 39, p1.Position)
	assert.Equal(t, -50, p1.Money)
	assert.Equal(t, 1600, tbl.state.PlayerByID("p2").Money)
	assert.Equal(t, rules.PhaseDebtResolution, tbl.state.Phase)
	require.NotNil(t, tbl.state.Debt)

	// One mortgage is not enough.
	tbl.handleCommand(Command{Type: CmdMortgage, PlayerID: "p1", PropertyID: "baltic-avenue"})
	assert.Equal(t, -20, p1.Money)
	assert.Equal(t, rules.PhaseDebtResolution, tbl.state.Phase)

	// The second one makes the debtor whole and resumes the turn.
	tbl.handleCommand(Command{Type: CmdMortgage, PlayerID: "p1", PropertyID: "mediterranean-avenue"})
	assert.Equal(t, 10, p1.Money)
	assert.Nil(t, tbl.state.Debt)
	assert.Equal(t, rules.PhasePostAction, tbl.state.Phase)
}

func TestDebtorMayNotRoll(t *testing.T) {
	tbl := newTestTable(t, 2, [2]int{2, 3})
	p1 := tbl.state.PlayerByID("p1")
	p1.Position = 34
	p1.Money = 50
	grant(tbl, "p1", "baltic-avenue")
	grant(tbl, "p1", "mediterranean-avenue")
	grant(tbl, "p2", "boardwalk")
	grant(tbl, "p2", "park-place")

	tbl.handleCommand(Command{Type: CmdRollDice, PlayerID: "p1"})
	require.Equal(t, rules.PhaseDebtResolution, tbl.state.Phase)

	err := tbl.dispatch(Command{Type: CmdEndTurn, PlayerID: "p1"})
	assert.ErrorIs(t, err, ErrWrongPhase)
}

func TestConcurrentDebtsResolveInTurn(t *testing.T) {
	tbl := newTestTable(t, 3, [2]int{1, 2})
	p1 := tbl.state.PlayerByID("p1")
	p2 := tbl.state.PlayerByID("p2")
	p3 := tbl.state.PlayerByID("p3")
	p1.Position = 4
	p2.Money = 20
	p3.Money = 30
	grant(tbl, "p2", "boardwalk")
	grant(tbl, "p3", "park-place")
	stackChance(tbl, Card{ID: 906, Text: "Collect $50 from every player.", Kind: CardReceiveFromEachPlayer, Value: 50})

	// Both payers can cover by liquidating; both pay in full and go
	// negative, one after the other.
	tbl.handleCommand(Command{Type: CmdRollDice, PlayerID: "p1"})
	assert.Equal(t, 1600, p1.Money)
	assert.Equal(t, -30, p2.Money)
	assert.Equal(t, -20, p3.Money)
	require.Equal(t, rules.PhaseDebtResolution, tbl.state.Phase)
	require.NotNil(t, tbl.state.Debt)
	assert.Equal(t, "p2", tbl.state.Debt.DebtorID)
	require.Len(t, tbl.state.DebtQueue, 1)

	// The waiting debtor has no floor yet.
	err := tbl.handleMortgage("p3", "park-place")
	assert.ErrorIs(t, err, ErrNotYourTurn)

	tbl.handleCommand(Command{Type: CmdMortgage, PlayerID: "p2", PropertyID: "boardwalk"})
	assert.Equal(t, 170, p2.Money)
	// p2 is whole; the queued debtor takes the floor.
	require.Equal(t, rules.PhaseDebtResolution, tbl.state.Phase)
	require.NotNil(t, tbl.state.Debt)
	assert.Equal(t, "p3", tbl.state.Debt.DebtorID)
	assert.Empty(t, tbl.state.DebtQueue)

	tbl.handleCommand(Command{Type: CmdMortgage, PlayerID: "p3", PropertyID: "park-place"})
	assert.Equal(t, 155, p3.Money)
	assert.Nil(t, tbl.state.Debt)
	assert.Equal(t, rules.PhasePostAction, tbl.state.Phase)
}

func TestBankruptcyOnUnpayableRent(t *testing.T) {
	tbl := newTestTable(t, 2, [2]int{2, 3})
	p1 := tbl.state.PlayerByID("p1")
	p2 := tbl.state.PlayerByID("p2")
	p1.Position = 34
	p1.Money = 50
	grant(tbl, "p2", "boardwalk")
	grant(tbl, "p2", "park-place")

	tbl.handleCommand(Command{Type: CmdRollDice, PlayerID: "p1"})
	assert.True(t, p1.Bankrupt)
	assert.Equal(t, 0, p1.Money)
	// The whole estate, 50 in cash, goes to the creditor.
	assert.Equal(t, 1550, p2.Money)
	// Two players: the game is over.
	assert.Equal(t, rules.PhaseGameOver, tbl.state.Phase)
}

func TestBankruptcyTransfersDeeds(t *testing.T) {
	tbl := newTestTable(t, 3, [2]int{2, 3})
	p1 := tbl.state.PlayerByID("p1")
	p1.Position = 34
	p1.Money = 10
	grant(tbl, "p1", "baltic-avenue")
	grant(tbl, "p2", "boardwalk")
	grant(tbl, "p2", "park-place")

	tbl.handleCommand(Command{Type: CmdRollDice, PlayerID: "p1"})
	require.True(t, p1.Bankrupt)
	assert.Equal(t, "p2", tbl.state.Deeds["baltic-avenue"].OwnerID)
	assert.True(t, tbl.state.PlayerByID("p2").Owns("baltic-avenue"))
	// Three players: game continues, turn moves on.
	assert.Equal(t, "p2", tbl.state.CurrentPlayer().ID)
	assert.Equal(t, rules.PhasePreRoll, tbl.state.Phase)
}

func TestBankruptPlayerSkippedInRotation(t *testing.T) {
	tbl := newTestTable(t, 3)
	tbl.state.PlayerByID("p2").Bankrupt = true

	tbl.state.Phase = rules.PhasePostAction
	tbl.handleCommand(Command{Type: CmdEndTurn, PlayerID: "p1"})
	assert.Equal(t, "p3", tbl.state.CurrentPlayer().ID)
}

// --- free parking house rule ---

func TestFreeParkingJackpot(t *testing.T) {
	cfg := testGameConfig()
	cfg.FreeParkingJackpot = true
	tbl := newTestTableCfg(t, cfg, 2, [2]int{1, 3}, [2]int{2, 3})
	p1 := tbl.state.PlayerByID("p1")
	p2 := tbl.state.PlayerByID("p2")

	// p1 pays income tax into the pot.
	tbl.handleCommand(Command{Type: CmdRollDice, PlayerID: "p1"})
	assert.Equal(t, 1300, p1.Money)
	assert.Equal(t, IncomeTax, tbl.state.FreeParkingPot)
	tbl.handleCommand(Command{Type: CmdEndTurn, PlayerID: "p1"})

	// p2 lands on Free Parking and collects it.
	p2.Position = 15
	tbl.handleCommand(Command{Type: CmdRollDice, PlayerID: "p2"})
	assert.Equal(t, FreeParkingIndex, p2.Position)
	assert.Equal(t, 1700, p2.Money)
	assert.Equal(t, 0, tbl.state.FreeParkingPot)
}

func TestFreeParkingDisabledByDefault(t *testing.T) {
	tbl := newTestTable(t, 2, [2]int{1, 3})

	tbl.handleCommand(Command{Type: CmdRollDice, PlayerID: "p1"})
	assert.Equal(t, 0, tbl.state.FreeParkingPot)
}

// --- disconnect ---

func TestDisconnectAutoPassesTurn(t *testing.T) {
	tbl := newTestTable(t, 3)

	tbl.handleCommand(Command{Type: CmdDisconnect, PlayerID: "p2"})
	assert.False(t, tbl.state.PlayerByID("p2").Connected)

	tbl.state.Phase = rules.PhasePostAction
	tbl.handleCommand(Command{Type: CmdEndTurn, PlayerID: "p1"})
	// p2's seat is skipped while empty.
	assert.Equal(t, "p3", tbl.state.CurrentPlayer().ID)
	assert.Equal(t, rules.PhasePreRoll, tbl.state.Phase)
}

func TestDisconnectDuringPropertyDecisionAuctions(t *testing.T) {
	tbl := newTestTable(t, 3, [2]int{1, 2})
	tbl.handleCommand(Command{Type: CmdRollDice, PlayerID: "p1"})
	require.Equal(t, rules.PhasePropertyDecision, tbl.state.Phase)

	tbl.handleCommand(Command{Type: CmdDisconnect, PlayerID: "p1"})
	assert.Equal(t, rules.PhaseAuction, tbl.state.Phase)
	require.NotNil(t, tbl.state.Auction)
	assert.Equal(t, "baltic-avenue", tbl.state.Auction.DeedID)
}

func TestDisconnectCancelsTrade(t *testing.T) {
	tbl := newTestTable(t, 2)
	grant(tbl, "p1", "baltic-avenue")
	tbl.handleCommand(Command{
		Type: CmdProposeTrade, PlayerID: "p1", OtherPlayerID: "p2",
		Offer: TradeSide{Deeds: []string{"baltic-avenue"}}, Request: TradeSide{Money: 100},
	})
	require.Equal(t, rules.PhaseTrading, tbl.state.Phase)

	tbl.handleCommand(Command{Type: CmdDisconnect, PlayerID: "p2"})
	assert.Nil(t, tbl.state.Trade)
	assert.Equal(t, rules.PhasePreRoll, tbl.state.Phase)
}

func TestDisconnectedDebtorGoesBankruptOutOfTurn(t *testing.T) {
	tbl := newTestTable(t, 3, [2]int{1, 2})
	p1 := tbl.state.PlayerByID("p1")
	p2 := tbl.state.PlayerByID("p2")
	p1.Position = 4
	p2.Money = 20
	grant(tbl, "p2", "boardwalk")
	stackChance(tbl, Card{ID: 907, Text: "Collect $50 from every player.", Kind: CardReceiveFromEachPlayer, Value: 50})

	tbl.handleCommand(Command{Type: CmdRollDice, PlayerID: "p1"})
	require.Equal(t, rules.PhaseDebtResolution, tbl.state.Phase)
	require.NotNil(t, tbl.state.Debt)
	require.Equal(t, "p2", tbl.state.Debt.DebtorID)
	require.Equal(t, "p1", tbl.state.CurrentPlayer().ID)

	// The debtor leaves while it is not their turn.
	tbl.handleCommand(Command{Type: CmdDisconnect, PlayerID: "p2"})
	assert.True(t, p2.Bankrupt)
	assert.Equal(t, "p1", tbl.state.Deeds["boardwalk"].OwnerID)
	assert.Nil(t, tbl.state.Debt)
	// The turn-owner's turn resumes.
	assert.Equal(t, "p1", tbl.state.CurrentPlayer().ID)
	assert.Equal(t, rules.PhasePostAction, tbl.state.Phase)
}

func TestReconnectRestoresSeat(t *testing.T) {
	tbl := newTestTable(t, 3)
	tbl.handleCommand(Command{Type: CmdDisconnect, PlayerID: "p2"})
	require.False(t, tbl.state.PlayerByID("p2").Connected)

	tbl.handleCommand(Command{Type: CmdHello, PlayerID: "p2"})
	assert.True(t, tbl.state.PlayerByID("p2").Connected)
	assert.Len(t, tbl.state.Players, 3, "reconnect must not add a seat")
}

// --- game over ---

func TestWinnerDeclaredWhenOneRemains(t *testing.T) {
	tbl := newTestTable(t, 3)
	var winnerID string
	tbl.bus.SubscribeTyped(rules.EventGameEnd, func(ev rules.Event) {
		winnerID = ev.PlayerID
	})

	tbl.state.PlayerByID("p1").Bankrupt = true
	tbl.state.PlayerByID("p3").Bankrupt = true
	tbl.finishGame()

	assert.Equal(t, rules.PhaseGameOver, tbl.state.Phase)
	assert.Equal(t, "p2", winnerID)
}

func TestCommandsRejectedAfterGameOver(t *testing.T) {
	tbl := newTestTable(t, 2, [2]int{1, 2})
	tbl.state.Phase = rules.PhaseGameOver

	tbl.handleCommand(Command{Type: CmdRollDice, PlayerID: "p1"})
	assert.Equal(t, rules.PhaseGameOver, tbl.state.Phase)
	assert.Equal(t, 0, tbl.state.PlayerByID("p1").Position)
}
