package game

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/openmonopoly/monopoly-server-go/internal/game/history"
)

func newTestLedger(t *testing.T, players ...string) (*Ledger, *GameState, *history.Manager) {
	t.Helper()
	state := NewGameState("ledger-test", 1)
	for _, id := range players {
		state.Players = append(state.Players, NewPlayer(id, id, 1500))
	}
	hist := history.NewManager(32)
	return NewLedger(state, hist, zaptest.NewLogger(t)), state, hist
}

func TestApplyTransfersMoney(t *testing.T) {
	l, state, _ := newTestLedger(t, "a", "b")

	tx, err := l.Apply(TxIntent{Type: TxRent, From: "a", To: "b", Amount: 100, Reversible: true})
	require.NoError(t, err)
	assert.True(t, tx.Completed)
	assert.Equal(t, 1400, state.PlayerByID("a").Money)
	assert.Equal(t, 1600, state.PlayerByID("b").Money)
	assert.Len(t, l.Entries(), 1)
}

func TestApplyRejectsInsufficientFunds(t *testing.T) {
	l, state, hist := newTestLedger(t, "a", "b")
	state.PlayerByID("a").Money = 50

	_, err := l.Apply(TxIntent{Type: TxRent, From: "a", To: "b", Amount: 100})
	assert.ErrorIs(t, err, ErrInsufficientFunds)
	// Nothing happened: no entry, no history, no money moved.
	assert.Equal(t, 50, state.PlayerByID("a").Money)
	assert.Equal(t, 1500, state.PlayerByID("b").Money)
	assert.Empty(t, l.Entries())
	assert.Equal(t, 0, hist.UndoDepth())
}

func TestApplyForcedGoesNegative(t *testing.T) {
	l, state, _ := newTestLedger(t, "a", "b")
	state.PlayerByID("a").Money = 50

	_, err := l.Apply(TxIntent{Type: TxRent, From: "a", To: "b", Amount: 100, Forced: true})
	require.NoError(t, err)
	assert.Equal(t, -50, state.PlayerByID("a").Money)
	assert.Equal(t, 1600, state.PlayerByID("b").Money)
}

func TestPurchaseFlipsDeedToBuyer(t *testing.T) {
	l, state, _ := newTestLedger(t, "a")
	deed := state.Deeds["baltic-avenue"]

	_, err := l.Apply(TxIntent{
		Type: TxPurchase, From: "a", To: Bank, Amount: deed.Price,
		PropertyID: deed.ID, TransferDeed: true, Reversible: true,
	})
	require.NoError(t, err)
	assert.Equal(t, "a", deed.OwnerID)
	assert.True(t, state.PlayerByID("a").Owns(deed.ID))
	assert.Equal(t, 1440, state.PlayerByID("a").Money)
}

func TestPurchaseRejectedWhenOwned(t *testing.T) {
	l, state, _ := newTestLedger(t, "a", "b")
	deed := state.Deeds["baltic-avenue"]
	deed.OwnerID = "b"
	state.PlayerByID("b").AddProperty(deed.ID)

	_, err := l.Apply(TxIntent{
		Type: TxPurchase, From: "a", To: Bank, Amount: deed.Price,
		PropertyID: deed.ID, TransferDeed: true,
	})
	assert.ErrorIs(t, err, ErrInvalidOwnership)
}

func TestApplyRejectsUnknownPlayer(t *testing.T) {
	l, _, _ := newTestLedger(t, "a")
	_, err := l.Apply(TxIntent{Type: TxRent, From: "a", To: "ghost", Amount: 10})
	assert.ErrorIs(t, err, ErrUnknownPlayer)
}

func TestApplyRejectsNegativeAmount(t *testing.T) {
	l, _, _ := newTestLedger(t, "a", "b")
	_, err := l.Apply(TxIntent{Type: TxRent, From: "a", To: "b", Amount: -5})
	assert.ErrorIs(t, err, ErrInvariantViolation)
}

func TestUndoRestoresBothParties(t *testing.T) {
	l, state, hist := newTestLedger(t, "a", "b")
	_, err := l.Apply(TxIntent{Type: TxRent, From: "a", To: "b", Amount: 100, Reversible: true})
	require.NoError(t, err)

	_, err = hist.Undo()
	require.NoError(t, err)
	assert.Equal(t, 1500, state.PlayerByID("a").Money)
	assert.Equal(t, 1500, state.PlayerByID("b").Money)

	_, err = hist.Redo()
	require.NoError(t, err)
	assert.Equal(t, 1400, state.PlayerByID("a").Money)
	assert.Equal(t, 1600, state.PlayerByID("b").Money)
}

func TestHotelRequiresFourHousesAcrossGroup(t *testing.T) {
	l, state, _ := newTestLedger(t, "a")
	p := state.PlayerByID("a")
	p.Money = 5000
	for _, id := range []string{"baltic-avenue", "mediterranean-avenue"} {
		state.Deeds[id].OwnerID = "a"
		p.AddProperty(id)
	}

	_, err := l.BuyBuilding("a", state.Deeds["baltic-avenue"], true)
	assert.ErrorIs(t, err, ErrInvariantViolation)

	for i := 0; i < 4; i++ {
		_, err = l.BuyBuilding("a", state.Deeds["baltic-avenue"], false)
		require.NoError(t, err)
		_, err = l.BuyBuilding("a", state.Deeds["mediterranean-avenue"], false)
		require.NoError(t, err)
	}

	_, err = l.BuyBuilding("a", state.Deeds["baltic-avenue"], true)
	require.NoError(t, err)
	assert.True(t, state.Deeds["baltic-avenue"].Hotel)
	assert.Equal(t, 0, state.Deeds["baltic-avenue"].Houses)
}

func TestBuildRejectedOnMortgagedGroup(t *testing.T) {
	l, state, _ := newTestLedger(t, "a")
	p := state.PlayerByID("a")
	for _, id := range []string{"baltic-avenue", "mediterranean-avenue"} {
		state.Deeds[id].OwnerID = "a"
		p.AddProperty(id)
	}
	state.Deeds["mediterranean-avenue"].Mortgaged = true

	_, err := l.BuyBuilding("a", state.Deeds["baltic-avenue"], false)
	assert.ErrorIs(t, err, ErrInvariantViolation)
}

func TestMortgageRejectedTwice(t *testing.T) {
	l, state, _ := newTestLedger(t, "a")
	state.Deeds["baltic-avenue"].OwnerID = "a"
	state.PlayerByID("a").AddProperty("baltic-avenue")

	_, err := l.Mortgage("a", state.Deeds["baltic-avenue"])
	require.NoError(t, err)
	_, err = l.Mortgage("a", state.Deeds["baltic-avenue"])
	assert.ErrorIs(t, err, ErrInvariantViolation)
}

func TestBankruptLiquidatesEstate(t *testing.T) {
	l, state, _ := newTestLedger(t, "a", "b")
	p := state.PlayerByID("a")
	p.Money = 80
	for _, id := range []string{"baltic-avenue", "mediterranean-avenue"} {
		state.Deeds[id].OwnerID = "a"
		p.AddProperty(id)
	}
	state.Deeds["baltic-avenue"].Houses = 2

	_, err := l.Bankrupt("a", "b")
	require.NoError(t, err)

	assert.True(t, p.Bankrupt)
	assert.Equal(t, 0, p.Money)
	assert.Equal(t, 0, p.PropertyCount())
	// Creditor gets the cash plus half the building value.
	assert.Equal(t, 1500+80+50, state.PlayerByID("b").Money)
	assert.Equal(t, "b", state.Deeds["baltic-avenue"].OwnerID)
	assert.Equal(t, 0, state.Deeds["baltic-avenue"].Houses)
}

func TestBankruptToBankReleasesDeeds(t *testing.T) {
	l, state, _ := newTestLedger(t, "a")
	p := state.PlayerByID("a")
	state.Deeds["baltic-avenue"].OwnerID = "a"
	p.AddProperty("baltic-avenue")

	_, err := l.Bankrupt("a", Bank)
	require.NoError(t, err)
	assert.Equal(t, Unowned, state.Deeds["baltic-avenue"].OwnerID)
}

func TestBankruptcyNotUndoable(t *testing.T) {
	l, _, hist := newTestLedger(t, "a", "b")
	_, err := l.Bankrupt("a", "b")
	require.NoError(t, err)

	_, err = hist.Undo()
	assert.ErrorIs(t, err, history.ErrActionNotReversible)
}
