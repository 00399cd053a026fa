package game

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/openmonopoly/monopoly-server-go/internal/game/history"
)

// Bank is the sentinel party with unlimited funds and sinks. Transfers to or
// from the bank never fail on the bank side.
const Bank = "bank"

// TransactionType classifies a ledger entry.
type TransactionType string

const (
	TxRent           TransactionType = "rent"
	TxPurchase       TransactionType = "purchase"
	TxHousePurchase  TransactionType = "house-purchase"
	TxHotelPurchase  TransactionType = "hotel-purchase"
	TxHouseSale      TransactionType = "house-sale"
	TxHotelSale      TransactionType = "hotel-sale"
	TxMortgage       TransactionType = "mortgage"
	TxUnmortgage     TransactionType = "unmortgage"
	TxTax            TransactionType = "tax"
	TxGoBonus        TransactionType = "go-bonus"
	TxCardEffect     TransactionType = "card-effect"
	TxTrade          TransactionType = "trade"
	TxJailFine       TransactionType = "jail-fine"
	TxAuctionPayment TransactionType = "auction-payment"
	TxPlayerToPlayer TransactionType = "player-to-player"
)

// Transaction is an append-only ledger entry. Immutable once completed; a
// reversal is a new transaction, never a mutation of the original.
type Transaction struct {
	ID         uuid.UUID
	Type       TransactionType
	FromID     string // player id or Bank
	ToID       string
	Amount     int
	PropertyID string
	Seq        uint64
	Timestamp  time.Time
	Completed  bool
}

// TxIntent is what the machine asks the ledger to do. Validate reports
// whether it could apply; apply is all-or-nothing.
type TxIntent struct {
	Type       TransactionType
	From       string
	To         string
	Amount     int
	PropertyID string
	// TransferDeed moves ownership of PropertyID from From to To along
	// with the money.
	TransferDeed bool
	// Forced payments (rent, tax, card effects) may drive the payer
	// negative and trigger debt resolution instead of failing.
	Forced bool
	// Reversible controls how the resulting action is recorded in history.
	Reversible bool
	Describe   string
}

// Ledger validates and atomically applies money and property mutations
// against the entity model. Every successful apply appends exactly one
// Transaction and notifies the history manager.
type Ledger struct {
	state   *GameState
	hist    *history.Manager
	log     *zap.Logger
	entries []Transaction
}

// NewLedger binds a ledger to a game state and history manager.
func NewLedger(state *GameState, hist *history.Manager, logger *zap.Logger) *Ledger {
	return &Ledger{state: state, hist: hist, log: logger}
}

// Entries returns the ledger so far. The slice is the live append-only
// backing array; callers must not mutate it.
func (l *Ledger) Entries() []Transaction {
	return l.entries
}

// Validate checks an intent without applying it.
func (l *Ledger) Validate(intent TxIntent) error {
	if intent.Amount < 0 {
		return fmt.Errorf("%w: negative amount %d", ErrInvariantViolation, intent.Amount)
	}
	from, to := l.state.PlayerByID(intent.From), l.state.PlayerByID(intent.To)
	if intent.From != Bank && from == nil {
		return fmt.Errorf("%w: %s", ErrUnknownPlayer, intent.From)
	}
	if intent.To != Bank && to == nil {
		return fmt.Errorf("%w: %s", ErrUnknownPlayer, intent.To)
	}
	if intent.From != Bank && !intent.Forced && from.Money < intent.Amount {
		return fmt.Errorf("%w: %s has $%d, needs $%d", ErrInsufficientFunds, intent.From, from.Money, intent.Amount)
	}
	if intent.TransferDeed {
		deed, ok := l.state.Deeds[intent.PropertyID]
		if !ok {
			return fmt.Errorf("%w: %s", ErrUnknownProperty, intent.PropertyID)
		}
		holder := intent.From
		if intent.Type == TxPurchase || intent.Type == TxAuctionPayment {
			// Buyer pays, bank-side deed moves the other way.
			holder = Unowned
		}
		if deed.OwnerID != holder {
			return fmt.Errorf("%w: %s not held by %q", ErrInvalidOwnership, intent.PropertyID, holder)
		}
	}
	return nil
}

// Apply validates and applies an intent: debit one party, credit the other,
// optionally flip deed ownership. Either every mutation succeeds or none.
func (l *Ledger) Apply(intent TxIntent) (*Transaction, error) {
	if err := l.Validate(intent); err != nil {
		return nil, err
	}

	from, to := l.state.PlayerByID(intent.From), l.state.PlayerByID(intent.To)
	var deed *Deed
	if intent.TransferDeed {
		deed = l.state.Deeds[intent.PropertyID]
	}

	before := l.captureParties(from, to, deed)

	if from != nil {
		from.Money -= intent.Amount
	}
	if to != nil {
		to.Money += intent.Amount
	}
	if deed != nil {
		switch {
		case intent.Type == TxPurchase || intent.Type == TxAuctionPayment:
			deed.OwnerID = intent.From
			from.AddProperty(deed.ID)
		default:
			if from != nil {
				from.RemoveProperty(deed.ID)
			}
			if to != nil {
				deed.OwnerID = intent.To
				to.AddProperty(deed.ID)
			} else {
				deed.OwnerID = Unowned
			}
		}
	}

	after := l.captureParties(from, to, deed)
	tx := l.append(intent.Type, intent.From, intent.To, intent.Amount, intent.PropertyID)
	l.record(tx, intent.Reversible, intent.describeOr(tx), before, after)
	return tx, nil
}

func (i TxIntent) describeOr(tx *Transaction) string {
	if i.Describe != "" {
		return i.Describe
	}
	return fmt.Sprintf("%s: %s -> %s $%d", tx.Type, tx.FromID, tx.ToID, tx.Amount)
}

// BuyBuilding adds a house (or the hotel when isHotel is set) to a street.
// The color group must be complete, fully unmortgaged, and the build must
// keep house counts even across the group.
func (l *Ledger) BuyBuilding(playerID string, deed *Deed, isHotel bool) (*Transaction, error) {
	p := l.state.PlayerByID(playerID)
	if p == nil {
		return nil, ErrUnknownPlayer
	}
	if deed.OwnerID != playerID {
		return nil, fmt.Errorf("%w: %s does not own %s", ErrInvalidOwnership, playerID, deed.ID)
	}
	if !l.state.GroupComplete(playerID, deed.Group) {
		return nil, fmt.Errorf("%w: group %s incomplete", ErrInvalidOwnership, deed.Group)
	}
	if !l.state.GroupUnmortgaged(deed.Group) {
		return nil, fmt.Errorf("%w: group %s has mortgaged members", ErrInvariantViolation, deed.Group)
	}
	if p.Money < deed.HouseCost {
		return nil, fmt.Errorf("%w: building costs $%d", ErrInsufficientFunds, deed.HouseCost)
	}
	if err := l.checkEvenBuild(deed, isHotel, true); err != nil {
		return nil, err
	}

	before := l.captureParties(p, nil, deed)
	txType := TxHousePurchase
	if isHotel {
		if err := deed.addHotel(); err != nil {
			return nil, err
		}
		txType = TxHotelPurchase
	} else {
		if err := deed.addHouse(); err != nil {
			return nil, err
		}
	}
	p.Money -= deed.HouseCost

	after := l.captureParties(p, nil, deed)
	tx := l.append(txType, playerID, Bank, deed.HouseCost, deed.ID)
	l.record(tx, true, fmt.Sprintf("%s builds on %s", p.Name, deed.Name), before, after)
	return tx, nil
}

// SellBuilding removes the top building from a street, refunding half cost.
func (l *Ledger) SellBuilding(playerID string, deed *Deed) (*Transaction, error) {
	p := l.state.PlayerByID(playerID)
	if p == nil {
		return nil, ErrUnknownPlayer
	}
	if deed.OwnerID != playerID {
		return nil, fmt.Errorf("%w: %s does not own %s", ErrInvalidOwnership, playerID, deed.ID)
	}
	if err := l.checkEvenBuild(deed, deed.Hotel, false); err != nil {
		return nil, err
	}

	before := l.captureParties(p, nil, deed)
	refund := deed.HouseCost / 2
	txType := TxHouseSale
	if deed.Hotel {
		if err := deed.removeHotel(); err != nil {
			return nil, err
		}
		txType = TxHotelSale
	} else {
		if err := deed.removeHouse(); err != nil {
			return nil, err
		}
	}
	p.Money += refund

	after := l.captureParties(p, nil, deed)
	tx := l.append(txType, Bank, playerID, refund, deed.ID)
	l.record(tx, true, fmt.Sprintf("%s sells building on %s", p.Name, deed.Name), before, after)
	return tx, nil
}

// Mortgage pays the owner the mortgage value and flags the deed.
func (l *Ledger) Mortgage(playerID string, deed *Deed) (*Transaction, error) {
	p := l.state.PlayerByID(playerID)
	if p == nil {
		return nil, ErrUnknownPlayer
	}
	if deed.OwnerID != playerID {
		return nil, fmt.Errorf("%w: %s does not own %s", ErrInvalidOwnership, playerID, deed.ID)
	}

	before := l.captureParties(p, nil, deed)
	if err := deed.setMortgaged(true); err != nil {
		return nil, err
	}
	p.Money += deed.MortgageValue

	after := l.captureParties(p, nil, deed)
	tx := l.append(TxMortgage, Bank, playerID, deed.MortgageValue, deed.ID)
	l.record(tx, true, fmt.Sprintf("%s mortgages %s", p.Name, deed.Name), before, after)
	return tx, nil
}

// Unmortgage clears the flag for the mortgage value plus interest.
func (l *Ledger) Unmortgage(playerID string, deed *Deed) (*Transaction, error) {
	p := l.state.PlayerByID(playerID)
	if p == nil {
		return nil, ErrUnknownPlayer
	}
	if deed.OwnerID != playerID {
		return nil, fmt.Errorf("%w: %s does not own %s", ErrInvalidOwnership, playerID, deed.ID)
	}
	cost := UnmortgageCost(deed)
	if p.Money < cost {
		return nil, fmt.Errorf("%w: unmortgaging %s costs $%d", ErrInsufficientFunds, deed.Name, cost)
	}

	before := l.captureParties(p, nil, deed)
	if err := deed.setMortgaged(false); err != nil {
		return nil, err
	}
	p.Money -= cost

	after := l.captureParties(p, nil, deed)
	tx := l.append(TxUnmortgage, playerID, Bank, cost, deed.ID)
	l.record(tx, true, fmt.Sprintf("%s unmortgages %s", p.Name, deed.Name), before, after)
	return tx, nil
}

// UnmortgageCost is the mortgage value plus 10% interest.
func UnmortgageCost(deed *Deed) int {
	return deed.MortgageValue + deed.MortgageValue*unmortgageInterestPct/100
}

// ApplyTrade settles an accepted trade as a single logical transaction:
// every leg is validated up front, then all legs apply, or none.
func (l *Ledger) ApplyTrade(t *Trade) (*Transaction, error) {
	from, to := l.state.PlayerByID(t.FromID), l.state.PlayerByID(t.ToID)
	if from == nil || to == nil {
		return nil, ErrUnknownPlayer
	}
	for _, id := range t.Offer.Deeds {
		if err := l.validateTradeDeed(id, t.FromID); err != nil {
			return nil, err
		}
	}
	for _, id := range t.Request.Deeds {
		if err := l.validateTradeDeed(id, t.ToID); err != nil {
			return nil, err
		}
	}
	if from.Money-t.Offer.Money+t.Request.Money < 0 {
		return nil, fmt.Errorf("%w: %s cannot cover the trade", ErrInsufficientFunds, from.Name)
	}
	if to.Money-t.Request.Money+t.Offer.Money < 0 {
		return nil, fmt.Errorf("%w: %s cannot cover the trade", ErrInsufficientFunds, to.Name)
	}

	touched := append(append([]string(nil), t.Offer.Deeds...), t.Request.Deeds...)
	before := l.capture([]*Player{from, to}, touched)

	from.Money += t.Request.Money - t.Offer.Money
	to.Money += t.Offer.Money - t.Request.Money
	for _, id := range t.Offer.Deeds {
		l.moveDeed(id, from, to)
	}
	for _, id := range t.Request.Deeds {
		l.moveDeed(id, to, from)
	}

	after := l.capture([]*Player{from, to}, touched)
	net := t.Offer.Money - t.Request.Money
	tx := l.append(TxTrade, t.FromID, t.ToID, net, "")
	l.record(tx, true,
		fmt.Sprintf("trade between %s and %s (%d deeds)", from.Name, to.Name, len(touched)),
		before, after)
	return tx, nil
}

func (l *Ledger) validateTradeDeed(deedID, ownerID string) error {
	deed, ok := l.state.Deeds[deedID]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownProperty, deedID)
	}
	if deed.OwnerID != ownerID {
		return fmt.Errorf("%w: %s does not own %s", ErrInvalidOwnership, ownerID, deedID)
	}
	if deed.Houses > 0 || deed.Hotel {
		return fmt.Errorf("%w: %s is improved and cannot be traded", ErrInvalidOwnership, deedID)
	}
	return nil
}

func (l *Ledger) moveDeed(id string, from, to *Player) {
	deed := l.state.Deeds[id]
	from.RemoveProperty(id)
	deed.OwnerID = to.ID
	to.AddProperty(id)
}

// Bankrupt liquidates the debtor: buildings sell back to the bank, all cash
// goes to the creditor, remaining deeds transfer (or revert to unowned when
// the creditor is the bank). Recorded as a non-reversible action.
func (l *Ledger) Bankrupt(debtorID, creditorID string) (*Transaction, error) {
	debtor := l.state.PlayerByID(debtorID)
	if debtor == nil {
		return nil, ErrUnknownPlayer
	}
	creditor := l.state.PlayerByID(creditorID) // nil when bank

	touched := debtor.PropertyIDs()
	parties := []*Player{debtor}
	if creditor != nil {
		parties = append(parties, creditor)
	}
	before := l.capture(parties, touched)

	// Buildings sell for half cost; the proceeds are part of the estate.
	for _, id := range touched {
		deed := l.state.Deeds[id]
		debtor.Money += deed.BuildingValue() / 2
		deed.Houses = 0
		deed.Hotel = false
	}

	settled := debtor.Money
	if settled < 0 {
		settled = 0
	}
	debtor.Money = 0
	if creditor != nil {
		creditor.Money += settled
	}

	for _, id := range touched {
		deed := l.state.Deeds[id]
		debtor.RemoveProperty(id)
		if creditor != nil {
			deed.OwnerID = creditor.ID
			creditor.AddProperty(id)
		} else {
			deed.OwnerID = Unowned
		}
	}
	debtor.Bankrupt = true
	debtor.InJail = false
	debtor.JailTurns = 0

	after := l.capture(parties, touched)
	toID := creditorID
	if creditor == nil {
		toID = Bank
	}
	tx := l.append(TxPlayerToPlayer, debtorID, toID, settled, "")
	l.record(tx, false, fmt.Sprintf("%s goes bankrupt", debtor.Name), before, after)

	if l.log != nil {
		l.log.Info("player bankrupt",
			zap.String("game_id", l.state.ID),
			zap.String("player_id", debtorID),
			zap.String("creditor", toID),
			zap.Int("estate", settled),
		)
	}
	return tx, nil
}

// checkEvenBuild enforces even development across a group: build only on a
// minimum member, sell only from a maximum member.
func (l *Ledger) checkEvenBuild(deed *Deed, isHotel, building bool) error {
	members := l.state.OwnedInGroup(deed.OwnerID, deed.Group)
	for _, other := range members {
		if other.ID == deed.ID {
			continue
		}
		if building {
			if deed.DevelopmentLevel() > other.DevelopmentLevel() {
				return fmt.Errorf("%w: build evenly across %s", ErrInvariantViolation, deed.Group)
			}
			if isHotel && other.DevelopmentLevel() < MaxHouses {
				return fmt.Errorf("%w: hotel requires %d houses across %s", ErrInvariantViolation, MaxHouses, deed.Group)
			}
		} else if deed.DevelopmentLevel() < other.DevelopmentLevel() {
			return fmt.Errorf("%w: sell evenly across %s", ErrInvariantViolation, deed.Group)
		}
	}
	return nil
}

func (l *Ledger) append(txType TransactionType, from, to string, amount int, propertyID string) *Transaction {
	tx := Transaction{
		ID:         uuid.New(),
		Type:       txType,
		FromID:     from,
		ToID:       to,
		Amount:     amount,
		PropertyID: propertyID,
		Seq:        l.state.nextSeq(),
		Timestamp:  time.Now(),
		Completed:  true,
	}
	l.entries = append(l.entries, tx)
	if l.log != nil {
		l.log.Debug("transaction applied",
			zap.String("game_id", l.state.ID),
			zap.String("type", string(txType)),
			zap.String("from", from),
			zap.String("to", to),
			zap.Int("amount", amount),
			zap.String("property_id", propertyID),
		)
	}
	return &l.entries[len(l.entries)-1]
}

// entitySnapshot captures exactly the entities a transaction touched.
type entitySnapshot struct {
	players map[*Player]playerMemento
	deeds   map[*Deed]deedMemento
}

func (l *Ledger) captureParties(a, b *Player, deed *Deed) entitySnapshot {
	var players []*Player
	if a != nil {
		players = append(players, a)
	}
	if b != nil {
		players = append(players, b)
	}
	var deeds []string
	if deed != nil {
		deeds = []string{deed.ID}
	}
	return l.capture(players, deeds)
}

func (l *Ledger) capture(players []*Player, deedIDs []string) entitySnapshot {
	snap := entitySnapshot{
		players: make(map[*Player]playerMemento, len(players)),
		deeds:   make(map[*Deed]deedMemento, len(deedIDs)),
	}
	for _, p := range players {
		snap.players[p] = p.memento()
	}
	for _, id := range deedIDs {
		if d, ok := l.state.Deeds[id]; ok {
			snap.deeds[d] = d.memento()
		}
	}
	return snap
}

func (snap entitySnapshot) apply() {
	for p, m := range snap.players {
		p.restore(m)
	}
	for d, m := range snap.deeds {
		d.restore(m)
	}
}

func (l *Ledger) record(tx *Transaction, reversible bool, description string, before, after entitySnapshot) {
	if l.hist == nil {
		return
	}
	l.hist.Record(history.Action{
		Type:        string(tx.Type),
		PlayerID:    tx.FromID,
		Description: description,
		Reversible:  reversible,
		Timestamp:   tx.Timestamp,
		Before:      before.apply,
		After:       after.apply,
	})
}
