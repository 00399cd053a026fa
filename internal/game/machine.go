package game

import (
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/openmonopoly/monopoly-server-go/internal/game/history"
	"github.com/openmonopoly/monopoly-server-go/internal/game/rules"
)

// handleCommand is the single entry point for player intents. It runs on the
// table goroutine, so every phase check and mutation below is serialized.
// A rejected command emits an ERROR event to the sender and changes nothing.
func (t *Table) handleCommand(cmd Command) {
	defer func() {
		if r := recover(); r != nil {
			t.log.Error("engine fault recovered",
				zap.String("game_id", t.state.ID),
				zap.String("command", string(cmd.Type)),
				zap.Any("panic", r),
			)
			t.emitError(cmd.PlayerID, fmt.Errorf("internal error handling %s", cmd.Type))
		}
	}()

	seqBefore := t.state.Seq
	phaseBefore := t.state.Phase

	var err error
	switch cmd.Type {
	case CmdHello:
		err = t.handleHello(cmd)
	case CmdStartGame:
		err = t.handleStart(cmd)
	case CmdDisconnect:
		t.handleDisconnect(cmd.PlayerID)
	default:
		if !t.started {
			err = ErrNotStarted
		} else if t.state.Phase.Terminal() {
			err = ErrWrongPhase
		} else {
			err = t.dispatch(cmd)
		}
	}

	if err != nil {
		t.emitError(cmd.PlayerID, err)
		return
	}
	if t.state.Seq != seqBefore || t.state.Phase != phaseBefore {
		t.broadcastState()
	}
}

func (t *Table) dispatch(cmd Command) error {
	switch cmd.Type {
	case CmdRollDice:
		return t.handleRoll(cmd.PlayerID)
	case CmdBuyProperty:
		return t.handleBuy(cmd.PlayerID, cmd.PropertyID)
	case CmdDeclineBuy:
		return t.handleDecline(cmd.PlayerID)
	case CmdBid:
		return t.handleBid(cmd.PlayerID, cmd.Amount)
	case CmdPassBid:
		return t.handlePassBid(cmd.PlayerID)
	case CmdBuild:
		return t.handleBuild(cmd.PlayerID, cmd.PropertyID, cmd.Hotel)
	case CmdSellBuilding:
		return t.handleSellBuilding(cmd.PlayerID, cmd.PropertyID)
	case CmdMortgage:
		return t.handleMortgage(cmd.PlayerID, cmd.PropertyID)
	case CmdUnmortgage:
		return t.handleUnmortgage(cmd.PlayerID, cmd.PropertyID)
	case CmdJailPayFine:
		return t.handleJailPayFine(cmd.PlayerID)
	case CmdJailUseCard:
		return t.handleJailUseCard(cmd.PlayerID)
	case CmdProposeTrade:
		return t.handleProposeTrade(cmd)
	case CmdAcceptTrade:
		return t.handleAcceptTrade(cmd.PlayerID)
	case CmdDeclineTrade:
		return t.handleRespondTrade(cmd.PlayerID, TradeDeclined)
	case CmdCounterTrade:
		return t.handleCounterTrade(cmd)
	case CmdCancelTrade:
		return t.handleRespondTrade(cmd.PlayerID, TradeCancelled)
	case CmdUndo:
		return t.handleUndo(cmd.PlayerID)
	case CmdRedo:
		return t.handleRedo(cmd.PlayerID)
	case CmdEndTurn:
		return t.handleEndTurn(cmd.PlayerID)
	default:
		return fmt.Errorf("unknown command %q", cmd.Type)
	}
}

// requireTurnOwner checks the command comes from the turn-owner in one of
// the allowed phases.
func (t *Table) requireTurnOwner(playerID string, phases ...rules.Phase) (*Player, error) {
	p := t.state.PlayerByID(playerID)
	if p == nil {
		return nil, ErrUnknownPlayer
	}
	if t.state.CurrentPlayer() == nil || t.state.CurrentPlayer().ID != playerID {
		return nil, ErrNotYourTurn
	}
	for _, ph := range phases {
		if t.state.Phase == ph {
			return p, nil
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrWrongPhase, t.state.Phase)
}

// --- rolling and movement ---

func (t *Table) handleRoll(playerID string) error {
	if t.state.Phase == rules.PhaseInJail {
		return t.handleJailRoll(playerID)
	}
	p, err := t.requireTurnOwner(playerID, rules.PhasePreRoll)
	if err != nil {
		return err
	}

	t.setPhase(rules.PhaseRolling)
	d1, d2 := t.roller.Roll()
	t.state.LastDie1, t.state.LastDie2 = d1, d2
	doubles := d1 == d2
	if doubles {
		t.state.DoublesCount++
	} else {
		t.state.DoublesCount = 0
	}
	t.emitDice(playerID, d1, d2, doubles)

	// Three consecutive doubles send the player straight to jail; the
	// third roll's landing tile is never resolved.
	if doubles && t.state.DoublesCount >= MaxConsecutiveDoubles {
		t.emitLog(fmt.Sprintf("%s rolled doubles three times and goes to jail", p.Name))
		t.sendToJail(p)
		t.setPhase(rules.PhasePostAction)
		return nil
	}
	t.state.pendingExtraRoll = doubles

	t.movePlayer(p, d1+d2)
	return nil
}

// movePlayer advances the player, pays the Go bonus when index 0 is passed,
// then resolves the landing tile.
func (t *Table) movePlayer(p *Player, steps int) {
	t.setPhase(rules.PhaseMoving)
	pos, passedGo := p.AdvanceBy(steps)
	if passedGo {
		t.payGoBonus(p)
	}
	t.emitMoved(p.ID, pos)
	t.resolveLanding(p)
}

func (t *Table) payGoBonus(p *Player) {
	_, err := t.ledger.Apply(TxIntent{
		Type: TxGoBonus, From: Bank, To: p.ID, Amount: GoBonus,
		Reversible: false,
		Describe:   fmt.Sprintf("%s collects the Go bonus", p.Name),
	})
	if err == nil {
		t.emitLog(fmt.Sprintf("%s passes Go and collects $%d", p.Name, GoBonus))
	}
}

// resolveLanding dispatches on the landed tile's kind and drives the machine
// to the next command-awaiting phase.
func (t *Table) resolveLanding(p *Player) {
	t.setPhase(rules.PhaseLanded)
	tile := t.state.TileAt(p.Position)

	switch tile.Kind {
	case TileGo, TileJail:
		// Landing on Go was already paid during movement; Jail here is
		// just visiting.
		t.postLanding()
	case TileFreeParking:
		if t.cfg.FreeParkingJackpot && t.state.FreeParkingPot > 0 {
			pot := t.state.FreeParkingPot
			t.state.FreeParkingPot = 0
			t.ledger.Apply(TxIntent{
				Type: TxCardEffect, From: Bank, To: p.ID, Amount: pot,
				Describe: fmt.Sprintf("%s collects the Free Parking pot", p.Name),
			})
			t.emitLog(fmt.Sprintf("%s collects $%d from Free Parking", p.Name, pot))
		}
		t.postLanding()
	case TileTax:
		if t.owe(p, Bank, tile.TaxAmount, TxTax, "") {
			t.collectPot(tile.TaxAmount)
		}
		t.postLanding()
	case TileGoToJail:
		// Straight to jail: no Go bonus, no extra roll for doubles.
		t.emitLog(fmt.Sprintf("%s is sent to jail", p.Name))
		t.sendToJail(p)
		t.postLanding()
	case TileChance:
		t.drawCard(p, t.state.Chance)
	case TileCommunityChest:
		t.drawCard(p, t.state.Chest)
	case TileStreet, TileRailroad, TileUtility:
		t.resolveDeedLanding(p, t.state.Deeds[tile.DeedID])
	}
}

func (t *Table) resolveDeedLanding(p *Player, deed *Deed) {
	switch {
	case deed.OwnerID == Unowned:
		t.setPhase(rules.PhasePropertyDecision)
	case deed.OwnerID == p.ID || deed.Mortgaged:
		t.postLanding()
	default:
		t.setPhase(rules.PhasePayingRent)
		rent := deed.RentDue(RentContext{
			OwnerRailroads:     t.state.RailroadsOwned(deed.OwnerID),
			OwnerBothUtilities: t.state.OwnsBothUtilities(deed.OwnerID),
			DiceTotal:          t.state.LastDie1 + t.state.LastDie2,
			GroupComplete:      t.state.GroupComplete(deed.OwnerID, deed.Group),
		})
		owner := t.state.PlayerByID(deed.OwnerID)
		t.emitLog(fmt.Sprintf("%s owes %s $%d rent for %s", p.Name, owner.Name, rent, deed.Name))
		t.owe(p, deed.OwnerID, rent, TxRent, deed.ID)
		t.postLanding()
	}
}

// postLanding decides where the machine parks after a landing fully
// resolves: debt resolution, an extra roll for doubles, or post-action.
func (t *Table) postLanding() {
	if t.state.Phase.Terminal() {
		return
	}
	if t.turnAborted {
		// The turn-owner went bankrupt mid-resolution and the turn has
		// already been handed over.
		t.turnAborted = false
		return
	}
	p := t.state.CurrentPlayer()
	if t.state.Debt != nil && t.state.Debt.Settled(t.state) {
		t.state.Debt = nil
	}
	if t.state.Debt == nil {
		t.promoteNextDebt()
	}
	if t.state.Debt != nil {
		t.state.resumePhase = t.nextRestPhase(p)
		t.setPhase(rules.PhaseDebtResolution)
		return
	}
	t.setPhase(t.nextRestPhase(p))
}

func (t *Table) nextRestPhase(p *Player) rules.Phase {
	if t.state.pendingExtraRoll && !p.InJail && !p.Bankrupt {
		t.state.pendingExtraRoll = false
		return rules.PhasePreRoll
	}
	return rules.PhasePostAction
}

// --- property decision and auction ---

func (t *Table) handleBuy(playerID, propertyID string) error {
	p, err := t.requireTurnOwner(playerID, rules.PhasePropertyDecision)
	if err != nil {
		return err
	}
	deed := t.state.DeedAt(p.Position)
	if deed == nil {
		return ErrUnknownProperty
	}
	if propertyID != "" && propertyID != deed.ID {
		return fmt.Errorf("%w: standing on %s", ErrUnknownProperty, deed.ID)
	}
	if _, err := t.ledger.Apply(TxIntent{
		Type: TxPurchase, From: playerID, To: Bank, Amount: deed.Price,
		PropertyID: deed.ID, TransferDeed: true, Reversible: true,
		Describe: fmt.Sprintf("%s buys %s", p.Name, deed.Name),
	}); err != nil {
		return err
	}
	t.emitPropertyChange(deed)
	t.emitLog(fmt.Sprintf("%s buys %s for $%d", p.Name, deed.Name, deed.Price))
	t.postLanding()
	return nil
}

func (t *Table) handleDecline(playerID string) error {
	p, err := t.requireTurnOwner(playerID, rules.PhasePropertyDecision)
	if err != nil {
		return err
	}
	deed := t.state.DeedAt(p.Position)
	if deed == nil {
		return ErrUnknownProperty
	}
	t.emitLog(fmt.Sprintf("%s declines to buy %s", p.Name, deed.Name))
	t.startAuction(deed, playerID)
	return nil
}

// startAuction opens the auction sub-protocol. excludeID is the declining
// player; empty means everyone bids (card-triggered house rule).
func (t *Table) startAuction(deed *Deed, excludeID string) {
	var bidders []string
	for _, p := range t.state.Players {
		if !p.Bankrupt && p.ID != excludeID {
			bidders = append(bidders, p.ID)
		}
	}
	if len(bidders) == 0 {
		t.postLanding()
		return
	}
	t.state.Auction = NewAuction(deed.ID, bidders, t.cfg.AuctionMinBid)
	t.setPhase(rules.PhaseAuction)

	ev := rules.NewEvent(rules.EventAuctionStart, t.state.ID, "")
	ev.TargetID = deed.ID
	ev.Message = deed.Name
	ev.Payload = map[string]any{"currentBidder": t.state.Auction.CurrentBidder()}
	t.emit(ev)
}

func (t *Table) handleBid(playerID string, amount int) error {
	a := t.state.Auction
	if t.state.Phase != rules.PhaseAuction || a == nil {
		return ErrWrongPhase
	}
	if amount > t.state.LiquidationValue(playerID) {
		return fmt.Errorf("%w: bid $%d exceeds liquidation value", ErrInvalidBid, amount)
	}
	if err := a.Bid(playerID, amount); err != nil {
		return err
	}
	ev := rules.NewEvent(rules.EventAuctionUpdate, t.state.ID, playerID)
	ev.Amount = a.HighBid
	ev.TargetID = a.HighBidderID
	ev.Payload = map[string]any{"currentBidder": a.CurrentBidder()}
	t.emit(ev)
	t.closeAuctionIfDone()
	return nil
}

func (t *Table) handlePassBid(playerID string) error {
	a := t.state.Auction
	if t.state.Phase != rules.PhaseAuction || a == nil {
		return ErrWrongPhase
	}
	if err := a.Pass(playerID); err != nil {
		return err
	}
	ev := rules.NewEvent(rules.EventAuctionUpdate, t.state.ID, playerID)
	ev.Amount = a.HighBid
	ev.TargetID = a.HighBidderID
	ev.Flag = true // pass
	ev.Payload = map[string]any{"currentBidder": a.CurrentBidder()}
	t.emit(ev)
	t.closeAuctionIfDone()
	return nil
}

func (t *Table) closeAuctionIfDone() {
	a := t.state.Auction
	if a == nil || !a.Closed() {
		return
	}
	deed := t.state.Deeds[a.DeedID]
	t.state.Auction = nil

	if a.Status == AuctionClosedWon {
		winner := t.state.PlayerByID(a.HighBidderID)
		// Auction payment is binding; a bid under liquidation value but
		// over cash pushes the winner into debt resolution.
		t.ledger.Apply(TxIntent{
			Type: TxAuctionPayment, From: winner.ID, To: Bank, Amount: a.HighBid,
			PropertyID: deed.ID, TransferDeed: true, Forced: true, Reversible: false,
			Describe: fmt.Sprintf("%s wins %s at auction", winner.Name, deed.Name),
		})
		if winner.Money < 0 {
			t.enterDebt(winner, Bank, a.HighBid)
		}
		t.emitPropertyChange(deed)
		t.emitLog(fmt.Sprintf("%s wins the auction for %s at $%d", winner.Name, deed.Name, a.HighBid))
	} else {
		t.emitLog(fmt.Sprintf("no bids for %s; it stays with the bank", deed.Name))
	}

	ev := rules.NewEvent(rules.EventAuctionEnd, t.state.ID, a.HighBidderID)
	ev.TargetID = deed.ID
	ev.Amount = a.HighBid
	t.emit(ev)
	t.postLanding()
}

// --- building, mortgage ---

// requireEstateActor admits the turn-owner in a rest phase, or the debtor
// while debt resolution is open. Liquidation moves only.
func (t *Table) requireEstateActor(playerID string) (*Player, error) {
	if t.state.Phase == rules.PhaseDebtResolution {
		if t.state.Debt == nil || t.state.Debt.DebtorID != playerID {
			return nil, ErrNotYourTurn
		}
		return t.state.PlayerByID(playerID), nil
	}
	return t.requireTurnOwner(playerID, rules.PhasePreRoll, rules.PhasePostAction)
}

func (t *Table) handleBuild(playerID, propertyID string, hotel bool) error {
	p, err := t.requireTurnOwner(playerID, rules.PhasePreRoll, rules.PhasePostAction)
	if err != nil {
		return err
	}
	deed, ok := t.state.Deeds[propertyID]
	if !ok {
		return ErrUnknownProperty
	}
	if _, err := t.ledger.BuyBuilding(playerID, deed, hotel); err != nil {
		return err
	}
	t.emitPropertyChange(deed)
	t.emitLog(fmt.Sprintf("%s builds on %s", p.Name, deed.Name))
	return nil
}

func (t *Table) handleSellBuilding(playerID, propertyID string) error {
	p, err := t.requireEstateActor(playerID)
	if err != nil {
		return err
	}
	deed, ok := t.state.Deeds[propertyID]
	if !ok {
		return ErrUnknownProperty
	}
	if _, err := t.ledger.SellBuilding(playerID, deed); err != nil {
		return err
	}
	t.emitPropertyChange(deed)
	t.emitLog(fmt.Sprintf("%s sells a building on %s", p.Name, deed.Name))
	t.settleDebtIfPossible()
	return nil
}

func (t *Table) handleMortgage(playerID, propertyID string) error {
	p, err := t.requireEstateActor(playerID)
	if err != nil {
		return err
	}
	deed, ok := t.state.Deeds[propertyID]
	if !ok {
		return ErrUnknownProperty
	}
	if _, err := t.ledger.Mortgage(playerID, deed); err != nil {
		return err
	}
	t.emitPropertyChange(deed)
	t.emitLog(fmt.Sprintf("%s mortgages %s", p.Name, deed.Name))
	t.settleDebtIfPossible()
	return nil
}

func (t *Table) handleUnmortgage(playerID, propertyID string) error {
	p, err := t.requireTurnOwner(playerID, rules.PhasePreRoll, rules.PhasePostAction)
	if err != nil {
		return err
	}
	deed, ok := t.state.Deeds[propertyID]
	if !ok {
		return ErrUnknownProperty
	}
	if _, err := t.ledger.Unmortgage(playerID, deed); err != nil {
		return err
	}
	t.emitPropertyChange(deed)
	t.emitLog(fmt.Sprintf("%s unmortgages %s", p.Name, deed.Name))
	return nil
}

// --- jail ---

func (t *Table) sendToJail(p *Player) {
	p.Position = JailIndex
	p.InJail = true
	p.JailTurns = 0
	t.state.DoublesCount = 0
	t.state.pendingExtraRoll = false
}

func (t *Table) handleJailRoll(playerID string) error {
	p, err := t.requireTurnOwner(playerID, rules.PhaseInJail)
	if err != nil {
		return err
	}
	d1, d2 := t.roller.Roll()
	t.state.LastDie1, t.state.LastDie2 = d1, d2
	t.emitDice(playerID, d1, d2, d1 == d2)

	if d1 == d2 {
		t.emitLog(fmt.Sprintf("%s rolls doubles and leaves jail", p.Name))
		t.releaseFromJail(p)
		// Jail doubles move the player but never earn an extra roll.
		t.state.pendingExtraRoll = false
		t.movePlayer(p, d1+d2)
		return nil
	}

	p.JailTurns++
	if p.JailTurns >= MaxJailTurns {
		// Bail is forced on the third failed attempt, then the roll
		// counts as a normal move.
		t.emitLog(fmt.Sprintf("%s pays forced bail after three turns in jail", p.Name))
		if t.owe(p, Bank, BailAmount, TxJailFine, "") {
			t.collectPot(BailAmount)
		}
		if p.Bankrupt || t.turnAborted {
			t.turnAborted = false
			return nil
		}
		t.releaseFromJail(p)
		t.movePlayer(p, d1+d2)
		return nil
	}
	t.emitLog(fmt.Sprintf("%s fails to roll doubles in jail (%d/%d)", p.Name, p.JailTurns, MaxJailTurns))
	t.setPhase(rules.PhasePostAction)
	return nil
}

func (t *Table) handleJailPayFine(playerID string) error {
	p, err := t.requireTurnOwner(playerID, rules.PhaseInJail)
	if err != nil {
		return err
	}
	// Voluntary payment: rejected outright when unaffordable. Not
	// undoable, since the release itself cannot be rewound.
	if _, err := t.ledger.Apply(TxIntent{
		Type: TxJailFine, From: playerID, To: t.fineSink(), Amount: BailAmount,
		Reversible: false,
		Describe:   fmt.Sprintf("%s pays bail", p.Name),
	}); err != nil {
		return err
	}
	t.collectPot(BailAmount)
	t.emitLog(fmt.Sprintf("%s pays $%d bail", p.Name, BailAmount))
	t.releaseFromJail(p)
	t.setPhase(rules.PhasePreRoll)
	return nil
}

func (t *Table) handleJailUseCard(playerID string) error {
	p, err := t.requireTurnOwner(playerID, rules.PhaseInJail)
	if err != nil {
		return err
	}
	if p.JailCards == 0 {
		return fmt.Errorf("%w: no get-out-of-jail-free card", ErrInvariantViolation)
	}
	p.JailCards--
	deckName := DeckChance
	if n := len(p.jailCardFrom); n > 0 {
		deckName = p.jailCardFrom[n-1]
		p.jailCardFrom = p.jailCardFrom[:n-1]
	}
	deck := t.state.DeckByName(deckName)
	cardID := jailCardChanceID
	if deckName == DeckChest {
		cardID = jailCardChestID
	}
	deck.Return(Card{ID: cardID, Text: "Get Out of Jail Free.", Kind: CardKeepJailCard})
	t.state.nextSeq()

	t.emitLog(fmt.Sprintf("%s plays a get-out-of-jail-free card", p.Name))
	t.releaseFromJail(p)
	t.setPhase(rules.PhasePreRoll)
	return nil
}

func (t *Table) releaseFromJail(p *Player) {
	p.InJail = false
	p.JailTurns = 0
}

// --- cards ---

func (t *Table) drawCard(p *Player, deck *Deck) {
	t.setPhase(rules.PhaseDrawingCard)
	card := deck.Draw()
	t.state.nextSeq()

	ev := rules.NewEvent(rules.EventCardDrawn, t.state.ID, p.ID)
	ev.Message = card.Text
	ev.Payload = map[string]any{"deck": deck.Name, "kind": card.Kind.String()}
	t.emit(ev)
	t.emitLog(fmt.Sprintf("%s draws: %s", p.Name, card.Text))

	t.applyCard(p, deck, card)
}

// applyCard interprets a drawn card. Card effects can cascade into further
// decisions (an advance can land on an unowned deed), which is why they are
// recorded as non-reversible.
func (t *Table) applyCard(p *Player, deck *Deck, card Card) {
	switch card.Kind {
	case CardReceiveMoney:
		t.ledger.Apply(TxIntent{
			Type: TxCardEffect, From: Bank, To: p.ID, Amount: card.Value,
			Describe: card.Text,
		})
		t.postLanding()
	case CardPayMoney:
		if t.owe(p, t.fineSink(), card.Value, TxCardEffect, "") {
			t.collectPot(card.Value)
		}
		t.postLanding()
	case CardPayEachPlayer:
		for _, other := range t.state.Players {
			if other.ID == p.ID || other.Bankrupt {
				continue
			}
			t.owe(p, other.ID, card.Value, TxCardEffect, "")
			if p.Bankrupt {
				break
			}
		}
		t.postLanding()
	case CardReceiveFromEachPlayer:
		for _, other := range t.state.Players {
			if other.ID == p.ID || other.Bankrupt {
				continue
			}
			t.owe(other, p.ID, card.Value, TxCardEffect, "")
		}
		t.postLanding()
	case CardAdvanceToAbsolute:
		if passedGo := p.MoveTo(card.Value); passedGo {
			t.payGoBonus(p)
		}
		t.emitMoved(p.ID, p.Position)
		t.resolveLanding(p)
	case CardAdvanceToNearestRailroad:
		t.advanceToNearest(p, TileRailroad)
	case CardAdvanceToNearestUtility:
		t.advanceToNearest(p, TileUtility)
	case CardGoBack:
		p.AdvanceBy(-card.Value)
		t.emitMoved(p.ID, p.Position)
		t.resolveLanding(p)
	case CardGoToJail:
		t.sendToJail(p)
		t.postLanding()
	case CardKeepJailCard:
		p.JailCards++
		p.jailCardFrom = append(p.jailCardFrom, deck.Name)
		deck.Remove(card.ID)
		t.postLanding()
	case CardStreetRepairs:
		total := 0
		for _, id := range p.PropertyIDs() {
			d := t.state.Deeds[id]
			if d.Hotel {
				total += card.Value2
			} else {
				total += d.Houses * card.Value
			}
		}
		if total > 0 && t.owe(p, t.fineSink(), total, TxCardEffect, "") {
			t.collectPot(total)
		}
		t.postLanding()
	}
}

func (t *Table) advanceToNearest(p *Player, kind TileKind) {
	target := t.state.NearestTile(p.Position, kind)
	if passedGo := p.MoveTo(target); passedGo {
		t.payGoBonus(p)
	}
	t.emitMoved(p.ID, p.Position)
	t.resolveLanding(p)
}

// fineSink is the bank, or nobody-yet when the Free Parking jackpot house
// rule diverts fines into the pot. The ledger still books against the bank;
// collectPot mirrors the amount into the pot.
func (t *Table) fineSink() string {
	return Bank
}

func (t *Table) collectPot(amount int) {
	if t.cfg.FreeParkingJackpot {
		t.state.FreeParkingPot += amount
	}
}

// --- debt and bankruptcy ---

// owe applies a forced payment. A payer who cannot cover it either enters
// debt resolution (liquidation can cover) or goes bankrupt on the spot.
// Reports whether the payment was applied in full.
func (t *Table) owe(debtor *Player, creditorID string, amount int, txType TransactionType, propertyID string) bool {
	if amount <= 0 || debtor.Bankrupt {
		return false
	}

	// Forced payments are never undoable.
	if debtor.Money >= amount {
		t.ledger.Apply(TxIntent{
			Type: txType, From: debtor.ID, To: creditorID, Amount: amount,
			PropertyID: propertyID, Forced: true, Reversible: false,
		})
		return true
	}

	if t.state.LiquidationValue(debtor.ID) >= amount {
		// Solvent on paper: pay in full, go negative, and force the
		// player to liquidate until whole again.
		t.ledger.Apply(TxIntent{
			Type: txType, From: debtor.ID, To: creditorID, Amount: amount,
			PropertyID: propertyID, Forced: true, Reversible: false,
		})
		if !debtor.Connected {
			// A disconnected debtor cannot liquidate.
			t.declareBankruptcy(debtor, creditorID)
			return true
		}
		t.enterDebt(debtor, creditorID, amount)
		return true
	}

	t.declareBankruptcy(debtor, creditorID)
	return false
}

func (t *Table) enterDebt(debtor *Player, creditorID string, amount int) {
	d := &Debt{DebtorID: debtor.ID, CreditorID: creditorID, Amount: amount}
	if t.state.Debt != nil && !t.state.Debt.Settled(t.state) {
		// Another debtor is still liquidating; this one waits.
		t.state.DebtQueue = append(t.state.DebtQueue, d)
	} else {
		t.state.Debt = d
	}
	ev := rules.NewEvent(rules.EventDebtIncurred, t.state.ID, debtor.ID)
	ev.TargetID = creditorID
	ev.Amount = -debtor.Money
	t.emit(ev)
	t.emitLog(fmt.Sprintf("%s must raise $%d", debtor.Name, -debtor.Money))
}

// promoteNextDebt activates the oldest queued debt whose debtor is still
// underwater. Reports whether one was promoted.
func (t *Table) promoteNextDebt() bool {
	for len(t.state.DebtQueue) > 0 {
		d := t.state.DebtQueue[0]
		t.state.DebtQueue = t.state.DebtQueue[1:]
		debtor := t.state.PlayerByID(d.DebtorID)
		if debtor == nil || debtor.Bankrupt || d.Settled(t.state) {
			continue
		}
		t.state.Debt = d
		t.emitLog(fmt.Sprintf("%s must raise $%d", debtor.Name, -debtor.Money))
		return true
	}
	t.state.DebtQueue = nil
	return false
}

// settleDebtIfPossible leaves debt resolution once the debtor is whole,
// unless another queued debtor takes their place.
func (t *Table) settleDebtIfPossible() {
	if t.state.Phase != rules.PhaseDebtResolution || t.state.Debt == nil {
		return
	}
	if !t.state.Debt.Settled(t.state) {
		return
	}
	debtor := t.state.PlayerByID(t.state.Debt.DebtorID)
	t.state.Debt = nil
	t.emitLog(fmt.Sprintf("%s is solvent again", debtor.Name))
	if t.promoteNextDebt() {
		return
	}
	t.setPhase(t.state.resumePhase)
}

func (t *Table) declareBankruptcy(debtor *Player, creditorID string) {
	t.ledger.Bankrupt(debtor.ID, creditorID)
	if t.state.Debt != nil && t.state.Debt.DebtorID == debtor.ID {
		t.state.Debt = nil
	}
	if len(t.state.DebtQueue) > 0 {
		kept := t.state.DebtQueue[:0]
		for _, d := range t.state.DebtQueue {
			if d.DebtorID != debtor.ID {
				kept = append(kept, d)
			}
		}
		t.state.DebtQueue = kept
	}

	ev := rules.NewEvent(rules.EventPlayerBankrupt, t.state.ID, debtor.ID)
	ev.TargetID = creditorID
	t.emit(ev)
	t.emitLog(fmt.Sprintf("%s is bankrupt", debtor.Name))

	if t.state.ActivePlayers() <= 1 {
		t.finishGame()
		return
	}
	// A bankrupt turn-owner forfeits the rest of the turn.
	if cp := t.state.CurrentPlayer(); cp != nil && cp.ID == debtor.ID {
		t.state.pendingExtraRoll = false
		t.turnAborted = true
		t.advanceTurn()
		return
	}
	// A non-owner debtor leaving mid-resolution hands the floor to the
	// next queued debtor, or returns the machine to the turn-owner.
	if t.state.Phase == rules.PhaseDebtResolution && t.state.Debt == nil {
		if !t.promoteNextDebt() {
			t.setPhase(t.state.resumePhase)
		}
	}
}

// --- trade ---

func (t *Table) handleProposeTrade(cmd Command) error {
	p, err := t.requireTurnOwner(cmd.PlayerID, rules.PhasePreRoll, rules.PhasePostAction)
	if err != nil {
		return err
	}
	other := t.state.PlayerByID(cmd.OtherPlayerID)
	if other == nil || other.Bankrupt || other.ID == p.ID {
		return ErrUnknownPlayer
	}
	t.state.Trade = NewTrade(p.ID, other.ID, cmd.Offer, cmd.Request)
	t.state.resumePhase = t.state.Phase
	t.setPhase(rules.PhaseTrading)

	ev := rules.NewEvent(rules.EventTradeProposed, t.state.ID, p.ID)
	ev.TargetID = other.ID
	ev.Payload = map[string]any{"offer": t.state.Trade.Offer, "request": t.state.Trade.Request}
	t.emit(ev)
	return nil
}

func (t *Table) handleAcceptTrade(playerID string) error {
	tr := t.state.Trade
	if t.state.Phase != rules.PhaseTrading || tr == nil {
		return ErrNoActiveTrade
	}
	if playerID != tr.ToID {
		return ErrNotYourTurn
	}
	if _, err := t.ledger.ApplyTrade(tr); err != nil {
		return err
	}
	tr.Status = TradeAccepted
	t.finishTrade(tr)
	return nil
}

func (t *Table) handleRespondTrade(playerID string, status TradeStatus) error {
	tr := t.state.Trade
	if t.state.Phase != rules.PhaseTrading || tr == nil {
		return ErrNoActiveTrade
	}
	switch status {
	case TradeDeclined:
		if playerID != tr.ToID {
			return ErrNotYourTurn
		}
	case TradeCancelled:
		if playerID != tr.FromID {
			return ErrNotYourTurn
		}
	}
	tr.Status = status
	t.finishTrade(tr)
	return nil
}

func (t *Table) handleCounterTrade(cmd Command) error {
	tr := t.state.Trade
	if t.state.Phase != rules.PhaseTrading || tr == nil {
		return ErrNoActiveTrade
	}
	if cmd.PlayerID != tr.ToID {
		return ErrNotYourTurn
	}
	tr.Counter(cmd.Offer, cmd.Request)
	t.state.nextSeq()

	ev := rules.NewEvent(rules.EventTradeProposed, t.state.ID, tr.FromID)
	ev.TargetID = tr.ToID
	ev.Flag = true // countered
	ev.Payload = map[string]any{"offer": tr.Offer, "request": tr.Request}
	t.emit(ev)
	return nil
}

func (t *Table) finishTrade(tr *Trade) {
	t.state.Trade = nil
	ev := rules.NewEvent(rules.EventTradeResolved, t.state.ID, tr.FromID)
	ev.TargetID = tr.ToID
	ev.Message = tr.Status.String()
	t.emit(ev)
	t.emitLog(fmt.Sprintf("trade %s", tr.Status))
	t.setPhase(t.state.resumePhase)
}

// --- history ---

func (t *Table) handleUndo(playerID string) error {
	if _, err := t.requireTurnOwner(playerID, rules.PhasePreRoll, rules.PhasePostAction); err != nil {
		return err
	}
	action, err := t.hist.Undo()
	if err != nil {
		return err
	}
	t.state.nextSeq()
	t.emitLog(fmt.Sprintf("undo: %s", action.Description))
	return nil
}

func (t *Table) handleRedo(playerID string) error {
	if _, err := t.requireTurnOwner(playerID, rules.PhasePreRoll, rules.PhasePostAction); err != nil {
		return err
	}
	action, err := t.hist.Redo()
	if err != nil {
		return err
	}
	t.state.nextSeq()
	t.emitLog(fmt.Sprintf("redo: %s", action.Description))
	return nil
}

// --- turn end and game over ---

func (t *Table) handleEndTurn(playerID string) error {
	if _, err := t.requireTurnOwner(playerID, rules.PhasePostAction); err != nil {
		return err
	}
	t.advanceTurn()
	return nil
}

func (t *Table) advanceTurn() {
	t.setPhase(rules.PhaseTurnEnd)
	t.emit(rules.NewEvent(rules.EventTurnEnd, t.state.ID, t.state.CurrentPlayer().ID))

	if t.state.ActivePlayers() <= 1 {
		t.finishGame()
		return
	}

	t.state.Current = t.state.NextActiveIndex(t.state.Current)
	t.state.TurnNumber++
	t.state.DoublesCount = 0
	t.state.pendingExtraRoll = false
	t.beginTurn()
}

func (t *Table) beginTurn() {
	p := t.state.CurrentPlayer()
	t.setPhase(rules.PhaseTurnStart)
	t.emit(rules.NewEvent(rules.EventTurnStart, t.state.ID, p.ID))

	if !p.Connected && !t.allDisconnected() {
		// Disconnect policy: auto-pass. The seat is skipped
		// deterministically until the player returns.
		t.emitLog(fmt.Sprintf("%s is disconnected; turn auto-passed", p.Name))
		t.state.Current = t.state.NextActiveIndex(t.state.Current)
		t.state.TurnNumber++
		t.beginTurn()
		return
	}

	if p.InJail {
		t.setPhase(rules.PhaseInJail)
		return
	}
	t.setPhase(rules.PhasePreRoll)
}

func (t *Table) allDisconnected() bool {
	for _, p := range t.state.Players {
		if !p.Bankrupt && p.Connected {
			return false
		}
	}
	return true
}

func (t *Table) finishGame() {
	t.setPhase(rules.PhaseGameOver)
	var winner *Player
	for _, p := range t.state.Players {
		if !p.Bankrupt {
			winner = p
			break
		}
	}
	ev := rules.NewEvent(rules.EventGameEnd, t.state.ID, "")
	if winner != nil {
		ev.PlayerID = winner.ID
		ev.Message = winner.Name
		t.emitLog(fmt.Sprintf("%s wins the game", winner.Name))
	}
	standings := make([]map[string]any, 0, len(t.state.Players))
	for _, p := range t.state.Players {
		standings = append(standings, map[string]any{
			"playerId": p.ID,
			"name":     p.Name,
			"money":    p.Money,
			"bankrupt": p.Bankrupt,
		})
	}
	ev.Amount = t.state.TurnNumber
	ev.Payload = map[string]any{"standings": standings}
	t.emit(ev)
}

// --- disconnect ---

// handleDisconnect resolves the leaving player's open decisions with
// conservative defaults, then marks the seat for auto-pass.
func (t *Table) handleDisconnect(playerID string) {
	p := t.state.PlayerByID(playerID)
	if p == nil {
		return
	}
	p.Connected = false
	t.state.nextSeq()

	ev := rules.NewEvent(rules.EventPlayerLeft, t.state.ID, playerID)
	ev.Message = "disconnected"
	t.emit(ev)

	if !t.started || t.state.Phase.Terminal() {
		return
	}

	// Open sub-protocols involving the leaver resolve immediately.
	if a := t.state.Auction; a != nil && t.state.Phase == rules.PhaseAuction {
		if a.CurrentBidder() == playerID {
			a.Pass(playerID)
			t.closeAuctionIfDone()
		} else if a.active[playerID] {
			a.active[playerID] = false
			a.tryClose()
			t.closeAuctionIfDone()
		}
	}
	if tr := t.state.Trade; tr != nil && t.state.Phase == rules.PhaseTrading {
		if tr.FromID == playerID || tr.ToID == playerID {
			tr.Status = TradeCancelled
			t.finishTrade(tr)
		}
	}

	// A disconnected debtor cannot liquidate, no matter whose turn it is.
	if t.state.Phase == rules.PhaseDebtResolution {
		d := t.state.Debt
		if d == nil || d.DebtorID != playerID {
			d = nil
			for _, q := range t.state.DebtQueue {
				if q.DebtorID == playerID {
					d = q
					break
				}
			}
		}
		if d != nil {
			t.declareBankruptcy(p, d.CreditorID)
			if t.state.Phase.Terminal() {
				return
			}
		}
	}

	cp := t.state.CurrentPlayer()
	if cp == nil || cp.ID != playerID {
		return
	}
	switch t.state.Phase {
	case rules.PhasePropertyDecision:
		deed := t.state.DeedAt(p.Position)
		t.emitLog(fmt.Sprintf("%s disconnected; %s goes to auction", p.Name, deed.Name))
		t.startAuction(deed, playerID)
	case rules.PhasePreRoll, rules.PhaseInJail, rules.PhasePostAction:
		t.advanceTurn()
	}
}

// --- event helpers ---

func (t *Table) setPhase(phase rules.Phase) {
	if t.state.Phase == phase {
		return
	}
	t.state.Phase = phase
	ev := rules.NewEvent(rules.EventPhaseChanged, t.state.ID, "")
	ev.Message = phase.String()
	t.emit(ev)
}

func (t *Table) emit(ev rules.Event) {
	ev.Seq = t.state.nextSeq()
	if ev.GameID == "" {
		ev.GameID = t.state.ID
	}
	t.bus.Publish(ev)
}

func (t *Table) emitError(playerID string, err error) {
	ev := rules.NewEvent(rules.EventError, t.state.ID, playerID)
	ev.Message = err.Error()
	t.emit(ev)
	if t.log != nil {
		level := t.log.Debug
		if !isRejectedInput(err) {
			level = t.log.Warn
		}
		level("command rejected",
			zap.String("game_id", t.state.ID),
			zap.String("player_id", playerID),
			zap.Error(err),
		)
	}
}

func isRejectedInput(err error) bool {
	for _, sentinel := range []error{
		ErrWrongPhase, ErrNotYourTurn, ErrInsufficientFunds, ErrInvalidBid,
		ErrInvalidOwnership, ErrInvariantViolation, ErrNoActiveTrade,
		ErrUnknownPlayer, ErrUnknownProperty, ErrNotStarted, ErrAlreadyStarted,
		ErrTableFull, ErrWrongPassword,
		history.ErrNothingToUndo, history.ErrNothingToRedo, history.ErrActionNotReversible,
	} {
		if errors.Is(err, sentinel) {
			return true
		}
	}
	return false
}

func (t *Table) emitLog(msg string) {
	ev := rules.NewEvent(rules.EventLog, t.state.ID, "")
	ev.Message = msg
	t.emit(ev)
}

func (t *Table) emitDice(playerID string, d1, d2 int, doubles bool) {
	ev := rules.NewEvent(rules.EventDiceResult, t.state.ID, playerID)
	ev.Amount = d1 + d2
	ev.Flag = doubles
	ev.Payload = map[string]any{"die1": d1, "die2": d2}
	t.emit(ev)
}

func (t *Table) emitMoved(playerID string, pos int) {
	ev := rules.NewEvent(rules.EventPlayerMoved, t.state.ID, playerID)
	ev.Amount = pos
	ev.Message = t.state.TileAt(pos).Name
	t.emit(ev)
}

func (t *Table) emitPropertyChange(deed *Deed) {
	ev := rules.NewEvent(rules.EventPropertyChange, t.state.ID, deed.OwnerID)
	ev.TargetID = deed.ID
	ev.Payload = map[string]any{
		"ownerId":   deed.OwnerID,
		"houses":    deed.Houses,
		"hotel":     deed.Hotel,
		"mortgaged": deed.Mortgaged,
	}
	t.emit(ev)
}
