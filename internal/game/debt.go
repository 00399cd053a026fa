package game

// Debt marks the bounded owes-money sub-phase. The debtor's money is the
// single source of truth for solvency: forced transfers apply in full, so
// the debtor is solvent again exactly when their balance is non-negative.
type Debt struct {
	DebtorID   string
	CreditorID string // Bank for taxes and fines
	Amount     int    // original shortfall, for reporting
}

// Settled reports whether the debtor climbed back to a non-negative balance.
func (d *Debt) Settled(s *GameState) bool {
	p := s.PlayerByID(d.DebtorID)
	return p == nil || p.Money >= 0
}
