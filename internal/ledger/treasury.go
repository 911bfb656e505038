package ledger

import "math/big"

// TreasuryReserve is the operator-funded pool of reserve-unit tokens that pays the
// registry fee for each registration, plus the spend approval granted to the registry.
type TreasuryReserve struct {
	Deposited *big.Int
	Approved  *big.Int
}

func NewTreasuryReserve() *TreasuryReserve {
	return &TreasuryReserve{Deposited: new(big.Int), Approved: new(big.Int)}
}

func (t *TreasuryReserve) Deposit(amount *big.Int) error {
	if amount == nil || amount.Sign() <= 0 {
		return ErrInvalidAmount
	}
	t.Deposited = new(big.Int).Add(t.Deposited, amount)
	return nil
}

// WithdrawAll empties the pool and returns what was in it. Partial withdrawal is not offered.
func (t *TreasuryReserve) WithdrawAll() (*big.Int, error) {
	if t.Deposited.Sign() == 0 {
		return nil, ErrInvalidAmount.Withf("nothing deposited")
	}
	amount := t.Deposited
	t.Deposited = new(big.Int)
	return amount, nil
}

// Approve sets the registry approval to exactly amount; zero revokes it.
func (t *TreasuryReserve) Approve(amount *big.Int) error {
	if amount == nil || amount.Sign() < 0 {
		return ErrInvalidAmount
	}
	t.Approved = new(big.Int).Set(amount)
	return nil
}

// Cover checks the pool and the approval can both pay fee.
func (t *TreasuryReserve) Cover(fee *big.Int) error {
	if t.Deposited.Cmp(fee) < 0 {
		return ErrInsufficientReserve
	}
	if t.Approved.Cmp(fee) < 0 {
		return ErrInsufficientApproval
	}
	return nil
}

// Spend draws fee from the pool and the approval.
func (t *TreasuryReserve) Spend(fee *big.Int) error {
	if err := t.Cover(fee); err != nil {
		return err
	}
	t.Deposited = new(big.Int).Sub(t.Deposited, fee)
	t.Approved = new(big.Int).Sub(t.Approved, fee)
	return nil
}

func (t *TreasuryReserve) Clone() *TreasuryReserve {
	return &TreasuryReserve{
		Deposited: new(big.Int).Set(t.Deposited),
		Approved:  new(big.Int).Set(t.Approved),
	}
}
