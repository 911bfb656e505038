package service

import (
	"context"
	"math/big"
	"strconv"

	"github.com/GoPolymarket/namegate/internal/ledger"
	"github.com/GoPolymarket/namegate/internal/model"
	"github.com/GoPolymarket/namegate/internal/pkg/fixedpoint"
	"github.com/ethereum/go-ethereum/common"
)

func (r *Registrar) AddFeed(ctx context.Context, caller, currency, oracle common.Address, decimals uint8) error {
	return r.operatorTx(ctx, caller, func(tx *txn) error {
		if err := tx.state.Feeds.Add(currency, oracle, decimals); err != nil {
			return err
		}
		tx.emit(model.KindFeedAdded, map[string]string{
			"currency": currency.Hex(),
			"oracle":   oracle.Hex(),
			"decimals": strconv.Itoa(int(decimals)),
		})
		return nil
	})
}

func (r *Registrar) UpdateFeed(ctx context.Context, caller, currency, oracle common.Address, decimals uint8) error {
	return r.operatorTx(ctx, caller, func(tx *txn) error {
		if err := tx.state.Feeds.Update(currency, oracle, decimals); err != nil {
			return err
		}
		tx.emit(model.KindFeedUpdated, map[string]string{
			"currency": currency.Hex(),
			"oracle":   oracle.Hex(),
			"decimals": strconv.Itoa(int(decimals)),
		})
		return nil
	})
}

// RemoveFeed deletes the feed and pays any collected balance to the operator.
// The payout carries the removed feed's precision.
func (r *Registrar) RemoveFeed(ctx context.Context, caller, currency common.Address) (fixedpoint.Amount, error) {
	var payout fixedpoint.Amount
	err := r.operatorTx(ctx, caller, func(tx *txn) error {
		feed, _ := tx.state.Feeds.Get(currency)
		collected, err := tx.state.Feeds.Remove(currency)
		if err != nil {
			return err
		}
		if collected.Sign() > 0 {
			if err := r.tokens.TransferOut(ctx, currency, r.cfg.Operator, collected); err != nil {
				return upstream("collected balance payout failed", err)
			}
		}
		payout = fixedpoint.New(collected, feed.Decimals)
		tx.emit(model.KindFeedRemoved, map[string]string{
			"currency": currency.Hex(),
			"payout":   amountAttr(collected),
		})
		return nil
	})
	return payout, err
}

// ForwardCollected pays the currency's collected balance to the operator.
func (r *Registrar) ForwardCollected(ctx context.Context, caller, currency common.Address) (fixedpoint.Amount, error) {
	var amount fixedpoint.Amount
	err := r.operatorTx(ctx, caller, func(tx *txn) error {
		feed, _ := tx.state.Feeds.Get(currency)
		forwarded, err := tx.state.Feeds.Forward(currency)
		if err != nil {
			return err
		}
		if err := r.tokens.TransferOut(ctx, currency, r.cfg.Operator, forwarded); err != nil {
			return upstream("collected balance payout failed", err)
		}
		amount = fixedpoint.New(forwarded, feed.Decimals)
		tx.emit(model.KindCollectedForwarded, map[string]string{
			"currency": currency.Hex(),
			"to":       r.cfg.Operator.Hex(),
			"amount":   amountAttr(forwarded),
		})
		return nil
	})
	return amount, err
}

// ForwardCollectedReserve pays the reserve-denominated collected counter to the operator.
func (r *Registrar) ForwardCollectedReserve(ctx context.Context, caller common.Address) (*big.Int, error) {
	var amount *big.Int
	err := r.operatorTx(ctx, caller, func(tx *txn) error {
		forwarded, err := tx.state.ForwardReserve()
		if err != nil {
			return err
		}
		if err := r.tokens.TransferOut(ctx, r.cfg.ReserveToken, r.cfg.Operator, forwarded); err != nil {
			return upstream("reserve collected payout failed", err)
		}
		amount = forwarded
		tx.emit(model.KindReserveForwarded, map[string]string{
			"currency": r.cfg.ReserveToken.Hex(),
			"to":       r.cfg.Operator.Hex(),
			"amount":   amountAttr(forwarded),
		})
		return nil
	})
	return amount, err
}

func (r *Registrar) AddAgent(ctx context.Context, caller, agent common.Address, rate uint64) error {
	return r.operatorTx(ctx, caller, func(tx *txn) error {
		if err := tx.state.Commissions.AddAgent(agent, rate); err != nil {
			return err
		}
		tx.emit(model.KindAgentAdded, map[string]string{
			"agent": agent.Hex(),
			"rate":  strconv.FormatUint(rate, 10),
		})
		return nil
	})
}

func (r *Registrar) UpdateAgentRate(ctx context.Context, caller, agent common.Address, rate uint64) error {
	return r.operatorTx(ctx, caller, func(tx *txn) error {
		if err := tx.state.Commissions.UpdateRate(agent, rate); err != nil {
			return err
		}
		tx.emit(model.KindAgentRateUpdated, map[string]string{
			"agent": agent.Hex(),
			"rate":  strconv.FormatUint(rate, 10),
		})
		return nil
	})
}

func (r *Registrar) RemoveAgent(ctx context.Context, caller, agent common.Address) error {
	return r.operatorTx(ctx, caller, func(tx *txn) error {
		if err := tx.state.Commissions.RemoveAgent(agent); err != nil {
			return err
		}
		tx.emit(model.KindAgentRemoved, map[string]string{"agent": agent.Hex()})
		return nil
	})
}

// DepositReserve pulls reserve-unit tokens from the operator into the treasury.
func (r *Registrar) DepositReserve(ctx context.Context, caller common.Address, amount *big.Int) error {
	return r.operatorTx(ctx, caller, func(tx *txn) error {
		if err := tx.state.Treasury.Deposit(amount); err != nil {
			return err
		}
		if err := r.tokens.TransferIn(ctx, r.cfg.ReserveToken, caller, amount); err != nil {
			return upstream("reserve deposit transfer failed", err)
		}
		tx.emit(model.KindReserveDeposited, map[string]string{
			"from":   caller.Hex(),
			"amount": amountAttr(amount),
		})
		return nil
	})
}

// WithdrawReserve returns the entire treasury pool to the operator.
func (r *Registrar) WithdrawReserve(ctx context.Context, caller common.Address) (*big.Int, error) {
	var amount *big.Int
	err := r.operatorTx(ctx, caller, func(tx *txn) error {
		withdrawn, err := tx.state.Treasury.WithdrawAll()
		if err != nil {
			return err
		}
		if err := r.tokens.TransferOut(ctx, r.cfg.ReserveToken, r.cfg.Operator, withdrawn); err != nil {
			return upstream("reserve withdrawal transfer failed", err)
		}
		amount = withdrawn
		tx.emit(model.KindReserveWithdrawn, map[string]string{
			"to":     r.cfg.Operator.Hex(),
			"amount": amountAttr(withdrawn),
		})
		return nil
	})
	return amount, err
}

// ApproveRegistry sets the registry's spend approval over reserve-unit tokens.
func (r *Registrar) ApproveRegistry(ctx context.Context, caller common.Address, amount *big.Int) error {
	return r.operatorTx(ctx, caller, func(tx *txn) error {
		registry := tx.state.Registry
		if registry == (common.Address{}) {
			return ledger.ErrZeroReference.Withf("registry not set")
		}
		if err := tx.state.Treasury.Approve(amount); err != nil {
			return err
		}
		if err := r.tokens.SetApproval(ctx, r.cfg.ReserveToken, registry, amount); err != nil {
			return upstream("registry approval failed", err)
		}
		tx.emit(model.KindReserveApproved, map[string]string{
			"spender": registry.Hex(),
			"amount":  amountAttr(amount),
		})
		return nil
	})
}

func (r *Registrar) SetReservePrice(ctx context.Context, caller common.Address, price *big.Int) error {
	return r.operatorTx(ctx, caller, func(tx *txn) error {
		if err := tx.state.SetReservePrice(price); err != nil {
			return err
		}
		tx.emit(model.KindReservePriceSet, map[string]string{"price": amountAttr(price)})
		return nil
	})
}

func (r *Registrar) SetRegistry(ctx context.Context, caller, registry common.Address) error {
	return r.operatorTx(ctx, caller, func(tx *txn) error {
		if err := tx.state.SetRegistry(registry); err != nil {
			return err
		}
		tx.emit(model.KindRegistrySet, map[string]string{"registry": registry.Hex()})
		return nil
	})
}

func (r *Registrar) Pause(ctx context.Context, caller common.Address) error {
	return r.operatorTx(ctx, caller, func(tx *txn) error {
		if err := tx.state.Pause(); err != nil {
			return err
		}
		tx.emit(model.KindPaused, map[string]string{})
		return nil
	})
}

func (r *Registrar) Unpause(ctx context.Context, caller common.Address) error {
	return r.operatorTx(ctx, caller, func(tx *txn) error {
		if err := tx.state.Unpause(); err != nil {
			return err
		}
		tx.emit(model.KindUnpaused, map[string]string{})
		return nil
	})
}
