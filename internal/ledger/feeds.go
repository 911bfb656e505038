package ledger

import (
	"bytes"
	"math/big"
	"sort"

	"github.com/ethereum/go-ethereum/common"
)

// Feed is the per-currency record: oracle reference, currency precision and the
// operator-owed balance collected in that currency.
type Feed struct {
	Currency  common.Address `json:"currency"`
	Oracle    common.Address `json:"oracle"`
	Decimals  uint8          `json:"decimals"`
	Collected *big.Int       `json:"collected"`
}

func (f *Feed) clone() *Feed {
	cp := *f
	cp.Collected = new(big.Int).Set(f.Collected)
	return &cp
}

// FeedRegistry maps each accepted settlement currency to its feed.
type FeedRegistry struct {
	feeds map[common.Address]*Feed
}

func NewFeedRegistry() *FeedRegistry {
	return &FeedRegistry{feeds: make(map[common.Address]*Feed)}
}

func validateFeedParams(currency, oracle common.Address, decimals uint8) error {
	if currency == (common.Address{}) || oracle == (common.Address{}) {
		return ErrZeroReference
	}
	if decimals < MinCurrencyDecimals {
		return ErrUnsupportedPrecision
	}
	return nil
}

func (r *FeedRegistry) Add(currency, oracle common.Address, decimals uint8) error {
	if err := validateFeedParams(currency, oracle, decimals); err != nil {
		return err
	}
	if _, ok := r.feeds[currency]; ok {
		return ErrFeedExists.Withf("%s", currency.Hex())
	}
	r.feeds[currency] = &Feed{
		Currency:  currency,
		Oracle:    oracle,
		Decimals:  decimals,
		Collected: new(big.Int),
	}
	return nil
}

// Update replaces the oracle and precision. The collected balance is kept as is.
func (r *FeedRegistry) Update(currency, oracle common.Address, decimals uint8) error {
	if err := validateFeedParams(currency, oracle, decimals); err != nil {
		return err
	}
	feed, ok := r.feeds[currency]
	if !ok {
		return ErrNotAFeed.Withf("%s", currency.Hex())
	}
	feed.Oracle = oracle
	feed.Decimals = decimals
	return nil
}

// Remove deletes the feed and returns the collected balance the caller must pay out.
func (r *FeedRegistry) Remove(currency common.Address) (*big.Int, error) {
	if currency == (common.Address{}) {
		return nil, ErrZeroReference
	}
	feed, ok := r.feeds[currency]
	if !ok {
		return nil, ErrNotAFeed.Withf("%s", currency.Hex())
	}
	delete(r.feeds, currency)
	return feed.Collected, nil
}

// Forward zeroes the collected balance and returns it for payout.
func (r *FeedRegistry) Forward(currency common.Address) (*big.Int, error) {
	if currency == (common.Address{}) {
		return nil, ErrZeroReference
	}
	feed, ok := r.feeds[currency]
	if !ok {
		return nil, ErrNotAFeed.Withf("%s", currency.Hex())
	}
	if feed.Collected.Sign() == 0 {
		return nil, ErrNothingToForward
	}
	amount := feed.Collected
	feed.Collected = new(big.Int)
	return amount, nil
}

// Credit adds an operator share to the currency's collected balance.
func (r *FeedRegistry) Credit(currency common.Address, amount *big.Int) error {
	feed, ok := r.feeds[currency]
	if !ok {
		return ErrUnsupportedCurrency.Withf("%s", currency.Hex())
	}
	feed.Collected = new(big.Int).Add(feed.Collected, amount)
	return nil
}

// Get returns a copy of the feed for currency.
func (r *FeedRegistry) Get(currency common.Address) (Feed, bool) {
	feed, ok := r.feeds[currency]
	if !ok {
		return Feed{}, false
	}
	return *feed.clone(), true
}

// List returns copies of all feeds ordered by currency address.
func (r *FeedRegistry) List() []Feed {
	out := make([]Feed, 0, len(r.feeds))
	for _, feed := range r.feeds {
		out = append(out, *feed.clone())
	}
	sort.Slice(out, func(i, j int) bool {
		return bytes.Compare(out[i].Currency.Bytes(), out[j].Currency.Bytes()) < 0
	})
	return out
}

func (r *FeedRegistry) Clone() *FeedRegistry {
	cp := NewFeedRegistry()
	for k, v := range r.feeds {
		cp.feeds[k] = v.clone()
	}
	return cp
}
