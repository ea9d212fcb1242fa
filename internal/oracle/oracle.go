// Package oracle resolves exchange rates between tokens.
package oracle

import (
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum/common"

	"github.com/ppiankov/vaultguard/internal/fixedpoint"
	"github.com/ppiankov/vaultguard/internal/model"
)

var (
	ErrMissingFeed = model.NewRevert("ORACLE_MISSING_FEED")
	ErrBadPrice    = model.NewRevert("ORACLE_BAD_PRICE")
)

// PriceOracle returns how many units of quote one unit of base is worth,
// as an 18-decimal fixed-point rate.
type PriceOracle interface {
	Price(base, quote common.Address) (*big.Int, error)
}

type pair struct {
	base, quote common.Address
}

// Static is a PriceOracle backed by configured feeds. A missing pair is
// resolved through its inverse feed, then through the pivot token.
type Static struct {
	mu    sync.RWMutex
	feeds map[pair]*big.Int
	pivot common.Address
}

// NewStatic creates an oracle that routes indirect lookups through pivot,
// typically the wrapped native token.
func NewStatic(pivot common.Address) *Static {
	return &Static{feeds: make(map[pair]*big.Int), pivot: pivot}
}

// Set registers the rate of base denominated in quote.
func (s *Static) Set(base, quote common.Address, rate *big.Int) error {
	if rate == nil || rate.Sign() <= 0 {
		return ErrBadPrice.Withf("%s/%s: %v", base.Hex(), quote.Hex(), rate)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.feeds[pair{base, quote}] = new(big.Int).Set(rate)
	return nil
}

// Unset removes the feed for base/quote.
func (s *Static) Unset(base, quote common.Address) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.feeds, pair{base, quote})
}

// Price implements PriceOracle.
func (s *Static) Price(base, quote common.Address) (*big.Int, error) {
	if base == quote {
		return fixedpoint.One(), nil
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	if rate, ok, err := s.lookup(base, quote); ok || err != nil {
		return rate, err
	}
	if s.pivot != (common.Address{}) && base != s.pivot && quote != s.pivot {
		toPivot, ok, err := s.lookup(base, s.pivot)
		if err != nil {
			return nil, err
		}
		fromPivot, ok2, err := s.lookup(s.pivot, quote)
		if err != nil {
			return nil, err
		}
		if ok && ok2 {
			return fixedpoint.MulDown(toPivot, fromPivot)
		}
	}
	return nil, ErrMissingFeed.Withf("%s/%s", base.Hex(), quote.Hex())
}

func (s *Static) lookup(base, quote common.Address) (*big.Int, bool, error) {
	if rate, ok := s.feeds[pair{base, quote}]; ok {
		return new(big.Int).Set(rate), true, nil
	}
	if rate, ok := s.feeds[pair{quote, base}]; ok {
		inv, err := fixedpoint.Inv(rate)
		if err != nil {
			return nil, false, err
		}
		// Rates above 1e36 invert to zero at 18 decimals.
		if inv.Sign() == 0 {
			return nil, false, ErrBadPrice.Withf("%s/%s: inverse of %s rounds to zero", base.Hex(), quote.Hex(), rate)
		}
		return inv, true, nil
	}
	return nil, false, nil
}
