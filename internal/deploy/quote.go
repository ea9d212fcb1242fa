package deploy

import (
	"crypto/ecdsa"
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"

	"github.com/ppiankov/vaultguard/internal/action"
	"github.com/ppiankov/vaultguard/internal/signers"
)

// Quote is a swap request to be approved by a trusted signer. Amounts
// take units and tokens take names, as in Invoke arguments.
type Quote struct {
	Swapper      string
	TokenIn      string
	AmountIn     string
	MinAmountOut string
	Deadline     string
	Nonce        uint64
}

// SignedQuote is a quote hash and a signature over it.
type SignedQuote struct {
	Swapper   common.Address `json:"swapper"`
	Signer    common.Address `json:"signer"`
	Hash      common.Hash    `json:"hash"`
	Deadline  time.Time      `json:"deadline"`
	Signature string         `json:"signature"`
}

// SignQuote hashes q against the named swapper's settings and signs it
// with key. The signature is what the swapper's call takes last.
func (d *Deployment) SignQuote(q Quote, key *ecdsa.PrivateKey) (*SignedQuote, error) {
	a, err := d.Action(q.Swapper)
	if err != nil {
		return nil, err
	}
	swapper, ok := a.(*action.Swapper)
	if !ok {
		return nil, fmt.Errorf("%w: %s is a %s, not a swapper", ErrBadArgument, a.Name(), a.Kind())
	}
	tokenIn, err := d.Resolve(q.TokenIn)
	if err != nil {
		return nil, fmt.Errorf("%w: token_in: %w", ErrBadArgument, err)
	}
	amountIn, err := ParseAmount(q.AmountIn)
	if err != nil {
		return nil, fmt.Errorf("%w: amount_in: %w", ErrBadArgument, err)
	}
	minOut, err := ParseAmount(q.MinAmountOut)
	if err != nil {
		return nil, fmt.Errorf("%w: min_amount_out: %w", ErrBadArgument, err)
	}
	deadline, err := ParseDeadline(q.Deadline)
	if err != nil {
		return nil, fmt.Errorf("%w: deadline: %w", ErrBadArgument, err)
	}

	var tokenOut common.Address
	_ = d.Env.View(func() error {
		tokenOut = swapper.TokenOut()
		return nil
	})
	hash, err := action.QuoteHash(swapper.Address(), tokenIn, tokenOut, amountIn, minOut, deadline, q.Nonce)
	if err != nil {
		return nil, fmt.Errorf("quote hash: %w", err)
	}
	sig, err := signers.Sign(hash, key)
	if err != nil {
		return nil, fmt.Errorf("sign quote: %w", err)
	}
	return &SignedQuote{
		Swapper:   swapper.Address(),
		Signer:    crypto.PubkeyToAddress(key.PublicKey),
		Hash:      hash,
		Deadline:  deadline,
		Signature: hexutil.Encode(sig),
	}, nil
}
