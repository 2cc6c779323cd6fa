package tokens

import (
	"context"
	"errors"
	"fmt"
	"math/big"

	"github.com/goran-ethernal/StarkIndexor/internal/common"
	"github.com/goran-ethernal/StarkIndexor/internal/logger"
	"github.com/goran-ethernal/StarkIndexor/internal/starknet"
	pkgrpc "github.com/goran-ethernal/StarkIndexor/pkg/rpc"
)

// Metadata substituted when a token cannot be resolved.
const (
	DefaultName     = "Unknown"
	DefaultSymbol   = "UNK"
	DefaultDecimals = 18
)

// Metadata describes an ERC20-like token.
type Metadata struct {
	Name     string
	Symbol   string
	Decimals uint8
	// Resolved is false when the defaults were substituted.
	Resolved bool
}

// DefaultMetadata returns the metadata used when resolution fails.
func DefaultMetadata() Metadata {
	return Metadata{Name: DefaultName, Symbol: DefaultSymbol, Decimals: DefaultDecimals}
}

// Resolver reads token metadata and balances through contract calls.
type Resolver struct {
	caller pkgrpc.Caller
	log    *logger.Logger
}

// NewResolver creates a Resolver using caller for contract calls.
func NewResolver(caller pkgrpc.Caller, log *logger.Logger) *Resolver {
	if log == nil {
		log = logger.NewNopLogger()
	}

	return &Resolver{caller: caller, log: log.WithComponent(common.ComponentTokenResolver)}
}

// Resolve returns name, symbol and decimals of token. Any failure yields DefaultMetadata.
func (r *Resolver) Resolve(ctx context.Context, token string) Metadata {
	md, err := r.resolve(ctx, token)
	if err != nil {
		r.log.Warnw("failed to resolve token metadata, using defaults", "token", token, "error", err)
		TokenResolveFailureInc()
		return DefaultMetadata()
	}

	return md
}

func (r *Resolver) resolve(ctx context.Context, token string) (Metadata, error) {
	if r.caller == nil {
		return Metadata{}, errors.New("no rpc caller configured")
	}

	addr, err := starknet.ParseFelt(token)
	if err != nil {
		return Metadata{}, err
	}

	name, err := r.callString(ctx, addr, "name")
	if err != nil {
		return Metadata{}, err
	}

	symbol, err := r.callString(ctx, addr, "symbol")
	if err != nil {
		return Metadata{}, err
	}

	res, err := r.caller.Call(ctx, addr, "decimals", nil)
	if err != nil {
		return Metadata{}, fmt.Errorf("decimals: %w", err)
	}
	if len(res) == 0 {
		return Metadata{}, fmt.Errorf("decimals: %w", starknet.ErrShortPayload)
	}
	decimals, ok := res[0].Uint64()
	if !ok || decimals > 255 { //nolint:mnd
		return Metadata{}, fmt.Errorf("decimals: value %s out of range", res[0].Decimal())
	}

	return Metadata{Name: name, Symbol: symbol, Decimals: uint8(decimals), Resolved: true}, nil
}

func (r *Resolver) callString(ctx context.Context, addr starknet.Felt, entrypoint string) (string, error) {
	res, err := r.caller.Call(ctx, addr, entrypoint, nil)
	if err != nil {
		return "", fmt.Errorf("%s: %w", entrypoint, err)
	}

	s, err := starknet.DecodeString(res)
	if err != nil {
		return "", fmt.Errorf("%s: %w", entrypoint, err)
	}

	return s, nil
}

// BalanceOf returns the u256 balance of account on token, trying balance_of first and then balanceOf.
func (r *Resolver) BalanceOf(ctx context.Context, token, account string) (*big.Int, error) {
	if r.caller == nil {
		return nil, errors.New("no rpc caller configured")
	}

	tokenAddr, err := starknet.ParseFelt(token)
	if err != nil {
		return nil, err
	}
	accountAddr, err := starknet.ParseFelt(account)
	if err != nil {
		return nil, err
	}

	calldata := []starknet.Felt{accountAddr}

	res, err := r.caller.Call(ctx, tokenAddr, "balance_of", calldata)
	if err != nil {
		var fallbackErr error
		res, fallbackErr = r.caller.Call(ctx, tokenAddr, "balanceOf", calldata)
		if fallbackErr != nil {
			return nil, fmt.Errorf("balance_of: %w; balanceOf: %w", err, fallbackErr)
		}
	}

	return starknet.U256FromFelts(res)
}
