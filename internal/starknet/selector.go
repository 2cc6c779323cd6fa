package starknet

import (
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum/crypto"
)

var selectorMask = new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 250), big.NewInt(1)) //nolint:mnd

var selectorCache sync.Map // string -> Felt

// Selector returns the Starknet selector of an event or entrypoint name:
// keccak256(name) truncated to its low 250 bits.
func Selector(name string) Felt {
	if cached, ok := selectorCache.Load(name); ok {
		return cached.(Felt) //nolint:forcetypeassert
	}

	h := new(big.Int).SetBytes(crypto.Keccak256([]byte(name)))
	f := Felt{v: h.And(h, selectorMask)}
	selectorCache.Store(name, f)

	return f
}
