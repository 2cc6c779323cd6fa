package starknet

import (
	"encoding/json"
	"fmt"
	"math/big"
	"strings"
)

// FieldPrime is the Starknet field prime P = 2^251 + 17*2^192 + 1.
var FieldPrime = func() *big.Int {
	p := new(big.Int).Lsh(big.NewInt(1), 251)       //nolint:mnd
	p.Add(p, new(big.Int).Lsh(big.NewInt(17), 192)) //nolint:mnd
	return p.Add(p, big.NewInt(1))
}()

// Felt is a Starknet field element. The zero value is 0.
type Felt struct {
	v *big.Int
}

// FeltFromBig copies b into a Felt. b must be in [0, P).
func FeltFromBig(b *big.Int) (Felt, error) {
	if b == nil {
		return Felt{}, nil
	}
	if b.Sign() < 0 || b.Cmp(FieldPrime) >= 0 {
		return Felt{}, fmt.Errorf("value %s is outside the field", b)
	}
	return Felt{v: new(big.Int).Set(b)}, nil
}

// FeltFromUint64 converts a uint64 into a Felt.
func FeltFromUint64(u uint64) Felt {
	return Felt{v: new(big.Int).SetUint64(u)}
}

// ParseFelt parses a 0x-prefixed hex string or a decimal string.
func ParseFelt(s string) (Felt, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Felt{}, fmt.Errorf("empty felt")
	}

	v := new(big.Int)
	var ok bool
	if strings.HasPrefix(s, "0x") || strings.HasPrefix(s, "0X") {
		if len(s) == 2 { //nolint:mnd
			return Felt{}, nil
		}
		_, ok = v.SetString(s[2:], 16) //nolint:mnd
	} else {
		_, ok = v.SetString(s, 10) //nolint:mnd
	}
	if !ok {
		return Felt{}, fmt.Errorf("invalid felt %q", s)
	}

	return FeltFromBig(v)
}

// MustParseFelt is ParseFelt that panics on error. Intended for constants and tests.
func MustParseFelt(s string) Felt {
	f, err := ParseFelt(s)
	if err != nil {
		panic(err)
	}
	return f
}

// NormalizeAddress returns the canonical form of an address: lowercase 0x hex without leading zeros.
func NormalizeAddress(s string) (string, error) {
	f, err := ParseFelt(s)
	if err != nil {
		return "", err
	}
	return f.Hex(), nil
}

// Big returns a copy of the value.
func (f Felt) Big() *big.Int {
	if f.v == nil {
		return new(big.Int)
	}
	return new(big.Int).Set(f.v)
}

// IsZero reports whether f is 0.
func (f Felt) IsZero() bool {
	return f.v == nil || f.v.Sign() == 0
}

// Equal reports whether two felts hold the same value.
func (f Felt) Equal(o Felt) bool {
	return f.Big().Cmp(o.Big()) == 0
}

// Uint64 returns the value and whether it fits in a uint64.
func (f Felt) Uint64() (uint64, bool) {
	b := f.Big()
	if !b.IsUint64() {
		return 0, false
	}
	return b.Uint64(), true
}

// Hex returns the canonical lowercase 0x representation, "0x0" for zero.
func (f Felt) Hex() string {
	return "0x" + f.Big().Text(16) //nolint:mnd
}

// String implements fmt.Stringer using the hex form.
func (f Felt) String() string {
	return f.Hex()
}

// Decimal returns the base 10 representation.
func (f Felt) Decimal() string {
	return f.Big().String()
}

// Bytes32 returns the big-endian 32 byte representation.
func (f Felt) Bytes32() [32]byte {
	var out [32]byte
	f.Big().FillBytes(out[:])
	return out
}

func (f Felt) MarshalJSON() ([]byte, error) {
	return json.Marshal(f.Hex())
}

// UnmarshalJSON accepts a hex or decimal string, or a bare JSON number.
func (f *Felt) UnmarshalJSON(data []byte) error {
	s := strings.Trim(string(data), `"`)
	if s == "null" {
		*f = Felt{}
		return nil
	}

	parsed, err := ParseFelt(s)
	if err != nil {
		return err
	}
	*f = parsed
	return nil
}

func (f Felt) MarshalText() ([]byte, error) {
	return []byte(f.Hex()), nil
}

func (f *Felt) UnmarshalText(text []byte) error {
	parsed, err := ParseFelt(string(text))
	if err != nil {
		return err
	}
	*f = parsed
	return nil
}
