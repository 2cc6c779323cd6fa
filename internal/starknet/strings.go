package starknet

import (
	"bytes"
	"errors"
	"fmt"
	"math/big"
)

// bytesPerWord is the number of bytes packed into one ByteArray word.
const bytesPerWord = 31

var ErrShortPayload = errors.New("payload has fewer felts than required")

// ShortString decodes a Cairo short string: big-endian bytes with NUL padding removed.
func ShortString(f Felt) string {
	return string(bytes.Trim(f.Big().Bytes(), "\x00"))
}

// IsShortString reports whether f is a non-empty Cairo short string of printable ASCII.
func IsShortString(f Felt) bool {
	b := bytes.Trim(f.Big().Bytes(), "\x00")
	if len(b) == 0 {
		return false
	}
	for _, c := range b {
		if c < 0x20 || c > 0x7e {
			return false
		}
	}
	return true
}

// EncodeShortString packs up to 31 ASCII bytes into a felt.
func EncodeShortString(s string) (Felt, error) {
	if len(s) > bytesPerWord {
		return Felt{}, fmt.Errorf("short string %q longer than %d bytes", s, bytesPerWord)
	}
	return Felt{v: new(big.Int).SetBytes([]byte(s))}, nil
}

// DecodeByteArray decodes a serialized ByteArray:
// [num_full_words, word_0 ... word_n-1, pending_word, pending_word_len].
func DecodeByteArray(felts []Felt) (string, error) {
	if len(felts) < 3 { //nolint:mnd
		return "", fmt.Errorf("byte array: %w", ErrShortPayload)
	}

	n, ok := felts[0].Uint64()
	if !ok || uint64(len(felts)) != n+3 { //nolint:mnd
		return "", fmt.Errorf("byte array: declared %s words for %d felts", felts[0].Decimal(), len(felts))
	}

	var buf bytes.Buffer
	word := make([]byte, bytesPerWord)
	for i := uint64(0); i < n; i++ {
		w := felts[1+i].Big()
		if w.BitLen() > bytesPerWord*8 {
			return "", fmt.Errorf("byte array: word %d exceeds %d bytes", i, bytesPerWord)
		}
		w.FillBytes(word)
		buf.Write(word)
	}

	pendingLen, ok := felts[n+2].Uint64()
	if !ok || pendingLen >= bytesPerWord {
		return "", fmt.Errorf("byte array: invalid pending word length %s", felts[n+2].Decimal())
	}
	if pendingLen > 0 {
		p := felts[n+1].Big()
		if uint64(p.BitLen()) > pendingLen*8 {
			return "", fmt.Errorf("byte array: pending word exceeds %d bytes", pendingLen)
		}
		pending := make([]byte, pendingLen)
		p.FillBytes(pending)
		buf.Write(pending)
	}

	return buf.String(), nil
}

// DecodeString decodes either a legacy short string (one felt) or a ByteArray.
func DecodeString(felts []Felt) (string, error) {
	switch len(felts) {
	case 0:
		return "", ErrShortPayload
	case 1:
		return ShortString(felts[0]), nil
	default:
		return DecodeByteArray(felts)
	}
}
