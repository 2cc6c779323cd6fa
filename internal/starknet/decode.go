package starknet

import (
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"reflect"
	"strconv"
	"strings"
)

// Struct tag values understood by the payload decoders.
const (
	tagKey       = "starknet"
	tagSkip      = "-"
	tagOptional  = "optional"
	tagTimestamp = "block_timestamp"
)

var (
	feltType   = reflect.TypeOf(Felt{})
	bigIntType = reflect.TypeOf((*big.Int)(nil))

	u128Limit = new(big.Int).Lsh(big.NewInt(1), 128) //nolint:mnd
	u256Limit = new(big.Int).Lsh(big.NewInt(1), 256) //nolint:mnd
)

// DecodeFelts fills the struct pointed to by out from felts, field by field in declaration order:
//
//	Felt              one felt
//	*big.Int          u256 as two felts (low, high)
//	uint8..uint64     one felt, range checked
//	bool              one felt, non-zero is true
//	string            one felt holding a short string
//	[]Felt            length prefixed array
//	*T                like T, left nil when an optional field is absent
//
// Fields tagged `starknet:"-"` or `starknet:"block_timestamp"` are not read from felts.
// Fields tagged `starknet:"optional"` may be missing at the end of the payload; felts
// must not carry the trailing block timestamp, see Event.Decode.
func DecodeFelts(felts []Felt, out any) error {
	v, err := structValue(out)
	if err != nil {
		return err
	}

	r := &feltReader{felts: felts}
	t := v.Type()
	for i := 0; i < t.NumField(); i++ {
		sf := t.Field(i)
		if !sf.IsExported() {
			continue
		}

		tag := sf.Tag.Get(tagKey)
		if tag == tagSkip || tag == tagTimestamp {
			continue
		}
		if tag == tagOptional && r.remaining() == 0 {
			continue
		}

		if err := r.decode(v.Field(i)); err != nil {
			return fmt.Errorf("field %s: %w", sf.Name, err)
		}
	}

	return nil
}

type feltReader struct {
	felts []Felt
	pos   int
}

func (r *feltReader) remaining() int {
	return len(r.felts) - r.pos
}

func (r *feltReader) next() (Felt, error) {
	if r.pos >= len(r.felts) {
		return Felt{}, ErrShortPayload
	}
	f := r.felts[r.pos]
	r.pos++
	return f, nil
}

func (r *feltReader) decode(field reflect.Value) error {
	switch {
	case field.Type() == feltType:
		f, err := r.next()
		if err != nil {
			return err
		}
		field.Set(reflect.ValueOf(f))
		return nil

	case field.Type() == bigIntType:
		low, err := r.next()
		if err != nil {
			return err
		}
		high, err := r.next()
		if err != nil {
			return err
		}
		v, err := joinU256(low.Big(), high.Big())
		if err != nil {
			return err
		}
		field.Set(reflect.ValueOf(v))
		return nil
	}

	switch field.Kind() { //nolint:exhaustive
	case reflect.Ptr:
		elem := reflect.New(field.Type().Elem())
		if err := r.decode(elem.Elem()); err != nil {
			return err
		}
		field.Set(elem)
		return nil

	case reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uint:
		f, err := r.next()
		if err != nil {
			return err
		}
		return setUint(field, f.Big())

	case reflect.Bool:
		f, err := r.next()
		if err != nil {
			return err
		}
		field.SetBool(!f.IsZero())
		return nil

	case reflect.String:
		f, err := r.next()
		if err != nil {
			return err
		}
		field.SetString(ShortString(f))
		return nil

	case reflect.Slice:
		if field.Type().Elem() != feltType {
			return fmt.Errorf("unsupported slice type %s", field.Type())
		}
		n, err := r.next()
		if err != nil {
			return err
		}
		count, ok := n.Uint64()
		if !ok || count > uint64(r.remaining()) {
			return fmt.Errorf("array length %s exceeds payload: %w", n.Decimal(), ErrShortPayload)
		}
		items := make([]Felt, count)
		for i := range items {
			items[i], _ = r.next()
		}
		field.Set(reflect.ValueOf(items))
		return nil
	}

	return fmt.Errorf("unsupported field type %s", field.Type())
}

// DecodeNamed fills the struct pointed to by out from a JSON object keyed by the fields' json tags.
// Felts and integers may be given as hex strings, decimal strings or JSON numbers.
func DecodeNamed(raw json.RawMessage, out any) error {
	v, err := structValue(out)
	if err != nil {
		return err
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil {
		return fmt.Errorf("payload is not a JSON object: %w", err)
	}

	t := v.Type()
	for i := 0; i < t.NumField(); i++ {
		sf := t.Field(i)
		if !sf.IsExported() || sf.Tag.Get(tagKey) == tagSkip {
			continue
		}

		name := jsonName(sf)
		value, ok := fields[name]
		if !ok || string(value) == "null" {
			tag := sf.Tag.Get(tagKey)
			if tag == tagOptional || tag == tagTimestamp {
				continue
			}
			return fmt.Errorf("field %s: missing %q", sf.Name, name)
		}

		if err := decodeJSONValue(v.Field(i), value); err != nil {
			return fmt.Errorf("field %s: %w", sf.Name, err)
		}
	}

	return nil
}

func decodeJSONValue(field reflect.Value, raw json.RawMessage) error {
	switch {
	case field.Type() == feltType:
		var f Felt
		if err := f.UnmarshalJSON(raw); err != nil {
			return err
		}
		field.Set(reflect.ValueOf(f))
		return nil

	case field.Type() == bigIntType:
		b, err := parseU256(scalarText(raw))
		if err != nil {
			return err
		}
		field.Set(reflect.ValueOf(b))
		return nil
	}

	switch field.Kind() { //nolint:exhaustive
	case reflect.Ptr:
		elem := reflect.New(field.Type().Elem())
		if err := decodeJSONValue(elem.Elem(), raw); err != nil {
			return err
		}
		field.Set(elem)
		return nil

	case reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uint:
		b, err := parseU256(scalarText(raw))
		if err != nil {
			return err
		}
		return setUint(field, b)

	case reflect.Bool:
		s := scalarText(raw)
		if parsed, err := strconv.ParseBool(s); err == nil {
			field.SetBool(parsed)
			return nil
		}
		b, err := parseU256(s)
		if err != nil {
			return fmt.Errorf("invalid bool %q", s)
		}
		field.SetBool(b.Sign() != 0)
		return nil

	case reflect.String:
		field.SetString(scalarText(raw))
		return nil

	case reflect.Slice:
		if field.Type().Elem() != feltType {
			return fmt.Errorf("unsupported slice type %s", field.Type())
		}
		var items []Felt
		if err := json.Unmarshal(raw, &items); err != nil {
			return err
		}
		field.Set(reflect.ValueOf(items))
		return nil
	}

	return fmt.Errorf("unsupported field type %s", field.Type())
}

func fillTimestamp(out any, ts uint64) error {
	v, err := structValue(out)
	if err != nil {
		return err
	}

	t := v.Type()
	for i := 0; i < t.NumField(); i++ {
		if t.Field(i).Tag.Get(tagKey) != tagTimestamp {
			continue
		}
		f := v.Field(i)
		if f.Kind() == reflect.Uint64 && f.Uint() == 0 {
			f.SetUint(ts)
		}
	}

	return nil
}

func structValue(out any) (reflect.Value, error) {
	v := reflect.ValueOf(out)
	if v.Kind() != reflect.Ptr || v.IsNil() || v.Elem().Kind() != reflect.Struct {
		return reflect.Value{}, fmt.Errorf("decode target must be a non-nil struct pointer, got %T", out)
	}
	return v.Elem(), nil
}

func jsonName(sf reflect.StructField) string {
	name, _, _ := strings.Cut(sf.Tag.Get("json"), ",")
	if name == "" {
		return sf.Name
	}
	return name
}

func scalarText(raw json.RawMessage) string {
	return strings.Trim(strings.TrimSpace(string(raw)), `"`)
}

func setUint(field reflect.Value, b *big.Int) error {
	if !b.IsUint64() || field.OverflowUint(b.Uint64()) {
		return fmt.Errorf("value %s overflows %s", b, field.Type())
	}
	field.SetUint(b.Uint64())
	return nil
}

// joinU256 combines the (low, high) 128-bit limbs of a Cairo u256.
func joinU256(low, high *big.Int) (*big.Int, error) {
	if low.Cmp(u128Limit) >= 0 || high.Cmp(u128Limit) >= 0 {
		return nil, errors.New("u256 limb exceeds 128 bits")
	}
	return new(big.Int).Add(new(big.Int).Lsh(high, 128), low), nil //nolint:mnd
}

// SplitU256 returns the (low, high) limbs of v as calldata felts.
func SplitU256(v *big.Int) (Felt, Felt) {
	low := new(big.Int).And(v, new(big.Int).Sub(u128Limit, big.NewInt(1)))
	high := new(big.Int).Rsh(v, 128) //nolint:mnd
	return Felt{v: low}, Felt{v: high}
}

// U256FromFelts decodes a u256 from the first two felts of a call result.
func U256FromFelts(felts []Felt) (*big.Int, error) {
	if len(felts) < 2 { //nolint:mnd
		return nil, ErrShortPayload
	}
	return joinU256(felts[0].Big(), felts[1].Big())
}

func parseU256(s string) (*big.Int, error) {
	v := new(big.Int)
	var ok bool
	if strings.HasPrefix(s, "0x") || strings.HasPrefix(s, "0X") {
		_, ok = v.SetString(s[2:], 16) //nolint:mnd
	} else {
		_, ok = v.SetString(s, 10) //nolint:mnd
	}
	if !ok {
		return nil, fmt.Errorf("invalid integer %q", s)
	}
	if v.Sign() < 0 || v.Cmp(u256Limit) >= 0 {
		return nil, fmt.Errorf("integer %s outside u256 range", s)
	}
	return v, nil
}
