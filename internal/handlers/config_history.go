package handlers

import (
	"fmt"

	"github.com/goran-ethernal/StarkIndexor/internal/starknet"
	"github.com/goran-ethernal/StarkIndexor/internal/store"
)

type valueKind int

const (
	valueInteger valueKind = iota
	valueUint64
	valueAddress
	valueBool
)

// format renders a config value for the audit trail.
func (k valueKind) format(f starknet.Felt) string {
	switch k {
	case valueAddress:
		return f.Hex()
	case valueBool:
		if f.IsZero() {
			return "false"
		}
		return "true"
	default:
		return f.Decimal()
	}
}

// FieldUnknown is the ordinal of a config field that no table entry matches.
const FieldUnknown = -1

// ConfigField identifies the field named by a ConfigUpdated event. Contracts emit either a
// short string holding the field name or the ordinal of the field in the entity's field list.
type ConfigField struct {
	Ordinal int
	Name    string
}

func (f ConfigField) Known() bool {
	return f.Ordinal != FieldUnknown
}

// fieldSpec describes one configurable field of entity type T.
type fieldSpec[T any] struct {
	name string
	kind valueKind
	set  func(e *T, v starknet.Felt)
}

// configTable is the ordered field list of one entity kind.
type configTable[T any] []fieldSpec[T]

// field resolves the identifier felt of a ConfigUpdated event.
func (t configTable[T]) field(id starknet.Felt) ConfigField {
	if starknet.IsShortString(id) {
		name := starknet.ShortString(id)
		for i, def := range t {
			if def.name == name {
				return ConfigField{Ordinal: i, Name: name}
			}
		}
		return ConfigField{Ordinal: FieldUnknown, Name: name}
	}

	if n, ok := id.Uint64(); ok && n < uint64(len(t)) {
		return ConfigField{Ordinal: int(n), Name: t[n].name} //nolint:gosec
	}

	return ConfigField{Ordinal: FieldUnknown, Name: id.Hex()}
}

// apply records a change of field id on e and mutates the matching field.
// Unknown fields are recorded as integers but leave e untouched. A value that does not
// fit a uint64 field is rejected: e and history are left as they were.
func (t configTable[T]) apply(
	e *T, history *store.ConfigHistory, entity string, id, oldValue, newValue starknet.Felt, ts uint64,
) (ConfigField, error) {
	field := t.field(id)
	kind := valueInteger
	if field.Known() {
		def := t[field.Ordinal]
		if _, ok := newValue.Uint64(); def.kind == valueUint64 && !ok {
			return field, fmt.Errorf("value %s of %s overflows uint64", newValue.Decimal(), field.Name)
		}
		kind = def.kind
		def.set(e, newValue)
	}

	history.Append(field.Name, kind.format(oldValue), kind.format(newValue), ts)
	ConfigChangeInc(entity, field.Known())

	return field, nil
}

// applyConfig applies a ConfigUpdated event to e, logging rejected values.
func applyConfig[T any](c *call, t configTable[T], e *T, history *store.ConfigHistory, entity string,
	id, oldValue, newValue starknet.Felt,
) {
	if _, err := t.apply(e, history, entity, id, oldValue, newValue, c.ts); err != nil {
		c.log.Warnf("ignoring %s config update on %s (tx %s): %v", entity, c.contract, c.txHash, err)
	}
}

// recordChange appends a fixed-name change emitted by a dedicated event.
func recordChange(history *store.ConfigHistory, entity, field string, kind valueKind, oldValue, newValue starknet.Felt, ts uint64) {
	history.Append(field, kind.format(oldValue), kind.format(newValue), ts)
	ConfigChangeInc(entity, true)
}

// setUint64 leaves dst unchanged when v does not fit.
func setUint64(dst *uint64, v starknet.Felt) {
	if n, ok := v.Uint64(); ok {
		*dst = n
	}
}

var ammFactoryConfig = configTable[store.AmmFactory]{
	{"owner", valueAddress, func(e *store.AmmFactory, v starknet.Felt) { e.Owner = v.Hex() }},
	{"fee_to", valueAddress, func(e *store.AmmFactory, v starknet.Felt) { e.FeeTo = v.Hex() }},
	{"pair_contract_class_hash", valueAddress, func(e *store.AmmFactory, v starknet.Felt) {
		e.PairContractClassHash = v.Hex()
	}},
	{"game_session_id", valueUint64, func(e *store.AmmFactory, v starknet.Felt) { setUint64(&e.GameSessionID, v) }},
}

var pairConfig = configTable[store.Pair]{
	{"game_session_id", valueUint64, func(e *store.Pair, v starknet.Felt) { setUint64(&e.GameSessionID, v) }},
}

var farmFactoryConfig = configTable[store.FarmFactory]{
	{"owner", valueAddress, func(e *store.FarmFactory, v starknet.Felt) { e.Owner = v.Hex() }},
	{"farm_class_hash", valueAddress, func(e *store.FarmFactory, v starknet.Felt) { e.FarmClassHash = v.Hex() }},
	{"game_session_id", valueUint64, func(e *store.FarmFactory, v starknet.Felt) { setUint64(&e.GameSessionID, v) }},
}

var farmConfig = configTable[store.Farm]{
	{"locked", valueBool, func(e *store.Farm, v starknet.Felt) { e.Locked = !v.IsZero() }},
	{"multiplier", valueInteger, func(e *store.Farm, v starknet.Felt) { e.Multiplier = v.Big() }},
	{"penalty_duration", valueUint64, func(e *store.Farm, v starknet.Felt) { setUint64(&e.PenaltyDuration, v) }},
	{"withdraw_penalty", valueInteger, func(e *store.Farm, v starknet.Felt) { e.WithdrawPenalty = v.Big() }},
	{"penalty_receiver", valueAddress, func(e *store.Farm, v starknet.Felt) { e.PenaltyReceiver = v.Hex() }},
	{"game_session_id", valueUint64, func(e *store.Farm, v starknet.Felt) { setUint64(&e.GameSessionID, v) }},
}

var faucetFactoryConfig = configTable[store.FaucetFactory]{
	{"owner", valueAddress, func(e *store.FaucetFactory, v starknet.Felt) { e.Owner = v.Hex() }},
	{"faucet_class_hash", valueAddress, func(e *store.FaucetFactory, v starknet.Felt) { e.FaucetClassHash = v.Hex() }},
	{"game_session_id", valueUint64, func(e *store.FaucetFactory, v starknet.Felt) {
		setUint64(&e.GameSessionID, v)
	}},
}

var faucetConfig = configTable[store.Faucet]{
	{"owner", valueAddress, func(e *store.Faucet, v starknet.Felt) { e.Owner = v.Hex() }},
	{"claim_interval", valueUint64, func(e *store.Faucet, v starknet.Felt) { setUint64(&e.ClaimInterval, v) }},
	{"game_session_id", valueUint64, func(e *store.Faucet, v starknet.Felt) { setUint64(&e.GameSessionID, v) }},
}

var gameFactoryConfig = configTable[store.GameFactory]{
	{"owner", valueAddress, func(e *store.GameFactory, v starknet.Felt) { e.Owner = v.Hex() }},
	{"game_session_class_hash", valueAddress, func(e *store.GameFactory, v starknet.Felt) {
		e.GameSessionClassHash = v.Hex()
	}},
}

var gameSessionConfig = configTable[store.GameSession]{
	{"burn_fee_percentage", valueUint64, func(e *store.GameSession, v starknet.Felt) {
		setUint64(&e.BurnFeePercentage, v)
	}},
	{"platform_fee_percentage", valueUint64, func(e *store.GameSession, v starknet.Felt) {
		setUint64(&e.PlatformFeePercentage, v)
	}},
	{"fee_recipient", valueAddress, func(e *store.GameSession, v starknet.Felt) { e.FeeRecipient = v.Hex() }},
}
