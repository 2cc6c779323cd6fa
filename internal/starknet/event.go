package starknet

import (
	"encoding/json"
	"fmt"
)

// Event is one contract event as delivered by an event source.
//
// Events from the node carry raw Keys and Data; Keys[0] is the event selector.
// Replayed events carry an already named Payload instead.
type Event struct {
	ContractAddress Felt            `json:"contract_address"`
	TransactionHash Felt            `json:"transaction_hash"`
	BlockNumber     uint64          `json:"block_number"`
	BlockTimestamp  uint64          `json:"block_timestamp"`
	Index           int             `json:"index"`
	Name            string          `json:"event,omitempty"`
	Keys            []Felt          `json:"keys,omitempty"`
	Data            []Felt          `json:"data,omitempty"`
	Payload         json.RawMessage `json:"payload,omitempty"`
}

// Selector returns the event selector, or zero when the event has no keys.
func (e *Event) Selector() Felt {
	if len(e.Keys) == 0 {
		return Felt{}
	}
	return e.Keys[0]
}

// Decode fills out, a pointer to a payload struct, from the event.
//
// Raw payloads are Keys[1:] followed by Data and always end with the emitting block's
// timestamp. That last felt is held back from the field decoding, so optional fields
// never consume it, and is stored in fields tagged `starknet:"block_timestamp"`.
// Such fields fall back to the envelope's BlockTimestamp when still zero.
func (e *Event) Decode(out any) error {
	var err error
	if len(e.Payload) > 0 {
		err = DecodeNamed(e.Payload, out)
	} else {
		err = e.decodeRaw(out)
	}
	if err != nil {
		return fmt.Errorf("decode %s at block %d: %w", e.Name, e.BlockNumber, err)
	}

	return fillTimestamp(out, e.BlockTimestamp)
}

func (e *Event) decodeRaw(out any) error {
	felts := make([]Felt, 0, len(e.Keys)+len(e.Data))
	if len(e.Keys) > 1 {
		felts = append(felts, e.Keys[1:]...)
	}
	felts = append(felts, e.Data...)
	if len(felts) == 0 {
		return fmt.Errorf("missing block timestamp: %w", ErrShortPayload)
	}

	body, trailer := felts[:len(felts)-1], felts[len(felts)-1]
	if err := DecodeFelts(body, out); err != nil {
		return err
	}

	ts, ok := trailer.Uint64()
	if !ok {
		return fmt.Errorf("block timestamp %s overflows uint64", trailer.Decimal())
	}
	return fillTimestamp(out, ts)
}
