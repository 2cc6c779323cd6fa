package indexer

import "fmt"

// ContractKind selects the handler set that receives a contract's events.
type ContractKind string

const (
	KindAmmFactory    ContractKind = "amm_factory"
	KindPair          ContractKind = "pair"
	KindFarmFactory   ContractKind = "farm_factory"
	KindFarm          ContractKind = "farm"
	KindFaucetFactory ContractKind = "faucet_factory"
	KindFaucet        ContractKind = "faucet"
	KindGameFactory   ContractKind = "game_factory"
	KindGameSession   ContractKind = "game_session"
)

// AllKinds lists every contract kind in routing order.
var AllKinds = []ContractKind{
	KindAmmFactory, KindPair,
	KindFarmFactory, KindFarm,
	KindFaucetFactory, KindFaucet,
	KindGameFactory, KindGameSession,
}

// Template returns the index template name of the kind's handler set.
func (k ContractKind) Template() string {
	return string(k) + "_events"
}

// Valid reports whether k is a known kind.
func (k ContractKind) Valid() bool {
	for _, known := range AllKinds {
		if k == known {
			return true
		}
	}
	return false
}

// Child returns the kind created by a factory kind.
func (k ContractKind) Child() (ContractKind, bool) {
	switch k {
	case KindAmmFactory:
		return KindPair, true
	case KindFarmFactory:
		return KindFarm, true
	case KindFaucetFactory:
		return KindFaucet, true
	case KindGameFactory:
		return KindGameSession, true
	default:
		return "", false
	}
}

// ParseKind validates s as a contract kind.
func ParseKind(s string) (ContractKind, error) {
	k := ContractKind(s)
	if !k.Valid() {
		return "", fmt.Errorf("unknown contract kind %q", s)
	}
	return k, nil
}

// ChildName builds the registered name of a factory child: <kind>_<last 8 hex chars>.
func ChildName(kind ContractKind, address string) string {
	const suffixLen = 8

	hex := address
	if len(hex) >= 2 && hex[:2] == "0x" {
		hex = hex[2:]
	}
	for len(hex) < suffixLen {
		hex = "0" + hex
	}

	return string(kind) + "_" + hex[len(hex)-suffixLen:]
}
