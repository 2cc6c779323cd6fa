package db

import (
	"database/sql"
	"fmt"
	"math/big"

	"github.com/russross/meddler"
)

func init() {
	meddler.Register("u256", U256Meddler{})
}

// U256Meddler stores *big.Int fields as decimal TEXT so 256-bit token amounts survive SQLite round trips.
// NULL reads back as zero and a nil field is written as "0".
type U256Meddler struct{}

func (U256Meddler) PreRead(fieldAddr interface{}) (scanTarget interface{}, err error) {
	return new(sql.NullString), nil
}

func (U256Meddler) PostRead(fieldAddr, scanTarget interface{}) error {
	ns, ok := scanTarget.(*sql.NullString)
	if !ok {
		return fmt.Errorf("expected *sql.NullString, got %T", scanTarget)
	}

	ptr, ok := fieldAddr.(**big.Int)
	if !ok {
		return fmt.Errorf("expected **big.Int, got %T", fieldAddr)
	}

	if !ns.Valid || ns.String == "" {
		*ptr = new(big.Int)
		return nil
	}

	v, ok := new(big.Int).SetString(ns.String, 10) //nolint:mnd
	if !ok {
		return fmt.Errorf("invalid u256 value %q", ns.String)
	}

	*ptr = v
	return nil
}

func (U256Meddler) PreWrite(field interface{}) (saveValue interface{}, err error) {
	v, ok := field.(*big.Int)
	if !ok {
		return nil, fmt.Errorf("expected *big.Int, got %T", field)
	}

	if v == nil {
		return "0", nil
	}

	return v.String(), nil
}
