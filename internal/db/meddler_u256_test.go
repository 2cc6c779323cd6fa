package db

import (
	"database/sql"
	"math/big"
	"path/filepath"
	"testing"

	"github.com/russross/meddler"
	"github.com/stretchr/testify/require"
)

type u256Row struct {
	ID     int64    `meddler:"id,pk"`
	Amount *big.Int `meddler:"amount,u256"`
}

func TestU256Meddler_RoundTrip(t *testing.T) {
	t.Parallel()

	sqlDB, err := NewSQLiteDB(filepath.Join(t.TempDir(), "u256.sqlite"))
	require.NoError(t, err)
	t.Cleanup(func() { sqlDB.Close() })

	_, err = sqlDB.Exec(`CREATE TABLE amounts (id INTEGER PRIMARY KEY AUTOINCREMENT, amount TEXT)`)
	require.NoError(t, err)

	maxU256 := new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 256), big.NewInt(1))

	tests := []struct {
		name string
		in   *big.Int
		want *big.Int
	}{
		{name: "max u256", in: maxU256, want: maxU256},
		{name: "zero", in: big.NewInt(0), want: big.NewInt(0)},
		{name: "nil stored as zero", in: nil, want: big.NewInt(0)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			row := &u256Row{Amount: tt.in}
			require.NoError(t, meddler.Insert(sqlDB, "amounts", row))

			var got u256Row
			require.NoError(t, meddler.Load(sqlDB, "amounts", &got, row.ID))
			require.Zero(t, tt.want.Cmp(got.Amount), "got %s", got.Amount)
		})
	}
}

func TestU256Meddler_NullAndInvalid(t *testing.T) {
	t.Parallel()

	m := U256Meddler{}

	var v *big.Int
	require.NoError(t, m.PostRead(&v, &sql.NullString{}))
	require.Zero(t, v.Sign())

	require.Error(t, m.PostRead(&v, &sql.NullString{String: "0xzz", Valid: true}))

	_, err := m.PreWrite("123")
	require.Error(t, err)
}
