package main

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pokertable-server/pkg/ledger"
)

func TestBuildDelta(t *testing.T) {
	a := assert.New(t)

	d, err := buildDelta("deposit", "p1", 100, ledger.GLD, "")
	require.NoError(t, err)
	a.Equal(ledger.Deposit, d.Type)
	a.Equal(int64(100), d.Balance)
	a.Equal("admin:deposit", d.Reference)
	a.Equal("Apply DEPOSIT of 100 GLD to p1", describeDelta(d))

	d, err = buildDelta("withdraw", "p1", 40, ledger.PGLD, "ticket-9")
	require.NoError(t, err)
	a.Equal(ledger.Withdraw, d.Type)
	a.Equal(int64(-40), d.Balance)
	a.Equal(ledger.PGLD, d.Denomination)
	a.Equal("ticket-9", d.Reference)

	d, err = buildDelta("adjust", "p1", -5, ledger.GLD, "")
	require.NoError(t, err)
	a.Equal(ledger.Adjust, d.Type)
	a.Equal(int64(-5), d.Balance)

	d, err = buildDelta("bonus", "p1", 10, ledger.PGLD, "")
	require.NoError(t, err)
	a.Equal(ledger.Bonus, d.Type)

	_, err = buildDelta("deposit", "p1", 0, ledger.GLD, "")
	a.EqualError(err, "deposit needs a positive -amount")

	_, err = buildDelta("deposit", "p1", -10, ledger.GLD, "")
	a.Error(err)

	_, err = buildDelta("steal", "p1", 10, ledger.GLD, "")
	a.EqualError(err, "unknown command: steal")
}

func TestPrintBalances(t *testing.T) {
	buf := &bytes.Buffer{}
	printBalances(buf, &ledger.Balances{
		PlayerID: "p1",
		GLD:      ledger.Balance{Balance: 500, Reserved: 200},
	})

	assert.Equal(t, "DENOMINATION  BALANCE  RESERVED  AVAILABLE\n"+
		"GLD           500      200       300\n"+
		"PGLD          0        0         0\n", buf.String())
}

func TestPrintHistory(t *testing.T) {
	buf := &bytes.Buffer{}
	printHistory(buf, []*ledger.Transaction{{
		Type:         ledger.Deposit,
		Denomination: ledger.GLD,
		BalanceDelta: 100,
		BalanceAfter: 100,
		Reference:    "admin:deposit",
		Created:      time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC),
	}})

	assert.Contains(t, buf.String(), "2024-01-02T03:04:05Z")
	assert.Contains(t, buf.String(), "admin:deposit")
}
