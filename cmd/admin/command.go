package main

import (
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"pokertable-server/pkg/ledger"
)

// buildDelta turns an operator command into a ledger delta
func buildDelta(command, playerID string, amount int64, d ledger.Denomination, reference string) (ledger.Delta, error) {
	if reference == "" {
		reference = "admin:" + command
	}

	delta := ledger.Delta{
		PlayerID:     playerID,
		Denomination: d,
		Reference:    reference,
		Metadata: map[string]interface{}{
			"source": "admin",
		},
	}

	switch command {
	case "deposit":
		delta.Type = ledger.Deposit
	case "withdraw":
		delta.Type = ledger.Withdraw
		amount = -amount
	case "bonus":
		delta.Type = ledger.Bonus
	case "adjust":
		delta.Type = ledger.Adjust
	default:
		return ledger.Delta{}, fmt.Errorf("unknown command: %s", command)
	}

	if command != "adjust" && amount == 0 {
		return ledger.Delta{}, fmt.Errorf("%s needs a positive -amount", command)
	}

	delta.Balance = amount
	if err := delta.Validate(); err != nil {
		return ledger.Delta{}, err
	}

	return delta, nil
}

func describeDelta(d ledger.Delta) string {
	return fmt.Sprintf("Apply %s of %d %s to %s", d.Type, d.Balance, d.Denomination, d.PlayerID)
}

func printBalances(w io.Writer, b *ledger.Balances) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	_, _ = fmt.Fprintln(tw, "DENOMINATION\tBALANCE\tRESERVED\tAVAILABLE")
	for _, d := range ledger.Denominations {
		bal := b.Get(d)
		_, _ = fmt.Fprintf(tw, "%s\t%d\t%d\t%d\n", d, bal.Balance, bal.Reserved, bal.Available())
	}
	_ = tw.Flush()
}

func printHistory(w io.Writer, txs []*ledger.Transaction) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	_, _ = fmt.Fprintln(tw, "CREATED\tTYPE\tDENOMINATION\tDELTA\tRESERVED\tBALANCE\tREFERENCE")
	for _, tx := range txs {
		_, _ = fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%d\t%d\t%s\n",
			tx.Created.Format(time.RFC3339), tx.Type, tx.Denomination, tx.BalanceDelta, tx.ReservedDelta, tx.BalanceAfter, tx.Reference)
	}
	_ = tw.Flush()
}
