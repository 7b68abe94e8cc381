package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/term"
	"pokertable-server/internal/config"
	"pokertable-server/internal/jwt"
	"pokertable-server/internal/storage"
	"pokertable-server/pkg/ledger"
)

var command = flag.String("c", "balance", "specifies the command (deposit, withdraw, bonus, adjust, balance, history, token)")
var playerID = flag.String("player", "", "the player ID")
var amount = flag.Int64("amount", 0, "the amount of chips, adjust accepts a negative amount")
var denomination = flag.String("denomination", string(ledger.GLD), "GLD or PGLD")
var reference = flag.String("reference", "", "the reference recorded on the transaction")
var rows = flag.Int("rows", 25, "the number of transactions shown by history")
var ttl = flag.Duration("ttl", 24*time.Hour, "how long a minted token is valid")
var yes = flag.Bool("y", false, "do not ask for confirmation")

func main() {
	flag.Parse()

	if *playerID == "" {
		logrus.Fatal("-player is required")
	}

	if *command == "token" {
		jwt.LoadKeys()
		signed, err := jwt.Sign(*playerID, *ttl)
		if err != nil {
			logrus.WithError(err).Fatal("could not sign token")
		}

		fmt.Println(signed)
		return
	}

	d, err := ledger.ParseDenomination(*denomination)
	if err != nil {
		logrus.WithError(err).Fatal("invalid denomination")
	}

	cfg := config.Instance()
	if cfg.Ledger.Driver == config.DriverMemory {
		logrus.Fatal("the admin tool needs a postgres or sqlite ledger")
	}

	store, closer, err := storage.OpenStore(cfg)
	if err != nil {
		logrus.WithError(err).Fatal("could not open ledger")
	}
	defer closer.Close()

	svc := ledger.NewService(store, cfg.Ledger.Retry, nil)
	ctx := context.Background()

	switch *command {
	case "balance":
		balances, err := svc.Balances(ctx, *playerID)
		if err != nil {
			logrus.WithError(err).Fatal("could not get balances")
		}

		printBalances(os.Stdout, balances)
	case "history":
		txs, err := svc.History(ctx, *playerID, d, *rows)
		if err != nil {
			logrus.WithError(err).Fatal("could not get history")
		}

		printHistory(os.Stdout, txs)
	default:
		delta, err := buildDelta(*command, *playerID, *amount, d, *reference)
		if err != nil {
			logrus.WithError(err).Fatal("invalid command")
		}

		if !*yes && !confirm(describeDelta(delta)) {
			fmt.Println("aborted")
			os.Exit(1)
		}

		tx, err := svc.ApplyDelta(ctx, delta)
		if err != nil {
			logrus.WithError(err).Fatal("could not apply delta")
		}

		fmt.Printf("Applied %s, balance is now %d (%d reserved)\n", tx.ID, tx.BalanceAfter, tx.ReservedAfter)
	}
}

// confirm only prompts when a person is at the keyboard
func confirm(question string) bool {
	if !term.IsTerminal(int(os.Stdin.Fd())) {
		return true
	}

	answer, err := getInput(question + " (y/N)")
	if err != nil {
		logrus.WithError(err).Fatal("could not get answer")
	}

	return answer != "" && strings.ToLower(answer)[0] == 'y'
}

func getInput(question string) (string, error) {
	fmt.Printf("%s: ", question)
	reader := bufio.NewReader(os.Stdin)
	str, err := reader.ReadString('\n')
	if err != nil {
		return "", err
	}
	str = strings.TrimRight(str, "\r\n")

	return str, nil
}
