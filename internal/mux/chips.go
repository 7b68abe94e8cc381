package mux

import (
	"net/http"

	"pokertable-server/pkg/apperror"
	"pokertable-server/pkg/ledger"
)

type balanceResponse struct {
	BalanceGLD   int64 `json:"balance_gld"`
	ReservedGLD  int64 `json:"reserved_gld"`
	BalancePGLD  int64 `json:"balance_pgld"`
	ReservedPGLD int64 `json:"reserved_pgld"`
}

type historyResponse struct {
	PlayerID     string                `json:"playerId"`
	Denomination ledger.Denomination   `json:"denomination,omitempty"`
	Transactions []*ledger.Transaction `json:"transactions"`
}

// balances must never be served from a cache
func noStore(w http.ResponseWriter) {
	w.Header().Set("Cache-Control", "no-store")
}

func (m *Mux) getChipsBalance() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		noStore(w)

		playerID := r.FormValue("playerId")
		if playerID == "" {
			writeAppError(w, apperror.New(apperror.BadRequest, "playerId is required"))
			return
		}

		balances, err := m.ledger.Balances(r.Context(), playerID)
		if err != nil {
			writeAppError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, balanceResponse{
			BalanceGLD:   balances.GLD.Balance,
			ReservedGLD:  balances.GLD.Reserved,
			BalancePGLD:  balances.PGLD.Balance,
			ReservedPGLD: balances.PGLD.Reserved,
		})
	}
}

func (m *Mux) getChipsHistory() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		noStore(w)

		playerID := r.FormValue("playerId")
		if playerID == "" {
			writeAppError(w, apperror.New(apperror.BadRequest, "playerId is required"))
			return
		}

		var denomination ledger.Denomination
		if val := r.FormValue("denomination"); val != "" {
			d, err := ledger.ParseDenomination(val)
			if err != nil {
				writeAppError(w, err)
				return
			}

			denomination = d
		}

		rows, err := parseRows(r)
		if err != nil {
			writeJSONError(w, http.StatusBadRequest, err)
			return
		}

		txs, err := m.ledger.History(r.Context(), playerID, denomination, rows)
		if err != nil {
			writeAppError(w, err)
			return
		}

		if txs == nil {
			txs = []*ledger.Transaction{}
		}

		writeJSON(w, http.StatusOK, historyResponse{
			PlayerID:     playerID,
			Denomination: denomination,
			Transactions: txs,
		})
	}
}
