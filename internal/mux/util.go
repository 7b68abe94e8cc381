package mux

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/sirupsen/logrus"
	"pokertable-server/pkg/apperror"
)

const maxRows = 100
const defaultRows = 25

func parseRows(r *http.Request) (int, error) {
	rowsStr := r.FormValue("rows")
	if rowsStr == "" {
		return defaultRows, nil
	}

	val, err := strconv.Atoi(rowsStr)
	if err != nil {
		return 0, errors.New("rows must be a number")
	}

	if val <= 0 {
		return 0, errors.New("rows must be greater than zero")
	}

	if val > maxRows {
		return 0, fmt.Errorf("rows cannot be greater than %d", maxRows)
	}

	return val, nil
}

func writeJSON(w http.ResponseWriter, statusCode int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		logrus.WithError(err).Error("could not write JSON response")
	}
}

type errorResponse struct {
	Message    string `json:"message"`
	StatusCode int    `json:"statusCode"`
	Kind       string `json:"kind,omitempty"`
}

func writeJSONError(w http.ResponseWriter, statusCode int, err error) {
	var msg string

	if statusCode < 500 && err != nil {
		msg = err.Error()
	} else {
		msg = http.StatusText(statusCode)
	}

	if statusCode >= 500 {
		logrus.WithField("statusCode", statusCode).Error(err)
	}

	writeJSON(w, statusCode, errorResponse{
		Message:    msg,
		StatusCode: statusCode,
	})
}

// writeAppError maps an error kind to a status code. Unknown errors are a 500.
func writeAppError(w http.ResponseWriter, err error) {
	statusCode := apperror.HTTPStatus(err)
	if statusCode >= 500 && statusCode != http.StatusServiceUnavailable {
		writeJSONError(w, statusCode, err)
		return
	}

	if statusCode >= 500 {
		logrus.WithError(err).Warn("ledger is unavailable")
	}

	writeJSON(w, statusCode, errorResponse{
		Message:    apperror.MessageOf(err),
		StatusCode: statusCode,
		Kind:       string(apperror.KindOf(err)),
	})
}
