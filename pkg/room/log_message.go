package room

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"pokertable-server/pkg/deck"
)

const logMessageLimit = 25

// LogMessage is an entry in the room log.
// If PlayerIDs is empty it's a general statement, otherwise it reads like "{player} did X"
type LogMessage struct {
	UUID      string    `json:"uuid"`
	PlayerIDs []string  `json:"playerIds"`
	Cards     deck.Hand `json:"cards,omitempty"`
	Message   string    `json:"message"`
	Time      time.Time `json:"time"`
}

func newLogMessage(playerID string, format string, a ...interface{}) *LogMessage {
	var playerIDs []string
	if playerID != "" {
		playerIDs = []string{playerID}
	}

	return &LogMessage{
		UUID:      uuid.New().String(),
		PlayerIDs: playerIDs,
		Message:   fmt.Sprintf(format, a...),
		Time:      time.Now(),
	}
}

// addLogMessages adds log messages, keeping only the most recent
// Note: this must only be called from within the run loop
func (d *Dealer) addLogMessages(messages ...*LogMessage) {
	m := append(d.logMessages, messages...)
	count := len(m)
	if count > logMessageLimit {
		m = m[count-logMessageLimit:]
	}

	d.logMessages = m
}
