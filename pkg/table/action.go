package table

import (
	"fmt"

	"pokertable-server/pkg/apperror"
)

// ActionType is a betting decision
type ActionType string

// action constants
const (
	Fold  ActionType = "fold"
	Check ActionType = "check"
	Call  ActionType = "call"
	Raise ActionType = "raise"
)

// ParseActionType returns an action for the given string
func ParseActionType(s string) (ActionType, error) {
	switch a := ActionType(s); a {
	case Fold, Check, Call, Raise:
		return a, nil
	}

	return "", apperror.New(apperror.IllegalAction, "unknown action: %s", s)
}

// Action is a player's decision. Amount is the total a raise is raising to.
type Action struct {
	Type   ActionType
	Amount int64
}

// LogMessage returns a message formatted for the room log
func (a Action) LogMessage(amount int64) string {
	switch a.Type {
	case Fold:
		return "folded"
	case Check:
		return "checked"
	case Call:
		return fmt.Sprintf("called %d", amount)
	case Raise:
		return fmt.Sprintf("raised to %d", amount)
	}

	return string(a.Type)
}
