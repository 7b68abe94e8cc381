package deck

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHand(t *testing.T) {
	a := assert.New(t)

	var h Hand
	h.AddCard(CardFromString("14s"))
	h.AddCard(CardFromString("2c"))

	a.True(h.HasCard(CardFromString("14s")))
	a.False(h.HasCard(CardFromString("14h")))
	a.Equal("14s,2c", h.String())

	clone := h.Clone()
	clone.AddCard(CardFromString("7d"))
	a.Len(h, 2)
	a.Len(clone, 3)

	// changing the clone leaves the original alone
	clone[0] = CardFromString("4h")
	a.Equal("14s,2c", h.String())
}
