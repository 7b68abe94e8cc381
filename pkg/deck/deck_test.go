package deck

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"pokertable-server/internal/rng"
)

func TestNew(t *testing.T) {
	a := assert.New(t)

	d := New()
	a.Equal(52, d.CardsLeft())

	seen := make(map[string]bool)
	for _, card := range d.Cards {
		seen[CardToString(card)] = true
	}
	a.Len(seen, 52)
}

func TestDeck_Shuffle(t *testing.T) {
	a := assert.New(t)

	d1 := New()
	d1.Shuffle(rng.NewSeeded(1))

	d2 := New()
	d2.Shuffle(rng.NewSeeded(1))
	a.Equal(d1.HashCode(), d2.HashCode())

	d3 := New()
	d3.Shuffle(rng.NewSeeded(2))
	a.NotEqual(d1.HashCode(), d3.HashCode())
	a.NotEqual(New().HashCode(), d1.HashCode())

	// shuffling a partially drawn deck starts from a full deck
	_, _ = d3.Draw()
	d3.Shuffle(rng.Crypto{})
	a.Equal(52, d3.CardsLeft())
}

func TestDeck_Draw(t *testing.T) {
	a := assert.New(t)

	d := Stacked(CardsFromString("14s,13s"))
	a.True(d.CanDraw(2))
	a.False(d.CanDraw(3))

	card, err := d.Draw()
	a.NoError(err)
	a.Equal("14s", CardToString(card))

	card, err = d.Draw()
	a.NoError(err)
	a.Equal("13s", CardToString(card))

	card, err = d.Draw()
	a.Nil(card)
	a.Equal(ErrEndOfDeck, err)
}
