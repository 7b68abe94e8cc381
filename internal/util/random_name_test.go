package util

import (
	"math/rand"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGetRandomName(t *testing.T) {
	a := assert.New(t)

	random = rand.New(rand.NewSource(0)) // nolint:gosec
	first := []string{GetRandomName(), GetRandomName()}

	random = rand.New(rand.NewSource(0)) // nolint:gosec
	a.Equal(first, []string{GetRandomName(), GetRandomName()})

	for i := 0; i < 50; i++ {
		name := GetRandomName()
		a.Contains(adjectives, strings.SplitN(name, " ", 2)[0])
		a.Contains(nicknames, strings.SplitN(name, " ", 2)[1])
	}
}
