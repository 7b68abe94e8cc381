package rake

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCalculate(t *testing.T) {
	a := assert.New(t)

	a.Equal(Result{Rake: 40, CapApplied: true}, Calculate(1000, 0.05, 40, true))
	a.Equal(Result{Rake: 0, CapApplied: false}, Calculate(1000, 0.05, 100, false))
	a.Equal(Result{Rake: 50, CapApplied: false}, Calculate(1000, 0.05, 100, true))

	// exactly at the cap is not the cap binding
	a.Equal(Result{Rake: 50, CapApplied: false}, Calculate(1000, 0.05, 50, true))

	// uncapped
	a.Equal(Result{Rake: 500}, Calculate(10000, 0.05, 0, true))

	// rounds down to whole chips
	a.Equal(Result{Rake: 1}, Calculate(39, 0.05, 40, true))
	a.Equal(Result{Rake: 0}, Calculate(19, 0.05, 40, true))

	a.Equal(Result{}, Calculate(0, 0.05, 40, true))
	a.Equal(Result{}, Calculate(1000, 0, 40, true))

	// never more than the pot
	a.Equal(Result{Rake: 1000}, Calculate(1000, 1.5, 0, true))
}

func TestCalculate_LargePot(t *testing.T) {
	a := assert.New(t)

	a.Equal(Result{Rake: 461168601842738790}, Calculate(math.MaxInt64, 0.05, 0, true))
	a.Equal(Result{Rake: 300, CapApplied: true}, Calculate(math.MaxInt64, 0.05, 300, true))
	a.Equal(Result{Rake: math.MaxInt64}, Calculate(math.MaxInt64, 1, 0, true))
}

func TestCalculate_Deterministic(t *testing.T) {
	first := Calculate(1234, 0.045, 30, true)
	for i := 0; i < 10; i++ {
		assert.Equal(t, first, Calculate(1234, 0.045, 30, true))
	}
}

func TestOptions_Calculate(t *testing.T) {
	o := Options{Percent: 0.1, Cap: 25}
	assert.Equal(t, Result{Rake: 25, CapApplied: true}, o.Calculate(300, true))
	assert.Equal(t, Result{}, o.Calculate(300, false))
}
