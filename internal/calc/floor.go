package calc

import (
	"sync"

	"github.com/shopspring/decimal"
)

// FloorStart is where a session's price floor begins: the displayed price
// is never shown below 1 LARRY.
var FloorStart = decimal.NewFromInt(1)

// PriceFloor keeps the displayed YKP price from ever moving down within a
// session. It is safe for concurrent use.
type PriceFloor struct {
	mu   sync.Mutex
	last decimal.Decimal
}

// NewPriceFloor starts the floor at initial.
func NewPriceFloor(initial decimal.Decimal) *PriceFloor {
	return &PriceFloor{last: initial}
}

// Observe records a freshly read price and returns max(last, current).
func (f *PriceFloor) Observe(current decimal.Decimal) decimal.Decimal {
	f.mu.Lock()
	defer f.mu.Unlock()
	if current.GreaterThan(f.last) {
		f.last = current
	}
	return f.last
}

// Last returns the current floor.
func (f *PriceFloor) Last() decimal.Decimal {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.last
}
