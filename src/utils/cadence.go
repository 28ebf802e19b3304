package utils

// -----------------------------------------------------------------------------
// CadenceGate fires once every N calls to Tick. It throttles work that must
// run at a coarser cadence than the tick itself.
// -----------------------------------------------------------------------------

type CadenceGate struct {
	every int
	count int
}

// -----------------------------------------------------------------------------

func NewCadenceGate(every int) *CadenceGate {
	if every < 1 {
		every = 1
	}
	return &CadenceGate{every: every}
}

// -----------------------------------------------------------------------------

// Tick counts one tick and reports whether the gate fires on it.
func (g *CadenceGate) Tick() bool {
	g.count++
	if g.count >= g.every {
		g.count = 0
		return true
	}
	return false
}

// SetEvery changes the period; the running count is kept.
func (g *CadenceGate) SetEvery(every int) {
	if every < 1 {
		every = 1
	}
	g.every = every
}
