package analysis

import (
	"market-flipper/src/helpers"
	"market-flipper/src/interfaces"
)

// -----------------------------------------------------------------------------
// Engine is a strategy evaluator driven once per tick.
// -----------------------------------------------------------------------------

type Engine interface {
	Name() string
	// OnTick updates the engine's own buffers and republishes its ranked list.
	// A returned error means the previous list was kept.
	OnTick(data interfaces.IMarketData) error
	// Count returns how many candidates the last published list holds.
	Count() int
	// Version increases every time a list is published.
	Version() int64
}

// -----------------------------------------------------------------------------

// publishGuarded runs compute behind a panic guard and publishes its result.
// On failure the error is logged and the previous list stays published.
func publishGuarded[T any](h *helpers.ErrorHandler, name string, out *Published[T], compute func() ([]T, error)) error {
	var rows []T
	err := h.Guard(name, func() error {
		var err error
		rows, err = compute()
		return err
	})
	if err != nil {
		h.Handle(err, name+" tick")
		return err
	}
	out.Store(rows)
	return nil
}
