package server

import (
	"slices"

	"market-flipper/src/models"
)

// -----------------------------------------------------------------------------
// Subscription filtering
// -----------------------------------------------------------------------------

// subscription narrows what a client receives. Empty sets mean "everything".
type subscription struct {
	engines map[string]struct{}
	items   map[int]struct{}
}

func newSubscription(cmd models.MSubscribeCommand) *subscription {
	sub := &subscription{}
	if len(cmd.Engines) > 0 {
		sub.engines = make(map[string]struct{}, len(cmd.Engines))
		for _, e := range cmd.Engines {
			sub.engines[e] = struct{}{}
		}
	}
	if len(cmd.ItemIDs) > 0 {
		sub.items = make(map[int]struct{}, len(cmd.ItemIDs))
		for _, id := range cmd.ItemIDs {
			sub.items[id] = struct{}{}
		}
	}
	return sub
}

// -----------------------------------------------------------------------------

func (s *subscription) wantsEngine(name string) bool {
	if s == nil || s.engines == nil {
		return true
	}
	_, ok := s.engines[name]
	return ok
}

// -----------------------------------------------------------------------------

func (s *subscription) wantsItem(ids ...int) bool {
	if s == nil || s.items == nil {
		return true
	}
	return slices.ContainsFunc(ids, func(id int) bool {
		_, ok := s.items[id]
		return ok
	})
}

// -----------------------------------------------------------------------------

// apply returns a filtered copy of state; state itself is never modified.
func (s *subscription) apply(state *models.MLatestData) *models.MLatestData {
	out := &models.MLatestData{
		Type:      state.Type,
		Timestamp: state.Timestamp,
		Report:    state.Report,
	}

	out.Spread = filterList(s, models.EngineSpread, state.Spread, func(c models.MSpreadCandidate) []int {
		return []int{c.ItemID}
	})
	out.MeanReversion = filterList(s, models.EngineMeanReversion, state.MeanReversion, func(c models.MMeanReversionCandidate) []int {
		return []int{c.ItemID}
	})
	out.PairSignals = filterList(s, models.EnginePairTrading, state.PairSignals, func(c models.MPairSignal) []int {
		return []int{c.Key.A, c.Key.B}
	})
	out.PairDiscovery = filterList(s, models.EnginePairDiscovery, state.PairDiscovery, func(c models.MPairCandidate) []int {
		return []int{c.Key.A, c.Key.B}
	})
	return out
}

// -----------------------------------------------------------------------------

func filterList[T any](s *subscription, engine string, items []T, ids func(T) []int) []T {
	out := make([]T, 0, len(items))
	if !s.wantsEngine(engine) {
		return out
	}
	for _, item := range items {
		if s.wantsItem(ids(item)...) {
			out = append(out, item)
		}
	}
	return out
}
