// Package chain advances multi-step incidents. States are the scenarios of
// a chain; a transition is declared by a successor's previous action gate.
package chain

import (
	"context"
	"fmt"
	"slices"

	"github.com/abhisek/phishshift/internal/outcome"
	"github.com/abhisek/phishshift/internal/scenario"
)

// Members looks up every step of a chain.
type Members interface {
	ChainMembers(ctx context.Context, chainID string) ([]scenario.Scenario, error)
}

// Machine resolves chain transitions against a scenario source.
type Machine struct {
	members Members
}

// New creates a Machine.
func New(members Members) *Machine {
	return &Machine{members: members}
}

// Next returns the step that follows currentOrder when action was taken,
// or nil when the chain ends there. Ending is not an error. If several
// steps declare the same gate, the lowest id wins.
func (m *Machine) Next(ctx context.Context, chainID string, currentOrder int, action outcome.Action) (*scenario.Scenario, error) {
	if chainID == "" {
		return nil, nil
	}
	list, err := m.members.ChainMembers(ctx, chainID)
	if err != nil {
		return nil, fmt.Errorf("chain %s members: %w", chainID, err)
	}
	return successor(list, chainID, currentOrder, action), nil
}

func successor(list []scenario.Scenario, chainID string, currentOrder int, action outcome.Action) *scenario.Scenario {
	var best *scenario.Scenario
	for i := range list {
		s := list[i]
		if s.ChainID != chainID || s.ChainOrder != currentOrder+1 || s.PreviousAction != action {
			continue
		}
		if best == nil || s.ID < best.ID {
			best = &s
		}
	}
	return best
}

// Extend appends the successor of current to ids when there is one and it
// is not already present. It returns the resulting list and the appended
// scenario, or the unchanged list and nil.
func (m *Machine) Extend(ctx context.Context, ids []string, current scenario.Scenario, action outcome.Action) ([]string, *scenario.Scenario, error) {
	if !current.InChain() {
		return ids, nil, nil
	}
	next, err := m.Next(ctx, current.ChainID, current.ChainOrder, action)
	if err != nil {
		return ids, nil, err
	}
	if next == nil || slices.Contains(ids, next.ID) {
		return ids, nil, nil
	}
	out := make([]string, len(ids), len(ids)+1)
	copy(out, ids)
	return append(out, next.ID), next, nil
}

// Transition is one edge of a chain.
type Transition struct {
	From   string
	Order  int
	Action outcome.Action
	To     string
}

// Describe lists every transition of a chain, ordered by step then action.
// Steps without an outgoing edge for an action are terminal for it.
func Describe(members []scenario.Scenario) []Transition {
	list := slices.Clone(members)
	scenario.SortChain(list)

	var out []Transition
	for _, from := range list {
		for _, a := range outcome.AllActions() {
			if to := successor(list, from.ChainID, from.ChainOrder, a); to != nil {
				out = append(out, Transition{From: from.ID, Order: from.ChainOrder, Action: a, To: to.ID})
			}
		}
	}
	return out
}

// Terminal reports whether no action leads anywhere from s.
func Terminal(members []scenario.Scenario, s scenario.Scenario) bool {
	for _, a := range outcome.AllActions() {
		if successor(members, s.ChainID, s.ChainOrder, a) != nil {
			return false
		}
	}
	return true
}
