// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev

package gencontext

import "github.com/specialistvlad/perplex/internal/condition"

// Snapshot is the finalized, read-only result of consuming a specification.
type Snapshot struct {
	Options Options
	Paths   Paths

	// Conditions is empty unless start conditions are enabled.
	Conditions []condition.Condition
	Rules      []Rule
}

// Group is the rule set active in one start condition. Condition is nil for
// the single default group used when conditions are disabled.
type Group struct {
	Condition *condition.Condition
	Rules     []Rule
}

// Groups returns the rules grouped by owning condition, in condition order,
// with declaration order preserved inside each group.
func (s *Snapshot) Groups() []Group {
	if !s.Options.UsingConditions {
		return []Group{{Rules: s.Rules}}
	}
	groups := make([]Group, 0, len(s.Conditions))
	for i := range s.Conditions {
		cond := s.Conditions[i]
		g := Group{Condition: &cond}
		for _, r := range s.Rules {
			if r.OwnedBy(cond.ID) {
				g.Rules = append(g.Rules, r)
			}
		}
		groups = append(groups, g)
	}
	return groups
}

// FallingThrough returns the rules whose actions do not end in a return.
func (s *Snapshot) FallingThrough() []Rule {
	var out []Rule
	for _, r := range s.Rules {
		if r.FallsThrough() {
			out = append(out, r)
		}
	}
	return out
}

// NamedRules returns the rules that declare a token name.
func (s *Snapshot) NamedRules() []Rule {
	var out []Rule
	for _, r := range s.Rules {
		if r.Name != "" {
			out = append(out, r)
		}
	}
	return out
}
