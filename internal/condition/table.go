// Package condition maps start-condition names to small dense identifiers.
package condition

import (
	"fmt"

	"github.com/specialistvlad/perplex/internal/generr"
)

// Base is the identifier given to the first declared condition.
const Base = 0

// Condition is a named lexical scope restricting which rules may match.
type Condition struct {
	Name string
	ID   int
}

// Table assigns condition identifiers in first-seen order. Identifiers are
// dense: the n-th distinct name gets Base+n-1.
type Table struct {
	ids    map[string]int
	order  []Condition
	frozen bool
}

// NewTable creates an empty condition table.
func NewTable() *Table {
	return &Table{ids: make(map[string]int)}
}

// Declare returns the identifier of name, assigning the next one if the name
// has not been seen before.
func (t *Table) Declare(name string) int {
	if id, ok := t.ids[name]; ok {
		return id
	}
	if t.frozen {
		panic(fmt.Sprintf("condition: declare %q on a frozen table", name))
	}
	id := Base + len(t.order)
	t.ids[name] = id
	t.order = append(t.order, Condition{Name: name, ID: id})
	return id
}

// Lookup returns the identifier of a previously declared name.
func (t *Table) Lookup(name string) (int, error) {
	if id, ok := t.ids[name]; ok {
		return id, nil
	}
	return 0, fmt.Errorf("%w %q.%s", generr.ErrUnknownCondition, name, generr.DidYouMean(name, t.Names()))
}

// All returns the declared conditions in identifier order.
func (t *Table) All() []Condition {
	out := make([]Condition, len(t.order))
	copy(out, t.order)
	return out
}

// Names returns the declared condition names in identifier order.
func (t *Table) Names() []string {
	names := make([]string, len(t.order))
	for i, c := range t.order {
		names[i] = c.Name
	}
	return names
}

// Len reports the number of declared conditions.
func (t *Table) Len() int {
	return len(t.order)
}

// Freeze makes the table immutable. Looking up and re-declaring known names
// still works; introducing a new name panics.
func (t *Table) Freeze() {
	t.frozen = true
}
