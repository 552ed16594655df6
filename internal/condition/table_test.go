package condition

import (
	"errors"
	"fmt"
	"testing"

	"github.com/specialistvlad/perplex/internal/generr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewTable(t *testing.T) {
	tbl := NewTable()
	require.NotNil(t, tbl)
	assert.Equal(t, 0, tbl.Len())
	assert.Empty(t, tbl.All())
}

func TestDeclare(t *testing.T) {
	tbl := NewTable()

	assert.Equal(t, 0, tbl.Declare("INITIAL"))
	assert.Equal(t, 1, tbl.Declare("STRING"))
	assert.Equal(t, 0, tbl.Declare("INITIAL"), "re-declaring must return the same id")
	assert.Equal(t, 2, tbl.Declare("COMMENT"))
	assert.Equal(t, 3, tbl.Len())

	assert.Equal(t, []Condition{
		{Name: "INITIAL", ID: 0},
		{Name: "STRING", ID: 1},
		{Name: "COMMENT", ID: 2},
	}, tbl.All())
	assert.Equal(t, []string{"INITIAL", "STRING", "COMMENT"}, tbl.Names())
}

func TestDeclare_Density(t *testing.T) {
	tbl := NewTable()
	names := []string{"A", "B", "A", "C", "B", "D", "D", "E"}
	for _, n := range names {
		tbl.Declare(n)
	}

	all := tbl.All()
	require.Len(t, all, 5)
	for i, c := range all {
		assert.Equal(t, Base+i, c.ID, "identifier of %s", c.Name)
	}
}

func TestLookup(t *testing.T) {
	tbl := NewTable()
	tbl.Declare("STRING")

	t.Run("declared", func(t *testing.T) {
		id, err := tbl.Lookup("STRING")
		require.NoError(t, err)
		assert.Equal(t, 0, id)
	})

	t.Run("unknown with suggestion", func(t *testing.T) {
		_, err := tbl.Lookup("STRNG")
		require.Error(t, err)
		assert.True(t, errors.Is(err, generr.ErrUnknownCondition))
		assert.Equal(t, `unknown start condition "STRNG". Did you mean "STRING"?`, err.Error())
	})

	t.Run("unknown without suggestion", func(t *testing.T) {
		_, err := tbl.Lookup("COMMENT")
		require.Error(t, err)
		assert.Equal(t, `unknown start condition "COMMENT".`, err.Error())
	})
}

func TestAll_ReturnsCopy(t *testing.T) {
	tbl := NewTable()
	tbl.Declare("A")
	all := tbl.All()
	all[0].Name = "mutated"
	assert.Equal(t, "A", tbl.All()[0].Name)
}

func TestFreeze(t *testing.T) {
	tbl := NewTable()
	tbl.Declare("A")
	tbl.Freeze()

	assert.Equal(t, 0, tbl.Declare("A"), "known names stay declarable")
	assert.PanicsWithValue(t, fmt.Sprintf("condition: declare %q on a frozen table", "B"), func() {
		tbl.Declare("B")
	})
}
