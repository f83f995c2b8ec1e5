package rubric

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rubric-review/backend/pkg/models"
)

func TestDraftFromText(t *testing.T) {
	d := DraftFromText("<name>Units</name><name>Sign</name>")

	require.Len(t, d.Items, 2)
	assert.Equal(t, 2, d.Parsed)
	assert.Equal(t, "Units", d.Items[0].Name)
	assert.Equal(t, 1, d.Items[0].TechnicalAccuracy)
	assert.Equal(t, 0.0, d.Items[0].CorrectScore)
}

func TestDraft_AddAndRemove(t *testing.T) {
	d := NewDraft([]string{"Units"})

	idx := d.Add()
	assert.Equal(t, 1, idx)
	assert.Equal(t, "New Rubric Item 2", d.Items[1].Name)
	d.Add()

	assert.False(t, d.Removable(0))
	assert.ErrorIs(t, d.Remove(0), ErrItemNotRemovable)
	assert.ErrorIs(t, d.Remove(5), ErrItemNotRemovable)

	require.NoError(t, d.Remove(1))
	require.Len(t, d.Items, 2)
	assert.Equal(t, "Units", d.Items[0].Name)
	assert.Equal(t, "New Rubric Item 3", d.Items[1].Name)
}

func TestRestore_ClampsParsedCount(t *testing.T) {
	submitted := []models.RubricItem{NewItem("Only")}
	d := Restore([]string{"Only", "Dropped"}, submitted)

	assert.Equal(t, 1, d.Parsed)
	assert.False(t, d.Removable(0))

	submitted[0].Name = "mutated"
	assert.Equal(t, "Only", d.Items[0].Name)
}
