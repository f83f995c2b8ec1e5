package rubric

import (
	"errors"
	"fmt"

	"rubric-review/backend/pkg/models"
)

// ErrItemNotRemovable is returned when removing an item that came from the
// parsed rubric text, or an index out of range.
var ErrItemNotRemovable = errors.New("rubric item is not removable")

// Draft is the editable Task 2 item list. The first Parsed items originate
// from the Task 0 rubric text; anything after them was added by hand.
type Draft struct {
	Items  []models.RubricItem `json:"rubricItems"`
	Parsed int                 `json:"parsedCount"`
}

// NewItem returns an item with zero scores and the lowest quality ratings.
func NewItem(name string) models.RubricItem {
	return models.RubricItem{
		Name:                   name,
		TechnicalAccuracy:      1,
		RelevanceNecessity:     1,
		PartialCreditStructure: 1,
		Weighting:              1,
		ClarityObjectivity:     1,
		DifferentiationPower:   1,
	}
}

// NewDraft seeds a draft with one default item per parsed name.
func NewDraft(names []string) *Draft {
	items := make([]models.RubricItem, 0, len(names))
	for _, n := range names {
		items = append(items, NewItem(n))
	}
	return &Draft{Items: items, Parsed: len(names)}
}

// DraftFromText parses rubric text and seeds a draft from the result.
func DraftFromText(text string) *Draft {
	return NewDraft(ParseNames(text).Names)
}

// Restore rebuilds a draft from previously submitted items. Items beyond the
// parsed name count stay removable.
func Restore(names []string, submitted []models.RubricItem) *Draft {
	items := make([]models.RubricItem, len(submitted))
	copy(items, submitted)
	parsed := len(names)
	if parsed > len(items) {
		parsed = len(items)
	}
	return &Draft{Items: items, Parsed: parsed}
}

// Add appends a manual item named "New Rubric Item N" and returns its index.
func (d *Draft) Add() int {
	d.Items = append(d.Items, NewItem(fmt.Sprintf("New Rubric Item %d", len(d.Items)+1)))
	return len(d.Items) - 1
}

// Removable reports whether the item at index i may be removed.
func (d *Draft) Removable(i int) bool {
	return i >= d.Parsed && i < len(d.Items)
}

// Remove deletes the manual item at index i, keeping the order of the rest.
func (d *Draft) Remove(i int) error {
	if !d.Removable(i) {
		return fmt.Errorf("remove item %d: %w", i, ErrItemNotRemovable)
	}
	d.Items = append(d.Items[:i], d.Items[i+1:]...)
	return nil
}
