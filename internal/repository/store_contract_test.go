package repository

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rubric-review/backend/pkg/models"
)

func testInputs(domain string) *models.TaskZeroInputs {
	return &models.TaskZeroInputs{
		Domain:          domain,
		Subdomain:       "Mechanics",
		DifficultyScore: 3,
		Problem:         "A block slides down an incline...",
		Rubric:          "<rubrics><name>Units</name><name>Sign</name></rubrics>",
		Correct:         "4.9 m/s^2",
		Incorrect1:      "9.8 m/s^2",
		Incorrect2:      "-4.9 m/s^2",
	}
}

// runStoreContract exercises the behavior every WorkflowStore must share.
func runStoreContract(t *testing.T, store WorkflowStore) {
	ctx := context.Background()

	t.Run("Create assigns increasing ids", func(t *testing.T) {
		a, err := store.Create(ctx, testInputs("Physics"))
		require.NoError(t, err)
		b, err := store.Create(ctx, testInputs("Chemistry"))
		require.NoError(t, err)

		assert.Greater(t, a.ID, int64(0))
		assert.Greater(t, b.ID, a.ID)
		assert.Equal(t, models.StepTaskZero, a.CurrentStep)
		assert.Nil(t, a.TaskOneResponses)
	})

	t.Run("Create and Get", func(t *testing.T) {
		created, err := store.Create(ctx, testInputs("Biology"))
		require.NoError(t, err)

		got, err := store.Get(ctx, created.ID)
		require.NoError(t, err)
		assert.Equal(t, created.ID, got.ID)
		require.NotNil(t, got.TaskZeroInputs)
		assert.Equal(t, "Biology", got.TaskZeroInputs.Domain)
		assert.Equal(t, 3, got.TaskZeroInputs.DifficultyScore)
	})

	t.Run("Get unknown id", func(t *testing.T) {
		_, err := store.Get(ctx, 987654)
		assert.True(t, models.IsNotFound(err), "err = %v", err)
	})

	t.Run("UpdatePartial persists change", func(t *testing.T) {
		created, err := store.Create(ctx, testInputs("Math"))
		require.NoError(t, err)

		updated, err := store.UpdatePartial(ctx, created.ID, func(rec *models.WorkflowRecord) error {
			rec.TaskOneResponses = &models.TaskOneResponse{MetadataQuality: 4, CorrectAnswerGrade: 1}
			rec.CurrentStep = models.StepTaskOne
			return nil
		})
		require.NoError(t, err)
		assert.Equal(t, models.StepTaskOne, updated.CurrentStep)

		got, err := store.Get(ctx, created.ID)
		require.NoError(t, err)
		require.NotNil(t, got.TaskOneResponses)
		assert.Equal(t, 4, got.TaskOneResponses.MetadataQuality)
		assert.Equal(t, "Math", got.TaskZeroInputs.Domain)
	})

	t.Run("UpdatePartial aborted by mutate error", func(t *testing.T) {
		created, err := store.Create(ctx, testInputs("Math"))
		require.NoError(t, err)

		boom := errors.New("boom")
		_, err = store.UpdatePartial(ctx, created.ID, func(rec *models.WorkflowRecord) error {
			rec.CurrentStep = models.StepTaskFour
			return boom
		})
		assert.ErrorIs(t, err, boom)

		got, err := store.Get(ctx, created.ID)
		require.NoError(t, err)
		assert.Equal(t, models.StepTaskZero, got.CurrentStep)
	})

	t.Run("UpdatePartial unknown id", func(t *testing.T) {
		called := false
		_, err := store.UpdatePartial(ctx, 987654, func(*models.WorkflowRecord) error {
			called = true
			return nil
		})
		assert.True(t, models.IsNotFound(err))
		assert.False(t, called)
	})

	t.Run("Concurrent updates to one id are not lost", func(t *testing.T) {
		created, err := store.Create(ctx, testInputs("Physics"))
		require.NoError(t, err)

		var wg sync.WaitGroup
		wg.Add(2)
		go func() {
			defer wg.Done()
			_, err := store.UpdatePartial(ctx, created.ID, func(rec *models.WorkflowRecord) error {
				rec.TaskOneResponses = &models.TaskOneResponse{MetadataQuality: 2}
				return nil
			})
			assert.NoError(t, err)
		}()
		go func() {
			defer wg.Done()
			_, err := store.UpdatePartial(ctx, created.ID, func(rec *models.WorkflowRecord) error {
				rec.TaskTwoResponses = &models.TaskTwoResponse{RubricItems: []models.RubricItem{{Name: "Units"}}}
				return nil
			})
			assert.NoError(t, err)
		}()
		wg.Wait()

		got, err := store.Get(ctx, created.ID)
		require.NoError(t, err)
		assert.NotNil(t, got.TaskOneResponses)
		assert.NotNil(t, got.TaskTwoResponses)
	})

	t.Run("List is ordered by id", func(t *testing.T) {
		records, err := store.List(ctx, 0, 0)
		require.NoError(t, err)
		require.NotEmpty(t, records)
		for i := 1; i < len(records); i++ {
			assert.Less(t, records[i-1].ID, records[i].ID)
		}

		page, err := store.List(ctx, 2, 1)
		require.NoError(t, err)
		require.Len(t, page, 2)
		assert.Equal(t, records[1].ID, page[0].ID)
	})

	t.Run("Ping", func(t *testing.T) {
		assert.NoError(t, store.Ping(ctx))
	})
}
