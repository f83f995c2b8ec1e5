package repository

import (
	"context"

	"rubric-review/backend/pkg/models"
)

// MutateFunc applies a change to a working copy of a record. Returning an
// error aborts the update and leaves the stored record untouched.
type MutateFunc func(rec *models.WorkflowRecord) error

// WorkflowStore is the system of record for workflow instances.
//
// Implementations must serialize UpdatePartial calls for the same id so that
// no read-modify-write is lost, while updates to different ids proceed
// independently. Unknown ids yield a NOT_FOUND *models.ErrorEnvelope.
type WorkflowStore interface {
	// Create stores a new record in step task-zero and assigns it an id
	// greater than any id handed out before.
	Create(ctx context.Context, inputs *models.TaskZeroInputs) (*models.WorkflowRecord, error)
	// Get retrieves a record by id.
	Get(ctx context.Context, id int64) (*models.WorkflowRecord, error)
	// UpdatePartial atomically loads the record, applies mutate and stores the result.
	UpdatePartial(ctx context.Context, id int64, mutate MutateFunc) (*models.WorkflowRecord, error)
	// List returns records ordered by id.
	List(ctx context.Context, limit, offset int) ([]*models.WorkflowRecord, error)
	// Ping checks that the backend is reachable.
	Ping(ctx context.Context) error
}
