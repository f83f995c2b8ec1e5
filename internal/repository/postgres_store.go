package repository

import (
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"rubric-review/backend/pkg/models"
)

//go:embed schema.sql
var schemaSQL string

const selectColumns = `id, task_zero_inputs, task_one_responses, task_two_responses,
	task_three_responses, task_four_responses, current_step, created_at, updated_at`

// PostgresWorkflowStore is a PostgreSQL implementation of the WorkflowStore
// interface. Stage payloads live in JSONB columns.
type PostgresWorkflowStore struct {
	db *pgxpool.Pool
}

// NewPostgresWorkflowStore creates a new PostgresWorkflowStore.
func NewPostgresWorkflowStore(db *pgxpool.Pool) *PostgresWorkflowStore {
	return &PostgresWorkflowStore{db: db}
}

// Migrate creates the workflow table if it does not exist.
func (s *PostgresWorkflowStore) Migrate(ctx context.Context) error {
	if _, err := s.db.Exec(ctx, schemaSQL); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	return nil
}

// Create inserts a new record and lets the sequence assign its id.
func (s *PostgresWorkflowStore) Create(ctx context.Context, inputs *models.TaskZeroInputs) (*models.WorkflowRecord, error) {
	zero, err := encodeColumn(inputs)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	rec := &models.WorkflowRecord{
		TaskZeroInputs: inputs,
		CurrentStep:    models.StepTaskZero,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	err = s.db.QueryRow(ctx,
		`INSERT INTO workflow_tasks (task_zero_inputs, current_step, created_at, updated_at)
		 VALUES ($1, $2, $3, $4) RETURNING id`,
		zero, string(rec.CurrentStep), now, now,
	).Scan(&rec.ID)
	if err != nil {
		return nil, fmt.Errorf("insert workflow: %w", err)
	}
	return rec.Clone(), nil
}

// Get retrieves a record by id.
func (s *PostgresWorkflowStore) Get(ctx context.Context, id int64) (*models.WorkflowRecord, error) {
	row := s.db.QueryRow(ctx, `SELECT `+selectColumns+` FROM workflow_tasks WHERE id = $1`, id)
	rec, err := scanRecord(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, models.NewWorkflowNotFoundError(id)
	}
	if err != nil {
		return nil, fmt.Errorf("query workflow %d: %w", id, err)
	}
	return rec, nil
}

// UpdatePartial locks the row for the duration of the read-modify-write.
func (s *PostgresWorkflowStore) UpdatePartial(ctx context.Context, id int64, mutate MutateFunc) (*models.WorkflowRecord, error) {
	tx, err := s.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, fmt.Errorf("begin update of workflow %d: %w", id, err)
	}
	defer tx.Rollback(ctx)

	row := tx.QueryRow(ctx, `SELECT `+selectColumns+` FROM workflow_tasks WHERE id = $1 FOR UPDATE`, id)
	rec, err := scanRecord(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, models.NewWorkflowNotFoundError(id)
	}
	if err != nil {
		return nil, fmt.Errorf("lock workflow %d: %w", id, err)
	}

	if err := mutate(rec); err != nil {
		return nil, err
	}
	rec.ID = id
	rec.UpdatedAt = time.Now().UTC()

	cols, err := encodeRecord(rec)
	if err != nil {
		return nil, err
	}
	tag, err := tx.Exec(ctx,
		`UPDATE workflow_tasks SET
			task_zero_inputs = $1,
			task_one_responses = $2,
			task_two_responses = $3,
			task_three_responses = $4,
			task_four_responses = $5,
			current_step = $6,
			updated_at = $7
		 WHERE id = $8`,
		cols[0], cols[1], cols[2], cols[3], cols[4],
		string(rec.CurrentStep), rec.UpdatedAt, id,
	)
	if err != nil {
		return nil, fmt.Errorf("update workflow %d: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return nil, models.NewWorkflowNotFoundError(id)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit workflow %d: %w", id, err)
	}
	return rec, nil
}

// List returns records ordered by id.
func (s *PostgresWorkflowStore) List(ctx context.Context, limit, offset int) ([]*models.WorkflowRecord, error) {
	query := `SELECT ` + selectColumns + ` FROM workflow_tasks ORDER BY id ASC`
	args := []any{}
	argIdx := 1

	if limit > 0 {
		query += fmt.Sprintf(" LIMIT $%d", argIdx)
		args = append(args, limit)
		argIdx++
	}
	if offset > 0 {
		query += fmt.Sprintf(" OFFSET $%d", argIdx)
		args = append(args, offset)
	}

	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query workflows: %w", err)
	}
	defer rows.Close()

	records := []*models.WorkflowRecord{}
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("scan workflow: %w", err)
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

// Ping checks the connection pool.
func (s *PostgresWorkflowStore) Ping(ctx context.Context) error {
	return s.db.Ping(ctx)
}

func scanRecord(row pgx.Row) (*models.WorkflowRecord, error) {
	var (
		rec  models.WorkflowRecord
		step string
		cols [5][]byte
	)
	if err := row.Scan(&rec.ID, &cols[0], &cols[1], &cols[2], &cols[3], &cols[4], &step, &rec.CreatedAt, &rec.UpdatedAt); err != nil {
		return nil, err
	}
	rec.CurrentStep = models.Step(step)

	targets := []any{&rec.TaskZeroInputs, &rec.TaskOneResponses, &rec.TaskTwoResponses, &rec.TaskThreeResponses, &rec.TaskFourResponses}
	for i, raw := range cols {
		if raw == nil {
			continue
		}
		if err := json.Unmarshal(raw, targets[i]); err != nil {
			return nil, fmt.Errorf("decode column %d of workflow %d: %w", i, rec.ID, err)
		}
	}
	return &rec, nil
}

func encodeRecord(rec *models.WorkflowRecord) ([5][]byte, error) {
	var cols [5][]byte
	values := []any{rec.TaskZeroInputs, rec.TaskOneResponses, rec.TaskTwoResponses, rec.TaskThreeResponses, rec.TaskFourResponses}
	for i, v := range values {
		b, err := encodeColumn(v)
		if err != nil {
			return cols, err
		}
		cols[i] = b
	}
	return cols, nil
}

// encodeColumn returns nil (SQL NULL) for nil stage payloads.
func encodeColumn(v any) ([]byte, error) {
	switch t := v.(type) {
	case *models.TaskZeroInputs:
		if t == nil {
			return nil, nil
		}
	case *models.TaskOneResponse:
		if t == nil {
			return nil, nil
		}
	case *models.TaskTwoResponse:
		if t == nil {
			return nil, nil
		}
	case *models.TaskThreeResponse:
		if t == nil {
			return nil, nil
		}
	case *models.TaskFourResponse:
		if t == nil {
			return nil, nil
		}
	}
	b, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encode stage payload: %w", err)
	}
	return b, nil
}
