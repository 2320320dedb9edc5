package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/custodia-labs/reqsync/internal/core/domain"
	"github.com/custodia-labs/reqsync/internal/core/ports/driven"
)

const recordColumns = `id, title, description, category, problem_statement, timeline, lists,
	performance_requirements, start_date, target_completion_date, original_filename,
	source_path, file_content, content_hash, status, created_at, updated_at`

// mirrorStore implements driven.MirrorStore.
type mirrorStore struct {
	pool *pgxpool.Pool
}

var _ driven.MirrorStore = (*mirrorStore)(nil)

// List returns every record, newest first.
func (s *mirrorStore) List(ctx context.Context) ([]domain.Record, error) {
	rows, err := s.pool.Query(ctx, `select `+recordColumns+` from records order by created_at desc, id asc`)
	if err != nil {
		return nil, mapError(err, "querying records")
	}
	defer rows.Close()

	records := []domain.Record{}
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, *rec)
	}
	if err := rows.Err(); err != nil {
		return nil, mapError(err, "iterating records")
	}
	return records, nil
}

// Get retrieves a record by ID.
func (s *mirrorStore) Get(ctx context.Context, id string) (*domain.Record, error) {
	return scanRecord(s.pool.QueryRow(ctx, `select `+recordColumns+` from records where id = $1`, id))
}

// GetByFingerprint retrieves the record with the given content hash.
func (s *mirrorStore) GetByFingerprint(ctx context.Context, hash string) (*domain.Record, error) {
	return scanRecord(s.pool.QueryRow(ctx, `select `+recordColumns+` from records where content_hash = $1`, hash))
}

// GetByTitle retrieves the oldest record with exactly this title.
func (s *mirrorStore) GetByTitle(ctx context.Context, title string) (*domain.Record, error) {
	return scanRecord(s.pool.QueryRow(ctx,
		`select `+recordColumns+` from records where title = $1 order by created_at asc, id asc limit 1`, title))
}

// Insert stores a new record. A content hash or ID collision is reported
// as domain.ErrAlreadyExists.
func (s *mirrorStore) Insert(ctx context.Context, rec *domain.Record) (*domain.Record, error) {
	if rec == nil || rec.ID == "" {
		return nil, fmt.Errorf("%w: record ID is required", domain.ErrInvalidInput)
	}

	stored := rec.Clone()
	if stored.CreatedAt.IsZero() {
		stored.CreatedAt = time.Now()
	}
	if stored.UpdatedAt.IsZero() {
		stored.UpdatedAt = stored.CreatedAt
	}
	// Postgres keeps microseconds.
	stored.CreatedAt = stored.CreatedAt.UTC().Truncate(time.Microsecond)
	stored.UpdatedAt = stored.UpdatedAt.UTC().Truncate(time.Microsecond)

	lists, err := encodeLists(stored)
	if err != nil {
		return nil, err
	}
	perf := stored.PerformanceRequirements
	if perf == nil {
		perf = map[string]string{}
	}
	perfJSON, err := json.Marshal(perf)
	if err != nil {
		return nil, fmt.Errorf("marshalling performance requirements: %w", err)
	}

	_, err = s.pool.Exec(ctx, `
		insert into records (`+recordColumns+`)
		values ($1, $2, $3, $4, $5, $6, $7::jsonb, $8::jsonb, $9, $10, $11, $12, $13, $14, $15, $16, $17)
	`, stored.ID, stored.Title, stored.Description, string(stored.Category),
		stored.ProblemStatement, stored.Timeline, string(lists), string(perfJSON),
		stored.StartDate, stored.TargetCompletionDate, stored.OriginalFilename,
		stored.SourcePath, stored.FileContent, stored.ContentHash, string(stored.Status),
		stored.CreatedAt, stored.UpdatedAt)
	if err != nil {
		return nil, mapError(err, "inserting record")
	}
	return stored, nil
}

// Update applies a partial update and bumps UpdatedAt.
func (s *mirrorStore) Update(ctx context.Context, id string, patch domain.RecordPatch) (*domain.Record, error) {
	var status, category, sourcePath *string
	if patch.Status != nil {
		v := string(*patch.Status)
		status = &v
	}
	if patch.Category != nil {
		v := string(*patch.Category)
		category = &v
	}
	if patch.SourcePath != nil {
		sourcePath = patch.SourcePath
	}

	return scanRecord(s.pool.QueryRow(ctx, `
		update records set
			status = coalesce($2, status),
			category = coalesce($3, category),
			source_path = coalesce($4, source_path),
			updated_at = now()
		where id = $1
		returning `+recordColumns,
		id, status, category, sourcePath))
}

// Delete removes a record.
func (s *mirrorStore) Delete(ctx context.Context, id string) (bool, error) {
	tag, err := s.pool.Exec(ctx, `delete from records where id = $1`, id)
	if err != nil {
		return false, mapError(err, "deleting record")
	}
	return tag.RowsAffected() > 0, nil
}

func scanRecord(row pgx.Row) (*domain.Record, error) {
	var rec domain.Record
	var category, status string
	var lists, perf []byte

	if err := row.Scan(&rec.ID, &rec.Title, &rec.Description, &category,
		&rec.ProblemStatement, &rec.Timeline, &lists, &perf,
		&rec.StartDate, &rec.TargetCompletionDate, &rec.OriginalFilename,
		&rec.SourcePath, &rec.FileContent, &rec.ContentHash, &status,
		&rec.CreatedAt, &rec.UpdatedAt); err != nil {
		return nil, mapError(err, "scanning record")
	}

	rec.Category = domain.Category(category)
	rec.Status = domain.Status(status)
	rec.CreatedAt = rec.CreatedAt.UTC()
	rec.UpdatedAt = rec.UpdatedAt.UTC()

	if err := decodeLists(lists, &rec); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(perf, &rec.PerformanceRequirements); err != nil {
		return nil, fmt.Errorf("unmarshaling performance requirements: %w", err)
	}
	if rec.PerformanceRequirements == nil {
		rec.PerformanceRequirements = map[string]string{}
	}
	return &rec, nil
}

func encodeLists(rec *domain.Record) ([]byte, error) {
	lists := make(map[string][]string)
	for _, f := range rec.ListFields() {
		items := *f.Items
		if items == nil {
			items = []string{}
		}
		lists[f.Name] = items
	}
	data, err := json.Marshal(lists)
	if err != nil {
		return nil, fmt.Errorf("marshalling lists: %w", err)
	}
	return data, nil
}

func decodeLists(data []byte, rec *domain.Record) error {
	var lists map[string][]string
	if err := json.Unmarshal(data, &lists); err != nil {
		return fmt.Errorf("unmarshaling lists: %w", err)
	}
	for _, f := range rec.ListFields() {
		items := lists[f.Name]
		if items == nil {
			items = []string{}
		}
		*f.Items = items
	}
	return nil
}
