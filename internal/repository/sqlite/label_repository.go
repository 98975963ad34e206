package sqlite

import (
	"context"
	"fmt"
	"time"

	"labelcam/internal/model"
)

// LabelRepository implements repository.LabelRepository for SQLite.
type LabelRepository struct {
	db *DB
}

// NewLabelRepository creates a new SQLite label repository.
func NewLabelRepository(db *DB) *LabelRepository {
	return &LabelRepository{db: db}
}

// Insert appends a label record and returns its store-assigned id.
// rec.ID and rec.CreatedAt are filled in.
func (r *LabelRepository) Insert(ctx context.Context, rec *model.LabelRecord) (int64, error) {
	r.db.Lock()
	defer r.db.Unlock()

	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}

	result, err := r.db.Conn().ExecContext(ctx, `
		INSERT INTO label_records (frame_id, class, type, score, x, y, width, height, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, rec.FrameID, rec.Class, rec.Type, rec.Score, rec.Box.X, rec.Box.Y, rec.Box.Width, rec.Box.Height, rec.CreatedAt)
	if err != nil {
		return 0, fmt.Errorf("failed to insert label record: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to read label record id: %w", err)
	}
	rec.ID = id
	return id, nil
}

// GetAll returns every label record in insertion order.
func (r *LabelRepository) GetAll(ctx context.Context) ([]model.LabelRecord, error) {
	r.db.RLock()
	defer r.db.RUnlock()

	rows, err := r.db.Conn().QueryContext(ctx, `
		SELECT id, frame_id, class, type, score, x, y, width, height, created_at
		FROM label_records ORDER BY id
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query label records: %w", err)
	}
	defer rows.Close()

	records := []model.LabelRecord{}
	for rows.Next() {
		var rec model.LabelRecord
		if err := rows.Scan(&rec.ID, &rec.FrameID, &rec.Class, &rec.Type, &rec.Score,
			&rec.Box.X, &rec.Box.Y, &rec.Box.Width, &rec.Box.Height, &rec.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan label record: %w", err)
		}
		records = append(records, rec)
	}

	return records, rows.Err()
}

// GetClasses returns the distinct detected classes that have been labeled.
func (r *LabelRepository) GetClasses(ctx context.Context) ([]string, error) {
	r.db.RLock()
	defer r.db.RUnlock()

	rows, err := r.db.Conn().QueryContext(ctx, `SELECT DISTINCT class FROM label_records ORDER BY class`)
	if err != nil {
		return nil, fmt.Errorf("failed to query classes: %w", err)
	}
	defer rows.Close()

	classes := []string{}
	for rows.Next() {
		var class string
		if err := rows.Scan(&class); err != nil {
			return nil, fmt.Errorf("failed to scan class: %w", err)
		}
		classes = append(classes, class)
	}

	return classes, rows.Err()
}

// Count returns the number of stored label records.
func (r *LabelRepository) Count(ctx context.Context) (int, error) {
	r.db.RLock()
	defer r.db.RUnlock()

	var count int
	if err := r.db.Conn().QueryRowContext(ctx, `SELECT COUNT(*) FROM label_records`).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count label records: %w", err)
	}
	return count, nil
}
