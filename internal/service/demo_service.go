// internal/service/demo_service.go
package service

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"central-illustration/internal/database"
	"central-illustration/internal/models"

	"github.com/google/uuid"
)

type DemoService struct {
	DB *database.DB
}

const demoColumns = `id, title, description, folder_name, url, is_visible, created_at, updated_at, created_by`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanDemo(row rowScanner) (*models.Demonstration, error) {
	demo := &models.Demonstration{}
	var description, url sql.NullString
	var createdBy uuid.NullUUID

	err := row.Scan(
		&demo.ID,
		&demo.Title,
		&description,
		&demo.FolderName,
		&url,
		&demo.IsVisible,
		&demo.CreatedAt,
		&demo.UpdatedAt,
		&createdBy,
	)
	if err != nil {
		return nil, err
	}

	if description.Valid {
		demo.Description = &description.String
	}
	if url.Valid {
		demo.URL = &url.String
	}
	if createdBy.Valid {
		s := createdBy.UUID.String()
		demo.CreatedBy = &s
	}
	return demo, nil
}

// List returns demos newest first. visibleOnly hides demos an admin has unlisted.
func (s *DemoService) List(ctx context.Context, visibleOnly bool) ([]models.Demonstration, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	query := `SELECT ` + demoColumns + ` FROM demonstration`
	var args []any
	if visibleOnly {
		query += ` WHERE is_visible = $1`
		args = append(args, true)
	}
	query += ` ORDER BY created_at DESC, id DESC`

	rows, err := s.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	demos := []models.Demonstration{}
	for rows.Next() {
		demo, err := scanDemo(rows)
		if err != nil {
			return nil, err
		}
		demos = append(demos, *demo)
	}
	return demos, rows.Err()
}

func (s *DemoService) Get(ctx context.Context, id int64) (*models.Demonstration, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	demo, err := scanDemo(s.DB.QueryRowContext(ctx,
		`SELECT `+demoColumns+` FROM demonstration WHERE id = $1`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrDemoNotFound
	}
	return demo, err
}

func (s *DemoService) GetByFolder(ctx context.Context, folder string) (*models.Demonstration, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	demo, err := scanDemo(s.DB.QueryRowContext(ctx,
		`SELECT `+demoColumns+` FROM demonstration WHERE folder_name = $1`, folder))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrDemoNotFound
	}
	return demo, err
}

// Create inserts a demo record. A folder already claimed by another demo,
// as decided by the UNIQUE constraint, is ErrFolderExists. The project
// directory itself is not touched here.
func (s *DemoService) Create(ctx context.Context, in models.DemonstrationCreate, createdBy uuid.UUID) (*models.Demonstration, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	visible := true
	if in.IsVisible != nil {
		visible = *in.IsVisible
	}
	creator := uuid.NullUUID{UUID: createdBy, Valid: createdBy != uuid.Nil}
	now := time.Now().UTC()

	query := `
		INSERT INTO demonstration (title, description, folder_name, url, is_visible, created_at, updated_at, created_by)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING ` + demoColumns

	demo, err := scanDemo(s.DB.QueryRowContext(ctx, query,
		in.Title,
		nullString(in.Description),
		in.FolderName,
		nullString(in.URL),
		visible,
		now,
		now,
		creator,
	))
	if database.IsUniqueViolation(err) {
		return nil, ErrFolderExists
	}
	return demo, err
}

// Update applies only the fields present in the request.
func (s *DemoService) Update(ctx context.Context, id int64, in models.DemonstrationUpdate) (*models.Demonstration, error) {
	demo, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if in.Title != nil {
		demo.Title = *in.Title
	}
	if in.Description != nil {
		demo.Description = in.Description
	}
	if in.URL != nil {
		demo.URL = in.URL
	}
	if in.IsVisible != nil {
		demo.IsVisible = *in.IsVisible
	}

	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	query := `
		UPDATE demonstration
		SET title       = $1,
		    description = $2,
		    url         = $3,
		    is_visible  = $4,
		    updated_at  = $5
		WHERE id = $6
		RETURNING ` + demoColumns

	updated, err := scanDemo(s.DB.QueryRowContext(ctx, query,
		demo.Title,
		nullString(demo.Description),
		nullString(demo.URL),
		demo.IsVisible,
		time.Now().UTC(),
		id,
	))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrDemoNotFound
	}
	return updated, err
}

// Delete permanently removes a demo and its comments.
func (s *DemoService) Delete(ctx context.Context, id int64) error {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	tx, err := s.DB.BeginTx(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM comment WHERE demo_id = $1`, id); err != nil {
		return err
	}

	result, err := tx.ExecContext(ctx, `DELETE FROM demonstration WHERE id = $1`, id)
	if err != nil {
		return err
	}

	rows, _ := result.RowsAffected()
	if rows == 0 {
		return ErrDemoNotFound
	}

	return tx.Commit()
}

func nullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}
