// internal/service/comment_service.go
package service

import (
	"context"
	"database/sql"
	"time"

	"central-illustration/internal/database"
	"central-illustration/internal/models"
)

// CommentService stores visitor comments. Comments are append-only.
type CommentService struct {
	DB    *database.DB
	Demos *DemoService
}

func (s *CommentService) List(ctx context.Context, demoID int64) ([]models.Comment, error) {
	if _, err := s.Demos.Get(ctx, demoID); err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	query := `
		SELECT c.id, c.content, c.demo_id, c.created_at, u.username
		FROM comment c
		LEFT JOIN app_user u ON u.id = c.user_id
		WHERE c.demo_id = $1
		ORDER BY c.created_at ASC, c.id ASC
	`

	rows, err := s.DB.QueryContext(ctx, query, demoID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	comments := []models.Comment{}
	for rows.Next() {
		var c models.Comment
		var author sql.NullString
		if err := rows.Scan(&c.ID, &c.Content, &c.DemoID, &c.CreatedAt, &author); err != nil {
			return nil, err
		}
		if author.Valid {
			c.AuthorUsername = &author.String
		}
		comments = append(comments, c)
	}
	return comments, rows.Err()
}

func (s *CommentService) Create(ctx context.Context, in models.CommentCreate, author *models.User) (*models.Comment, error) {
	if _, err := s.Demos.Get(ctx, in.DemoID); err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	comment := &models.Comment{
		Content:        in.Content,
		DemoID:         in.DemoID,
		CreatedAt:      time.Now().UTC(),
		AuthorUsername: &author.Username,
	}

	err := s.DB.QueryRowContext(ctx,
		`INSERT INTO comment (content, created_at, demo_id, user_id) VALUES ($1, $2, $3, $4) RETURNING id`,
		comment.Content, comment.CreatedAt, comment.DemoID, author.ID,
	).Scan(&comment.ID)
	if err != nil {
		return nil, err
	}
	return comment, nil
}
