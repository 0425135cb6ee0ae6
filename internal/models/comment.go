package models

import "time"

type Comment struct {
	ID             int64     `json:"id"`
	Content        string    `json:"content"`
	DemoID         int64     `json:"demo_id"`
	CreatedAt      time.Time `json:"created_at"`
	AuthorUsername *string   `json:"author_username"`
}

type CommentCreate struct {
	DemoID  int64  `json:"demo_id"`
	Content string `json:"content"`
}
