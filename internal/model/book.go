package model

import (
	"slices"
	"time"
)

type Book struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Author      string    `json:"author"`
	Year        int       `json:"year,omitempty"`
	Description string    `json:"description,omitempty"`
	CreatedBy   string    `json:"created_by"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
	FavoritedBy []string  `json:"favorited_by,omitempty"`
}

func (b Book) IsFavoriteOf(username string) bool {
	return slices.Contains(b.FavoritedBy, username)
}

type BookList struct {
	Books []Book `json:"books"`
}
