package entity

import (
	"strings"
	"time"

	"focalai/internal/fallback"
	"focalai/internal/prd"
)

// TitleLimit caps the stored idea title in runes.
const TitleLimit = 200

// Idea is a product idea submitted by a user.
type Idea struct {
	ID        string    `json:"id"`
	UserID    UserID    `json:"user_id"`
	Title     string    `json:"title"`
	Text      string    `json:"text"`
	CreatedAt time.Time `json:"created_at"`
}

// NewIdea builds an unsaved idea; the title is the first TitleLimit runes.
func NewIdea(user UserID, text string) Idea {
	text = strings.TrimSpace(text)
	return Idea{
		UserID: user,
		Title:  fallback.Truncate(text, TitleLimit),
		Text:   text,
	}
}

// Document is one generated requirements document. Iteration 0 is the
// initial document; each feedback cycle adds one.
type Document struct {
	ID           string       `json:"id"`
	IdeaID       string       `json:"idea_id"`
	Iteration    int          `json:"iteration"`
	Feedback     string       `json:"feedback,omitempty"`
	Content      string       `json:"content"`
	Sections     prd.Sections `json:"sections"`
	UsedFallback bool         `json:"used_fallback"`
	CallsMade    int          `json:"api_calls_made"`
	Artifacts    []string     `json:"artifacts,omitempty"`
	CreatedAt    time.Time    `json:"created_at"`
}
