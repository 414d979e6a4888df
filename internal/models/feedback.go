package models

import "time"

// Feedback is the storage-agnostic feedback item. JSON field names follow
// the public API contract; each store keeps its own document/row shape and
// maps into this.
type Feedback struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Category    string    `json:"category"`
	UpvoteCount int       `json:"upvoteCount"`
	CreatedAt   time.Time `json:"createdAt"`
}
