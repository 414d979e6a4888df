package repository

import (
	"context"
	"errors"

	"feedbackboard-backend/internal/models"
)

// Sentinel errors shared by both store implementations. Handlers map these
// to HTTP statuses with errors.Is.
var (
	// ErrNotFound means the feedback id addresses no record.
	ErrNotFound = errors.New("feedback not found")
	// ErrInvalidID means the id cannot address a record at all
	// (wrong format for the active store), distinct from not-found.
	ErrInvalidID = errors.New("invalid feedback id")
	// ErrAlreadyVoted means a concurrent toggle on the same
	// (feedback, voter) pair won the race.
	ErrAlreadyVoted = errors.New("vote already recorded for this voter")
)

// Sort orders accepted by List.
const (
	SortRecent  = "recent"
	SortUpvotes = "upvotes"
)

// CategoryAll disables category filtering when passed in ListOptions.
const CategoryAll = "all"

type CreateFeedbackInput struct {
	Title       string
	Description string
	Category    string
}

// ListOptions configures List. Zero value means: all categories, no
// search, most recent first.
type ListOptions struct {
	Category string
	Search   string
	Sort     string
}

type ToggleDirection string

const (
	DirectionAdded   ToggleDirection = "added"
	DirectionRemoved ToggleDirection = "removed"
)

// ToggleResult reports the outcome of a ToggleUpvote call.
type ToggleResult struct {
	NewCount  int
	Direction ToggleDirection
}

// FeedbackRepository is the feedback store. Two implementations exist:
// MongoFeedbackRepo keeps voter identifiers embedded in the feedback
// document, PostgresFeedbackRepo keeps a normalized vote log. A deployment
// runs exactly one of them, selected by config.
type FeedbackRepository interface {
	// Create assigns the id and creation time and starts the item with
	// zero upvotes and an empty vote set.
	Create(ctx context.Context, input CreateFeedbackInput) (*models.Feedback, error)

	// List returns every matching item, ordered per opts.Sort. No
	// pagination.
	List(ctx context.Context, opts ListOptions) ([]models.Feedback, error)

	// ToggleUpvote flips the voter's vote on the item: adds it when
	// absent, removes it when present, adjusting the count by exactly
	// one. The check-then-act is atomic with respect to concurrent
	// toggles on the same (id, voterIdentifier) pair.
	ToggleUpvote(ctx context.Context, id, voterIdentifier string) (*ToggleResult, error)
}
