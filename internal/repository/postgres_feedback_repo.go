package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"feedbackboard-backend/internal/models"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresFeedbackRepo keeps votes as rows in feedback_votes with a primary
// key on (feedback_id, voter_identifier). The upvote count is always a
// derived aggregate over that table; there is no stored counter to drift.
// The toggle runs inside a transaction, with the uniqueness constraint
// acting as the guard against concurrent duplicate inserts.
type PostgresFeedbackRepo struct {
	pool *pgxpool.Pool
}

func NewPostgresFeedbackRepo(pool *pgxpool.Pool) *PostgresFeedbackRepo {
	return &PostgresFeedbackRepo{pool: pool}
}

const uniqueViolation = "23505"

// EnsureSchema creates the feedback tables if they do not exist yet.
// Statements run one by one: pgx's extended protocol does not accept
// multi-statement strings.
func (r *PostgresFeedbackRepo) EnsureSchema(ctx context.Context) error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS feedback (
			id          UUID PRIMARY KEY,
			title       TEXT NOT NULL,
			description TEXT NOT NULL,
			category    TEXT NOT NULL,
			created_at  TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
		`CREATE TABLE IF NOT EXISTS feedback_votes (
			feedback_id      UUID NOT NULL REFERENCES feedback(id),
			voter_identifier TEXT NOT NULL,
			created_at       TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			PRIMARY KEY (feedback_id, voter_identifier)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_feedback_category ON feedback (category)`,
	}
	for _, statement := range statements {
		if _, err := r.pool.Exec(ctx, statement); err != nil {
			return fmt.Errorf("failed to ensure feedback schema: %w", err)
		}
	}
	return nil
}

func (r *PostgresFeedbackRepo) Create(ctx context.Context, input CreateFeedbackInput) (*models.Feedback, error) {
	feedback := &models.Feedback{
		ID:          uuid.New().String(),
		Title:       input.Title,
		Description: input.Description,
		Category:    input.Category,
		UpvoteCount: 0,
	}
	err := r.pool.QueryRow(ctx, `
		INSERT INTO feedback (id, title, description, category)
		VALUES ($1, $2, $3, $4)
		RETURNING created_at
	`, feedback.ID, feedback.Title, feedback.Description, feedback.Category).Scan(&feedback.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to insert feedback: %w", err)
	}
	return feedback, nil
}

func (r *PostgresFeedbackRepo) List(ctx context.Context, opts ListOptions) ([]models.Feedback, error) {
	query, args := buildListQuery(opts)
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list feedback: %w", err)
	}
	defer rows.Close()

	feedbacks := make([]models.Feedback, 0)
	for rows.Next() {
		var f models.Feedback
		if err := rows.Scan(&f.ID, &f.Title, &f.Description, &f.Category, &f.UpvoteCount, &f.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan feedback row: %w", err)
		}
		feedbacks = append(feedbacks, f)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read feedback rows: %w", err)
	}
	return feedbacks, nil
}

// buildListQuery assembles the list query: the count is a join aggregate,
// category is an exact match ("all" or empty disables it), search is a
// case-insensitive substring match over title or description.
func buildListQuery(opts ListOptions) (string, []interface{}) {
	query := `
		SELECT f.id::text, f.title, f.description, f.category,
		       COUNT(v.voter_identifier)::int AS upvote_count,
		       f.created_at
		FROM feedback f
		LEFT JOIN feedback_votes v ON v.feedback_id = f.id
	`
	args := []interface{}{}
	where := ""
	if opts.Category != "" && opts.Category != CategoryAll {
		args = append(args, opts.Category)
		where = fmt.Sprintf("WHERE f.category = $%d", len(args))
	}
	if opts.Search != "" {
		args = append(args, "%"+escapeLike(opts.Search)+"%")
		clause := fmt.Sprintf("(f.title ILIKE $%d OR f.description ILIKE $%d)", len(args), len(args))
		if where == "" {
			where = "WHERE " + clause
		} else {
			where += " AND " + clause
		}
	}
	query += where + `
		GROUP BY f.id
	`
	if opts.Sort == SortUpvotes {
		query += "ORDER BY upvote_count DESC, f.created_at DESC"
	} else {
		query += "ORDER BY f.created_at DESC"
	}
	return query, args
}

// escapeLike makes the search term match as a literal substring inside
// ILIKE by escaping the pattern characters (backslash is the default
// LIKE escape character).
func escapeLike(s string) string {
	replacer := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return replacer.Replace(s)
}

func (r *PostgresFeedbackRepo) ToggleUpvote(ctx context.Context, id, voterIdentifier string) (*ToggleResult, error) {
	feedbackID, err := uuid.Parse(id)
	if err != nil {
		return nil, ErrInvalidID
	}

	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, fmt.Errorf("failed to begin toggle transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	direction := DirectionRemoved
	tag, err := tx.Exec(ctx, `
		DELETE FROM feedback_votes
		WHERE feedback_id = $1 AND voter_identifier = $2
	`, feedbackID, voterIdentifier)
	if err != nil {
		return nil, fmt.Errorf("failed to remove vote: %w", err)
	}

	if tag.RowsAffected() == 0 {
		// No vote to remove: this is an add. The insert also verifies the
		// item exists via the foreign key, but check explicitly first so
		// an unknown id surfaces as not-found rather than a store error.
		var exists bool
		if err := tx.QueryRow(ctx,
			`SELECT EXISTS (SELECT 1 FROM feedback WHERE id = $1)`, feedbackID,
		).Scan(&exists); err != nil {
			return nil, fmt.Errorf("failed to check feedback existence: %w", err)
		}
		if !exists {
			return nil, ErrNotFound
		}

		_, err = tx.Exec(ctx, `
			INSERT INTO feedback_votes (feedback_id, voter_identifier)
			VALUES ($1, $2)
		`, feedbackID, voterIdentifier)
		if err != nil {
			var pgErr *pgconn.PgError
			if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
				// Lost the race against a concurrent toggle adding the
				// same vote. The rollback leaves state untouched.
				return nil, ErrAlreadyVoted
			}
			return nil, fmt.Errorf("failed to record vote: %w", err)
		}
		direction = DirectionAdded
	}

	var newCount int
	if err := tx.QueryRow(ctx,
		`SELECT COUNT(*) FROM feedback_votes WHERE feedback_id = $1`, feedbackID,
	).Scan(&newCount); err != nil {
		return nil, fmt.Errorf("failed to count votes: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit toggle transaction: %w", err)
	}
	return &ToggleResult{NewCount: newCount, Direction: direction}, nil
}
