package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sort"
	"strings"
	"testing"
	"time"

	"feedbackboard-backend/internal/models"
	"feedbackboard-backend/internal/repository"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeFeedbackRepo is an in-memory FeedbackRepository with real toggle
// semantics, plus injectable errors for the failure-path tests.
type fakeFeedbackRepo struct {
	items    map[string]*fakeItem
	nextID   int
	lastList repository.ListOptions

	createErr error
	listErr   error
	toggleErr error
}

type fakeItem struct {
	feedback models.Feedback
	voters   map[string]bool
}

func newFakeRepo() *fakeFeedbackRepo {
	return &fakeFeedbackRepo{items: map[string]*fakeItem{}}
}

func (f *fakeFeedbackRepo) Create(ctx context.Context, input repository.CreateFeedbackInput) (*models.Feedback, error) {
	if f.createErr != nil {
		return nil, f.createErr
	}
	f.nextID++
	feedback := models.Feedback{
		ID:          fmt.Sprintf("id-%d", f.nextID),
		Title:       input.Title,
		Description: input.Description,
		Category:    input.Category,
		CreatedAt:   time.Now().Add(time.Duration(f.nextID) * time.Millisecond),
	}
	f.items[feedback.ID] = &fakeItem{feedback: feedback, voters: map[string]bool{}}
	return &feedback, nil
}

func (f *fakeFeedbackRepo) List(ctx context.Context, opts repository.ListOptions) ([]models.Feedback, error) {
	f.lastList = opts
	if f.listErr != nil {
		return nil, f.listErr
	}
	out := []models.Feedback{}
	for _, item := range f.items {
		fb := item.feedback
		fb.UpvoteCount = len(item.voters)
		if opts.Category != "" && opts.Category != repository.CategoryAll && fb.Category != opts.Category {
			continue
		}
		if opts.Search != "" {
			needle := strings.ToLower(opts.Search)
			if !strings.Contains(strings.ToLower(fb.Title), needle) &&
				!strings.Contains(strings.ToLower(fb.Description), needle) {
				continue
			}
		}
		out = append(out, fb)
	}
	sort.Slice(out, func(i, j int) bool {
		if opts.Sort == repository.SortUpvotes {
			return out[i].UpvoteCount > out[j].UpvoteCount
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

func (f *fakeFeedbackRepo) ToggleUpvote(ctx context.Context, id, voterIdentifier string) (*repository.ToggleResult, error) {
	if f.toggleErr != nil {
		return nil, f.toggleErr
	}
	item, ok := f.items[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	direction := repository.DirectionAdded
	if item.voters[voterIdentifier] {
		delete(item.voters, voterIdentifier)
		direction = repository.DirectionRemoved
	} else {
		item.voters[voterIdentifier] = true
	}
	return &repository.ToggleResult{NewCount: len(item.voters), Direction: direction}, nil
}

// chanNotifier forwards published messages to a channel so tests can wait
// for the background publish goroutine.
type chanNotifier struct {
	messages chan string
}

func (n *chanNotifier) Publish(ctx context.Context, message string) error {
	n.messages <- message
	return nil
}

func newTestRouter(repo repository.FeedbackRepository, notifier *chanNotifier) *chi.Mux {
	h := NewFeedbackHandler(repo, notifier, zerolog.Nop())
	r := chi.NewRouter()
	r.Get("/api/feedback", h.ListFeedback)
	r.Post("/api/feedback", h.SubmitFeedback)
	r.Post("/api/feedback/{id}/upvote", h.ToggleUpvote)
	return r
}

func setupHandlerTest() (*fakeFeedbackRepo, *chanNotifier, *chi.Mux) {
	repo := newFakeRepo()
	notifier := &chanNotifier{messages: make(chan string, 8)}
	return repo, notifier, newTestRouter(repo, notifier)
}

func doJSON(t *testing.T, router http.Handler, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var body map[string]interface{}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	return body
}

func TestSubmitFeedbackValidation(t *testing.T) {
	_, _, router := setupHandlerTest()

	cases := []struct {
		name    string
		payload map[string]string
	}{
		{"missing title", map[string]string{"description": "d", "category": "bug"}},
		{"missing description", map[string]string{"title": "t", "category": "bug"}},
		{"missing category", map[string]string{"title": "t", "description": "d"}},
		{"empty title", map[string]string{"title": "", "description": "d", "category": "bug"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := doJSON(t, router, http.MethodPost, "/api/feedback", tc.payload)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
		})
	}
}

func TestSubmitFeedbackInvalidBody(t *testing.T) {
	_, _, router := setupHandlerTest()

	req := httptest.NewRequest(http.MethodPost, "/api/feedback", strings.NewReader("{not json"))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSubmitFeedback(t *testing.T) {
	repo, notifier, router := setupHandlerTest()

	rec := doJSON(t, router, http.MethodPost, "/api/feedback", map[string]string{
		"title":       "Dark mode",
		"description": "Please add a dark theme",
		"category":    "feature",
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	body := decodeBody(t, rec)
	assert.Equal(t, "feedback submitted successfully", body["message"])
	id, ok := body["id"].(string)
	require.True(t, ok)
	require.NotEmpty(t, id)

	item, ok := repo.items[id]
	require.True(t, ok)
	assert.Equal(t, "Dark mode", item.feedback.Title)
	assert.Empty(t, item.voters)

	select {
	case msg := <-notifier.messages:
		assert.Contains(t, msg, "Dark mode")
		assert.Contains(t, msg, "feature")
	case <-time.After(time.Second):
		t.Fatal("notification was not published")
	}
}

func TestSubmitFeedbackStoreError(t *testing.T) {
	repo, _, router := setupHandlerTest()
	repo.createErr = fmt.Errorf("connection reset")

	rec := doJSON(t, router, http.MethodPost, "/api/feedback", map[string]string{
		"title": "t", "description": "d", "category": "bug",
	})
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestListFeedbackQueryOptions(t *testing.T) {
	repo, _, router := setupHandlerTest()

	rec := doJSON(t, router, http.MethodGet, "/api/feedback?category=bug&sort=upvotes&search=dark", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	assert.Equal(t, "bug", repo.lastList.Category)
	assert.Equal(t, "upvotes", repo.lastList.Sort)
	assert.Equal(t, "dark", repo.lastList.Search)
}

func TestListFeedbackFiltersAndSorts(t *testing.T) {
	repo, _, router := setupHandlerTest()

	seed := []repository.CreateFeedbackInput{
		{Title: "Dark mode", Description: "night theme", Category: "feature"},
		{Title: "Crash on save", Description: "app crashes", Category: "bug"},
		{Title: "Typo in footer", Description: "dark corner of the page", Category: "bug"},
	}
	for _, in := range seed {
		_, err := repo.Create(context.Background(), in)
		require.NoError(t, err)
	}

	rec := doJSON(t, router, http.MethodGet, "/api/feedback?category=bug", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var bugs []models.Feedback
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&bugs))
	require.Len(t, bugs, 2)
	for _, f := range bugs {
		assert.Equal(t, "bug", f.Category)
	}

	// case-insensitive match against title OR description
	rec = doJSON(t, router, http.MethodGet, "/api/feedback?search=Dark", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var matched []models.Feedback
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&matched))
	assert.Len(t, matched, 2)

	// default sort is most recent first
	rec = doJSON(t, router, http.MethodGet, "/api/feedback", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var all []models.Feedback
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&all))
	require.Len(t, all, 3)
	assert.Equal(t, "Typo in footer", all[0].Title)
}

func TestListFeedbackStoreError(t *testing.T) {
	repo, _, router := setupHandlerTest()
	repo.listErr = fmt.Errorf("connection reset")

	rec := doJSON(t, router, http.MethodGet, "/api/feedback", nil)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestToggleUpvoteValidation(t *testing.T) {
	_, _, router := setupHandlerTest()

	rec := doJSON(t, router, http.MethodPost, "/api/feedback/some-id/upvote", map[string]string{})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestToggleUpvoteErrorMapping(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want int
	}{
		{"invalid id", repository.ErrInvalidID, http.StatusBadRequest},
		{"not found", repository.ErrNotFound, http.StatusNotFound},
		{"conflict", repository.ErrAlreadyVoted, http.StatusConflict},
		{"store error", fmt.Errorf("connection reset"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			repo, _, router := setupHandlerTest()
			repo.toggleErr = tc.err

			rec := doJSON(t, router, http.MethodPost, "/api/feedback/x/upvote", map[string]string{
				"voterIdentifier": "voterA",
			})
			assert.Equal(t, tc.want, rec.Code)
		})
	}
}

func TestToggleUpvoteUnknownID(t *testing.T) {
	_, _, router := setupHandlerTest()

	rec := doJSON(t, router, http.MethodPost, "/api/feedback/missing/upvote", map[string]string{
		"voterIdentifier": "voterA",
	})
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

// End-to-end toggle scenario: add, remove, add from a second voter.
func TestToggleUpvoteScenario(t *testing.T) {
	repo, _, router := setupHandlerTest()

	created, err := repo.Create(context.Background(), repository.CreateFeedbackInput{
		Title: "Dark mode", Description: "night theme", Category: "feature",
	})
	require.NoError(t, err)
	path := "/api/feedback/" + created.ID + "/upvote"

	rec := doJSON(t, router, http.MethodPost, path, map[string]string{"voterIdentifier": "voterA"})
	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, "feedback upvoted successfully", body["message"])
	assert.Equal(t, float64(1), body["newCount"])
	assert.Equal(t, "added", body["direction"])

	rec = doJSON(t, router, http.MethodPost, path, map[string]string{"voterIdentifier": "voterA"})
	require.Equal(t, http.StatusOK, rec.Code)
	body = decodeBody(t, rec)
	assert.Equal(t, "upvote removed successfully", body["message"])
	assert.Equal(t, float64(0), body["newCount"])
	assert.Equal(t, "removed", body["direction"])

	rec = doJSON(t, router, http.MethodPost, path, map[string]string{"voterIdentifier": "voterB"})
	require.Equal(t, http.StatusOK, rec.Code)
	body = decodeBody(t, rec)
	assert.Equal(t, float64(1), body["newCount"])

	rec = doJSON(t, router, http.MethodGet, "/api/feedback?sort=upvotes", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var all []models.Feedback
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&all))
	require.Len(t, all, 1)
	assert.Equal(t, 1, all[0].UpvoteCount)
}
