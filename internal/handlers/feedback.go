package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"feedbackboard-backend/internal/metrics"
	"feedbackboard-backend/internal/models"
	"feedbackboard-backend/internal/notify"
	"feedbackboard-backend/internal/repository"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
)

type FeedbackHandler struct {
	repo     repository.FeedbackRepository
	notifier notify.Notifier
	log      zerolog.Logger
}

func NewFeedbackHandler(repo repository.FeedbackRepository, notifier notify.Notifier, log zerolog.Logger) *FeedbackHandler {
	return &FeedbackHandler{
		repo:     repo,
		notifier: notifier,
		log:      log,
	}
}

type SubmitFeedbackRequest struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Category    string `json:"category"`
}

type ToggleUpvoteRequest struct {
	VoterIdentifier string `json:"voterIdentifier"`
}

// --- GET /api/feedback ---

func (h *FeedbackHandler) ListFeedback(w http.ResponseWriter, r *http.Request) {
	opts := repository.ListOptions{
		Category: r.URL.Query().Get("category"),
		Search:   r.URL.Query().Get("search"),
		Sort:     r.URL.Query().Get("sort"),
	}

	feedbacks, err := h.repo.List(r.Context(), opts)
	if err != nil {
		h.log.Error().Err(err).Msg("failed to list feedback")
		metrics.StoreErrorsTotal.WithLabelValues("list").Inc()
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to fetch feedback"})
		return
	}

	writeJSON(w, http.StatusOK, feedbacks)
}

// --- POST /api/feedback ---

func (h *FeedbackHandler) SubmitFeedback(w http.ResponseWriter, r *http.Request) {
	var req SubmitFeedbackRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	if req.Title == "" || req.Description == "" || req.Category == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "title, description and category are required"})
		return
	}

	feedback, err := h.repo.Create(r.Context(), repository.CreateFeedbackInput{
		Title:       req.Title,
		Description: req.Description,
		Category:    req.Category,
	})
	if err != nil {
		h.log.Error().Err(err).Msg("failed to create feedback")
		metrics.StoreErrorsTotal.WithLabelValues("create").Inc()
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to submit feedback"})
		return
	}

	metrics.FeedbackCreatedTotal.Inc()

	// Fire the team notification in a background goroutine (non-blocking)
	go func() {
		message := formatSubmissionMessage(feedback)
		if err := h.notifier.Publish(context.Background(), message); err != nil {
			h.log.Error().Err(err).Msg("failed to publish feedback notification")
		}
	}()

	writeJSON(w, http.StatusCreated, map[string]interface{}{
		"message": "feedback submitted successfully",
		"id":      feedback.ID,
	})
}

// --- POST /api/feedback/{id}/upvote ---

func (h *FeedbackHandler) ToggleUpvote(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req ToggleUpvoteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	if req.VoterIdentifier == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "voterIdentifier is required"})
		return
	}

	result, err := h.repo.ToggleUpvote(r.Context(), id, req.VoterIdentifier)
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrInvalidID):
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid feedback id format"})
		case errors.Is(err, repository.ErrNotFound):
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "feedback not found"})
		case errors.Is(err, repository.ErrAlreadyVoted):
			writeJSON(w, http.StatusConflict, map[string]string{"error": "vote already recorded"})
		default:
			h.log.Error().Err(err).Str("feedback_id", id).Msg("failed to toggle upvote")
			metrics.StoreErrorsTotal.WithLabelValues("toggle").Inc()
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to toggle upvote"})
		}
		return
	}

	metrics.UpvoteTogglesTotal.WithLabelValues(string(result.Direction)).Inc()

	message := "feedback upvoted successfully"
	if result.Direction == repository.DirectionRemoved {
		message = "upvote removed successfully"
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"message":   message,
		"newCount":  result.NewCount,
		"direction": result.Direction,
	})
}

func formatSubmissionMessage(f *models.Feedback) string {
	return "📝 New feedback: [" + f.Category + "] " + f.Title + ": " + f.Description
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}
