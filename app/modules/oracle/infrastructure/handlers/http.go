package oraclehandlers

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	oracleservice "github.com/Black-And-White-Club/raffle/app/modules/oracle/application"
	oracledomain "github.com/Black-And-White-Club/raffle/app/modules/oracle/domain"
	oraclequeue "github.com/Black-And-White-Club/raffle/app/modules/oracle/infrastructure/queue"
	"github.com/Black-And-White-Club/raffle/pkg/httpmiddleware"
	"github.com/Black-And-White-Club/raffle/pkg/jwt"
	"github.com/Black-And-White-Club/raffle/pkg/observability/attr"
)

// JobLister reports fulfillments still waiting in the queue.
type JobLister interface {
	GetScheduledJobs(ctx context.Context) ([]oraclequeue.JobInfo, error)
}

// HTTPHandlers serves the operator API of the coordinator.
type HTTPHandlers struct {
	service oracleservice.Service
	jobs    JobLister
	logger  *slog.Logger
}

// NewHTTPHandlers creates the operator API. jobs may be nil when no queue runs.
func NewHTTPHandlers(service oracleservice.Service, jobs JobLister, logger *slog.Logger) *HTTPHandlers {
	return &HTTPHandlers{service: service, jobs: jobs, logger: logger}
}

// RegisterRoutes mounts the API on r. Every route requires an operator token.
func RegisterRoutes(r chi.Router, h *HTTPHandlers, tokens jwt.Service, limiter *httpmiddleware.IPRateLimiter) {
	r.Route("/api/oracle", func(r chi.Router) {
		if limiter != nil {
			r.Use(httpmiddleware.RateLimit(limiter))
		}
		r.Use(httpmiddleware.BearerAuth(tokens, jwt.RoleOperator))

		r.Get("/", h.HandleInfo)
		r.Post("/subscriptions", h.HandleCreateSubscription)
		r.Get("/subscriptions/{id}", h.HandleGetSubscription)
		r.Post("/subscriptions/{id}/fund", h.HandleFundSubscription)
		r.Post("/subscriptions/{id}/consumers", h.HandleAddConsumer)
		r.Delete("/subscriptions/{id}/consumers/{consumer}", h.HandleRemoveConsumer)
		r.Get("/requests", h.HandleListRequests)
		r.Post("/requests/{id}/fulfill", h.HandleFulfill)
		r.Get("/jobs", h.HandleListJobs)
	})
}

type subscriptionResponse struct {
	ID           int64    `json:"id"`
	Owner        string   `json:"owner"`
	Balance      int64    `json:"balance"`
	RequestCount int64    `json:"request_count"`
	Consumers    []string `json:"consumers"`
}

func toSubscriptionResponse(s *oracledomain.Subscription) subscriptionResponse {
	consumers := s.Consumers
	if consumers == nil {
		consumers = []string{}
	}
	return subscriptionResponse{
		ID:           s.ID,
		Owner:        s.Owner,
		Balance:      s.Balance,
		RequestCount: s.RequestCount,
		Consumers:    consumers,
	}
}

func (h *HTTPHandlers) HandleInfo(w http.ResponseWriter, r *http.Request) {
	httpmiddleware.WriteJSON(w, http.StatusOK, map[string]string{"address": h.service.Address()})
}

func (h *HTTPHandlers) HandleCreateSubscription(w http.ResponseWriter, r *http.Request) {
	claims, ok := jwt.ClaimsFromContext(r.Context())
	if !ok {
		httpmiddleware.WriteError(w, http.StatusUnauthorized, "missing claims")
		return
	}
	id, err := h.service.CreateSubscription(r.Context(), claims.Subject)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	httpmiddleware.WriteJSON(w, http.StatusCreated, map[string]int64{"subscription_id": id})
}

func (h *HTTPHandlers) HandleGetSubscription(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	sub, err := h.service.GetSubscription(r.Context(), id)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	httpmiddleware.WriteJSON(w, http.StatusOK, toSubscriptionResponse(sub))
}

func (h *HTTPHandlers) HandleFundSubscription(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var body struct {
		Amount int64 `json:"amount"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		httpmiddleware.WriteError(w, http.StatusBadRequest, "invalid body")
		return
	}
	sub, err := h.service.FundSubscription(r.Context(), id, body.Amount)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	httpmiddleware.WriteJSON(w, http.StatusOK, toSubscriptionResponse(sub))
}

func (h *HTTPHandlers) HandleAddConsumer(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var body struct {
		Consumer string `json:"consumer"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.Consumer == "" {
		httpmiddleware.WriteError(w, http.StatusBadRequest, "invalid body")
		return
	}
	claims, ok := jwt.ClaimsFromContext(r.Context())
	if !ok {
		httpmiddleware.WriteError(w, http.StatusUnauthorized, "missing claims")
		return
	}
	if err := h.service.AddConsumer(r.Context(), id, claims.Subject, body.Consumer); err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *HTTPHandlers) HandleRemoveConsumer(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	claims, ok := jwt.ClaimsFromContext(r.Context())
	if !ok {
		httpmiddleware.WriteError(w, http.StatusUnauthorized, "missing claims")
		return
	}
	if err := h.service.RemoveConsumer(r.Context(), id, claims.Subject, chi.URLParam(r, "consumer")); err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *HTTPHandlers) HandleListRequests(w http.ResponseWriter, r *http.Request) {
	limit := 100
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			httpmiddleware.WriteError(w, http.StatusBadRequest, "invalid limit")
			return
		}
		limit = n
	}
	reqs, err := h.service.ListRequests(r.Context(), limit)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	httpmiddleware.WriteJSON(w, http.StatusOK, reqs)
}

func (h *HTTPHandlers) HandleFulfill(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	f, err := h.service.FulfillRandomWords(r.Context(), id)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	httpmiddleware.WriteJSON(w, http.StatusOK, map[string]any{
		"request_id":   f.RequestID,
		"consumer":     f.Consumer,
		"random_words": oracledomain.EncodeWords(f.RandomWords),
		"payment":      f.Payment,
		"balance":      f.Balance,
		"topic":        f.Topic,
	})
}

func (h *HTTPHandlers) HandleListJobs(w http.ResponseWriter, r *http.Request) {
	if h.jobs == nil {
		httpmiddleware.WriteError(w, http.StatusServiceUnavailable, "fulfillment queue not running")
		return
	}
	jobs, err := h.jobs.GetScheduledJobs(r.Context())
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	httpmiddleware.WriteJSON(w, http.StatusOK, jobs)
}

func pathID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		httpmiddleware.WriteError(w, http.StatusBadRequest, "invalid id")
		return 0, false
	}
	return id, true
}

func (h *HTTPHandlers) writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		h.logger.ErrorContext(r.Context(), "Oracle request failed", attr.String("path", r.URL.Path), attr.Error(err))
		httpmiddleware.WriteError(w, status, "internal error")
		return
	}
	httpmiddleware.WriteError(w, status, err.Error())
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, oracledomain.ErrInvalidSubscription),
		errors.Is(err, oracledomain.ErrNonexistentRequest):
		return http.StatusNotFound
	case errors.Is(err, oracledomain.ErrMustBeSubOwner):
		return http.StatusForbidden
	case errors.Is(err, oracledomain.ErrInsufficientBalance):
		return http.StatusPaymentRequired
	case errors.Is(err, oracledomain.ErrInvalidConsumer),
		errors.Is(err, oracledomain.ErrTooManyConsumers):
		return http.StatusConflict
	case errors.Is(err, oracledomain.ErrInvalidAmount),
		errors.Is(err, oracledomain.ErrInvalidNumWords),
		errors.Is(err, oracledomain.ErrInvalidConfirmations):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}
