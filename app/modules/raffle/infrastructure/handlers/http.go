package rafflehandlers

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/go-chi/chi/v5"

	raffleservice "github.com/Black-And-White-Club/raffle/app/modules/raffle/application"
	raffledomain "github.com/Black-And-White-Club/raffle/app/modules/raffle/domain"
	"github.com/Black-And-White-Club/raffle/pkg/eventbus"
	oracleevents "github.com/Black-And-White-Club/raffle/pkg/events/oracle"
	raffleevents "github.com/Black-And-White-Club/raffle/pkg/events/raffle"
	"github.com/Black-And-White-Club/raffle/pkg/httpmiddleware"
	"github.com/Black-And-White-Club/raffle/pkg/jwt"
	"github.com/Black-And-White-Club/raffle/pkg/observability/attr"
	"github.com/Black-And-White-Club/raffle/pkg/signing"
	"github.com/Black-And-White-Club/raffle/pkg/utils"
)

const defaultWinnersLimit = 50

// HTTPHandlers serves the raffle API. Accepted state changes are announced on
// publisher when one is set.
type HTTPHandlers struct {
	service   raffleservice.Service
	address   raffledomain.Address
	publisher message.Publisher
	helpers   utils.Helpers
	logger    *slog.Logger
	now       func() time.Time
}

func NewHTTPHandlers(
	service raffleservice.Service,
	address raffledomain.Address,
	publisher message.Publisher,
	helpers utils.Helpers,
	logger *slog.Logger,
) *HTTPHandlers {
	return &HTTPHandlers{
		service:   service,
		address:   address,
		publisher: publisher,
		helpers:   helpers,
		logger:    logger,
		now:       time.Now,
	}
}

// RegisterRoutes mounts the raffle API on r. Entering needs a player token;
// upkeep is open to anyone because it re-validates its predicate.
func RegisterRoutes(r chi.Router, h *HTTPHandlers, tokens jwt.Service, limiter *httpmiddleware.IPRateLimiter) {
	r.Route("/api/raffle", func(r chi.Router) {
		if limiter != nil {
			r.Use(httpmiddleware.RateLimit(limiter))
		}

		r.Get("/", h.HandleSnapshot)
		r.Get("/upkeep", h.HandleCheckUpkeep)
		r.Get("/players/{index}", h.HandleGetPlayer)
		r.Get("/winner", h.HandleRecentWinner)
		r.Get("/winners", h.HandleListWinners)
		r.Get("/winners.xlsx", h.HandleExportWinners)
		r.Get("/winners/chart.png", h.HandlePrizeChart)
		r.Get("/balances/{address}", h.HandleBalance)
		r.Post("/upkeep", h.HandlePerformUpkeep)
		r.Post("/fulfill", h.HandleFulfill)

		r.With(httpmiddleware.BearerAuth(tokens, jwt.RolePlayer)).Post("/enter", h.HandleEnter)
	})
}

func (h *HTTPHandlers) HandleSnapshot(w http.ResponseWriter, r *http.Request) {
	snap, err := h.service.GetSnapshot(r.Context())
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	httpmiddleware.WriteJSON(w, http.StatusOK, snap)
}

type upkeepResponse struct {
	UpkeepNeeded bool `json:"upkeep_needed"`
	IsOpen       bool `json:"is_open"`
	TimePassed   bool `json:"time_passed"`
	HasPlayers   bool `json:"has_players"`
	HasBalance   bool `json:"has_balance"`
}

func (h *HTTPHandlers) HandleCheckUpkeep(w http.ResponseWriter, r *http.Request) {
	res, err := h.service.CheckUpkeep(r.Context(), nil)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	httpmiddleware.WriteJSON(w, http.StatusOK, upkeepResponse{
		UpkeepNeeded: res.UpkeepNeeded,
		IsOpen:       res.Status.IsOpen,
		TimePassed:   res.Status.TimePassed,
		HasPlayers:   res.Status.HasPlayers,
		HasBalance:   res.Status.HasBalance,
	})
}

func (h *HTTPHandlers) HandlePerformUpkeep(w http.ResponseWriter, r *http.Request) {
	res, err := h.service.PerformUpkeep(r.Context(), nil)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	h.announce(r.Context(), raffleevents.RaffleWinnerRequestedV1, winnerRequestedPayload(res))
	httpmiddleware.WriteJSON(w, http.StatusAccepted, map[string]int64{"request_id": int64(res.RequestID)})
}

func (h *HTTPHandlers) HandleEnter(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Value int64 `json:"value"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		httpmiddleware.WriteError(w, http.StatusBadRequest, "invalid body")
		return
	}
	claims, ok := jwt.ClaimsFromContext(r.Context())
	if !ok {
		httpmiddleware.WriteError(w, http.StatusUnauthorized, "missing claims")
		return
	}
	res, err := h.service.Enter(r.Context(), raffledomain.Address(claims.Subject), body.Value)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	payload := enteredPayload(res)
	h.announce(r.Context(), raffleevents.RaffleEnteredV1, payload)
	httpmiddleware.WriteJSON(w, http.StatusCreated, payload)
}

func (h *HTTPHandlers) HandleFulfill(w http.ResponseWriter, r *http.Request) {
	var payload oracleevents.RandomWordsFulfilledPayloadV1
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		httpmiddleware.WriteError(w, http.StatusBadRequest, "invalid body")
		return
	}
	res, err := fulfillSigned(r.Context(), h.service, h.address, &payload)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	out := winnerPickedPayload(res)
	h.announce(r.Context(), raffleevents.RaffleWinnerPickedV1, out)
	httpmiddleware.WriteJSON(w, http.StatusOK, out)
}

func (h *HTTPHandlers) HandleGetPlayer(w http.ResponseWriter, r *http.Request) {
	index, err := strconv.Atoi(chi.URLParam(r, "index"))
	if err != nil {
		httpmiddleware.WriteError(w, http.StatusBadRequest, "invalid index")
		return
	}
	player, err := h.service.GetPlayer(r.Context(), index)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	httpmiddleware.WriteJSON(w, http.StatusOK, map[string]any{"index": index, "player": player})
}

func (h *HTTPHandlers) HandleRecentWinner(w http.ResponseWriter, r *http.Request) {
	winner, err := h.service.GetRecentWinner(r.Context())
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	httpmiddleware.WriteJSON(w, http.StatusOK, map[string]string{"recent_winner": string(winner)})
}

type winnerResponse struct {
	RoundNumber int64     `json:"round_number"`
	Winner      string    `json:"winner"`
	Prize       int64     `json:"prize"`
	RequestID   int64     `json:"request_id"`
	ResolvedAt  time.Time `json:"resolved_at"`
}

func (h *HTTPHandlers) HandleListWinners(w http.ResponseWriter, r *http.Request) {
	since, limit, ok := h.historyWindow(w, r)
	if !ok {
		return
	}
	winners, err := h.service.ListWinners(r.Context(), since, limit)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	out := make([]winnerResponse, 0, len(winners))
	for _, rec := range winners {
		out = append(out, winnerResponse{
			RoundNumber: rec.RoundNumber,
			Winner:      string(rec.Winner),
			Prize:       rec.Prize,
			RequestID:   int64(rec.RequestID),
			ResolvedAt:  rec.ResolvedAt,
		})
	}
	httpmiddleware.WriteJSON(w, http.StatusOK, out)
}

func (h *HTTPHandlers) HandleExportWinners(w http.ResponseWriter, r *http.Request) {
	since, limit, ok := h.historyWindow(w, r)
	if !ok {
		return
	}
	data, err := h.service.ExportWinnersXLSX(r.Context(), since, limit)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", `attachment; filename="winners.xlsx"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

func (h *HTTPHandlers) HandlePrizeChart(w http.ResponseWriter, r *http.Request) {
	since, limit, ok := h.historyWindow(w, r)
	if !ok {
		return
	}
	data, err := h.service.RenderPrizeChart(r.Context(), since, limit)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

func (h *HTTPHandlers) HandleBalance(w http.ResponseWriter, r *http.Request) {
	address := raffledomain.Address(chi.URLParam(r, "address"))
	balance, err := h.service.GetBalance(r.Context(), address)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	httpmiddleware.WriteJSON(w, http.StatusOK, map[string]any{"address": address, "balance": balance})
}

// historyWindow reads the optional since and limit query parameters.
func (h *HTTPHandlers) historyWindow(w http.ResponseWriter, r *http.Request) (time.Time, int, bool) {
	q := r.URL.Query()

	var since time.Time
	if raw := q.Get("since"); raw != "" {
		t, err := raffleservice.ParseSince(raw, h.now())
		if err != nil {
			httpmiddleware.WriteError(w, http.StatusBadRequest, err.Error())
			return time.Time{}, 0, false
		}
		since = t
	}

	limit := defaultWinnersLimit
	if raw := q.Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			httpmiddleware.WriteError(w, http.StatusBadRequest, "invalid limit")
			return time.Time{}, 0, false
		}
		limit = n
	}
	return since, limit, true
}

// announce publishes an event for a committed change. Publish errors are logged.
func (h *HTTPHandlers) announce(ctx context.Context, topic string, payload any) {
	if h.publisher == nil {
		return
	}
	if err := eventbus.PublishPayload(ctx, h.publisher, h.helpers, topic, payload); err != nil {
		h.logger.WarnContext(ctx, "Failed to publish raffle event",
			attr.String("topic", topic),
			attr.Error(err),
		)
	}
}

func (h *HTTPHandlers) writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		h.logger.ErrorContext(r.Context(), "Raffle request failed", attr.String("path", r.URL.Path), attr.Error(err))
		httpmiddleware.WriteError(w, status, "internal error")
		return
	}
	httpmiddleware.WriteError(w, status, err.Error())
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, raffledomain.ErrInsufficientEntranceFee),
		errors.Is(err, raffledomain.ErrPotOverflow):
		return http.StatusUnprocessableEntity
	case errors.Is(err, raffledomain.ErrNotOpen),
		errors.Is(err, raffledomain.ErrUpkeepNotNeeded),
		errors.Is(err, raffledomain.ErrRequestMismatch),
		errors.Is(err, raffledomain.ErrNoPlayers):
		return http.StatusConflict
	case errors.Is(err, raffledomain.ErrOnlyCoordinatorCanFulfill),
		errors.Is(err, ErrWrongConsumer):
		return http.StatusForbidden
	case errors.Is(err, signing.ErrInvalidSignature),
		errors.Is(err, signing.ErrInvalidPublicKey):
		return http.StatusUnauthorized
	case errors.Is(err, raffledomain.ErrPlayerIndexOutOfRange):
		return http.StatusNotFound
	case errors.Is(err, raffledomain.ErrTransferFailed):
		return http.StatusBadGateway
	case errors.Is(err, raffledomain.ErrInvalidAddress),
		errors.Is(err, raffledomain.ErrNoRandomWords),
		errors.Is(err, ErrMalformedWords):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}
