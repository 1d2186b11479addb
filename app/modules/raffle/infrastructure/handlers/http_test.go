package rafflehandlers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"math/big"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	raffleservice "github.com/Black-And-White-Club/raffle/app/modules/raffle/application"
	raffledomain "github.com/Black-And-White-Club/raffle/app/modules/raffle/domain"
	raffleevents "github.com/Black-And-White-Club/raffle/pkg/events/raffle"
	"github.com/Black-And-White-Club/raffle/pkg/jwt"
	"github.com/Black-And-White-Club/raffle/pkg/signing"
	"github.com/Black-And-White-Club/raffle/pkg/utils"
)

type recordingPublisher struct {
	topics []string
}

func (p *recordingPublisher) Publish(topic string, msgs ...*message.Message) error {
	p.topics = append(p.topics, topic)
	return nil
}

func (p *recordingPublisher) Close() error { return nil }

type testServer struct {
	handler  http.Handler
	pub      *recordingPublisher
	player   string
	operator string
}

func newTestServer(t *testing.T, svc *FakeService) *testServer {
	t.Helper()
	tokens := jwt.NewService("test-secret", time.Hour)
	player, err := tokens.GenerateToken("alice", jwt.RolePlayer, 0)
	require.NoError(t, err)
	operator, err := tokens.GenerateToken("keeper", jwt.RoleOperator, 0)
	require.NoError(t, err)

	pub := &recordingPublisher{}
	h := NewHTTPHandlers(svc, testAddress, pub, utils.NewHelper(), slog.New(slog.NewTextHandler(io.Discard, nil)))
	h.now = func() time.Time { return time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC) }

	r := chi.NewRouter()
	RegisterRoutes(r, h, tokens, nil)
	return &testServer{handler: r, pub: pub, player: player, operator: operator}
}

func (s *testServer) do(method, path, token, body string) *httptest.ResponseRecorder {
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rr := httptest.NewRecorder()
	s.handler.ServeHTTP(rr, req)
	return rr
}

func TestHTTPHandlers(t *testing.T) {
	tests := []struct {
		name       string
		method     string
		path       string
		token      string
		body       string
		setup      func(s *FakeService)
		wantStatus int
		wantTrace  []string
		wantTopics []string
		verify     func(t *testing.T, rr *httptest.ResponseRecorder)
	}{
		{
			name:       "snapshot is public",
			method:     http.MethodGet,
			path:       "/api/raffle/",
			wantStatus: http.StatusOK,
			wantTrace:  []string{"GetSnapshot"},
		},
		{
			name:       "enter requires a token",
			method:     http.MethodPost,
			path:       "/api/raffle/enter",
			body:       `{"value":10000000}`,
			wantStatus: http.StatusUnauthorized,
		},
		{
			name:       "enter uses token subject and announces the entry",
			method:     http.MethodPost,
			path:       "/api/raffle/enter",
			token:      "player",
			body:       `{"value":10000000}`,
			wantStatus: http.StatusCreated,
			wantTrace:  []string{"Enter"},
			wantTopics: []string{raffleevents.RaffleEnteredV1},
			verify: func(t *testing.T, rr *httptest.ResponseRecorder) {
				var out raffleevents.RaffleEnteredPayloadV1
				require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &out))
				assert.Equal(t, "alice", out.Player)
				assert.Equal(t, int64(10_000_000), out.Value)
			},
		},
		{
			name:   "underpaid entry is unprocessable",
			method: http.MethodPost,
			path:   "/api/raffle/enter",
			token:  "player",
			body:   `{"value":9999999}`,
			setup: func(s *FakeService) {
				s.EnterFunc = func(ctx context.Context, player raffledomain.Address, value int64) (*raffleservice.EnterResult, error) {
					return nil, raffledomain.ErrInsufficientEntranceFee
				}
			},
			wantStatus: http.StatusUnprocessableEntity,
			wantTrace:  []string{"Enter"},
		},
		{
			name:   "entry overflowing the pot is unprocessable",
			method: http.MethodPost,
			path:   "/api/raffle/enter",
			token:  "player",
			body:   `{"value":9223372036854775807}`,
			setup: func(s *FakeService) {
				s.EnterFunc = func(ctx context.Context, player raffledomain.Address, value int64) (*raffleservice.EnterResult, error) {
					return nil, raffledomain.ErrPotOverflow
				}
			},
			wantStatus: http.StatusUnprocessableEntity,
			wantTrace:  []string{"Enter"},
		},
		{
			name:   "closing round rejects entries",
			method: http.MethodPost,
			path:   "/api/raffle/enter",
			token:  "player",
			body:   `{"value":10000000}`,
			setup: func(s *FakeService) {
				s.EnterFunc = func(ctx context.Context, player raffledomain.Address, value int64) (*raffleservice.EnterResult, error) {
					return nil, raffledomain.ErrNotOpen
				}
			},
			wantStatus: http.StatusConflict,
			wantTrace:  []string{"Enter"},
		},
		{
			name:       "malformed enter body",
			method:     http.MethodPost,
			path:       "/api/raffle/enter",
			token:      "player",
			body:       `{`,
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "check upkeep reports each condition",
			method:     http.MethodGet,
			path:       "/api/raffle/upkeep",
			wantStatus: http.StatusOK,
			setup: func(s *FakeService) {
				s.CheckUpkeepFunc = func(ctx context.Context, performData []byte) (*raffleservice.UpkeepResult, error) {
					return &raffleservice.UpkeepResult{
						UpkeepNeeded: false,
						Status:       raffledomain.UpkeepStatus{IsOpen: true, TimePassed: true},
					}, nil
				}
			},
			wantTrace: []string{"CheckUpkeep"},
			verify: func(t *testing.T, rr *httptest.ResponseRecorder) {
				var out upkeepResponse
				require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &out))
				assert.Equal(t, upkeepResponse{IsOpen: true, TimePassed: true}, out)
			},
		},
		{
			name:       "operator token cannot enter",
			method:     http.MethodPost,
			path:       "/api/raffle/enter",
			token:      "operator",
			body:       `{"value":10000000}`,
			wantStatus: http.StatusForbidden,
		},
		{
			name:       "anyone may perform upkeep",
			method:     http.MethodPost,
			path:       "/api/raffle/upkeep",
			wantStatus: http.StatusAccepted,
			wantTrace:  []string{"PerformUpkeep"},
			wantTopics: []string{raffleevents.RaffleWinnerRequestedV1},
		},
		{
			name:   "perform upkeep when not needed",
			method: http.MethodPost,
			path:   "/api/raffle/upkeep",
			setup: func(s *FakeService) {
				s.PerformUpkeepFunc = func(ctx context.Context, performData []byte) (*raffleservice.PerformUpkeepResult, error) {
					return nil, &raffledomain.UpkeepNotNeededError{Pot: 0, PlayerCount: 0, State: raffledomain.StateOpen}
				}
			},
			wantStatus: http.StatusConflict,
			wantTrace:  []string{"PerformUpkeep"},
			verify: func(t *testing.T, rr *httptest.ResponseRecorder) {
				assert.Contains(t, rr.Body.String(), "pot=0 players=0 state=OPEN")
			},
		},
		{
			name:   "player index out of range",
			method: http.MethodGet,
			path:   "/api/raffle/players/3",
			setup: func(s *FakeService) {
				s.GetPlayerFunc = func(ctx context.Context, index int) (raffledomain.Address, error) {
					return "", raffledomain.ErrPlayerIndexOutOfRange
				}
			},
			wantStatus: http.StatusNotFound,
			wantTrace:  []string{"GetPlayer"},
		},
		{
			name:       "player index must be a number",
			method:     http.MethodGet,
			path:       "/api/raffle/players/first",
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "recent winner",
			method:     http.MethodGet,
			path:       "/api/raffle/winner",
			wantStatus: http.StatusOK,
			wantTrace:  []string{"GetRecentWinner"},
			verify: func(t *testing.T, rr *httptest.ResponseRecorder) {
				assert.JSONEq(t, `{"recent_winner":"bob"}`, rr.Body.String())
			},
		},
		{
			name:   "winners since a timestamp",
			method: http.MethodGet,
			path:   "/api/raffle/winners?since=2026-03-01T10:00:00Z&limit=5",
			setup: func(s *FakeService) {
				s.ListWinnersFunc = func(ctx context.Context, since time.Time, limit int) ([]raffleservice.WinnerRecord, error) {
					if limit != 5 || !since.Equal(time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)) {
						return nil, errors.New("unexpected window")
					}
					return []raffleservice.WinnerRecord{{RoundNumber: 1, Winner: "alice", Prize: 20_000_000, RequestID: 1}}, nil
				}
			},
			wantStatus: http.StatusOK,
			wantTrace:  []string{"ListWinners"},
			verify: func(t *testing.T, rr *httptest.ResponseRecorder) {
				var out []winnerResponse
				require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &out))
				require.Len(t, out, 1)
				assert.Equal(t, "alice", out[0].Winner)
			},
		},
		{
			name:       "winners with unparseable since",
			method:     http.MethodGet,
			path:       "/api/raffle/winners?since=qwzx",
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "winners with bad limit",
			method:     http.MethodGet,
			path:       "/api/raffle/winners?limit=-1",
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "winners export",
			method:     http.MethodGet,
			path:       "/api/raffle/winners.xlsx",
			wantStatus: http.StatusOK,
			wantTrace:  []string{"ExportWinnersXLSX"},
			verify: func(t *testing.T, rr *httptest.ResponseRecorder) {
				assert.Contains(t, rr.Header().Get("Content-Disposition"), "winners.xlsx")
			},
		},
		{
			name:       "prize chart",
			method:     http.MethodGet,
			path:       "/api/raffle/winners/chart.png",
			wantStatus: http.StatusOK,
			wantTrace:  []string{"RenderPrizeChart"},
			verify: func(t *testing.T, rr *httptest.ResponseRecorder) {
				assert.Equal(t, "image/png", rr.Header().Get("Content-Type"))
			},
		},
		{
			name:   "balance",
			method: http.MethodGet,
			path:   "/api/raffle/balances/alice",
			setup: func(s *FakeService) {
				s.GetBalanceFunc = func(ctx context.Context, address raffledomain.Address) (int64, error) {
					return 20_000_000, nil
				}
			},
			wantStatus: http.StatusOK,
			wantTrace:  []string{"GetBalance"},
			verify: func(t *testing.T, rr *httptest.ResponseRecorder) {
				assert.JSONEq(t, `{"address":"alice","balance":20000000}`, rr.Body.String())
			},
		},
		{
			name:   "internal errors are not leaked",
			method: http.MethodGet,
			path:   "/api/raffle/",
			setup: func(s *FakeService) {
				s.GetSnapshotFunc = func(ctx context.Context) (*raffleservice.Snapshot, error) {
					return nil, errors.New("pq: connection refused")
				}
			},
			wantStatus: http.StatusInternalServerError,
			wantTrace:  []string{"GetSnapshot"},
			verify: func(t *testing.T, rr *httptest.ResponseRecorder) {
				assert.JSONEq(t, `{"error":"internal error"}`, rr.Body.String())
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &FakeService{}
			if tt.setup != nil {
				tt.setup(svc)
			}
			srv := newTestServer(t, svc)

			token := ""
			switch tt.token {
			case "player":
				token = srv.player
			case "operator":
				token = srv.operator
			}

			rr := srv.do(tt.method, tt.path, token, tt.body)

			assert.Equal(t, tt.wantStatus, rr.Code, rr.Body.String())
			if tt.wantTrace == nil {
				assert.Empty(t, svc.Trace())
			} else {
				assert.Equal(t, tt.wantTrace, svc.Trace())
			}
			if tt.wantTopics == nil {
				assert.Empty(t, srv.pub.topics)
			} else {
				assert.Equal(t, tt.wantTopics, srv.pub.topics)
			}
			if tt.verify != nil {
				tt.verify(t, rr)
			}
		})
	}
}

func TestHTTPHandlers_Fulfill(t *testing.T) {
	oracle, _, err := signing.NewRandomSigner()
	require.NoError(t, err)

	tests := []struct {
		name       string
		body       func(t *testing.T) string
		fulfillErr error
		wantStatus int
		wantTopics []string
	}{
		{
			name: "signed delivery picks a winner",
			body: func(t *testing.T) string {
				b, err := json.Marshal(signedDelivery(t, oracle, 1, string(testAddress), "5"))
				require.NoError(t, err)
				return string(b)
			},
			wantStatus: http.StatusOK,
			wantTopics: []string{raffleevents.RaffleWinnerPickedV1},
		},
		{
			name: "bad signature",
			body: func(t *testing.T) string {
				p := signedDelivery(t, oracle, 1, string(testAddress), "5")
				p.RequestID = 2
				b, err := json.Marshal(p)
				require.NoError(t, err)
				return string(b)
			},
			wantStatus: http.StatusUnauthorized,
		},
		{
			name: "stale request id",
			body: func(t *testing.T) string {
				b, err := json.Marshal(signedDelivery(t, oracle, 1, string(testAddress), "5"))
				require.NoError(t, err)
				return string(b)
			},
			fulfillErr: raffledomain.ErrRequestMismatch,
			wantStatus: http.StatusConflict,
		},
		{
			name: "winner rejects payment",
			body: func(t *testing.T) string {
				b, err := json.Marshal(signedDelivery(t, oracle, 1, string(testAddress), "5"))
				require.NoError(t, err)
				return string(b)
			},
			fulfillErr: raffledomain.ErrTransferFailed,
			wantStatus: http.StatusBadGateway,
		},
		{
			name:       "not json",
			body:       func(t *testing.T) string { return "nope" },
			wantStatus: http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &FakeService{}
			svc.FulfillRandomWordsFunc = func(ctx context.Context, caller raffledomain.Address, requestID raffledomain.RequestID, words []*big.Int) (*raffleservice.FulfillResult, error) {
				if tt.fulfillErr != nil {
					return nil, tt.fulfillErr
				}
				return &raffleservice.FulfillResult{RaffleID: testRaffleID, Winner: "alice", RequestID: requestID}, nil
			}
			srv := newTestServer(t, svc)

			rr := srv.do(http.MethodPost, "/api/raffle/fulfill", "", tt.body(t))

			assert.Equal(t, tt.wantStatus, rr.Code, rr.Body.String())
			assert.Equal(t, tt.wantTopics, srv.pub.topics)
		})
	}
}

func TestHTTPHandlers_EnterWithoutClaims(t *testing.T) {
	svc := &FakeService{}
	h := NewHTTPHandlers(svc, testAddress, &recordingPublisher{}, utils.NewHelper(), slog.New(slog.NewTextHandler(io.Discard, nil)))

	req := httptest.NewRequest(http.MethodPost, "/api/raffle/enter", strings.NewReader(`{"value":10000000}`))
	rr := httptest.NewRecorder()
	h.HandleEnter(rr, req)

	assert.Equal(t, http.StatusUnauthorized, rr.Code)
	assert.Empty(t, svc.Trace())
}
