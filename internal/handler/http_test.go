package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/apkanwar/BetterChallenges/internal/config"
	"github.com/apkanwar/BetterChallenges/internal/domain"
	"github.com/apkanwar/BetterChallenges/internal/service"
	"github.com/apkanwar/BetterChallenges/internal/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubStore struct{}

func (stubStore) LoadAll(ctx context.Context) ([]domain.Challenge, error) { return nil, nil }
func (stubStore) ReplaceAll(ctx context.Context, challenges []domain.Challenge) error {
	return nil
}

type stubHealth struct{ auth domain.Authorization }

func (s stubHealth) AuthorizationState(ctx context.Context) (domain.Authorization, error) {
	return s.auth, nil
}
func (s stubHealth) RequestAuthorization(ctx context.Context) (domain.Authorization, error) {
	return s.auth.Grant(), nil
}
func (s stubHealth) FetchTodaySnapshot(ctx context.Context, userID string) (domain.RingSnapshot, error) {
	return domain.RingSnapshot{}, domain.ErrNoDataAvailable
}

type stubDirectory struct{ candidates []domain.ContactCandidate }

func (s stubDirectory) AuthorizationState(ctx context.Context) (domain.Authorization, error) {
	return domain.NewAuthorization(domain.CapabilityContacts).Grant(), nil
}
func (s stubDirectory) RequestAccess(ctx context.Context) (domain.Authorization, error) {
	return domain.NewAuthorization(domain.CapabilityContacts).Grant(), nil
}
func (s stubDirectory) FetchCandidates(ctx context.Context, limit int) ([]domain.ContactCandidate, error) {
	return s.candidates, nil
}

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	cfg := &config.ChallengeConfig{DefaultMaxDailyPoints: 600, DirectoryLimit: 50}

	svc := service.NewChallengeService(
		stubStore{},
		stubHealth{auth: domain.NewAuthorization(domain.CapabilityHealth).Grant()},
		stubDirectory{candidates: []domain.ContactCandidate{{ID: "c1", GivenName: "Ada"}}},
		nil,
		cfg,
		logger,
	)
	require.NoError(t, svc.Bootstrap(context.Background(), "user-self"))

	hub := websocket.NewHub(logger)
	go hub.Run()
	t.Cleanup(hub.Stop)

	srv := httptest.NewServer(NewHandler(svc, hub, logger).Router())
	t.Cleanup(srv.Close)
	return srv
}

func decodeResponse(t *testing.T, resp *http.Response) APIResponse {
	t.Helper()
	defer resp.Body.Close()
	var body APIResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	return body
}

func postJSON(t *testing.T, url string, payload interface{}) *http.Response {
	t.Helper()
	data, err := json.Marshal(payload)
	require.NoError(t, err)
	resp, err := http.Post(url, "application/json", bytes.NewReader(data))
	require.NoError(t, err)
	return resp
}

func TestChallengeLifecycleOverHTTP(t *testing.T) {
	srv := newTestServer(t)

	start := time.Now().AddDate(0, 0, 1)
	resp := postJSON(t, srv.URL+"/api/v1/challenges", map[string]interface{}{
		"title":       "Ring week",
		"start_date":  start.Format(time.RFC3339),
		"end_date":    start.AddDate(0, 0, 6).Format(time.RFC3339),
		"contact_ids": []string{"c1"},
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	body := decodeResponse(t, resp)
	require.True(t, body.Success)
	created := body.Data.(map[string]interface{})
	challengeID := created["id"].(string)
	require.NotEmpty(t, challengeID)

	// List includes it
	resp, err := http.Get(srv.URL + "/api/v1/challenges?phase=upcoming")
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	body = decodeResponse(t, resp)
	assert.Len(t, body.Data, 1)

	// Leaderboard ranks both participants
	resp, err = http.Get(fmt.Sprintf("%s/api/v1/challenges/%s/leaderboard?horizon=total", srv.URL, challengeID))
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	body = decodeResponse(t, resp)
	assert.Len(t, body.Data, 2)

	// Delete, then a lookup 404s
	req, err := http.NewRequest(http.MethodDelete, fmt.Sprintf("%s/api/v1/challenges/%s", srv.URL, challengeID), nil)
	require.NoError(t, err)
	resp, err = http.DefaultClient.Do(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	resp, err = http.Get(fmt.Sprintf("%s/api/v1/challenges/%s", srv.URL, challengeID))
	require.NoError(t, err)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	resp.Body.Close()
}

func TestErrorStatusMapping(t *testing.T) {
	srv := newTestServer(t)

	tests := []struct {
		name   string
		method string
		path   string
		body   interface{}
		want   int
	}{
		{"unknown challenge", http.MethodGet, "/api/v1/challenges/nope", nil, http.StatusNotFound},
		{"bad phase filter", http.MethodGet, "/api/v1/challenges?phase=ongoing", nil, http.StatusBadRequest},
		{"bad horizon", http.MethodGet, "/api/v1/challenges/nope/leaderboard?horizon=weird", nil, http.StatusBadRequest},
		{"no snapshot data", http.MethodPost, "/api/v1/snapshots/refresh", nil, http.StatusNotFound},
		{"unknown capability", http.MethodGet, "/api/v1/permissions/camera", nil, http.StatusBadRequest},
		{"invalid submission", http.MethodPost, "/api/v1/snapshots", map[string]interface{}{"user_id": ""}, http.StatusBadRequest},
		{"empty invite", http.MethodPost, "/api/v1/challenges/nope/invite", map[string]interface{}{"contact_ids": []string{}}, http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var resp *http.Response
			var err error
			if tt.method == http.MethodGet {
				resp, err = http.Get(srv.URL + tt.path)
				require.NoError(t, err)
			} else {
				resp = postJSON(t, srv.URL+tt.path, tt.body)
			}
			defer resp.Body.Close()
			assert.Equal(t, tt.want, resp.StatusCode)

			body := decodeResponse(t, resp)
			assert.False(t, body.Success)
			assert.NotEmpty(t, body.Error)
		})
	}
}

func TestIdentityEndpoint(t *testing.T) {
	srv := newTestServer(t)

	resp, err := http.Get(srv.URL + "/api/v1/identity")
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	body := decodeResponse(t, resp)
	data := body.Data.(map[string]interface{})
	assert.Equal(t, "user-self", data["user_id"])
}

func TestContactsEndpoint(t *testing.T) {
	srv := newTestServer(t)

	resp, err := http.Get(srv.URL + "/api/v1/contacts")
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	body := decodeResponse(t, resp)
	assert.Len(t, body.Data, 1)
}
