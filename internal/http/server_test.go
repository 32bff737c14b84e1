package httpapi

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"safeshe-backend-go/internal/config"
	"safeshe-backend-go/internal/live"
	"safeshe-backend-go/internal/services"
	"safeshe-backend-go/internal/store"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig() config.Config {
	return config.Config{
		Port:             "0",
		StoreDriver:      config.StoreDriverMemory,
		JWTSecret:        "test-secret",
		JWTIssuer:        "safeshe",
		AccessTTLSeconds: 3600,
		CorsOrigins:      []string{"*"},
		LiveSendBuffer:   16,
	}
}

func newTestServer(t *testing.T, cfg config.Config) (*Server, *httptest.Server) {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	srv := NewServer(cfg, store.NewMemory(), logger)
	ts := httptest.NewServer(srv.Router())
	t.Cleanup(func() {
		srv.Registry.Close()
		ts.Close()
	})
	return srv, ts
}

func doJSON(t *testing.T, method, url string, body any, out any) int {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req, err := http.NewRequest(method, url, reader)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	if out != nil {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
	}
	return resp.StatusCode
}

func dialTrack(t *testing.T, ts *httptest.Server, userID, query string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws/track/" + userID + query
	conn, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	resp.Body.Close()
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readMessage(t *testing.T, conn *websocket.Conn) live.Message {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var msg live.Message
	require.NoError(t, conn.ReadJSON(&msg))
	return msg
}

func TestRoot(t *testing.T) {
	_, ts := newTestServer(t, testConfig())
	var body map[string]string
	status := doJSON(t, http.MethodGet, ts.URL+"/", nil, &body)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "ok", body["status"])
}

func TestHealth_ReportsStoreAndViewers(t *testing.T) {
	_, ts := newTestServer(t, testConfig())
	var report services.HealthReport
	status := doJSON(t, http.MethodGet, ts.URL+"/health", nil, &report)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "ok", report.Backend)
	assert.Equal(t, services.DatabaseOK, report.Database)
	assert.Zero(t, report.LiveUsers)
}

func TestSchemaAndProviders(t *testing.T) {
	_, ts := newTestServer(t, testConfig())

	var schema SchemaResponse
	require.Equal(t, http.StatusOK, doJSON(t, http.MethodGet, ts.URL+"/schema", nil, &schema))
	names := make([]string, 0, len(schema.Models))
	for _, m := range schema.Models {
		names = append(names, m.Name)
	}
	assert.Contains(t, names, "trackpoint")

	var providers ProvidersResponse
	require.Equal(t, http.StatusOK, doJSON(t, http.MethodGet, ts.URL+"/auth/providers", nil, &providers))
	assert.ElementsMatch(t, []string{"google", "microsoft", "apple", "mock"}, providers.Providers)
}

func TestMockLogin(t *testing.T) {
	_, ts := newTestServer(t, testConfig())

	var session services.Session
	status := doJSON(t, http.MethodPost, ts.URL+"/auth/mock-login", map[string]any{"provider": "Google"}, &session)
	require.Equal(t, http.StatusOK, status)
	assert.NotEmpty(t, session.UserID)
	assert.Equal(t, "google", session.Provider)
	assert.NotEmpty(t, session.AccessToken)

	var errResp ErrorResponse
	status = doJSON(t, http.MethodPost, ts.URL+"/auth/mock-login", map[string]any{"provider": "slack"}, &errResp)
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "Unsupported provider", errResp.Message)
}

func TestLocation_UpdateAndLast(t *testing.T) {
	_, ts := newTestServer(t, testConfig())

	var empty map[string]any
	require.Equal(t, http.StatusOK, doJSON(t, http.MethodGet, ts.URL+"/location/last?user_id=u1", nil, &empty))
	assert.Nil(t, empty["latest"])

	var created map[string]string
	status := doJSON(t, http.MethodPost, ts.URL+"/location/update",
		map[string]any{"user_id": "u1", "lat": 12.9716, "lng": 77.5946}, &created)
	require.Equal(t, http.StatusOK, status)
	require.NotEmpty(t, created["trackpoint_id"])

	var last struct {
		Latest map[string]any `json:"latest"`
	}
	require.Equal(t, http.StatusOK, doJSON(t, http.MethodGet, ts.URL+"/location/last?user_id=u1", nil, &last))
	assert.Equal(t, created["trackpoint_id"], last.Latest["_id"])
	assert.Equal(t, 12.9716, last.Latest["lat"])
	assert.NotEmpty(t, last.Latest["server_ts"])
}

func TestLocation_Rejections(t *testing.T) {
	_, ts := newTestServer(t, testConfig())

	var errResp ErrorResponse
	status := doJSON(t, http.MethodPost, ts.URL+"/location/update",
		map[string]any{"user_id": "u1", "lat": 91, "lng": 0}, &errResp)
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Contains(t, errResp.Message, "lat")

	status = doJSON(t, http.MethodPost, ts.URL+"/location/update", map[string]any{"lat": 1, "lng": 1}, &errResp)
	assert.Equal(t, http.StatusBadRequest, status)

	req, err := http.NewRequest(http.MethodPost, ts.URL+"/location/update", strings.NewReader("{"))
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	status = doJSON(t, http.MethodGet, ts.URL+"/location/last", nil, &errResp)
	assert.Equal(t, http.StatusBadRequest, status)
}

func TestGuardians(t *testing.T) {
	_, ts := newTestServer(t, testConfig())

	var created map[string]string
	status := doJSON(t, http.MethodPost, ts.URL+"/guardians",
		map[string]any{"user_id": "u1", "name": "Asha", "phone": "+911234567890"}, &created)
	require.Equal(t, http.StatusOK, status)
	require.NotEmpty(t, created["guardian_id"])

	var list ItemsResponse
	require.Equal(t, http.StatusOK, doJSON(t, http.MethodGet, ts.URL+"/guardians?user_id=u1", nil, &list))
	require.Len(t, list.Items, 1)
	assert.Equal(t, "Asha", list.Items[0]["name"])

	var errResp ErrorResponse
	assert.Equal(t, http.StatusBadRequest, doJSON(t, http.MethodGet, ts.URL+"/guardians", nil, &errResp))
}

func TestIncidents(t *testing.T) {
	_, ts := newTestServer(t, testConfig())

	for _, kind := range []string{"harassment", "stalking", "unsafe_area"} {
		var created map[string]string
		status := doJSON(t, http.MethodPost, ts.URL+"/incidents",
			map[string]any{"user_id": "u1", "type": kind}, &created)
		require.Equal(t, http.StatusOK, status)
		require.NotEmpty(t, created["incident_id"])
	}
	var other map[string]string
	require.Equal(t, http.StatusOK, doJSON(t, http.MethodPost, ts.URL+"/incidents",
		map[string]any{"user_id": "u2", "type": "other"}, &other))

	var list ItemsResponse
	require.Equal(t, http.StatusOK, doJSON(t, http.MethodGet, ts.URL+"/incidents?limit=2", nil, &list))
	require.Len(t, list.Items, 2)
	assert.Equal(t, "other", list.Items[0]["type"])

	var mine ItemsResponse
	require.Equal(t, http.StatusOK, doJSON(t, http.MethodGet, ts.URL+"/incidents?user_id=u1", nil, &mine))
	require.Len(t, mine.Items, 3)
	assert.Equal(t, "unsafe_area", mine.Items[0]["type"])
	assert.Equal(t, []any{}, mine.Items[0]["media_urls"])

	var errResp ErrorResponse
	status := doJSON(t, http.MethodPost, ts.URL+"/incidents",
		map[string]any{"user_id": "u1", "type": "x", "media_urls": []string{"not a url"}}, &errResp)
	assert.Equal(t, http.StatusBadRequest, status)
}

func TestNearbyAlerts(t *testing.T) {
	_, ts := newTestServer(t, testConfig())

	var alerts AlertsResponse
	require.Equal(t, http.StatusOK, doJSON(t, http.MethodGet, ts.URL+"/alerts/nearby?lat=12.97&lng=77.59", nil, &alerts))
	require.Len(t, alerts.Items, 2)

	var errResp ErrorResponse
	for _, query := range []string{"", "?lat=12", "?lat=abc&lng=1", "?lat=NaN&lng=1", "?lat=95&lng=1"} {
		status := doJSON(t, http.MethodGet, ts.URL+"/alerts/nearby"+query, nil, &errResp)
		assert.Equal(t, http.StatusBadRequest, status, query)
	}
}

func TestTrackSocket_LastThenTrack(t *testing.T) {
	srv, ts := newTestServer(t, testConfig())

	var created map[string]string
	require.Equal(t, http.StatusOK, doJSON(t, http.MethodPost, ts.URL+"/location/update",
		map[string]any{"user_id": "u1", "lat": 1.5, "lng": 2.5}, &created))

	conn := dialTrack(t, ts, "u1", "")
	first := readMessage(t, conn)
	assert.Equal(t, live.MessageLast, first.Type)
	assert.Equal(t, created["trackpoint_id"], first.Data.(map[string]any)["_id"])
	require.Eventually(t, func() bool { return srv.Registry.Count("u1") == 1 }, 2*time.Second, 10*time.Millisecond)

	require.Equal(t, http.StatusOK, doJSON(t, http.MethodPost, ts.URL+"/location/update",
		map[string]any{"user_id": "u1", "lat": 1.6, "lng": 2.6}, &created))
	next := readMessage(t, conn)
	assert.Equal(t, live.MessageTrack, next.Type)
	data := next.Data.(map[string]any)
	assert.Equal(t, created["trackpoint_id"], data["_id"])
	assert.Equal(t, 1.6, data["lat"])
}

func TestTrackSocket_NoHistoryReceivesOnlyTracks(t *testing.T) {
	srv, ts := newTestServer(t, testConfig())

	conn := dialTrack(t, ts, "u2", "")
	require.Eventually(t, func() bool { return srv.Registry.Count("u2") == 1 }, 2*time.Second, 10*time.Millisecond)

	require.Equal(t, http.StatusOK, doJSON(t, http.MethodPost, ts.URL+"/location/update",
		map[string]any{"user_id": "u1", "lat": 5, "lng": 5}, nil))
	require.Equal(t, http.StatusOK, doJSON(t, http.MethodPost, ts.URL+"/location/update",
		map[string]any{"user_id": "u2", "lat": 7, "lng": 8}, nil))

	msg := readMessage(t, conn)
	assert.Equal(t, live.MessageTrack, msg.Type)
	assert.Equal(t, "u2", msg.Data.(map[string]any)["user_id"])
}

func TestTrackSocket_DisconnectPrunesRegistry(t *testing.T) {
	srv, ts := newTestServer(t, testConfig())

	conn := dialTrack(t, ts, "u1", "")
	require.Eventually(t, func() bool { return srv.Registry.Count("u1") == 1 }, 2*time.Second, 10*time.Millisecond)

	require.NoError(t, conn.Close())
	require.Eventually(t, func() bool { return srv.Registry.Users() == 0 }, 2*time.Second, 10*time.Millisecond)

	// Updates after the viewer left still succeed.
	require.Equal(t, http.StatusOK, doJSON(t, http.MethodPost, ts.URL+"/location/update",
		map[string]any{"user_id": "u1", "lat": 1, "lng": 1}, nil))
}

func TestTrackSocket_RequiresTokenWhenConfigured(t *testing.T) {
	cfg := testConfig()
	cfg.LiveRequireToken = true
	srv, ts := newTestServer(t, cfg)

	denied := dialTrack(t, ts, "u1", "")
	require.NoError(t, denied.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, _, err := denied.ReadMessage()
	require.Error(t, err)
	assert.True(t, websocket.IsCloseError(err, websocket.ClosePolicyViolation), "got %v", err)
	assert.Zero(t, srv.Registry.Count("u1"))

	var session services.Session
	require.Equal(t, http.StatusOK, doJSON(t, http.MethodPost, ts.URL+"/auth/mock-login",
		map[string]any{"provider": "apple"}, &session))
	dialTrack(t, ts, "u1", "?token="+session.AccessToken)
	require.Eventually(t, func() bool { return srv.Registry.Count("u1") == 1 }, 2*time.Second, 10*time.Millisecond)
}

func TestTrackSocket_ViewerCap(t *testing.T) {
	cfg := testConfig()
	cfg.LiveMaxViewers = 1
	srv, ts := newTestServer(t, cfg)

	dialTrack(t, ts, "u1", "")
	require.Eventually(t, func() bool { return srv.Registry.Count("u1") == 1 }, 2*time.Second, 10*time.Millisecond)

	second := dialTrack(t, ts, "u1", "")
	require.NoError(t, second.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, _, err := second.ReadMessage()
	assert.True(t, websocket.IsCloseError(err, websocket.CloseTryAgainLater), "got %v", err)
	assert.Equal(t, 1, srv.Registry.Count("u1"))
}

func TestLocation_AcceptsNaiveClientTimestamp(t *testing.T) {
	_, ts := newTestServer(t, testConfig())

	var created map[string]string
	status := doJSON(t, http.MethodPost, ts.URL+"/location/update",
		map[string]any{"user_id": "u1", "lat": 1, "lng": 2, "ts": "2026-03-01T08:30:00"}, &created)
	require.Equal(t, http.StatusOK, status)

	var last struct {
		Latest map[string]any `json:"latest"`
	}
	require.Equal(t, http.StatusOK, doJSON(t, http.MethodGet, ts.URL+"/location/last?user_id=u1", nil, &last))
	assert.Equal(t, "2026-03-01T08:30:00Z", last.Latest["ts"])

	var errResp ErrorResponse
	status = doJSON(t, http.MethodPost, ts.URL+"/location/update",
		map[string]any{"user_id": "u1", "lat": 1, "lng": 2, "ts": "yesterday"}, &errResp)
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "Invalid payload", errResp.Message)
}
