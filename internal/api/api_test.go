package api_test

import (
	"bytes"
	"context"
	"encoding/json"
	"image/png"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mcoot/partycoord/internal/api/apierr"
	"github.com/mcoot/partycoord/internal/api/response"
	"github.com/mcoot/partycoord/internal/factory"
	"github.com/mcoot/partycoord/internal/model"
	"github.com/mcoot/partycoord/internal/testutil"
)

// testServer wraps a TestApp with request helpers
type testServer struct {
	app *factory.TestApp
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	app := factory.NewTestAppWithConfig(factory.Config{
		PublicURL:      "https://party.example",
		AllowedOrigins: []string{"https://party.example"},
	})
	app.Start(t.Context())
	t.Cleanup(func() { require.NoError(t, app.Stop(context.Background())) })

	return &testServer{app: app}
}

func (ts *testServer) request(method, path string, header http.Header) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	for k, v := range header {
		req.Header[k] = v
	}

	rr := httptest.NewRecorder()
	ts.app.Handler.ServeHTTP(rr, req)
	return rr
}

// createParty creates a party through the gateway and waits until the directory has it
func (ts *testServer) createParty(t *testing.T, code, host string) *testutil.RecordingPeer {
	t.Helper()

	ts.app.MockRandom.QueueString(code)
	peer := testutil.NewRecordingPeer("conn-" + code)
	frame := `{"event":"create_party","data":{"name":"` + host + `","adminPassword":"admin123"}}`
	ts.app.Gateway.HandleFrame(t.Context(), peer, []byte(frame))
	require.Equal(t, []model.EventType{model.EventPartyJoined, model.EventPartyPlayerUpdate}, peer.Types())

	require.Eventually(t, func() bool {
		_, err := ts.app.Storage.GetParty(t.Context(), model.PartyCode(code))
		return err == nil
	}, 2*time.Second, 10*time.Millisecond)
	return peer
}

func decodeError(t *testing.T, rr *httptest.ResponseRecorder) apierr.APIError {
	t.Helper()
	var resp apierr.ErrorResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	return resp.Error
}

func TestHealthCheck(t *testing.T) {
	ts := newTestServer(t)
	ts.createParty(t, "ABC123", "Alice")

	rr := ts.request(http.MethodGet, "/api/v1/health", nil)
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "application/json", rr.Header().Get("Content-Type"))

	var resp response.HealthResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	assert.Equal(t, response.HealthResponse{Status: "ok", Parties: 1, Connections: 1}, resp)
}

func TestListParties(t *testing.T) {
	ts := newTestServer(t)

	rr := ts.request(http.MethodGet, "/api/v1/parties", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"parties":[]}`, rr.Body.String())

	ts.createParty(t, "ABC123", "Alice")
	ts.createParty(t, "XYZ789", "Carol")

	rr = ts.request(http.MethodGet, "/api/v1/parties", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.NotContains(t, rr.Body.String(), "ABC123", "listings never reveal codes")

	var resp response.PartyList
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	require.Len(t, resp.Parties, 2)
	hosts := []string{resp.Parties[0].HostName, resp.Parties[1].HostName}
	assert.ElementsMatch(t, []string{"Alice", "Carol"}, hosts)
	assert.Equal(t, 1, resp.Parties[0].PlayerCount)
	assert.Equal(t, model.DefaultMaxPlayers, resp.Parties[0].MaxPlayers)
}

func TestListPartiesHidesStartedParties(t *testing.T) {
	ts := newTestServer(t)
	alice := ts.createParty(t, "ABC123", "Alice")
	bob := testutil.NewRecordingPeer("conn-bob")
	ts.app.Gateway.HandleFrame(t.Context(), bob, []byte(`{"event":"join_party","data":{"partyCode":"ABC123","name":"Bob"}}`))
	ts.app.Gateway.HandleFrame(t.Context(), alice, []byte(`{"event":"start_game"}`))
	require.Equal(t, model.EventPartyStarted, bob.Last().Type)

	require.Eventually(t, func() bool {
		summary, err := ts.app.Storage.GetParty(t.Context(), "ABC123")
		return err == nil && summary.State == model.PartyStateInProgress
	}, 2*time.Second, 10*time.Millisecond)

	rr := ts.request(http.MethodGet, "/api/v1/parties", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"parties":[]}`, rr.Body.String())

	rr = ts.request(http.MethodGet, "/api/v1/parties/ABC123", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	var party response.Party
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &party))
	assert.Equal(t, "in_progress", party.State)
	assert.False(t, party.Joinable)
}

func TestGetParty(t *testing.T) {
	ts := newTestServer(t)
	ts.createParty(t, "ABC123", "Alice")

	rr := ts.request(http.MethodGet, "/api/v1/parties/abc123", nil)
	require.Equal(t, http.StatusOK, rr.Code)

	var party response.Party
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &party))
	assert.Equal(t, "ABC123", party.Code)
	assert.Equal(t, "Alice", party.HostName)
	assert.Equal(t, 1, party.PlayerCount)
	assert.Equal(t, "forming", party.State)
	assert.True(t, party.Joinable)
}

func TestGetPartyNotFound(t *testing.T) {
	ts := newTestServer(t)

	for _, path := range []string{"/api/v1/parties/WRONG1", "/api/v1/parties/bad-code"} {
		rr := ts.request(http.MethodGet, path, nil)
		assert.Equal(t, http.StatusNotFound, rr.Code, path)
		assert.Equal(t, apierr.CodePartyNotFound, decodeError(t, rr).Code, path)
	}
}

func TestPartyQRCode(t *testing.T) {
	ts := newTestServer(t)
	ts.createParty(t, "ABC123", "Alice")

	rr := ts.request(http.MethodGet, "/api/v1/parties/ABC123/qr.png", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "image/png", rr.Header().Get("Content-Type"))

	img, err := png.Decode(bytes.NewReader(rr.Body.Bytes()))
	require.NoError(t, err)
	assert.Equal(t, 256, img.Bounds().Dx())

	rr = ts.request(http.MethodGet, "/api/v1/parties/NOPE00/qr.png", nil)
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestPartyLeavesDirectoryWhenClosed(t *testing.T) {
	ts := newTestServer(t)
	alice := ts.createParty(t, "ABC123", "Alice")

	ts.app.Gateway.Disconnect(t.Context(), alice)

	require.Eventually(t, func() bool {
		return ts.request(http.MethodGet, "/api/v1/parties/ABC123", nil).Code == http.StatusNotFound
	}, 2*time.Second, 10*time.Millisecond)
}

func TestCORS(t *testing.T) {
	ts := newTestServer(t)

	rr := ts.request(http.MethodOptions, "/api/v1/parties", http.Header{
		"Origin":                        []string{"https://party.example"},
		"Access-Control-Request-Method": []string{http.MethodGet},
	})
	assert.Equal(t, http.StatusNoContent, rr.Code)
	assert.Equal(t, "https://party.example", rr.Header().Get("Access-Control-Allow-Origin"))

	rr = ts.request(http.MethodGet, "/api/v1/health", http.Header{"Origin": []string{"https://evil.example"}})
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Empty(t, rr.Header().Get("Access-Control-Allow-Origin"))
}

func TestUnknownRoute(t *testing.T) {
	ts := newTestServer(t)

	rr := ts.request(http.MethodGet, "/api/v1/lobbies", nil)
	assert.Equal(t, http.StatusNotFound, rr.Code)
}
