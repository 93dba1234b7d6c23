package internal

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tbrandt/sked/internal/models"
	"github.com/tbrandt/sked/internal/repos/event/inmem"
)

type testResponse struct {
	OK      bool            `json:"ok"`
	Data    json.RawMessage `json:"data"`
	Error   string          `json:"error"`
	Message string          `json:"errorMessage"`
}

func makeTestServer() *httptest.Server {
	svc := NewEventService(inmem.New(), testLogger())
	return httptest.NewServer(MakeHTTPHandler(svc, testLogger()))
}

func doJSON(t *testing.T, method, url string, body interface{}) (int, testResponse) {
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req, err := http.NewRequest(method, url, &buf)
	require.NoError(t, err)
	res, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer res.Body.Close()
	var ret testResponse
	require.NoError(t, json.NewDecoder(res.Body).Decode(&ret))
	return res.StatusCode, ret
}

func createPayload() map[string]interface{} {
	return map[string]interface{}{
		"title":        "Team Standup",
		"agenda":       "Daily sync",
		"date":         "2019-07-01",
		"time":         "09:00",
		"coordinator":  "alice@example.com",
		"participants": []string{"Bob", "Carol"},
	}
}

func TestRESTEventLifecycle(t *testing.T) {
	srv := makeTestServer()
	defer srv.Close()

	// Create
	status, resp := doJSON(t, http.MethodPost, srv.URL+"/api/events", createPayload())
	require.Equal(t, http.StatusOK, status)
	require.True(t, resp.OK)
	var created models.Event
	require.NoError(t, json.Unmarshal(resp.Data, &created))
	assert.NotEmpty(t, created.ID)
	assert.Equal(t, models.ImportanceMedium, created.Importance)
	assert.Len(t, created.Participants, 2)

	// Get
	status, resp = doJSON(t, http.MethodGet, srv.URL+"/api/events/"+created.ID, nil)
	require.Equal(t, http.StatusOK, status)
	var got models.Event
	require.NoError(t, json.Unmarshal(resp.Data, &got))
	assert.Equal(t, "Team Standup", got.Title)

	// Update a single field
	status, resp = doJSON(t, http.MethodPut, srv.URL+"/api/events/"+created.ID,
		map[string]string{"importance": "high"})
	require.Equal(t, http.StatusOK, status)
	var updated models.Event
	require.NoError(t, json.Unmarshal(resp.Data, &updated))
	assert.Equal(t, models.ImportanceHigh, updated.Importance)
	assert.Equal(t, "Team Standup", updated.Title)

	// Delete
	status, resp = doJSON(t, http.MethodDelete, srv.URL+"/api/events/"+created.ID, nil)
	require.Equal(t, http.StatusOK, status)
	assert.True(t, resp.OK)

	// The event is gone now
	status, resp = doJSON(t, http.MethodGet, srv.URL+"/api/events/"+created.ID, nil)
	assert.Equal(t, http.StatusNotFound, status)
	assert.False(t, resp.OK)
	assert.Equal(t, ErrCodeEventNotFound, resp.Error)
}

func TestRESTList(t *testing.T) {
	srv := makeTestServer()
	defer srv.Close()

	payload := createPayload()
	status, _ := doJSON(t, http.MethodPost, srv.URL+"/api/events", payload)
	require.Equal(t, http.StatusOK, status)
	payload["title"] = "Budget Meeting"
	payload["coordinator"] = "bob@example.com"
	status, _ = doJSON(t, http.MethodPost, srv.URL+"/api/events", payload)
	require.Equal(t, http.StatusOK, status)

	var listing struct {
		Rows uint           `json:"rows"`
		List []models.Event `json:"list"`
	}

	status, resp := doJSON(t, http.MethodGet, srv.URL+"/api/events", nil)
	require.Equal(t, http.StatusOK, status)
	require.NoError(t, json.Unmarshal(resp.Data, &listing))
	assert.Equal(t, uint(2), listing.Rows)
	assert.Len(t, listing.List, 2)

	status, resp = doJSON(t, http.MethodGet, srv.URL+"/api/events?q=Budget", nil)
	require.Equal(t, http.StatusOK, status)
	require.NoError(t, json.Unmarshal(resp.Data, &listing))
	assert.Equal(t, uint(1), listing.Rows)

	status, resp = doJSON(t, http.MethodGet, srv.URL+"/api/events?coordinator=bob@example.com", nil)
	require.Equal(t, http.StatusOK, status)
	require.NoError(t, json.Unmarshal(resp.Data, &listing))
	assert.Equal(t, uint(1), listing.Rows)
	require.Len(t, listing.List, 1)
	assert.Equal(t, "Budget Meeting", listing.List[0].Title)
}

func TestRESTValidationErrors(t *testing.T) {
	srv := makeTestServer()
	defer srv.Close()

	// Missing required field
	payload := createPayload()
	delete(payload, "title")
	status, resp := doJSON(t, http.MethodPost, srv.URL+"/api/events", payload)
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, ErrCodeRequiredFieldMissing, resp.Error)

	// Illegal enumeration value
	payload = createPayload()
	payload["importance"] = "critical"
	status, resp = doJSON(t, http.MethodPost, srv.URL+"/api/events", payload)
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, ErrCodeIllegalValue, resp.Error)

	// Broken JSON body
	req, err := http.NewRequest(http.MethodPost, srv.URL+"/api/events", bytes.NewBufferString("{not json"))
	require.NoError(t, err)
	res, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer res.Body.Close()
	var ret testResponse
	require.NoError(t, json.NewDecoder(res.Body).Decode(&ret))
	assert.Equal(t, http.StatusBadRequest, res.StatusCode)
	assert.Equal(t, ErrCodeIllegalJSON, ret.Error)

	// Inverted search range
	status, resp = doJSON(t, http.MethodGet, srv.URL+"/api/events?from=2019-08-01&to=2019-07-01", nil)
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, ErrCodeIllegalValue, resp.Error)
}

func TestRESTHealth(t *testing.T) {
	srv := makeTestServer()
	defer srv.Close()

	res, err := http.Get(srv.URL + "/api/health")
	require.NoError(t, err)
	defer res.Body.Close()
	require.Equal(t, http.StatusOK, res.StatusCode)
	var hs HealthStatus
	require.NoError(t, json.NewDecoder(res.Body).Decode(&hs))
	assert.Equal(t, StatusHealthy, hs.Status)
	assert.Equal(t, "connected", hs.Database)
}

func TestRESTHealthDegraded(t *testing.T) {
	repo := &failingRepo{EventRepo: inmem.New(), pingErr: assert.AnError}
	svc := NewEventService(repo, testLogger())
	srv := httptest.NewServer(MakeHTTPHandler(svc, testLogger()))
	defer srv.Close()

	status, resp := doJSON(t, http.MethodGet, srv.URL+"/api/health", nil)
	assert.Equal(t, http.StatusServiceUnavailable, status)
	assert.False(t, resp.OK)
	assert.Equal(t, ErrCodeStoreUnreachable, resp.Error)
}

func TestRESTAlive(t *testing.T) {
	srv := makeTestServer()
	defer srv.Close()

	res, err := http.Get(srv.URL + "/alive")
	require.NoError(t, err)
	defer res.Body.Close()
	require.Equal(t, http.StatusOK, res.StatusCode)
	var body map[string]bool
	require.NoError(t, json.NewDecoder(res.Body).Decode(&body))
	assert.True(t, body["ok"])
}
