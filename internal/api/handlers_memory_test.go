package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ryos-web/ryos-memory/internal/kv"
	"github.com/ryos-web/ryos-memory/internal/model"
	"github.com/ryos-web/ryos-memory/internal/services"
	"github.com/ryos-web/ryos-memory/internal/store/redisstore"
)

// newTestServer wires the real service and redis store onto miniredis so
// handler tests exercise the full request path.
func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	mr := miniredis.RunT(t)
	c := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = c.Close() })

	svc := services.NewMemoryService(redisstore.New(kv.NewRedisWithClient(c)), zerolog.Nop(), 7)
	srv := httptest.NewServer(NewRouter(svc, func() bool { return true }, zerolog.Nop()))
	t.Cleanup(srv.Close)
	return srv
}

func postJSON(t *testing.T, url string, payload any) (*http.Response, []byte) {
	t.Helper()
	body, err := json.Marshal(payload)
	require.NoError(t, err)
	resp, err := http.Post(url, "application/json", bytes.NewReader(body))
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()
	var buf bytes.Buffer
	_, err = buf.ReadFrom(resp.Body)
	require.NoError(t, err)
	return resp, buf.Bytes()
}

func do(t *testing.T, method, url string, payload any) (*http.Response, []byte) {
	t.Helper()
	var reader *bytes.Reader
	if payload != nil {
		body, err := json.Marshal(payload)
		require.NoError(t, err)
		reader = bytes.NewReader(body)
	} else {
		reader = bytes.NewReader(nil)
	}
	req, err := http.NewRequest(method, url, reader)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()
	var buf bytes.Buffer
	_, err = buf.ReadFrom(resp.Body)
	require.NoError(t, err)
	return resp, buf.Bytes()
}

func decodeResult(t *testing.T, body []byte) model.OpResult {
	t.Helper()
	var res model.OpResult
	require.NoError(t, json.Unmarshal(body, &res), string(body))
	return res
}

func TestUpsert_AddThenDuplicate(t *testing.T) {
	srv := newTestServer(t)
	url := srv.URL + "/api/users/alice/memories"

	resp, body := postJSON(t, url, map[string]string{
		"key": "Music_Pref ", "summary": "Loves jazz", "content": "Coltrane.",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	res := decodeResult(t, body)
	require.True(t, res.Success, res.Message)
	assert.Equal(t, "music_pref", res.Entry.Key)
	assert.Equal(t, model.TypeLongterm, res.Entry.Type)

	resp, body = postJSON(t, url, map[string]string{
		"key": "music_pref", "summary": "x", "content": "y",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	res = decodeResult(t, body)
	assert.False(t, res.Success)
	assert.Contains(t, res.Message, "already exists")
}

func TestUpsert_MergeMode(t *testing.T) {
	srv := newTestServer(t)
	url := srv.URL + "/api/users/alice/memories"

	_, body := postJSON(t, url, map[string]string{"key": "notes", "summary": "s", "content": "A"})
	require.True(t, decodeResult(t, body).Success)

	_, body = postJSON(t, url, map[string]string{"key": "notes", "summary": "s", "content": "B", "mode": "merge"})
	require.True(t, decodeResult(t, body).Success)

	resp, body := do(t, http.MethodGet, url+"/notes", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var det model.MemoryDetail
	require.NoError(t, json.Unmarshal(body, &det))
	assert.Equal(t, "A\n\n---\n\nB", det.Content)
}

func TestUpsert_InvalidJSONIs400(t *testing.T) {
	srv := newTestServer(t)

	resp, err := http.Post(srv.URL+"/api/users/alice/memories", "application/json",
		bytes.NewReader([]byte("{nope")))
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestGetIndex_ActiveVsRaw(t *testing.T) {
	srv := newTestServer(t)
	url := srv.URL + "/api/users/bob/memories"

	past := time.Now().Add(-time.Hour).Format(time.RFC3339)
	_, body := postJSON(t, url, map[string]string{
		"key": "context", "summary": "stale", "content": "c", "expiresAt": past,
	})
	require.True(t, decodeResult(t, body).Success)
	_, body = postJSON(t, url, map[string]string{"key": "name", "summary": "Bob", "content": "c"})
	require.True(t, decodeResult(t, body).Success)

	var listing struct {
		Memories []model.MemoryEntry `json:"memories"`
		Count    int                 `json:"count"`
		Version  int                 `json:"version"`
	}

	resp, body := do(t, http.MethodGet, url, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.NoError(t, json.Unmarshal(body, &listing))
	assert.Equal(t, 1, listing.Count)
	assert.Equal(t, "name", listing.Memories[0].Key)

	resp, body = do(t, http.MethodGet, url+"?view=raw", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.NoError(t, json.Unmarshal(body, &listing))
	assert.Equal(t, 2, listing.Count)
}

func TestGetIndex_UnknownUserIs404(t *testing.T) {
	srv := newTestServer(t)

	resp, _ := do(t, http.MethodGet, srv.URL+"/api/users/ghost/memories", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestListKeys_IncludesExpired(t *testing.T) {
	srv := newTestServer(t)
	url := srv.URL + "/api/users/bob/memories"

	past := time.Now().Add(-time.Hour).Format(time.RFC3339)
	_, body := postJSON(t, url, map[string]string{"key": "context", "summary": "s", "content": "c", "expiresAt": past})
	require.True(t, decodeResult(t, body).Success)

	resp, body := do(t, http.MethodGet, url+"/keys", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var keys struct {
		Keys  []string `json:"keys"`
		Count int      `json:"count"`
	}
	require.NoError(t, json.Unmarshal(body, &keys))
	assert.Equal(t, []string{"context"}, keys.Keys)
}

func TestPrompt_TagsShorttermWithTemp(t *testing.T) {
	srv := newTestServer(t)
	url := srv.URL + "/api/users/bob/memories"

	_, body := postJSON(t, url, map[string]string{"key": "current_focus", "summary": "Shipping v2", "content": "c"})
	require.True(t, decodeResult(t, body).Success)
	_, body = postJSON(t, url, map[string]string{"key": "name", "summary": "Bob", "content": "c"})
	require.True(t, decodeResult(t, body).Success)

	resp, body := do(t, http.MethodGet, url+"/prompt", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var out map[string]string
	require.NoError(t, json.Unmarshal(body, &out))
	assert.Contains(t, out["prompt"], "- current_focus [temp]: Shipping v2")
	assert.Contains(t, out["prompt"], "- name: Bob")
}

func TestPrompt_NoActiveMemoriesIs404(t *testing.T) {
	srv := newTestServer(t)

	resp, _ := do(t, http.MethodGet, srv.URL+"/api/users/ghost/memories/prompt", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestGetDetail_Missing404AndBadKey400(t *testing.T) {
	srv := newTestServer(t)
	base := srv.URL + "/api/users/alice/memories"

	resp, _ := do(t, http.MethodGet, base+"/nothing", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp, _ = do(t, http.MethodGet, base+"/9bad", nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestUpdateViaPut(t *testing.T) {
	srv := newTestServer(t)
	base := srv.URL + "/api/users/alice/memories"

	_, body := postJSON(t, base, map[string]string{"key": "work", "summary": "v1", "content": "first"})
	require.True(t, decodeResult(t, body).Success)

	resp, body := do(t, http.MethodPut, base+"/work", map[string]string{"summary": "v2", "content": "second"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	res := decodeResult(t, body)
	require.True(t, res.Success, res.Message)
	assert.Equal(t, "v2", res.Entry.Summary)

	_, body = do(t, http.MethodGet, base+"/work", nil)
	var det model.MemoryDetail
	require.NoError(t, json.Unmarshal(body, &det))
	assert.Equal(t, "second", det.Content)
}

func TestPromoteEndpoint(t *testing.T) {
	srv := newTestServer(t)
	base := srv.URL + "/api/users/bob/memories"

	_, body := postJSON(t, base, map[string]string{"key": "current_focus", "summary": "s", "content": "c"})
	require.True(t, decodeResult(t, body).Success)

	resp, body := do(t, http.MethodPost, base+"/current_focus/promote", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	res := decodeResult(t, body)
	require.True(t, res.Success, res.Message)
	assert.Equal(t, model.TypeLongterm, res.Entry.Type)
	assert.Nil(t, res.Entry.ExpiresAt)
}

func TestDeleteAndClear(t *testing.T) {
	srv := newTestServer(t)
	base := srv.URL + "/api/users/alice/memories"

	for i := 0; i < 3; i++ {
		_, body := postJSON(t, base, map[string]string{
			"key": fmt.Sprintf("fact_%d", i), "summary": "s", "content": "c",
		})
		require.True(t, decodeResult(t, body).Success)
	}

	resp, body := do(t, http.MethodDelete, base+"/fact_0", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.True(t, decodeResult(t, body).Success)

	resp, body = do(t, http.MethodDelete, base, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var cleared map[string]int
	require.NoError(t, json.Unmarshal(body, &cleared))
	assert.Equal(t, 2, cleared["removed"])

	resp, _ = do(t, http.MethodGet, base, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestHealthEndpoint(t *testing.T) {
	mrSrv := newTestServer(t)

	resp, body := do(t, http.MethodGet, mrSrv.URL+"/api/health", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var out map[string]any
	require.NoError(t, json.Unmarshal(body, &out))
	assert.Equal(t, "healthy", out["status"])
}
