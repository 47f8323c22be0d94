package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/pastebin/pastebin/internal/snippet"
	"github.com/pastebin/pastebin/internal/snippet/service"
	"github.com/stretchr/testify/require"
)

func init() { gin.SetMode(gin.TestMode) }

type failingService struct{ err error }

func (f failingService) Create(context.Context, *snippet.CreateInput) (*snippet.View, error) {
	return nil, f.err
}
func (f failingService) GetByID(context.Context, string) (*snippet.View, error) { return nil, f.err }
func (f failingService) GetRecent(context.Context, int) ([]*snippet.View, error) {
	return nil, f.err
}

func newRouter(svc service.Service) *gin.Engine {
	g := gin.New()
	RegisterSnippetRoutes(g, svc, Options{RecentCount: 2, RecentMax: 3})
	return g
}

func do(g *gin.Engine, method, path, body string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	g.ServeHTTP(w, req)
	return w
}

func TestSnippetHandler_CreateAndGet(t *testing.T) {
	g := newRouter(service.NewMemoryService())

	w := do(g, http.MethodPost, "/api/snippets", `{"title":"hello","language":"go","content":"package main","expiresInMin":60}`)
	require.Equal(t, http.StatusCreated, w.Code)
	var created snippet.View
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))
	require.NotEmpty(t, created.ID)
	require.Equal(t, "/api/snippets/"+created.ID, w.Header().Get("Location"))
	require.Equal(t, created.CreatedAt.Add(time.Hour), *created.ExpiresAt)

	w = do(g, http.MethodGet, "/api/snippets/"+created.ID, "")
	require.Equal(t, http.StatusOK, w.Code)
	var got snippet.View
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	require.Equal(t, created, got)
}

func TestSnippetHandler_EmptyContentAccepted(t *testing.T) {
	g := newRouter(service.NewMemoryService())
	w := do(g, http.MethodPost, "/api/snippets", `{"content":""}`)
	require.Equal(t, http.StatusCreated, w.Code)
}

func TestSnippetHandler_Validation(t *testing.T) {
	g := newRouter(service.NewMemoryService())
	cases := map[string]string{
		"missing content":   `{"title":"x"}`,
		"title too long":    fmt.Sprintf(`{"title":%q,"content":"x"}`, strings.Repeat("t", 51)),
		"language too long": `{"language":"abcdefghijk","content":"x"}`,
		"content too long":  fmt.Sprintf(`{"content":%q}`, strings.Repeat("c", 5001)),
		"negative ttl":      `{"content":"x","expiresInMin":-1}`,
		"ttl too large":     `{"content":"x","expiresInMin":1441}`,
		"malformed json":    `{"content":`,
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			w := do(g, http.MethodPost, "/api/snippets", body)
			require.Equal(t, http.StatusBadRequest, w.Code, w.Body.String())
		})
	}
}

func TestSnippetHandler_NotFound(t *testing.T) {
	g := newRouter(service.NewMemoryService())
	w := do(g, http.MethodGet, "/api/snippets/does-not-exist", "")
	require.Equal(t, http.StatusNotFound, w.Code)
}

func TestSnippetHandler_ExpiredIsNotFound(t *testing.T) {
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	g := newRouter(service.NewMemoryService(service.WithClock(func() time.Time { return now })))

	w := do(g, http.MethodPost, "/api/snippets", `{"content":"bye","expiresInMin":1}`)
	require.Equal(t, http.StatusCreated, w.Code)
	var created snippet.View
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))

	now = now.Add(2 * time.Minute)
	w = do(g, http.MethodGet, "/api/snippets/"+created.ID, "")
	require.Equal(t, http.StatusNotFound, w.Code)
}

func TestSnippetHandler_Recent(t *testing.T) {
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	g := newRouter(service.NewMemoryService(service.WithClock(func() time.Time { return now })))

	for i := 0; i < 4; i++ {
		w := do(g, http.MethodPost, "/api/snippets", fmt.Sprintf(`{"content":"public %d"}`, i))
		require.Equal(t, http.StatusCreated, w.Code)
		now = now.Add(time.Minute)
	}
	w := do(g, http.MethodPost, "/api/snippets", `{"content":"secret","isPrivate":true}`)
	require.Equal(t, http.StatusCreated, w.Code)

	var list []snippet.View
	w = do(g, http.MethodGet, "/api/snippets", "")
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &list))
	require.Len(t, list, 2, "default count")
	require.Equal(t, "public 3", list[0].Content)
	require.Equal(t, "public 2", list[1].Content)

	w = do(g, http.MethodGet, "/api/snippets?count=50", "")
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &list))
	require.Len(t, list, 3, "capped at max")
	for _, v := range list {
		require.False(t, v.IsPrivate)
	}

	w = do(g, http.MethodGet, "/api/snippets?count=0", "")
	require.Equal(t, http.StatusOK, w.Code)
	require.JSONEq(t, `[]`, w.Body.String())

	w = do(g, http.MethodGet, "/api/snippets?count=many", "")
	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestSnippetHandler_StorageUnavailable(t *testing.T) {
	down := fmt.Errorf("%w: connection refused", snippet.ErrStorageUnavailable)
	g := newRouter(failingService{err: down})

	require.Equal(t, http.StatusServiceUnavailable, do(g, http.MethodPost, "/api/snippets", `{"content":"x"}`).Code)
	require.Equal(t, http.StatusServiceUnavailable, do(g, http.MethodGet, "/api/snippets/abc", "").Code)
	require.Equal(t, http.StatusServiceUnavailable, do(g, http.MethodGet, "/api/snippets", "").Code)
}

func TestSnippetHandler_UnexpectedError(t *testing.T) {
	g := newRouter(failingService{err: snippet.ErrConflict})
	require.Equal(t, http.StatusInternalServerError, do(g, http.MethodPost, "/api/snippets", `{"content":"x"}`).Code)
}
