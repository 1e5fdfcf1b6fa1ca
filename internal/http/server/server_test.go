package server

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"shippinglabel/internal/config"
	"shippinglabel/internal/label"
	"shippinglabel/internal/render"
	"shippinglabel/internal/tokens"
)

type fakeRasterizer struct{ html string }

func (f *fakeRasterizer) Rasterize(ctx context.Context, html string) ([]byte, error) {
	f.html = html
	return []byte("%PDF-1.7 " + html), nil
}

func minimalConfig(t *testing.T) (config.Config, string) {
	t.Helper()
	dir := t.TempDir()
	tmpl := `<html><body><h1>{{title}}</h1><p>{{name}} {{order}}</p><img src="{{logoSrc}}"></body></html>`
	require.NoError(t, os.WriteFile(filepath.Join(dir, label.TemplateFile), []byte(tmpl), 0o644))

	cfg := config.Default()
	cfg.Assets.Path = dir
	cfg.PDF.TimeoutSecs = 1
	cfg.RateLimiter.Interval = time.Hour
	return cfg, dir
}

func newTestApp(t *testing.T, mutate func(*Deps)) (*Deps, *fakeRasterizer) {
	t.Helper()
	cfg, dir := minimalConfig(t)
	ras := &fakeRasterizer{}
	deps := &Deps{
		Config: cfg,
		Labels: label.NewService(render.NewRenderer(), ras, dir),
	}
	if mutate != nil {
		mutate(deps)
	}
	return deps, ras
}

func do(t *testing.T, deps *Deps, method, path, body string, header map[string]string) *http.Response {
	t.Helper()
	app := New(*deps)
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req, _ := http.NewRequest(method, path, r)
	req.Header.Set("Content-Type", "application/json")
	for k, v := range header {
		req.Header.Set(k, v)
	}
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	return resp
}

func TestNew_RoutesAndJSON404(t *testing.T) {
	deps, _ := newTestApp(t, nil)

	respStats := do(t, deps, http.MethodGet, "/v1/chrome/stats", "", nil)
	if respStats.StatusCode != http.StatusOK {
		t.Fatalf("expected /v1/chrome/stats 200, got %d", respStats.StatusCode)
	}

	resp404 := do(t, deps, http.MethodGet, "/does-not-exist", "", nil)
	if resp404.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", resp404.StatusCode)
	}
	if got := resp404.Header.Get("Content-Type"); !strings.Contains(got, "application/json") {
		t.Fatalf("expected JSON error response content type, got %q", got)
	}
}

func TestNew_GenerateLabelEndToEnd(t *testing.T) {
	deps, ras := newTestApp(t, nil)

	for _, path := range []string{"/get-label", "/get-label/"} {
		resp := do(t, deps, http.MethodPost, path, `{"name":"Jane","order":"ORD-9","language":"nl"}`, nil)
		require.Equal(t, http.StatusOK, resp.StatusCode, path)
		assert.Equal(t, "application/pdf", resp.Header.Get("Content-Type"))
		assert.Equal(t, "attachment; filename=shipping-label.pdf", resp.Header.Get("Content-Disposition"))
		assert.NotEmpty(t, resp.Header.Get("X-Request-Id"))
	}
	assert.Contains(t, ras.html, "Jane ORD-9")
	assert.Contains(t, ras.html, "data:image/png;base64,")
}

func TestNew_MissingTemplateIs500(t *testing.T) {
	deps, _ := newTestApp(t, nil)
	require.NoError(t, os.Remove(filepath.Join(deps.Config.Assets.Path, label.TemplateFile)))

	resp := do(t, deps, http.MethodPost, "/get-label", `{"name":"Jane"}`, nil)
	require.Equal(t, http.StatusInternalServerError, resp.StatusCode)

	var body map[string]string
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "Failed to generate shipping label", body["error"])
	assert.True(t, strings.HasPrefix(body["message"], "failed to render template: "), body["message"])
}

func TestNew_PreviewAndStaticAssets(t *testing.T) {
	deps, _ := newTestApp(t, nil)

	resp := do(t, deps, http.MethodPost, "/get-label/preview", `{"name":"Jane"}`, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	html, _ := io.ReadAll(resp.Body)
	assert.Contains(t, string(html), "Jane")

	resp = do(t, deps, http.MethodGet, "/assets/"+label.TemplateFile, "", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	deps.Config.Assets.ServeStatic = false
	resp = do(t, deps, http.MethodGet, "/assets/"+label.TemplateFile, "", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestNew_HealthEndpoints(t *testing.T) {
	deps, _ := newTestApp(t, nil)

	for path, want := range map[string]string{
		"/health":           "UP",
		"/health/liveness":  "UP",
		"/health/readiness": "READY",
	} {
		resp := do(t, deps, http.MethodGet, path, "", nil)
		require.Equal(t, http.StatusOK, resp.StatusCode, path)
		var body map[string]any
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
		assert.Equal(t, want, body["status"], path)
	}
}

func TestNew_AuthEnabled(t *testing.T) {
	cache := tokens.NewCache()
	deps, _ := newTestApp(t, func(d *Deps) {
		d.Config.Auth.Enabled = true
		d.Tokens = cache
	})

	resp := do(t, deps, http.MethodGet, "/health/readiness", "", nil)
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode, "token store not loaded yet")

	cache.Replace(map[string]tokens.Entry{"secret": {RateLimit: 10}})

	resp = do(t, deps, http.MethodGet, "/health/readiness", "", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp = do(t, deps, http.MethodPost, "/get-label", `{}`, map[string]string{"X-API-Key": "wrong"})
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp = do(t, deps, http.MethodPost, "/get-label", `{}`, map[string]string{"X-API-Key": "secret"})
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}
