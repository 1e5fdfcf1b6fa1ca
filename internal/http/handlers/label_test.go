package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"shippinglabel/internal/domain"
	"shippinglabel/internal/infra/postgres"
	"shippinglabel/internal/label"
)

type stubService struct {
	got     domain.LabelRequest
	pdf     []byte
	html    string
	err     error
	lang    string
	preview int
}

func (s *stubService) Generate(ctx context.Context, req domain.LabelRequest) (label.Result, error) {
	s.got = req
	if s.err != nil {
		return label.Result{}, s.err
	}
	return label.Result{PDF: s.pdf, ResolvedLanguage: s.lang}, nil
}

func (s *stubService) Preview(req domain.LabelRequest) (string, error) {
	s.got = req
	s.preview++
	return s.html, s.err
}

type chanAudit struct {
	entries chan postgres.AuditEntry
	err     error
}

func (a *chanAudit) Record(ctx context.Context, entry postgres.AuditEntry) error {
	a.entries <- entry
	return a.err
}

const labelBody = `{"return_address":{"company":"Acme","address":"Main 1","zip_code":"1234AB","city":"Amsterdam","country":"NL"},"order":"ORD-1","name":"Jane","language":"nl"}`

func labelApp(h *LabelHandler) *fiber.App {
	app := fiber.New()
	app.Post("/get-label", h.GenerateLabel)
	app.Post("/get-label/preview", h.Preview)
	return app
}

func postJSON(path, body string) *http.Request {
	req := httptest.NewRequest("POST", path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	return req
}

func TestGenerateLabel_ReturnsPDFAttachment(t *testing.T) {
	svc := &stubService{pdf: []byte("%PDF-1.4 label"), lang: "nl"}
	app := labelApp(NewLabelHandler(svc, nil))

	resp, err := app.Test(postJSON("/get-label", labelBody))
	require.NoError(t, err)

	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Equal(t, "application/pdf", resp.Header.Get("Content-Type"))
	assert.Equal(t, "attachment; filename=shipping-label.pdf", resp.Header.Get("Content-Disposition"))
	body, _ := io.ReadAll(resp.Body)
	assert.Equal(t, "%PDF-1.4 label", string(body))

	assert.Equal(t, "ORD-1", svc.got.Order)
	assert.Equal(t, "1234AB", svc.got.ReturnAddress.ZipCode)
	assert.Equal(t, "nl", svc.got.Language)
}

func TestGenerateLabel_PipelineFailureIs500JSON(t *testing.T) {
	svc := &stubService{err: &domain.RasterizationError{Stage: domain.StageLaunch, Err: errors.New("no chrome")}}
	app := labelApp(NewLabelHandler(svc, nil))

	resp, err := app.Test(postJSON("/get-label", labelBody))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusInternalServerError, resp.StatusCode)

	var body map[string]string
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "Failed to generate shipping label", body["error"])
	assert.Equal(t, "pdf rasterization failed during launch: no chrome", body["message"])
}

func TestGenerateLabel_MalformedJSONIs400(t *testing.T) {
	svc := &stubService{}
	app := labelApp(NewLabelHandler(svc, nil))

	resp, err := app.Test(postJSON("/get-label", `{"order":`))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)

	var body map[string]string
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.NotEmpty(t, body["error"])
	assert.NotEmpty(t, body["message"])
}

func TestGenerateLabel_EmptyBodyStillGenerates(t *testing.T) {
	svc := &stubService{pdf: []byte("%PDF")}
	app := labelApp(NewLabelHandler(svc, nil))

	resp, err := app.Test(httptest.NewRequest("POST", "/get-label", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Equal(t, domain.LabelRequest{}, svc.got)
}

func TestGenerateLabel_RecordsAudit(t *testing.T) {
	svc := &stubService{pdf: []byte("12345"), lang: "nl"}
	audit := &chanAudit{entries: make(chan postgres.AuditEntry, 1)}
	app := labelApp(NewLabelHandler(svc, audit))

	resp, err := app.Test(postJSON("/get-label", labelBody))
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	select {
	case e := <-audit.entries:
		assert.Equal(t, "ORD-1", e.OrderRef)
		assert.Equal(t, "Jane", e.Name)
		assert.Equal(t, "nl", e.RequestedLanguage)
		assert.Equal(t, "nl", e.ResolvedLanguage)
		assert.Equal(t, 5, e.PDFBytes)
		assert.False(t, e.CreatedAt.IsZero())
	case <-time.After(2 * time.Second):
		t.Fatalf("expected audit entry")
	}
}

func TestGenerateLabel_AuditFailureDoesNotFailRequest(t *testing.T) {
	svc := &stubService{pdf: []byte("%PDF")}
	audit := &chanAudit{entries: make(chan postgres.AuditEntry, 1), err: errors.New("db down")}
	app := labelApp(NewLabelHandler(svc, audit))

	resp, err := app.Test(postJSON("/get-label", labelBody))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	<-audit.entries
}

func TestGenerateLabel_FailureSkipsAudit(t *testing.T) {
	svc := &stubService{err: errors.New("boom")}
	audit := &chanAudit{entries: make(chan postgres.AuditEntry, 1)}
	app := labelApp(NewLabelHandler(svc, audit))

	_, err := app.Test(postJSON("/get-label", labelBody))
	require.NoError(t, err)

	select {
	case <-audit.entries:
		t.Fatalf("audit must not be recorded for failed labels")
	case <-time.After(50 * time.Millisecond):
	}
}

func TestPreview_ReturnsHTML(t *testing.T) {
	svc := &stubService{html: "<html>Jane</html>"}
	app := labelApp(NewLabelHandler(svc, nil))

	resp, err := app.Test(postJSON("/get-label/preview", labelBody))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Contains(t, resp.Header.Get("Content-Type"), "text/html")
	body, _ := io.ReadAll(resp.Body)
	assert.Equal(t, "<html>Jane</html>", string(body))
	assert.Equal(t, 1, svc.preview)
}

func TestPreview_RenderErrorIs500(t *testing.T) {
	svc := &stubService{err: &domain.RenderError{Path: "x", Err: errors.New("missing")}}
	app := labelApp(NewLabelHandler(svc, nil))

	resp, err := app.Test(postJSON("/get-label/preview", labelBody))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusInternalServerError, resp.StatusCode)
}
