package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/jmcallister/catalogue-scraper/internal/catalogue"
	requestsmemory "github.com/jmcallister/catalogue-scraper/internal/requests/memory"
)

type fixedClock struct {
	now time.Time
}

func (c fixedClock) Now() time.Time { return c.now }

type seqIDGen struct {
	mu sync.Mutex
	n  int
}

func (g *seqIDGen) NewID() (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.n++
	return "req-" + string(rune('0'+g.n)), nil
}

type captureNotifier struct {
	mu     sync.Mutex
	events []catalogue.ChangeEvent
}

func (n *captureNotifier) NotifyChange(_ context.Context, ev catalogue.ChangeEvent) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, ev)
	return nil
}

func newTestServer(t *testing.T) (*Server, *requestsmemory.Store, *captureNotifier) {
	t.Helper()
	store := requestsmemory.NewStore()
	notifier := &captureNotifier{}
	clock := fixedClock{now: time.Date(2026, 8, 28, 9, 0, 0, 0, time.UTC)}
	srv := NewServer(store, notifier, &seqIDGen{}, clock, zap.NewNop())
	return srv, store, notifier
}

func doJSON(t *testing.T, srv *Server, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var payload map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &payload))
	return payload
}

func TestSubmitRequestSuccess(t *testing.T) {
	t.Parallel()

	srv, store, notifier := newTestServer(t)
	rec := doJSON(t, srv, http.MethodPost, "/submitanewrequest", map[string]any{
		"Postcode":    "3220",
		"ProductName": "Sourdough Loaf",
		"Discount":    10,
		"PhoneNumber": "0400000000",
	})

	require.Equal(t, http.StatusOK, rec.Code)
	payload := decodeBody(t, rec)
	require.NotEmpty(t, payload["RequestID"])

	stored, err := store.List(context.Background())
	require.NoError(t, err)
	require.Len(t, stored, 1)
	require.Equal(t, "3220", stored[0].Postcode)
	require.False(t, stored[0].SubmittedAt.IsZero())

	notifier.mu.Lock()
	defer notifier.mu.Unlock()
	require.Len(t, notifier.events, 1)
	require.Equal(t, catalogue.OpInsert, notifier.events[0].Op)
	require.Equal(t, "3220", notifier.events[0].NewValue.Postcode)
}

func TestSubmitRequestMissingFieldsNamed(t *testing.T) {
	t.Parallel()

	srv, _, notifier := newTestServer(t)
	rec := doJSON(t, srv, http.MethodPost, "/submitanewrequest", map[string]any{
		"Postcode": "3220",
		"Discount": 10,
	})

	require.Equal(t, http.StatusBadRequest, rec.Code)
	payload := decodeBody(t, rec)
	require.Equal(t, "Missing required parameters: ProductName, PhoneNumber", payload["message"])

	notifier.mu.Lock()
	defer notifier.mu.Unlock()
	require.Empty(t, notifier.events)
}

func TestSubmitRequestAllFieldsMissing(t *testing.T) {
	t.Parallel()

	srv, _, _ := newTestServer(t)
	rec := doJSON(t, srv, http.MethodPost, "/submitanewrequest", map[string]any{})

	require.Equal(t, http.StatusBadRequest, rec.Code)
	payload := decodeBody(t, rec)
	require.Equal(t,
		"Missing required parameters: Postcode, ProductName, Discount, PhoneNumber",
		payload["message"])
}

func TestListRequests(t *testing.T) {
	t.Parallel()

	srv, store, _ := newTestServer(t)
	require.NoError(t, store.Create(context.Background(), catalogue.Request{
		RequestID: "r-1",
		Postcode:  "3220",
	}))

	rec := doJSON(t, srv, http.MethodGet, "/listrequests", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var requests []catalogue.Request
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &requests))
	require.Len(t, requests, 1)
	require.Equal(t, "r-1", requests[0].RequestID)
}

func TestListRequestsEmptyReturnsArray(t *testing.T) {
	t.Parallel()

	srv, _, _ := newTestServer(t)
	rec := doJSON(t, srv, http.MethodGet, "/listrequests", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var requests []catalogue.Request
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &requests))
	require.Empty(t, requests)
	require.Equal(t, "[]\n", rec.Body.String())
}

func TestDeleteRequestRequiresID(t *testing.T) {
	t.Parallel()

	srv, _, _ := newTestServer(t)
	rec := doJSON(t, srv, http.MethodDelete, "/deletearequest", nil)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	payload := decodeBody(t, rec)
	require.Equal(t, "Missing required parameters: RequestID", payload["message"])
}

func TestDeleteRequestByQueryParam(t *testing.T) {
	t.Parallel()

	srv, store, _ := newTestServer(t)
	require.NoError(t, store.Create(context.Background(), catalogue.Request{RequestID: "r-1"}))

	rec := doJSON(t, srv, http.MethodDelete, "/deletearequest?RequestID=r-1", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	remaining, err := store.List(context.Background())
	require.NoError(t, err)
	require.Empty(t, remaining)
}

func TestUpdateRequestNoValidFields(t *testing.T) {
	t.Parallel()

	srv, store, _ := newTestServer(t)
	require.NoError(t, store.Create(context.Background(), catalogue.Request{RequestID: "r-1"}))

	rec := doJSON(t, srv, http.MethodPut, "/update", map[string]any{
		"RequestID": "r-1",
		"Postcode":  "9999",
	})

	require.Equal(t, http.StatusBadRequest, rec.Code)
	payload := decodeBody(t, rec)
	require.Equal(t, "No valid fields to update", payload["message"])
}

func TestUpdateRequestAppliesFields(t *testing.T) {
	t.Parallel()

	srv, store, _ := newTestServer(t)
	require.NoError(t, store.Create(context.Background(), catalogue.Request{
		RequestID:   "r-1",
		ProductName: "Sourdough Loaf",
	}))

	rec := doJSON(t, srv, http.MethodPut, "/update", map[string]any{
		"RequestID": "r-1",
		"Discount":  25,
	})
	require.Equal(t, http.StatusOK, rec.Code)

	got, err := store.List(context.Background())
	require.NoError(t, err)
	require.Len(t, got, 1)
	require.Equal(t, 25.0, got[0].Discount)
	require.Equal(t, "Sourdough Loaf", got[0].ProductName)
}

func TestUnknownRouteReturnsNotFoundMessage(t *testing.T) {
	t.Parallel()

	srv, _, _ := newTestServer(t)
	rec := doJSON(t, srv, http.MethodGet, "/nosuchroute", nil)

	require.Equal(t, http.StatusNotFound, rec.Code)
	payload := decodeBody(t, rec)
	require.Equal(t, "Not Found", payload["message"])
}

func TestHealthEndpoints(t *testing.T) {
	t.Parallel()

	srv, _, _ := newTestServer(t)
	require.Equal(t, http.StatusOK, doJSON(t, srv, http.MethodGet, "/healthz", nil).Code)
	require.Equal(t, http.StatusOK, doJSON(t, srv, http.MethodGet, "/readyz", nil).Code)
}
