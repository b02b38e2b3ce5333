// Package api exposes the HTTP interface for the catalogue scraper service.
package api

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/jmcallister/catalogue-scraper/internal/catalogue"
	"github.com/jmcallister/catalogue-scraper/internal/metrics"
)

// Server wires HTTP handlers to the request store and change feed.
type Server struct {
	router   chi.Router
	requests catalogue.RequestStore
	notifier catalogue.ChangeNotifier
	idGen    catalogue.IDGenerator
	clock    catalogue.Clock
	logger   *zap.Logger
}

// NewServer constructs a Server with middleware and routes.
func NewServer(
	requests catalogue.RequestStore,
	notifier catalogue.ChangeNotifier,
	idGen catalogue.IDGenerator,
	clock catalogue.Clock,
	logger *zap.Logger,
) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Server{
		requests: requests,
		notifier: notifier,
		idGen:    idGen,
		clock:    clock,
		logger:   logger,
	}
	r := chi.NewRouter()
	r.Use(requestIDMiddleware)
	r.Use(loggingMiddleware(logger))
	r.Use(recoverMiddleware(logger))
	r.Use(metricsMiddleware)
	r.Use(timeoutMiddleware(60 * time.Second))

	r.Get("/healthz", s.healthz)
	r.Get("/readyz", s.readyz)
	r.Method(http.MethodGet, "/metrics", metrics.Handler())

	r.Post("/submitanewrequest", s.submitRequest)
	r.Get("/listrequests", s.listRequests)
	r.Delete("/deletearequest", s.deleteRequest)
	r.Put("/update", s.updateRequest)

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		writeMessage(w, http.StatusNotFound, "Not Found")
	})

	s.router = r
	return s
}

// Handler returns the Router for use with http.Server.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) readyz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

type submitRequestBody struct {
	Postcode    *string  `json:"Postcode"`
	ProductName *string  `json:"ProductName"`
	Discount    *float64 `json:"Discount"`
	PhoneNumber *string  `json:"PhoneNumber"`
}

// missingFields returns the required parameter names absent from the body,
// in the order they are documented.
func (b submitRequestBody) missingFields() []string {
	var missing []string
	if b.Postcode == nil || strings.TrimSpace(*b.Postcode) == "" {
		missing = append(missing, "Postcode")
	}
	if b.ProductName == nil || strings.TrimSpace(*b.ProductName) == "" {
		missing = append(missing, "ProductName")
	}
	if b.Discount == nil {
		missing = append(missing, "Discount")
	}
	if b.PhoneNumber == nil || strings.TrimSpace(*b.PhoneNumber) == "" {
		missing = append(missing, "PhoneNumber")
	}
	return missing
}

func (s *Server) submitRequest(w http.ResponseWriter, r *http.Request) {
	var body submitRequestBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeMessage(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if missing := body.missingFields(); len(missing) > 0 {
		writeMessage(w, http.StatusBadRequest,
			"Missing required parameters: "+strings.Join(missing, ", "))
		return
	}

	requestID, err := s.idGen.NewID()
	if err != nil {
		writeMessage(w, http.StatusInternalServerError, "could not generate request id")
		return
	}
	req := catalogue.Request{
		RequestID:   requestID,
		Postcode:    strings.TrimSpace(*body.Postcode),
		ProductName: strings.TrimSpace(*body.ProductName),
		Discount:    *body.Discount,
		PhoneNumber: strings.TrimSpace(*body.PhoneNumber),
		SubmittedAt: s.clock.Now(),
	}
	if err := s.requests.Create(r.Context(), req); err != nil {
		s.logger.Error("create request failed", zap.Error(err))
		writeMessage(w, http.StatusInternalServerError, "could not store request")
		return
	}

	// The scrape trigger rides the change feed, not the request path, so a
	// feed hiccup never fails the submission.
	if s.notifier != nil {
		ev := catalogue.ChangeEvent{
			Op:       catalogue.OpInsert,
			NewValue: catalogue.ChangeValue{Postcode: req.Postcode},
		}
		if err := s.notifier.NotifyChange(r.Context(), ev); err != nil {
			s.logger.Error("change notification failed",
				zap.String("request_id", requestID),
				zap.Error(err))
		}
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"message":   "Request submitted successfully",
		"RequestID": requestID,
	})
}

func (s *Server) listRequests(w http.ResponseWriter, r *http.Request) {
	requests, err := s.requests.List(r.Context())
	if err != nil {
		s.logger.Error("list requests failed", zap.Error(err))
		writeMessage(w, http.StatusInternalServerError, "could not list requests")
		return
	}
	if requests == nil {
		requests = []catalogue.Request{}
	}
	// The response body is the bare array, not an envelope.
	writeJSON(w, http.StatusOK, requests)
}

type deleteRequestBody struct {
	RequestID string `json:"RequestID"`
}

func (s *Server) deleteRequest(w http.ResponseWriter, r *http.Request) {
	requestID := r.URL.Query().Get("RequestID")
	if requestID == "" {
		var body deleteRequestBody
		if err := json.NewDecoder(r.Body).Decode(&body); err == nil {
			requestID = body.RequestID
		}
	}
	if requestID == "" {
		writeMessage(w, http.StatusBadRequest, "Missing required parameters: RequestID")
		return
	}
	if err := s.requests.Delete(r.Context(), requestID); err != nil {
		writeMessage(w, http.StatusNotFound, "Request not found")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"message":   "Request deleted successfully",
		"RequestID": requestID,
	})
}

type updateRequestBody struct {
	RequestID   string   `json:"RequestID"`
	ProductName *string  `json:"ProductName"`
	Discount    *float64 `json:"Discount"`
	PhoneNumber *string  `json:"PhoneNumber"`
}

func (s *Server) updateRequest(w http.ResponseWriter, r *http.Request) {
	var body updateRequestBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeMessage(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if body.RequestID == "" {
		writeMessage(w, http.StatusBadRequest, "Missing required parameters: RequestID")
		return
	}
	upd := catalogue.RequestUpdate{
		ProductName: body.ProductName,
		Discount:    body.Discount,
		PhoneNumber: body.PhoneNumber,
	}
	if upd.ProductName == nil && upd.Discount == nil && upd.PhoneNumber == nil {
		writeMessage(w, http.StatusBadRequest, "No valid fields to update")
		return
	}
	if err := s.requests.Update(r.Context(), body.RequestID, upd); err != nil {
		writeMessage(w, http.StatusNotFound, "Request not found")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"message":   "Request updated successfully",
		"RequestID": body.RequestID,
	})
}

func requestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reqID := uuid.NewString()
		w.Header().Set("X-Request-ID", reqID)
		next.ServeHTTP(w, r)
	})
}

func loggingMiddleware(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := &responseWriter{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(ww, r)
			logger.Info("request completed",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.status),
				zap.Int64("duration_ms", time.Since(start).Milliseconds()),
			)
		})
	}
}

func recoverMiddleware(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rec := recover(); rec != nil {
					logger.Error("panic recovered", zap.Any("panic", rec))
					writeMessage(w, http.StatusInternalServerError, "internal server error")
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}

func metricsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := &responseWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(ww, r)

		routePattern := chi.RouteContext(r.Context()).RoutePattern()
		if routePattern == "" {
			routePattern = "unknown"
		}
		metrics.ObserveHTTPRequest(r.Method, routePattern, ww.status, time.Since(start))
	})
}

func timeoutMiddleware(d time.Duration) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.TimeoutHandler(next, d, "request timed out")
	}
}

type responseWriter struct {
	http.ResponseWriter
	status int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.status = code
	rw.ResponseWriter.WriteHeader(code)
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeMessage(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"message": msg})
}
