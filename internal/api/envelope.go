package api

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/go-chi/chi/v5/middleware"

	domainerrors "github.com/taskline/taskline-server/internal/errors"
	"github.com/taskline/taskline-server/internal/http/response"
	"github.com/taskline/taskline-server/internal/id"
	"github.com/taskline/taskline-server/internal/store"
)

// EnvelopeVersion is the response envelope format version.
const EnvelopeVersion = response.Version

// APIEnvelope wraps successful and simple error responses.
type APIEnvelope struct {
	Version int    `json:"v"`
	Success bool   `json:"success"`
	Data    any    `json:"data,omitempty"`
	Error   string `json:"error,omitempty"`
}

// APIErrorEnvelope wraps coded error responses.
type APIErrorEnvelope struct {
	Version int    `json:"v"`
	Success bool   `json:"success"`
	Error   string `json:"error"`
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

// EnvelopeTransformer wraps every huma response body in an envelope.
func EnvelopeTransformer(_ huma.Context, status string, v any) (any, error) {
	code, _ := strconv.Atoi(status)

	switch e := v.(type) {
	case *APIError:
		if e.Code == "" {
			return APIEnvelope{Version: EnvelopeVersion, Error: e.Message}, nil
		}
		return APIErrorEnvelope{
			Version: EnvelopeVersion,
			Error:   e.Message,
			Code:    e.Code,
			Message: e.Message,
			Details: e.Details,
		}, nil
	case *domainerrors.Error:
		return APIErrorEnvelope{
			Version: EnvelopeVersion,
			Error:   e.Message,
			Code:    string(e.Code),
			Message: e.Message,
			Details: e.Details,
		}, nil
	case *store.Error:
		return APIErrorEnvelope{
			Version: EnvelopeVersion,
			Error:   e.Message,
			Code:    statusToCode(e.Code),
			Message: e.Message,
		}, nil
	case error:
		return APIEnvelope{Version: EnvelopeVersion, Error: e.Error()}, nil
	}

	if code >= http.StatusBadRequest {
		return APIEnvelope{Version: EnvelopeVersion, Data: v}, nil
	}
	return APIEnvelope{Version: EnvelopeVersion, Success: true, Data: v}, nil
}

// requestID tags each request with an ID, keeping one supplied by the client.
func requestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reqID := r.Header.Get(middleware.RequestIDHeader)
		if reqID == "" {
			reqID = id.MustGenerate(id.PrefixRequest)
		}
		w.Header().Set(middleware.RequestIDHeader, reqID)
		ctx := context.WithValue(r.Context(), middleware.RequestIDKey, reqID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// requestLogger logs each request through slog once it completes.
func requestLogger(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()

			next.ServeHTTP(ww, r)

			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}
			level := slog.LevelDebug
			if status >= http.StatusInternalServerError {
				level = slog.LevelError
			}
			logger.Log(r.Context(), level, "http request",
				"method", r.Method,
				"path", r.URL.Path,
				"status", status,
				"bytes", ww.BytesWritten(),
				"duration", time.Since(start),
				"request_id", middleware.GetReqID(r.Context()),
			)
		})
	}
}
