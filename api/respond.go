package api

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"

	"github.com/abdulwedud33/intern-finder-v2-sub000/internal/apperr"
	"github.com/abdulwedud33/intern-finder-v2-sub000/internal/validation"
)

const maxBodyBytes = 1 << 20

type errorBody struct {
	Code    apperr.Code       `json:"code"`
	Message string            `json:"message"`
	Fields  map[string]string `json:"fields,omitempty"`
}

type errorResponse struct {
	Error errorBody `json:"error"`
}

func writeJSON(w http.ResponseWriter, v any, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Error("encode response", slog.Any("err", err))
	}
}

func statusFor(k apperr.Kind) int {
	switch k {
	case apperr.KindNotFound:
		return http.StatusNotFound
	case apperr.KindForbidden:
		return http.StatusForbidden
	case apperr.KindConflict:
		return http.StatusConflict
	case apperr.KindValidation:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// writeError maps err to its HTTP status. Internal causes are logged and
// never echoed to the client.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	e, ok := apperr.As(err)
	if !ok {
		e = apperr.Wrap(apperr.CodeInternal, "internal error", err)
	}
	status := statusFor(e.Kind)
	body := errorBody{Code: e.Code, Message: e.Message, Fields: e.Fields}
	if status == http.StatusInternalServerError {
		logger.Error("request failed",
			slog.String("request_id", RequestIDFrom(r.Context())),
			slog.String("path", r.URL.Path),
			slog.Any("err", err))
		body.Message = "internal error"
	}
	writeJSON(w, errorResponse{Error: body}, status)
}

func writeUnauthorized(w http.ResponseWriter, msg string) {
	writeJSON(w, errorResponse{Error: errorBody{Code: "unauthorized", Message: msg}}, http.StatusUnauthorized)
}

// Validator checks a raw request body against a named schema.
type Validator interface {
	Validate(ctx context.Context, name string, body []byte) error
}

// decodeBody reads the request body, validates it against schema and
// unmarshals it into dst.
func decodeBody(r *http.Request, v Validator, schema string, dst any) error {
	b, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes+1))
	if err != nil {
		return apperr.Wrap(apperr.CodeInvalidInput, "could not read request body", err)
	}
	if len(b) > maxBodyBytes {
		return apperr.New(apperr.CodeInvalidInput, "request body too large")
	}
	if len(b) == 0 {
		return apperr.New(apperr.CodeInvalidInput, "request body is required")
	}
	if v != nil {
		if err := v.Validate(r.Context(), schema, b); err != nil {
			return err
		}
	}
	if err := json.Unmarshal(b, dst); err != nil {
		return apperr.Wrap(apperr.CodeInvalidInput, "invalid request body", err)
	}
	return nil
}

// defaultValidator is used by handlers constructed without one.
func defaultValidator() Validator {
	l, err := validation.Default()
	if err != nil {
		logger.Error("load request schemas", slog.Any("err", err))
		return nil
	}
	return l
}

func pathID(r *http.Request, name string) (int64, error) {
	v, err := strconv.ParseInt(mux.Vars(r)[name], 10, 64)
	if err != nil || v <= 0 {
		return 0, apperr.Validation("invalid path parameter", map[string]string{name: "must be a positive integer"})
	}
	return v, nil
}

// queryID parses an optional positive integer query parameter. Missing
// values yield zero.
func queryID(r *http.Request, name string) (int64, error) {
	s := r.URL.Query().Get(name)
	if s == "" {
		return 0, nil
	}
	v, err := strconv.ParseInt(s, 10, 64)
	if err != nil || v <= 0 {
		return 0, apperr.Validation("invalid query parameter", map[string]string{name: "must be a positive integer"})
	}
	return v, nil
}

// page reads limit and offset the way list endpoints share: limit defaults
// to 50 and is capped at 500, invalid values fall back to defaults.
func page(r *http.Request) (limit, offset int) {
	q := r.URL.Query()
	limit = 50
	if l := q.Get("limit"); l != "" {
		if v, err := strconv.Atoi(l); err == nil && v > 0 && v <= 500 {
			limit = v
		}
	}
	if o := q.Get("offset"); o != "" {
		if v, err := strconv.Atoi(o); err == nil && v >= 0 {
			offset = v
		}
	}
	return limit, offset
}

func validationField(field, msg string) error {
	return apperr.Validation("invalid request", map[string]string{field: msg})
}

// parseDate accepts RFC 3339 timestamps and normalizes them to UTC.
func parseDate(s string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, validationField("date", "must be an RFC 3339 timestamp")
	}
	return t.UTC(), nil
}
