package handler

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"poultrymarket/internal/middleware"
	"poultrymarket/internal/model"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/rs/zerolog"
)

const maxBodyBytes = 1 << 20

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		// The status line is already out; nothing useful to tell the client.
		return
	}
}

// writeError maps err to a status and writes the standard error body.
// Clients only ever see a domain error's own message; any context wrapped
// around it is logged. Anything else is reported as a generic 500.
func writeError(w http.ResponseWriter, r *http.Request, err error, logger zerolog.Logger) {
	code := model.ErrorCode(err)
	status := model.HTTPStatus(code)

	message := "internal server error"
	var de *model.DomainError
	if errors.As(err, &de) {
		message = de.Message
	}

	if status >= http.StatusInternalServerError {
		logger.Error().
			Err(err).
			Str("path", r.URL.Path).
			Str("request_id", middleware.GetRequestID(r.Context())).
			Int("status", status).
			Msg("handler error")
	} else {
		logger.Debug().Str("code", code).Str("path", r.URL.Path).Msg(err.Error())
	}

	writeJSON(w, status, model.ErrorResponse{
		Error:         message,
		Code:          code,
		CorrelationID: middleware.GetRequestID(r.Context()),
	})
}

// decodeJSON reads a bounded JSON body into dst.
func decodeJSON(r *http.Request, dst any) error {
	if r.Body == nil {
		return model.NewDomainError(model.ErrCodeInvalidJSON, "Request body is required")
	}
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return model.NewDomainError(model.ErrCodeInvalidJSON, "Request body is required")
		}
		return model.NewDomainError(model.ErrCodeInvalidJSON, "Invalid request body")
	}
	return nil
}

// pathUUID parses the named route variable.
func pathUUID(r *http.Request, name string) (uuid.UUID, error) {
	id, err := uuid.Parse(mux.Vars(r)[name])
	if err != nil {
		return uuid.Nil, model.Validationf("invalid %s", name)
	}
	return id, nil
}

// queryInt parses an optional integer query parameter.
func queryInt(r *http.Request, name string, def int) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, model.Validationf("invalid %s parameter", name)
	}
	return n, nil
}

// queryUUID parses an optional UUID query parameter.
func queryUUID(r *http.Request, name string) (*uuid.UUID, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return nil, nil
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return nil, model.Validationf("invalid %s parameter", name)
	}
	return &id, nil
}

// pageFromQuery reads limit and offset. Clamping happens in the repositories.
func pageFromQuery(r *http.Request) (model.Page, error) {
	limit, err := queryInt(r, "limit", 0)
	if err != nil {
		return model.Page{}, err
	}
	offset, err := queryInt(r, "offset", 0)
	if err != nil {
		return model.Page{}, err
	}
	return model.Page{Limit: limit, Offset: offset}, nil
}
