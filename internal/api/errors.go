package api

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"
	"go.uber.org/zap"

	"github.com/sells-group/prospect-cli/internal/campaign"
	"github.com/sells-group/prospect-cli/internal/model"
	"github.com/sells-group/prospect-cli/internal/store"
)

// ErrorResponse is the body of every failed request.
type ErrorResponse struct {
	Error     string `json:"error"`
	Field     string `json:"field,omitempty"`
	RequestID string `json:"request_id,omitempty"`
}

func statusFor(err error) int {
	var ve *model.ValidationError
	switch {
	case errors.As(err, &ve):
		return http.StatusBadRequest
	case errors.Is(err, store.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, store.ErrInvalidTransition), errors.Is(err, campaign.ErrBusy):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	resp := ErrorResponse{Error: err.Error(), RequestID: middleware.GetReqID(r.Context())}

	var ve *model.ValidationError
	if errors.As(err, &ve) {
		resp.Error = ve.Message
		resp.Field = ve.Field
	}
	if status >= http.StatusInternalServerError {
		zap.L().Error("api: request failed",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.String("request_id", resp.RequestID),
			zap.Error(err),
		)
		resp.Error = http.StatusText(status)
	}

	render.Status(r, status)
	render.JSON(w, r, resp)
}

func badRequest(w http.ResponseWriter, r *http.Request, field, msg string) {
	writeError(w, r, &model.ValidationError{Field: field, Message: msg})
}
