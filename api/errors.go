package api

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/intorma/torma/assist"
	"github.com/intorma/torma/board"
	"github.com/intorma/torma/task"
)

// statusClientClosed is logged when the caller went away mid-request.
const statusClientClosed = 499

var errNotConfigured = errors.New("assistant is not configured")

type errorBody struct {
	Error string `json:"error"`
	Field string `json:"field,omitempty"`
}

func writeError(c *gin.Context, err error) {
	_ = c.Error(err)
	status, body := errorResponse(err)
	if status == statusClientClosed {
		c.Status(status)
		c.Abort()
		return
	}
	c.AbortWithStatusJSON(status, body)
}

func errorResponse(err error) (int, errorBody) {
	body := errorBody{Error: err.Error()}

	var validationErr *task.ValidationError
	if errors.As(err, &validationErr) {
		body.Field = validationErr.Field
		return http.StatusBadRequest, body
	}
	var fieldErrs validator.ValidationErrors
	if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
		body.Field = lowerFirst(fieldErrs[0].Field())
		body.Error = body.Field + ": " + fieldErrs[0].Tag()
		return http.StatusBadRequest, body
	}

	var genErr *assist.GenerationError
	switch {
	case errors.Is(err, task.ErrInvalidDueDate):
		body.Field = "dueDate"
		return http.StatusBadRequest, body
	case errors.Is(err, task.ErrInvalidStatus):
		body.Field = "status"
		return http.StatusBadRequest, body
	case errors.Is(err, task.ErrInvalidSource):
		body.Field = "source"
		return http.StatusBadRequest, body
	case errors.Is(err, task.ErrTaskNotFound):
		return http.StatusNotFound, body
	case errors.Is(err, task.ErrAmbiguousTaskIDPrefix), errors.Is(err, assist.ErrEmptyInput):
		return http.StatusBadRequest, body
	case errors.Is(err, board.ErrNoDrag), errors.Is(err, board.ErrDragAborted):
		return http.StatusConflict, body
	case errors.Is(err, errNotConfigured):
		return http.StatusServiceUnavailable, body
	case errors.As(err, &genErr):
		if errors.Is(err, context.DeadlineExceeded) {
			return http.StatusGatewayTimeout, body
		}
		return http.StatusBadGateway, body
	case errors.Is(err, context.Canceled):
		return statusClientClosed, body
	case errors.Is(err, task.ErrStoreClosed):
		return http.StatusServiceUnavailable, body
	}
	return http.StatusInternalServerError, body
}

// badRequest wraps JSON decoding failures that are not field errors.
func badRequest(c *gin.Context, err error) {
	status, body := errorResponse(err)
	if status == http.StatusInternalServerError {
		status = http.StatusBadRequest
	}
	_ = c.Error(err)
	c.AbortWithStatusJSON(status, body)
}

func lowerFirst(value string) string {
	if value == "" {
		return value
	}
	return strings.ToLower(value[:1]) + value[1:]
}
