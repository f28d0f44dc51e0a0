package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/soaringjerry/epds/internal/middleware"
	"github.com/soaringjerry/epds/internal/services"
	"github.com/soaringjerry/epds/internal/utils"
)

type FieldMessage struct {
	Field   string `json:"field"`
	Key     string `json:"key"`
	Message string `json:"message"`
}

type APIError struct {
	Message string         `json:"message"`
	Code    string         `json:"code"`
	Fields  []FieldMessage `json:"fields,omitempty"`
}

// ErrorEnvelope carries the unchanged view when a transition was refused so
// the client can keep rendering the same screen.
type ErrorEnvelope struct {
	Error APIError       `json:"error"`
	View  *services.View `json:"view,omitempty"`
}

var statusByCode = map[services.ErrorCode]int{
	services.ErrorInvalid:      http.StatusUnprocessableEntity,
	services.ErrorNotFound:     http.StatusNotFound,
	services.ErrorConflict:     http.StatusConflict,
	services.ErrorUnauthorized: http.StatusUnauthorized,
	services.ErrorUnavailable:  http.StatusServiceUnavailable,
}

var keyBySentinel = []struct {
	err error
	key string
}{
	{services.ErrNoSelection, "answer.required"},
	{services.ErrUnknownChoice, "answer.unknown"},
	{services.ErrBackNotAllowed, "navigation.back_disallowed"},
	{services.ErrProfileLocked, "navigation.profile_locked"},
	{services.ErrNotAtQuestion, "navigation.not_at_question"},
	{services.ErrNotAtResult, "result.not_ready"},
	{services.ErrSessionNotFound, "session.not_found"},
}

func RespondError(c *gin.Context, status int, code string, message string) {
	c.AbortWithStatusJSON(status, ErrorEnvelope{Error: APIError{Message: message, Code: code}})
}

// respondServiceError maps err to a status and a localized message. Errors
// that are not ServiceErrors are internal and their text is not exposed.
func respondServiceError(c *gin.Context, err error, view *services.View) {
	locale := middleware.LocaleFromContext(c.Request.Context())
	_ = c.Error(err)

	se, ok := services.AsServiceError(err)
	if !ok {
		c.AbortWithStatusJSON(http.StatusInternalServerError, ErrorEnvelope{
			Error: APIError{Message: utils.T(locale, "error.internal"), Code: "internal"},
		})
		return
	}
	status, ok := statusByCode[se.Code]
	if !ok {
		status = http.StatusInternalServerError
	}
	body := ErrorEnvelope{Error: APIError{Message: se.Message, Code: string(se.Code)}, View: view}
	if ve, ok := services.AsValidationError(err); ok {
		for _, f := range ve.Fields {
			body.Error.Fields = append(body.Error.Fields, FieldMessage{Field: f.Field, Key: f.Key, Message: utils.T(locale, f.Key)})
		}
		if len(body.Error.Fields) > 0 {
			body.Error.Message = body.Error.Fields[0].Message
		}
	} else if key := messageKey(err); key != "" {
		body.Error.Message = utils.T(locale, key)
	} else if se.Code == services.ErrorUnavailable {
		body.Error.Message = utils.T(locale, "result.unavailable")
	}
	c.AbortWithStatusJSON(status, body)
}

func messageKey(err error) string {
	for _, s := range keyBySentinel {
		if errors.Is(err, s.err) {
			return s.key
		}
	}
	return ""
}
