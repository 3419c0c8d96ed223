package httperr

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

type HTTPError struct {
	Code    string `json:"error_code"`
	Message string `json:"message"`
	Detail  string `json:"detail,omitempty"`
}

func Write(c *gin.Context, status int, code, message string) {
	c.JSON(status, HTTPError{
		Code:    code,
		Message: message,
	})
}

func BadRequest(c *gin.Context, code, message string) {
	Write(c, http.StatusBadRequest, code, message)
}

func NotFound(c *gin.Context, code, message string) {
	Write(c, http.StatusNotFound, code, message)
}

func Internal(c *gin.Context, code, message string) {
	Write(c, http.StatusInternalServerError, code, message)
}

// StatusFor centraliza o mapeamento erro → HTTP.
func StatusFor(err error) int {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return http.StatusNotFound
	}
	kind, ok := KindOf(err)
	if !ok {
		return http.StatusInternalServerError
	}
	switch kind {
	case KindValidation:
		return http.StatusBadRequest
	case KindConflict:
		return http.StatusConflict
	case KindNotFound:
		return http.StatusNotFound
	case KindGateway:
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}

// FromError responde com o código do BusinessError (ou internal_error).
func FromError(c *gin.Context, err error, message string) {
	var be BusinessError
	if errors.As(err, &be) {
		body := HTTPError{Code: be.Code, Message: message}
		// detalhe do gateway fica só no log
		if be.Kind != KindGateway {
			body.Detail = be.Detail
		}
		c.JSON(StatusFor(err), body)
		return
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		NotFound(c, "not_found", message)
		return
	}
	Internal(c, "internal_error", message)
}
