package helpers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/adrizkya/parkirin/internal/engine"
	"github.com/adrizkya/parkirin/internal/plate"
	"github.com/adrizkya/parkirin/internal/store"
)

type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

func HTTPStatusText(code int) string {
	return http.StatusText(code)
}

func RespondWithError(c *gin.Context, statusCode int, customMessage string) {
	c.JSON(statusCode, ErrorResponse{
		Error:   HTTPStatusText(statusCode),
		Message: customMessage,
	})
}

// RespondWithTicketError translates the engine's error taxonomy to HTTP.
// Conflicts carry the colliding ticket so the client can offer "view
// existing / force entry" instead of a bare error message.
func RespondWithTicketError(c *gin.Context, err error) {
	var (
		validation *plate.ValidationError
		conflict   *engine.ConflictError
		already    *engine.AlreadyModifiedError
	)

	switch {
	case errors.As(err, &validation):
		RespondWithError(c, http.StatusBadRequest, validation.Error())
	case errors.As(err, &conflict):
		c.JSON(http.StatusConflict, gin.H{
			"error":           HTTPStatusText(http.StatusConflict),
			"message":         conflict.Reason,
			"existing_ticket": conflict.Existing,
		})
	case errors.As(err, &already):
		RespondWithError(c, http.StatusUnprocessableEntity, already.Error())
	case errors.Is(err, store.ErrNotFound):
		RespondWithError(c, http.StatusNotFound, "Ticket not found.")
	default:
		RespondWithError(c, http.StatusInternalServerError, "Operation failed. Please retry.")
	}
}
