package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/adrizkya/parkirin/internal/helpers"
	"github.com/adrizkya/parkirin/internal/middleware"
	"github.com/adrizkya/parkirin/internal/ocr"
)

type RecognizePlateRequest struct {
	Image string `json:"image" binding:"required"`
}

// RecognizePlate forwards a captured image to the plate-recognition
// collaborator. A null plate in the response means the client should
// fall back to manual entry; ticket creation never blocks on OCR.
func RecognizePlate(c *gin.Context) {
	var req RecognizePlateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		helpers.RespondWithError(c, http.StatusBadRequest, "No image provided.")
		return
	}

	core := middleware.GetCore(c)
	if core == nil {
		helpers.RespondWithError(c, http.StatusInternalServerError, "Core services not found.")
		return
	}
	if core.OCR == nil {
		helpers.RespondWithError(c, http.StatusServiceUnavailable, "Plate recognition is not configured.")
		return
	}

	result, err := core.OCR.Recognize(c.Request.Context(), req.Image)
	if err != nil {
		var oerr *ocr.Error
		if errors.As(err, &oerr) && oerr.Kind == ocr.KindBadImage {
			helpers.RespondWithError(c, http.StatusBadRequest, oerr.Message)
			return
		}
		helpers.RespondWithError(c, http.StatusBadGateway, "Plate recognition failed. Enter the plate manually.")
		return
	}

	c.JSON(http.StatusOK, result)
}
