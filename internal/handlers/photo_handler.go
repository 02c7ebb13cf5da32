package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/adrizkya/parkirin/internal/helpers"
)

// UploadPhoto stores an entry photo and returns the photo_url reference
// to attach to a subsequent ticket open.
func UploadPhoto(c *gin.Context) {
	fileHeader, err := c.FormFile("photo")
	if err != nil {
		helpers.RespondWithError(c, http.StatusBadRequest, "Photo file is required.")
		return
	}

	photoURL, err := helpers.UploadPhoto(c, fileHeader)
	if err != nil {
		helpers.RespondWithError(c, http.StatusBadRequest, err.Error())
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"message":   "Photo uploaded successfully.",
		"photo_url": photoURL,
	})
}
