package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/adrizkya/parkirin/internal/helpers"
	"github.com/adrizkya/parkirin/internal/middleware"
)

func GetStats(c *gin.Context) {
	core := middleware.GetCore(c)
	if core == nil {
		helpers.RespondWithError(c, http.StatusInternalServerError, "Core services not found.")
		return
	}

	lotID := c.DefaultQuery("parking_lot_id", defaultLotID)
	snapshot, err := core.Stats.Snapshot(c.Request.Context(), lotID)
	if err != nil {
		helpers.RespondWithError(c, http.StatusInternalServerError, "Error computing stats.")
		return
	}

	c.JSON(http.StatusOK, snapshot)
}
