package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/adrizkya/parkirin/internal/engine"
	"github.com/adrizkya/parkirin/internal/helpers"
	"github.com/adrizkya/parkirin/internal/middleware"
	"github.com/adrizkya/parkirin/internal/models"
	"github.com/adrizkya/parkirin/internal/plate"
	"github.com/adrizkya/parkirin/internal/store"
)

const defaultLotID = "default"

type OpenTicketRequest struct {
	PlateNumber  string  `json:"plate_number" binding:"required"`
	PhotoURL     *string `json:"photo_url"`
	VehicleColor *string `json:"vehicle_color"`
	ParkingLotID string  `json:"parking_lot_id"`
}

type ForceOpenTicketRequest struct {
	OpenTicketRequest
	ConflictTicketID uint `json:"conflict_ticket_id" binding:"required"`
}

type AmendPlateRequest struct {
	PlateNumber string `json:"plate_number" binding:"required"`
}

func (r *OpenTicketRequest) toEngine(c *gin.Context) engine.OpenRequest {
	lotID := r.ParkingLotID
	if lotID == "" {
		lotID = defaultLotID
	}
	return engine.OpenRequest{
		LotID:        lotID,
		PlateNumber:  r.PlateNumber,
		PhotoURL:     r.PhotoURL,
		VehicleColor: r.VehicleColor,
		DeviceID:     middleware.GetDeviceID(c),
	}
}

func ticketResponse(message string, res *engine.Result) gin.H {
	body := gin.H{
		"message": message,
		"ticket":  res.Ticket,
	}
	if len(res.Warnings) > 0 {
		body["warnings"] = res.Warnings
	}
	return body
}

// OpenTicket checks the plate in. A duplicate-active conflict comes back
// as 409 with the colliding ticket; forcing is a separate call, never a
// defaulted flag.
func OpenTicket(c *gin.Context) {
	var req OpenTicketRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		helpers.RespondWithError(c, http.StatusBadRequest, "Invalid input. Please check your fields.")
		return
	}

	core := middleware.GetCore(c)
	if core == nil {
		helpers.RespondWithError(c, http.StatusInternalServerError, "Core services not found.")
		return
	}

	res, err := core.Engine.Open(c.Request.Context(), req.toEngine(c))
	if err != nil {
		helpers.RespondWithTicketError(c, err)
		return
	}

	c.JSON(http.StatusCreated, ticketResponse("Ticket created successfully.", res))
}

// ForceOpenTicket proceeds despite a duplicate conflict. The conflicting
// ticket named in the request is demoted to abnormal.
func ForceOpenTicket(c *gin.Context) {
	var req ForceOpenTicketRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		helpers.RespondWithError(c, http.StatusBadRequest, "Invalid input. Please check your fields.")
		return
	}

	core := middleware.GetCore(c)
	if core == nil {
		helpers.RespondWithError(c, http.StatusInternalServerError, "Core services not found.")
		return
	}

	res, err := core.Engine.ForceOpen(c.Request.Context(), req.OpenTicketRequest.toEngine(c), req.ConflictTicketID)
	if err != nil {
		helpers.RespondWithTicketError(c, err)
		return
	}

	c.JSON(http.StatusCreated, ticketResponse("Ticket created; conflicting ticket marked abnormal.", res))
}

func ListTickets(c *gin.Context) {
	core := middleware.GetCore(c)
	if core == nil {
		helpers.RespondWithError(c, http.StatusInternalServerError, "Core services not found.")
		return
	}

	q := store.ListQuery{
		LotID:       c.DefaultQuery("parking_lot_id", defaultLotID),
		PlateSearch: c.Query("q"),
	}
	if status := c.Query("status"); status != "" {
		s := models.TicketStatus(status)
		if !s.Valid() {
			helpers.RespondWithError(c, http.StatusBadRequest, "Invalid status filter.")
			return
		}
		q.Status = s
	}
	if limit := c.Query("limit"); limit != "" {
		n, err := helpers.StringToInt(limit)
		if err != nil || n <= 0 {
			helpers.RespondWithError(c, http.StatusBadRequest, "Invalid limit.")
			return
		}
		q.Limit = n
	}

	tickets, err := core.Tickets.List(c.Request.Context(), q)
	if err != nil {
		helpers.RespondWithError(c, http.StatusInternalServerError, "Error retrieving tickets.")
		return
	}

	c.JSON(http.StatusOK, gin.H{"tickets": tickets})
}

// CheckDuplicate is the advisory pre-check the entry screen uses while
// the attendant is still typing. The answer may be cache-served; the
// authoritative check happens again inside OpenTicket.
func CheckDuplicate(c *gin.Context) {
	core := middleware.GetCore(c)
	if core == nil {
		helpers.RespondWithError(c, http.StatusInternalServerError, "Core services not found.")
		return
	}

	p, err := plate.Normalize(c.Query("plate"))
	if err != nil {
		helpers.RespondWithTicketError(c, err)
		return
	}
	lotID := c.DefaultQuery("parking_lot_id", defaultLotID)

	existing, err := core.Resolver.Peek(c.Request.Context(), lotID, p)
	if err != nil {
		helpers.RespondWithError(c, http.StatusInternalServerError, "Error checking for duplicates.")
		return
	}

	c.JSON(http.StatusOK, gin.H{"duplicate": existing})
}

// GetTicket reads by id. QR payloads decode to the same id, so exit
// scans bypass plate matching entirely and land here.
func GetTicket(c *gin.Context) {
	core := middleware.GetCore(c)
	if core == nil {
		helpers.RespondWithError(c, http.StatusInternalServerError, "Core services not found.")
		return
	}

	id, err := helpers.ParseTicketID(c.Param("id"))
	if err != nil {
		helpers.RespondWithError(c, http.StatusBadRequest, "Invalid ticket id.")
		return
	}

	ticket, err := core.Tickets.ByID(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			helpers.RespondWithError(c, http.StatusNotFound, "Ticket not found.")
			return
		}
		helpers.RespondWithError(c, http.StatusInternalServerError, "Error retrieving ticket.")
		return
	}

	c.JSON(http.StatusOK, ticket)
}

func ExitTicket(c *gin.Context) {
	core := middleware.GetCore(c)
	if core == nil {
		helpers.RespondWithError(c, http.StatusInternalServerError, "Core services not found.")
		return
	}

	id, err := helpers.ParseTicketID(c.Param("id"))
	if err != nil {
		helpers.RespondWithError(c, http.StatusBadRequest, "Invalid ticket id.")
		return
	}

	res, err := core.Engine.Close(c.Request.Context(), id, middleware.GetDeviceID(c))
	if err != nil {
		helpers.RespondWithTicketError(c, err)
		return
	}

	c.JSON(http.StatusOK, ticketResponse("Ticket checked out successfully.", res))
}

// UndoExitTicket reopens a just-closed ticket. The undo is one-shot: it
// self-invalidates as soon as the plate re-enters.
func UndoExitTicket(c *gin.Context) {
	core := middleware.GetCore(c)
	if core == nil {
		helpers.RespondWithError(c, http.StatusInternalServerError, "Core services not found.")
		return
	}

	id, err := helpers.ParseTicketID(c.Param("id"))
	if err != nil {
		helpers.RespondWithError(c, http.StatusBadRequest, "Invalid ticket id.")
		return
	}

	res, err := core.Engine.UndoClose(c.Request.Context(), id, middleware.GetDeviceID(c))
	if err != nil {
		helpers.RespondWithTicketError(c, err)
		return
	}

	c.JSON(http.StatusOK, ticketResponse("Exit undone successfully.", res))
}

func AmendTicketPlate(c *gin.Context) {
	var req AmendPlateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		helpers.RespondWithError(c, http.StatusBadRequest, "Invalid input. Please check your fields.")
		return
	}

	core := middleware.GetCore(c)
	if core == nil {
		helpers.RespondWithError(c, http.StatusInternalServerError, "Core services not found.")
		return
	}

	id, err := helpers.ParseTicketID(c.Param("id"))
	if err != nil {
		helpers.RespondWithError(c, http.StatusBadRequest, "Invalid ticket id.")
		return
	}

	res, err := core.Engine.AmendPlate(c.Request.Context(), id, req.PlateNumber, middleware.GetDeviceID(c))
	if err != nil {
		helpers.RespondWithTicketError(c, err)
		return
	}

	c.JSON(http.StatusOK, ticketResponse("Plate updated successfully.", res))
}

// DeleteTicket is an administrative escape hatch. It bypasses the
// lifecycle engine: no status guard, no audit entry. Operation logs for
// the ticket are kept.
func DeleteTicket(c *gin.Context) {
	core := middleware.GetCore(c)
	if core == nil {
		helpers.RespondWithError(c, http.StatusInternalServerError, "Core services not found.")
		return
	}

	id, err := helpers.ParseTicketID(c.Param("id"))
	if err != nil {
		helpers.RespondWithError(c, http.StatusBadRequest, "Invalid ticket id.")
		return
	}

	if err := core.Tickets.Delete(c.Request.Context(), id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			helpers.RespondWithError(c, http.StatusNotFound, "Ticket not found.")
			return
		}
		helpers.RespondWithError(c, http.StatusInternalServerError, "Failed to delete ticket.")
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Ticket deleted successfully."})
}

func ListTicketLogs(c *gin.Context) {
	core := middleware.GetCore(c)
	if core == nil {
		helpers.RespondWithError(c, http.StatusInternalServerError, "Core services not found.")
		return
	}

	id, err := helpers.ParseTicketID(c.Param("id"))
	if err != nil {
		helpers.RespondWithError(c, http.StatusBadRequest, "Invalid ticket id.")
		return
	}

	logs, err := core.Audit.ListByTicket(c.Request.Context(), id)
	if err != nil {
		helpers.RespondWithError(c, http.StatusInternalServerError, "Error retrieving operation logs.")
		return
	}

	c.JSON(http.StatusOK, gin.H{"logs": logs})
}
