package handler

import (
	"strconv"

	"github.com/deliverymaster/service-quote/internal/application"
	"github.com/deliverymaster/service-quote/internal/domain/delivery"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// SessionHandler handles HTTP requests for quote sessions: the editable
// stop list, the map view and the quote/confirm flow.
type SessionHandler struct {
	sessions *application.SessionService
	quotes   *application.QuoteService
}

// NewSessionHandler creates a new SessionHandler.
func NewSessionHandler(sessions *application.SessionService, quotes *application.QuoteService) *SessionHandler {
	return &SessionHandler{sessions: sessions, quotes: quotes}
}

// RegisterRoutes registers all session routes on the given router group.
func (h *SessionHandler) RegisterRoutes(r *gin.RouterGroup) {
	sessions := r.Group("/api/v1/sessions")
	{
		sessions.POST("", h.CreateSession)
		sessions.GET("/:id", h.GetSession)
		sessions.DELETE("/:id", h.CloseSession)

		sessions.POST("/:id/stops", h.AddStop)
		sessions.PATCH("/:id/stops/:stopID", h.UpdateStop)
		sessions.DELETE("/:id/stops/:stopID", h.RemoveStop)
		sessions.POST("/:id/stops/swap", h.SwapStops)
		sessions.POST("/:id/stops/:stopID/locate", h.LocateStop)
		sessions.POST("/:id/stops/:stopID/focus", h.FocusStop)

		sessions.GET("/:id/map", h.MapPlan)
		sessions.POST("/:id/map/drop", h.DropMarker)

		sessions.POST("/:id/quote", h.RequestQuote)
		sessions.POST("/:id/confirm", h.Confirm)
	}
}

// CreateSession handles POST /api/v1/sessions.
func (h *SessionHandler) CreateSession(c *gin.Context) {
	Created(c, h.sessions.CreateSession())
}

// GetSession handles GET /api/v1/sessions/:id.
func (h *SessionHandler) GetSession(c *gin.Context) {
	sessionID, ok := parseSessionID(c)
	if !ok {
		return
	}

	result, err := h.sessions.GetSession(sessionID)
	if err != nil {
		Error(c, err)
		return
	}
	Success(c, result)
}

// CloseSession handles DELETE /api/v1/sessions/:id.
func (h *SessionHandler) CloseSession(c *gin.Context) {
	sessionID, ok := parseSessionID(c)
	if !ok {
		return
	}

	if err := h.sessions.CloseSession(sessionID); err != nil {
		Error(c, err)
		return
	}
	Success(c, gin.H{"closed": true})
}

// AddStop handles POST /api/v1/sessions/:id/stops.
func (h *SessionHandler) AddStop(c *gin.Context) {
	sessionID, ok := parseSessionID(c)
	if !ok {
		return
	}

	result, err := h.sessions.AddStop(sessionID)
	if err != nil {
		Error(c, err)
		return
	}
	Success(c, result)
}

// UpdateStop handles PATCH /api/v1/sessions/:id/stops/:stopID.
func (h *SessionHandler) UpdateStop(c *gin.Context) {
	sessionID, ok := parseSessionID(c)
	if !ok {
		return
	}
	stopID, ok := parseStopID(c)
	if !ok {
		return
	}

	var req application.UpdateStopRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, err.Error())
		return
	}

	result, err := h.sessions.UpdateStop(sessionID, stopID, req)
	if err != nil {
		Error(c, err)
		return
	}
	Success(c, result)
}

// RemoveStop handles DELETE /api/v1/sessions/:id/stops/:stopID.
func (h *SessionHandler) RemoveStop(c *gin.Context) {
	sessionID, ok := parseSessionID(c)
	if !ok {
		return
	}
	stopID, ok := parseStopID(c)
	if !ok {
		return
	}

	result, err := h.sessions.RemoveStop(sessionID, stopID)
	if err != nil {
		Error(c, err)
		return
	}
	Success(c, result)
}

// SwapStops handles POST /api/v1/sessions/:id/stops/swap.
func (h *SessionHandler) SwapStops(c *gin.Context) {
	sessionID, ok := parseSessionID(c)
	if !ok {
		return
	}

	var req struct {
		StopA int64 `json:"stop_a" binding:"required"`
		StopB int64 `json:"stop_b" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, err.Error())
		return
	}

	result, err := h.sessions.SwapStops(sessionID, req.StopA, req.StopB)
	if err != nil {
		Error(c, err)
		return
	}
	Success(c, result)
}

// LocateStop handles POST /api/v1/sessions/:id/stops/:stopID/locate.
func (h *SessionHandler) LocateStop(c *gin.Context) {
	sessionID, ok := parseSessionID(c)
	if !ok {
		return
	}
	stopID, ok := parseStopID(c)
	if !ok {
		return
	}

	plan, err := h.sessions.LocateStop(c.Request.Context(), sessionID, stopID)
	if err != nil {
		Error(c, err)
		return
	}
	Success(c, plan)
}

// FocusStop handles POST /api/v1/sessions/:id/stops/:stopID/focus.
func (h *SessionHandler) FocusStop(c *gin.Context) {
	sessionID, ok := parseSessionID(c)
	if !ok {
		return
	}
	stopID, ok := parseStopID(c)
	if !ok {
		return
	}

	result, err := h.sessions.FocusStop(sessionID, stopID)
	if err != nil {
		Error(c, err)
		return
	}
	Success(c, result)
}

// MapPlan handles GET /api/v1/sessions/:id/map.
func (h *SessionHandler) MapPlan(c *gin.Context) {
	sessionID, ok := parseSessionID(c)
	if !ok {
		return
	}

	plan, err := h.sessions.MapPlan(sessionID)
	if err != nil {
		Error(c, err)
		return
	}
	Success(c, plan)
}

// DropMarker handles POST /api/v1/sessions/:id/map/drop.
func (h *SessionHandler) DropMarker(c *gin.Context) {
	sessionID, ok := parseSessionID(c)
	if !ok {
		return
	}

	var req struct {
		StopID int64   `json:"stop_id" binding:"required"`
		Lat    float64 `json:"lat"`
		Lng    float64 `json:"lng"`
		Zoom   int     `json:"zoom"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, err.Error())
		return
	}

	drop := delivery.Coordinates{Lat: req.Lat, Lng: req.Lng}
	plan, swapped, err := h.sessions.DropMarker(sessionID, req.StopID, drop, req.Zoom)
	if err != nil {
		Error(c, err)
		return
	}
	Success(c, gin.H{"swapped": swapped, "plan": plan})
}

// RequestQuote handles POST /api/v1/sessions/:id/quote. The accepted quote
// is cached on the session so the later confirmation uses exactly what the
// user saw.
func (h *SessionHandler) RequestQuote(c *gin.Context) {
	sessionID, ok := parseSessionID(c)
	if !ok {
		return
	}

	var req struct {
		ApplicantName string                `json:"applicant_name"`
		Options       delivery.QuoteOptions `json:"options"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, err.Error())
		return
	}

	addresses, err := h.sessions.Snapshot(sessionID)
	if err != nil {
		Error(c, err)
		return
	}

	result, err := h.quotes.RequestQuote(c.Request.Context(), addresses, req.Options)
	if err != nil {
		Error(c, err)
		return
	}

	if err := h.sessions.StoreQuote(sessionID, req.ApplicantName, result, req.Options); err != nil {
		Error(c, err)
		return
	}
	Success(c, result)
}

// Confirm handles POST /api/v1/sessions/:id/confirm.
func (h *SessionHandler) Confirm(c *gin.Context) {
	sessionID, ok := parseSessionID(c)
	if !ok {
		return
	}

	applicantName, result, addresses, opts, err := h.sessions.QuoteData(sessionID)
	if err != nil {
		Error(c, err)
		return
	}

	confirmation, err := h.quotes.Confirm(c.Request.Context(), applicantName, result, addresses, opts)
	if err != nil {
		Error(c, err)
		return
	}
	Created(c, confirmation)
}

func parseSessionID(c *gin.Context) (uuid.UUID, bool) {
	sessionID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		BadRequest(c, "invalid session ID")
		return uuid.Nil, false
	}
	return sessionID, true
}

func parseStopID(c *gin.Context) (int64, bool) {
	stopID, err := strconv.ParseInt(c.Param("stopID"), 10, 64)
	if err != nil || stopID < 1 {
		BadRequest(c, "invalid stop ID")
		return 0, false
	}
	return stopID, true
}
