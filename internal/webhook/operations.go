package webhook

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/brigadeops/core/internal/analytics"
	"github.com/brigadeops/core/internal/apperr"
	"github.com/brigadeops/core/internal/models"
	"github.com/brigadeops/core/internal/routing"
	"github.com/brigadeops/core/internal/scheduling"
)

// OperationsHandler exposes the synchronous, request-scoped core
// operations named in §5: "the router and scheduling engine are
// invoked synchronously from request handlers and run to completion."
type OperationsHandler struct {
	router *routing.Router
	engine *scheduling.Engine
	roller *analytics.Roller
}

func NewOperationsHandler(router *routing.Router, engine *scheduling.Engine, roller *analytics.Roller) *OperationsHandler {
	return &OperationsHandler{router: router, engine: engine, roller: roller}
}

// Register attaches the router/scheduling/analytics routes.
func (h *OperationsHandler) Register(r gin.IRoutes) {
	r.POST("/restaurants/:restaurant_id/recommend", h.Recommend)
	r.POST("/restaurants/:restaurant_id/seat", h.Seat)
	r.POST("/restaurants/:restaurant_id/schedule/run", h.RunSchedule)
	r.POST("/restaurants/:restaurant_id/analytics/rollup", h.Rollup)
}

type recommendPayload struct {
	WaitlistEntryID    *uuid.UUID `json:"waitlist_entry_id"`
	PartySize          int        `json:"party_size"`
	TablePreference    string     `json:"table_preference"`
	LocationPreference string     `json:"location_preference"`
	HardPreference     bool       `json:"hard_preference"`
}

// Recommend runs §4.7's recommend operation and returns a
// Recommendation or a structured NoMatch reason — it performs no
// writes (§7: "the router ... never retry; they return structured
// failure with a reason").
func (h *OperationsHandler) Recommend(c *gin.Context) {
	restaurantID, err := uuid.Parse(c.Param("restaurant_id"))
	if err != nil {
		respondErr(c, http.StatusBadRequest, err)
		return
	}
	var payload recommendPayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		respondErr(c, http.StatusBadRequest, err)
		return
	}

	rec, err := h.router.Recommend(c.Request.Context(), restaurantID, routing.Request{
		WaitlistEntryID:    payload.WaitlistEntryID,
		PartySize:          payload.PartySize,
		TablePreference:    models.TablePreference(payload.TablePreference),
		LocationPreference: models.LocationPreference(payload.LocationPreference),
		HardPreference:     payload.HardPreference,
	})
	if err != nil {
		if nm, ok := err.(routing.NoMatch); ok {
			c.JSON(http.StatusOK, gin.H{"success": false, "message": nm.Kind})
			return
		}
		respondErr(c, statusFor(err), err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "recommendation": rec})
}

type seatPayload struct {
	WaitlistEntryID *uuid.UUID `json:"waitlist_entry_id"`
	TableID         uuid.UUID  `json:"table_id" binding:"required"`
	WaiterID        uuid.UUID  `json:"waiter_id" binding:"required"`
	TableScore      int        `json:"table_score"`
	Priority        float64    `json:"priority"`
	PartySize       int        `json:"party_size" binding:"required"`
}

// Seat persists a previously returned Recommendation, under the
// per-restaurant lock (§5).
func (h *OperationsHandler) Seat(c *gin.Context) {
	restaurantID, err := uuid.Parse(c.Param("restaurant_id"))
	if err != nil {
		respondErr(c, http.StatusBadRequest, err)
		return
	}
	var payload seatPayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		respondErr(c, http.StatusBadRequest, err)
		return
	}

	rec := routing.Recommendation{
		Table:      models.Table{ID: payload.TableID},
		Waiter:     models.Waiter{ID: payload.WaiterID},
		TableScore: payload.TableScore,
		Priority:   payload.Priority,
		PartySize:  payload.PartySize,
	}
	visit, err := h.router.Seat(c.Request.Context(), restaurantID, rec, payload.WaitlistEntryID)
	if err != nil {
		respondErr(c, statusFor(err), err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"success": true, "visit": visit})
}

type scheduleRunPayload struct {
	WeekStart time.Time `json:"week_start" binding:"required"`
}

// RunSchedule triggers §4.11's weekly Scheduling Engine run.
func (h *OperationsHandler) RunSchedule(c *gin.Context) {
	restaurantID, err := uuid.Parse(c.Param("restaurant_id"))
	if err != nil {
		respondErr(c, http.StatusBadRequest, err)
		return
	}
	var payload scheduleRunPayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		respondErr(c, http.StatusBadRequest, err)
		return
	}

	run, err := h.engine.Run(restaurantID, payload.WeekStart)
	if err != nil {
		respondErr(c, http.StatusInternalServerError, err)
		return
	}
	status := http.StatusOK
	if run.Status == models.RunFailed {
		status = http.StatusInternalServerError
	}
	c.JSON(status, gin.H{"run": run})
}

type rollupPayload struct {
	PeriodType  string    `json:"period_type" binding:"required"`
	PeriodStart time.Time `json:"period_start" binding:"required"`
	PeriodEnd   time.Time `json:"period_end" binding:"required"`
}

// Rollup triggers §4.12's idempotent waiter/restaurant rollups for one
// period. MenuItemMetrics is intentionally not exposed here: the core
// has no menu-item entity to key it from (§1 non-goals); callers that
// own an order system call analytics.Roller.RollMenuItemMetrics directly.
func (h *OperationsHandler) Rollup(c *gin.Context) {
	restaurantID, err := uuid.Parse(c.Param("restaurant_id"))
	if err != nil {
		respondErr(c, http.StatusBadRequest, err)
		return
	}
	var payload rollupPayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		respondErr(c, http.StatusBadRequest, err)
		return
	}

	periodType := models.PeriodType(payload.PeriodType)
	if err := h.roller.RollWaiterMetrics(restaurantID, periodType, payload.PeriodStart, payload.PeriodEnd); err != nil {
		respondErr(c, http.StatusInternalServerError, err)
		return
	}
	if err := h.roller.RollRestaurantMetrics(restaurantID, periodType, payload.PeriodStart, payload.PeriodEnd); err != nil {
		respondErr(c, http.StatusInternalServerError, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

func statusFor(err error) int {
	switch apperr.KindOf(err) {
	case apperr.KindInput:
		return http.StatusBadRequest
	case apperr.KindNotFound:
		return http.StatusNotFound
	case apperr.KindConflict:
		return http.StatusConflict
	case apperr.KindFatal:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
