// Package webhook is the thin HTTP façade in front of the core,
// following §9's redesign flag: "request handling is a thin façade
// that serializes to core calls," not a place for business logic.
// It exposes the inbound ML classifier path of §6: POST /ml/table-state.
package webhook

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/brigadeops/core/internal/apperr"
	"github.com/brigadeops/core/internal/models"
)

// TableStateUpdater is the single core call this façade serializes to.
type TableStateUpdater interface {
	UpdateTableState(tableID uuid.UUID, next models.TableState, confidence float64, source models.StateSource, provenance string) (models.TableStateLog, bool, error)
}

// Handler wires the webhook routes to a core.
type Handler struct {
	store TableStateUpdater
	log   *logrus.Logger
}

func NewHandler(store TableStateUpdater, log *logrus.Logger) *Handler {
	return &Handler{store: store, log: log}
}

// Register attaches the §6 inbound route to a gin engine, grouped by
// handler the way the rest of this package's routes are.
func (h *Handler) Register(r gin.IRoutes) {
	r.POST("/ml/table-state", h.TableState)
}

type tableStatePayload struct {
	RestaurantID uuid.UUID `json:"restaurant_id" binding:"required"`
	Timestamp    time.Time `json:"timestamp"`
	Tables       []struct {
		TableID                 uuid.UUID `json:"table_id" binding:"required"`
		PredictedState          string    `json:"predicted_state" binding:"required"`
		StateConfidence         float64   `json:"state_confidence"`
		PersonCount             int       `json:"person_count"`
		PersonCountConfidence   float64   `json:"person_count_confidence"`
	} `json:"tables" binding:"required"`
}

// TableState implements §6's inbound webhook path: every prediction is
// run through the Table State Machine (C2) via UpdateTableState, the
// same gate the outbound dispatcher uses, so this path can never
// bypass C2's invariants.
func (h *Handler) TableState(c *gin.Context) {
	var payload tableStatePayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		respondErr(c, http.StatusBadRequest, apperr.Wrap("webhook", apperr.KindInput, "invalid payload", err))
		return
	}

	results := make([]gin.H, 0, len(payload.Tables))
	for _, t := range payload.Tables {
		_, applied, err := h.store.UpdateTableState(t.TableID, models.TableState(t.PredictedState), t.StateConfidence, models.SourceML, "webhook")
		if err != nil {
			if apperr.KindOf(err) == apperr.KindInvariant || apperr.KindOf(err) == apperr.KindNotFound {
				h.log.WithError(err).WithField("table_id", t.TableID).Warn("webhook prediction rejected")
				results = append(results, gin.H{"table_id": t.TableID, "applied": false, "reason": err.Error()})
				continue
			}
			respondErr(c, http.StatusInternalServerError, err)
			return
		}
		results = append(results, gin.H{"table_id": t.TableID, "applied": applied})
	}

	c.JSON(http.StatusOK, gin.H{"status": true, "results": results})
}

func respondErr(c *gin.Context, code int, err error) {
	c.JSON(code, gin.H{"status": false, "message": err.Error()})
}
