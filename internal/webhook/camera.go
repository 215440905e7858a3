package webhook

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/brigadeops/core/internal/apperr"
	"github.com/brigadeops/core/internal/models"
)

// CropJSONInstaller is the single core call this façade serializes to:
// persisting a camera's crop-JSON and json-table-id -> Table mapping
// together, then restarting its worker so the change takes effect on
// the next tick rather than waiting for a process restart (§5, §6).
type CropJSONInstaller interface {
	InstallCropJSON(ctx context.Context, cameraID uuid.UUID, cropJSON models.JSONMap, tableMapping map[string]uuid.UUID) error
}

// CameraHandler exposes the crop-JSON installation path operators use
// when a camera's table layout changes.
type CameraHandler struct {
	supervisor CropJSONInstaller
}

func NewCameraHandler(supervisor CropJSONInstaller) *CameraHandler {
	return &CameraHandler{supervisor: supervisor}
}

// Register attaches the camera admin route to a gin engine.
func (h *CameraHandler) Register(r gin.IRoutes) {
	r.POST("/cameras/:camera_id/crop-json", h.InstallCropJSON)
}

type installCropJSONPayload struct {
	CropJSON     models.JSONMap   `json:"crop_json" binding:"required"`
	TableMapping map[string]string `json:"table_mapping"`
}

// InstallCropJSON installs a new crop-JSON payload and its
// json-table-id -> physical Table mapping for one camera (§6:
// "its mapping to physical Table is set per-camera on crop-JSON
// installation").
func (h *CameraHandler) InstallCropJSON(c *gin.Context) {
	cameraID, err := uuid.Parse(c.Param("camera_id"))
	if err != nil {
		respondErr(c, http.StatusBadRequest, err)
		return
	}
	var payload installCropJSONPayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		respondErr(c, http.StatusBadRequest, apperr.Wrap("webhook", apperr.KindInput, "invalid payload", err))
		return
	}

	mapping := make(map[string]uuid.UUID, len(payload.TableMapping))
	for jsonTableID, raw := range payload.TableMapping {
		tableID, perr := uuid.Parse(raw)
		if perr != nil {
			respondErr(c, http.StatusBadRequest, apperr.New("webhook", apperr.KindInput, "table_mapping value is not a uuid: "+raw))
			return
		}
		mapping[jsonTableID] = tableID
	}

	if err := h.supervisor.InstallCropJSON(c.Request.Context(), cameraID, payload.CropJSON, mapping); err != nil {
		respondErr(c, statusFor(err), err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}
