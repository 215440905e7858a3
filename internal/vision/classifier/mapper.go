package classifier

import (
	"sync"

	"github.com/google/uuid"

	"github.com/brigadeops/core/internal/models"
)

// Mapper caches each camera's json-table-id -> physical Table mapping
// in memory so the dispatcher's hot path never round-trips to the
// database for a lookup it already has. §5: "Caches (e.g., camera
// mapping of json-table-id -> Table) are invalidated on crop-JSON
// update."
type Mapper struct {
	mu    sync.RWMutex
	byCam map[uuid.UUID]map[string]uuid.UUID
}

func NewMapper() *Mapper {
	return &Mapper{byCam: make(map[uuid.UUID]map[string]uuid.UUID)}
}

// Install replaces the mapping for a camera, following an
// InstallCropJSON call.
func (m *Mapper) Install(cameraID uuid.UUID, mapping map[string]uuid.UUID) {
	m.mu.Lock()
	defer m.mu.Unlock()
	copied := make(map[string]uuid.UUID, len(mapping))
	for k, v := range mapping {
		copied[k] = v
	}
	m.byCam[cameraID] = copied
}

// InstallFromJSON parses a Camera's persisted TableMapping (its
// json-table-id keys mapped to stringified physical Table uuids, set
// by InstallCropJSON) and installs it. Entries that fail to parse as
// a uuid are skipped rather than failing the whole camera.
func (m *Mapper) InstallFromJSON(cameraID uuid.UUID, raw models.JSONMap) {
	mapping := make(map[string]uuid.UUID, len(raw))
	for jsonTableID, v := range raw {
		s, ok := v.(string)
		if !ok {
			continue
		}
		tableID, err := uuid.Parse(s)
		if err != nil {
			continue
		}
		mapping[jsonTableID] = tableID
	}
	m.Install(cameraID, mapping)
}

// Invalidate drops the cached mapping for a camera, forcing the next
// Lookup to report a miss until Install is called again.
func (m *Mapper) Invalidate(cameraID uuid.UUID) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.byCam, cameraID)
}

// Lookup returns the physical Table id for a camera's json-table-id.
func (m *Mapper) Lookup(cameraID uuid.UUID, jsonTableID string) (uuid.UUID, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	mapping, ok := m.byCam[cameraID]
	if !ok {
		return uuid.Nil, false
	}
	tableID, ok := mapping[jsonTableID]
	return tableID, ok
}
