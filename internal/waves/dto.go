package waves

import (
	"github.com/angelmondragon/wavepick-backend/pkg/db/models"
)

// CreateWaveInput selects the pending orders to release together.
type CreateWaveInput struct {
	TenantID    int64
	OrderIDs    []int64
	ActorUserID int64
	ActorRole   string
}

// CancelWaveInput identifies the wave to cancel and who asked.
type CancelWaveInput struct {
	TenantID    int64
	WaveID      int64
	ActorUserID int64
	ActorRole   string
}

// Progress summarises how far picking has come.
type Progress struct {
	TotalItems     int     `json:"total_items"`
	CompletedItems int     `json:"completed_items"`
	TotalQuantity  int     `json:"total_quantity"`
	PickedQuantity int     `json:"picked_quantity"`
	Percent        float64 `json:"percent"`
}

// WaveDetail is a wave with its items, orders and progress.
type WaveDetail struct {
	Wave     models.PickingWave    `json:"wave"`
	Orders   []models.PickingOrder `json:"orders"`
	Progress Progress              `json:"progress"`
}
