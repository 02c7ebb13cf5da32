package models

import (
	"time"

	"gorm.io/datatypes"
)

const (
	OpMarkAbnormalDuplicate = "mark_abnormal_duplicate"
	OpExit                  = "exit"
	OpUndoExit              = "undo_exit"
	OpModifyPlate           = "modify_plate"
)

// OperationLog is an append-only audit entry for a ticket state change.
// TicketID is a weak reference: logs may outlive a deleted ticket, so no
// foreign key constraint is declared.
type OperationLog struct {
	ID            uint              `gorm:"primaryKey" json:"id"`
	TicketID      uint              `gorm:"not null;index" json:"ticket_id"`
	OperationType string            `gorm:"size:64;not null" json:"operation_type"`
	OldValue      datatypes.JSONMap `json:"old_value"`
	NewValue      datatypes.JSONMap `json:"new_value"`
	DeviceID      string            `gorm:"size:64" json:"device_id"`
	CreatedAt     time.Time         `json:"created_at"`
}
