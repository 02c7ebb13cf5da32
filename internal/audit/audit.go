// Package audit appends immutable records of every ticket state change.
// The log is best-effort observability: a failed append never rolls back
// the mutation it describes.
package audit

import (
	"context"

	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/adrizkya/parkirin/internal/models"
)

// Entry is one state change to record.
type Entry struct {
	TicketID      uint
	OperationType string
	OldValue      map[string]interface{}
	NewValue      map[string]interface{}
	DeviceID      string
}

// Sink receives audit entries. The lifecycle engine writes through this
// interface so tests can capture entries in memory.
type Sink interface {
	Append(ctx context.Context, e Entry) error
}

// Writer persists entries to the operation_logs table.
type Writer struct {
	db *gorm.DB
}

func NewWriter(db *gorm.DB) *Writer {
	return &Writer{db: db}
}

func (w *Writer) Append(ctx context.Context, e Entry) error {
	log := models.OperationLog{
		TicketID:      e.TicketID,
		OperationType: e.OperationType,
		OldValue:      datatypes.JSONMap(e.OldValue),
		NewValue:      datatypes.JSONMap(e.NewValue),
		DeviceID:      e.DeviceID,
	}
	return w.db.WithContext(ctx).Create(&log).Error
}

// ListByTicket returns a ticket's audit history, newest first. Logs are
// weak references and survive ticket deletion.
func (w *Writer) ListByTicket(ctx context.Context, ticketID uint) ([]models.OperationLog, error) {
	var logs []models.OperationLog
	err := w.db.WithContext(ctx).
		Where("ticket_id = ?", ticketID).
		Order("created_at DESC").
		Find(&logs).Error
	if err != nil {
		return nil, err
	}
	return logs, nil
}
