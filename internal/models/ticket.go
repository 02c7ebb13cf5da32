package models

import (
	"time"
)

type TicketStatus string

const (
	StatusActive   TicketStatus = "active"
	StatusExited   TicketStatus = "exited"
	StatusAbnormal TicketStatus = "abnormal"
	// StatusError is assigned out-of-band for tickets that failed
	// invariants outside the normal flow. The engine never produces it
	// but must tolerate it on read.
	StatusError TicketStatus = "error"
)

func (s TicketStatus) Valid() bool {
	switch s {
	case StatusActive, StatusExited, StatusAbnormal, StatusError:
		return true
	}
	return false
}

// Ticket is one vehicle's parking stay, from entry to exit.
type Ticket struct {
	ID                  uint         `gorm:"primaryKey" json:"id"`
	PlateNumber         string       `gorm:"size:20;not null;index:idx_tickets_plate" json:"plate_number"`
	EntryTime           time.Time    `gorm:"not null" json:"entry_time"`
	ExitTime            *time.Time   `json:"exit_time"`
	PhotoURL            *string      `json:"photo_url"`
	VehicleColor        *string      `gorm:"size:30" json:"vehicle_color"`
	Status              TicketStatus `gorm:"size:16;not null;default:active;index" json:"status"`
	DeviceID            string       `gorm:"size:64" json:"device_id"`
	ParkingLotID        string       `gorm:"size:64;not null;default:default;index" json:"parking_lot_id"`
	PlateModified       bool         `gorm:"not null;default:false" json:"plate_modified"`
	OriginalPlateNumber *string      `gorm:"size:20" json:"original_plate_number"`
	CreatedAt           time.Time    `json:"created_at"`
	UpdatedAt           time.Time    `json:"updated_at"`
}
