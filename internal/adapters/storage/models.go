package storage

import (
	"time"

	"gorm.io/datatypes"
)

// SessionModel is the GORM model for sessions table
type SessionModel struct {
	AssignedAt           *time.Time `gorm:"default:null"`
	BoxID                *string    `gorm:"uniqueIndex:idx_sessions_box_id;default:null"`
	CanceledAt           *time.Time `gorm:"default:null"`
	CanceledBy           string     `gorm:"not null;default:''"`
	CarNumber            string     `gorm:"not null;default:''"`
	ChemistryEndedAt     *time.Time `gorm:"default:null"`
	ChemistryStartedAt   *time.Time `gorm:"default:null"`
	ChemistryTimeMinutes int        `gorm:"not null;default:0"`
	CompletedAt          *time.Time `gorm:"default:null"`
	CreatedAt            time.Time  `gorm:"not null;autoCreateTime:false;index:idx_sessions_queue,priority:2"`
	ExpiredAt            *time.Time `gorm:"default:null"`
	ExtensionTimeMinutes int        `gorm:"not null;default:0"`
	FailedAt             *time.Time `gorm:"default:null"`
	ID                   string     `gorm:"primaryKey"`
	ReassignCount        int        `gorm:"not null;default:0"`
	RentalTimeMinutes    int        `gorm:"not null"`
	ServiceType          string     `gorm:"not null;check:chk_sessions_service_type,service_type IN ('wash','air_dry','vacuum')"`
	StartedAt            *time.Time `gorm:"default:null"`
	Status               string     `gorm:"not null;index:idx_sessions_queue,priority:1;check:chk_sessions_status,status IN ('created','in_queue','payment_failed','assigned','active','complete','canceled','expired')"`
	UpdatedAt            time.Time  `gorm:"not null;autoUpdateTime:false;index:idx_sessions_updated_at"`
	Version              int64      `gorm:"not null;default:1"`
	WasChemistryOn       bool       `gorm:"not null;default:false"`
	WithChemistry        bool       `gorm:"not null;default:false"`
}

// TableName specifies the table name for GORM
func (SessionModel) TableName() string { return "sessions" }

// BoxModel is the GORM model for boxes table.
// CleaningSlot is 1 on the single box holding the cleaning slot and NULL
// everywhere else; its unique index makes a second holder impossible.
type BoxModel struct {
	ChemistryEnabled   bool       `gorm:"not null;default:false"`
	CleaningReservedAt *time.Time `gorm:"default:null"`
	CleaningReservedBy *string    `gorm:"default:null"`
	CleaningSlot       *int       `gorm:"uniqueIndex:idx_boxes_cleaning_slot;default:null"`
	CleaningStartedAt  *time.Time `gorm:"default:null"`
	ID                 string     `gorm:"primaryKey"`
	MaintenanceReason  string     `gorm:"not null;default:''"`
	Number             int        `gorm:"not null;uniqueIndex:idx_boxes_number"`
	OccupiedBy         *string    `gorm:"uniqueIndex:idx_boxes_occupied_by;default:null"`
	ServiceType        string     `gorm:"not null;check:chk_boxes_service_type,service_type IN ('wash','air_dry','vacuum')"`
	Status             string     `gorm:"not null;default:'free';check:chk_boxes_status,status IN ('free','reserved','busy','maintenance','cleaning')"`
	UpdatedAt          time.Time  `gorm:"not null;autoUpdateTime:false"`
	Version            int64      `gorm:"not null;default:1"`
}

// TableName specifies the table name for GORM
func (BoxModel) TableName() string { return "boxes" }

// EventModel is the GORM model for the audit trail
type EventModel struct {
	ActorID   string         `gorm:"not null;default:''"`
	ActorRole string         `gorm:"not null"`
	BoxID     *string        `gorm:"index:idx_events_box_id;default:null"`
	CreatedAt time.Time      `gorm:"not null;autoCreateTime:false;index:idx_events_created_at"`
	Details   datatypes.JSON `gorm:"default:null"`
	ID        string         `gorm:"primaryKey"`
	SessionID *string        `gorm:"index:idx_events_session_id;default:null"`
	Type      string         `gorm:"not null;index:idx_events_type"`
}

// TableName specifies the table name for GORM
func (EventModel) TableName() string { return "events" }
