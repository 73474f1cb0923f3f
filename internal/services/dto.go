package services

import (
	"time"

	"washbay/internal/domain"
)

// CountdownView is a derived timer as exposed to polling clients
type CountdownView struct {
	Expired          bool  `json:"expired" yaml:"expired"`
	LimitSeconds     int64 `json:"limit_seconds" yaml:"limit_seconds"`
	RemainingSeconds int64 `json:"remaining_seconds" yaml:"remaining_seconds"`
	Running          bool  `json:"running" yaml:"running"`
}

func newCountdownView(c domain.Countdown) CountdownView {
	return CountdownView{
		Expired:          c.Expired,
		LimitSeconds:     int64(c.Limit / time.Second),
		RemainingSeconds: int64(c.Remaining / time.Second),
		Running:          c.Running,
	}
}

// SessionView is a session snapshot with derived timers attached
type SessionView struct {
	Assign               *CountdownView `json:"assign,omitempty" yaml:"assign,omitempty"`
	AssignedAt           *time.Time     `json:"assigned_at,omitempty" yaml:"assigned_at,omitempty"`
	BoxID                *string        `json:"box_id,omitempty" yaml:"box_id,omitempty"`
	BoxNumber            int            `json:"box_number,omitempty" yaml:"box_number,omitempty"`
	CanceledBy           string         `json:"canceled_by,omitempty" yaml:"canceled_by,omitempty"`
	CarNumber            string         `json:"car_number,omitempty" yaml:"car_number,omitempty"`
	Chemistry            *CountdownView `json:"chemistry,omitempty" yaml:"chemistry,omitempty"`
	ChemistryStartedAt   *time.Time     `json:"chemistry_started_at,omitempty" yaml:"chemistry_started_at,omitempty"`
	ChemistryTimeMinutes int            `json:"chemistry_time_minutes" yaml:"chemistry_time_minutes"`
	CreatedAt            time.Time      `json:"created_at" yaml:"created_at"`
	ExtensionTimeMinutes int            `json:"extension_time_minutes" yaml:"extension_time_minutes"`
	FinishedAt           *time.Time     `json:"finished_at,omitempty" yaml:"finished_at,omitempty"`
	ID                   string         `json:"id" yaml:"id"`
	QueuePosition        int            `json:"queue_position,omitempty" yaml:"queue_position,omitempty"`
	ReassignCount        int            `json:"reassign_count" yaml:"reassign_count"`
	Rental               CountdownView  `json:"rental" yaml:"rental"`
	RentalTimeMinutes    int            `json:"rental_time_minutes" yaml:"rental_time_minutes"`
	ServiceType          string         `json:"service_type" yaml:"service_type"`
	StartedAt            *time.Time     `json:"started_at,omitempty" yaml:"started_at,omitempty"`
	Status               string         `json:"status" yaml:"status"`
	UpdatedAt            time.Time      `json:"updated_at" yaml:"updated_at"`
	Version              int64          `json:"version" yaml:"version"`
	WasChemistryOn       bool           `json:"was_chemistry_on" yaml:"was_chemistry_on"`
	WithChemistry        bool           `json:"with_chemistry" yaml:"with_chemistry"`
}

// BoxView is a box snapshot with the cleaning timer attached
type BoxView struct {
	ChemistryEnabled   bool           `json:"chemistry_enabled" yaml:"chemistry_enabled"`
	Cleaning           *CountdownView `json:"cleaning,omitempty" yaml:"cleaning,omitempty"`
	CleaningReservedBy *string        `json:"cleaning_reserved_by,omitempty" yaml:"cleaning_reserved_by,omitempty"`
	CleaningStartedAt  *time.Time     `json:"cleaning_started_at,omitempty" yaml:"cleaning_started_at,omitempty"`
	ID                 string         `json:"id" yaml:"id"`
	MaintenanceReason  string         `json:"maintenance_reason,omitempty" yaml:"maintenance_reason,omitempty"`
	Number             int            `json:"number" yaml:"number"`
	OccupiedBy         *string        `json:"occupied_by,omitempty" yaml:"occupied_by,omitempty"`
	ServiceType        string         `json:"service_type" yaml:"service_type"`
	Status             string         `json:"status" yaml:"status"`
	UpdatedAt          time.Time      `json:"updated_at" yaml:"updated_at"`
	Version            int64          `json:"version" yaml:"version"`
}

// Snapshot is one consistent read of the whole facility. Revision changes
// whenever any included entity changes, so clients can skip redraws.
type Snapshot struct {
	At            time.Time     `json:"at" yaml:"at"`
	Boxes         []BoxView     `json:"boxes" yaml:"boxes"`
	CleaningBoxID *string       `json:"cleaning_box_id,omitempty" yaml:"cleaning_box_id,omitempty"`
	Revision      string        `json:"revision" yaml:"revision"`
	Sessions      []SessionView `json:"sessions" yaml:"sessions"`
}

// timerSettings carries the durations that timer views depend on
type timerSettings struct {
	assignTimeout   time.Duration
	cleaningTimeout time.Duration
}

func (t timerSettings) sessionView(s *domain.Session, boxNumber, queuePosition int, now time.Time) SessionView {
	v := SessionView{
		AssignedAt:           s.AssignedAt,
		BoxID:                s.BoxID,
		BoxNumber:            boxNumber,
		CanceledBy:           string(s.CanceledBy),
		CarNumber:            s.CarNumber,
		ChemistryStartedAt:   s.ChemistryStartedAt,
		ChemistryTimeMinutes: s.ChemistryTimeMinutes,
		CreatedAt:            s.CreatedAt,
		ExtensionTimeMinutes: s.ExtensionTimeMinutes,
		FinishedAt:           s.FinishedAt(),
		ID:                   s.ID,
		QueuePosition:        queuePosition,
		ReassignCount:        s.ReassignCount,
		Rental:               newCountdownView(domain.RentalRemaining(s, now)),
		RentalTimeMinutes:    s.RentalTimeMinutes,
		ServiceType:          string(s.ServiceType),
		StartedAt:            s.StartedAt,
		Status:               string(s.Status),
		UpdatedAt:            s.UpdatedAt,
		Version:              s.Version,
		WasChemistryOn:       s.WasChemistryOn,
		WithChemistry:        s.WithChemistry,
	}
	if s.WithChemistry {
		c := newCountdownView(domain.ChemistryRemaining(s, now))
		v.Chemistry = &c
	}
	if s.Status == domain.SessionAssigned && t.assignTimeout > 0 {
		c := newCountdownView(domain.AssignRemaining(s, t.assignTimeout, now))
		v.Assign = &c
	}
	return v
}

func (t timerSettings) boxView(b *domain.Box, now time.Time) BoxView {
	v := BoxView{
		ChemistryEnabled:   b.ChemistryEnabled,
		CleaningReservedBy: b.CleaningReservedBy,
		CleaningStartedAt:  b.CleaningStartedAt,
		ID:                 b.ID,
		MaintenanceReason:  b.MaintenanceReason,
		Number:             b.Number,
		OccupiedBy:         b.OccupiedBy,
		ServiceType:        string(b.ServiceType),
		Status:             string(b.Status),
		UpdatedAt:          b.UpdatedAt,
		Version:            b.Version,
	}
	if b.Status == domain.BoxCleaning {
		c := newCountdownView(domain.CleaningRemaining(b, t.cleaningTimeout, now))
		v.Cleaning = &c
	}
	return v
}
