package storage

import (
	"encoding/json"
	"time"

	"washbay/internal/domain"
)

// sessionModelToDomain converts a SessionModel (GORM) to domain.Session
func sessionModelToDomain(m SessionModel) domain.Session {
	return domain.Session{
		AssignedAt:           m.AssignedAt,
		BoxID:                m.BoxID,
		CanceledAt:           m.CanceledAt,
		CanceledBy:           domain.Role(m.CanceledBy),
		CarNumber:            m.CarNumber,
		ChemistryEndedAt:     m.ChemistryEndedAt,
		ChemistryStartedAt:   m.ChemistryStartedAt,
		ChemistryTimeMinutes: m.ChemistryTimeMinutes,
		CompletedAt:          m.CompletedAt,
		CreatedAt:            m.CreatedAt,
		ExpiredAt:            m.ExpiredAt,
		ExtensionTimeMinutes: m.ExtensionTimeMinutes,
		FailedAt:             m.FailedAt,
		ID:                   m.ID,
		ReassignCount:        m.ReassignCount,
		RentalTimeMinutes:    m.RentalTimeMinutes,
		ServiceType:          domain.ServiceType(m.ServiceType),
		StartedAt:            m.StartedAt,
		Status:               domain.SessionStatus(m.Status),
		UpdatedAt:            m.UpdatedAt,
		Version:              m.Version,
		WasChemistryOn:       m.WasChemistryOn,
		WithChemistry:        m.WithChemistry,
	}
}

// domainToSessionModel converts a domain.Session to SessionModel (GORM)
func domainToSessionModel(s domain.Session) SessionModel {
	return SessionModel{
		AssignedAt:           utcPtr(s.AssignedAt),
		BoxID:                s.BoxID,
		CanceledAt:           utcPtr(s.CanceledAt),
		CanceledBy:           string(s.CanceledBy),
		CarNumber:            s.CarNumber,
		ChemistryEndedAt:     utcPtr(s.ChemistryEndedAt),
		ChemistryStartedAt:   utcPtr(s.ChemistryStartedAt),
		ChemistryTimeMinutes: s.ChemistryTimeMinutes,
		CompletedAt:          utcPtr(s.CompletedAt),
		CreatedAt:            s.CreatedAt.UTC(),
		ExpiredAt:            utcPtr(s.ExpiredAt),
		ExtensionTimeMinutes: s.ExtensionTimeMinutes,
		FailedAt:             utcPtr(s.FailedAt),
		ID:                   s.ID,
		ReassignCount:        s.ReassignCount,
		RentalTimeMinutes:    s.RentalTimeMinutes,
		ServiceType:          string(s.ServiceType),
		StartedAt:            utcPtr(s.StartedAt),
		Status:               string(s.Status),
		UpdatedAt:            s.UpdatedAt.UTC(),
		Version:              s.Version,
		WasChemistryOn:       s.WasChemistryOn,
		WithChemistry:        s.WithChemistry,
	}
}

// boxModelToDomain converts a BoxModel (GORM) to domain.Box
func boxModelToDomain(m BoxModel) domain.Box {
	return domain.Box{
		ChemistryEnabled:   m.ChemistryEnabled,
		CleaningReservedAt: m.CleaningReservedAt,
		CleaningReservedBy: m.CleaningReservedBy,
		CleaningStartedAt:  m.CleaningStartedAt,
		ID:                 m.ID,
		MaintenanceReason:  m.MaintenanceReason,
		Number:             m.Number,
		OccupiedBy:         m.OccupiedBy,
		ServiceType:        domain.ServiceType(m.ServiceType),
		Status:             domain.BoxStatus(m.Status),
		UpdatedAt:          m.UpdatedAt,
		Version:            m.Version,
	}
}

// domainToBoxModel converts a domain.Box to BoxModel (GORM)
func domainToBoxModel(b domain.Box) BoxModel {
	var slot *int
	if b.HoldsCleaningSlot() {
		one := 1
		slot = &one
	}
	return BoxModel{
		ChemistryEnabled:   b.ChemistryEnabled,
		CleaningReservedAt: utcPtr(b.CleaningReservedAt),
		CleaningReservedBy: b.CleaningReservedBy,
		CleaningSlot:       slot,
		CleaningStartedAt:  utcPtr(b.CleaningStartedAt),
		ID:                 b.ID,
		MaintenanceReason:  b.MaintenanceReason,
		Number:             b.Number,
		OccupiedBy:         b.OccupiedBy,
		ServiceType:        string(b.ServiceType),
		Status:             string(b.Status),
		UpdatedAt:          b.UpdatedAt.UTC(),
		Version:            b.Version,
	}
}

// eventModelToDomain converts an EventModel (GORM) to domain.Event.
// Undecodable details are dropped rather than failing the listing.
func eventModelToDomain(m EventModel) domain.Event {
	var details map[string]any
	if len(m.Details) > 0 {
		_ = json.Unmarshal(m.Details, &details)
	}
	return domain.Event{
		Actor:     domain.Actor{ID: m.ActorID, Role: domain.Role(m.ActorRole)},
		BoxID:     m.BoxID,
		CreatedAt: m.CreatedAt,
		Details:   details,
		ID:        m.ID,
		SessionID: m.SessionID,
		Type:      domain.EventType(m.Type),
	}
}

// domainToEventModel converts a domain.Event to EventModel (GORM)
func domainToEventModel(e domain.Event) (EventModel, error) {
	m := EventModel{
		ActorID:   e.Actor.ID,
		ActorRole: string(e.Actor.Role),
		BoxID:     e.BoxID,
		CreatedAt: e.CreatedAt.UTC(),
		ID:        e.ID,
		SessionID: e.SessionID,
		Type:      string(e.Type),
	}
	if len(e.Details) > 0 {
		data, err := json.Marshal(e.Details)
		if err != nil {
			return EventModel{}, err
		}
		m.Details = data
	}
	return m, nil
}

func utcPtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	u := t.UTC()
	return &u
}
