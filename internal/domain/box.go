package domain

import (
	"fmt"
	"slices"
	"time"
)

// BoxStatus represents the status of a wash bay
type BoxStatus string

const (
	BoxBusy        BoxStatus = "busy"
	BoxCleaning    BoxStatus = "cleaning"
	BoxFree        BoxStatus = "free"
	BoxMaintenance BoxStatus = "maintenance"
	BoxReserved    BoxStatus = "reserved"
)

// BoxStatuses lists all box statuses
var BoxStatuses = []BoxStatus{BoxFree, BoxReserved, BoxBusy, BoxMaintenance, BoxCleaning}

// ParseBoxStatus validates a box status name
func ParseBoxStatus(s string) (BoxStatus, error) {
	for _, st := range BoxStatuses {
		if string(st) == s {
			return st, nil
		}
	}
	return "", fmt.Errorf("%w: unknown box status %q", ErrInvalidInput, s)
}

// Box is a physical wash bay (domain entity)
type Box struct {
	ChemistryEnabled   bool
	CleaningReservedAt *time.Time
	CleaningReservedBy *string
	CleaningStartedAt  *time.Time
	ID                 string
	MaintenanceReason  string
	Number             int
	OccupiedBy         *string
	ServiceType        ServiceType
	Status             BoxStatus
	UpdatedAt          time.Time
	Version            int64
}

// HoldsCleaningSlot reports whether this box owns the facility-wide cleaning slot
func (b *Box) HoldsCleaningSlot() bool {
	return b.CleaningReservedBy != nil || b.Status == BoxCleaning
}

// CompatibleWith reports whether the box can serve the requested service
func (b *Box) CompatibleWith(serviceType ServiceType, requireChemistry bool) bool {
	if b.ServiceType != serviceType {
		return false
	}
	return !requireChemistry || b.ChemistryEnabled
}

func (b *Box) require(op string, allowed ...BoxStatus) error {
	if slices.Contains(allowed, b.Status) {
		return nil
	}
	return fmt.Errorf("%w: cannot %s box %d, status is %s", ErrInvalidState, op, b.Number, b.Status)
}

// Reserve puts an operator hold on a free box. Held boxes are skipped by the
// scheduler but can be targeted by a manual assignment.
func (b *Box) Reserve(now time.Time) error {
	if err := b.require("reserve", BoxFree); err != nil {
		return err
	}
	b.Status = BoxReserved
	b.UpdatedAt = now
	return nil
}

// Unreserve releases an operator hold
func (b *Box) Unreserve(now time.Time) error {
	if err := b.require("unreserve", BoxReserved); err != nil {
		return err
	}
	if b.CleaningReservedBy != nil {
		return fmt.Errorf("%w: box %d is reserved for cleaning by %s", ErrInvalidState, b.Number, *b.CleaningReservedBy)
	}
	b.Status = BoxFree
	b.UpdatedAt = now
	return nil
}

// Occupy marks the box busy for a session
func (b *Box) Occupy(sessionID string, now time.Time) error {
	if err := b.require("occupy", BoxFree, BoxReserved); err != nil {
		return err
	}
	if b.CleaningReservedBy != nil {
		return fmt.Errorf("%w: box %d is reserved for cleaning by %s", ErrInvalidState, b.Number, *b.CleaningReservedBy)
	}
	b.Status = BoxBusy
	b.OccupiedBy = &sessionID
	b.UpdatedAt = now
	return nil
}

// Release frees a busy box when its session leaves. A box with a pending
// cleaning reservation goes to reserved instead of free.
func (b *Box) Release(sessionID string, now time.Time) error {
	if err := b.require("release", BoxBusy); err != nil {
		return err
	}
	if b.OccupiedBy == nil || *b.OccupiedBy != sessionID {
		return fmt.Errorf("%w: box %d is not occupied by session %s", ErrInvalidState, b.Number, sessionID)
	}
	b.OccupiedBy = nil
	if b.CleaningReservedBy != nil {
		b.Status = BoxReserved
	} else {
		b.Status = BoxFree
	}
	b.UpdatedAt = now
	return nil
}

// SetMaintenance takes a free box out of service
func (b *Box) SetMaintenance(reason string, now time.Time) error {
	if err := b.require("set maintenance on", BoxFree); err != nil {
		return err
	}
	b.Status = BoxMaintenance
	b.MaintenanceReason = reason
	b.UpdatedAt = now
	return nil
}

// ClearMaintenance returns a box to service
func (b *Box) ClearMaintenance(now time.Time) error {
	if err := b.require("clear maintenance on", BoxMaintenance); err != nil {
		return err
	}
	b.Status = BoxFree
	b.MaintenanceReason = ""
	b.UpdatedAt = now
	return nil
}

// ReserveCleaning claims the box for the cleaner. A free box becomes
// reserved; a busy box stays busy until its session leaves. The caller must
// check the facility-wide slot with CheckCleaningSlot.
func (b *Box) ReserveCleaning(operatorID string, now time.Time) error {
	if err := b.require("reserve cleaning on", BoxFree, BoxBusy); err != nil {
		return err
	}
	if b.CleaningReservedBy != nil {
		return fmt.Errorf("%w: box %d already reserved for cleaning by %s", ErrInvalidState, b.Number, *b.CleaningReservedBy)
	}
	if b.Status == BoxFree {
		b.Status = BoxReserved
	}
	b.CleaningReservedBy = &operatorID
	b.CleaningReservedAt = &now
	b.UpdatedAt = now
	return nil
}

// StartCleaning begins cleaning a vacant box. Starting without a prior
// reservation is allowed on a free box.
func (b *Box) StartCleaning(operatorID string, now time.Time) error {
	switch {
	case b.Status == BoxFree && b.CleaningReservedBy == nil:
		b.CleaningReservedBy = &operatorID
		b.CleaningReservedAt = &now
	case b.Status == BoxReserved && b.CleaningReservedBy != nil:
	case b.Status == BoxBusy && b.CleaningReservedBy != nil:
		return fmt.Errorf("%w: box %d is still occupied", ErrInvalidState, b.Number)
	default:
		return fmt.Errorf("%w: cannot start cleaning box %d, status is %s", ErrInvalidState, b.Number, b.Status)
	}
	b.Status = BoxCleaning
	b.CleaningStartedAt = &now
	b.UpdatedAt = now
	return nil
}

// CancelCleaning drops a cleaning reservation that has not started
func (b *Box) CancelCleaning(now time.Time) error {
	if b.Status == BoxCleaning {
		return fmt.Errorf("%w: cleaning of box %d already started", ErrInvalidState, b.Number)
	}
	if b.CleaningReservedBy == nil {
		return fmt.Errorf("%w: box %d is not reserved for cleaning", ErrInvalidState, b.Number)
	}
	b.CleaningReservedBy = nil
	b.CleaningReservedAt = nil
	if b.Status == BoxReserved {
		b.Status = BoxFree
	}
	b.UpdatedAt = now
	return nil
}

// CompleteCleaning returns a cleaned box to service and frees the slot.
// A reservation that never started also completes: a vacant box goes back
// to free, an occupied one stays busy with its session.
func (b *Box) CompleteCleaning(now time.Time) error {
	switch {
	case b.Status == BoxCleaning:
		b.Status = BoxFree
	case b.Status == BoxReserved && b.CleaningReservedBy != nil:
		b.Status = BoxFree
	case b.Status == BoxBusy && b.CleaningReservedBy != nil:
	default:
		return fmt.Errorf("%w: cannot complete cleaning on box %d, status is %s", ErrInvalidState, b.Number, b.Status)
	}
	b.CleaningReservedBy = nil
	b.CleaningReservedAt = nil
	b.CleaningStartedAt = nil
	b.UpdatedAt = now
	return nil
}

// Validate checks the per-box status invariants
func (b *Box) Validate() error {
	if (b.Status == BoxBusy) != (b.OccupiedBy != nil) {
		return fmt.Errorf("%w: box %d in status %s has occupant %v", ErrInvalidState, b.Number, b.Status, b.OccupiedBy != nil)
	}
	if b.Status == BoxCleaning && b.CleaningStartedAt == nil {
		return fmt.Errorf("%w: box %d is cleaning without a start time", ErrInvalidState, b.Number)
	}
	return nil
}

// CheckCleaningSlot fails with ErrCleaningSlotTaken when a box other than
// targetID already holds the facility-wide cleaning slot.
func CheckCleaningSlot(boxes []Box, targetID string) error {
	for i := range boxes {
		if boxes[i].ID != targetID && boxes[i].HoldsCleaningSlot() {
			return fmt.Errorf("%w: box %d is being cleaned or reserved for cleaning", ErrCleaningSlotTaken, boxes[i].Number)
		}
	}
	return nil
}
