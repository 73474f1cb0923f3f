package domain

import "fmt"

// ServiceType is the kind of service a box provides and a session requests
type ServiceType string

const (
	ServiceAirDry ServiceType = "air_dry"
	ServiceVacuum ServiceType = "vacuum"
	ServiceWash   ServiceType = "wash"
)

// ServiceTypes lists every known service type in display order.
var ServiceTypes = []ServiceType{ServiceWash, ServiceAirDry, ServiceVacuum}

// ParseServiceType validates a service type name
func ParseServiceType(s string) (ServiceType, error) {
	for _, st := range ServiceTypes {
		if string(st) == s {
			return st, nil
		}
	}
	return "", fmt.Errorf("%w: unknown service type %q", ErrInvalidInput, s)
}

// OffersChemistry reports whether chemistry can be purchased for the service.
// Only wash sessions may use chemistry.
func (st ServiceType) OffersChemistry() bool {
	return st == ServiceWash
}
