package domain

import "github.com/google/uuid"

// NewID returns a time-ordered UUIDv7. Ids generated by one process sort in
// creation order, which breaks ties between records stamped with the same instant.
func NewID() string {
	return uuid.Must(uuid.NewV7()).String()
}
