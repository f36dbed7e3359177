package domain

import (
	"context"
	"fmt"
)

// PortalClient fetches measured usage from a live metering-portal session.
// Implementations must not persist the credentials anywhere durable, and on
// timeout or a non-success response must fail closed with an error rather
// than a fabricated zero.
type PortalClient interface {
	FetchUsage(ctx context.Context, username, password string) (PortalUsage, error)
}

// AuthError marks a portal rejection of the supplied credentials, as opposed
// to a transport or provider failure. Callers map it to a client error.
type AuthError struct {
	Status int
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("portal rejected credentials (status %d)", e.Status)
}
