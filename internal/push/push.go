// Package push binds the authenticated teacher to a push-notification
// identity.
package push

import (
	"context"
)

// Notifier associates an external user id with the push provider. Calls
// are best effort: callers log failures and carry on.
type Notifier interface {
	Login(ctx context.Context, externalID string) error
}

// Nop is a Notifier that does nothing. It is used when no push provider is
// configured.
type Nop struct{}

// Login implements Notifier.
func (Nop) Login(context.Context, string) error {
	return nil
}
