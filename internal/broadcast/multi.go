// internal/broadcast/multi.go
package broadcast

import (
	"context"
	"errors"
)

// Notifier matches lobby.Broadcaster without importing the lobby package.
type Notifier interface {
	NotifyLobbyClosed(ctx context.Context, pin, reason string) error
}

// Multi fans one notification out to several notifiers, typically the
// local WS hub plus the Redis publisher. All targets are attempted even
// when earlier ones fail.
type Multi []Notifier

// NotifyLobbyClosed delivers to every target and joins their errors.
func (m Multi) NotifyLobbyClosed(ctx context.Context, pin, reason string) error {
	var errs []error
	for _, n := range m {
		if err := n.NotifyLobbyClosed(ctx, pin, reason); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
