package notifier

import (
	"context"
	"errors"

	"github.com/gdg-garage/ecsnova-registration-api/internal/models"
)

// Notifier is told about every registration that was stored.
type Notifier interface {
	NotifyRegistration(ctx context.Context, registration models.Registration) error
}

// Multi fans a notification out to several notifiers. Every notifier is
// called even when an earlier one fails.
type Multi []Notifier

func (m Multi) NotifyRegistration(ctx context.Context, registration models.Registration) error {
	var errs []error
	for _, n := range m {
		if err := n.NotifyRegistration(ctx, registration); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
