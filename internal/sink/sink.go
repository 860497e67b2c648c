// Package sink provides downstream consumers for delivered token events.
package sink

import (
	"context"
	"errors"

	"solana-token-scanner/internal/domain"
	"solana-token-scanner/internal/hub"
)

// Fanout calls every consumer in order and joins their errors. A failing
// consumer does not prevent later ones from running.
type Fanout []hub.Consumer

// Compile-time interface check.
var _ hub.Consumer = Fanout(nil)

// OnTokenEvent forwards ev to each consumer.
func (f Fanout) OnTokenEvent(ctx context.Context, ev domain.TokenEvent) error {
	var errs []error
	for _, c := range f {
		if c == nil {
			continue
		}
		if err := c.OnTokenEvent(ctx, ev); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
