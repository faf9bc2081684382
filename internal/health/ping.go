package health

import "context"

// HealthPinger is implemented by components that expose a specialized
// health probe. HealthPing must return nil when the component is healthy.
type HealthPinger interface {
	HealthPing(ctx context.Context) error
}
