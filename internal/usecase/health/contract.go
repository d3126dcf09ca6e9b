package health

import "context"

// StorePinger checks Redis availability.
type StorePinger interface {
	Ping(ctx context.Context) error
}

// ModelChecker checks model provider availability.
type ModelChecker interface {
	HealthCheck(ctx context.Context) error
}
