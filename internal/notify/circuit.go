package notify

import (
	"context"

	"go.uber.org/zap"

	"github.com/metime/identity/pkg/circuit"
)

// CircuitNotifier wraps another Notifier with per-channel circuit breakers.
// Each identifier field gets its own breaker, so a failing email transport
// does not block SMS delivery.
type CircuitNotifier struct {
	inner    Notifier
	breakers *circuit.Registry
}

func NewCircuitNotifier(inner Notifier, config circuit.Config, log *zap.Logger) *CircuitNotifier {
	return &CircuitNotifier{
		inner:    inner,
		breakers: circuit.NewRegistry(config, log),
	}
}

// Send delivers through the channel breaker. While the breaker is open the
// send fails fast with circuit.ErrCircuitOpen.
func (n *CircuitNotifier) Send(ctx context.Context, message Message) error {
	breaker := n.breakers.GetOrCreate(string(message.Field))
	return breaker.Execute(func() error {
		return n.inner.Send(ctx, message)
	})
}
