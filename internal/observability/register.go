package observability

import (
	"errors"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
)

// register adds c to reg, returning the already registered collector of the
// same type when a previous collector claimed the name.
func register[T prometheus.Collector](reg prometheus.Registerer, c T, name string) (T, error) {
	err := reg.Register(c)
	if err == nil {
		return c, nil
	}
	var zero T
	var are prometheus.AlreadyRegisteredError
	if !errors.As(err, &are) {
		return zero, err
	}
	if existing, ok := are.ExistingCollector.(T); ok {
		return existing, nil
	}
	return zero, fmt.Errorf("collector %s already registered with incompatible type", name)
}
