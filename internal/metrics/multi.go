package metrics

import (
	"context"

	"codeberg.org/mutker/opratectl/internal/errors"
)

type multiCollector []Collector

// Multi fans snapshots out to every collector. Record and Close visit all
// collectors and return the first error.
func Multi(collectors ...Collector) Collector {
	switch len(collectors) {
	case 0:
		return Noop()
	case 1:
		return collectors[0]
	}
	return multiCollector(collectors)
}

func (m multiCollector) Record(ctx context.Context, snapshot *DecisionSnapshot) error {
	var first error
	for _, c := range m {
		if err := c.Record(ctx, snapshot); err != nil && first == nil {
			first = err
		}
	}
	return first
}

func (m multiCollector) Close() error {
	var first error
	for _, c := range m {
		if err := c.Close(); err != nil && first == nil {
			first = errors.New().Wrap(ErrServiceShutdown, err)
		}
	}
	return first
}
