package events

import (
	"bufio"
	"context"
	"io"

	"codeberg.org/mutker/opratectl/internal/display"
	"codeberg.org/mutker/opratectl/internal/errors"
	"codeberg.org/mutker/opratectl/internal/logger"
	"codeberg.org/mutker/opratectl/internal/oprate"
)

// Panel is the display side of a dispatcher.
type Panel interface {
	SetActiveConfig(id display.ConfigID) error
	HandleTargetOperationRate()
}

// LumaSource accepts simulated luma values.
type LumaSource interface {
	SetLuma(luma float64)
}

// Dispatcher applies events to a rate policy and its panel.
type Dispatcher struct {
	policy oprate.RatePolicy
	panel  Panel
	luma   LumaSource
	status func()
	logger logger.Logger
}

// NewDispatcher builds a dispatcher. luma and status may be nil.
func NewDispatcher(policy oprate.RatePolicy, panel Panel, luma LumaSource, status func(), log logger.Logger) *Dispatcher {
	return &Dispatcher{
		policy: policy,
		panel:  panel,
		luma:   luma,
		status: status,
		logger: log,
	}
}

// Dispatch applies one event. Signals that may move the target rate are
// followed by a panel update.
func (d *Dispatcher) Dispatch(ev Event) error {
	errFactory := errors.New()

	switch ev.Kind {
	case KindPower:
		d.policy.OnPowerMode(ev.Power)
		d.panel.HandleTargetOperationRate()

	case KindConfig:
		if err := d.panel.SetActiveConfig(ev.Config); err != nil {
			return errFactory.Wrap(ErrDispatch, err)
		}
		d.policy.OnConfig(ev.Config)
		d.panel.HandleTargetOperationRate()

	case KindBrightness:
		d.policy.OnBrightness(ev.Value)
		d.panel.HandleTargetOperationRate()

	case KindPeak:
		d.policy.OnPeakRefreshRate(ev.Value)

	case KindLowBattery:
		d.policy.OnLowBatteryMode(ev.Enabled)

	case KindLuma:
		if d.luma == nil {
			return errFactory.New(ErrNoLumaSource)
		}
		d.luma.SetLuma(ev.Luma)

	case KindStatus:
		if d.status != nil {
			d.status()
		}

	default:
		return errFactory.WithData(ErrUnknownCommand, ev.Kind)
	}

	d.logger.Debug().
		Str("event", ev.Kind.String()).
		Int("target", d.policy.TargetOperationRate()).
		Msg("Event dispatched")

	return nil
}

// Run reads events from r until EOF or ctx is done. Malformed lines are
// logged and skipped.
func (d *Dispatcher) Run(ctx context.Context, r io.Reader) error {
	lines := make(chan string)
	scanErr := make(chan error, 1)

	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(r)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-ctx.Done():
				return
			}
		}
		scanErr <- scanner.Err()
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case line, open := <-lines:
			if !open {
				select {
				case err := <-scanErr:
					if err != nil {
						return errors.New().Wrap(ErrParseEvent, err)
					}
				default:
				}
				return nil
			}
			d.handleLine(line)
		}
	}
}

func (d *Dispatcher) handleLine(line string) {
	ev, ok, err := Parse(line)
	if err != nil {
		d.logger.Warn().Err(err).Str("line", line).Msg("Ignoring malformed event")
		return
	}
	if !ok {
		return
	}

	if err := d.Dispatch(ev); err != nil {
		d.logger.Warn().Err(err).Str("line", line).Msg("Failed to dispatch event")
	}
}
