// Package events parses the daemon's line protocol and feeds the decoded
// signals into a rate policy.
//
//	power on|off|doze|doze_suspend
//	config <id>
//	brightness <dbv>
//	peak <hz>
//	lowbattery on|off
//	luma <value>
//	status
//
// Blank lines and lines starting with # are ignored.
package events

import (
	"math"
	"strconv"
	"strings"

	"codeberg.org/mutker/opratectl/internal/display"
	"codeberg.org/mutker/opratectl/internal/errors"
	"codeberg.org/mutker/opratectl/internal/oprate"
)

type Kind int

const (
	KindPower Kind = iota
	KindConfig
	KindBrightness
	KindPeak
	KindLowBattery
	KindLuma
	KindStatus
)

var kindNames = map[string]Kind{
	"power":      KindPower,
	"config":     KindConfig,
	"brightness": KindBrightness,
	"peak":       KindPeak,
	"lowbattery": KindLowBattery,
	"luma":       KindLuma,
	"status":     KindStatus,
}

func (k Kind) String() string {
	for name, kind := range kindNames {
		if kind == k {
			return name
		}
	}
	return "unknown"
}

// Event is one decoded line. Only the field matching Kind is set.
type Event struct {
	Kind    Kind
	Power   oprate.PowerMode
	Config  display.ConfigID
	Value   int
	Enabled bool
	Luma    float64
}

// Parse decodes one line. ok is false for blank and comment lines.
func Parse(line string) (ev Event, ok bool, err error) {
	errFactory := errors.New()

	line = strings.TrimSpace(line)
	if line == "" || strings.HasPrefix(line, "#") {
		return Event{}, false, nil
	}

	fields := strings.Fields(line)
	kind, known := kindNames[strings.ToLower(fields[0])]
	if !known {
		return Event{}, false, errFactory.WithData(ErrUnknownCommand, fields[0])
	}

	args := fields[1:]
	wantArgs := 1
	if kind == KindStatus {
		wantArgs = 0
	}
	if len(args) != wantArgs {
		return Event{}, false, errFactory.WithData(ErrParseEvent, line)
	}

	ev = Event{Kind: kind}
	switch kind {
	case KindPower:
		mode, valid := oprate.ParsePowerMode(args[0])
		if !valid {
			return Event{}, false, errFactory.WithData(ErrParseEvent, line)
		}
		ev.Power = mode

	case KindConfig:
		id, err := strconv.ParseUint(args[0], 10, 32)
		if err != nil {
			return Event{}, false, errFactory.Wrap(ErrParseEvent, err)
		}
		ev.Config = display.ConfigID(id)

	case KindBrightness, KindPeak:
		v, err := strconv.Atoi(args[0])
		if err != nil || v < 0 {
			return Event{}, false, errFactory.WithData(ErrParseEvent, line)
		}
		ev.Value = v

	case KindLowBattery:
		switch strings.ToLower(args[0]) {
		case "on", "true", "1":
			ev.Enabled = true
		case "off", "false", "0":
		default:
			return Event{}, false, errFactory.WithData(ErrParseEvent, line)
		}

	case KindLuma:
		v, err := strconv.ParseFloat(args[0], 64)
		if err != nil || math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
			return Event{}, false, errFactory.WithData(ErrParseEvent, line)
		}
		ev.Luma = v
	}

	return ev, true, nil
}
