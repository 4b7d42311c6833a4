package histogram

import (
	"fmt"

	"codeberg.org/mutker/opratectl/internal/errors"
)

const (
	// ErrTransport marks failures reaching the sensor service, as opposed to
	// errors reported by the sensor itself.
	ErrTransport      = errors.ErrorCode("histogram_transport_failed")
	ErrRegisterFailed = errors.ErrorCode("histogram_register_failed")
	ErrUnregister     = errors.ErrorCode("histogram_unregister_failed")
	ErrInvalidConfig  = errors.ErrorCode("histogram_invalid_config")
)

// SensorErrorCode is the closed set of errors the sensor reports.
type SensorErrorCode int

const (
	SensorErrNone SensorErrorCode = iota
	SensorErrBadROI
	SensorErrBadWeight
	SensorErrBadPosition
	SensorErrBadPriority
	SensorErrEnableHist
	SensorErrDisableHist
	SensorErrBadHistData
	SensorErrDRMProp
	SensorErrAPIDeprecated
	SensorErrBadToken
	SensorErrConfigHist
	SensorErrNoChannelAvailable
	SensorErrTokenAlreadyRegistered
)

var sensorErrorNames = map[SensorErrorCode]string{
	SensorErrNone:                   "none",
	SensorErrBadROI:                 "bad_roi",
	SensorErrBadWeight:              "bad_weight",
	SensorErrBadPosition:            "bad_position",
	SensorErrBadPriority:            "bad_priority",
	SensorErrEnableHist:             "enable_hist_error",
	SensorErrDisableHist:            "disable_hist_error",
	SensorErrBadHistData:            "bad_hist_data",
	SensorErrDRMProp:                "drm_prop_error",
	SensorErrAPIDeprecated:          "api_deprecated",
	SensorErrBadToken:               "bad_token",
	SensorErrConfigHist:             "config_hist_error",
	SensorErrNoChannelAvailable:     "no_channel_available",
	SensorErrTokenAlreadyRegistered: "token_already_registered",
}

func (c SensorErrorCode) String() string {
	if name, ok := sensorErrorNames[c]; ok {
		return name
	}
	return fmt.Sprintf("sensor_error_%d", int(c))
}

// SensorError is an error reported by the histogram sensor.
type SensorError struct {
	Code SensorErrorCode
}

func (e *SensorError) Error() string {
	return "histogram sensor error: " + e.Code.String()
}

// NewSensorError returns a sensor-reported error with the given code.
func NewSensorError(code SensorErrorCode) error {
	return &SensorError{Code: code}
}

// SensorErrorCodeOf extracts the sensor-reported code from err.
func SensorErrorCodeOf(err error) (SensorErrorCode, bool) {
	var se *SensorError
	if errors.As(err, &se) {
		return se.Code, true
	}
	return SensorErrNone, false
}

// IsTransportError reports whether err is a transport-level failure.
func IsTransportError(err error) bool {
	return errors.HasCode(err, ErrTransport)
}
