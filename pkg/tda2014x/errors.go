package tda2014x

import "errors"

var (
	// ErrVCOCalibration is returned when the VCO power-on calibration never
	// reports done
	ErrVCOCalibration = errors.New("VCO calibration did not complete")

	// ErrChannelChange is returned when the VCO does not confirm a channel change
	ErrChannelChange = errors.New("VCO channel change did not complete")

	// ErrUnsupportedSystem is returned for terrestrial requests; the tuner
	// only covers the satellite IF band
	ErrUnsupportedSystem = errors.New("delivery system not supported by tuner")
)
