package yolodetect

import "go.uber.org/zap"

// Option configures a Detector
type Option func(*Detector)

// WithLogger sets the logger the Detector reports load, unload and
// detection events to
func WithLogger(log *zap.Logger) Option {
	return func(d *Detector) {
		if log != nil {
			d.log = log
		}
	}
}
