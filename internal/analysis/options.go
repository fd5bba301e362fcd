package analysis

import "github.com/rs/zerolog"

// Options tunes the engine. The zero value is usable; unset fields fall back
// to DefaultOptions.
type Options struct {
	// DateSampleSize bounds how many non-null cells of a text column are
	// sampled during date detection.
	DateSampleSize int
	// Logger receives one debug event per report. Nil disables engine logging.
	Logger *zerolog.Logger
}

func DefaultOptions() Options {
	return Options{DateSampleSize: 300}
}

func (o Options) withDefaults() Options {
	d := DefaultOptions()
	if o.DateSampleSize <= 0 {
		o.DateSampleSize = d.DateSampleSize
	}
	if o.Logger == nil {
		nop := zerolog.Nop()
		o.Logger = &nop
	}
	return o
}
