package dedup

import (
	"github.com/novelshelf/novelshelf-server/internal/errors"
	"github.com/novelshelf/novelshelf-server/internal/filename"
)

// Group confidence values, derived deterministically from strength.
const (
	ConfidenceStrong = 1.0
	ConfidenceWeak   = 0.6
)

// MaxWorkers caps the anchor-hash worker pool.
const MaxWorkers = 8

// progressEvery is the completion cadence of anchor-hash progress callbacks.
const progressEvery = 32

// Options configures a detection run.
type Options struct {
	// NearThreshold is the minimum simhash similarity for a NEAR relation.
	NearThreshold float64

	// Feature toggles per relation class.
	EnableExact       bool
	EnableNear        bool
	EnableContainment bool
	EnableVersion     bool

	// Workers caps the anchor-hash pool; 0 selects the number of CPUs.
	Workers int

	// LowParseConfidence is the filename-parse confidence below which a
	// record cannot win keeper selection against a reliable parse.
	LowParseConfidence float64
}

// DefaultOptions returns the standard detection configuration.
func DefaultOptions() Options {
	return Options{
		NearThreshold:      0.90,
		EnableExact:        true,
		EnableNear:         true,
		EnableContainment:  true,
		EnableVersion:      true,
		LowParseConfidence: filename.LowConfidenceThreshold,
	}
}

// Validate checks option ranges.
func (o Options) Validate() error {
	if o.NearThreshold < 0 || o.NearThreshold > 1 {
		return errors.Validationf("near threshold %f outside [0,1]", o.NearThreshold)
	}
	if o.LowParseConfidence < 0 || o.LowParseConfidence > 1 {
		return errors.Validationf("low parse confidence %f outside [0,1]", o.LowParseConfidence)
	}
	if o.Workers < 0 {
		return errors.Validationf("workers %d is negative", o.Workers)
	}
	return nil
}
