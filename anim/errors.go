package anim

import "github.com/pkg/errors"

// Load/save failure taxonomy. Codec failures abort the whole
// operation; per-event instantiation failures are only logged and
// leave that event unresolved.
var (
	ErrMissingDataChunk = errors.New("missing animation data chunk")
	ErrInvalidHeader    = errors.New("invalid animation info")
	ErrCurveDecode      = errors.New("failed to deserialize the animation curve data")
	ErrTrackLinkage     = errors.New("invalid animation channel data track parent linkage")
	ErrSaveBlocked      = errors.New("asset load is pending, cannot save")
	ErrPersist          = errors.New("failed to persist asset")
)
