package anim

import (
	"encoding/json"

	"github.com/sirupsen/logrus"

	"github.com/mirozey/animvault/scripting"
)

// EventKeyframe is one timed marker on an event track. Instance is the
// spawned payload object (a pointer into the scripting runtime) and is
// owned exclusively by the keyframe: it must be destroyed when the
// asset unloads. Instance == nil with a non-empty TypeName marks an
// event whose type could not be resolved; Raw keeps the JSON payload
// so such events survive a load/save cycle untouched.
type EventKeyframe struct {
	Time     float32
	Duration float32
	TypeName string
	Instance interface{}
	Raw      []byte
}

func (k *EventKeyframe) Unresolved() bool {
	return k.Instance == nil && k.TypeName != ""
}

// resolve spawns the payload instance from the type registry and fills
// it from the JSON payload. Reports whether an instance was created;
// failure is logged, not fatal.
func (k *EventKeyframe) resolve(assetName string) bool {
	k.Instance = scripting.NewObject(k.TypeName)
	if k.Instance == nil {
		logrus.Errorf("Failed to spawn object of type %q for %q", k.TypeName, assetName)
		return false
	}
	if len(k.Raw) != 0 {
		if err := json.Unmarshal(k.Raw, k.Instance); err != nil {
			logrus.WithError(err).Errorf("Failed to decode event %q payload for %q", k.TypeName, assetName)
		}
	}
	return true
}

// destroy releases the payload instance, keeping TypeName and Raw.
func (k *EventKeyframe) destroy() {
	if k.Instance != nil {
		scripting.Destroy(k.Instance)
		k.Instance = nil
	}
}

// payload returns the JSON blob to persist for this event: live
// instances serialize their current state, unresolved ones re-emit the
// original payload verbatim.
func (k *EventKeyframe) payload(assetName string) []byte {
	if k.Instance == nil {
		return k.Raw
	}
	data, err := json.Marshal(k.Instance)
	if err != nil {
		logrus.WithError(err).Errorf("Failed to encode event %q payload for %q", k.TypeName, assetName)
		return k.Raw
	}
	return data
}

// EventTrack is a named ordered sequence of timed events. Keyframe
// times are in seconds.
type EventTrack struct {
	Name      string
	Keyframes []EventKeyframe
}
