package anim

import (
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/mirozey/animvault/curve"
	"github.com/mirozey/animvault/stream"
	"github.com/mirozey/animvault/vault"
)

// Chunk 0 header tags. Both modern tags share the full meta layout;
// event tracks exist from formatEvents on. Anything else is treated as
// the legacy duration+fps-only header, without consuming a version
// field.
//
// Known ambiguity, kept for format compatibility: for legacy chunks
// the leading int32 is the low dword of the duration double, so a
// legacy file could numerically collide with a recognized tag and
// misparse. Dispatch and boundary values (100, 101, else-legacy) are
// intentionally unchanged.
const (
	formatBase   = 100
	formatEvents = 101
)

// String locks of the persisted chunk.
const (
	rootNodeNameLock = 13
	trackNameLock    = 172
	typeNameLock     = 17
)

// zeroTolerance rejects degenerate duration/fps on load.
const zeroTolerance = 1e-6

var saveWaitTimeout = 30 * time.Second

// Load decodes chunk 0 into Data and Events. Called by the vault
// loader between BeginLoad and EndLoad.
func (a *Animation) Load() error {
	a.Locker.Lock()
	defer a.Locker.Unlock()

	data := a.GetChunk(0)
	if data == nil {
		return errors.Wrapf(ErrMissingDataChunk, "asset %q", a.Name())
	}
	rs := stream.NewReadStream(data)

	headerVersion, err := rs.PeekInt32()
	if err != nil {
		return errors.Wrapf(ErrInvalidHeader, "asset %q: %v", a.Name(), err)
	}
	switch headerVersion {
	case formatBase, formatEvents:
		rs.ReadInt32() // consume the tag
		if a.Data.Duration, err = rs.ReadFloat64(); err != nil {
			return errors.Wrapf(ErrInvalidHeader, "asset %q: %v", a.Name(), err)
		}
		if a.Data.FramesPerSecond, err = rs.ReadFloat64(); err != nil {
			return errors.Wrapf(ErrInvalidHeader, "asset %q: %v", a.Name(), err)
		}
		if a.Data.EnableRootMotion, err = rs.ReadBool(); err != nil {
			return errors.Wrapf(ErrInvalidHeader, "asset %q: %v", a.Name(), err)
		}
		if a.Data.RootNodeName, err = rs.ReadString(rootNodeNameLock); err != nil {
			return errors.Wrapf(ErrInvalidHeader, "asset %q: %v", a.Name(), err)
		}
	default:
		// Legacy meta: duration and fps only, no version field.
		if a.Data.Duration, err = rs.ReadFloat64(); err != nil {
			return errors.Wrapf(ErrInvalidHeader, "asset %q: %v", a.Name(), err)
		}
		if a.Data.FramesPerSecond, err = rs.ReadFloat64(); err != nil {
			return errors.Wrapf(ErrInvalidHeader, "asset %q: %v", a.Name(), err)
		}
	}
	if a.Data.Duration < zeroTolerance || a.Data.FramesPerSecond < zeroTolerance {
		logrus.Warnf("Invalid animation info in %q", a.Name())
		return errors.Wrapf(ErrInvalidHeader, "asset %q", a.Name())
	}

	channelsCount, err := rs.ReadInt32()
	if err != nil {
		return errors.Wrapf(ErrInvalidHeader, "asset %q: %v", a.Name(), err)
	}
	// A channel takes at least a name length and three curve headers.
	if channelsCount < 0 || int(channelsCount)*28 > rs.Remaining() {
		return errors.Wrapf(ErrInvalidHeader, "asset %q: channels count %d", a.Name(), channelsCount)
	}
	a.Data.Channels = make([]Channel, channelsCount)
	for i := range a.Data.Channels {
		channel := &a.Data.Channels[i]
		if channel.NodeName, err = rs.ReadString(trackNameLock); err != nil {
			return errors.Wrapf(ErrCurveDecode, "asset %q channel %d: %v", a.Name(), i, err)
		}
		failed := curve.Deserialize(rs, &channel.Position) != nil
		failed = curve.Deserialize(rs, &channel.Rotation) != nil || failed
		failed = curve.Deserialize(rs, &channel.Scale) != nil || failed
		if failed {
			logrus.Warnf("Failed to deserialize the animation curve data of %q", a.Name())
			return errors.Wrapf(ErrCurveDecode, "asset %q channel %q", a.Name(), channel.NodeName)
		}
	}

	if headerVersion >= formatEvents && rs.Remaining() > 0 {
		if err := a.loadEventsLocked(rs); err != nil {
			return err
		}
	}

	return nil
}

func (a *Animation) loadEventsLocked(rs *stream.ReadStream) error {
	tracksCount, err := rs.ReadInt32()
	if err != nil {
		return errors.Wrapf(ErrInvalidHeader, "asset %q: %v", a.Name(), err)
	}
	// A track takes at least a name length and an events count.
	if tracksCount < 0 || int(tracksCount)*8 > rs.Remaining() {
		return errors.Wrapf(ErrInvalidHeader, "asset %q: event tracks count %d", a.Name(), tracksCount)
	}
	a.Events = make([]EventTrack, tracksCount)
	for i := range a.Events {
		track := &a.Events[i]
		if track.Name, err = rs.ReadString(trackNameLock); err != nil {
			return errors.Wrapf(ErrInvalidHeader, "asset %q event track %d: %v", a.Name(), i, err)
		}
		eventsCount, err := rs.ReadInt32()
		// An event takes at least two floats, a type name length and a
		// blob length.
		if err != nil || eventsCount < 0 || int(eventsCount)*16 > rs.Remaining() {
			return errors.Wrapf(ErrInvalidHeader, "asset %q event track %q", a.Name(), track.Name)
		}
		track.Keyframes = make([]EventKeyframe, eventsCount)
		for j := range track.Keyframes {
			k := &track.Keyframes[j]
			if k.Time, err = rs.ReadFloat32(); err != nil {
				return errors.Wrapf(ErrInvalidHeader, "asset %q event track %q: %v", a.Name(), track.Name, err)
			}
			if k.Duration, err = rs.ReadFloat32(); err != nil {
				return errors.Wrapf(ErrInvalidHeader, "asset %q event track %q: %v", a.Name(), track.Name, err)
			}
			if k.TypeName, err = rs.ReadStringANSI(typeNameLock); err != nil {
				return errors.Wrapf(ErrInvalidHeader, "asset %q event track %q: %v", a.Name(), track.Name, err)
			}
			if k.Raw, err = rs.ReadBlob(); err != nil {
				return errors.Wrapf(ErrInvalidHeader, "asset %q event %q: %v", a.Name(), k.TypeName, err)
			}
			if k.resolve(a.Name()) {
				a.registerForScriptingReloadLocked()
			}
		}
	}
	return nil
}

// encodeLocked serializes Data and Events in the current format.
// Caller holds Locker.
func (a *Animation) encodeLocked() []byte {
	ws := stream.NewWriteStream()

	ws.WriteInt32(formatEvents)
	ws.WriteFloat64(a.Data.Duration)
	ws.WriteFloat64(a.Data.FramesPerSecond)
	ws.WriteBool(a.Data.EnableRootMotion)
	ws.WriteString(a.Data.RootNodeName, rootNodeNameLock)

	ws.WriteInt32(int32(len(a.Data.Channels)))
	for i := range a.Data.Channels {
		channel := &a.Data.Channels[i]
		ws.WriteString(channel.NodeName, trackNameLock)
		curve.Serialize(ws, &channel.Position)
		curve.Serialize(ws, &channel.Rotation)
		curve.Serialize(ws, &channel.Scale)
	}

	ws.WriteInt32(int32(len(a.Events)))
	for i := range a.Events {
		track := &a.Events[i]
		ws.WriteString(track.Name, trackNameLock)
		ws.WriteInt32(int32(len(track.Keyframes)))
		for j := range track.Keyframes {
			k := &track.Keyframes[j]
			ws.WriteFloat32(k.Time)
			ws.WriteFloat32(k.Duration)
			ws.WriteStringANSI(k.TypeName, typeNameLock)
			ws.WriteBlob(k.payload(a.Name()))
		}
	}

	return ws.Bytes()
}

// Save serializes the clip into chunk 0 and persists the asset through
// its source.
func (a *Animation) Save() error {
	return a.SaveTo("")
}

// SaveTo persists to the given path instead of the asset's current
// source. An empty path keeps the current source.
func (a *Animation) SaveTo(path string) error {
	// Proceed when the previous load failed outright; only an
	// in-flight load blocks saving.
	if a.LastLoadFailed() {
		logrus.Warnf("Saving asset %q that failed to load", a.Name())
	} else if !a.WaitForLoaded(saveWaitTimeout) {
		logrus.Errorf("Asset %q loading failed or timed out, cannot save it", a.Name())
		return errors.Wrapf(ErrSaveBlocked, "asset %q", a.Name())
	}

	a.Locker.Lock()
	defer a.Locker.Unlock()

	a.SetChunk(0, a.encodeLocked())

	src := a.Source()
	if path != "" {
		src = vault.NewFileSource(path)
	}
	if src == nil {
		return errors.Wrapf(ErrPersist, "asset %q has no source", a.Name())
	}
	if err := vault.SaveAsset(a, src); err != nil {
		logrus.WithError(err).Errorf("Cannot save %q", a.Name())
		return errors.Wrapf(ErrPersist, "asset %q: %v", a.Name(), err)
	}
	return nil
}

var _ vault.Instance = (*Animation)(nil)
