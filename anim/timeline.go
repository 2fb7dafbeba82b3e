package anim

import (
	"fmt"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/mirozey/animvault/stream"
)

// Editor timeline wire format, separate from the persisted chunk.
// Track records: type byte, flags byte, parent index int32, children
// count int32, name, RGBA color; then a type-specific payload. Curve
// data track times are in seconds (converted from frame units on every
// boundary crossing), event track times are in seconds already.
const (
	timelineVersion           = 4
	timelineVersionDeprecated = 3 // accepted until its stated expiry

	trackTypeChannel     = 17
	trackTypeChannelData = 18
	trackTypeEvent       = 19

	curveDataPosition = 0
	curveDataRotation = 1
	curveDataScale    = 2

	timelineStringLock   = -13
	timelineTypeNameLock = 13

	colorWhite = 0xffffffff
)

func writeVec3(ws *stream.WriteStream, v mgl32.Vec3) {
	ws.WriteFloat32(v.X())
	ws.WriteFloat32(v.Y())
	ws.WriteFloat32(v.Z())
}

func readVec3(rs *stream.ReadStream) (v mgl32.Vec3, err error) {
	for i := 0; i < 3; i++ {
		if v[i], err = rs.ReadFloat32(); err != nil {
			return v, err
		}
	}
	return v, nil
}

func writeQuat(ws *stream.WriteStream, q mgl32.Quat) {
	writeVec3(ws, q.V)
	ws.WriteFloat32(q.W)
}

func readQuat(rs *stream.ReadStream) (q mgl32.Quat, err error) {
	if q.V, err = readVec3(rs); err != nil {
		return q, err
	}
	q.W, err = rs.ReadFloat32()
	return q, err
}

func (c *Channel) childTracksCount() int32 {
	count := int32(0)
	if c.Position.HasItems() {
		count++
	}
	if c.Rotation.HasItems() {
		count++
	}
	if c.Scale.HasItems() {
		count++
	}
	return count
}

func writeTrackHeader(ws *stream.WriteStream, trackType byte, parentIndex, childrenCount int32, name string) {
	ws.WriteUint8(trackType)
	ws.WriteUint8(0) // flags
	ws.WriteInt32(parentIndex)
	ws.WriteInt32(childrenCount)
	ws.WriteString(name, timelineStringLock)
	ws.WriteUint32(colorWhite)
}

// ExportTimeline converts the clip into the generic editor track list:
// one object track per channel with its nonempty curves as child data
// tracks (parent linkage by track index), then one track per event
// track. Empty curves produce no child track.
func (a *Animation) ExportTimeline() ([]byte, error) {
	if !a.IsLoaded() {
		return nil, errors.Errorf("Asset %q is not loaded", a.Name())
	}

	a.Locker.Lock()
	defer a.Locker.Unlock()

	ws := stream.NewWriteStream()
	ws.WriteInt32(timelineVersion)

	fps := float32(a.Data.FramesPerSecond)
	fpsInv := 1.0 / fps
	ws.WriteFloat32(fps)
	ws.WriteInt32(int32(a.Data.Duration))

	tracksCount := int32(len(a.Data.Channels) + len(a.Events))
	for i := range a.Data.Channels {
		tracksCount += a.Data.Channels[i].childTracksCount()
	}
	ws.WriteInt32(tracksCount)

	trackIndex := int32(0)
	for i := range a.Data.Channels {
		channel := &a.Data.Channels[i]

		writeTrackHeader(ws, trackTypeChannel, -1, channel.childTracksCount(), channel.NodeName)
		parentIndex := trackIndex
		trackIndex++

		if channel.Position.HasItems() {
			writeTrackHeader(ws, trackTypeChannelData, parentIndex, 0, fmt.Sprintf("Track_%d_Position", i))
			ws.WriteUint8(curveDataPosition)
			ws.WriteInt32(int32(channel.Position.Count()))
			for _, k := range channel.Position.Keyframes() {
				ws.WriteFloat32(k.Time * fpsInv)
				writeVec3(ws, k.Value)
			}
			trackIndex++
		}
		if channel.Rotation.HasItems() {
			writeTrackHeader(ws, trackTypeChannelData, parentIndex, 0, fmt.Sprintf("Track_%d_Rotation", i))
			ws.WriteUint8(curveDataRotation)
			ws.WriteInt32(int32(channel.Rotation.Count()))
			for _, k := range channel.Rotation.Keyframes() {
				ws.WriteFloat32(k.Time * fpsInv)
				writeQuat(ws, k.Value)
			}
			trackIndex++
		}
		if channel.Scale.HasItems() {
			writeTrackHeader(ws, trackTypeChannelData, parentIndex, 0, fmt.Sprintf("Track_%d_Scale", i))
			ws.WriteUint8(curveDataScale)
			ws.WriteInt32(int32(channel.Scale.Count()))
			for _, k := range channel.Scale.Keyframes() {
				ws.WriteFloat32(k.Time * fpsInv)
				writeVec3(ws, k.Value)
			}
			trackIndex++
		}
	}

	for i := range a.Events {
		track := &a.Events[i]
		writeTrackHeader(ws, trackTypeEvent, -1, 0, track.Name)
		ws.WriteInt32(int32(len(track.Keyframes)))
		for j := range track.Keyframes {
			k := &track.Keyframes[j]
			ws.WriteFloat32(k.Time)
			ws.WriteFloat32(k.Duration)
			ws.WriteStringANSI(k.TypeName, timelineTypeNameLock)
			ws.WriteBlob(k.payload(a.Name()))
		}
	}

	return ws.Bytes(), nil
}

// ImportTimeline rebuilds the clip from an editor track list and saves
// the asset. Channel linkage uses the explicit parent-index field of
// each data track; a dangling parent aborts the whole import.
func (a *Animation) ImportTimeline(data []byte) error {
	if a.LastLoadFailed() {
		logrus.Warnf("Saving asset %q that failed to load", a.Name())
	} else if !a.WaitForLoaded(saveWaitTimeout) {
		logrus.Errorf("Asset %q loading failed or timed out, cannot save it", a.Name())
		return errors.Wrapf(ErrSaveBlocked, "asset %q", a.Name())
	}

	if err := a.importTimelineData(data); err != nil {
		return err
	}
	return a.Save()
}

func (a *Animation) importTimelineData(data []byte) error {
	a.Locker.Lock()
	defer a.Locker.Unlock()

	rs := stream.NewReadStream(data)
	version, err := rs.ReadInt32()
	if err != nil {
		return errors.Wrapf(ErrInvalidHeader, "asset %q: %v", a.Name(), err)
	}
	switch version {
	case timelineVersionDeprecated, timelineVersion:
	default:
		logrus.Warnf("Unknown timeline version %d", version)
		return errors.Wrapf(ErrInvalidHeader, "unknown timeline version %d", version)
	}

	fps, err := rs.ReadFloat32()
	if err != nil {
		return errors.Wrapf(ErrInvalidHeader, "asset %q: %v", a.Name(), err)
	}
	duration, err := rs.ReadInt32()
	if err != nil {
		return errors.Wrapf(ErrInvalidHeader, "asset %q: %v", a.Name(), err)
	}
	tracksCount, err := rs.ReadInt32()
	// A track record takes at least two bytes, three int32 fields and a
	// name length.
	if err != nil || tracksCount < 0 || int(tracksCount)*18 > rs.Remaining() {
		return errors.Wrapf(ErrInvalidHeader, "asset %q: bad tracks count", a.Name())
	}
	a.Data.FramesPerSecond = float64(fps)
	a.Data.Duration = float64(duration)

	for i := range a.Events {
		track := &a.Events[i]
		for j := range track.Keyframes {
			track.Keyframes[j].destroy()
		}
	}
	a.Data.Channels = nil
	a.Events = nil

	// Track index in the stream -> channel index, for data track
	// parent linkage.
	trackToChannel := make(map[int32]int32, tracksCount)

	for trackIndex := int32(0); trackIndex < tracksCount; trackIndex++ {
		trackType, err := rs.ReadUint8()
		if err != nil {
			return errors.Wrapf(ErrInvalidHeader, "asset %q track %d: %v", a.Name(), trackIndex, err)
		}
		if _, err = rs.ReadUint8(); err != nil { // flags
			return errors.Wrapf(ErrInvalidHeader, "asset %q track %d: %v", a.Name(), trackIndex, err)
		}
		parentIndex, err := rs.ReadInt32()
		if err != nil {
			return errors.Wrapf(ErrInvalidHeader, "asset %q track %d: %v", a.Name(), trackIndex, err)
		}
		if _, err = rs.ReadInt32(); err != nil { // children count
			return errors.Wrapf(ErrInvalidHeader, "asset %q track %d: %v", a.Name(), trackIndex, err)
		}
		name, err := rs.ReadString(timelineStringLock)
		if err != nil {
			return errors.Wrapf(ErrInvalidHeader, "asset %q track %d: %v", a.Name(), trackIndex, err)
		}
		if _, err = rs.ReadUint32(); err != nil { // color
			return errors.Wrapf(ErrInvalidHeader, "asset %q track %d: %v", a.Name(), trackIndex, err)
		}

		switch trackType {
		case trackTypeChannel:
			trackToChannel[trackIndex] = int32(len(a.Data.Channels))
			a.Data.Channels = append(a.Data.Channels, Channel{NodeName: name})

		case trackTypeChannelData:
			if err := a.importDataTrackLocked(rs, trackToChannel, parentIndex, fps); err != nil {
				return err
			}

		case trackTypeEvent:
			if err := a.importEventTrackLocked(rs, name); err != nil {
				return err
			}

		default:
			return errors.Wrapf(ErrInvalidHeader, "unsupported track type %d for animation %q", trackType, a.Name())
		}
	}

	if rs.Remaining() != 0 {
		logrus.Warnf("Invalid animation timeline data length (%d bytes left)", rs.Remaining())
	}
	return nil
}

func (a *Animation) importDataTrackLocked(rs *stream.ReadStream, trackToChannel map[int32]int32, parentIndex int32, fps float32) error {
	subType, err := rs.ReadUint8()
	if err != nil {
		return errors.Wrapf(ErrInvalidHeader, "asset %q: %v", a.Name(), err)
	}
	keyframesCount, err := rs.ReadInt32()
	if err != nil || keyframesCount < 0 {
		return errors.Wrapf(ErrInvalidHeader, "asset %q: bad keyframes count", a.Name())
	}
	channelIndex, ok := trackToChannel[parentIndex]
	if !ok {
		logrus.Error("Invalid animation channel data track parent linkage")
		return errors.Wrapf(ErrTrackLinkage, "asset %q parent %d", a.Name(), parentIndex)
	}
	channel := &a.Data.Channels[channelIndex]

	switch subType {
	case curveDataPosition, curveDataScale:
		target := &channel.Position
		if subType == curveDataScale {
			target = &channel.Scale
		}
		target.Clear()
		for i := int32(0); i < keyframesCount; i++ {
			t, err := rs.ReadFloat32()
			if err != nil {
				return errors.Wrapf(ErrInvalidHeader, "asset %q: %v", a.Name(), err)
			}
			v, err := readVec3(rs)
			if err != nil {
				return errors.Wrapf(ErrInvalidHeader, "asset %q: %v", a.Name(), err)
			}
			target.Add(t*fps, v)
		}
	case curveDataRotation:
		channel.Rotation.Clear()
		for i := int32(0); i < keyframesCount; i++ {
			t, err := rs.ReadFloat32()
			if err != nil {
				return errors.Wrapf(ErrInvalidHeader, "asset %q: %v", a.Name(), err)
			}
			q, err := readQuat(rs)
			if err != nil {
				return errors.Wrapf(ErrInvalidHeader, "asset %q: %v", a.Name(), err)
			}
			channel.Rotation.Add(t*fps, q)
		}
	default:
		return errors.Wrapf(ErrInvalidHeader, "unsupported curve data type %d for animation %q", subType, a.Name())
	}
	return nil
}

func (a *Animation) importEventTrackLocked(rs *stream.ReadStream, name string) error {
	count, err := rs.ReadInt32()
	if err != nil || count < 0 || int(count)*16 > rs.Remaining() {
		return errors.Wrapf(ErrInvalidHeader, "asset %q: bad events count", a.Name())
	}
	track := EventTrack{Name: name, Keyframes: make([]EventKeyframe, count)}
	for i := range track.Keyframes {
		k := &track.Keyframes[i]
		if k.Time, err = rs.ReadFloat32(); err != nil {
			return errors.Wrapf(ErrInvalidHeader, "asset %q: %v", a.Name(), err)
		}
		if k.Duration, err = rs.ReadFloat32(); err != nil {
			return errors.Wrapf(ErrInvalidHeader, "asset %q: %v", a.Name(), err)
		}
		if k.TypeName, err = rs.ReadStringANSI(timelineTypeNameLock); err != nil {
			return errors.Wrapf(ErrInvalidHeader, "asset %q: %v", a.Name(), err)
		}
		if k.Raw, err = rs.ReadBlob(); err != nil {
			return errors.Wrapf(ErrInvalidHeader, "asset %q: %v", a.Name(), err)
		}
		if k.resolve(a.Name()) {
			a.registerForScriptingReloadLocked()
		}
	}
	a.Events = append(a.Events, track)
	return nil
}
