package anim

import (
	"path/filepath"
	"sync/atomic"
	"testing"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mirozey/animvault/stream"
	"github.com/mirozey/animvault/vault"
)

// newImportTarget returns a loaded, sourced animation ready to accept
// a timeline upload.
func newImportTarget(t *testing.T, name string) *Animation {
	t.Helper()
	a := New(uuid.New(), name)
	a.Data = Data{Duration: 1, FramesPerSecond: 30}
	a.SetSource(vault.NewFileSource(filepath.Join(t.TempDir(), name+vault.FileExtension)))
	a.BeginLoad()
	a.EndLoad(false)
	return a
}

func TestTimelineExportLayout(t *testing.T) {
	a := newWalkClip(t)

	data, err := a.ExportTimeline()
	require.NoError(t, err)

	rs := stream.NewReadStream(data)
	version, _ := rs.ReadInt32()
	assert.Equal(t, int32(timelineVersion), version)
	fps, _ := rs.ReadFloat32()
	assert.Equal(t, float32(30), fps)
	duration, _ := rs.ReadInt32()
	assert.Equal(t, int32(20), duration)

	// 2 object tracks, 3 + 1 nonempty curve tracks, 1 event track.
	tracksCount, _ := rs.ReadInt32()
	assert.Equal(t, int32(7), tracksCount)

	// Root object track.
	trackType, _ := rs.ReadUint8()
	assert.Equal(t, byte(trackTypeChannel), trackType)
	rs.ReadUint8() // flags
	parent, _ := rs.ReadInt32()
	assert.Equal(t, int32(-1), parent)
	children, _ := rs.ReadInt32()
	assert.Equal(t, int32(3), children)
	name, err := rs.ReadString(timelineStringLock)
	require.NoError(t, err)
	assert.Equal(t, "Root", name)
	rs.ReadUint32() // color

	// Root position data track, keyed in seconds.
	trackType, _ = rs.ReadUint8()
	assert.Equal(t, byte(trackTypeChannelData), trackType)
	rs.ReadUint8()
	parent, _ = rs.ReadInt32()
	assert.Equal(t, int32(0), parent)
	rs.ReadInt32()
	rs.ReadString(timelineStringLock)
	rs.ReadUint32()
	subType, _ := rs.ReadUint8()
	assert.Equal(t, byte(curveDataPosition), subType)
	keys, _ := rs.ReadInt32()
	require.Equal(t, int32(3), keys)
	wantTimes := []float32{0, 10.0 / 30.0, 20.0 / 30.0}
	for i := int32(0); i < keys; i++ {
		kt, _ := rs.ReadFloat32()
		assert.InDelta(t, wantTimes[i], kt, 1e-6)
		_, err := readVec3(rs)
		require.NoError(t, err)
	}
}

func TestTimelineExportRequiresLoaded(t *testing.T) {
	a := New(uuid.New(), "cold")
	_, err := a.ExportTimeline()
	assert.Error(t, err)
}

func TestTimelineRoundTrip(t *testing.T) {
	registerFootstepType(t)
	in := newWalkClip(t)

	data, err := in.ExportTimeline()
	require.NoError(t, err)

	out := newImportTarget(t, "walk_copy")
	require.NoError(t, out.ImportTimeline(data))

	assert.Equal(t, in.Data.FramesPerSecond, out.Data.FramesPerSecond)
	assert.Equal(t, in.Data.Duration, out.Data.Duration)

	require.Len(t, out.Data.Channels, 2)
	for i := range in.Data.Channels {
		inC, outC := &in.Data.Channels[i], &out.Data.Channels[i]
		assert.Equal(t, inC.NodeName, outC.NodeName)
		require.Equal(t, inC.Position.Count(), outC.Position.Count())
		for j, k := range inC.Position.Keyframes() {
			got := outC.Position.Keyframes()[j]
			assert.InDelta(t, k.Time, got.Time, 1e-3)
			assert.Equal(t, k.Value, got.Value)
		}
		require.Equal(t, inC.Rotation.Count(), outC.Rotation.Count())
		require.Equal(t, inC.Scale.Count(), outC.Scale.Count())
	}

	require.Len(t, out.Events, 1)
	assert.Equal(t, "Footsteps", out.Events[0].Name)
	require.Len(t, out.Events[0].Keyframes, 2)
	for j := range out.Events[0].Keyframes {
		ik, ok := &in.Events[0].Keyframes[j], &out.Events[0].Keyframes[j]
		assert.Equal(t, ik.Time, ok.Time)
		assert.Equal(t, ik.TypeName, ok.TypeName)
		assert.Equal(t, ik.Instance, ok.Instance)
	}

	// Import persists the asset through its source.
	src, ok := out.Source().(*vault.FileSource)
	require.True(t, ok)
	assert.FileExists(t, src.Path())
}

func TestTimelineImportDeprecatedVersion(t *testing.T) {
	ws := stream.NewWriteStream()
	ws.WriteInt32(timelineVersionDeprecated)
	ws.WriteFloat32(24)
	ws.WriteInt32(48)
	ws.WriteInt32(0)

	a := newImportTarget(t, "legacy_upload")
	require.NoError(t, a.ImportTimeline(ws.Bytes()))
	assert.Equal(t, 48.0, a.Data.Duration)
	assert.Equal(t, 24.0, a.Data.FramesPerSecond)
}

func TestTimelineImportUnknownVersion(t *testing.T) {
	ws := stream.NewWriteStream()
	ws.WriteInt32(5)
	ws.WriteFloat32(30)
	ws.WriteInt32(10)
	ws.WriteInt32(0)

	a := newImportTarget(t, "future_upload")
	err := a.ImportTimeline(ws.Bytes())
	assert.True(t, errors.Is(err, ErrInvalidHeader))
}

func TestTimelineImportDanglingParent(t *testing.T) {
	ws := stream.NewWriteStream()
	ws.WriteInt32(timelineVersion)
	ws.WriteFloat32(30)
	ws.WriteInt32(10)
	ws.WriteInt32(1)
	writeTrackHeader(ws, trackTypeChannelData, 7, 0, "orphan")
	ws.WriteUint8(curveDataPosition)
	ws.WriteInt32(0)

	a := newImportTarget(t, "orphan_upload")
	err := a.ImportTimeline(ws.Bytes())
	assert.True(t, errors.Is(err, ErrTrackLinkage))
}

func TestTimelineImportOversizedCounts(t *testing.T) {
	t.Run("tracks", func(t *testing.T) {
		ws := stream.NewWriteStream()
		ws.WriteInt32(timelineVersion)
		ws.WriteFloat32(30)
		ws.WriteInt32(20)
		ws.WriteInt32(0x7fffffff)

		a := newImportTarget(t, "bloat_upload")
		err := a.ImportTimeline(ws.Bytes())
		assert.True(t, errors.Is(err, ErrInvalidHeader))
	})

	t.Run("events", func(t *testing.T) {
		ws := stream.NewWriteStream()
		ws.WriteInt32(timelineVersion)
		ws.WriteFloat32(30)
		ws.WriteInt32(20)
		ws.WriteInt32(1)
		writeTrackHeader(ws, trackTypeEvent, -1, 0, "Footsteps")
		ws.WriteInt32(0x7fffffff)

		a := newImportTarget(t, "bloat_upload")
		err := a.ImportTimeline(ws.Bytes())
		assert.True(t, errors.Is(err, ErrInvalidHeader))
	})
}

func TestTimelineImportReplacesEventInstances(t *testing.T) {
	registerFootstepType(t)
	a := newWalkClip(t)
	a.SetSource(vault.NewFileSource(filepath.Join(t.TempDir(), "walk"+vault.FileExtension)))

	ws := stream.NewWriteStream()
	ws.WriteInt32(timelineVersion)
	ws.WriteFloat32(30)
	ws.WriteInt32(20)
	ws.WriteInt32(0)

	require.NoError(t, a.ImportTimeline(ws.Bytes()))
	assert.Equal(t, int32(2), atomic.LoadInt32(&footstepDisposeCount))
	assert.Empty(t, a.Events)
	assert.Empty(t, a.Data.Channels)
}

func TestTimelineImportEventTimesStayInSeconds(t *testing.T) {
	registerFootstepType(t)

	ws := stream.NewWriteStream()
	ws.WriteInt32(timelineVersion)
	ws.WriteFloat32(30)
	ws.WriteInt32(20)
	ws.WriteInt32(1)
	writeTrackHeader(ws, trackTypeEvent, -1, 0, "Footsteps")
	ws.WriteInt32(1)
	ws.WriteFloat32(0.25)
	ws.WriteFloat32(0.1)
	ws.WriteStringANSI("FootstepEvent", timelineTypeNameLock)
	ws.WriteBlob([]byte(`{"bone":"L_Foot","volume":1}`))

	a := newImportTarget(t, "events_upload")
	require.NoError(t, a.ImportTimeline(ws.Bytes()))

	require.Len(t, a.Events, 1)
	require.Len(t, a.Events[0].Keyframes, 1)
	k := &a.Events[0].Keyframes[0]
	assert.Equal(t, float32(0.25), k.Time)
	assert.Equal(t, float32(0.1), k.Duration)
	assert.Equal(t, &footstepEvent{Bone: "L_Foot", Volume: 1}, k.Instance)
}
