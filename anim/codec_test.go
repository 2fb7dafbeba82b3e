package anim

import (
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mirozey/animvault/curve"
	"github.com/mirozey/animvault/scripting"
	"github.com/mirozey/animvault/stream"
	"github.com/mirozey/animvault/vault"
)

var footstepDisposeCount int32

type footstepEvent struct {
	Bone   string  `json:"bone"`
	Volume float32 `json:"volume"`
}

func (e *footstepEvent) Dispose() {
	atomic.AddInt32(&footstepDisposeCount, 1)
}

func registerFootstepType(t *testing.T) {
	t.Helper()
	atomic.StoreInt32(&footstepDisposeCount, 0)
	scripting.RegisterType("FootstepEvent", func() interface{} { return &footstepEvent{} })
	t.Cleanup(func() { scripting.UnregisterType("FootstepEvent") })
}

// newWalkClip builds a loaded clip with one full channel, one
// position-only channel and one event track with two resolved events.
func newWalkClip(t *testing.T) *Animation {
	t.Helper()

	a := New(uuid.New(), "walk")
	a.Data = Data{
		Duration:         20,
		FramesPerSecond:  30,
		EnableRootMotion: true,
		RootNodeName:     "Root",
	}

	root := Channel{NodeName: "Root"}
	root.Position.Add(0, mgl32.Vec3{0, 0, 0})
	root.Position.Add(10, mgl32.Vec3{0, 1, 0})
	root.Position.Add(20, mgl32.Vec3{0, 0, 2})
	root.Rotation.Add(0, mgl32.QuatIdent())
	root.Rotation.Add(20, mgl32.Quat{W: 0, V: mgl32.Vec3{0, 1, 0}})
	root.Scale.Add(0, mgl32.Vec3{1, 1, 1})

	spine := Channel{NodeName: "Spine"}
	spine.Position.Add(5, mgl32.Vec3{0.5, 2, -1})

	a.Data.Channels = []Channel{root, spine}

	a.Events = []EventTrack{{
		Name: "Footsteps",
		Keyframes: []EventKeyframe{
			{Time: 0.1, Duration: 0.05, TypeName: "FootstepEvent", Instance: &footstepEvent{Bone: "L_Foot", Volume: 0.8}},
			{Time: 0.4, Duration: 0.05, TypeName: "FootstepEvent", Instance: &footstepEvent{Bone: "R_Foot", Volume: 0.6}},
		},
	}}

	a.BeginLoad()
	a.EndLoad(false)
	return a
}

func encodeClip(a *Animation) []byte {
	a.Locker.Lock()
	defer a.Locker.Unlock()
	return a.encodeLocked()
}

func loadFromChunk(t *testing.T, name string, chunk []byte) (*Animation, error) {
	t.Helper()
	a := New(uuid.New(), name)
	a.Locker.Lock()
	a.SetChunk(0, chunk)
	a.Locker.Unlock()
	a.BeginLoad()
	err := a.Load()
	a.EndLoad(err != nil)
	return a, err
}

func TestChunkRoundTrip(t *testing.T) {
	registerFootstepType(t)
	in := newWalkClip(t)

	out, err := loadFromChunk(t, "walk", encodeClip(in))
	require.NoError(t, err)

	assert.Equal(t, in.Data.Duration, out.Data.Duration)
	assert.Equal(t, in.Data.FramesPerSecond, out.Data.FramesPerSecond)
	assert.Equal(t, in.Data.EnableRootMotion, out.Data.EnableRootMotion)
	assert.Equal(t, in.Data.RootNodeName, out.Data.RootNodeName)

	require.Len(t, out.Data.Channels, 2)
	for i := range in.Data.Channels {
		assert.Equal(t, in.Data.Channels[i].NodeName, out.Data.Channels[i].NodeName)
		assert.Equal(t, in.Data.Channels[i].Position.Keyframes(), out.Data.Channels[i].Position.Keyframes())
		assert.Equal(t, in.Data.Channels[i].Rotation.Keyframes(), out.Data.Channels[i].Rotation.Keyframes())
		assert.Equal(t, in.Data.Channels[i].Scale.Keyframes(), out.Data.Channels[i].Scale.Keyframes())
	}

	require.Len(t, out.Events, 1)
	assert.Equal(t, "Footsteps", out.Events[0].Name)
	require.Len(t, out.Events[0].Keyframes, 2)
	for j := range out.Events[0].Keyframes {
		ik, ok := &in.Events[0].Keyframes[j], &out.Events[0].Keyframes[j]
		assert.Equal(t, ik.Time, ok.Time)
		assert.Equal(t, ik.Duration, ok.Duration)
		assert.Equal(t, ik.TypeName, ok.TypeName)
		require.False(t, ok.Unresolved())
		assert.Equal(t, ik.Instance, ok.Instance)
	}

	assert.InDelta(t, 20.0/30.0, out.Data.Length(), 1e-9)
	assert.Equal(t, 7, out.Data.KeyframesCount())
}

func TestLoadLegacyHeader(t *testing.T) {
	// Old chunks start directly with the duration double; its low
	// dword must not collide with a recognized format tag.
	ws := stream.NewWriteStream()
	ws.WriteFloat64(16)
	ws.WriteFloat64(24)
	ws.WriteInt32(1)
	ws.WriteString("Hips", trackNameLock)
	var c Channel
	c.Position.Add(0, mgl32.Vec3{1, 2, 3})
	curveSerializeAll(ws, &c)

	a, err := loadFromChunk(t, "old", ws.Bytes())
	require.NoError(t, err)
	assert.Equal(t, 16.0, a.Data.Duration)
	assert.Equal(t, 24.0, a.Data.FramesPerSecond)
	assert.False(t, a.Data.EnableRootMotion)
	assert.Empty(t, a.Data.RootNodeName)
	require.Len(t, a.Data.Channels, 1)
	assert.Equal(t, "Hips", a.Data.Channels[0].NodeName)
	assert.Empty(t, a.Events)
}

func TestLoadBaseFormatHasNoEvents(t *testing.T) {
	ws := stream.NewWriteStream()
	ws.WriteInt32(formatBase)
	ws.WriteFloat64(10)
	ws.WriteFloat64(30)
	ws.WriteBool(false)
	ws.WriteString("", rootNodeNameLock)
	ws.WriteInt32(0)

	a, err := loadFromChunk(t, "base", ws.Bytes())
	require.NoError(t, err)
	assert.Empty(t, a.Data.Channels)
	assert.Empty(t, a.Events)
}

func TestLoadRejectsDegenerateInfo(t *testing.T) {
	for _, tc := range []struct {
		name          string
		duration, fps float64
	}{
		{"zero duration", 0, 30},
		{"zero fps", 10, 0},
	} {
		t.Run(tc.name, func(t *testing.T) {
			ws := stream.NewWriteStream()
			ws.WriteInt32(formatEvents)
			ws.WriteFloat64(tc.duration)
			ws.WriteFloat64(tc.fps)
			ws.WriteBool(false)
			ws.WriteString("", rootNodeNameLock)

			_, err := loadFromChunk(t, "bad", ws.Bytes())
			assert.True(t, errors.Is(err, ErrInvalidHeader))
		})
	}
}

func TestLoadMissingChunk(t *testing.T) {
	a := New(uuid.New(), "empty")
	a.BeginLoad()
	err := a.Load()
	a.EndLoad(true)
	assert.True(t, errors.Is(err, ErrMissingDataChunk))
}

func TestLoadCorruptedCurve(t *testing.T) {
	ws := stream.NewWriteStream()
	ws.WriteInt32(formatEvents)
	ws.WriteFloat64(10)
	ws.WriteFloat64(30)
	ws.WriteBool(false)
	ws.WriteString("Root", rootNodeNameLock)
	ws.WriteInt32(1)
	ws.WriteString("Root", trackNameLock)
	ws.WriteInt32(99) // not a known curve format
	ws.WriteBytes(make([]byte, 16))

	_, err := loadFromChunk(t, "corrupt", ws.Bytes())
	assert.True(t, errors.Is(err, ErrCurveDecode))
}

func TestLoadRejectsOversizedCounts(t *testing.T) {
	header := func() *stream.WriteStream {
		ws := stream.NewWriteStream()
		ws.WriteInt32(formatEvents)
		ws.WriteFloat64(10)
		ws.WriteFloat64(30)
		ws.WriteBool(false)
		ws.WriteString("", rootNodeNameLock)
		return ws
	}

	t.Run("channels", func(t *testing.T) {
		ws := header()
		ws.WriteInt32(0x7fffffff)
		_, err := loadFromChunk(t, "bloat", ws.Bytes())
		assert.True(t, errors.Is(err, ErrInvalidHeader))
	})

	t.Run("event tracks", func(t *testing.T) {
		ws := header()
		ws.WriteInt32(0)
		ws.WriteInt32(0x7fffffff)
		_, err := loadFromChunk(t, "bloat", ws.Bytes())
		assert.True(t, errors.Is(err, ErrInvalidHeader))
	})

	t.Run("events", func(t *testing.T) {
		ws := header()
		ws.WriteInt32(0)
		ws.WriteInt32(1)
		ws.WriteString("Footsteps", trackNameLock)
		ws.WriteInt32(0x7fffffff)
		_, err := loadFromChunk(t, "bloat", ws.Bytes())
		assert.True(t, errors.Is(err, ErrInvalidHeader))
	})
}

func TestLoadKeepsUnknownEventType(t *testing.T) {
	registerFootstepType(t)

	rawPayload := []byte(`{"power":3}`)
	ws := stream.NewWriteStream()
	ws.WriteInt32(formatEvents)
	ws.WriteFloat64(10)
	ws.WriteFloat64(30)
	ws.WriteBool(false)
	ws.WriteString("", rootNodeNameLock)
	ws.WriteInt32(0)
	ws.WriteInt32(1)
	ws.WriteString("Mixed", trackNameLock)
	ws.WriteInt32(2)
	ws.WriteFloat32(0.1)
	ws.WriteFloat32(0)
	ws.WriteStringANSI("VanishedEvent", typeNameLock)
	ws.WriteBlob(rawPayload)
	ws.WriteFloat32(0.2)
	ws.WriteFloat32(0)
	ws.WriteStringANSI("FootstepEvent", typeNameLock)
	ws.WriteBlob([]byte(`{"bone":"L_Foot","volume":0.5}`))

	a, err := loadFromChunk(t, "mixed", ws.Bytes())
	require.NoError(t, err)
	require.Len(t, a.Events, 1)
	require.Len(t, a.Events[0].Keyframes, 2)

	ghost := &a.Events[0].Keyframes[0]
	assert.True(t, ghost.Unresolved())
	assert.Equal(t, rawPayload, ghost.Raw)

	live := &a.Events[0].Keyframes[1]
	require.False(t, live.Unresolved())
	assert.Equal(t, &footstepEvent{Bone: "L_Foot", Volume: 0.5}, live.Instance)

	// The unresolved payload must survive a save untouched.
	out, err := loadFromChunk(t, "mixed2", encodeClip(a))
	require.NoError(t, err)
	assert.Equal(t, rawPayload, out.Events[0].Keyframes[0].Raw)
}

func TestSaveBlockedWhileLoading(t *testing.T) {
	old := saveWaitTimeout
	saveWaitTimeout = 10 * time.Millisecond
	defer func() { saveWaitTimeout = old }()

	a := New(uuid.New(), "stuck")
	a.BeginLoad()
	err := a.Save()
	assert.True(t, errors.Is(err, ErrSaveBlocked))
}

func TestSaveWithoutSource(t *testing.T) {
	a := newWalkClip(t)
	err := a.Save()
	assert.True(t, errors.Is(err, ErrPersist))
}

func TestSaveToFileAndMount(t *testing.T) {
	registerFootstepType(t)
	in := newWalkClip(t)

	dir := t.TempDir()
	path := filepath.Join(dir, "walk"+vault.FileExtension)
	require.NoError(t, in.SaveTo(path))

	v, err := vault.Open(dir)
	require.NoError(t, err)
	inst := v.Get(in.ID())
	require.NotNil(t, inst)
	require.NoError(t, v.LoadSync(inst))

	out, ok := inst.(*Animation)
	require.True(t, ok)
	assert.Equal(t, in.Name(), out.Name())
	assert.Equal(t, in.Data.Duration, out.Data.Duration)
	require.Len(t, out.Data.Channels, 2)
	require.Len(t, out.Events, 1)
	assert.Equal(t, in.Events[0].Keyframes[0].Instance, out.Events[0].Keyframes[0].Instance)
}

func curveSerializeAll(ws *stream.WriteStream, c *Channel) {
	curve.Serialize(ws, &c.Position)
	curve.Serialize(ws, &c.Rotation)
	curve.Serialize(ws, &c.Scale)
}
