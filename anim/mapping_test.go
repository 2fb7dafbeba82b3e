package anim

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mirozey/animvault/skeleton"
)

func newMappedClip(t *testing.T, nodeNames ...string) *Animation {
	t.Helper()
	a := New(uuid.New(), "run")
	a.Data = Data{Duration: 10, FramesPerSecond: 30}
	for _, name := range nodeNames {
		a.Data.Channels = append(a.Data.Channels, Channel{NodeName: name})
	}
	a.BeginLoad()
	a.EndLoad(false)
	return a
}

func TestGetMappingBuildsTable(t *testing.T) {
	a := newMappedClip(t, "Root", "Head")
	skel := skeleton.NewLoaded("biped", "Root", "Spine", "Head")

	mapping := a.GetMapping(skel)
	assert.Equal(t, NodeToChannel{0, -1, 1}, mapping)
	assert.Equal(t, 1, a.CachedMappings())
}

func TestGetMappingReturnsCachedTable(t *testing.T) {
	a := newMappedClip(t, "Root")
	skel := skeleton.NewLoaded("biped", "Root", "Spine")

	first := a.GetMapping(skel)
	second := a.GetMapping(skel)
	require.NotEmpty(t, first)
	assert.Same(t, &first[0], &second[0])
	assert.Equal(t, 1, a.CachedMappings())
}

func TestGetMappingDuplicateNodeNames(t *testing.T) {
	a := newMappedClip(t, "Root")
	skel := skeleton.NewLoaded("twins", "Root", "Root")

	// Only the first node with a matching name gets the channel.
	mapping := a.GetMapping(skel)
	assert.Equal(t, NodeToChannel{0, -1}, mapping)
}

func TestGetMappingRequiresLoadedAssets(t *testing.T) {
	a := newMappedClip(t, "Root")
	cold := skeleton.New(uuid.New(), "cold")
	assert.Panics(t, func() { a.GetMapping(cold) })
	assert.Panics(t, func() { a.GetMapping(nil) })

	skel := skeleton.NewLoaded("warm", "Root")
	b := New(uuid.New(), "unloaded")
	assert.Panics(t, func() { b.GetMapping(skel) })
}

func TestMappingEvictedOnSkeletonUnload(t *testing.T) {
	a := newMappedClip(t, "Root")
	skel := skeleton.NewLoaded("biped", "Root")

	a.GetMapping(skel)
	require.Equal(t, 1, a.CachedMappings())

	skel.Unload()
	assert.Equal(t, 0, a.CachedMappings())
	assert.Equal(t, 0, skel.OnUnloaded.Count())
	assert.Equal(t, 0, skel.OnReloading.Count())
}

func TestMappingEvictedOnSkeletonReload(t *testing.T) {
	a := newMappedClip(t, "Root")
	skel := skeleton.NewLoaded("biped", "Root")

	a.GetMapping(skel)
	require.Equal(t, 1, a.CachedMappings())

	// Reloading invalidates node indices, the table must go before the
	// skeleton's new data arrives.
	skel.BeginLoad()
	assert.Equal(t, 0, a.CachedMappings())
	skel.EndLoad(false)
}

func TestMappingCacheHoldsMultipleSkeletons(t *testing.T) {
	a := newMappedClip(t, "Root")
	biped := skeleton.NewLoaded("biped", "Root", "Spine")
	quad := skeleton.NewLoaded("quad", "Pelvis", "Root")

	assert.Equal(t, NodeToChannel{0, -1}, a.GetMapping(biped))
	assert.Equal(t, NodeToChannel{-1, 0}, a.GetMapping(quad))
	assert.Equal(t, 2, a.CachedMappings())

	biped.Unload()
	assert.Equal(t, 1, a.CachedMappings())
	assert.Equal(t, NodeToChannel{-1, 0}, a.GetMapping(quad))
}

func TestClearCacheUnbindsSignals(t *testing.T) {
	a := newMappedClip(t, "Root")
	skel := skeleton.NewLoaded("biped", "Root")

	a.GetMapping(skel)
	a.ClearCache()
	assert.Equal(t, 0, a.CachedMappings())
	assert.Equal(t, 0, skel.OnUnloaded.Count())
	assert.Equal(t, 0, skel.OnReloading.Count())
}
