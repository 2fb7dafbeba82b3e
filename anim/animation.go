// Package anim implements the skeletal animation asset: channel
// curves and event tracks persisted as a versioned binary chunk, plus
// the per-skeleton node mapping cache used to apply the clip onto
// arbitrary skinned skeletons.
package anim

import (
	"github.com/google/uuid"

	"github.com/mirozey/animvault/asset"
	"github.com/mirozey/animvault/scripting"
	"github.com/mirozey/animvault/skeleton"
	"github.com/mirozey/animvault/vault"
)

// TypeName identifies animation assets inside vault containers.
const TypeName = "Animation"

type Animation struct {
	asset.Base

	Data   Data
	Events []EventTrack

	mappingCache        map[*skeleton.Skeleton]NodeToChannel
	registeredForReload bool
}

func New(id uuid.UUID, name string) *Animation {
	a := &Animation{
		mappingCache: make(map[*skeleton.Skeleton]NodeToChannel),
	}
	a.Init(id, name)
	return a
}

func (a *Animation) TypeName() string { return TypeName }

// Info is a thread-safe snapshot of clip stats.
type Info struct {
	Length         float64
	FramesCount    int32
	ChannelsCount  int32
	KeyframesCount int32
	MemoryUsage    int64
}

func (a *Animation) GetInfo() Info {
	a.Locker.Lock()
	defer a.Locker.Unlock()

	var info Info
	if a.IsLoaded() {
		info.Length = a.Data.Length()
		info.FramesCount = int32(a.Data.Duration)
		info.ChannelsCount = int32(len(a.Data.Channels))
		info.KeyframesCount = int32(a.Data.KeyframesCount())
		info.MemoryUsage = a.memoryUsageLocked()
	}
	return info
}

// memoryUsageLocked approximates the keyframe storage size in bytes.
// Caller holds Locker.
func (a *Animation) memoryUsageLocked() int64 {
	var mem int64
	for i := range a.Data.Channels {
		c := &a.Data.Channels[i]
		mem += int64(c.Position.Count()+c.Scale.Count()) * 16
		mem += int64(c.Rotation.Count()) * 20
	}
	for i := range a.Events {
		track := &a.Events[i]
		for j := range track.Keyframes {
			mem += 12 + int64(len(track.Keyframes[j].Raw))
		}
	}
	return mem
}

// registerForScriptingReloadLocked subscribes the asset to the
// scripting runtime lifecycle, at most once regardless of how many
// events trigger it. Caller holds Locker.
func (a *Animation) registerForScriptingReloadLocked() {
	if a.registeredForReload {
		return
	}
	a.registeredForReload = true
	scripting.ReloadStart.Bind(a, func(interface{}) { a.onScriptsReloadStart() })
	scripting.ReloadEnd.Bind(a, func(interface{}) { a.onScriptsReloadEnd() })
	scripting.Disposing.Bind(a, func(interface{}) { a.OnScriptingDispose() })
}

func (a *Animation) unregisterScriptingReloadLocked() {
	if !a.registeredForReload {
		return
	}
	a.registeredForReload = false
	scripting.ReloadStart.Unbind(a)
	scripting.ReloadEnd.Unbind(a)
	scripting.Disposing.Unbind(a)
}

// onScriptsReloadStart drops event instances before the type registry
// is swapped out so nothing points into the old runtime. Current
// instance state is snapshotted into the raw payload first, so it
// survives the reload.
func (a *Animation) onScriptsReloadStart() {
	a.Locker.Lock()
	defer a.Locker.Unlock()
	for i := range a.Events {
		track := &a.Events[i]
		for j := range track.Keyframes {
			k := &track.Keyframes[j]
			k.Raw = k.payload(a.Name())
			k.destroy()
		}
	}
}

// onScriptsReloadEnd re-resolves event instances against the reloaded
// type registry.
func (a *Animation) onScriptsReloadEnd() {
	a.Locker.Lock()
	defer a.Locker.Unlock()
	for i := range a.Events {
		track := &a.Events[i]
		for j := range track.Keyframes {
			track.Keyframes[j].resolve(a.Name())
		}
	}
}

// OnScriptingDispose destroys event instances only: the scripting
// runtime goes away before general content teardown, so instances must
// not outlive it. Track shells stay for the later full unload.
func (a *Animation) OnScriptingDispose() {
	a.Locker.Lock()
	defer a.Locker.Unlock()
	for i := range a.Events {
		track := &a.Events[i]
		for j := range track.Keyframes {
			track.Keyframes[j].destroy()
		}
	}
}

// Unload releases everything: reload registration, mapping cache,
// animation data and event instances.
func (a *Animation) Unload() {
	a.Locker.Lock()
	a.unregisterScriptingReloadLocked()
	a.clearCacheLocked()
	a.Data.Dispose()
	for i := range a.Events {
		track := &a.Events[i]
		for j := range track.Keyframes {
			track.Keyframes[j].destroy()
		}
	}
	a.Events = nil
	a.Locker.Unlock()

	a.MarkUnloaded()
}

func init() {
	vault.RegisterFactory(TypeName, func(id uuid.UUID, name string) vault.Instance {
		return New(id, name)
	})
}
