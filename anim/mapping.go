package anim

import (
	"github.com/mirozey/animvault/skeleton"
)

// NodeToChannel maps a skeleton node index to an animation channel
// index, -1 when the node has no channel. Derived, cached per
// skeleton, never persisted.
type NodeToChannel []int32

// GetMapping returns the node-to-channel table for the given skeleton,
// building and caching it on first use. Both assets must be loaded;
// that is a precondition, not a recoverable error.
//
// The cache entry holds no owning reference: it is keyed by skeleton
// identity and evicted synchronously when the skeleton unloads or
// starts reloading.
func (a *Animation) GetMapping(skel *skeleton.Skeleton) NodeToChannel {
	if skel == nil || !skel.IsLoaded() || !a.IsLoaded() {
		panic("anim: GetMapping requires a loaded animation and skeleton")
	}

	a.Locker.Lock()
	defer a.Locker.Unlock()

	if mapping, ok := a.mappingCache[skel]; ok {
		return mapping
	}

	skel.Locker.Lock()
	nodeNames := make([]string, len(skel.Nodes))
	for i := range skel.Nodes {
		nodeNames[i] = skel.Nodes[i].Name
	}
	skel.Locker.Unlock()

	mapping := make(NodeToChannel, len(nodeNames))
	for i := range mapping {
		mapping[i] = -1
	}
	for channelIndex := range a.Data.Channels {
		name := a.Data.Channels[channelIndex].NodeName
		for nodeIndex := range nodeNames {
			if nodeNames[nodeIndex] == name {
				// First name match wins.
				mapping[nodeIndex] = int32(channelIndex)
				break
			}
		}
	}

	a.mappingCache[skel] = mapping
	skel.OnUnloaded.Bind(a, func(interface{}) { a.onSkeletonUnloaded(skel) })
	skel.OnReloading.Bind(a, func(interface{}) { a.onSkeletonUnloaded(skel) })

	return mapping
}

// onSkeletonUnloaded evicts the cache entry for a skeleton that is
// unloading or about to reload. Runs synchronously on the goroutine
// emitting the skeleton's lifecycle signal.
func (a *Animation) onSkeletonUnloaded(skel *skeleton.Skeleton) {
	a.Locker.Lock()
	defer a.Locker.Unlock()

	if _, ok := a.mappingCache[skel]; !ok {
		return
	}
	skel.OnUnloaded.Unbind(a)
	skel.OnReloading.Unbind(a)
	delete(a.mappingCache, skel)
}

// ClearCache drops every cached mapping and its signal subscriptions.
// Used when the animation asset itself unloads.
func (a *Animation) ClearCache() {
	a.Locker.Lock()
	defer a.Locker.Unlock()
	a.clearCacheLocked()
}

func (a *Animation) clearCacheLocked() {
	for skel := range a.mappingCache {
		skel.OnUnloaded.Unbind(a)
		skel.OnReloading.Unbind(a)
	}
	a.mappingCache = make(map[*skeleton.Skeleton]NodeToChannel)
}

// CachedMappings reports how many skeletons currently have a cached
// mapping.
func (a *Animation) CachedMappings() int {
	a.Locker.Lock()
	defer a.Locker.Unlock()
	return len(a.mappingCache)
}
