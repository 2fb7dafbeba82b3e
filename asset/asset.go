// Package asset carries the shared state of binary assets: identity,
// chunk table, load-state machine and lifecycle signals. Concrete
// asset types (animation, skeleton) embed Base and decode their own
// chunks.
package asset

import (
	"io"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/mirozey/animvault/signal"
)

// Source persists the serialized asset container. Implementations live
// in the vault package; tests plug their own.
type Source interface {
	Name() string
	Save(in *io.SectionReader) error
}

type LoadState int32

const (
	NotLoaded LoadState = iota
	Loading
	Loaded
	LoadFailed
)

// Base is embedded by concrete asset types.
//
// Locker is the single per-asset exclusive lock: every public
// operation touching the asset's mutable data (chunks included) runs
// under it. The load-state machine has its own mutex so waiters do not
// contend with data access.
type Base struct {
	Locker sync.Mutex

	// OnUnloaded fires synchronously on the unloading goroutine after
	// the asset's data is released. OnReloading fires right before a
	// reload replaces the data.
	OnUnloaded  signal.Event
	OnReloading signal.Event

	id     uuid.UUID
	name   string
	source Source

	stateMu  sync.Mutex
	state    LoadState
	loadedCh chan struct{}

	chunks map[int][]byte
}

func NewBase(id uuid.UUID, name string) *Base {
	b := &Base{}
	b.Init(id, name)
	return b
}

// Init prepares an embedded Base in place.
func (b *Base) Init(id uuid.UUID, name string) {
	b.id = id
	b.name = name
	b.chunks = make(map[int][]byte)
}

// AssetBase lets embedders expose their Base through an interface.
func (b *Base) AssetBase() *Base { return b }

func (b *Base) ID() uuid.UUID { return b.id }

func (b *Base) Name() string { return b.name }

func (b *Base) String() string { return b.name }

func (b *Base) SetSource(s Source) { b.source = s }

func (b *Base) Source() Source { return b.source }

// GetChunk returns the stored chunk data or nil. Callers hold Locker.
func (b *Base) GetChunk(index int) []byte {
	return b.chunks[index]
}

// SetChunk stores chunk data by index. Callers hold Locker.
func (b *Base) SetChunk(index int, data []byte) {
	b.chunks[index] = data
}

// Chunks returns the chunk table indices in no particular order.
// Callers hold Locker.
func (b *Base) Chunks() map[int][]byte {
	return b.chunks
}

// BeginLoad moves the asset into the Loading state. Emits OnReloading
// first when data from a previous load is about to be replaced.
func (b *Base) BeginLoad() {
	b.stateMu.Lock()
	reloading := b.state == Loaded || b.state == LoadFailed
	b.state = Loading
	b.loadedCh = make(chan struct{})
	b.stateMu.Unlock()
	if reloading {
		b.OnReloading.Emit(b)
	}
}

// EndLoad finishes the pending load and wakes any waiters.
func (b *Base) EndLoad(failed bool) {
	b.stateMu.Lock()
	if failed {
		b.state = LoadFailed
	} else {
		b.state = Loaded
	}
	if b.loadedCh != nil {
		close(b.loadedCh)
		b.loadedCh = nil
	}
	b.stateMu.Unlock()
}

// MarkUnloaded moves the asset back to NotLoaded and emits OnUnloaded.
func (b *Base) MarkUnloaded() {
	b.stateMu.Lock()
	b.state = NotLoaded
	if b.loadedCh != nil {
		close(b.loadedCh)
		b.loadedCh = nil
	}
	b.stateMu.Unlock()
	b.OnUnloaded.Emit(b)
}

func (b *Base) State() LoadState {
	b.stateMu.Lock()
	defer b.stateMu.Unlock()
	return b.state
}

func (b *Base) IsLoaded() bool { return b.State() == Loaded }

func (b *Base) LastLoadFailed() bool { return b.State() == LoadFailed }

// WaitForLoaded blocks until a pending load finishes or the timeout
// expires, and reports whether the asset ended up loaded.
func (b *Base) WaitForLoaded(timeout time.Duration) bool {
	b.stateMu.Lock()
	ch := b.loadedCh
	state := b.state
	b.stateMu.Unlock()
	if state != Loading || ch == nil {
		return state == Loaded
	}
	select {
	case <-ch:
	case <-time.After(timeout):
	}
	return b.State() == Loaded
}
