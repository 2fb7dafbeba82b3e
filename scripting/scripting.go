// Package scripting hosts the runtime type registry used to spawn
// animation event payload objects by type name, plus the reload and
// dispose lifecycle of that runtime.
package scripting

import (
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/mirozey/animvault/signal"
)

// Factory spawns an empty instance of a registered event type, ready
// to be filled from a decoded JSON payload.
type Factory func() interface{}

// Disposable is implemented by event instances that hold resources
// which must be released explicitly on asset unload.
type Disposable interface {
	Dispose()
}

var (
	typesMu sync.RWMutex
	types   = make(map[string]Factory)
)

// ReloadStart is emitted right before the type registry is swapped
// out. Assets holding spawned instances subscribe here so nothing
// dangles into the old runtime.
var ReloadStart signal.Event

// ReloadEnd is emitted after the registry swap completed, so
// subscribers can re-resolve instances against the new types.
var ReloadEnd signal.Event

// Disposing is emitted when the scripting runtime is being released
// ahead of general content teardown.
var Disposing signal.Event

func RegisterType(name string, f Factory) {
	typesMu.Lock()
	types[name] = f
	typesMu.Unlock()
}

func UnregisterType(name string) {
	typesMu.Lock()
	delete(types, name)
	typesMu.Unlock()
}

// NewObject spawns an instance of the named type, or nil if the type
// is not registered.
func NewObject(name string) interface{} {
	typesMu.RLock()
	f := types[name]
	typesMu.RUnlock()
	if f == nil {
		return nil
	}
	return f()
}

// Destroy releases an instance spawned by NewObject.
func Destroy(obj interface{}) {
	if d, ok := obj.(Disposable); ok {
		d.Dispose()
	}
}

// Reload announces a registry swap: subscribers drop their instances,
// apply re-registers types, then subscribers re-resolve.
func Reload(apply func()) {
	logrus.Info("Scripting reload started")
	ReloadStart.Emit(nil)
	if apply != nil {
		apply()
	}
	ReloadEnd.Emit(nil)
}

// Dispose tears the runtime down. Emitted before content unload so
// assets can drop instances first.
func Dispose() {
	Disposing.Emit(nil)
	typesMu.Lock()
	types = make(map[string]Factory)
	typesMu.Unlock()
}
