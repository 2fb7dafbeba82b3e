// Package vault is the file-backed asset store: it scans a directory
// of asset containers, spawns typed asset instances through a factory
// registry and drives their load lifecycle.
package vault

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/mirozey/animvault/asset"
	"github.com/mirozey/animvault/utils"
)

// FileExtension of persisted asset containers.
const FileExtension = ".avt"

// Instance is a typed asset living in the store.
type Instance interface {
	AssetBase() *asset.Base
	TypeName() string
	Load() error
	Unload()
}

// Factory spawns an empty asset of a registered type. Asset packages
// register themselves from init, the way wad handlers do.
type Factory func(id uuid.UUID, name string) Instance

var (
	factoriesMu sync.Mutex
	factories   = make(map[string]Factory)
)

func RegisterFactory(typeName string, f Factory) {
	factoriesMu.Lock()
	factories[typeName] = f
	factoriesMu.Unlock()
}

func factoryFor(typeName string) Factory {
	factoriesMu.Lock()
	defer factoriesMu.Unlock()
	return factories[typeName]
}

type Vault struct {
	mu     sync.Mutex
	dir    string
	assets map[uuid.UUID]Instance
}

// Open scans dir for asset containers. Assets with an unknown type are
// skipped with an error logged; decode failures do not abort the scan.
func Open(dir string) (*Vault, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, errors.Wrapf(err, "Failed to open vault directory %q", dir)
	}

	v := &Vault{
		dir:    dir,
		assets: make(map[uuid.UUID]Instance),
	}
	for _, e := range entries {
		if e.IsDir() || !strings.EqualFold(filepath.Ext(e.Name()), FileExtension) {
			continue
		}
		path := filepath.Join(dir, e.Name())
		if _, err := v.mount(path); err != nil {
			logrus.WithError(err).Errorf("Failed to mount asset %q", path)
		}
	}
	return v, nil
}

func (v *Vault) Dir() string { return v.dir }

func (v *Vault) mount(path string) (Instance, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "Failed to read container")
	}
	c, err := decodeContainer(data)
	if err != nil {
		return nil, errors.Wrap(err, "Failed to decode container")
	}
	f := factoryFor(c.Type)
	if f == nil {
		return nil, errors.Errorf("No factory for asset type %q", c.Type)
	}

	inst := f(c.ID, c.Name)
	base := inst.AssetBase()
	base.SetSource(NewFileSource(path))
	base.Locker.Lock()
	for index, chunk := range c.Chunks {
		base.SetChunk(index, chunk)
	}
	base.Locker.Unlock()

	v.mu.Lock()
	v.assets[c.ID] = inst
	v.mu.Unlock()
	return inst, nil
}

// Mount adds a single container file to the store and starts loading
// it in the background.
func (v *Vault) Mount(path string) (Instance, error) {
	inst, err := v.mount(path)
	if err != nil {
		return nil, err
	}
	v.LoadAsync(inst)
	return inst, nil
}

// Add registers an externally constructed asset (already carrying its
// chunks) with the store.
func (v *Vault) Add(inst Instance) {
	v.mu.Lock()
	v.assets[inst.AssetBase().ID()] = inst
	v.mu.Unlock()
}

func (v *Vault) Get(id uuid.UUID) Instance {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.assets[id]
}

// FindByName returns the first asset with the given display name.
func (v *Vault) FindByName(name string) Instance {
	v.mu.Lock()
	defer v.mu.Unlock()
	for _, inst := range v.assets {
		if inst.AssetBase().Name() == name {
			return inst
		}
	}
	return nil
}

func (v *Vault) List() []Instance {
	v.mu.Lock()
	defer v.mu.Unlock()
	out := make([]Instance, 0, len(v.assets))
	for _, inst := range v.assets {
		out = append(out, inst)
	}
	return out
}

// LoadAsync runs the asset's load on a worker goroutine. Waiters use
// Base.WaitForLoaded.
func (v *Vault) LoadAsync(inst Instance) {
	base := inst.AssetBase()
	base.BeginLoad()
	go func() {
		err := inst.Load()
		if err != nil {
			logrus.WithError(err).Errorf("Failed to load asset %q", base.Name())
		} else {
			utils.LogDump(inst)
		}
		base.EndLoad(err != nil)
	}()
}

// LoadSync loads the asset on the calling goroutine.
func (v *Vault) LoadSync(inst Instance) error {
	base := inst.AssetBase()
	base.BeginLoad()
	err := inst.Load()
	base.EndLoad(err != nil)
	return err
}

// SaveAsset encodes the asset's chunk table into its container format
// and hands it to the given source.
func SaveAsset(inst Instance, src asset.Source) error {
	base := inst.AssetBase()
	c := &container{
		ID:     base.ID(),
		Type:   inst.TypeName(),
		Name:   base.Name(),
		Chunks: base.Chunks(),
	}
	data := encodeContainer(c)
	return src.Save(io.NewSectionReader(bytes.NewReader(data), 0, int64(len(data))))
}
