package vault

import (
	"os"
	"path/filepath"
	"sort"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// ManifestFileName sits next to the asset containers and records the
// vault's settings plus an index of its assets.
const ManifestFileName = "vault.yaml"

type ManifestEntry struct {
	Id   string
	Type string
	Name string
	File string
}

type Manifest struct {
	Encoding string `yaml:",omitempty"`
	Assets   []ManifestEntry
}

func ReadManifest(dir string) (*Manifest, error) {
	data, err := os.ReadFile(filepath.Join(dir, ManifestFileName))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, errors.Wrap(err, "Failed to read vault manifest")
	}
	m := &Manifest{}
	if err := yaml.Unmarshal(data, m); err != nil {
		return nil, errors.Wrap(err, "Failed to parse vault manifest")
	}
	return m, nil
}

// WriteManifest re-indexes the store into its manifest file.
func (v *Vault) WriteManifest(encoding string) error {
	m := &Manifest{Encoding: encoding}
	for _, inst := range v.List() {
		base := inst.AssetBase()
		entry := ManifestEntry{
			Id:   base.ID().String(),
			Type: inst.TypeName(),
			Name: base.Name(),
		}
		if src, ok := base.Source().(*FileSource); ok {
			entry.File = filepath.Base(src.Path())
		}
		m.Assets = append(m.Assets, entry)
	}
	sort.Slice(m.Assets, func(i, j int) bool { return m.Assets[i].Name < m.Assets[j].Name })

	data, err := yaml.Marshal(m)
	if err != nil {
		return errors.Wrap(err, "Failed to marshal vault manifest")
	}
	return os.WriteFile(filepath.Join(v.dir, ManifestFileName), data, 0666)
}
