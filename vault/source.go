package vault

import (
	"io"
	"os"
	"path/filepath"

	"github.com/pkg/errors"

	"github.com/mirozey/animvault/asset"
)

// FileSource persists an asset container into a file on disk.
type FileSource struct {
	path string
}

var _ asset.Source = (*FileSource)(nil)

func NewFileSource(path string) *FileSource {
	return &FileSource{path: path}
}

func (fs *FileSource) Name() string {
	return filepath.Base(fs.path)
}

func (fs *FileSource) Path() string {
	return fs.path
}

func (fs *FileSource) Save(in *io.SectionReader) error {
	f, err := os.Create(fs.path)
	if err != nil {
		return errors.Wrapf(err, "Failed to create %q", fs.path)
	}
	if _, err := io.Copy(f, in); err != nil {
		f.Close()
		return errors.Wrapf(err, "Failed to write %q", fs.path)
	}
	return f.Close()
}
