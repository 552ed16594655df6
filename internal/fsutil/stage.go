// Package fsutil provides file system utility functions.
package fsutil

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/afero"
	"go.uber.org/multierr"
)

// FileMode is the permission given to committed files.
const FileMode os.FileMode = 0o644

type staged struct {
	tmp  string
	dest string
}

// Stage collects files to be written together. Each one is written to a
// temporary file next to its destination when added and renamed into place
// on Commit, so a failed run leaves no partial output behind.
type Stage struct {
	fs      afero.Fs
	pending []staged
}

// NewStage creates an empty stage writing to fs.
func NewStage(fs afero.Fs) *Stage {
	return &Stage{fs: fs}
}

// Add writes data to a temporary file for path.
func (s *Stage) Add(path string, data []byte) (err error) {
	if path == "" {
		panic("fsutil: empty destination path")
	}
	dir, base := filepath.Split(path)
	if dir == "" {
		dir = "."
	}

	f, err := afero.TempFile(s.fs, dir, "."+base+".tmp-*")
	if err != nil {
		return fmt.Errorf("staging %s: %w", path, err)
	}
	tmp := f.Name()
	defer func() {
		if err != nil {
			err = multierr.Append(err, s.fs.Remove(tmp))
		}
	}()

	_, werr := f.Write(data)
	if err = multierr.Combine(werr, f.Close()); err != nil {
		return fmt.Errorf("staging %s: %w", path, err)
	}
	if err = s.fs.Chmod(tmp, FileMode); err != nil {
		return fmt.Errorf("staging %s: %w", path, err)
	}

	s.pending = append(s.pending, staged{tmp: tmp, dest: path})
	return nil
}

// Len reports how many files are staged.
func (s *Stage) Len() int {
	return len(s.pending)
}

// Commit renames every staged file into place. If a rename fails, the
// files not yet renamed are removed.
func (s *Stage) Commit() error {
	for i, p := range s.pending {
		if err := s.fs.Rename(p.tmp, p.dest); err != nil {
			err = fmt.Errorf("writing %s: %w", p.dest, err)
			s.pending = s.pending[i:]
			return multierr.Append(err, s.Abort())
		}
	}
	s.pending = nil
	return nil
}

// Abort removes every staged file. It is safe to call after Commit.
func (s *Stage) Abort() error {
	var err error
	for _, p := range s.pending {
		if rerr := s.fs.Remove(p.tmp); rerr != nil && !os.IsNotExist(rerr) {
			err = multierr.Append(err, rerr)
		}
	}
	s.pending = nil
	return err
}
