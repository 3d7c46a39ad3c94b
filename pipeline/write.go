package pipeline

import (
	"os"
	"path/filepath"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/wippyai/bindpost/errors"
)

// output is a file to be written by the commit phase.
type output struct {
	path string
	data []byte
	mode os.FileMode
}

type staged struct {
	output
	tmp string
}

// commit stages every output into a temporary file next to its
// destination, then renames them into place. A failure while staging
// removes every temporary file and leaves the destinations untouched.
func commit(outputs []output, log *zap.Logger) error {
	var files []staged
	cleanup := func() {
		for _, s := range files {
			if err := os.Remove(s.tmp); err != nil && !os.IsNotExist(err) {
				log.Warn("could not remove staged file", zap.String("path", s.tmp), zap.Error(err))
			}
		}
	}

	for _, out := range outputs {
		tmp, err := stage(out)
		if tmp != "" {
			files = append(files, staged{output: out, tmp: tmp})
		}
		if err != nil {
			cleanup()
			return errors.IO(errors.PhaseWrite, out.path, err)
		}
	}

	for i, s := range files {
		if err := os.Rename(s.tmp, s.path); err != nil {
			// outputs before i are already in place
			cleanup()
			return errors.New(errors.PhaseWrite, errors.KindIOFailure).
				Artifact(s.path).
				Cause(err).
				Detail("%d of %d outputs committed", i, len(files)).
				Build()
		}
		log.Debug("committed", zap.String("artifact", filepath.Base(s.path)), zap.Int("bytes", len(s.data)))
	}
	return nil
}

// stage writes out to a temporary file in its destination directory and
// returns the temporary path. The path is returned even on failure so the
// caller can remove it.
func stage(out output) (tmp string, err error) {
	dir, base := filepath.Split(out.path)
	if dir == "" {
		dir = "."
	}
	f, err := os.CreateTemp(dir, "."+base+".*.tmp")
	if err != nil {
		return "", err
	}
	tmp = f.Name()
	defer func() {
		err = multierr.Append(err, f.Close())
	}()

	if _, err := f.Write(out.data); err != nil {
		return tmp, err
	}
	mode := out.mode
	if mode == 0 {
		mode = 0o644
	}
	if err := f.Chmod(mode); err != nil {
		return tmp, err
	}
	return tmp, f.Sync()
}
