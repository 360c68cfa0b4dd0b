package utils

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/rxtech-lab/argo-harvest/pkg/errors"
)

// CommitNoClobber moves a fully written temp file to its final name without ever
// replacing an existing file. The temp file is removed in every case.
func CommitNoClobber(tmpPath, finalPath string) error {
	defer os.Remove(tmpPath)

	if err := SyncFile(tmpPath); err != nil {
		return errors.Wrap(errors.ErrCodeStorageWriteFailed, "failed to sync temp file", err)
	}

	err := os.Link(tmpPath, finalPath)
	if err == nil {
		syncDir(filepath.Dir(finalPath))

		return nil
	}

	if os.IsExist(err) {
		return errors.Newf(errors.ErrCodeArtifactExists, "%s already exists", finalPath)
	}

	// Hard links are not available everywhere. Fall back to check-then-rename.
	if _, statErr := os.Lstat(finalPath); statErr == nil {
		return errors.Newf(errors.ErrCodeArtifactExists, "%s already exists", finalPath)
	} else if !os.IsNotExist(statErr) {
		return errors.Wrap(errors.ErrCodeStorageWriteFailed, "failed to check commit target", statErr)
	}

	if err := os.Rename(tmpPath, finalPath); err != nil {
		return errors.Wrap(errors.ErrCodeStorageWriteFailed, "failed to commit file", err)
	}

	syncDir(filepath.Dir(finalPath))

	return nil
}

// SyncFile flushes a file's content to stable storage.
func SyncFile(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	if err := f.Sync(); err != nil {
		return fmt.Errorf("failed to sync %s: %w", path, err)
	}

	return nil
}

// syncDir makes a new directory entry durable. Not every platform supports it.
func syncDir(dir string) {
	d, err := os.Open(dir)
	if err != nil {
		return
	}
	defer d.Close()

	_ = d.Sync()
}
