// Package writer persists fetched tables as one immutable artifact per dataset.
package writer

import (
	"context"
	"os"
	"path/filepath"
	"time"

	"github.com/rxtech-lab/argo-harvest/internal/logger"
	"github.com/rxtech-lab/argo-harvest/internal/types"
	"github.com/rxtech-lab/argo-harvest/internal/utils"
	"github.com/rxtech-lab/argo-harvest/pkg/errors"
	"github.com/rxtech-lab/argo-harvest/pkg/marketdata/artifact"
	"go.uber.org/zap"
)

// Store defines the interface for persisting tables to the storage directory.
type Store interface {
	// Persist writes the table as the artifact for key and returns its path.
	// An existing artifact is never overwritten.
	Persist(ctx context.Context, key artifact.Key, table *types.Table, validation types.ValidationResult) (string, error)
	// Load reads an artifact back into a table.
	Load(ctx context.Context, path string) (*types.Table, error)
	// Format returns the artifact format the store writes.
	Format() artifact.Format
	// Dir returns the storage directory.
	Dir() string
}

// New creates the store for the given format.
func New(format artifact.Format, dir string, log *logger.Logger) (Store, error) {
	switch format {
	case artifact.FormatCSV:
		return NewCSVStore(dir, log), nil
	case artifact.FormatParquet:
		return NewParquetStore(dir, log), nil
	default:
		return nil, errors.Newf(errors.ErrCodeInvalidParameter, "unsupported artifact format %q", format)
	}
}

// encodeFunc writes the table to the given temp path.
type encodeFunc func(ctx context.Context, tmpPath string, table *types.Table) error

// commitArtifact writes the table through encode into a hidden temp file, commits
// it under the key's name and then writes the metadata sidecar.
func commitArtifact(
	ctx context.Context,
	dir string,
	key artifact.Key,
	table *types.Table,
	validation types.ValidationResult,
	encode encodeFunc,
	log *logger.Logger,
) (string, error) {
	if table.IsEmpty() {
		return "", errors.Newf(errors.ErrCodeStorageWriteFailed, "refusing to persist an empty table for %s", key)
	}

	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", errors.Wrapf(errors.ErrCodeStorageUnavailable, err, "failed to create storage directory %s", dir)
	}

	name := key.Name()
	finalPath := filepath.Join(dir, name)

	if _, err := os.Lstat(finalPath); err == nil {
		return "", errors.Newf(errors.ErrCodeArtifactExists, "%s already exists", finalPath)
	}

	tmpPath := filepath.Join(dir, artifact.TempName(name))

	if err := encode(ctx, tmpPath, table); err != nil {
		os.Remove(tmpPath)

		return "", errors.Wrapf(errors.ErrCodeStorageWriteFailed, err, "failed to write %s", name)
	}

	if err := utils.CommitNoClobber(tmpPath, finalPath); err != nil {
		return "", err
	}

	meta := artifact.NewMeta(key, table.Stats(), validation, time.Now())
	if err := artifact.WriteMeta(filepath.Join(dir, key.MetaName()), meta); err != nil {
		log.Warn("failed to write artifact metadata", zap.String("artifact", name), zap.Error(err))
	}

	log.Debug("artifact committed", zap.String("path", finalPath), zap.Int("records", table.Len()))

	return finalPath, nil
}
