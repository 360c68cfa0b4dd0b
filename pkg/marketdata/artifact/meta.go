package artifact

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/rxtech-lab/argo-harvest/internal/types"
	"github.com/rxtech-lab/argo-harvest/internal/version"
	"github.com/rxtech-lab/argo-harvest/pkg/errors"
	"gopkg.in/yaml.v3"
)

// FormatVersion is the artifact layout version written into every sidecar.
const FormatVersion = "1.0.0"

// Meta describes a committed artifact. It is advisory: the artifact itself is the
// source of truth and inventory never looks at sidecars.
type Meta struct {
	FormatVersion string                 `yaml:"format_version"`
	WrittenBy     string                 `yaml:"written_by"`
	Symbol        string                 `yaml:"symbol"`
	Period        types.Period           `yaml:"period"`
	Interval      types.Interval         `yaml:"interval"`
	Format        Format                 `yaml:"format"`
	Records       int                    `yaml:"records"`
	Start         time.Time              `yaml:"start"`
	End           time.Time              `yaml:"end"`
	Validation    types.ValidationResult `yaml:"validation"`
	WrittenAt     time.Time              `yaml:"written_at"`
}

// NewMeta builds the sidecar content for a freshly written artifact.
func NewMeta(key Key, stats types.TableStats, validation types.ValidationResult, writtenAt time.Time) Meta {
	return Meta{
		FormatVersion: FormatVersion,
		WrittenBy:     version.WrittenBy(),
		Symbol:        key.Symbol,
		Period:        key.Period,
		Interval:      key.Interval,
		Format:        key.Format,
		Records:       stats.Records,
		Start:         stats.Start,
		End:           stats.End,
		Validation:    validation,
		WrittenAt:     writtenAt,
	}
}

// Key returns the key the sidecar describes.
func (m Meta) Key() Key {
	return Key{Symbol: m.Symbol, Period: m.Period, Interval: m.Interval, Format: m.Format}
}

// WriteMeta writes the sidecar to a YAML file.
func WriteMeta(path string, meta Meta) error {
	data, err := yaml.Marshal(meta)
	if err != nil {
		return fmt.Errorf("failed to marshal artifact metadata to YAML: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write artifact metadata to file: %w", err)
	}

	return nil
}

// ReadMeta reads a sidecar and rejects layouts newer than this build understands.
// A missing file is reported with ErrCodeArtifactReadFailed wrapping fs.ErrNotExist.
func ReadMeta(path string) (Meta, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Meta{}, errors.Wrap(errors.ErrCodeArtifactReadFailed, "failed to read artifact metadata file", err)
	}

	var meta Meta
	if err := yaml.Unmarshal(data, &meta); err != nil {
		return Meta{}, errors.Wrap(errors.ErrCodeArtifactMalformed, "failed to unmarshal artifact metadata", err)
	}

	if err := version.CheckFormatCompatibility(FormatVersion, meta.FormatVersion); err != nil {
		return Meta{}, errors.Wrapf(errors.ErrCodeIncompatibleFormat, err, "incompatible artifact metadata %s", path)
	}

	return meta, nil
}

// ReadSidecar reads the sidecar stored next to the artifact for key in dir.
// It returns nil without an error when the artifact has no sidecar.
func ReadSidecar(dir string, key Key) (*Meta, error) {
	meta, err := ReadMeta(filepath.Join(dir, key.MetaName()))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}

		return nil, err
	}

	if meta.Key() != key {
		return &meta, errors.Newf(errors.ErrCodeArtifactMalformed,
			"sidecar %s describes %s", key.MetaName(), meta.Key().Name())
	}

	return &meta, nil
}
