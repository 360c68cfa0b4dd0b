// Package artifact maps dataset keys to artifact file names and back, and owns the
// metadata sidecar written next to every artifact.
package artifact

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/rxtech-lab/argo-harvest/internal/types"
	"github.com/rxtech-lab/argo-harvest/pkg/errors"
)

// Format is the on-disk encoding of an artifact.
type Format string

const (
	FormatCSV     Format = "csv"
	FormatParquet Format = "parquet"
)

// MetaSuffix is appended to an artifact name to form its sidecar name.
const MetaSuffix = ".meta.yaml"

const tempMarker = ".tmp-"

var nameRegexp = regexp.MustCompile(
	`^([^_]+)_(` + types.PeriodPattern + `)_(` + types.IntervalPattern + `)\.(csv|parquet)$`,
)

// ParseFormat validates a format string.
func ParseFormat(s string) (Format, error) {
	switch Format(s) {
	case FormatCSV, FormatParquet:
		return Format(s), nil
	default:
		return "", errors.Newf(errors.ErrCodeInvalidParameter, "unsupported artifact format %q", s)
	}
}

// Key identifies one dataset: a symbol downloaded for a period at an interval.
type Key struct {
	Symbol   string
	Period   types.Period
	Interval types.Interval
	Format   Format
}

// Name returns the canonical artifact file name for the key.
func (k Key) Name() string {
	return fmt.Sprintf("%s_%s_%s.%s", EscapeSymbol(k.Symbol), k.Period, k.Interval, k.Format)
}

// MetaName returns the sidecar file name for the key.
func (k Key) MetaName() string {
	return k.Name() + MetaSuffix
}

// Dataset returns a key identifying the same dataset without a format.
func (k Key) Dataset() Key {
	k.Format = ""

	return k
}

func (k Key) String() string {
	return fmt.Sprintf("%s/%s/%s", k.Symbol, k.Period, k.Interval)
}

// TempName returns a hidden, unique name used while an artifact is written.
func TempName(name string) string {
	return "." + name + tempMarker + uuid.NewString()
}

// IsHidden reports whether the name is a dot file, which covers temp files.
func IsHidden(name string) bool {
	return strings.HasPrefix(name, ".")
}

// Parse decodes an artifact file name. Anything that is not exactly the canonical
// name of some key is rejected.
func Parse(name string) (Key, error) {
	m := nameRegexp.FindStringSubmatch(name)
	if m == nil {
		return Key{}, errors.Newf(errors.ErrCodeArtifactMalformed, "%q is not an artifact name", name)
	}

	symbol, err := UnescapeSymbol(m[1])
	if err != nil {
		return Key{}, errors.Wrapf(errors.ErrCodeArtifactMalformed, err, "%q has a malformed symbol", name)
	}

	period, err := types.ParsePeriod(m[2])
	if err != nil {
		return Key{}, errors.Wrapf(errors.ErrCodeArtifactMalformed, err, "%q has an invalid period", name)
	}

	interval, err := types.ParseInterval(m[3])
	if err != nil {
		return Key{}, errors.Wrapf(errors.ErrCodeArtifactMalformed, err, "%q has an invalid interval", name)
	}

	key := Key{Symbol: symbol, Period: period, Interval: interval, Format: Format(m[4])}
	if key.Name() != name {
		return Key{}, errors.Newf(errors.ErrCodeArtifactMalformed, "%q is not in canonical form", name)
	}

	return key, nil
}

// EscapeSymbol percent-encodes every byte outside [A-Za-z0-9.^=-], plus a leading
// dot, so the result never contains the name separator and is never hidden.
func EscapeSymbol(symbol string) string {
	var b strings.Builder

	for i := 0; i < len(symbol); i++ {
		c := symbol[i]
		if isPlain(c) && (i > 0 || c != '.') {
			b.WriteByte(c)

			continue
		}

		fmt.Fprintf(&b, "%%%02X", c)
	}

	return b.String()
}

// UnescapeSymbol reverses EscapeSymbol. It does not check canonical form.
func UnescapeSymbol(escaped string) (string, error) {
	if escaped == "" {
		return "", fmt.Errorf("empty symbol")
	}

	var b strings.Builder

	for i := 0; i < len(escaped); i++ {
		c := escaped[i]
		if c != '%' {
			b.WriteByte(c)

			continue
		}

		if i+2 >= len(escaped) {
			return "", fmt.Errorf("truncated escape at offset %d", i)
		}

		v, err := strconv.ParseUint(escaped[i+1:i+3], 16, 8)
		if err != nil {
			return "", fmt.Errorf("invalid escape %q: %w", escaped[i:i+3], err)
		}

		b.WriteByte(byte(v))
		i += 2
	}

	return b.String(), nil
}

func isPlain(c byte) bool {
	switch {
	case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9':
		return true
	case c == '.', c == '^', c == '=', c == '-':
		return true
	default:
		return false
	}
}
