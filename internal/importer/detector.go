package importer

import (
	"fmt"
	"strings"

	"github.com/tally-dev/tally/internal/config"
	"github.com/tally-dev/tally/internal/model"
)

// Detector selects the parser variant for a statement file by matching its
// header row against the configured format signatures.
type Detector struct {
	formats []*Format
}

// NewDetector builds a Detector from format configuration, preserving
// declaration order so detection is deterministic.
func NewDetector(cfgs []config.FormatConfig) (*Detector, error) {
	if len(cfgs) == 0 {
		return nil, fmt.Errorf("no formats configured")
	}
	formats := make([]*Format, 0, len(cfgs))
	seen := make(map[string]bool, len(cfgs))
	for _, c := range cfgs {
		key := strings.ToLower(c.Name)
		if seen[key] {
			return nil, fmt.Errorf("duplicate format %q", c.Name)
		}
		seen[key] = true
		formats = append(formats, &Format{cfg: c})
	}
	return &Detector{formats: formats}, nil
}

// Detect returns a RowParser bound to the header row. When hint is non-empty
// only the named format is considered. The same header always selects the
// same format: candidates are tried in configuration order, first match wins.
// Returns model.ErrUnrecognizedFormat when nothing matches.
func (d *Detector) Detect(header []string, hint string) (*RowParser, error) {
	for _, f := range d.formats {
		if hint != "" && !strings.EqualFold(f.cfg.Name, hint) {
			continue
		}
		if !f.Matches(header) {
			continue
		}
		return f.Bind(header)
	}
	if hint != "" {
		return nil, fmt.Errorf("format %q: %w", hint, model.ErrUnrecognizedFormat)
	}
	return nil, model.ErrUnrecognizedFormat
}

// Formats returns the configured format names in declaration order.
func (d *Detector) Formats() []string {
	names := make([]string, len(d.formats))
	for i, f := range d.formats {
		names[i] = f.cfg.Name
	}
	return names
}
