package importer

import (
	"fmt"
	"strings"

	"github.com/tally-dev/tally/internal/config"
	"github.com/tally-dev/tally/internal/model"
)

// Format is one configured statement layout: a header signature plus the
// rules for reading its rows.
type Format struct {
	cfg config.FormatConfig
}

// Matches reports whether the header row carries every column title the
// format declares. Comparison ignores case and surrounding whitespace.
func (f *Format) Matches(header []string) bool {
	titles := make(map[string]bool, len(header))
	for _, h := range header {
		titles[normalizeTitle(h)] = true
	}
	for _, title := range f.cfg.Columns {
		if !titles[normalizeTitle(title)] {
			return false
		}
	}
	return len(f.cfg.Columns) > 0
}

// Bind resolves the format's column titles to indexes in the header row and
// returns a RowParser for the file.
func (f *Format) Bind(header []string) (*RowParser, error) {
	index := make(map[string]int, len(header))
	for i, h := range header {
		title := normalizeTitle(h)
		if _, ok := index[title]; !ok {
			index[title] = i
		}
	}

	columns := make(map[model.Field]int, len(f.cfg.Columns))
	for field, title := range f.cfg.Columns {
		i, ok := index[normalizeTitle(title)]
		if !ok {
			return nil, fmt.Errorf("format %s: column %q not in header", f.cfg.Name, title)
		}
		columns[model.Field(field)] = i
	}

	return &RowParser{cfg: f.cfg, columns: columns}, nil
}

func normalizeTitle(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
