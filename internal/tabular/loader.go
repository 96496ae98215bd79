// Package tabular loads the delimited seed tables that ship with a
// deployment and writes collection exports back out as CSV.
package tabular

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/resourceshare-ph/apiserver/internal/blob"
)

// Row maps header names to the values of one data line.
type Row map[string]string

// First returns the first non-empty value among the named fields.
func (r Row) First(names ...string) string {
	for _, name := range names {
		if v := r[name]; v != "" {
			return v
		}
	}
	return ""
}

// Table filenames for each logical collection.
var tableFiles = map[string]string{
	"resources": "ShareResources.csv",
	"requests":  "RequestHelp.csv",
	"kitchens":  "CommunityKitchen.csv",
	"transport": "Transportation.csv",
	"users":     "Users.csv",
}

// TableNames lists the logical table names the loader understands.
func TableNames() []string {
	return []string{"resources", "requests", "kitchens", "transport", "users"}
}

// Loader fetches and parses seed tables from a blob source.
type Loader struct {
	src blob.Fetcher
	log *slog.Logger
}

// NewLoader constructs a loader over the given source.
func NewLoader(src blob.Fetcher, log *slog.Logger) *Loader {
	return &Loader{src: src, log: log}
}

// LoadTable resolves name to its file, trying the records/ path first and
// the plain asset path second. A table that cannot be fetched or parsed
// from either location yields an empty result, never an error: missing
// seed data degrades to an empty collection.
func (l *Loader) LoadTable(ctx context.Context, name string) []Row {
	file, ok := tableFiles[name]
	if !ok {
		l.log.Warn("unknown table requested", "table", name)
		return nil
	}

	for _, key := range []string{"records/" + file, file} {
		text, err := l.fetch(ctx, key)
		if err != nil {
			continue
		}
		return ParseCSV(text)
	}

	l.log.Warn("table unavailable from both paths, using empty result", "table", name, "file", file)
	return nil
}

func (l *Loader) fetch(ctx context.Context, key string) (string, error) {
	rc, err := l.src.Get(ctx, key)
	if err != nil {
		return "", err
	}
	defer rc.Close()

	data, err := io.ReadAll(rc)
	if err != nil {
		return "", fmt.Errorf("read %s: %w", key, err)
	}
	return string(data), nil
}

// ParseCSV parses delimited text into rows. The first line is the header;
// subsequent lines map positionally to it. Splitting is a plain comma
// split with no quoting, matching the format the seed tables are written
// in; rows shorter than the header yield empty strings for the missing
// trailing fields.
func ParseCSV(text string) []Row {
	lines := strings.Split(strings.TrimSpace(text), "\n")
	if len(lines) < 1 || strings.TrimSpace(lines[0]) == "" {
		return nil
	}

	headers := strings.Split(lines[0], ",")
	for i := range headers {
		headers[i] = strings.TrimSpace(headers[i])
	}

	rows := make([]Row, 0, len(lines)-1)
	for _, line := range lines[1:] {
		if strings.TrimSpace(line) == "" {
			continue
		}
		values := strings.Split(line, ",")
		row := make(Row, len(headers))
		for i, header := range headers {
			if i < len(values) {
				row[header] = strings.TrimSpace(values[i])
			} else {
				row[header] = ""
			}
		}
		rows = append(rows, row)
	}
	return rows
}
