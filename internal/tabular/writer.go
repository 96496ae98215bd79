package tabular

import (
	"encoding/csv"
	"io"
)

// Export headers for each table, in the column order downloads use.
var exportHeaders = map[string][]string{
	"resources": {"ID", "Resource Name", "Category", "Location", "Contact", "Notes", "Date Shared", "Username"},
	"requests":  {"ID", "Need", "Urgency", "Location", "Contact", "Details", "Date Requested", "Username"},
	"kitchens":  {"ID", "Location", "Date", "Time", "Capacity", "Menu", "Date Registered", "Username"},
	"transport": {"ID", "Type", "From", "To", "When", "Seats", "Contact", "Date Offered", "Username"},
	"users":     {"ID", "Username", "Full Name", "Role", "Barangay", "Phone", "Date Registered"},
}

// ExportHeaders returns the download column set for a table, or nil for
// an unknown table.
func ExportHeaders(table string) []string {
	return exportHeaders[table]
}

// WriteCSV writes rows to w as CSV under the given headers. Missing
// fields become empty cells. Unlike the loader, exports are written with
// standard quoting so downstream spreadsheet tools read them cleanly.
func WriteCSV(w io.Writer, headers []string, rows []Row) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(headers); err != nil {
		return err
	}
	record := make([]string, len(headers))
	for _, row := range rows {
		for i, header := range headers {
			record[i] = row[header]
		}
		if err := cw.Write(record); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
