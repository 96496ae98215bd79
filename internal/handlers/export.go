package handlers

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/resourceshare-ph/apiserver/internal/directory"
	"github.com/resourceshare-ph/apiserver/internal/records"
	"github.com/resourceshare-ph/apiserver/internal/tabular"
)

// ExportHandler serves CSV downloads of the collections.
type ExportHandler struct {
	store *records.Store
	dir   *directory.Directory
	log   *slog.Logger
}

// ExportRouter registers the export routes.
func ExportRouter(r chi.Router, store *records.Store, dir *directory.Directory, log *slog.Logger) {
	handler := &ExportHandler{store: store, dir: dir, log: log}
	r.Get("/{table}", handler.Export)
}

// Export streams a table as CSV. The users table carries account data
// and is restricted to admins; the export never includes password
// hashes.
func (h *ExportHandler) Export(w http.ResponseWriter, r *http.Request) {
	table := chi.URLParam(r, "table")
	headers := tabular.ExportHeaders(table)
	if headers == nil {
		writeError(w, http.StatusNotFound, "unknown table")
		return
	}

	var rows []tabular.Row
	if table == "users" {
		session, err := sessionFromContext(r.Context())
		if err != nil || !session.IsAdmin() {
			writeError(w, http.StatusForbidden, "forbidden")
			return
		}
		rows = h.dir.ExportRows(r.Context())
	} else {
		rows = h.store.ExportRows(r.Context(), table)
	}

	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", `attachment; filename="`+table+`.csv"`)
	if err := tabular.WriteCSV(w, headers, rows); err != nil {
		h.log.Error("write export", "table", table, "error", err)
	}
}
