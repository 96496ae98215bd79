package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/resourceshare-ph/apiserver/internal/records"
	"github.com/resourceshare-ph/apiserver/types"
)

// RecordsHandler serves CRUD over the four domain collections. Every
// route requires an authenticated session; ownership checks live in the
// store.
type RecordsHandler struct {
	store *records.Store
}

// RecordsRouter registers the domain collection routes.
func RecordsRouter(r chi.Router, store *records.Store) {
	handler := &RecordsHandler{store: store}

	r.Route("/resources", func(r chi.Router) {
		r.Get("/", handler.ListResources)
		r.Post("/", handler.CreateResource)
		r.Put("/{id}", handler.UpdateResource)
		r.Delete("/{id}", handler.DeleteResource)
	})
	r.Route("/requests", func(r chi.Router) {
		r.Get("/", handler.ListRequests)
		r.Post("/", handler.CreateRequest)
		r.Put("/{id}", handler.UpdateRequest)
		r.Delete("/{id}", handler.DeleteRequest)
	})
	r.Route("/kitchens", func(r chi.Router) {
		r.Get("/", handler.ListKitchens)
		r.Post("/", handler.CreateKitchen)
		r.Put("/{id}", handler.UpdateKitchen)
		r.Delete("/{id}", handler.DeleteKitchen)
	})
	r.Route("/transport", func(r chi.Router) {
		r.Get("/", handler.ListTransport)
		r.Post("/", handler.CreateTransport)
		r.Put("/{id}", handler.UpdateTransport)
		r.Delete("/{id}", handler.DeleteTransport)
	})
}

func (h *RecordsHandler) ListResources(w http.ResponseWriter, r *http.Request) {
	list := h.store.Resources.List(r.Context())
	if list == nil {
		list = []types.Resource{}
	}
	writeJSON(w, http.StatusOK, list)
}

func (h *RecordsHandler) CreateResource(w http.ResponseWriter, r *http.Request) {
	session, err := sessionFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	var resource types.Resource
	if err := json.NewDecoder(r.Body).Decode(&resource); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request")
		return
	}
	created, err := h.store.Resources.Create(r.Context(), session, resource)
	if err != nil {
		writeMutationError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

func (h *RecordsHandler) UpdateResource(w http.ResponseWriter, r *http.Request) {
	session, err := sessionFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	var patch records.ResourcePatch
	if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request")
		return
	}
	updated, err := h.store.Resources.Update(r.Context(), session, chi.URLParam(r, "id"), patch)
	if err != nil {
		writeMutationError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

func (h *RecordsHandler) DeleteResource(w http.ResponseWriter, r *http.Request) {
	session, err := sessionFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	if _, err := h.store.Resources.Delete(r.Context(), session, chi.URLParam(r, "id")); err != nil {
		writeMutationError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *RecordsHandler) ListRequests(w http.ResponseWriter, r *http.Request) {
	list := h.store.Requests.List(r.Context())
	if list == nil {
		list = []types.Request{}
	}
	writeJSON(w, http.StatusOK, list)
}

func (h *RecordsHandler) CreateRequest(w http.ResponseWriter, r *http.Request) {
	session, err := sessionFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	var request types.Request
	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request")
		return
	}
	created, err := h.store.Requests.Create(r.Context(), session, request)
	if err != nil {
		writeMutationError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

func (h *RecordsHandler) UpdateRequest(w http.ResponseWriter, r *http.Request) {
	session, err := sessionFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	var patch records.RequestPatch
	if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request")
		return
	}
	updated, err := h.store.Requests.Update(r.Context(), session, chi.URLParam(r, "id"), patch)
	if err != nil {
		writeMutationError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

func (h *RecordsHandler) DeleteRequest(w http.ResponseWriter, r *http.Request) {
	session, err := sessionFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	if _, err := h.store.Requests.Delete(r.Context(), session, chi.URLParam(r, "id")); err != nil {
		writeMutationError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *RecordsHandler) ListKitchens(w http.ResponseWriter, r *http.Request) {
	list := h.store.Kitchens.List(r.Context())
	if list == nil {
		list = []types.Kitchen{}
	}
	writeJSON(w, http.StatusOK, list)
}

func (h *RecordsHandler) CreateKitchen(w http.ResponseWriter, r *http.Request) {
	session, err := sessionFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	var kitchen types.Kitchen
	if err := json.NewDecoder(r.Body).Decode(&kitchen); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request")
		return
	}
	created, err := h.store.Kitchens.Create(r.Context(), session, kitchen)
	if err != nil {
		writeMutationError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

func (h *RecordsHandler) UpdateKitchen(w http.ResponseWriter, r *http.Request) {
	session, err := sessionFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	var patch records.KitchenPatch
	if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request")
		return
	}
	updated, err := h.store.Kitchens.Update(r.Context(), session, chi.URLParam(r, "id"), patch)
	if err != nil {
		writeMutationError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

func (h *RecordsHandler) DeleteKitchen(w http.ResponseWriter, r *http.Request) {
	session, err := sessionFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	if _, err := h.store.Kitchens.Delete(r.Context(), session, chi.URLParam(r, "id")); err != nil {
		writeMutationError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *RecordsHandler) ListTransport(w http.ResponseWriter, r *http.Request) {
	list := h.store.Transport.List(r.Context())
	if list == nil {
		list = []types.Transport{}
	}
	writeJSON(w, http.StatusOK, list)
}

func (h *RecordsHandler) CreateTransport(w http.ResponseWriter, r *http.Request) {
	session, err := sessionFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	var offer types.Transport
	if err := json.NewDecoder(r.Body).Decode(&offer); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request")
		return
	}
	created, err := h.store.Transport.Create(r.Context(), session, offer)
	if err != nil {
		writeMutationError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

func (h *RecordsHandler) UpdateTransport(w http.ResponseWriter, r *http.Request) {
	session, err := sessionFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	var patch records.TransportPatch
	if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request")
		return
	}
	updated, err := h.store.Transport.Update(r.Context(), session, chi.URLParam(r, "id"), patch)
	if err != nil {
		writeMutationError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

func (h *RecordsHandler) DeleteTransport(w http.ResponseWriter, r *http.Request) {
	session, err := sessionFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	if _, err := h.store.Transport.Delete(r.Context(), session, chi.URLParam(r, "id")); err != nil {
		writeMutationError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// writeMutationError maps store errors onto HTTP statuses.
func writeMutationError(w http.ResponseWriter, err error) {
	var verr *records.ValidationError
	switch {
	case errors.As(err, &verr):
		writeError(w, http.StatusBadRequest, verr.Error())
	case errors.Is(err, records.ErrForbidden):
		writeError(w, http.StatusForbidden, "forbidden")
	case errors.Is(err, records.ErrNotFound):
		writeError(w, http.StatusNotFound, "not found")
	default:
		writeError(w, http.StatusInternalServerError, "server error")
	}
}
