package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/starford/databrowser/internal/apperr"
	"github.com/starford/databrowser/internal/browser"
	"github.com/starford/databrowser/internal/keys"
	"github.com/starford/databrowser/internal/workbench"
)

// Handler holds API route handlers.
type Handler struct {
	svc *workbench.Service
}

// NewHandler creates a new Handler.
func NewHandler(svc *workbench.Service) *Handler {
	return &Handler{svc: svc}
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}

// containerNo parses the {no} URL parameter.
func containerNo(w http.ResponseWriter, r *http.Request) (int, bool) {
	no, err := strconv.Atoi(chi.URLParam(r, "no"))
	if err != nil || no <= 0 {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid container number"))
		return 0, false
	}
	return no, true
}

func category(w http.ResponseWriter, raw string) (keys.Category, bool) {
	c, err := keys.ParseCategory(raw)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("unknown category"))
		return 0, false
	}
	return c, true
}

// ListContainers handles GET /api/containers.
//
//	@Summary		List registered containers, most recently used first
//	@Tags			containers
//	@Produce		json
//	@Success		200	{object}	ContainerListResponse
//	@Security		BearerAuth
//	@Router			/containers [get]
func (h *Handler) ListContainers(w http.ResponseWriter, r *http.Request) {
	items, err := h.svc.ListContainers(r.Context())
	if err != nil {
		writeServiceError(w, "list containers", err)
		return
	}
	writeJSON(w, http.StatusOK, ContainerListResponse{Containers: nonNil(items)})
}

// ListObjects handles GET /api/containers/{no}/{category}.
//
//	@Summary		List the objects of one category
//	@Tags			containers
//	@Produce		json
//	@Param			no			path		int		true	"Container number"
//	@Param			category	path		string	true	"Category"	Enums(channel, graph, spectra, volume, xyz, curvemap)
//	@Param			title		query		string	false	"Title glob"
//	@Success		200			{object}	ObjectListResponse
//	@Failure		400			{object}	errResponse
//	@Failure		404			{object}	errResponse
//	@Security		BearerAuth
//	@Router			/containers/{no}/{category} [get]
func (h *Handler) ListObjects(w http.ResponseWriter, r *http.Request) {
	no, ok := containerNo(w, r)
	if !ok {
		return
	}
	c, ok := category(w, chi.URLParam(r, "category"))
	if !ok {
		return
	}
	items, err := h.svc.ListObjects(r.Context(), no, c, r.URL.Query().Get("title"))
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			writeServiceError(w, "list objects", err)
		} else {
			writeJSON(w, http.StatusBadRequest, errorBody(err.Error()))
		}
		return
	}
	writeJSON(w, http.StatusOK, ObjectListResponse{Objects: nonNil(items)})
}

// SetKeep handles PUT /api/containers/{no}/keep.
//
//	@Summary		Keep a container registered while nothing is visible
//	@Tags			containers
//	@Accept			json
//	@Produce		json
//	@Param			no		path		int			true	"Container number"
//	@Param			body	body		KeepRequest	true	"Keep flag"
//	@Success		200		{object}	ContainerInfo
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/containers/{no}/keep [put]
func (h *Handler) SetKeep(w http.ResponseWriter, r *http.Request) {
	no, ok := containerNo(w, r)
	if !ok {
		return
	}
	var req KeepRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}
	info, err := h.svc.SetKeep(r.Context(), no, req.Keep)
	if err != nil {
		writeServiceError(w, "set keep", err)
		return
	}
	writeJSON(w, http.StatusOK, info)
}

// ResetVisibility handles POST /api/containers/{no}/reset.
//
//	@Summary		Reset the visibility of every object in a container
//	@Tags			containers
//	@Accept			json
//	@Produce		json
//	@Param			no		path		int				true	"Container number"
//	@Param			body	body		ResetRequest	true	"Reset mode"
//	@Success		200		{object}	ContainerInfo
//	@Failure		400		{object}	errResponse
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/containers/{no}/reset [post]
func (h *Handler) ResetVisibility(w http.ResponseWriter, r *http.Request) {
	no, ok := containerNo(w, r)
	if !ok {
		return
	}
	var req ResetRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}
	if req.Mode == "" {
		req.Mode = browser.ResetDefault.String()
	}
	mode, err := browser.ParseResetMode(req.Mode)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("unknown reset mode"))
		return
	}
	info, err := h.svc.ResetVisibility(r.Context(), no, mode)
	if err != nil {
		writeServiceError(w, "reset visibility", err)
		return
	}
	writeJSON(w, http.StatusOK, info)
}

// Save handles POST /api/containers/{no}/save.
//
//	@Summary		Write a container back to its file
//	@Tags			containers
//	@Produce		json
//	@Param			no	path		int	true	"Container number"
//	@Success		200	{object}	SaveResponse
//	@Failure		404	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/containers/{no}/save [post]
func (h *Handler) Save(w http.ResponseWriter, r *http.Request) {
	no, ok := containerNo(w, r)
	if !ok {
		return
	}
	path, err := h.svc.Save(r.Context(), no)
	if err != nil {
		writeServiceError(w, "save", err)
		return
	}
	writeJSON(w, http.StatusOK, SaveResponse{Path: path})
}

// DeleteContainer handles DELETE /api/containers/{no}.
//
//	@Summary		Delete a container file and close the container
//	@Tags			containers
//	@Produce		json
//	@Param			no	path		int	true	"Container number"
//	@Success		200	{object}	SaveResponse
//	@Failure		404	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/containers/{no} [delete]
func (h *Handler) DeleteContainer(w http.ResponseWriter, r *http.Request) {
	no, ok := containerNo(w, r)
	if !ok {
		return
	}
	path, err := h.svc.Delete(r.Context(), no)
	if err != nil {
		writeServiceError(w, "delete container", err)
		return
	}
	writeJSON(w, http.StatusOK, SaveResponse{Path: path})
}

// ShowObject handles POST /api/containers/{no}/{category}/{id}/view.
//
//	@Summary		Open a view of an object
//	@Tags			views
//	@Produce		json
//	@Param			no			path		int		true	"Container number"
//	@Param			category	path		string	true	"Category"
//	@Param			id			path		int		true	"Object id"
//	@Success		200			{object}	ObjectItem
//	@Failure		404			{object}	errResponse
//	@Security		BearerAuth
//	@Router			/containers/{no}/{category}/{id}/view [post]
func (h *Handler) ShowObject(w http.ResponseWriter, r *http.Request) {
	h.setVisible(w, r, true)
}

// HideObject handles DELETE /api/containers/{no}/{category}/{id}/view.
//
//	@Summary		Close the view of an object
//	@Tags			views
//	@Produce		json
//	@Param			no			path		int		true	"Container number"
//	@Param			category	path		string	true	"Category"
//	@Param			id			path		int		true	"Object id"
//	@Success		200			{object}	ObjectItem
//	@Failure		404			{object}	errResponse
//	@Security		BearerAuth
//	@Router			/containers/{no}/{category}/{id}/view [delete]
func (h *Handler) HideObject(w http.ResponseWriter, r *http.Request) {
	h.setVisible(w, r, false)
}

func (h *Handler) setVisible(w http.ResponseWriter, r *http.Request, visible bool) {
	no, ok := containerNo(w, r)
	if !ok {
		return
	}
	c, ok := category(w, chi.URLParam(r, "category"))
	if !ok {
		return
	}
	id, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid object id"))
		return
	}
	it, err := h.svc.SetVisible(r.Context(), no, c, id, visible)
	if err != nil {
		writeServiceError(w, "set visible", err)
		return
	}
	writeJSON(w, http.StatusOK, it)
}

// ListViews handles GET /api/views.
//
//	@Summary		List open views
//	@Tags			views
//	@Produce		json
//	@Success		200	{object}	ViewListResponse
//	@Security		BearerAuth
//	@Router			/views [get]
func (h *Handler) ListViews(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, ViewListResponse{Views: nonNil(h.svc.Views())})
}

// Current handles GET /api/current/{category}.
//
//	@Summary		Get the selected object of a category
//	@Tags			current
//	@Produce		json
//	@Param			category	path		string	true	"Category"
//	@Success		200			{object}	ObjectItem
//	@Failure		404			{object}	errResponse
//	@Security		BearerAuth
//	@Router			/current/{category} [get]
func (h *Handler) Current(w http.ResponseWriter, r *http.Request) {
	c, ok := category(w, chi.URLParam(r, "category"))
	if !ok {
		return
	}
	it, err := h.svc.Current(r.Context(), c)
	if err != nil {
		writeServiceError(w, "current", err)
		return
	}
	writeJSON(w, http.StatusOK, it)
}

// Select handles PUT /api/current.
//
//	@Summary		Select an object
//	@Tags			current
//	@Accept			json
//	@Param			body	body	SelectRequest	true	"Object to select"
//	@Success		204		"Selected"
//	@Failure		400		{object}	errResponse
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/current [put]
func (h *Handler) Select(w http.ResponseWriter, r *http.Request) {
	var req SelectRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}
	c, ok := category(w, req.Category)
	if !ok {
		return
	}
	if err := h.svc.Select(r.Context(), req.Container, c, req.ID); err != nil {
		writeServiceError(w, "select", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Search handles GET /api/search.
//
//	@Summary		Search object titles across containers
//	@Tags			search
//	@Produce		json
//	@Param			q		query		string	true	"Search query"
//	@Param			limit	query		int		false	"Max results"
//	@Success		200		{object}	SearchResponse
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/search [get]
func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query().Get("q")
	if q == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("query parameter 'q' is required"))
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	results, err := h.svc.Search(r.Context(), q, limit)
	if err != nil {
		writeServiceError(w, "search", err)
		return
	}
	writeJSON(w, http.StatusOK, SearchResponse{Results: nonNil(results)})
}
