package api

import (
	"github.com/starford/databrowser/internal/catalog"
	"github.com/starford/databrowser/internal/views"
	"github.com/starford/databrowser/internal/workbench"
)

// ContainerInfo is a registered container (aliased from the service layer).
type ContainerInfo = workbench.ContainerInfo

// ObjectItem is one object of a container (aliased from the service layer).
type ObjectItem = workbench.ObjectItem

// ContainerListResponse wraps the container listing.
type ContainerListResponse struct {
	Containers []ContainerInfo `json:"containers" validate:"required"`
}

// ObjectListResponse wraps an object listing.
type ObjectListResponse struct {
	Objects []ObjectItem `json:"objects" validate:"required"`
}

// KeepRequest is the request body for PUT /containers/{no}/keep.
type KeepRequest struct {
	Keep bool `json:"keep" example:"true"`
}

// ResetRequest is the request body for POST /containers/{no}/reset.
type ResetRequest struct {
	Mode string `json:"mode" example:"default" enums:"default,restore,show-all,hide-all"`
}

// SelectRequest is the request body for PUT /current.
type SelectRequest struct {
	Container int    `json:"container" example:"1" validate:"required"`
	Category  string `json:"category" example:"channel" validate:"required"`
	ID        int    `json:"id" example:"0"`
}

// SaveResponse names the container file a save or delete touched.
type SaveResponse struct {
	Path string `json:"path" example:"afm/scan.yaml" validate:"required"`
}

// SearchResponse wraps search results.
type SearchResponse struct {
	Results []catalog.SearchResult `json:"results" validate:"required"`
}

// ViewListResponse wraps the open views.
type ViewListResponse struct {
	Views []views.View `json:"views" validate:"required"`
}
