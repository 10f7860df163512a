package api

import (
	"github.com/starford/brewmint/internal/itemservice"
	"github.com/starford/brewmint/internal/models"
)

// ItemDetail is the single item response type (aliased from the domain layer).
type ItemDetail = itemservice.ItemDetail

// ItemListResponse wraps paginated item listings.
type ItemListResponse struct {
	Items []models.Item `json:"items" validate:"required"`
	Total int           `json:"total" example:"42" validate:"required"`
}

// SearchResponse wraps search results.
type SearchResponse struct {
	Results []models.Item `json:"results" validate:"required"`
}

// StatusResponse is returned by the health probes.
type StatusResponse struct {
	Status string `json:"status" example:"ok" validate:"required"`
}
