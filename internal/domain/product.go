package domain

import "time"

type Product struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Price       float64   `json:"price"`
	Category    string    `json:"category"`
	Image       string    `json:"image"`
	Images      []string  `json:"images,omitempty"`
	Stock       int       `json:"stock"`
	Rating      float64   `json:"rating"`
	ReviewCount int       `json:"reviewCount"`
	Featured    bool      `json:"featured,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

type SortOrder string

const (
	SortPriceAsc  SortOrder = "price-asc"
	SortPriceDesc SortOrder = "price-desc"
	SortName      SortOrder = "name"
	SortRating    SortOrder = "rating"
)

type ProductFilters struct {
	Category string    `json:"category,omitempty"`
	MinPrice float64   `json:"minPrice,omitempty"`
	MaxPrice float64   `json:"maxPrice,omitempty"`
	Search   string    `json:"search,omitempty"`
	SortBy   SortOrder `json:"sortBy,omitempty"`
}

type Pagination struct {
	Page       int `json:"page"`
	Limit      int `json:"limit"`
	Total      int `json:"total"`
	TotalPages int `json:"totalPages"`
}

const (
	DefaultPage     = 1
	DefaultPageSize = 12
)

type ProductPage struct {
	Products   []Product  `json:"products"`
	Pagination Pagination `json:"pagination"`
}

var Categories = []string{
	"Electronics",
	"Clothing",
	"Books",
	"Home & Garden",
	"Sports",
	"Toys",
	"Beauty",
	"Food",
}
