// Package repository expone el catálogo de productos desde MongoDB o desde un
// archivo semilla YAML.
package repository

import (
	"context"
	"errors"
	"sort"
	"strings"

	"babyfood-store/internal/models"
)

//go:generate mockgen -destination=mocks/mock_product_source.go -package=mocks babyfood-store/internal/repository ProductSource

var (
	ErrProductNotFound = errors.New("product not found")
	ErrDuplicateSlug   = errors.New("product slug already exists")
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

// ListFilter son los filtros y la paginación del listado
type ListFilter struct {
	Page       int
	PageSize   int
	Collection string
	Featured   *bool
	Query      string
	SortBy     string
	SortOrder  string
}

// Normalize aplica valores por defecto y cotas a la paginación y el orden
func (f ListFilter) Normalize() ListFilter {
	if f.Page < 1 {
		f.Page = 1
	}
	if f.PageSize < 1 {
		f.PageSize = defaultPageSize
	}
	if f.PageSize > maxPageSize {
		f.PageSize = maxPageSize
	}
	switch f.SortBy {
	case "price", "title", "created_at":
	default:
		f.SortBy = "created_at"
	}
	if f.SortOrder != "asc" {
		f.SortOrder = "desc"
	}
	f.Collection = strings.TrimSpace(f.Collection)
	f.Query = strings.TrimSpace(f.Query)
	return f
}

// ProductSource es el catálogo de sólo lectura que consume el núcleo, más el
// alta de productos
type ProductSource interface {
	FindBySlug(ctx context.Context, slug string) (*models.Product, error)
	FindAll(ctx context.Context, filter ListFilter) ([]*models.Product, int64, error)
	Create(ctx context.Context, product *models.Product) error
	SoftDelete(ctx context.Context, slug string) error
}

// TotalPages calcula el número de páginas para total elementos
func TotalPages(total int64, pageSize int) int64 {
	if pageSize <= 0 {
		return 1
	}
	tp := total / int64(pageSize)
	if total%int64(pageSize) != 0 {
		tp++
	}
	return tp
}

// matches aplica el filtro a un producto en memoria
func (f ListFilter) matches(p *models.Product) bool {
	if p.IsDeleted {
		return false
	}
	if f.Collection != "" && !containsFold(p.Collections, f.Collection) {
		return false
	}
	if f.Featured != nil && p.Featured != *f.Featured {
		return false
	}
	if f.Query != "" && !strings.Contains(strings.ToLower(p.Title), strings.ToLower(f.Query)) {
		return false
	}
	return true
}

func (f ListFilter) sortProducts(products []*models.Product) {
	less := func(a, b *models.Product) bool {
		switch f.SortBy {
		case "price":
			return a.Price < b.Price
		case "title":
			return strings.ToLower(a.Title) < strings.ToLower(b.Title)
		default:
			return a.CreatedAt.Before(b.CreatedAt)
		}
	}
	sort.SliceStable(products, func(i, j int) bool {
		if f.SortOrder == "asc" {
			return less(products[i], products[j])
		}
		return less(products[j], products[i])
	})
}

func containsFold(values []string, target string) bool {
	for _, v := range values {
		if strings.EqualFold(v, target) {
			return true
		}
	}
	return false
}
