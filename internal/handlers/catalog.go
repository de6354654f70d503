package handlers

import (
	"context"
	"errors"
	"fmt"
	"time"

	"babyfood-store/internal/cache"
	"babyfood-store/internal/models"
	"babyfood-store/internal/repository"
)

const (
	productCachePrefix = "product:"
	listCachePrefix    = "products:list:"
)

// Catalog lee productos a través del caché
type Catalog struct {
	repo  repository.ProductSource
	cache *cache.Cache
	ttl   time.Duration
}

func NewCatalog(repo repository.ProductSource, c *cache.Cache, ttl time.Duration) *Catalog {
	if c == nil {
		c = cache.New(ttl, 0)
	}
	return &Catalog{repo: repo, cache: c, ttl: ttl}
}

// Product obtiene un producto por slug (con caché)
func (cat *Catalog) Product(ctx context.Context, slug string) (*models.Product, error) {
	cacheKey := productCachePrefix + slug
	if cached, found := cat.cache.GetValue(cacheKey); found {
		if p, ok := cached.(*models.Product); ok {
			return p, nil
		}
	}

	product, err := cat.repo.FindBySlug(ctx, slug)
	if err != nil {
		return nil, err
	}
	cat.cache.Set(cacheKey, product, cat.ttl)
	return product, nil
}

// Products carga los productos de varias líneas; los que ya no existen se omiten
func (cat *Catalog) Products(ctx context.Context, slugs []string) (map[string]*models.Product, error) {
	out := make(map[string]*models.Product, len(slugs))
	for _, slug := range slugs {
		if _, seen := out[slug]; seen {
			continue
		}
		p, err := cat.Product(ctx, slug)
		if err != nil {
			if errors.Is(err, repository.ErrProductNotFound) {
				continue
			}
			return nil, fmt.Errorf("load product %s: %w", slug, err)
		}
		out[slug] = p
	}
	return out, nil
}

// invalidate borra el producto y los listados cacheados
func (cat *Catalog) invalidate(slug string) {
	if slug != "" {
		cat.cache.Delete(productCachePrefix + slug)
	}
	cat.cache.DeleteByPrefix(listCachePrefix)
}
