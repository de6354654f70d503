package repository

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"gopkg.in/yaml.v3"

	"babyfood-store/internal/models"
)

type seedFile struct {
	Products []*models.Product `yaml:"products"`
}

// SeedProductRepository sirve el catálogo desde memoria, cargado de un YAML
type SeedProductRepository struct {
	mu       sync.RWMutex
	products []*models.Product
	now      func() time.Time
}

// NewSeedProductRepository crea un catálogo vacío
func NewSeedProductRepository() *SeedProductRepository {
	return &SeedProductRepository{now: time.Now}
}

// LoadSeedFile lee y valida el archivo semilla
func LoadSeedFile(path string) (*SeedProductRepository, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open seed file: %w", err)
	}
	defer f.Close()
	return LoadSeed(f)
}

// LoadSeed lee productos en YAML; cada producto debe pasar Validate
func LoadSeed(r io.Reader) (*SeedProductRepository, error) {
	var seed seedFile
	if err := yaml.NewDecoder(r).Decode(&seed); err != nil && err != io.EOF {
		return nil, fmt.Errorf("decode seed: %w", err)
	}

	repo := NewSeedProductRepository()
	base := repo.now()
	for i, p := range seed.Products {
		if p == nil {
			continue
		}
		// conserva el orden del archivo al ordenar por fecha de alta
		p.CreatedAt = base.Add(time.Duration(i) * time.Millisecond)
		p.UpdatedAt = p.CreatedAt
		if err := repo.insert(p); err != nil {
			return nil, fmt.Errorf("seed product %d (%s): %w", i, p.Slug, err)
		}
	}
	return repo, nil
}

// Create valida y agrega un producto
func (r *SeedProductRepository) Create(_ context.Context, product *models.Product) error {
	product.CreatedAt = r.now()
	product.UpdatedAt = product.CreatedAt
	product.IsDeleted = false
	return r.insert(product)
}

func (r *SeedProductRepository) insert(product *models.Product) error {
	product.Slug = strings.TrimSpace(product.Slug)
	if err := product.Validate(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.products {
		if existing.Slug == product.Slug && !existing.IsDeleted {
			return ErrDuplicateSlug
		}
	}
	r.products = append(r.products, product)
	return nil
}

// FindBySlug obtiene un producto por su slug
func (r *SeedProductRepository) FindBySlug(_ context.Context, slug string) (*models.Product, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, p := range r.products {
		if p.Slug == slug && !p.IsDeleted {
			return p, nil
		}
	}
	return nil, ErrProductNotFound
}

// FindAll lista productos con paginación y filtros
func (r *SeedProductRepository) FindAll(_ context.Context, f ListFilter) ([]*models.Product, int64, error) {
	f = f.Normalize()

	r.mu.RLock()
	matched := make([]*models.Product, 0, len(r.products))
	for _, p := range r.products {
		if f.matches(p) {
			matched = append(matched, p)
		}
	}
	r.mu.RUnlock()

	f.sortProducts(matched)

	total := int64(len(matched))
	start := (f.Page - 1) * f.PageSize
	if start >= len(matched) {
		return []*models.Product{}, total, nil
	}
	end := start + f.PageSize
	if end > len(matched) {
		end = len(matched)
	}
	return matched[start:end], total, nil
}

// SoftDelete marca un producto como eliminado
func (r *SeedProductRepository) SoftDelete(_ context.Context, slug string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, p := range r.products {
		if p.Slug == slug && !p.IsDeleted {
			p.IsDeleted = true
			p.UpdatedAt = r.now()
			return nil
		}
	}
	return ErrProductNotFound
}
