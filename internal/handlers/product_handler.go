package handlers

import (
	"fmt"
	"html"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/microcosm-cc/bluemonday"

	"babyfood-store/internal/models"
	"babyfood-store/internal/money"
	"babyfood-store/internal/repository"
	"babyfood-store/internal/variant"
)

const listCacheTTL = 2 * time.Minute

type ProductHandler struct {
	repo      repository.ProductSource
	catalog   *Catalog
	formatter *money.Formatter
	strip     *bluemonday.Policy
}

func NewProductHandler(repo repository.ProductSource, catalog *Catalog, formatter *money.Formatter) *ProductHandler {
	return &ProductHandler{
		repo:      repo,
		catalog:   catalog,
		formatter: formatter,
		strip:     bluemonday.StrictPolicy(),
	}
}

// productSummary es la tarjeta del listado
type productSummary struct {
	Slug               string `json:"slug"`
	Title              string `json:"title"`
	Summary            string `json:"summary,omitempty"`
	Image              string `json:"image,omitempty"`
	Featured           bool   `json:"featured"`
	Price              int64  `json:"price"`
	PriceFormatted     string `json:"price_formatted"`
	CompareAtPrice     int64  `json:"compare_at_price,omitempty"`
	DiscountPercentage *int   `json:"discount_percentage,omitempty"`
	HasOptions         bool   `json:"has_options"`
	SoldOut            bool   `json:"sold_out"`
}

// productDetail es la ficha con la resolución por defecto
type productDetail struct {
	*models.Product
	PlainDescription string                `json:"plain_description,omitempty"`
	PriceFormatted   string                `json:"price_formatted"`
	Resolution       variant.Resolved      `json:"resolution"`
	Availability     []variant.OptionState `json:"availability"`
}

type resolveRequest struct {
	Selection map[string]string `json:"selection"`
	Click     *struct {
		Option string `json:"option" binding:"required"`
		Value  string `json:"value" binding:"required"`
	} `json:"click"`
}

type resolveResponse struct {
	Selection      variant.Selection     `json:"selection"`
	Dropped        []variant.Dropped     `json:"dropped"`
	Complete       bool                  `json:"complete"`
	CanAddToCart   bool                  `json:"can_add_to_cart"`
	Resolved       variant.Resolved      `json:"resolved"`
	PriceFormatted string                `json:"price_formatted"`
	Availability   []variant.OptionState `json:"availability"`
}

// CreateProduct crea un nuevo producto
func (h *ProductHandler) CreateProduct(c *gin.Context) {
	var product models.Product

	if err := c.ShouldBindJSON(&product); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	product.Slug = strings.TrimSpace(product.Slug)
	if err := product.Validate(); err != nil {
		respondError(c, err)
		return
	}

	if err := h.repo.Create(c.Request.Context(), &product); err != nil {
		respondError(c, err)
		return
	}

	// Invalidar caché de listados
	h.catalog.invalidate(product.Slug)

	c.JSON(http.StatusCreated, product)
}

// GetProduct obtiene un producto por slug con su resolución inicial
func (h *ProductHandler) GetProduct(c *gin.Context) {
	product, err := h.catalog.Product(c.Request.Context(), c.Param("slug"))
	if err != nil {
		respondError(c, err)
		return
	}

	sel, _ := variant.NewSelection(product, queryValues(c))
	res, err := variant.Resolve(product, sel)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, productDetail{
		Product:          product,
		PlainDescription: h.plainText(product.Description),
		PriceFormatted:   h.formatter.Format(res.CurrentPrice),
		Resolution:       res,
		Availability:     variant.Availability(product, sel),
	})
}

// ResolveProduct aplica una selección (y opcionalmente un clic) sobre el producto
func (h *ProductHandler) ResolveProduct(c *gin.Context) {
	var req resolveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	product, err := h.catalog.Product(c.Request.Context(), c.Param("slug"))
	if err != nil {
		respondError(c, err)
		return
	}

	sel, dropped := variant.NewSelection(product, req.Selection)
	if req.Click != nil {
		sel = variant.Select(product, sel, req.Click.Option, req.Click.Value)
	}
	res, err := variant.Resolve(product, sel)
	if err != nil {
		respondError(c, err)
		return
	}
	if dropped == nil {
		dropped = []variant.Dropped{}
	}

	complete := variant.IsComplete(product, sel)
	c.JSON(http.StatusOK, resolveResponse{
		Selection:      sel,
		Dropped:        dropped,
		Complete:       complete,
		CanAddToCart:   variant.CanAddToCart(res, complete) && res.InStock,
		Resolved:       res,
		PriceFormatted: h.formatter.Format(res.CurrentPrice),
		Availability:   variant.Availability(product, sel),
	})
}

// ListProducts lista productos con paginación y filtros (con caché)
func (h *ProductHandler) ListProducts(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))
	filter := repository.ListFilter{
		Page:       page,
		PageSize:   pageSize,
		Collection: c.Query("collection"),
		Query:      c.Query("q"),
		SortBy:     c.DefaultQuery("sort_by", "created_at"),
		SortOrder:  c.DefaultQuery("sort_order", "desc"),
	}
	if raw := c.Query("featured"); raw != "" {
		featured, err := strconv.ParseBool(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "featured must be a boolean"})
			return
		}
		filter.Featured = &featured
	}
	filter = filter.Normalize()

	featuredKey := "any"
	if filter.Featured != nil {
		featuredKey = strconv.FormatBool(*filter.Featured)
	}
	cacheKey := fmt.Sprintf(
		"%sp%d_s%d_col:%s_feat:%s_q:%s_sort:%s_%s",
		listCachePrefix, filter.Page, filter.PageSize, filter.Collection, featuredKey,
		strings.ToLower(filter.Query), filter.SortBy, filter.SortOrder,
	)

	// Buscar en caché
	if cached, found := h.catalog.cache.GetValue(cacheKey); found {
		c.JSON(http.StatusOK, cached)
		return
	}

	products, total, err := h.repo.FindAll(c.Request.Context(), filter)
	if err != nil {
		respondError(c, err)
		return
	}

	data := make([]productSummary, 0, len(products))
	for _, p := range products {
		data = append(data, h.summarize(p))
	}

	response := gin.H{
		"data":        data,
		"total":       total,
		"page":        filter.Page,
		"page_size":   filter.PageSize,
		"total_pages": repository.TotalPages(total, filter.PageSize),
	}

	// Guardar en caché
	h.catalog.cache.Set(cacheKey, response, listCacheTTL)
	c.JSON(http.StatusOK, response)
}

// DeleteProduct realiza un borrado lógico
func (h *ProductHandler) DeleteProduct(c *gin.Context) {
	slug := c.Param("slug")

	if err := h.repo.SoftDelete(c.Request.Context(), slug); err != nil {
		respondError(c, err)
		return
	}

	// Invalidar caché relacionado
	h.catalog.invalidate(slug)

	c.JSON(http.StatusOK, gin.H{"message": "product deleted"})
}

func (h *ProductHandler) summarize(p *models.Product) productSummary {
	res, _ := variant.Resolve(p, variant.Selection{})
	image := ""
	if len(p.Images) > 0 {
		image = p.Images[0]
	}
	return productSummary{
		Slug:               p.Slug,
		Title:              p.Title,
		Summary:            truncate(h.plainText(p.Description), 140),
		Image:              image,
		Featured:           p.Featured,
		Price:              p.Price,
		PriceFormatted:     h.formatter.Format(p.Price),
		CompareAtPrice:     p.CompareAtPrice,
		DiscountPercentage: res.DiscountPercentage,
		HasOptions:         p.HasOptions(),
		SoldOut:            res.SoldOut,
	}
}

// plainText quita el HTML de la descripción
func (h *ProductHandler) plainText(description string) string {
	text := html.UnescapeString(h.strip.Sanitize(description))
	return strings.Join(strings.Fields(text), " ")
}

func truncate(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return strings.TrimSpace(string(runes[:max])) + "…"
}

// queryValues toma la selección de los query params (ej. ?Tamaño=400g)
func queryValues(c *gin.Context) map[string]string {
	raw := make(map[string]string)
	for key, values := range c.Request.URL.Query() {
		if len(values) > 0 {
			raw[key] = values[0]
		}
	}
	return raw
}
