package models

import (
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Product representa un producto del catálogo con sus opciones y variantes
type Product struct {
	ID             primitive.ObjectID `json:"id" bson:"_id,omitempty" yaml:"-"`
	Slug           string             `json:"slug" bson:"slug" yaml:"slug" validate:"required"`
	Title          string             `json:"title" bson:"title" yaml:"title" validate:"required"`
	Description    string             `json:"description,omitempty" bson:"description,omitempty" yaml:"description"`
	Price          int64              `json:"price" bson:"price" yaml:"price" validate:"gte=0"`
	CompareAtPrice int64              `json:"compare_at_price,omitempty" bson:"compare_at_price,omitempty" yaml:"compare_at_price" validate:"gte=0"`
	Currency       string             `json:"currency,omitempty" bson:"currency,omitempty" yaml:"currency"`
	Images         []string           `json:"images,omitempty" bson:"images,omitempty" yaml:"images"`
	Featured       bool               `json:"featured" bson:"featured" yaml:"featured"`
	InStock        bool               `json:"in_stock" bson:"in_stock" yaml:"in_stock"`
	Stock          *int               `json:"stock,omitempty" bson:"stock,omitempty" yaml:"stock" validate:"omitempty,gte=0"`
	Collections    []string           `json:"collections,omitempty" bson:"collections,omitempty" yaml:"collections"`
	Options        []Option           `json:"options,omitempty" bson:"options,omitempty" yaml:"options" validate:"dive"`
	Variants       []Variant          `json:"variants,omitempty" bson:"variants,omitempty" yaml:"variants" validate:"dive"`
	IsDeleted      bool               `json:"-" bson:"is_deleted" yaml:"-"`
	CreatedAt      time.Time          `json:"created_at" bson:"created_at" yaml:"-"`
	UpdatedAt      time.Time          `json:"updated_at" bson:"updated_at" yaml:"-"`
}

// Option es un eje de variación (ej. "Tamaño") con sus valores en orden de despliegue
type Option struct {
	Name     string            `json:"name" bson:"name" yaml:"name" validate:"required"`
	Values   []string          `json:"values" bson:"values" yaml:"values" validate:"required,min=1,dive,required"`
	Swatches map[string]string `json:"swatches,omitempty" bson:"swatches,omitempty" yaml:"swatches"`
}

// Variant es un SKU comprable: una combinación completa de valores de opción
type Variant struct {
	ID             string            `json:"id" bson:"id" yaml:"id" validate:"required"`
	Options        map[string]string `json:"options" bson:"options" yaml:"options"`
	Price          int64             `json:"price" bson:"price" yaml:"price" validate:"gte=0"`
	CompareAtPrice int64             `json:"compare_at_price,omitempty" bson:"compare_at_price,omitempty" yaml:"compare_at_price" validate:"gte=0"`
	Stock          *int              `json:"stock,omitempty" bson:"stock,omitempty" yaml:"stock" validate:"omitempty,gte=0"`
	Available      bool              `json:"available" bson:"available" yaml:"available"`
	Image          string            `json:"image,omitempty" bson:"image,omitempty" yaml:"image"`
}

// HasOptions indica si el producto declara ejes de variación
func (p *Product) HasOptions() bool {
	return len(p.Options) > 0
}

// Option busca una opción por nombre
func (p *Product) Option(name string) (Option, bool) {
	for _, opt := range p.Options {
		if opt.Name == name {
			return opt, true
		}
	}
	return Option{}, false
}

// Variant busca una variante por ID
func (p *Product) Variant(id string) (*Variant, bool) {
	for i := range p.Variants {
		if p.Variants[i].ID == id {
			return &p.Variants[i], true
		}
	}
	return nil, false
}

// StockLimit devuelve el stock finito del producto, si se conoce
func (p *Product) StockLimit() (int, bool) {
	if p.Stock == nil {
		return 0, false
	}
	return *p.Stock, true
}

// Available indica si el producto sin variantes se puede comprar
func (p *Product) Available() bool {
	if p.Stock != nil {
		return *p.Stock > 0
	}
	return p.InStock
}

// HasValue indica si el valor pertenece a la opción
func (o Option) HasValue(value string) bool {
	for _, v := range o.Values {
		if v == value {
			return true
		}
	}
	return false
}

// InStock indica si la variante tiene existencias. Un stock numérico tiene prioridad
// sobre la bandera booleana.
func (v *Variant) InStock() bool {
	if v.Stock != nil {
		return *v.Stock > 0
	}
	return v.Available
}

// StockLimit devuelve el stock finito de la variante, si se conoce
func (v *Variant) StockLimit() (int, bool) {
	if v.Stock == nil {
		return 0, false
	}
	return *v.Stock, true
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate revisa los campos requeridos y los invariantes de opciones y variantes
func (p *Product) Validate() error {
	if err := validate.Struct(p); err != nil {
		if errs, ok := err.(validator.ValidationErrors); ok && len(errs) > 0 {
			fe := errs[0]
			return &ValidationError{
				Field:   strings.ToLower(fe.Field()),
				Message: fmt.Sprintf("%s failed on %s", strings.ToLower(fe.Namespace()), fe.Tag()),
			}
		}
		return err
	}

	seenOptions := make(map[string]struct{}, len(p.Options))
	for _, opt := range p.Options {
		if _, dup := seenOptions[opt.Name]; dup {
			return &ValidationError{Field: "options", Message: fmt.Sprintf("duplicate option %q", opt.Name)}
		}
		seenOptions[opt.Name] = struct{}{}
	}

	seenIDs := make(map[string]struct{}, len(p.Variants))
	seenTuples := make(map[string]string, len(p.Variants))
	for _, v := range p.Variants {
		if _, dup := seenIDs[v.ID]; dup {
			return &ValidationError{Field: "variants", Message: fmt.Sprintf("duplicate variant id %q", v.ID)}
		}
		seenIDs[v.ID] = struct{}{}

		if len(v.Options) != len(p.Options) {
			return &ValidationError{Field: "variants", Message: fmt.Sprintf("variant %q must set exactly one value per option", v.ID)}
		}
		for _, opt := range p.Options {
			value, ok := v.Options[opt.Name]
			if !ok {
				return &ValidationError{Field: "variants", Message: fmt.Sprintf("variant %q is missing option %q", v.ID, opt.Name)}
			}
			if !opt.HasValue(value) {
				return &ValidationError{Field: "variants", Message: fmt.Sprintf("variant %q uses unknown value %q for %q", v.ID, value, opt.Name)}
			}
		}

		key := p.tupleKey(v.Options)
		if other, dup := seenTuples[key]; dup {
			return &ValidationError{Field: "variants", Message: fmt.Sprintf("variants %q and %q share the same options", other, v.ID)}
		}
		seenTuples[key] = v.ID
	}

	return nil
}

// tupleKey serializa la combinación de valores en el orden de las opciones
func (p *Product) tupleKey(values map[string]string) string {
	var b strings.Builder
	for _, opt := range p.Options {
		b.WriteString(opt.Name)
		b.WriteByte(0)
		b.WriteString(values[opt.Name])
		b.WriteByte(0)
	}
	return b.String()
}

// ValidationError representa un error de validación
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}
