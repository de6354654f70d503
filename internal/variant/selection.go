package variant

import (
	"sort"
	"strings"

	"babyfood-store/internal/models"
)

// Selection es la elección (posiblemente parcial) del comprador: opción -> valor
type Selection map[string]string

// Dropped describe una clave o valor descartado al normalizar una selección
type Dropped struct {
	Option string `json:"option"`
	Value  string `json:"value"`
	Reason string `json:"reason"`
}

const (
	reasonUnknownOption = "unknown_option"
	reasonUnknownValue  = "unknown_value"
)

// NewSelection normaliza una selección cruda contra las opciones del producto.
// Descarta nombres de opción no declarados y valores que la opción no permite.
func NewSelection(product *models.Product, raw map[string]string) (Selection, []Dropped) {
	sel := make(Selection, len(raw))
	if product == nil {
		return sel, nil
	}

	var dropped []Dropped
	for name, value := range raw {
		name = strings.TrimSpace(name)
		value = strings.TrimSpace(value)
		if name == "" || value == "" {
			continue
		}
		opt, ok := product.Option(name)
		if !ok {
			dropped = append(dropped, Dropped{Option: name, Value: value, Reason: reasonUnknownOption})
			continue
		}
		if !opt.HasValue(value) {
			dropped = append(dropped, Dropped{Option: name, Value: value, Reason: reasonUnknownValue})
			continue
		}
		sel[name] = value
	}
	sort.Slice(dropped, func(i, j int) bool {
		if dropped[i].Option != dropped[j].Option {
			return dropped[i].Option < dropped[j].Option
		}
		return dropped[i].Value < dropped[j].Value
	})
	return sel, dropped
}

// Clone devuelve una copia independiente
func (s Selection) Clone() Selection {
	out := make(Selection, len(s))
	for k, v := range s {
		out[k] = v
	}
	return out
}

// IsComplete indica si la selección cubre todas las opciones del producto
// con valores declarados y sin claves ajenas.
func IsComplete(product *models.Product, sel Selection) bool {
	if product == nil {
		return false
	}
	if !product.HasOptions() {
		return true
	}
	if len(sel) != len(product.Options) {
		return false
	}
	for _, opt := range product.Options {
		value, ok := sel[opt.Name]
		if !ok || !opt.HasValue(value) {
			return false
		}
	}
	return true
}
