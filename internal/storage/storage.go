// Package storage persiste el estado del carrito en un almacén clave-valor.
package storage

import (
	"context"
	"errors"
	"strings"

	json "github.com/goccy/go-json"

	"babyfood-store/internal/models"
)

// ErrUnavailable indica que el almacén no pudo leer o escribir
var ErrUnavailable = errors.New("storage: unavailable")

// Storage es la superficie de persistencia del carrito
type Storage interface {
	// Load devuelve el estado guardado; found es false si no existe.
	// Datos corruptos se leen como carrito vacío, nunca como error.
	Load(ctx context.Context, key string) (state models.CartState, found bool, err error)
	Save(ctx context.Context, key string, state models.CartState) error
}

// record es el formato serializado: {"lines":[{productId, variantId, quantity, unitPrice, title}]}
type record struct {
	Lines []models.CartLine `json:"lines"`
}

// Encode serializa el estado del carrito
func Encode(state models.CartState) ([]byte, error) {
	lines := state.Lines
	if lines == nil {
		lines = []models.CartLine{}
	}
	return json.Marshal(record{Lines: lines})
}

// Decode interpreta datos guardados. Nunca falla: datos vacíos o corruptos
// producen un carrito vacío y las líneas inválidas se descartan.
func Decode(data []byte) models.CartState {
	if len(data) == 0 {
		return models.CartState{Lines: []models.CartLine{}}
	}
	var rec record
	if err := json.Unmarshal(data, &rec); err != nil {
		return models.CartState{Lines: []models.CartLine{}}
	}
	return Sanitize(models.CartState{Lines: rec.Lines})
}

// Sanitize descarta líneas inválidas y fusiona identidades repetidas en orden
func Sanitize(state models.CartState) models.CartState {
	lines := make([]models.CartLine, 0, len(state.Lines))
	index := make(map[models.LineKey]int, len(state.Lines))
	for _, line := range state.Lines {
		line.ProductID = strings.TrimSpace(line.ProductID)
		line.VariantID = strings.TrimSpace(line.VariantID)
		if line.ProductID == "" || line.Quantity < 1 || line.UnitPrice < 0 {
			continue
		}
		if line.MaxQuantity != nil && *line.MaxQuantity < 0 {
			line.MaxQuantity = nil
		}
		if i, dup := index[line.Key()]; dup {
			lines[i].Quantity += line.Quantity
			continue
		}
		index[line.Key()] = len(lines)
		lines = append(lines, line)
	}
	return models.CartState{Lines: lines}
}
