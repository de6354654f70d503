package storage

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"babyfood-store/internal/models"
)

// FileStorage guarda cada carrito en un archivo JSON dentro de dir
type FileStorage struct {
	dir string
}

// NewFileStorage crea el directorio si no existe
func NewFileStorage(dir string) (*FileStorage, error) {
	if dir == "" {
		return nil, fmt.Errorf("%w: directory is required", ErrUnavailable)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return &FileStorage{dir: dir}, nil
}

func (f *FileStorage) Load(_ context.Context, key string) (models.CartState, bool, error) {
	data, err := os.ReadFile(f.path(key))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return models.CartState{Lines: []models.CartLine{}}, false, nil
		}
		return models.CartState{Lines: []models.CartLine{}}, false, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return Decode(data), true, nil
}

// Save escribe en un archivo temporal y lo renombra, así un lector nunca ve
// un archivo a medias.
func (f *FileStorage) Save(_ context.Context, key string, state models.CartState) error {
	data, err := Encode(state)
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(f.dir, ".cart-*")
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	if err := os.Rename(tmpName, f.path(key)); err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return nil
}

// path deriva un nombre de archivo seguro a partir de la clave
func (f *FileStorage) path(key string) string {
	sum := sha256.Sum256([]byte(key))
	return filepath.Join(f.dir, hex.EncodeToString(sum[:])+".json")
}
