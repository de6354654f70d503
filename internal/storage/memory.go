package storage

import (
	"context"
	"sync"

	"babyfood-store/internal/models"
)

// MemoryStorage guarda los carritos serializados en memoria del proceso
type MemoryStorage struct {
	mu    sync.RWMutex
	items map[string][]byte
}

func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{items: make(map[string][]byte)}
}

func (m *MemoryStorage) Load(_ context.Context, key string) (models.CartState, bool, error) {
	m.mu.RLock()
	data, found := m.items[key]
	m.mu.RUnlock()
	if !found {
		return models.CartState{Lines: []models.CartLine{}}, false, nil
	}
	return Decode(data), true, nil
}

func (m *MemoryStorage) Save(_ context.Context, key string, state models.CartState) error {
	data, err := Encode(state)
	if err != nil {
		return err
	}
	m.mu.Lock()
	m.items[key] = data
	m.mu.Unlock()
	return nil
}

// Put guarda bytes crudos; útil para simular datos corruptos
func (m *MemoryStorage) Put(key string, data []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.items[key] = append([]byte(nil), data...)
}
