package repository

import (
	"context"
	"sort"
	"sync"

	"github.com/HusseinTALL/menuqr-sync/pkg"
)

// memoryCredentialRepo, process ömrü boyunca yaşayan credential deposu.
// Paylaşımlı cihazlarda (kiosk) diske hiçbir şey yazılmasın istendiğinde kullanılır.
type memoryCredentialRepo struct {
	mu   sync.RWMutex
	data map[string][]byte
}

// NewMemoryCredentialRepo, constructor.
func NewMemoryCredentialRepo() CredentialRepository {
	return &memoryCredentialRepo{data: make(map[string][]byte)}
}

func (r *memoryCredentialRepo) Get(_ context.Context, key string) ([]byte, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	v, ok := r.data[key]
	if !ok {
		return nil, pkg.ErrNotFound
	}
	return append([]byte(nil), v...), nil
}

func (r *memoryCredentialRepo) Put(_ context.Context, key string, payload []byte) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.data[key] = append([]byte(nil), payload...)
	return nil
}

func (r *memoryCredentialRepo) Delete(_ context.Context, key string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.data, key)
	return nil
}

func (r *memoryCredentialRepo) Keys(_ context.Context) ([]string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	keys := make([]string, 0, len(r.data))
	for k := range r.data {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys, nil
}
