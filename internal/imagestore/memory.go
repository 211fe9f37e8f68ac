package imagestore

import (
	"context"
	"fmt"
	"image"
	"sort"
	"strings"
	"sync"
)

// Memory is an in-memory image store.
type Memory struct {
	mu     sync.Mutex
	images map[string]image.Image
	writes map[string]int
	// FailOpen makes Open fail for the listed keys.
	FailOpen map[string]error
}

// NewMemory returns an empty store.
func NewMemory() *Memory {
	return &Memory{images: map[string]image.Image{}, writes: map[string]int{}}
}

// Put stores img without counting it as a write.
func (m *Memory) Put(name string, img image.Image) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.images[name] = img
}

func (m *Memory) List(_ context.Context) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, 0, len(m.images))
	for k := range m.images {
		out = append(out, k)
	}
	sort.Strings(out)
	return out, nil
}

// ListPrefix returns the sorted keys starting with prefix.
func (m *Memory) ListPrefix(prefix string) []string {
	keys, _ := m.List(context.Background())
	out := keys[:0]
	for _, k := range keys {
		if strings.HasPrefix(k, prefix) {
			out = append(out, k)
		}
	}
	return out
}

func (m *Memory) Open(_ context.Context, name string) (image.Image, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err, ok := m.FailOpen[name]; ok {
		return nil, err
	}
	img, ok := m.images[name]
	if !ok {
		return nil, fmt.Errorf("open %s: %w", name, ErrNotFound)
	}
	return img, nil
}

func (m *Memory) Size(ctx context.Context, name string) (int, int, error) {
	img, err := m.Open(ctx, name)
	if err != nil {
		return 0, 0, err
	}
	return img.Bounds().Dx(), img.Bounds().Dy(), nil
}

func (m *Memory) Save(_ context.Context, name string, img image.Image) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.images[name] = img
	m.writes[name]++
	return nil
}

func (m *Memory) Remove(_ context.Context, name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.images[name]; !ok {
		return fmt.Errorf("remove %s: %w", name, ErrNotFound)
	}
	delete(m.images, name)
	return nil
}

// Writes returns how many times name was saved.
func (m *Memory) Writes(name string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.writes[name]
}
