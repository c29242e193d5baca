package fsys

import (
	"context"
	"fmt"
	"strings"
	"sync"
)

// Memory is an in-memory FS used by unit tests so they never touch the
// real filesystem.
type Memory struct {
	mu    sync.Mutex
	files map[string][]byte
	dirs  map[string]bool
}

// NewMemory creates an empty in-memory filesystem.
func NewMemory() *Memory {
	return &Memory{
		files: make(map[string][]byte),
		dirs:  make(map[string]bool),
	}
}

func (m *Memory) Read(_ context.Context, path string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	data, ok := m.files[path]
	if !ok {
		return nil, fmt.Errorf("read %s: no such file", path)
	}
	out := make([]byte, len(data))
	copy(out, data)
	return out, nil
}

func (m *Memory) Write(_ context.Context, path string, data []byte, _ uint32) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := make([]byte, len(data))
	copy(cp, data)
	m.files[path] = cp
	return nil
}

func (m *Memory) CreateDir(_ context.Context, path string, _ uint32) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.dirs[path] = true
	return nil
}

func (m *Memory) Copy(ctx context.Context, src, dst string) error {
	data, err := m.Read(ctx, src)
	if err != nil {
		return err
	}
	return m.Write(ctx, dst, data, 0o644)
}

func (m *Memory) Exists(_ context.Context, path string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.files[path]; ok {
		return true, nil
	}
	if m.dirs[path] {
		return true, nil
	}
	return false, nil
}

func (m *Memory) Remove(_ context.Context, path string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.files, path)
	delete(m.dirs, path)
	for p := range m.files {
		if strings.HasPrefix(p, path+"/") {
			delete(m.files, p)
		}
	}
	return nil
}
