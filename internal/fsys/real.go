package fsys

import (
	"context"
	"fmt"
	"io"
	"os"
)

// Real is the on-disk FS implementation used outside of tests.
type Real struct{}

// NewReal creates a Real filesystem.
func NewReal() *Real { return &Real{} }

func (Real) Read(_ context.Context, path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return data, nil
}

func (Real) Write(_ context.Context, path string, data []byte, perm uint32) error {
	if err := os.WriteFile(path, data, os.FileMode(perm)); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

func (Real) CreateDir(_ context.Context, path string, perm uint32) error {
	if err := os.MkdirAll(path, os.FileMode(perm)); err != nil {
		return fmt.Errorf("mkdir %s: %w", path, err)
	}
	return nil
}

func (Real) Copy(_ context.Context, src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("open %s: %w", src, err)
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return fmt.Errorf("create %s: %w", dst, err)
	}
	defer out.Close()

	if _, err := io.Copy(out, in); err != nil {
		return fmt.Errorf("copy %s -> %s: %w", src, dst, err)
	}
	return out.Close()
}

func (Real) Exists(_ context.Context, path string) (bool, error) {
	_, err := os.Stat(path)
	if err == nil {
		return true, nil
	}
	if os.IsNotExist(err) {
		return false, nil
	}
	return false, fmt.Errorf("stat %s: %w", path, err)
}

func (Real) Remove(_ context.Context, path string) error {
	if err := os.RemoveAll(path); err != nil {
		return fmt.Errorf("remove %s: %w", path, err)
	}
	return nil
}
