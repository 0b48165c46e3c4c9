package yamlreg

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeDescriptor(t *testing.T, dir, name, body string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestLoadSortsAgentsByFileName(t *testing.T) {
	dir := t.TempDir()
	writeDescriptor(t, dir, "frontend-dev.yaml", "keywords: [react, css]\nspecializations: [react]\n")
	writeDescriptor(t, dir, "backend-dev.yaml", "keywords: [api, server]\n")
	writeDescriptor(t, dir, "notes.txt", "not a descriptor")

	reg, err := New(nil, 0).Load(context.Background(), dir)
	if err != nil {
		t.Fatal(err)
	}

	names := reg.Names()
	want := []string{"backend-dev", "frontend-dev"}
	if len(names) != len(want) {
		t.Fatalf("names = %v, want %v", names, want)
	}
	for i := range want {
		if names[i] != want[i] {
			t.Fatalf("names = %v, want %v", names, want)
		}
	}

	c, ok := reg.Lookup("frontend-dev")
	if !ok {
		t.Fatal("frontend-dev missing from registry")
	}
	if len(c.Keywords) != 2 || c.Keywords[0] != "react" {
		t.Errorf("keywords = %v, want [react css]", c.Keywords)
	}
}

func TestLoadRejectsInvalidDescriptor(t *testing.T) {
	dir := t.TempDir()
	writeDescriptor(t, dir, "empty.yaml", "specializations: [react]\n")

	if _, err := New(nil, 0).Load(context.Background(), dir); err == nil {
		t.Fatal("expected error for descriptor without keywords")
	}
}

func TestLoadMissingDirectory(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "absent")
	if _, err := New(nil, 0).Load(context.Background(), dir); err == nil {
		t.Fatal("expected error for missing directory")
	}
}

// memCache records Set calls and serves the stored snapshot back.
type memCache struct {
	data map[string][]byte
	sets int
}

func (c *memCache) Get(_ context.Context, key string) ([]byte, bool, error) {
	v, ok := c.data[key]
	return v, ok, nil
}

func (c *memCache) Set(_ context.Context, key string, value []byte, _ time.Duration) error {
	c.data[key] = value
	c.sets++
	return nil
}

func TestLoadServesCachedSnapshot(t *testing.T) {
	dir := t.TempDir()
	writeDescriptor(t, dir, "backend-dev.yaml", "keywords: [api]\n")

	c := &memCache{data: make(map[string][]byte)}
	l := New(c, time.Minute)
	ctx := context.Background()

	if _, err := l.Load(ctx, dir); err != nil {
		t.Fatal(err)
	}
	if c.sets != 1 {
		t.Fatalf("cache sets = %d, want 1", c.sets)
	}

	// Change the directory behind the cache; the snapshot must win.
	writeDescriptor(t, dir, "frontend-dev.yaml", "keywords: [react]\n")

	reg, err := l.Load(ctx, dir)
	if err != nil {
		t.Fatal(err)
	}
	if reg.Len() != 1 {
		t.Errorf("registry len = %d, want cached snapshot of 1", reg.Len())
	}
	if c.sets != 1 {
		t.Errorf("cache sets = %d, want no re-store on hit", c.sets)
	}
}
