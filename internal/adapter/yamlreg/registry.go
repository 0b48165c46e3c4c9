// Package yamlreg implements the capability registry loader over a
// directory of YAML descriptor files, one file per agent type.
package yamlreg

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/Bizzy211/heimdall/internal/domain/agent"
	"github.com/Bizzy211/heimdall/internal/port/cache"
)

// Loader loads capability descriptors from a directory of *.yaml files.
// File names (minus extension) become agent names; sorted file name order
// fixes registry iteration order, which keeps match ranking deterministic.
type Loader struct {
	cache cache.Cache
	ttl   time.Duration
}

// New creates a Loader. The cache is optional; pass nil to always read
// from disk.
func New(c cache.Cache, ttl time.Duration) *Loader {
	return &Loader{cache: c, ttl: ttl}
}

// descriptorFile mirrors one YAML capability file.
type descriptorFile struct {
	Keywords        []string `yaml:"keywords" json:"keywords"`
	Specializations []string `yaml:"specializations" json:"specializations"`
	Tools           []string `yaml:"tools" json:"tools"`
}

// Load reads every *.yaml file under dir into an immutable registry
// snapshot, consulting the cache first.
func (l *Loader) Load(ctx context.Context, dir string) (*agent.Registry, error) {
	if reg, ok := l.fromCache(ctx, dir); ok {
		return reg, nil
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read registry dir %s: %w", dir, err)
	}

	var names []string
	caps := make(map[string]agent.Capability)

	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || (!strings.HasSuffix(name, ".yaml") && !strings.HasSuffix(name, ".yml")) {
			continue
		}

		data, err := os.ReadFile(filepath.Join(dir, name)) //nolint:gosec // G304: dir comes from config
		if err != nil {
			return nil, fmt.Errorf("read descriptor %s: %w", name, err)
		}

		var df descriptorFile
		if err := yaml.Unmarshal(data, &df); err != nil {
			return nil, fmt.Errorf("parse descriptor %s: %w", name, err)
		}

		c := agent.Capability{
			Keywords:        df.Keywords,
			Specializations: df.Specializations,
			Tools:           df.Tools,
		}
		if err := c.Validate(); err != nil {
			return nil, fmt.Errorf("descriptor %s: %w", name, err)
		}

		agentName := strings.TrimSuffix(strings.TrimSuffix(name, ".yaml"), ".yml")
		names = append(names, agentName)
		caps[agentName] = c
	}

	sort.Strings(names)
	reg := agent.NewRegistry(names, caps)

	l.toCache(ctx, dir, names, caps)
	slog.Info("capability registry loaded", "dir", dir, "agents", reg.Len())
	return reg, nil
}

// cachedSnapshot is the cache encoding of a loaded registry.
type cachedSnapshot struct {
	Names []string                    `json:"names"`
	Caps  map[string]agent.Capability `json:"caps"`
}

func (l *Loader) fromCache(ctx context.Context, dir string) (*agent.Registry, bool) {
	if l.cache == nil {
		return nil, false
	}
	data, ok, err := l.cache.Get(ctx, cacheKey(dir))
	if err != nil || !ok {
		return nil, false
	}
	var snap cachedSnapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, false
	}
	return agent.NewRegistry(snap.Names, snap.Caps), true
}

func (l *Loader) toCache(ctx context.Context, dir string, names []string, caps map[string]agent.Capability) {
	if l.cache == nil {
		return
	}
	data, err := json.Marshal(cachedSnapshot{Names: names, Caps: caps})
	if err != nil {
		return
	}
	if err := l.cache.Set(ctx, cacheKey(dir), data, l.ttl); err != nil {
		slog.Debug("registry cache set failed", "error", err)
	}
}

func cacheKey(dir string) string {
	return "registry:" + dir
}
