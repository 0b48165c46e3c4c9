// Package registry defines the port for loading agent capability
// descriptors.
package registry

import (
	"context"

	"github.com/Bizzy211/heimdall/internal/domain/agent"
)

// Loader loads capability descriptors into an immutable registry snapshot.
// Implementations decide where descriptors live (YAML directory, database)
// and may cache; callers get one snapshot per orchestration run.
type Loader interface {
	Load(ctx context.Context, path string) (*agent.Registry, error)
}
