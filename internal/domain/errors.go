// Package domain provides shared domain-level sentinel errors.
package domain

import "errors"

// ErrNotFound indicates the requested task, agent, or issue does not exist.
var ErrNotFound = errors.New("not found")

// ErrConflict indicates a claim on a resource that is already held,
// such as assigning work to a non-idle agent.
var ErrConflict = errors.New("conflict: resource is already claimed")
