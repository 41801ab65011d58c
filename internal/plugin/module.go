package plugin

import (
	"context"
	"sort"
	"sync"

	apperrors "github.com/anime-shed/allsky-modules-go/internal/errors"
	"github.com/anime-shed/allsky-modules-go/pkg/models"
)

// Module is one host-invoked unit of work
type Module interface {
	Metadata() Metadata
	Run(ctx context.Context, inv Invocation) (models.ModuleResult, error)
	Cleanup(ctx context.Context) error
}

// Invocation carries everything a single run needs
type Invocation struct {
	Event  Event
	Params Params

	// ImageLocator names the current image for image-processing modules
	ImageLocator string
}

// Registry maps module ids to modules
type Registry struct {
	mu      sync.RWMutex
	modules map[string]Module
}

// NewRegistry creates a registry holding modules
func NewRegistry(modules ...Module) *Registry {
	r := &Registry{modules: make(map[string]Module)}
	for _, m := range modules {
		r.Register(m)
	}
	return r
}

// Register adds m under its metadata module id, replacing any previous one
func (r *Registry) Register(m Module) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.modules[m.Metadata().Module] = m
}

// Get returns the module registered as name
func (r *Registry) Get(name string) (Module, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	m, ok := r.modules[name]
	if !ok {
		return nil, apperrors.NewNotFoundError("Unknown module", nil).WithDetails(name)
	}
	return m, nil
}

// Names lists registered module ids in order
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.modules))
	for name := range r.modules {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
