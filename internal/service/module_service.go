package service

import (
	"context"
	"time"

	"github.com/google/uuid"

	apperrors "github.com/anime-shed/allsky-modules-go/internal/errors"
	"github.com/anime-shed/allsky-modules-go/internal/observer"
	"github.com/anime-shed/allsky-modules-go/internal/plugin"
	"github.com/anime-shed/allsky-modules-go/pkg/models"
)

// ModuleService runs registered modules on behalf of the host
type ModuleService interface {
	// Run invokes module once for inv and stamps the result with run details
	Run(ctx context.Context, module string, inv plugin.Invocation) (models.ModuleResult, error)

	// Cleanup asks module to remove whatever it published
	Cleanup(ctx context.Context, module string) error

	// Metadata describes module for the host
	Metadata(module string) (plugin.Metadata, error)

	// Modules lists registered module ids
	Modules() []string
}

// Option customises a moduleService
type Option func(*moduleService)

// WithClock replaces time.Now
func WithClock(now func() time.Time) Option {
	return func(s *moduleService) { s.now = now }
}

// WithRunIDs replaces the uuid run id generator
func WithRunIDs(newID func() string) Option {
	return func(s *moduleService) { s.newID = newID }
}

type moduleService struct {
	registry  *plugin.Registry
	publisher observer.Subject
	now       func() time.Time
	newID     func() string
}

// NewModuleService creates a module service over registry. Lifecycle events
// go to publisher.
func NewModuleService(registry *plugin.Registry, publisher observer.Subject, opts ...Option) ModuleService {
	s := &moduleService{
		registry:  registry,
		publisher: publisher,
		now:       time.Now,
		newID:     uuid.NewString,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *moduleService) Run(ctx context.Context, module string, inv plugin.Invocation) (models.ModuleResult, error) {
	mod, err := s.registry.Get(module)
	if err != nil {
		return models.ModuleResult{}, err
	}

	meta := mod.Metadata()
	if inv.Event == "" && len(meta.Events) > 0 {
		inv.Event = meta.Events[0]
	}
	if !meta.Supports(inv.Event) {
		return models.ModuleResult{}, apperrors.NewValidationError("Module does not run on this event", nil).
			WithDetails(string(inv.Event))
	}

	runID := s.newID()
	start := s.now()
	event := observer.RunEvent{
		Timestamp: start,
		Module:    module,
		HostEvent: string(inv.Event),
		RunID:     runID,
	}

	event.EventType = observer.RunStarted
	s.publisher.NotifyObservers(ctx, event)

	result, err := mod.Run(ctx, inv)
	elapsed := s.now().Sub(start)
	event.ProcessingTime = elapsed

	if err != nil {
		event.EventType = observer.RunFailed
		event.ErrorMessage = err.Error()
		s.publisher.NotifyObservers(ctx, event)
		return models.ModuleResult{}, err
	}

	result.Module = module
	result.Event = string(inv.Event)
	result.RunID = runID
	result.Timestamp = start
	result.ProcessingTimeSec = elapsed.Seconds()

	event.Success = true
	event.Message = result.Message
	if result.Value != nil {
		event.Metadata = map[string]interface{}{"value": *result.Value}
	}
	if result.Skipped {
		event.EventType = observer.RunSkipped
	} else {
		event.EventType = observer.RunCompleted
	}
	s.publisher.NotifyObservers(ctx, event)

	return result, nil
}

func (s *moduleService) Cleanup(ctx context.Context, module string) error {
	mod, err := s.registry.Get(module)
	if err != nil {
		return err
	}
	return mod.Cleanup(ctx)
}

func (s *moduleService) Metadata(module string) (plugin.Metadata, error) {
	mod, err := s.registry.Get(module)
	if err != nil {
		return plugin.Metadata{}, err
	}
	return mod.Metadata(), nil
}

func (s *moduleService) Modules() []string {
	return s.registry.Names()
}
