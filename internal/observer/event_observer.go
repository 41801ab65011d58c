package observer

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// RunEvent represents a module run lifecycle event
type RunEvent struct {
	EventType      EventType              `json:"event_type"`
	Timestamp      time.Time              `json:"timestamp"`
	Module         string                 `json:"module"`
	HostEvent      string                 `json:"host_event"`
	RunID          string                 `json:"run_id"`
	ProcessingTime time.Duration          `json:"processing_time"`
	Success        bool                   `json:"success"`
	Message        string                 `json:"message,omitempty"`
	ErrorMessage   string                 `json:"error_message,omitempty"`
	Metadata       map[string]interface{} `json:"metadata,omitempty"`
}

// EventType represents the type of run event
type EventType string

const (
	// RunStarted when a module is invoked
	RunStarted EventType = "run_started"
	// RunCompleted when a module did its work
	RunCompleted EventType = "run_completed"
	// RunSkipped when throttling kept a module idle
	RunSkipped EventType = "run_skipped"
	// RunFailed when a module returned an error
	RunFailed EventType = "run_failed"
)

// Observer defines the interface for event observers
type Observer interface {
	OnEvent(ctx context.Context, event RunEvent)
	GetObserverName() string
}

// Subject defines the interface for event publishers
type Subject interface {
	Subscribe(observer Observer)
	NotifyObservers(ctx context.Context, event RunEvent)
}

// LoggingObserver logs run events
type LoggingObserver struct {
	logger logrus.FieldLogger
}

// NewLoggingObserver creates a new logging observer
func NewLoggingObserver(logger logrus.FieldLogger) Observer {
	return &LoggingObserver{
		logger: logger,
	}
}

// OnEvent handles run events by logging them
func (o *LoggingObserver) OnEvent(ctx context.Context, event RunEvent) {
	fields := logrus.Fields{
		"event_type": event.EventType,
		"module":     event.Module,
		"event":      event.HostEvent,
		"run_id":     event.RunID,
	}
	if event.EventType != RunStarted {
		fields["processing_time"] = event.ProcessingTime
		fields["success"] = event.Success
	}
	if event.ErrorMessage != "" {
		fields["error"] = event.ErrorMessage
	}
	for k, v := range event.Metadata {
		fields[k] = v
	}

	entry := o.logger.WithFields(fields)
	switch event.EventType {
	case RunStarted:
		entry.Debug("Module run started")
	case RunCompleted:
		entry.Info("Module run completed")
	case RunSkipped:
		entry.Debug("Module run skipped")
	case RunFailed:
		entry.Error("Module run failed")
	default:
		entry.Info("Module event occurred")
	}
}

// GetObserverName returns the observer name
func (o *LoggingObserver) GetObserverName() string {
	return "logging_observer"
}

// MetricsObserver counts run outcomes
type MetricsObserver struct {
	mu                  sync.RWMutex
	totalRuns           int64
	completedRuns       int64
	skippedRuns         int64
	failedRuns          int64
	totalProcessingTime time.Duration
}

// NewMetricsObserver creates a new metrics observer
func NewMetricsObserver() *MetricsObserver {
	return &MetricsObserver{}
}

// OnEvent handles run events by collecting metrics
func (o *MetricsObserver) OnEvent(ctx context.Context, event RunEvent) {
	o.mu.Lock()
	defer o.mu.Unlock()

	switch event.EventType {
	case RunStarted:
		o.totalRuns++
	case RunCompleted:
		o.completedRuns++
		o.totalProcessingTime += event.ProcessingTime
	case RunSkipped:
		o.skippedRuns++
	case RunFailed:
		o.failedRuns++
	}
}

// GetObserverName returns the observer name
func (o *MetricsObserver) GetObserverName() string {
	return "metrics_observer"
}

// GetMetrics returns current metrics
func (o *MetricsObserver) GetMetrics() map[string]interface{} {
	o.mu.RLock()
	defer o.mu.RUnlock()

	avgProcessingTime := time.Duration(0)
	if o.completedRuns > 0 {
		avgProcessingTime = o.totalProcessingTime / time.Duration(o.completedRuns)
	}

	return map[string]interface{}{
		"total_runs":            o.totalRuns,
		"completed_runs":        o.completedRuns,
		"skipped_runs":          o.skippedRuns,
		"failed_runs":           o.failedRuns,
		"total_processing_time": o.totalProcessingTime,
		"avg_processing_time":   avgProcessingTime,
	}
}

// EventPublisher implements the Subject interface
type EventPublisher struct {
	mu        sync.RWMutex
	observers []Observer
	logger    logrus.FieldLogger
}

// NewEventPublisher creates a new event publisher
func NewEventPublisher(logger logrus.FieldLogger) *EventPublisher {
	return &EventPublisher{
		observers: make([]Observer, 0),
		logger:    logger,
	}
}

// Subscribe adds an observer
func (p *EventPublisher) Subscribe(observer Observer) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.observers = append(p.observers, observer)
}

// NotifyObservers delivers event to every observer in subscription order.
// Delivery is synchronous: the process exits right after a run.
func (p *EventPublisher) NotifyObservers(ctx context.Context, event RunEvent) {
	p.mu.RLock()
	observers := make([]Observer, len(p.observers))
	copy(observers, p.observers)
	p.mu.RUnlock()

	for _, observer := range observers {
		p.notify(ctx, observer, event)
	}
}

func (p *EventPublisher) notify(ctx context.Context, obs Observer, event RunEvent) {
	defer func() {
		if r := recover(); r != nil {
			p.logger.WithField("observer", obs.GetObserverName()).
				WithField("panic", r).
				Error("Observer panicked while handling event")
		}
	}()
	obs.OnEvent(ctx, event)
}
