package container

import (
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/anime-shed/allsky-modules-go/internal/config"
	"github.com/anime-shed/allsky-modules-go/internal/debugimage"
	"github.com/anime-shed/allsky-modules-go/internal/extradata"
	"github.com/anime-shed/allsky-modules-go/internal/factory"
	"github.com/anime-shed/allsky-modules-go/internal/logger"
	"github.com/anime-shed/allsky-modules-go/internal/modules/skyquality"
	"github.com/anime-shed/allsky-modules-go/internal/modules/tempest"
	"github.com/anime-shed/allsky-modules-go/internal/modules/tempsensor"
	"github.com/anime-shed/allsky-modules-go/internal/observer"
	"github.com/anime-shed/allsky-modules-go/internal/plugin"
	"github.com/anime-shed/allsky-modules-go/internal/repository"
	"github.com/anime-shed/allsky-modules-go/internal/service"
	"github.com/anime-shed/allsky-modules-go/internal/sqm"
	"github.com/anime-shed/allsky-modules-go/internal/weatherflow"
)

// Container holds all application dependencies for one invocation
type Container struct {
	config        *config.Config
	logger        *logrus.Logger
	runID         string
	store         repository.Store
	registry      *plugin.Registry
	metrics       *observer.MetricsObserver
	moduleService service.ModuleService
}

// Option customises the container build
type Option func(*options)

type options struct {
	weatherFlowURL string
	httpClient     *http.Client
	now            func() time.Time
}

// WithWeatherFlowURL points the Tempest module at another API root
func WithWeatherFlowURL(url string) Option {
	return func(o *options) { o.weatherFlowURL = url }
}

// WithHTTPClient replaces the client used for WeatherFlow calls
func WithHTTPClient(c *http.Client) Option {
	return func(o *options) { o.httpClient = c }
}

// WithClock replaces time.Now for throttling and the WeatherFlow breaker
func WithClock(now func() time.Time) Option {
	return func(o *options) { o.now = now }
}

// NewContainer creates a new dependency injection container. Logs go to out.
func NewContainer(cfg *config.Config, out io.Writer, opts ...Option) (*Container, error) {
	o := options{weatherFlowURL: weatherflow.DefaultBaseURL, now: time.Now}
	for _, opt := range opts {
		opt(&o)
	}
	if o.httpClient == nil {
		o.httpClient = &http.Client{Timeout: cfg.HTTPTimeout}
	}

	log := logger.New(cfg.LogLevel, cfg.LogFormat, out)
	runID := uuid.NewString()
	base := log.WithField("run_id", runID)

	// Build dependency graph
	components := factory.NewComponentFactory(cfg)

	store, err := components.StoreFactory.CreateStore(factory.StoreType(cfg.LastRunStore))
	if err != nil {
		return nil, err
	}

	images, err := factory.NewImageRouter(components.StorageFactory, cfg.AzureAccount != "")
	if err != nil {
		store.Close()
		return nil, err
	}

	throttle := plugin.NewThrottle(store, o.now)
	extra := extradata.NewWriter(cfg.ExtraDir())
	debug := debugimage.NewWriter(cfg.DebugDir())

	weatherFlow := weatherflow.NewClient(o.httpClient, o.weatherFlowURL,
		weatherflow.WithBreakerStore(store),
		weatherflow.WithClock(o.now))

	sqmLog := logger.ForModule(base, skyquality.ModuleName)
	estimator := sqm.NewEstimator(sqmLog, debug).WithModule(skyquality.ModuleName)

	registry := plugin.NewRegistry(
		skyquality.New(cfg, images, estimator, sqmLog),
		tempsensor.New(cfg, throttle, extra, logger.ForModule(base, tempsensor.ModuleName)),
		tempest.New(cfg, weatherFlow, throttle, extra, logger.ForModule(base, tempest.ModuleName)),
	)

	publisher := observer.NewEventPublisher(base)
	metrics := observer.NewMetricsObserver()
	publisher.Subscribe(observer.NewLoggingObserver(base))
	publisher.Subscribe(metrics)

	moduleService := service.NewModuleService(registry, publisher,
		service.WithRunIDs(func() string { return runID }))

	return &Container{
		config:        cfg,
		logger:        log,
		runID:         runID,
		store:         store,
		registry:      registry,
		metrics:       metrics,
		moduleService: moduleService,
	}, nil
}

// ModuleService returns the module runner
func (c *Container) ModuleService() service.ModuleService {
	return c.moduleService
}

// Config returns the configuration
func (c *Container) Config() *config.Config {
	return c.config
}

// Logger returns the root logger
func (c *Container) Logger() *logrus.Logger {
	return c.logger
}

// Metrics returns the run counters collected so far
func (c *Container) Metrics() map[string]interface{} {
	return c.metrics.GetMetrics()
}

// Close releases the last-run store
func (c *Container) Close() error {
	return c.store.Close()
}
