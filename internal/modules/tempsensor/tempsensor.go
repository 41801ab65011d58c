// Package tempsensor publishes readings from the enclosure temperature and
// humidity sensor as overlay variables.
package tempsensor

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/anime-shed/allsky-modules-go/internal/config"
	apperrors "github.com/anime-shed/allsky-modules-go/internal/errors"
	"github.com/anime-shed/allsky-modules-go/internal/extradata"
	"github.com/anime-shed/allsky-modules-go/internal/plugin"
	"github.com/anime-shed/allsky-modules-go/pkg/models"
	"github.com/anime-shed/allsky-modules-go/pkg/validation"
)

const (
	ModuleName      = "allsky_tempsensor"
	DefaultFilename = "tempsensor.json"

	TemperatureKey = "INTERNALTEMPERATURE"
	HumidityKey    = "INTERNALHUMIDITY"
)

// Params are the module arguments after parsing
type Params struct {
	DataFile string `param:"datafile" validate:"required"`
	Period   int    `param:"period" validate:"min=60,max=1440"`
	Expire   int    `param:"expire" validate:"min=61,max=1500,gtfield=Period"`
	Filename string `param:"filename" validate:"required"`
}

// Module copies sensor readings into an extra-data file
type Module struct {
	cfg      *config.Config
	throttle *plugin.Throttle
	extra    *extradata.Writer
	log      logrus.FieldLogger
}

// New creates the module
func New(cfg *config.Config, throttle *plugin.Throttle, extra *extradata.Writer, log logrus.FieldLogger) *Module {
	return &Module{cfg: cfg, throttle: throttle, extra: extra, log: log}
}

func (m *Module) Metadata() plugin.Metadata {
	return plugin.Metadata{
		Name:        "Temperature/Humidity Sensor",
		Description: "Gets data from a internal temperature/humidity sensor.",
		Module:      ModuleName,
		Events:      []plugin.Event{plugin.EventPeriodic},
		Arguments: map[string]any{
			"datafile": "/home/admin/tmpsensor/temp_sensor_data.txt",
			"period":   300,
			"expire":   600,
			"filename": DefaultFilename,
		},
		ArgumentDetails: map[string]plugin.ArgumentDetail{
			"datafile": {
				Required:    true,
				Description: "Datafile (full path)",
				Help:        "The full path to your data file that contains the sensor data.",
			},
			"filename": {
				Required:    true,
				Description: "Filename",
				Help:        "The name of the file that will be written to the allsky/tmp/extra directory",
			},
			"period": {
				Required:    true,
				Description: "Read Every",
				Help:        "Reads data every x seconds.",
				Type:        plugin.Spinner(60, 1440, 1),
			},
			"expire": {
				Required:    true,
				Description: "Expiry Time",
				Help:        "Number of seconds the data is valid for MUST be higher than the 'Read Every' value",
				Type:        plugin.Spinner(61, 1500, 1),
			},
		},
	}
}

// ParseParams reads and validates the module arguments
func ParseParams(p plugin.Params) (Params, error) {
	period, err := p.Int("period")
	if err != nil {
		return Params{}, apperrors.NewValidationError("Invalid module parameters", err)
	}
	expire, err := p.Int("expire")
	if err != nil {
		return Params{}, apperrors.NewValidationError("Invalid module parameters", err)
	}
	params := Params{
		DataFile: p.String("datafile"),
		Period:   period,
		Expire:   expire,
		Filename: p.String("filename"),
	}
	if err := validation.ValidateParams(params); err != nil {
		return Params{}, err
	}
	return params, nil
}

// ParseSensorData reads the tab separated WEBUI_DATA format. Only the
// internal temperature and humidity rows are picked up; later rows win.
func ParseSensorData(r io.Reader) (map[string]string, error) {
	values := make(map[string]string)
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		fields := strings.Split(strings.TrimSpace(scanner.Text()), "\t")
		if len(fields) < 4 {
			continue
		}
		switch {
		case fields[0] == "data" && fields[2] == "Internal Temperature":
			values[TemperatureKey] = fields[3]
		case fields[0] == "progress" && fields[2] == "Internal Humidity":
			values[HumidityKey] = fields[3]
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read sensor data: %w", err)
	}
	return values, nil
}

func (m *Module) Run(ctx context.Context, inv plugin.Invocation) (models.ModuleResult, error) {
	params, err := ParseParams(inv.Params.WithDefaults(m.Metadata().Arguments))
	if err != nil {
		return models.ModuleResult{}, err
	}

	period := time.Duration(params.Period) * time.Second
	due, elapsed, err := m.throttle.ShouldRun(ctx, ModuleName, period)
	if err != nil {
		return models.ModuleResult{}, apperrors.NewInternalError("Failed to check last run", err)
	}
	if !due {
		msg := plugin.SkipMessage(elapsed, period)
		m.log.Info(msg)
		return models.ModuleResult{Message: msg, Skipped: true}, nil
	}

	result := m.collect(params)

	if err := m.throttle.MarkRun(ctx, ModuleName); err != nil {
		return models.ModuleResult{}, apperrors.NewInternalError("Failed to record last run", err)
	}
	return result, nil
}

// collect does the work of a due run. Failures are reported in the message.
func (m *Module) collect(params Params) models.ModuleResult {
	if m.cfg.AllskyHome == "" {
		msg := "Cannot find ALLSKY_HOME Environment variable"
		m.log.Error(msg)
		return models.ModuleResult{Message: msg}
	}

	values, err := readSensorFile(params.DataFile)
	if err != nil {
		m.log.WithError(err).WithField("datafile", params.DataFile).Error("Failed to update temp/humidity sensor")
		return models.ModuleResult{Message: err.Error()}
	}

	data := make(models.ExtraData, len(values))
	for k, v := range values {
		data[k] = models.ExtraValue{Value: v, Expires: params.Expire}
	}
	path, err := m.extra.Save(params.Filename, data)
	if err != nil {
		m.log.WithError(err).Error("Failed to update temp/humidity sensor")
		return models.ModuleResult{Message: err.Error()}
	}

	msg := fmt.Sprintf("Data acquired and written to extra data file %s", params.Filename)
	m.log.WithField("values", len(values)).Info(msg)
	return models.ModuleResult{Message: msg, ExtraDataFile: path}
}

func readSensorFile(path string) (map[string]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return ParseSensorData(f)
}

// Cleanup removes the default extra-data file
func (m *Module) Cleanup(ctx context.Context) error {
	if err := m.extra.Remove(DefaultFilename); err != nil {
		return apperrors.NewInternalError("Failed to remove extra data", err)
	}
	return nil
}
