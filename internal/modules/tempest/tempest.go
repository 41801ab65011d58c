// Package tempest publishes observations from a WeatherFlow Tempest station
// as overlay variables.
package tempest

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/anime-shed/allsky-modules-go/internal/config"
	apperrors "github.com/anime-shed/allsky-modules-go/internal/errors"
	"github.com/anime-shed/allsky-modules-go/internal/extradata"
	"github.com/anime-shed/allsky-modules-go/internal/plugin"
	"github.com/anime-shed/allsky-modules-go/internal/weatherflow"
	"github.com/anime-shed/allsky-modules-go/pkg/models"
	"github.com/anime-shed/allsky-modules-go/pkg/validation"
)

const (
	ModuleName      = "allsky_weatherflowtempest"
	DefaultFilename = "weatherflowtempest.json"
)

// Unit systems accepted by the units argument
const (
	UnitsImperial = "imperial"
	UnitsMetric   = "metric"
	UnitsStandard = "standard"
)

// Observation fields reported in the configured temperature unit
var temperatureFields = []struct{ field, key string }{
	{"air_temperature", "WFAIR_TEMPERATURE"},
	{"feels_like", "WFFEELS_LIKE"},
	{"heat_index", "WFHEAT_INDEX"},
	{"wind_chill", "WFWIND_CHILL"},
	{"dew_point", "WFDEW_POINT"},
}

// Observation fields copied as they come
var rawFields = []struct{ field, key string }{
	{"barometric_pressure", "WFPRESSURE"},
	{"relative_humidity", "WFREL_HUMIDITY"},
	{"wind_avg", "WFWIND_AVG"},
	{"brightness", "WFBRIGHTNESS"},
}

// ObservationFetcher is the API call the module depends on
type ObservationFetcher interface {
	Observations(ctx context.Context, stationID, token string) (*weatherflow.ObservationResponse, error)
}

// Params are the module arguments after parsing
type Params struct {
	APIKey        string `param:"apikey"`
	StationID     string `param:"stationid"`
	StationNumber int    `param:"stationnumber" validate:"min=1"`
	Period        int    `param:"period" validate:"min=60,max=1440"`
	Expire        int    `param:"expire" validate:"min=61,max=1500,gtfield=Period"`
	Filename      string `param:"filename"`
	Units         string `param:"units" validate:"oneof=imperial metric standard"`
}

// Module polls the station and writes its latest observation
type Module struct {
	cfg      *config.Config
	api      ObservationFetcher
	throttle *plugin.Throttle
	extra    *extradata.Writer
	log      logrus.FieldLogger
}

// New creates the module
func New(cfg *config.Config, api ObservationFetcher, throttle *plugin.Throttle, extra *extradata.Writer, log logrus.FieldLogger) *Module {
	return &Module{cfg: cfg, api: api, throttle: throttle, extra: extra, log: log}
}

func (m *Module) Metadata() plugin.Metadata {
	return plugin.Metadata{
		Name:        "WeatherFlow Tempest",
		Description: "Gets weather data from local WeatherFlow Tempest weather station",
		Module:      ModuleName,
		Events:      []plugin.Event{plugin.EventPeriodic},
		Arguments: map[string]any{
			"apikey":        "",
			"stationid":     "",
			"stationnumber": 1,
			"period":        240,
			"expire":        480,
			"filename":      DefaultFilename,
			"units":         UnitsImperial,
		},
		ArgumentDetails: map[string]plugin.ArgumentDetail{
			"apikey": {
				Required:    true,
				Description: "API Key",
				Help:        "Your WeatherFlow API key",
			},
			"stationid": {
				Required:    true,
				Description: "Station ID",
				Help:        "Your Tempest Station ID",
			},
			"stationnumber": {
				Required:    true,
				Description: "Station Number",
				Help:        "If you have more than one station this is the station number.  Default is 1 for a single station.",
			},
			"filename": {
				Required:    true,
				Description: "Filename",
				Help:        "The name of the file that will be written to the allsky/tmp/extra directory",
			},
			"period": {
				Required:    true,
				Description: "Read Every",
				Help:        "Reads data every x seconds. Be careful of the free 1000 request limit per day",
				Type:        plugin.Spinner(60, 1440, 1),
			},
			"units": {
				Description: "Units",
				Help:        "Units of measurement. standard, metric and imperial",
				Type:        plugin.Select("standard,metric,imperial"),
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
	ints := map[string]int{}
	for _, key := range []string{"stationnumber", "period", "expire"} {
		n, err := p.Int(key)
		if err != nil {
			return Params{}, apperrors.NewValidationError("Invalid module parameters", err)
		}
		ints[key] = n
	}
	params := Params{
		APIKey:        p.String("apikey"),
		StationID:     p.String("stationid"),
		StationNumber: ints["stationnumber"],
		Period:        ints["period"],
		Expire:        ints["expire"],
		Filename:      p.String("filename"),
		Units:         p.String("units"),
	}
	if err := validation.ValidateParams(params); err != nil {
		return Params{}, err
	}
	return params, nil
}

// ConvertTemperature converts celsius into units, rounded to one decimal
func ConvertTemperature(celsius float64, units string) (float64, error) {
	var v float64
	switch units {
	case UnitsImperial:
		v = celsius*9/5 + 32
	case UnitsMetric:
		v = celsius
	case UnitsStandard:
		v = celsius + 273.15
	default:
		return 0, fmt.Errorf("unknown units %q", units)
	}
	return roundTenth(v), nil
}

// roundTenth rounds the exact binary value of v, so 293.15 (stored just
// below) becomes 293.1.
func roundTenth(v float64) float64 {
	r, _ := strconv.ParseFloat(strconv.FormatFloat(v, 'f', 1, 64), 64)
	return r
}

// MapObservation turns one station observation into overlay variables.
// Absent or null fields are left out.
func MapObservation(obs map[string]any, units string, expire int) (models.ExtraData, error) {
	data := make(models.ExtraData)

	for _, f := range temperatureFields {
		raw, ok := obs[f.field]
		if !ok || raw == nil {
			continue
		}
		celsius, ok := raw.(float64)
		if !ok {
			return nil, fmt.Errorf("field %s is not a number: %v", f.field, raw)
		}
		v, err := ConvertTemperature(celsius, units)
		if err != nil {
			return nil, err
		}
		data[f.key] = models.ExtraValue{Value: v, Expires: expire}
	}

	for _, f := range rawFields {
		if raw, ok := obs[f.field]; ok && raw != nil {
			data[f.key] = models.ExtraValue{Value: raw, Expires: expire}
		}
	}
	return data, nil
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

	result := m.poll(ctx, params)

	if err := m.throttle.MarkRun(ctx, ModuleName); err != nil {
		return models.ModuleResult{}, apperrors.NewInternalError("Failed to record last run", err)
	}
	return result, nil
}

// poll performs the API call of a due run. Every outcome is a status line.
func (m *Module) poll(ctx context.Context, params Params) models.ModuleResult {
	switch {
	case params.Filename == "":
		return m.fail("Missing filename for data")
	case params.APIKey == "":
		return m.fail("Missing WeatherFlow API key")
	case m.cfg.AllskyHome == "":
		return m.fail("Cannot find ALLSKY_HOME Environment variable")
	}

	resp, err := m.api.Observations(ctx, params.StationID, params.APIKey)
	if err != nil {
		if weatherflow.IsCircuitOpen(err) {
			return m.fail("WeatherFlow API circuit open after repeated failures, request skipped")
		}
		var statusErr *weatherflow.StatusError
		if errors.As(err, &statusErr) {
			return m.fail(fmt.Sprintf("Got error from WeatherFlow API. Response code %d", statusErr.Code))
		}
		return m.fail(err.Error())
	}

	switch {
	case resp.Status == nil:
		return m.info("Data acquired missing 'status'")
	case resp.Status.StatusCode != 0:
		return m.info("Data acquired was not successful: " + resp.Status.StatusMessage)
	case resp.Obs == nil:
		return m.info("Data acquired missing 'obs'")
	case len(resp.Obs) < params.StationNumber:
		return m.info(fmt.Sprintf("Data acquired does not have data for station number %d", params.StationNumber))
	}

	data, err := MapObservation(resp.Obs[params.StationNumber-1], params.Units, params.Expire)
	if err != nil {
		return m.fail(err.Error())
	}
	path, err := m.extra.Save(params.Filename, data)
	if err != nil {
		return m.fail(err.Error())
	}

	res := m.info(fmt.Sprintf("Data acquired and written to extra data file %s", params.Filename))
	res.ExtraDataFile = path
	return res
}

func (m *Module) fail(msg string) models.ModuleResult {
	m.log.Error(msg)
	return models.ModuleResult{Message: msg}
}

func (m *Module) info(msg string) models.ModuleResult {
	m.log.Info(msg)
	return models.ModuleResult{Message: msg}
}

// Cleanup removes the default extra-data file
func (m *Module) Cleanup(ctx context.Context) error {
	if err := m.extra.Remove(DefaultFilename); err != nil {
		return apperrors.NewInternalError("Failed to remove extra data", err)
	}
	return nil
}
