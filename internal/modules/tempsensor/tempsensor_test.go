package tempsensor

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/sirupsen/logrus/hooks/test"

	"github.com/anime-shed/allsky-modules-go/internal/config"
	apperrors "github.com/anime-shed/allsky-modules-go/internal/errors"
	"github.com/anime-shed/allsky-modules-go/internal/extradata"
	"github.com/anime-shed/allsky-modules-go/internal/plugin"
	"github.com/anime-shed/allsky-modules-go/internal/repository"
)

const sensorFile = "data\t0\tInternal Temperature\t21.5\n" +
	"data\t0\tSomething Else\t99\n" +
	"progress\t0\tInternal Humidity\t43\n" +
	"garbage line\n"

type fixture struct {
	module *Module
	extra  *extradata.Writer
	now    *time.Time
	data   string
}

func newFixture(t *testing.T, home string) fixture {
	t.Helper()
	tmp := t.TempDir()
	cfg, err := config.Load(config.MapEnv{"ALLSKY_HOME": home, "ALLSKY_TMP": tmp})
	if err != nil {
		t.Fatalf("config.Load failed: %v", err)
	}

	data := filepath.Join(t.TempDir(), "temp_sensor_data.txt")
	if err := os.WriteFile(data, []byte(sensorFile), 0o644); err != nil {
		t.Fatal(err)
	}

	now := time.Unix(1700000000, 0)
	throttle := plugin.NewThrottle(repository.NewMemoryStore(), func() time.Time { return now })
	extra := extradata.NewWriter(cfg.ExtraDir())
	log, _ := test.NewNullLogger()

	return fixture{
		module: New(cfg, throttle, extra, log),
		extra:  extra,
		now:    &now,
		data:   data,
	}
}

func TestParseSensorData(t *testing.T) {
	values, err := ParseSensorData(strings.NewReader(sensorFile))
	if err != nil {
		t.Fatalf("ParseSensorData failed: %v", err)
	}
	if values[TemperatureKey] != "21.5" {
		t.Errorf("Expected temperature 21.5, got %q", values[TemperatureKey])
	}
	if values[HumidityKey] != "43" {
		t.Errorf("Expected humidity 43, got %q", values[HumidityKey])
	}
	if len(values) != 2 {
		t.Errorf("Expected only two values, got %v", values)
	}
}

func TestParseSensorData_Edges(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  map[string]string
	}{
		{"empty", "", map[string]string{}},
		{"wrong kind for humidity", "data\t0\tInternal Humidity\t40\n", map[string]string{}},
		{"crlf and padding", "  data\t1\tInternal Temperature\t-3.2\r\n", map[string]string{TemperatureKey: "-3.2"}},
		{"last wins", "data\t0\tInternal Temperature\t1\ndata\t0\tInternal Temperature\t2\n", map[string]string{TemperatureKey: "2"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseSensorData(strings.NewReader(tt.input))
			if err != nil {
				t.Fatalf("ParseSensorData failed: %v", err)
			}
			if len(got) != len(tt.want) {
				t.Fatalf("Expected %v, got %v", tt.want, got)
			}
			for k, v := range tt.want {
				if got[k] != v {
					t.Errorf("Expected %s=%s, got %s", k, v, got[k])
				}
			}
		})
	}
}

func TestRun_WritesExtraData(t *testing.T) {
	f := newFixture(t, t.TempDir())

	res, err := f.module.Run(context.Background(), plugin.Invocation{
		Event:  plugin.EventPeriodic,
		Params: plugin.Params{"datafile": f.data},
	})
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if res.Skipped {
		t.Fatal("Expected first run to do work")
	}
	if res.Message != "Data acquired and written to extra data file tempsensor.json" {
		t.Errorf("Unexpected message %q", res.Message)
	}

	data, err := f.extra.Load(DefaultFilename)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if data[TemperatureKey].Value != "21.5" || data[TemperatureKey].Expires != 600 {
		t.Errorf("Unexpected temperature entry %+v", data[TemperatureKey])
	}
	if data[HumidityKey].Value != "43" {
		t.Errorf("Unexpected humidity entry %+v", data[HumidityKey])
	}
}

func TestRun_Throttled(t *testing.T) {
	f := newFixture(t, t.TempDir())
	inv := plugin.Invocation{Params: plugin.Params{"datafile": f.data, "period": "300"}}

	if _, err := f.module.Run(context.Background(), inv); err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	*f.now = f.now.Add(120 * time.Second)
	res, err := f.module.Run(context.Background(), inv)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if !res.Skipped {
		t.Error("Expected run inside the period to be skipped")
	}
	if res.Message != "Last run 120 seconds ago. Running every 300 seconds" {
		t.Errorf("Unexpected message %q", res.Message)
	}

	// Skipped runs must not push the next run further out.
	*f.now = f.now.Add(180 * time.Second)
	res, err = f.module.Run(context.Background(), inv)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if res.Skipped {
		t.Error("Expected run after the period to do work")
	}
}

func TestRun_MissingDataFile(t *testing.T) {
	f := newFixture(t, t.TempDir())

	res, err := f.module.Run(context.Background(), plugin.Invocation{
		Params: plugin.Params{"datafile": filepath.Join(t.TempDir(), "absent.txt")},
	})
	if err != nil {
		t.Fatalf("Expected read failures to stay in the message, got %v", err)
	}
	if !strings.Contains(res.Message, "absent.txt") {
		t.Errorf("Expected message to name the file, got %q", res.Message)
	}
}

func TestRun_MissingHome(t *testing.T) {
	f := newFixture(t, "")

	res, err := f.module.Run(context.Background(), plugin.Invocation{Params: plugin.Params{"datafile": f.data}})
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if res.Message != "Cannot find ALLSKY_HOME Environment variable" {
		t.Errorf("Unexpected message %q", res.Message)
	}
}

func TestRun_InvalidParams(t *testing.T) {
	f := newFixture(t, t.TempDir())

	tests := []plugin.Params{
		{"period": "10"},
		{"period": "600", "expire": "600"},
		{"expire": "x"},
		{"filename": ""},
	}
	for _, p := range tests {
		_, err := f.module.Run(context.Background(), plugin.Invocation{Params: p})
		if !apperrors.IsType(err, apperrors.ErrorTypeValidation) {
			t.Errorf("Expected validation error for %v, got %v", p, err)
		}
	}
}

func TestCleanup(t *testing.T) {
	f := newFixture(t, t.TempDir())
	if _, err := f.module.Run(context.Background(), plugin.Invocation{Params: plugin.Params{"datafile": f.data}}); err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if err := f.module.Cleanup(context.Background()); err != nil {
		t.Fatalf("Cleanup failed: %v", err)
	}
	if _, err := os.Stat(filepath.Join(f.extra.Dir(), DefaultFilename)); !os.IsNotExist(err) {
		t.Error("Expected extra data file to be removed")
	}
	if err := f.module.Cleanup(context.Background()); err != nil {
		t.Errorf("Expected second cleanup to succeed, got %v", err)
	}
}
