package validation

import (
	"strings"
	"testing"

	apperrors "github.com/anime-shed/allsky-modules-go/internal/errors"
)

type periodicParams struct {
	Filename string `param:"filename" validate:"required"`
	Period   int    `param:"period" validate:"min=60,max=1440"`
	Expire   int    `param:"expire" validate:"min=61,max=1500,gtfield=Period"`
	Units    string `param:"units" validate:"oneof=imperial metric standard"`
}

func TestValidateParams(t *testing.T) {
	valid := periodicParams{Filename: "x.json", Period: 300, Expire: 600, Units: "metric"}

	tests := []struct {
		name    string
		mutate  func(p *periodicParams)
		wantErr string
	}{
		{"valid", func(p *periodicParams) {}, ""},
		{"missing filename", func(p *periodicParams) { p.Filename = "" }, "filename is required"},
		{"period too small", func(p *periodicParams) { p.Period = 59 }, "period must be at least 60"},
		{"expire too large", func(p *periodicParams) { p.Expire = 1501 }, "expire must be at most 1500"},
		{"expire not after period", func(p *periodicParams) { p.Period = 600; p.Expire = 600 }, "expire must be greater than period"},
		{"bad units", func(p *periodicParams) { p.Units = "kelvin" }, "units must be one of [imperial metric standard]"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := valid
			tt.mutate(&p)
			err := ValidateParams(p)

			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("Expected no error, got %v", err)
				}
				return
			}
			if err == nil {
				t.Fatal("Expected error")
			}
			if !apperrors.IsType(err, apperrors.ErrorTypeValidation) {
				t.Errorf("Expected validation error, got %v", err)
			}
			appErr := err.(*apperrors.AppError)
			if !strings.Contains(appErr.Details, tt.wantErr) {
				t.Errorf("Expected details to contain %q, got %q", tt.wantErr, appErr.Details)
			}
		})
	}
}

func TestValidateParams_ListsEveryField(t *testing.T) {
	err := ValidateParams(periodicParams{Period: 10, Expire: 5, Units: "x"})
	if err == nil {
		t.Fatal("Expected error")
	}
	details := err.(*apperrors.AppError).Details
	for _, field := range []string{"filename", "period", "expire", "units"} {
		if !strings.Contains(details, field) {
			t.Errorf("Expected %s in details %q", field, details)
		}
	}
}

func TestScheme(t *testing.T) {
	tests := map[string]string{
		"/tmp/image.jpg":                    "file",
		"image.jpg":                         "file",
		"file:///tmp/image.jpg":             "file",
		"http://example.com/a.jpg":          "http",
		"HTTPS://example.com/a.jpg":         "https",
		"azblob://allsky/2024/01/image.jpg": "azblob",
	}
	for in, want := range tests {
		if got := Scheme(in); got != want {
			t.Errorf("Scheme(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestValidateLocator(t *testing.T) {
	v := NewLocatorValidator()

	valid := []string{
		"/home/admin/allsky/tmp/image.jpg",
		"relative/image.png",
		"http://example.com/image.jpg",
		"https://192.168.1.10/current.jpg",
		"azblob://allsky/current/image.jpg",
	}
	for _, loc := range valid {
		if err := v.ValidateLocator(loc); err != nil {
			t.Errorf("Expected %s to be valid, got %v", loc, err)
		}
	}

	invalid := []string{
		"",
		"   ",
		"ftp://example.com/image.jpg",
		"http:///image.jpg",
		"azblob://allsky",
		"azblob://allsky/",
	}
	for _, loc := range invalid {
		err := v.ValidateLocator(loc)
		if err == nil {
			t.Errorf("Expected %q to be rejected", loc)
			continue
		}
		if !apperrors.IsType(err, apperrors.ErrorTypeValidation) {
			t.Errorf("Expected validation error for %q, got %v", loc, err)
		}
	}
}

func TestValidateLocator_AllowedHosts(t *testing.T) {
	v := NewLocatorValidatorWithOptions([]string{"https"}, []string{"cam.local"})

	if err := v.ValidateLocator("https://cam.local/image.jpg"); err != nil {
		t.Errorf("Expected allowed host to pass, got %v", err)
	}
	if err := v.ValidateLocator("https://other.local/image.jpg"); err == nil {
		t.Error("Expected other host to be rejected")
	}
	if err := v.ValidateLocator("/tmp/image.jpg"); err == nil {
		t.Error("Expected file scheme to be rejected when not allowed")
	}
}
