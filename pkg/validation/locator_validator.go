package validation

import (
	"net/url"
	"strings"

	apperrors "github.com/anime-shed/allsky-modules-go/internal/errors"
)

// LocatorValidator checks image locators before a source tries to open them
type LocatorValidator struct {
	allowedSchemes []string
	allowedHosts   []string
}

// NewLocatorValidator accepts file paths, http(s) URLs and azblob URLs
func NewLocatorValidator() *LocatorValidator {
	return &LocatorValidator{
		allowedSchemes: []string{"file", "http", "https", "azblob"},
		allowedHosts:   []string{}, // empty means all hosts allowed
	}
}

// NewLocatorValidatorWithOptions creates a validator with custom schemes and hosts
func NewLocatorValidatorWithOptions(schemes []string, hosts []string) *LocatorValidator {
	return &LocatorValidator{
		allowedSchemes: schemes,
		allowedHosts:   hosts,
	}
}

// Scheme returns the locator's scheme, "file" for plain paths.
func Scheme(locator string) string {
	i := strings.Index(locator, "://")
	if i <= 0 {
		return "file"
	}
	return strings.ToLower(locator[:i])
}

// ValidateLocator validates a plain path or a URL naming an image
func (v *LocatorValidator) ValidateLocator(locator string) error {
	if strings.TrimSpace(locator) == "" {
		return apperrors.NewValidationError("Image locator cannot be empty", nil)
	}

	scheme := Scheme(locator)
	if !v.isSchemeAllowed(scheme) {
		return apperrors.NewValidationError("Image locator scheme not allowed", nil).WithDetails(scheme)
	}
	if scheme == "file" {
		return nil
	}

	parsedURL, err := url.Parse(locator)
	if err != nil {
		return apperrors.NewValidationError("Invalid image URL format", err)
	}

	// For azblob the host is the container name.
	if parsedURL.Host == "" {
		return apperrors.NewValidationError("Image URL must have a valid host", nil)
	}

	if scheme == "azblob" && strings.Trim(parsedURL.Path, "/") == "" {
		return apperrors.NewValidationError("Blob URL must name a blob", nil)
	}

	if len(v.allowedHosts) > 0 && !v.isHostAllowed(parsedURL.Host) {
		return apperrors.NewValidationError("Image URL host not allowed", nil)
	}

	return nil
}

func (v *LocatorValidator) isSchemeAllowed(scheme string) bool {
	for _, allowed := range v.allowedSchemes {
		if scheme == allowed {
			return true
		}
	}
	return false
}

// isHostAllowed returns true if no host restrictions are set
func (v *LocatorValidator) isHostAllowed(host string) bool {
	if len(v.allowedHosts) == 0 {
		return true
	}
	for _, allowed := range v.allowedHosts {
		if host == allowed {
			return true
		}
	}
	return false
}
