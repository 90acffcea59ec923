package sales

import (
	"errors"
	"fmt"
)

var (
	// ErrStoreUnavailable marks a backing store connection or query failure.
	// It is the only fatal error class of a report run.
	ErrStoreUnavailable = errors.New("store unavailable")

	// ErrDuplicateLocale is returned when reference data maps one locale twice.
	ErrDuplicateLocale = errors.New("duplicate locale in reference config")
)

// StoreError wraps a driver error as ErrStoreUnavailable, keeping the driver error verbatim.
func StoreError(op string, err error) error {
	return fmt.Errorf("%s: %w: %w", op, ErrStoreUnavailable, err)
}

// WarningKind classifies non-fatal findings attached to a report.
type WarningKind string

const (
	// WarnMissingReferenceConfig: an aggregated locale has no reference entry.
	WarnMissingReferenceConfig WarningKind = "missing_reference_config"
)

// Warning is a recoverable data-integrity finding. The affected row is skipped.
type Warning struct {
	Kind    WarningKind `json:"kind" yaml:"kind"`
	Locale  string      `json:"locale,omitempty" yaml:"locale,omitempty"`
	Message string      `json:"message" yaml:"message"`
}

// MissingConfigWarning builds the warning emitted for an orphaned locale.
func MissingConfigWarning(locale string) Warning {
	return Warning{
		Kind:    WarnMissingReferenceConfig,
		Locale:  locale,
		Message: fmt.Sprintf("no website_config entry for locale %q; row skipped", locale),
	}
}
