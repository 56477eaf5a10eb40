package config

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/mvp-joe/typedsql/internal/dialect"
)

var (
	// ErrInvalidDialect indicates an unknown dialect or a malformed affix
	ErrInvalidDialect = errors.New("invalid dialect")

	// ErrInvalidPolicy indicates an unknown generation policy
	ErrInvalidPolicy = errors.New("invalid generation policy")

	// ErrInvalidPaging indicates negative paging bounds
	ErrInvalidPaging = errors.New("invalid paging bounds")

	// ErrInvalidCache indicates a non-positive cache capacity
	ErrInvalidCache = errors.New("invalid cache settings")

	// ErrInvalidDataSource indicates a data source without prefix or DSN, or a repeated prefix
	ErrInvalidDataSource = errors.New("invalid data source")
)

// Validate checks that the configuration is valid and complete.
func Validate(cfg *Config) error {
	var errs []error

	if err := validateDialect(&cfg.Dialect); err != nil {
		errs = append(errs, err)
	}

	if err := validateSources(cfg.Database.Sources); err != nil {
		errs = append(errs, err)
	}

	if err := validatePaging(&cfg.Paging); err != nil {
		errs = append(errs, err)
	}

	if err := validateGeneration(&cfg.Generation); err != nil {
		errs = append(errs, err)
	}

	if cfg.Cache.Capacity <= 0 {
		errs = append(errs, fmt.Errorf("%w: capacity must be positive, got %d", ErrInvalidCache, cfg.Cache.Capacity))
	}

	if len(errs) > 0 {
		return joinErrors(errs)
	}

	return nil
}

func validateDialect(cfg *DialectConfig) error {
	var errs []error

	names := dialect.Default().Names()
	if !slices.Contains(names, strings.ToLower(cfg.Name)) {
		errs = append(errs, fmt.Errorf("%w: must be one of %s, got '%s'", ErrInvalidDialect, strings.Join(names, ", "), cfg.Name))
	}

	if _, err := dialect.CompileAffixes(cfg.Affixes); err != nil {
		errs = append(errs, fmt.Errorf("%w: %v", ErrInvalidDialect, err))
	}

	if len(errs) > 0 {
		return joinErrors(errs)
	}

	return nil
}

func validateSources(sources []DataSourceConfig) error {
	var errs []error

	seen := make(map[string]bool, len(sources))
	for i, src := range sources {
		switch {
		case src.Prefix == "":
			errs = append(errs, fmt.Errorf("%w: sources[%d] needs a prefix, use database.dsn for the fallback", ErrInvalidDataSource, i))
		case seen[src.Prefix]:
			errs = append(errs, fmt.Errorf("%w: prefix '%s' is configured twice", ErrInvalidDataSource, src.Prefix))
		}
		seen[src.Prefix] = true
		if src.DSN == "" {
			errs = append(errs, fmt.Errorf("%w: sources[%d] needs a dsn", ErrInvalidDataSource, i))
		}
	}

	if len(errs) > 0 {
		return joinErrors(errs)
	}

	return nil
}

func validatePaging(cfg *PagingConfig) error {
	var errs []error

	if cfg.MaxLimit < 0 {
		errs = append(errs, fmt.Errorf("%w: max_limit cannot be negative, got %d", ErrInvalidPaging, cfg.MaxLimit))
	}

	if cfg.MaxOffset < 0 {
		errs = append(errs, fmt.Errorf("%w: max_offset cannot be negative, got %d", ErrInvalidPaging, cfg.MaxOffset))
	}

	if len(errs) > 0 {
		return joinErrors(errs)
	}

	return nil
}

func validateGeneration(cfg *GenerationConfig) error {
	var errs []error

	policies := []struct {
		key   string
		value string
		valid []string
	}{
		{"merge_generated", cfg.MergeGenerated, []string{"exclude", "include"}},
		{"toggle_policy", cfg.TogglePolicy, []string{"skip", "invert"}},
		{"default_widening", cfg.DefaultWidening, []string{"equals", "off"}},
	}
	for _, p := range policies {
		if !slices.Contains(p.valid, strings.ToLower(p.value)) {
			errs = append(errs, fmt.Errorf("%w: %s must be '%s', got '%s'", ErrInvalidPolicy, p.key, strings.Join(p.valid, "' or '"), p.value))
		}
	}

	if len(errs) > 0 {
		return joinErrors(errs)
	}

	return nil
}

// joinErrors combines multiple errors into one that still matches each of
// them with errors.Is.
func joinErrors(errs []error) error {
	if len(errs) == 0 {
		return nil
	}

	if len(errs) == 1 {
		return errs[0]
	}

	var msgs []string
	for _, err := range errs {
		msgs = append(msgs, err.Error())
	}

	return &joinedError{msg: "validation failed:\n  - " + strings.Join(msgs, "\n  - "), errs: errs}
}

type joinedError struct {
	msg  string
	errs []error
}

func (e *joinedError) Error() string   { return e.msg }
func (e *joinedError) Unwrap() []error { return e.errs }
