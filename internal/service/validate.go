package service

import (
	"strings"

	"github.com/samber/lo"
	"github.com/shopspring/decimal"

	"github.com/iliyamo/fieldops/internal/model"
)

func required(field, v string) (string, error) {
	v = strings.TrimSpace(v)
	if v == "" {
		return "", invalid("%s is required", field)
	}
	return v, nil
}

// enum parses s with parse, naming the allowed literals on failure.
func enum[T ~string](field, s string, parse func(string) (T, bool), allowed []T) (T, error) {
	v, ok := parse(s)
	if !ok {
		names := lo.Map(allowed, func(a T, _ int) string { return string(a) })
		return v, invalid("invalid %s %q (allowed: %s)", field, s, strings.Join(names, ", "))
	}
	return v, nil
}

// enumOr is enum with a default for empty input.
func enumOr[T ~string](field, s string, def T, parse func(string) (T, bool), allowed []T) (T, error) {
	if strings.TrimSpace(s) == "" {
		return def, nil
	}
	return enum(field, s, parse, allowed)
}

func date(field, s string) (model.Date, error) {
	if strings.TrimSpace(s) == "" {
		return "", invalid("%s is required", field)
	}
	d, err := model.ParseDate(s)
	if err != nil {
		return "", invalid("%s: %v", field, err)
	}
	return d, nil
}

// optDate parses s when non-nil and non-empty.  An explicit empty string
// clears the value.
func optDate(field string, s *string) (*model.Date, error) {
	if s == nil || strings.TrimSpace(*s) == "" {
		return nil, nil
	}
	d, err := model.ParseDate(*s)
	if err != nil {
		return nil, invalid("%s: %v", field, err)
	}
	return &d, nil
}

func nonNegative(field string, d decimal.Decimal) error {
	if d.IsNegative() {
		return invalid("%s must not be negative", field)
	}
	return nil
}

func positive(field string, n int64) error {
	if n <= 0 {
		return invalid("%s must be positive", field)
	}
	return nil
}

// set applies *p to *dst when p is non-nil.  Used by PATCH handlers.
func set[T any](dst *T, p *T) {
	if p != nil {
		*dst = *p
	}
}

// setTrim is set for strings, trimming whitespace.
func setTrim(dst *string, p *string) {
	if p != nil {
		*dst = strings.TrimSpace(*p)
	}
}

func ptr[T any](v T) *T { return &v }
