// Package parser converts heterogeneous raw upstream payloads into
// typed records. Upstream payloads are not under this system's control,
// so the package offers two contracts: Parse fails fast on the first
// bad item, ParseSafe isolates failures per item so one corrupt event
// never discards an otherwise valid batch.
package parser

import (
	"errors"
	"fmt"
	"reflect"
	"time"

	"github.com/go-viper/mapstructure/v2"
)

// Validator is implemented by record types that carry field-level
// invariants beyond what decoding enforces.
type Validator interface {
	Validate() error
}

// FieldError names a single field that failed validation.
type FieldError struct {
	Field  string
	Reason string
}

func (e *FieldError) Error() string {
	return e.Field + ": " + e.Reason
}

// ValidationError reports the first invalid item of a fail-fast parse.
type ValidationError struct {
	Index  int
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("item %d: field %s: %s", e.Index, e.Field, e.Reason)
	}
	return fmt.Sprintf("item %d: %s", e.Index, e.Reason)
}

// Failure records one skipped item of a safe parse, alongside its
// original index and raw payload.
type Failure struct {
	Index  int
	Raw    map[string]any
	Reason string
}

// Parse decodes and validates every item, aborting on the first
// invalid one with a ValidationError naming its index and field.
func Parse[T any](items []map[string]any) ([]T, error) {
	out := make([]T, 0, len(items))
	for i, raw := range items {
		v, err := decodeItem[T](raw)
		if err != nil {
			return nil, newValidationError(i, err)
		}
		out = append(out, v)
	}
	return out, nil
}

// ParseSafe validates each item independently. Invalid items are
// collected as Failures and excluded from the result, which preserves
// the input order of the valid items. With skipInvalid false any
// failure aborts the whole call with an aggregate error; the collected
// failures are still returned for diagnostics.
func ParseSafe[T any](items []map[string]any, skipInvalid bool) ([]T, []Failure, error) {
	valid := make([]T, 0, len(items))
	var failures []Failure

	for i, raw := range items {
		v, err := decodeItem[T](raw)
		if err != nil {
			failures = append(failures, Failure{Index: i, Raw: raw, Reason: err.Error()})
			continue
		}
		valid = append(valid, v)
	}

	if len(failures) > 0 && !skipInvalid {
		return nil, failures, fmt.Errorf(
			"%d of %d items failed validation, first at index %d: %s",
			len(failures), len(items), failures[0].Index, failures[0].Reason,
		)
	}
	return valid, failures, nil
}

func decodeItem[T any](raw map[string]any) (T, error) {
	var v T
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           &v,
		WeaklyTypedInput: true,
		DecodeHook:       stringToTimeHook(),
	})
	if err != nil {
		return v, err
	}
	if err := dec.Decode(raw); err != nil {
		return v, err
	}
	if validator, ok := any(v).(Validator); ok {
		if err := validator.Validate(); err != nil {
			return v, err
		}
	}
	return v, nil
}

func newValidationError(index int, err error) *ValidationError {
	var fieldErr *FieldError
	if errors.As(err, &fieldErr) {
		return &ValidationError{Index: index, Field: fieldErr.Field, Reason: fieldErr.Reason}
	}
	return &ValidationError{Index: index, Reason: err.Error()}
}

// stringToTimeHook parses the timestamp shapes the upstream is known
// to emit: RFC 3339, zone-less ISO timestamps, and bare dates.
func stringToTimeHook() mapstructure.DecodeHookFunc {
	layouts := []string{time.RFC3339, "2006-01-02T15:04:05", "2006-01-02"}
	timeType := reflect.TypeOf(time.Time{})

	return func(from reflect.Type, to reflect.Type, data any) (any, error) {
		if from.Kind() != reflect.String || to != timeType {
			return data, nil
		}
		s := data.(string)
		for _, layout := range layouts {
			if ts, err := time.Parse(layout, s); err == nil {
				return ts, nil
			}
		}
		return nil, fmt.Errorf("unrecognized timestamp %q", s)
	}
}
