package service

import (
	"fmt"
	"math"
	"strconv"
	"time"

	"github.com/AlibekovAA/recordkeeper/internal/recording/domain"
)

const dateOnlyLayout = "2006-01-02"

// ParseDate accepts RFC 3339 timestamps and plain calendar dates. Plain
// dates are midnight UTC.
func ParseDate(value string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339Nano, value); err == nil {
		return t, nil
	}
	if t, err := time.Parse(dateOnlyLayout, value); err == nil {
		return t, nil
	}
	return time.Time{}, ErrInvalidDate.WithCause(fmt.Errorf("cannot parse %q", value))
}

// fromBody splits a decoded JSON object into the known columns and Extra.
func fromBody(body map[string]any) (domain.Recording, error) {
	var rec domain.Recording
	var err error

	if rec.Owner, err = stringField(body, "owner"); err != nil {
		return domain.Recording{}, err
	}
	if rec.Type, err = stringField(body, "type"); err != nil {
		return domain.Recording{}, err
	}
	if rec.Description, err = stringField(body, "description"); err != nil {
		return domain.Recording{}, err
	}
	if rec.Date, err = dateField(body, "date"); err != nil {
		return domain.Recording{}, err
	}

	rec.Extra = make(map[string]any)
	for k, v := range body {
		if _, reserved := domain.ReservedFields[k]; !reserved {
			rec.Extra[k] = v
		}
	}

	return rec, nil
}

// stringField reads a text column. Numbers and booleans are stored in their
// JSON spelling; objects and arrays are rejected.
func stringField(body map[string]any, key string) (string, error) {
	switch v := body[key].(type) {
	case nil:
		return "", nil
	case string:
		return v, nil
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64), nil
	case bool:
		return strconv.FormatBool(v), nil
	default:
		return "", ErrInvalidRecord.WithCause(fmt.Errorf("%s must be a string", key))
	}
}

// dateField accepts a date string or a number of Unix milliseconds. Dates
// are cut to microseconds, the precision the store keeps.
func dateField(body map[string]any, key string) (*time.Time, error) {
	switch v := body[key].(type) {
	case nil:
		return nil, nil
	case string:
		if v == "" {
			return nil, nil
		}
		t, err := ParseDate(v)
		if err != nil {
			return nil, err
		}
		t = t.Truncate(time.Microsecond)
		return &t, nil
	case float64:
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return nil, ErrInvalidDate
		}
		t := time.UnixMilli(int64(v)).UTC()
		return &t, nil
	default:
		return nil, ErrInvalidDate.WithCause(fmt.Errorf("%s has type %T", key, v))
	}
}
