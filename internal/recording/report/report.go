// Package report groups recordings into calendar buckets.
package report

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	commonerrors "github.com/AlibekovAA/recordkeeper/internal/common/errors"
	"github.com/AlibekovAA/recordkeeper/internal/common/validation"
	"github.com/AlibekovAA/recordkeeper/internal/observability/metrics"
	"github.com/AlibekovAA/recordkeeper/internal/recording/domain"
)

type Period string

const (
	Monthly Period = "monthly"
	Weekly  Period = "weekly"
)

var Periods = []Period{Monthly, Weekly}

var ErrInvalidPeriod = commonerrors.NewDomainError(
	"INVALID_PERIOD",
	commonerrors.CategoryValidation,
	http.StatusBadRequest,
	"period must be monthly or weekly",
)

type periodQuery struct {
	Period string `query:"period" validate:"required,oneof=monthly weekly"`
}

func ParsePeriod(value string) (Period, error) {
	if err := validation.Struct(periodQuery{Period: value}); err != nil {
		return "", ErrInvalidPeriod.WithCause(err)
	}
	return Period(value), nil
}

// Groups maps a bucket key to the recordings in it, in store order.
type Groups map[string][]domain.Recording

// Key returns the bucket for t: YYYY-MM for monthly, the Monday of the ISO
// week as YYYY-MM-DD for weekly. Both are computed in UTC.
func Key(period Period, t time.Time) string {
	t = t.UTC()
	if period == Weekly {
		offset := (int(t.Weekday()) + 6) % 7
		monday := time.Date(t.Year(), t.Month(), t.Day()-offset, 0, 0, 0, 0, time.UTC)
		return monday.Format("2006-01-02")
	}
	return t.Format("2006-01")
}

// Group buckets records by period. Undated records are skipped on purpose
// instead of landing in whatever period is current, so a report over the
// same data does not move with the clock.
func Group(period Period, records []domain.Recording) Groups {
	groups := make(Groups)
	for _, rec := range records {
		if rec.Date == nil {
			continue
		}
		key := Key(period, *rec.Date)
		groups[key] = append(groups[key], rec)
	}
	return groups
}

// Source supplies the records a report is built from.
type Source interface {
	All(ctx context.Context) ([]domain.Recording, error)
}

// Renderer produces the JSON body of a report.
type Renderer interface {
	Render(ctx context.Context, period Period) ([]byte, error)
}

type Builder struct {
	source Source
}

func NewBuilder(source Source) *Builder {
	return &Builder{source: source}
}

func (b *Builder) Build(ctx context.Context, period Period) (Groups, error) {
	records, err := b.source.All(ctx)
	if err != nil {
		return nil, err
	}

	metrics.ReportsGenerated.WithLabelValues(string(period)).Inc()
	metrics.ReportRecordsScanned.Observe(float64(len(records)))

	return Group(period, records), nil
}

func (b *Builder) Render(ctx context.Context, period Period) ([]byte, error) {
	groups, err := b.Build(ctx, period)
	if err != nil {
		return nil, err
	}
	return json.Marshal(groups)
}
