package service

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/AlibekovAA/recordkeeper/internal/common/clock"
	"github.com/AlibekovAA/recordkeeper/internal/common/constants"
	commoncrypto "github.com/AlibekovAA/recordkeeper/internal/common/crypto"
	"github.com/AlibekovAA/recordkeeper/internal/common/db"
	commonerrors "github.com/AlibekovAA/recordkeeper/internal/common/errors"
	"github.com/AlibekovAA/recordkeeper/internal/common/logger"
	"github.com/AlibekovAA/recordkeeper/internal/common/resilience"
	"github.com/AlibekovAA/recordkeeper/internal/common/validation"
	"github.com/AlibekovAA/recordkeeper/internal/observability/metrics"
	"github.com/AlibekovAA/recordkeeper/internal/recording/domain"
	"github.com/AlibekovAA/recordkeeper/internal/recording/repository"
)

// Publisher receives every recording after it is stored.
type Publisher interface {
	Publish(rec domain.Recording)
}

// CacheInvalidator drops derived data that a new recording makes stale.
type CacheInvalidator interface {
	Invalidate(ctx context.Context) error
}

type Deps struct {
	Repo        repository.Repository
	IDGenerator commoncrypto.IDGenerator
	Clock       clock.Clock
	Log         *logger.Logger
	Publisher   Publisher
	Cache       CacheInvalidator
}

type Config struct {
	CircuitBreakerThreshold int32
	CircuitBreakerTimeout   time.Duration
	CircuitBreakerReset     time.Duration
}

type RecordingService struct {
	repo        repository.Repository
	idGenerator commoncrypto.IDGenerator
	clock       clock.Clock
	log         *logger.Logger
	publisher   Publisher
	cache       CacheInvalidator
	breaker     *resilience.CircuitBreaker
	retry       db.RetryConfig
}

func NewRecordingService(deps Deps, cfg Config) *RecordingService {
	clk := deps.Clock
	if clk == nil {
		clk = clock.NewRealClock()
	}

	return &RecordingService{
		repo:        deps.Repo,
		idGenerator: deps.IDGenerator,
		clock:       clk,
		log:         deps.Log,
		publisher:   deps.Publisher,
		cache:       deps.Cache,
		breaker: resilience.NewCircuitBreaker(resilience.CircuitBreakerConfig{
			Threshold:  cfg.CircuitBreakerThreshold,
			Timeout:    cfg.CircuitBreakerTimeout,
			ResetAfter: cfg.CircuitBreakerReset,
			Name:       "recordings",
			Logger:     deps.Log,
			IsFailure:  isStoreFailure,
			Now:        clk.Now,
		}),
		retry: db.DefaultRetryConfig,
	}
}

// Create stores the body as a new recording. owner falls back to userID
// when the body leaves it out.
func (s *RecordingService) Create(ctx context.Context, userID string, body map[string]any) (domain.Recording, error) {
	rec, err := fromBody(body)
	if err != nil {
		s.log.WithFields(ctx, logger.Fields{
			"user_id": userID,
			"action":  "recording_invalid",
		}).Warnf("create recording rejected: %v", err)
		return domain.Recording{}, err
	}

	if rec.Owner == "" {
		rec.Owner = userID
	}

	id, err := s.idGenerator.NewID()
	if err != nil {
		return domain.Recording{}, commonerrors.ErrInternalError.WithCause(err)
	}
	rec.ID = id
	rec.CreatedAt = s.clock.Now().UTC()

	var stored domain.Recording
	err = s.withStore(ctx, "insert recording", func(ctx context.Context) error {
		var err error
		stored, err = s.repo.Insert(ctx, rec)
		return err
	})
	if err != nil {
		s.log.WithFields(ctx, logger.Fields{
			"user_id": userID,
			"action":  "recording_create_failed",
		}).Errorf("create recording failed: %v", err)
		return domain.Recording{}, err
	}

	metrics.RecordingsCreated.Inc()

	if s.cache != nil {
		if err := s.cache.Invalidate(ctx); err != nil {
			s.log.WithFields(ctx, logger.Fields{
				"recording_id": stored.ID,
				"action":       "report_cache_invalidate_failed",
			}).Warnf("report cache invalidation failed: %v", err)
		}
	}
	if s.publisher != nil {
		s.publisher.Publish(stored)
	}

	s.log.WithFields(ctx, logger.Fields{
		"user_id":      userID,
		"recording_id": stored.ID,
		"action":       "recording_created",
	}).Info("recording created")

	return stored, nil
}

// maxPage keeps (page-1)*limit inside int for any accepted limit.
const maxPage = math.MaxInt / constants.MaxPageLimit

type ListQuery struct {
	StartDate string
	EndDate   string
	Page      int `json:"page" validate:"gte=1"`
	Limit     int `json:"limit" validate:"gte=1,lte=100"`
}

func DefaultListQuery() ListQuery {
	return ListQuery{Page: constants.DefaultPage, Limit: constants.DefaultPageLimit}
}

type ListResult struct {
	Recordings []domain.Recording `json:"recordings"`
	Total      int64              `json:"total"`
}

// List returns one page in insertion order. The date range applies only when
// both bounds are present, and Total counts the filtered set.
func (s *RecordingService) List(ctx context.Context, q ListQuery) (ListResult, error) {
	if err := validation.Struct(q); err != nil {
		return ListResult{}, ErrInvalidPagination.WithCause(err)
	}
	if q.Page > maxPage {
		return ListResult{}, ErrInvalidPagination.WithCause(fmt.Errorf("page %d is out of range", q.Page))
	}

	filter, err := buildFilter(q.StartDate, q.EndDate)
	if err != nil {
		return ListResult{}, err
	}

	skip := (q.Page - 1) * q.Limit

	var result ListResult
	err = s.withStore(ctx, "list recordings", func(ctx context.Context) error {
		recs, err := s.repo.List(ctx, filter, skip, q.Limit)
		if err != nil {
			return err
		}
		total, err := s.repo.Count(ctx, filter)
		if err != nil {
			return err
		}
		result = ListResult{Recordings: recs, Total: total}
		return nil
	})
	if err != nil {
		s.log.WithFields(ctx, logger.Fields{
			"action": "recording_list_failed",
		}).Errorf("list recordings failed: %v", err)
		return ListResult{}, err
	}

	if result.Recordings == nil {
		result.Recordings = []domain.Recording{}
	}
	return result, nil
}

// All loads the full store. It is the source the report builder reads from.
func (s *RecordingService) All(ctx context.Context) ([]domain.Recording, error) {
	var recs []domain.Recording
	err := s.withStore(ctx, "scan all recordings", func(ctx context.Context) error {
		var err error
		recs, err = s.repo.All(ctx)
		return err
	})
	return recs, err
}

func buildFilter(startDate, endDate string) (domain.Filter, error) {
	if startDate == "" || endDate == "" {
		return domain.Filter{}, nil
	}

	from, err := ParseDate(startDate)
	if err != nil {
		return domain.Filter{}, err
	}
	to, err := ParseDate(endDate)
	if err != nil {
		return domain.Filter{}, err
	}
	return domain.Filter{From: &from, To: &to}, nil
}

func (s *RecordingService) withStore(ctx context.Context, operation string, fn func(context.Context) error) error {
	err := s.breaker.Call(ctx, func(ctx context.Context) error {
		return db.RetryWithBackoff(ctx, s.log, operation, s.retry, func() error {
			return fn(ctx)
		})
	})
	return handleCircuitBreakerError(err)
}
