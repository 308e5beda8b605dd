package resources

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spigell/resource-recommender/internal/ai"
	"github.com/spigell/resource-recommender/internal/airtable"
	"github.com/spigell/resource-recommender/internal/filtering"
	"github.com/spigell/resource-recommender/internal/logger"
	"github.com/spigell/resource-recommender/internal/metrics"
	"go.uber.org/zap"
)

var (
	// ErrRetrieval covers store failures and anything unexpected in the flow.
	ErrRetrieval = errors.New("retrieve resources")
	// ErrGeneration covers model call failures and unparsable model output.
	ErrGeneration = errors.New("generate recommendation")
)

// Stage names the step of the flow a request is in.
type Stage string

const (
	StageReceived     Stage = "received"
	StageFiltering    Stage = "filtering"
	StageQuerying     Stage = "querying"
	StageModelCalling Stage = "model_calling"
	StageResponding   Stage = "responding"
	StageFailed       Stage = "failed"
)

// Store reads rows from the tabular store.
type Store interface {
	Select(ctx context.Context, table string, params *airtable.SelectParams) (*airtable.Records, error)
}

type Config struct {
	Table         string
	EscapeFormula bool
}

// Result is the outcome of a successful Find.
type Result struct {
	Formula        string
	Resources      *airtable.Records
	Recommendation *ai.Recommendation
}

// Service runs the recommendation flow. It holds no per-request state and is
// safe for concurrent use.
type Service struct {
	store       Store
	recommender ai.Recommender
	table       string
	filters     *filtering.Builder
	logger      *zap.Logger
}

func New(store Store, recommender ai.Recommender, cfg Config, log *zap.Logger) *Service {
	log = logger.WithFields(log)

	table := strings.TrimSpace(cfg.Table)
	if table == "" {
		table = airtable.DefaultTable
	}

	return &Service{
		store:       store,
		recommender: recommender,
		table:       table,
		filters:     filtering.New(cfg.EscapeFormula, log),
		logger:      log,
	}
}

// Find queries the store for the sectors and asks the model to rank resources
// for them. The first failing stage ends the flow; the returned error wraps
// either ErrRetrieval or ErrGeneration.
func (s *Service) Find(ctx context.Context, sectors []string) (res *Result, err error) {
	log := logger.From(ctx, s.logger)
	stage := StageReceived

	defer func() {
		if r := recover(); r != nil {
			res = nil
			err = fmt.Errorf("%w: panic in %s stage: %v", ErrRetrieval, stage, r)
		}
		if err != nil {
			log.Debug("flow stage", zap.String("stage", string(StageFailed)), zap.String("failed_at", string(stage)))
		}
	}()

	enter := func(next Stage) {
		stage = next
		log.Debug("flow stage", zap.String("stage", string(stage)))
	}

	enter(StageFiltering)
	formula := s.filters.Build(filtering.NewSectors(sectors))
	log.Info("filter formula", zap.String("formula", formula))

	enter(StageQuerying)
	started := time.Now()
	records, err := s.store.Select(ctx, s.table, &airtable.SelectParams{FilterByFormula: formula})
	metrics.StageDuration.WithLabelValues(metrics.StageQuery).Observe(time.Since(started).Seconds())
	if err != nil {
		return nil, fmt.Errorf("%w: query table %q: %w", ErrRetrieval, s.table, err)
	}
	metrics.RecordsFetched.Observe(float64(records.Len()))
	log.Info("records fetched", zap.Int("count", records.Len()))

	// Prompting, the model call and parsing share one failure domain.
	enter(StageModelCalling)
	started = time.Now()
	recommendation, err := s.recommender.Recommend(ctx, sectors)
	metrics.StageDuration.WithLabelValues(metrics.StageGenerate).Observe(time.Since(started).Seconds())
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrGeneration, err)
	}

	enter(StageResponding)
	return &Result{
		Formula:        formula,
		Resources:      records,
		Recommendation: recommendation,
	}, nil
}
