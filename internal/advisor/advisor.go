// Package advisor runs the recommendation pipeline: it evaluates every
// catalog crop, keeps the candidates worth showing, attaches a farming
// calendar to each and ranks them.
package advisor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strconv"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/opensource-finance/cropadvisor/internal/calendar"
	"github.com/opensource-finance/cropadvisor/internal/domain"
	"github.com/opensource-finance/cropadvisor/internal/metrics"
	"github.com/opensource-finance/cropadvisor/internal/rules"
)

// Defaults applied at the request boundary.
const (
	DefaultLandSize = 1.0
	DefaultBudget   = 50000.0
)

// ErrCropNotFound is returned when a named crop is not in the catalog.
var ErrCropNotFound = errors.New("crop not found")

var tracer = otel.Tracer("cropadvisor-advisor")

// Advisor produces ranked crop recommendations.
type Advisor struct {
	catalog  domain.Catalog
	engine   *rules.Engine
	calendar *calendar.Generator
}

// New creates an advisor over a catalog.
func New(catalog domain.Catalog, engine *rules.Engine, gen *calendar.Generator) *Advisor {
	if gen == nil {
		gen = calendar.NewGenerator()
	}
	return &Advisor{
		catalog:  catalog,
		engine:   engine,
		calendar: gen,
	}
}

// Recommend evaluates the whole catalog against the farmer's constraints and
// returns at most MaxResults candidates, best first. Equal scores keep
// catalog order.
func (a *Advisor) Recommend(ctx context.Context, in *domain.RecommendInput) (*domain.RecommendResponse, error) {
	start := time.Now()

	ctx, span := tracer.Start(ctx, "advisor.Recommend")
	defer span.End()

	span.SetAttributes(
		attribute.String("request.season", in.Season),
		attribute.String("request.soil_type", in.SoilType),
		attribute.Float64("request.land_size", in.LandSize),
	)

	crops, err := a.catalog.ListCrops(ctx)
	if err != nil {
		metrics.Recommendations.WithLabelValues("error").Inc()
		span.RecordError(err)
		span.SetStatus(codes.Error, "catalog load failed")
		return nil, fmt.Errorf("failed to load catalog: %w", err)
	}

	req := rules.NewRequest(in)
	recs := make([]*domain.Recommendation, 0, len(crops))

	for _, crop := range crops {
		eval := a.engine.Evaluate(req, crop)
		metrics.CropsEvaluated.WithLabelValues(strconv.FormatBool(eval.Selectable)).Inc()

		include, err := a.engine.Include(eval)
		if err != nil {
			metrics.Recommendations.WithLabelValues("error").Inc()
			span.RecordError(err)
			span.SetStatus(codes.Error, "inclusion policy failed")
			return nil, fmt.Errorf("inclusion policy failed for %s: %w", crop.Name, err)
		}
		if !include {
			continue
		}

		recs = append(recs, &domain.Recommendation{
			Crop:          *crop,
			Evaluation:    *eval,
			ProfitForLand: rules.CalculateProfit(crop.YieldPerAcre, crop.MSP, crop.CostPerAcre, in.LandSize),
			Calendar:      a.calendar.Generate(crop, in.SowingDate),
		})
	}

	sort.SliceStable(recs, func(i, j int) bool {
		return recs[i].TotalScore > recs[j].TotalScore
	})

	if limit := a.engine.Config().MaxResults; limit > 0 && len(recs) > limit {
		recs = recs[:limit]
	}

	resp := &domain.RecommendResponse{
		Success:  true,
		ID:       uuid.New().String(),
		Crops:    recs,
		LandSize: in.LandSize,
	}

	span.SetAttributes(
		attribute.Int("catalog.size", len(crops)),
		attribute.Int("result.count", len(recs)),
	)
	metrics.Recommendations.WithLabelValues("ok").Inc()
	metrics.RecommendationDuration.Observe(time.Since(start).Seconds())

	slog.Debug("recommendation complete",
		"recommendation_id", resp.ID,
		"catalog_size", len(crops),
		"returned", len(recs),
		"duration_ms", time.Since(start).Milliseconds(),
	)

	return resp, nil
}

// Calendar builds the farming calendar for one catalog crop.
func (a *Advisor) Calendar(ctx context.Context, name, sowingDate string) ([]domain.CalendarEvent, error) {
	crop, err := a.Find(ctx, name)
	if err != nil {
		return nil, err
	}
	return a.calendar.Generate(crop, sowingDate), nil
}

// Find looks up a catalog crop by name, ignoring case.
func (a *Advisor) Find(ctx context.Context, name string) (*domain.Crop, error) {
	crops, err := a.catalog.ListCrops(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load catalog: %w", err)
	}

	key := (&domain.Crop{Name: name}).Key()
	for _, crop := range crops {
		if crop.Key() == key {
			return crop, nil
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrCropNotFound, name)
}
