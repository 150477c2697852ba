package advisor

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/opensource-finance/cropadvisor/internal/calendar"
	"github.com/opensource-finance/cropadvisor/internal/domain"
	"github.com/opensource-finance/cropadvisor/internal/rules"
)

type staticCatalog struct {
	crops []*domain.Crop
	err   error
}

func (c *staticCatalog) ListCrops(ctx context.Context) ([]*domain.Crop, error) {
	return c.crops, c.err
}

// kharifCrop scores 80 for the base request when msp is 2000:
// season 20, soil 20, exact water 30, profit 10.
func kharifCrop(name string, msp float64) *domain.Crop {
	return &domain.Crop{
		Name:         name,
		Seasons:      []string{"Kharif"},
		SoilTypes:    []string{"loamy"},
		WaterNeed:    "high",
		TempRange:    [2]float64{20, 35},
		DurationDays: 100,
		YieldPerAcre: 20,
		MSP:          msp,
		CostPerAcre:  20000,
	}
}

// badCrop fails season and soil.
func badCrop(name string) *domain.Crop {
	return &domain.Crop{
		Name:         name,
		Seasons:      []string{"Rabi"},
		SoilTypes:    []string{"sandy"},
		WaterNeed:    "low",
		TempRange:    [2]float64{10, 25},
		DurationDays: 90,
		YieldPerAcre: 10,
		MSP:          2000,
		CostPerAcre:  10000,
	}
}

func baseInput() *domain.RecommendInput {
	return &domain.RecommendInput{
		LandSize:   2,
		SoilType:   "loamy",
		WaterAvail: "high",
		Season:     "kharif",
		Budget:     DefaultBudget,
	}
}

func newTestAdvisor(t *testing.T, crops ...*domain.Crop) *Advisor {
	t.Helper()

	engine, err := rules.NewEngine(domain.DefaultScoring())
	if err != nil {
		t.Fatalf("failed to create engine: %v", err)
	}

	gen := &calendar.Generator{Now: func() time.Time {
		return time.Date(2024, 6, 1, 9, 30, 0, 0, time.UTC)
	}}

	return New(&staticCatalog{crops: crops}, engine, gen)
}

func names(recs []*domain.Recommendation) []string {
	out := make([]string, len(recs))
	for i, r := range recs {
		out[i] = r.Name
	}
	return out
}

func TestRecommend(t *testing.T) {
	ctx := context.Background()

	t.Run("RanksByScore", func(t *testing.T) {
		adv := newTestAdvisor(t,
			kharifCrop("Low", 1500),
			kharifCrop("High", 3000),
			kharifCrop("Mid", 2000),
		)

		resp, err := adv.Recommend(ctx, baseInput())
		if err != nil {
			t.Fatalf("Recommend failed: %v", err)
		}

		got := names(resp.Crops)
		want := []string{"High", "Mid", "Low"}
		if fmt.Sprint(got) != fmt.Sprint(want) {
			t.Errorf("expected %v, got %v", want, got)
		}

		for i := 1; i < len(resp.Crops); i++ {
			if resp.Crops[i-1].TotalScore < resp.Crops[i].TotalScore {
				t.Errorf("scores not descending at %d", i)
			}
		}

		if !resp.Success || resp.ID == "" {
			t.Errorf("expected success with an ID, got %+v", resp)
		}
		if resp.LandSize != 2 {
			t.Errorf("expected land size echo 2, got %v", resp.LandSize)
		}
	})

	t.Run("TruncatesAndKeepsCatalogOrderOnTies", func(t *testing.T) {
		var crops []*domain.Crop
		for i := 0; i < 20; i++ {
			crops = append(crops, kharifCrop(fmt.Sprintf("Crop%02d", i), 2000))
		}
		adv := newTestAdvisor(t, crops...)

		resp, err := adv.Recommend(ctx, baseInput())
		if err != nil {
			t.Fatalf("Recommend failed: %v", err)
		}

		if len(resp.Crops) != 12 {
			t.Fatalf("expected 12 crops, got %d", len(resp.Crops))
		}
		for i, rec := range resp.Crops {
			if want := fmt.Sprintf("Crop%02d", i); rec.Name != want {
				t.Errorf("position %d: expected %s, got %s", i, want, rec.Name)
			}
		}
	})

	t.Run("ExcludesLowScores", func(t *testing.T) {
		adv := newTestAdvisor(t, kharifCrop("Rice", 2000), badCrop("Barley"))

		resp, err := adv.Recommend(ctx, baseInput())
		if err != nil {
			t.Fatalf("Recommend failed: %v", err)
		}

		if got := names(resp.Crops); len(got) != 1 || got[0] != "Rice" {
			t.Errorf("expected only Rice, got %v", got)
		}
	})

	t.Run("PreferredAlwaysIncluded", func(t *testing.T) {
		adv := newTestAdvisor(t, kharifCrop("Rice", 2000), badCrop("Barley"))

		in := baseInput()
		in.PreferredCrops = []string{"barley"}

		resp, err := adv.Recommend(ctx, in)
		if err != nil {
			t.Fatalf("Recommend failed: %v", err)
		}

		var barley *domain.Recommendation
		for _, rec := range resp.Crops {
			if rec.Name == "Barley" {
				barley = rec
			}
		}
		if barley == nil {
			t.Fatal("preferred crop missing from results")
		}
		if barley.Selectable {
			t.Error("preferred crop should stay unselectable")
		}
		if !barley.Preferred {
			t.Error("expected preferred flag")
		}
		if len(barley.UnselectableReasons) != 2 {
			t.Errorf("expected 2 reasons, got %v", barley.UnselectableReasons)
		}
	})

	t.Run("AttachesCalendarAndProfit", func(t *testing.T) {
		adv := newTestAdvisor(t, kharifCrop("Rice", 2000))

		in := baseInput()
		in.SowingDate = "2024-07-01"

		resp, err := adv.Recommend(ctx, in)
		if err != nil {
			t.Fatalf("Recommend failed: %v", err)
		}

		rec := resp.Crops[0]
		if rec.ProfitPerAcre != 20000 {
			t.Errorf("expected profit per acre 20000, got %v", rec.ProfitPerAcre)
		}
		if rec.ProfitForLand != 40000 {
			t.Errorf("expected profit for 2 acres 40000, got %v", rec.ProfitForLand)
		}
		if len(rec.Calendar) == 0 {
			t.Fatal("expected calendar events")
		}
		if rec.Calendar[0].Date != "2024-07-06" {
			t.Errorf("expected first event on 2024-07-06, got %s", rec.Calendar[0].Date)
		}
		if len(rec.Contributions) != len(domain.RuleOrder) {
			t.Errorf("expected %d contributions, got %d", len(domain.RuleOrder), len(rec.Contributions))
		}
	})

	t.Run("EmptyCatalog", func(t *testing.T) {
		adv := newTestAdvisor(t)

		resp, err := adv.Recommend(ctx, baseInput())
		if err != nil {
			t.Fatalf("Recommend failed: %v", err)
		}
		if resp.Crops == nil || len(resp.Crops) != 0 {
			t.Errorf("expected empty non-nil list, got %v", resp.Crops)
		}
	})

	t.Run("CatalogError", func(t *testing.T) {
		engine, _ := rules.NewEngine(domain.DefaultScoring())
		adv := New(&staticCatalog{err: errors.New("disk on fire")}, engine, nil)

		if _, err := adv.Recommend(ctx, baseInput()); err == nil {
			t.Error("expected catalog error")
		}
	})
}

func TestRecommendIsIdempotent(t *testing.T) {
	adv := newTestAdvisor(t, kharifCrop("Rice", 2000), kharifCrop("Maize", 2500), badCrop("Barley"))
	ctx := context.Background()

	first, err := adv.Recommend(ctx, baseInput())
	if err != nil {
		t.Fatalf("Recommend failed: %v", err)
	}
	second, err := adv.Recommend(ctx, baseInput())
	if err != nil {
		t.Fatalf("Recommend failed: %v", err)
	}

	if len(first.Crops) != len(second.Crops) {
		t.Fatalf("result sizes differ: %d vs %d", len(first.Crops), len(second.Crops))
	}
	for i := range first.Crops {
		a, b := first.Crops[i], second.Crops[i]
		if a.Name != b.Name || a.TotalScore != b.TotalScore || len(a.Calendar) != len(b.Calendar) {
			t.Errorf("position %d differs: %s/%v vs %s/%v", i, a.Name, a.TotalScore, b.Name, b.TotalScore)
		}
		for j := range a.Calendar {
			if a.Calendar[j] != b.Calendar[j] {
				t.Errorf("calendar event %d of %s differs", j, a.Name)
			}
		}
	}
}

func TestRecommendDoesNotMutateCatalog(t *testing.T) {
	rice := kharifCrop("Rice", 2000)
	adv := newTestAdvisor(t, rice)

	in := baseInput()
	in.PreferredCrops = []string{"Rice"}
	if _, err := adv.Recommend(context.Background(), in); err != nil {
		t.Fatalf("Recommend failed: %v", err)
	}

	if rice.Name != "Rice" || rice.MSP != 2000 || len(rice.Seasons) != 1 {
		t.Errorf("catalog record was modified: %+v", rice)
	}
}

func TestCalendarAndFind(t *testing.T) {
	adv := newTestAdvisor(t, kharifCrop("Rice", 2000))
	ctx := context.Background()

	events, err := adv.Calendar(ctx, "RICE", "2024-01-01")
	if err != nil {
		t.Fatalf("Calendar failed: %v", err)
	}
	// duration 100, high water: irrigation at 5,15,...,95 and fertilization at 15,45
	if len(events) != 12 {
		t.Errorf("expected 12 events, got %d", len(events))
	}

	_, err = adv.Find(ctx, "Quinoa")
	if !errors.Is(err, ErrCropNotFound) {
		t.Errorf("expected ErrCropNotFound, got %v", err)
	}
}
