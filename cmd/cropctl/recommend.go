package main

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/goccy/go-json"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/opensource-finance/cropadvisor/internal/advisor"
	"github.com/opensource-finance/cropadvisor/internal/domain"
	"github.com/opensource-finance/cropadvisor/internal/validation"
)

//nolint:gochecknoglobals // Cobra boilerplate
var recommendFlags struct {
	soil        string
	water       string
	season      string
	budget      float64
	land        float64
	prefer      []string
	sowingDate  string
	temperature string
	calendar    bool
}

//nolint:gochecknoglobals // Cobra boilerplate
var recommendCmd = &cobra.Command{
	Use:   "recommend",
	Short: "Rank catalog crops for a field",
	Long: `Evaluates every catalog crop against the field conditions and prints the
ranked candidates with their score, profit and exclusion reasons.

Examples:
  # Kharif season on clay soil with plenty of water
  cropctl recommend --soil clay --water high --season kharif

  # Two acres, small budget, prefer wheat, known temperature
  cropctl recommend --soil loamy --water medium --season rabi \
    --land 2 --budget 20000 --prefer wheat --temperature 18

  # Full response including calendars
  cropctl recommend --soil loamy --season kharif --sowing-date 2025-06-20 --json`,
	RunE: runRecommend,
}

//nolint:gochecknoinits // Cobra boilerplate
func init() {
	rootCmd.AddCommand(recommendCmd)

	f := recommendCmd.Flags()
	f.StringVar(&recommendFlags.soil, "soil", "", "Soil type of the field (e.g. clay, loamy, sandy)")
	f.StringVar(&recommendFlags.water, "water", "", "Water availability: low, medium or high")
	f.StringVar(&recommendFlags.season, "season", "", "Season: kharif, rabi or zaid")
	f.Float64Var(&recommendFlags.budget, "budget", advisor.DefaultBudget, "Total budget for the field")
	f.Float64Var(&recommendFlags.land, "land", advisor.DefaultLandSize, "Land size in acres")
	f.StringSliceVar(&recommendFlags.prefer, "prefer", nil, "Preferred crops (repeatable or comma separated)")
	f.StringVar(&recommendFlags.sowingDate, "sowing-date", "", "Planned sowing date (YYYY-MM-DD)")
	f.StringVar(&recommendFlags.temperature, "temperature", "", "Current temperature in Celsius")
	f.BoolVar(&recommendFlags.calendar, "calendar", false, "Print the calendar of the top crop")
}

func runRecommend(cmd *cobra.Command, args []string) (err error) {
	ctx := context.Background()

	in := &domain.RecommendInput{
		LandSize:       recommendFlags.land,
		SoilType:       recommendFlags.soil,
		WaterAvail:     recommendFlags.water,
		Season:         recommendFlags.season,
		Budget:         recommendFlags.budget,
		PreferredCrops: recommendFlags.prefer,
		SowingDate:     recommendFlags.sowingDate,
	}

	if t := strings.TrimSpace(recommendFlags.temperature); t != "" {
		var value float64
		value, err = strconv.ParseFloat(t, 64)
		if err != nil {
			err = errors.Wrapf(err, "invalid temperature %q", t)
			return err
		}
		in.Temperature = &value
	}

	err = validation.ValidateStruct(in)
	if err != nil {
		err = errors.Wrap(err, "invalid input")
		return err
	}

	var cfg *domain.Config
	cfg, err = loadConfig()
	if err != nil {
		return err
	}

	var adv *advisor.Advisor
	adv, err = newAdvisor(cfg)
	if err != nil {
		return err
	}

	var resp *domain.RecommendResponse
	resp, err = adv.Recommend(ctx, in)
	if err != nil {
		err = errors.Wrap(err, "recommendation failed")
		return err
	}

	if jsonOutput {
		err = printJSON(resp)
		return err
	}

	printRecommendations(resp)

	if recommendFlags.calendar && len(resp.Crops) > 0 {
		top := resp.Crops[0]
		fmt.Printf("\nCalendar for %s:\n", top.Name)
		printCalendar(top.Calendar)
	}
	return err
}

func printRecommendations(resp *domain.RecommendResponse) {
	if len(resp.Crops) == 0 {
		fmt.Println("No crop qualifies for these conditions.")
		return
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "#\tCROP\tSCORE\tPROFIT/ACRE\tPROFIT (LAND)\tNOTES")
	for i, rec := range resp.Crops {
		notes := strings.Join(rec.UnselectableReasons, "; ")
		if rec.Preferred {
			notes = strings.TrimPrefix(notes+"; preferred", "; ")
		}
		fmt.Fprintf(w, "%d\t%s\t%.1f\t%.0f\t%.0f\t%s\n",
			i+1, rec.Name, rec.TotalScore, rec.ProfitPerAcre, rec.ProfitForLand, notes)
	}
	w.Flush()

	fmt.Printf("\nLand size: %.2f acres\n", resp.LandSize)
}

func printCalendar(events []domain.CalendarEvent) {
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "DATE\tTYPE\tTASK")
	for _, ev := range events {
		fmt.Fprintf(w, "%s\t%s\t%s\n", ev.Date, ev.Type, ev.Title)
	}
	w.Flush()
}

func printJSON(v any) (err error) {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	err = enc.Encode(v)
	if err != nil {
		err = errors.Wrap(err, "failed to encode output")
	}
	return err
}
