package main

import (
	"context"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/opensource-finance/cropadvisor/internal/advisor"
	"github.com/opensource-finance/cropadvisor/internal/domain"
)

//nolint:gochecknoglobals // Cobra boilerplate
var calendarSowingDate string

//nolint:gochecknoglobals // Cobra boilerplate
var calendarCmd = &cobra.Command{
	Use:   "calendar <crop>",
	Short: "Print the irrigation and fertilization calendar of a crop",
	Long: `Prints the cultivation calendar of a catalog crop. Without --sowing-date
the calendar starts today.

Examples:
  cropctl calendar rice --sowing-date 2025-06-20
  cropctl calendar wheat --json`,
	Args: cobra.ExactArgs(1),
	RunE: runCalendar,
}

//nolint:gochecknoinits // Cobra boilerplate
func init() {
	rootCmd.AddCommand(calendarCmd)
	calendarCmd.Flags().StringVar(&calendarSowingDate, "sowing-date", "", "Sowing date (YYYY-MM-DD)")
}

func runCalendar(cmd *cobra.Command, args []string) (err error) {
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

	var events []domain.CalendarEvent
	events, err = adv.Calendar(context.Background(), args[0], calendarSowingDate)
	if err != nil {
		err = errors.Wrap(err, "failed to build calendar")
		return err
	}

	if jsonOutput {
		err = printJSON(events)
		return err
	}

	printCalendar(events)
	return err
}
