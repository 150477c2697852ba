package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/opensource-finance/cropadvisor/internal/bus"
	"github.com/opensource-finance/cropadvisor/internal/catalog"
	"github.com/opensource-finance/cropadvisor/internal/domain"
	"github.com/opensource-finance/cropadvisor/internal/repository"
	"github.com/opensource-finance/cropadvisor/internal/worker"
)

//nolint:gochecknoglobals // Cobra boilerplate
var catalogCmd = &cobra.Command{
	Use:   "catalog",
	Short: "Inspect and manage the crop catalog",
}

//nolint:gochecknoglobals // Cobra boilerplate
var catalogListCmd = &cobra.Command{
	Use:   "list",
	Short: "List the crops of the configured catalog source",
	Long: `Lists catalog records in catalog order. The source is catalog.source from
the configuration: the JSON file or the database.`,
	Args: cobra.NoArgs,
	RunE: runCatalogList,
}

//nolint:gochecknoglobals // Cobra boilerplate
var catalogValidateCmd = &cobra.Command{
	Use:   "validate <file>",
	Short: "Check a catalog JSON file for integrity errors",
	Args:  cobra.ExactArgs(1),
	RunE:  runCatalogValidate,
}

//nolint:gochecknoglobals // Cobra boilerplate
var catalogImportCmd = &cobra.Command{
	Use:   "import <file>",
	Short: "Import a catalog JSON file into the database",
	Long: `Validates a catalog JSON file and saves every crop into the configured
database, replacing records with the same name. When the event bus is NATS a
catalog change is announced so running servers drop their cached catalog.

Examples:
  CROPADVISOR_DB_DRIVER=sqlite cropctl catalog import data/crops.json
  cropctl --config prod.yaml catalog import crops-2025.json`,
	Args: cobra.ExactArgs(1),
	RunE: runCatalogImport,
}

//nolint:gochecknoinits // Cobra boilerplate
func init() {
	rootCmd.AddCommand(catalogCmd)
	catalogCmd.AddCommand(catalogListCmd)
	catalogCmd.AddCommand(catalogValidateCmd)
	catalogCmd.AddCommand(catalogImportCmd)
}

func runCatalogList(cmd *cobra.Command, args []string) (err error) {
	ctx := context.Background()

	var cfg *domain.Config
	cfg, err = loadConfig()
	if err != nil {
		return err
	}

	var source domain.Catalog = catalog.NewFileSource(cfg.Catalog.Path)
	if cfg.Catalog.Source == "database" {
		var repo *repository.SQLRepository
		repo, err = repository.New(cfg.Repository)
		if err != nil {
			err = errors.Wrap(err, "failed to open repository")
			return err
		}
		defer repo.Close()
		source = repo
	}

	var crops []*domain.Crop
	crops, err = source.ListCrops(ctx)
	if err != nil {
		err = errors.Wrap(err, "failed to list catalog")
		return err
	}

	if jsonOutput {
		err = printJSON(crops)
		return err
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "CROP\tSEASONS\tSOILS\tWATER\tTEMP\tDAYS\tYIELD\tMSP\tCOST")
	for _, c := range crops {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%.0f-%.0f\t%d\t%.1f\t%.0f\t%.0f\n",
			c.Name,
			strings.Join(c.Seasons, ","),
			strings.Join(c.SoilTypes, ","),
			c.WaterNeed,
			c.TempRange[0], c.TempRange[1],
			c.DurationDays,
			c.YieldPerAcre,
			c.MSP,
			c.CostPerAcre,
		)
	}
	w.Flush()
	fmt.Printf("\n%d crops\n", len(crops))
	return err
}

func runCatalogValidate(cmd *cobra.Command, args []string) (err error) {
	var crops []*domain.Crop
	crops, err = catalog.NewFileSource(args[0]).ListCrops(context.Background())
	if err != nil {
		return err
	}

	fmt.Printf("%s: %d crops, OK\n", args[0], len(crops))
	return err
}

func runCatalogImport(cmd *cobra.Command, args []string) (err error) {
	ctx := context.Background()

	var cfg *domain.Config
	cfg, err = loadConfig()
	if err != nil {
		return err
	}

	var repo *repository.SQLRepository
	repo, err = repository.New(cfg.Repository)
	if err != nil {
		err = errors.Wrap(err, "failed to open repository")
		return err
	}
	defer repo.Close()

	var n int
	n, err = catalog.Import(ctx, repo, catalog.NewFileSource(args[0]))
	if err != nil {
		err = errors.Wrapf(err, "import stopped after %d crops", n)
		return err
	}
	fmt.Printf("Imported %d crops into %s\n", n, cfg.Repository.Driver)

	if cfg.EventBus.Type != bus.TypeNATS {
		return err
	}

	var eventBus domain.EventBus
	eventBus, err = bus.New(cfg.EventBus)
	if err != nil {
		err = errors.Wrap(err, "crops imported but event bus unavailable")
		return err
	}
	defer eventBus.Close()

	err = worker.PublishChange(ctx, eventBus, domain.CatalogChange{Action: "reload"})
	if err != nil {
		err = errors.Wrap(err, "crops imported but change announcement failed")
		return err
	}
	fmt.Println("Announced catalog change to running servers")
	return err
}
