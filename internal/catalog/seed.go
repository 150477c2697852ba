package catalog

import (
	"context"

	"github.com/pkg/errors"

	"github.com/opensource-finance/cropadvisor/internal/domain"
)

// Import copies every crop of src into store, replacing records with the
// same name. It returns the number of crops written.
func Import(ctx context.Context, store domain.CatalogStore, src domain.Catalog) (int, error) {
	crops, err := src.ListCrops(ctx)
	if err != nil {
		return 0, errors.Wrap(err, "failed to read import source")
	}

	for i, crop := range crops {
		if err := store.SaveCrop(ctx, crop); err != nil {
			return i, errors.Wrapf(err, "failed to save %s", crop.Name)
		}
	}
	return len(crops), nil
}

// SeedIfEmpty imports src only when the store holds no crops.
func SeedIfEmpty(ctx context.Context, store domain.CatalogStore, src domain.Catalog) (int, error) {
	count, err := store.CountCrops(ctx)
	if err != nil {
		return 0, errors.Wrap(err, "failed to count crops")
	}
	if count > 0 {
		return 0, nil
	}
	return Import(ctx, store, src)
}
