// Package catalog provides crop catalog sources.
package catalog

import (
	"context"
	"fmt"
	"os"
	"sort"
	"strings"

	json "github.com/goccy/go-json"
	"github.com/pkg/errors"

	"github.com/opensource-finance/cropadvisor/internal/domain"
	"github.com/opensource-finance/cropadvisor/internal/validation"
)

// ErrIntegrity marks a catalog record that is missing or has invalid fields.
// Such a catalog fails the whole request instead of being silently defaulted.
var ErrIntegrity = errors.New("catalog integrity error")

// record mirrors a JSON catalog entry with presence-tracking fields.
type record struct {
	Name         *string   `json:"name" validate:"required"`
	Season       []string  `json:"season" validate:"required,min=1,dive,oneof=kharif rabi zaid"`
	SoilType     []string  `json:"soil_type" validate:"required,min=1,dive,required"`
	WaterNeed    *string   `json:"water_need" validate:"required,oneof=low medium high"`
	TempRange    []float64 `json:"temp_range" validate:"required,len=2"`
	DurationDays *int      `json:"duration_days" validate:"required"`
	YieldPerAcre *float64  `json:"yield_per_acre" validate:"required"`
	MSP          *float64  `json:"msp" validate:"required"`
	CostPerAcre  *float64  `json:"cost_per_acre" validate:"required"`
}

// FileSource reads the catalog from a JSON file on every call, so edits to
// the file are picked up without a restart.
type FileSource struct {
	path string
}

// NewFileSource creates a catalog source backed by a JSON file.
func NewFileSource(path string) *FileSource {
	return &FileSource{path: path}
}

// ListCrops reads and validates the catalog file.
func (s *FileSource) ListCrops(ctx context.Context) ([]*domain.Crop, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read catalog %s", s.path)
	}

	crops, err := Decode(data)
	if err != nil {
		return nil, errors.Wrapf(err, "catalog %s", s.path)
	}
	return crops, nil
}

// Path returns the catalog file location.
func (s *FileSource) Path() string {
	return s.path
}

// Decode parses a JSON list of crop records, preserving their order.
func Decode(data []byte) ([]*domain.Crop, error) {
	var records []record
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, errors.Wrap(ErrIntegrity, err.Error())
	}

	crops := make([]*domain.Crop, 0, len(records))
	seen := make(map[string]bool, len(records))

	for i, r := range records {
		crop, err := r.crop()
		if err != nil {
			return nil, errors.Wrapf(err, "record %d", i)
		}

		if seen[crop.Key()] {
			return nil, errors.Wrapf(ErrIntegrity, "record %d: duplicate crop name %q", i, crop.Name)
		}
		seen[crop.Key()] = true

		crops = append(crops, crop)
	}

	return crops, nil
}

// DecodeCrop parses and validates a single JSON crop record.
func DecodeCrop(data []byte) (*domain.Crop, error) {
	var r record
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, errors.Wrap(ErrIntegrity, err.Error())
	}
	return r.crop()
}

func (r *record) crop() (*domain.Crop, error) {
	folded := r.folded()
	if err := validation.ValidateStruct(&folded); err != nil {
		return nil, errors.Wrap(ErrIntegrity, err.Error())
	}

	crop := &domain.Crop{
		Name:         *r.Name,
		Seasons:      r.Season,
		SoilTypes:    r.SoilType,
		WaterNeed:    *r.WaterNeed,
		TempRange:    [2]float64{r.TempRange[0], r.TempRange[1]},
		DurationDays: *r.DurationDays,
		YieldPerAcre: *r.YieldPerAcre,
		MSP:          *r.MSP,
		CostPerAcre:  *r.CostPerAcre,
	}

	if err := Validate(crop); err != nil {
		return nil, err
	}
	return crop, nil
}

// folded returns a copy with seasons, soils and water need case-folded and
// trimmed, so value checks match the way the rules compare them.
func (r *record) folded() record {
	f := *r
	f.Season = foldAll(r.Season)
	f.SoilType = foldAll(r.SoilType)
	if r.WaterNeed != nil {
		w := strings.ToLower(strings.TrimSpace(*r.WaterNeed))
		f.WaterNeed = &w
	}
	return f
}

func foldAll(values []string) []string {
	if values == nil {
		return nil
	}
	out := make([]string, len(values))
	for i, v := range values {
		out[i] = strings.ToLower(strings.TrimSpace(v))
	}
	return out
}

// Validate checks a single crop record.
func Validate(crop *domain.Crop) error {
	if err := validation.ValidateStruct(crop); err != nil {
		return errors.Wrap(ErrIntegrity, err.Error())
	}
	if strings.TrimSpace(crop.Name) == "" {
		return errors.Wrap(ErrIntegrity, "name is blank")
	}
	if crop.TempRange[0] > crop.TempRange[1] {
		return errors.Wrap(ErrIntegrity, fmt.Sprintf("%s: temp_range min %.1f exceeds max %.1f",
			crop.Name, crop.TempRange[0], crop.TempRange[1]))
	}
	return nil
}

// Names returns the sorted, de-duplicated crop names of a catalog.
func Names(crops []*domain.Crop) []string {
	seen := make(map[string]bool, len(crops))
	names := make([]string, 0, len(crops))
	for _, c := range crops {
		if seen[c.Name] {
			continue
		}
		seen[c.Name] = true
		names = append(names, c.Name)
	}
	sort.Strings(names)
	return names
}
