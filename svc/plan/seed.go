package plan

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/dmitrymomot/hostelkit/pkg/logger"
)

// ErrInvalidSeed is returned for unreadable or malformed seed files.
var ErrInvalidSeed = errors.New("plan: invalid seed file")

type seedFile struct {
	Plans []Plan `yaml:"plans"`
}

// YAMLSource reads plan definitions from a YAML document:
//
//	plans:
//	  - name: Free Trial
//	    kind: trial
//	    trial_period_days: 14
//	    base_bed_count: 10
//	    base_price: {amount: 0, currency: INR}
type YAMLSource struct {
	r io.Reader
}

// NewYAMLSource reads plans from r.
func NewYAMLSource(r io.Reader) *YAMLSource {
	return &YAMLSource{r: r}
}

// Load decodes the plans. Unknown keys are rejected.
func (s *YAMLSource) Load() ([]Plan, error) {
	dec := yaml.NewDecoder(s.r)
	dec.KnownFields(true)

	var f seedFile
	if err := dec.Decode(&f); err != nil {
		return nil, errors.Join(ErrInvalidSeed, err)
	}
	if len(f.Plans) == 0 {
		return nil, fmt.Errorf("%w: no plans defined", ErrInvalidSeed)
	}
	return f.Plans, nil
}

// LoadYAMLFile reads plans from the file at path.
func LoadYAMLFile(path string) ([]Plan, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Join(ErrInvalidSeed, err)
	}
	defer f.Close()
	return NewYAMLSource(f).Load()
}

// SeedReport lists plan names by outcome.
type SeedReport struct {
	Created []string `json:"created"`
	Updated []string `json:"updated"`
}

// Seed upserts plans by name. Existing plans get the seeded terms and keep
// their ID, counters and upgrade requests.
func (c *Catalog) Seed(ctx context.Context, plans []Plan) (SeedReport, error) {
	var report SeedReport
	for _, p := range plans {
		existing, err := c.store.GetByName(ctx, p.Name)
		switch {
		case errors.Is(err, ErrPlanNotFound):
			created, err := c.Create(ctx, p)
			if err != nil {
				return report, fmt.Errorf("seed plan %q: %w", p.Name, err)
			}
			report.Created = append(report.Created, created.Name)
		case err != nil:
			return report, err
		default:
			if _, err := c.Update(ctx, existing.ID, p); err != nil {
				return report, fmt.Errorf("seed plan %q: %w", p.Name, err)
			}
			report.Updated = append(report.Updated, existing.Name)
		}
	}
	c.log.InfoContext(ctx, "plans seeded",
		logger.Count("created", len(report.Created)),
		logger.Count("updated", len(report.Updated)),
	)
	return report, nil
}
