package climdex

import (
	"fmt"
	"os"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// Period is an inclusive year range.
type Period struct {
	Start int `yaml:"start"`
	End   int `yaml:"end"`
}

func (p Period) String() string {
	return fmt.Sprintf("%d-%d", p.Start, p.End)
}

// Config externalizes everything the batch run enumerates: the ensemble
// members, the analysis windows, the percentile levels and the index box.
// The zero value is not usable; start from DefaultConfig.
type Config struct {
	Members          []string  `yaml:"members"`
	Scenario         string    `yaml:"scenario"`
	ReferencePeriod  Period    `yaml:"reference_period"`
	HistoricalPeriod Period    `yaml:"historical_period"`
	FuturePeriods    []Period  `yaml:"future_periods"`
	PercentileLevels []float64 `yaml:"percentile_levels"`
	// MonthlyPercentile selects the threshold level for the monthly
	// exceedance variant, computed over the first future period only.
	MonthlyPercentile float64 `yaml:"monthly_percentile"`
	OceanIndexBox     Box     `yaml:"ocean_index_box"`
	BaselinePeriod    Period  `yaml:"baseline_period"`
	Workers           int     `yaml:"workers"`
}

// DefaultConfig returns the standard 40-member run: reference 1980-2014,
// historical 1950-2014, future windows 2015-2049 and 2050-2084, percentile
// levels 99 and 99.9, Nino 3.4 box (170W-120W, 5S-5N) and baseline
// 1981-2010.
func DefaultConfig() Config {
	members := make([]string, 40)
	for i := range members {
		members[i] = fmt.Sprintf("r%d", i+1)
	}
	return Config{
		Members:           members,
		Scenario:          "ssp585",
		ReferencePeriod:   Period{1980, 2014},
		HistoricalPeriod:  Period{1950, 2014},
		FuturePeriods:     []Period{{2015, 2049}, {2050, 2084}},
		PercentileLevels:  []float64{99, 99.9},
		MonthlyPercentile: 99,
		OceanIndexBox:     Box{LonMin: 190, LonMax: 240, LatMin: -5, LatMax: 5},
		BaselinePeriod:    Period{1981, 2010},
		Workers:           4,
	}
}

// LoadConfig overlays a YAML file onto the defaults. An empty path returns
// the defaults unchanged.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	if path == "" {
		return cfg, cfg.Validate()
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return cfg, errors.Wrapf(err, "read config %s", path)
	}
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return cfg, errors.Wrapf(err, "parse config %s", path)
	}
	return cfg, cfg.Validate()
}

// Validate rejects configurations that would fail every member identically.
func (c Config) Validate() error {
	if len(c.Members) == 0 {
		return errors.New("config: no ensemble members")
	}
	if len(c.PercentileLevels) == 0 {
		return errors.New("config: no percentile levels")
	}
	for _, p := range c.PercentileLevels {
		if p <= 0 || p >= 100 {
			return errors.Errorf("config: percentile level %g out of (0, 100)", p)
		}
	}
	if len(c.FuturePeriods) == 0 {
		return errors.New("config: no future periods")
	}
	periods := append([]Period{c.ReferencePeriod, c.HistoricalPeriod, c.BaselinePeriod}, c.FuturePeriods...)
	for _, p := range periods {
		if p.Start > p.End {
			return errors.Errorf("config: period %s reversed", p)
		}
	}
	if c.OceanIndexBox.LonMin >= c.OceanIndexBox.LonMax || c.OceanIndexBox.LatMin >= c.OceanIndexBox.LatMax {
		return errors.New("config: ocean index box is empty")
	}
	if c.Workers < 1 {
		return errors.New("config: workers must be at least 1")
	}
	return nil
}
