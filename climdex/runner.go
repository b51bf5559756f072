package climdex

import (
	"fmt"
	"sort"
	"sync"

	"github.com/hhkbp2/go-logging"
)

var logger = logging.GetLogger("climdex")

// MemberSource provides the continuous raw input series for one ensemble
// member. FileSource implements it over a NetCDF tree; tests inject
// synthetic grids.
type MemberSource interface {
	// PrecipSeries returns the member's daily precipitation covering the
	// historical and scenario branches as one continuous series.
	PrecipSeries(member string) (*TimeSeriesGrid, error)
	// SSTSeries returns the member's monthly sea-surface temperature.
	SSTSeries(member string) (*TimeSeriesGrid, error)
}

// ResultSink receives every derived artifact. Keyed by typed identifiers,
// never by encoded filenames.
type ResultSink interface {
	WriteThreshold(member string, field *PercentileThresholdField) error
	WriteExceedance(member string, level float64, period Period, monthly bool, s *ExceedanceSeries) error
	WriteIndex(member string, s *ClimateIndexSeries) error
}

// MemberFailure records which member failed and where.
type MemberFailure struct {
	Member string
	Stage  string
	Err    error
}

// RunSummary is the per-member success/failure report of one batch run.
type RunSummary struct {
	Succeeded []string
	Failed    []MemberFailure
}

// Run processes every configured member through the full pipeline:
// thresholds, exceedance frequencies and the ocean index. Members run on a
// worker pool and are fully independent; one member's failure is recorded in
// the summary and never aborts the others.
func Run(cfg Config, source MemberSource, sink ResultSink) RunSummary {
	type memberResult struct {
		member string
		fail   *MemberFailure
	}

	jobs := make(chan string)
	results := make(chan memberResult)

	var wg sync.WaitGroup
	for w := 0; w < cfg.Workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for member := range jobs {
				results <- memberResult{member, runMember(cfg, source, sink, member)}
			}
		}()
	}

	go func() {
		for _, m := range cfg.Members {
			jobs <- m
		}
		close(jobs)
		wg.Wait()
		close(results)
	}()

	summary := RunSummary{}
	done := 0
	for res := range results {
		done++
		if res.fail == nil {
			summary.Succeeded = append(summary.Succeeded, res.member)
			logger.Infof("member %s done (%d/%d)", res.member, done, len(cfg.Members))
		} else {
			summary.Failed = append(summary.Failed, *res.fail)
			logger.Errorf("member %s failed at %s: %v", res.member, res.fail.Stage, res.fail.Err)
		}
	}

	sort.Strings(summary.Succeeded)
	sort.Slice(summary.Failed, func(a, b int) bool {
		return summary.Failed[a].Member < summary.Failed[b].Member
	})

	logger.Infof("run complete: %d succeeded, %d failed", len(summary.Succeeded), len(summary.Failed))
	for _, f := range summary.Failed {
		logger.Warnf("  %s: %s: %v", f.Member, f.Stage, f.Err)
	}
	return summary
}

// runMember executes one member's pipeline. Returns nil on success.
func runMember(cfg Config, source MemberSource, sink ResultSink, member string) *MemberFailure {
	fail := func(stage string, err error) *MemberFailure {
		return &MemberFailure{Member: member, Stage: stage, Err: &PipelineError{Member: member, Stage: stage, Err: err}}
	}

	// Ingest precipitation and normalize units.
	pr, err := source.PrecipSeries(member)
	if err != nil {
		return fail("ingest", err)
	}
	pr.ConvertPrecipFluxToDaily()

	// REFERENCE: thresholds must be computed and persisted before any
	// exceedance aggregation starts.
	fields := make([]*PercentileThresholdField, len(cfg.PercentileLevels))
	for k, level := range cfg.PercentileLevels {
		field, err := ReferenceThresholds(pr, cfg.ReferencePeriod.Start, cfg.ReferencePeriod.End, level)
		if err != nil {
			return fail("reference", err)
		}
		if err := sink.WriteThreshold(member, field); err != nil {
			return fail("reference", err)
		}
		fields[k] = field
	}

	// EXCEEDANCE: the same reference field applies to the historical window
	// and both future windows. Periods are independent within the member and
	// run concurrently.
	periods := append([]Period{cfg.HistoricalPeriod}, cfg.FuturePeriods...)
	if err := exceedanceAll(cfg, sink, member, pr, fields, periods); err != nil {
		return fail("exceedance", err)
	}

	// Monthly variant for the near-future window only.
	if err := monthlyVariant(cfg, sink, member, pr, fields); err != nil {
		return fail("exceedance", err)
	}

	// Ocean index from regridded SST.
	sst, err := source.SSTSeries(member)
	if err != nil {
		return fail("ingest", err)
	}
	lat1, lon1 := Global1Deg()
	sst, err = sst.RegridBilinear(lat1, lon1)
	if err != nil {
		return fail("regrid", err)
	}
	index, err := NinoIndex(sst, cfg.OceanIndexBox, cfg.BaselinePeriod.Start, cfg.BaselinePeriod.End)
	if err != nil {
		return fail("index", err)
	}
	if err := sink.WriteIndex(member, index); err != nil {
		return fail("index", err)
	}

	return nil
}

// exceedanceAll runs the annual exceedance aggregation for every (level,
// period) pair of one member, periods in parallel.
func exceedanceAll(cfg Config, sink ResultSink, member string, pr *TimeSeriesGrid, fields []*PercentileThresholdField, periods []Period) error {
	type job struct {
		field  *PercentileThresholdField
		period Period
	}
	var jobs []job
	for _, f := range fields {
		for _, p := range periods {
			jobs = append(jobs, job{f, p})
		}
	}

	errs := make(chan error, len(jobs))
	var wg sync.WaitGroup
	for _, jb := range jobs {
		wg.Add(1)
		go func(jb job) {
			defer wg.Done()
			window, err := pr.ExtractYears(jb.period.Start, jb.period.End)
			if err != nil {
				errs <- fmt.Errorf("period %s: %w", jb.period, err)
				return
			}
			series, err := AnnualExceedance(window, jb.field)
			if err != nil {
				errs <- fmt.Errorf("period %s: %w", jb.period, err)
				return
			}
			errs <- sink.WriteExceedance(member, jb.field.Level, jb.period, false, series)
		}(jb)
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		if err != nil {
			return err
		}
	}
	return nil
}

// monthlyVariant computes the monthly exceedance series over the first
// future window at the configured monthly percentile level.
func monthlyVariant(cfg Config, sink ResultSink, member string, pr *TimeSeriesGrid, fields []*PercentileThresholdField) error {
	var field *PercentileThresholdField
	for _, f := range fields {
		if f.Level == cfg.MonthlyPercentile {
			field = f
			break
		}
	}
	if field == nil {
		return fmt.Errorf("monthly percentile %g not among configured levels", cfg.MonthlyPercentile)
	}

	period := cfg.FuturePeriods[0]
	window, err := pr.ExtractYears(period.Start, period.End)
	if err != nil {
		return fmt.Errorf("period %s: %w", period, err)
	}
	series, err := MonthlyExceedance(window, field)
	if err != nil {
		return fmt.Errorf("period %s: %w", period, err)
	}
	return sink.WriteExceedance(member, field.Level, period, true, series)
}
