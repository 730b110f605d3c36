package engine

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/pankaj-dahiya-devops/dp-remediate/internal/models"
)

// Pipeline is one lister/evaluator/remediator triple over resources of type T.
type Pipeline[T any] interface {
	// Name is the pipeline name used in logs, reports and the policy file.
	Name() string

	// ResourceType is recorded on every result.
	ResourceType() models.ResourceType

	// List returns every resource in listing order.
	List(ctx context.Context) ([]T, error)

	// ResourceID returns the identifier used for logging and exclusions.
	ResourceID(item T) string

	// Evaluate decides whether item needs remediation. An error aborts the
	// evaluation of item only.
	Evaluate(ctx context.Context, item T) (models.Assessment, error)

	// Remediate applies the fix for an exposed item. It returns
	// StatusRemediated when a change was made and StatusCompliant when the
	// provider reports there was nothing left to change.
	Remediate(ctx context.Context, item T, a models.Assessment) (models.Status, error)
}

// RunOptions configures a single Run.
type RunOptions struct {
	Region string
	DryRun bool

	// Exclude holds resource IDs that are evaluated but never remediated.
	Exclude map[string]struct{}

	// Concurrency bounds in-flight resources. Values below 1 mean 1.
	Concurrency int
}

// Run lists the pipeline's resources and processes each one: evaluate, then
// remediate when exposed. Every resource is evaluated once and remediated at
// most once. A failure on one resource never stops the others.
//
// Results are returned in listing order regardless of concurrency. The
// returned error joins every StageError; a list failure leaves the report
// with no results.
func Run[T any](ctx context.Context, log zerolog.Logger, p Pipeline[T], opts RunOptions) (*models.RemediationReport, error) {
	log = log.With().Str("pipeline", p.Name()).Str("region", opts.Region).Logger()
	ctx = log.WithContext(ctx)

	report := &models.RemediationReport{
		GeneratedAt: time.Now().UTC(),
		Regions:     []string{opts.Region},
		DryRun:      opts.DryRun,
	}

	items, err := p.List(ctx)
	if err != nil {
		se := &StageError{Pipeline: p.Name(), Region: opts.Region, Stage: StageList, Err: err}
		log.Error().Err(err).Msg("failed to list resources")
		report.Errors = append(report.Errors, se.toModel())
		return report, se
	}
	log.Info().Int("count", len(items)).Msg("listed resources")

	limit := opts.Concurrency
	if limit < 1 {
		limit = 1
	}

	results := make([]models.RemediationResult, len(items))
	failures := make([]*StageError, len(items))

	var g errgroup.Group
	g.SetLimit(limit)
	for i, item := range items {
		i, item := i, item
		g.Go(func() error {
			results[i], failures[i] = process(ctx, log, p, item, opts)
			return nil
		})
	}
	_ = g.Wait()

	var errs []error
	for _, se := range failures {
		if se == nil {
			continue
		}
		errs = append(errs, se)
		if se.Stage != StageRemediate {
			report.Errors = append(report.Errors, se.toModel())
		}
	}

	report.Results = results
	report.Summary = models.Summarize(results)
	return report, errors.Join(errs...)
}

// process handles a single resource and logs its outcome.
func process[T any](
	ctx context.Context,
	log zerolog.Logger,
	p Pipeline[T],
	item T,
	opts RunOptions,
) (models.RemediationResult, *StageError) {
	id := p.ResourceID(item)
	log = log.With().Str("resource_id", id).Logger()
	ctx = log.WithContext(ctx)

	res := models.RemediationResult{
		Pipeline:     p.Name(),
		ResourceType: p.ResourceType(),
		ResourceID:   id,
		Region:       opts.Region,
		StartedAt:    time.Now().UTC(),
	}
	fail := func(stage Stage, err error) (models.RemediationResult, *StageError) {
		res.Status = models.StatusFailed
		res.Error = err.Error()
		res.Duration = time.Since(res.StartedAt)
		return res, &StageError{Pipeline: p.Name(), Region: res.Region, Stage: stage, ResourceID: id, Err: err}
	}

	if err := ctx.Err(); err != nil {
		log.Warn().Err(err).Msg("run cancelled before resource was processed")
		return fail(StageLookup, err)
	}

	a, err := p.Evaluate(ctx, item)
	if err != nil {
		log.Error().Err(err).Msg("failed to evaluate resource")
		return fail(StageLookup, err)
	}
	res.Reason = a.Reason
	if a.Region != "" && a.Region != opts.Region {
		res.Region = a.Region
		log = log.With().Str("resource_region", a.Region).Logger()
		ctx = log.WithContext(ctx)
	}

	switch a.Verdict {
	case models.VerdictCompliant:
		res.Status = models.StatusCompliant
		log.Info().Msg("resource is compliant")
	case models.VerdictNotApplicable:
		res.Status = models.StatusSkipped
		log.Info().Str("reason", a.Reason).Msg("resource skipped")
	case models.VerdictExposed:
		if _, excluded := opts.Exclude[id]; excluded {
			res.Status = models.StatusSkipped
			res.Reason = "excluded by policy"
			log.Warn().Str("finding", a.Reason).Msg("resource is exposed but excluded by policy")
			break
		}
		if opts.DryRun {
			res.Status = models.StatusDryRun
			log.Warn().Str("finding", a.Reason).Msg("dry run: resource would be remediated")
			break
		}
		status, err := p.Remediate(ctx, item, a)
		if err != nil {
			log.Error().Err(err).Msg("failed to remediate resource")
			return fail(StageRemediate, err)
		}
		if status == models.StatusCompliant {
			res.Status = models.StatusCompliant
			log.Info().Str("finding", a.Reason).Msg("nothing to remediate; resource already compliant")
			break
		}
		res.Status = models.StatusRemediated
		log.Info().Str("finding", a.Reason).Msg("resource remediated")
	}

	res.Duration = time.Since(res.StartedAt)
	return res, nil
}

// LookupFailures returns how many resources in report could not be
// evaluated.
func LookupFailures(report *models.RemediationReport) int {
	if report == nil {
		return 0
	}
	n := 0
	for _, e := range report.Errors {
		if e.Stage == string(StageLookup) {
			n++
		}
	}
	return n
}
