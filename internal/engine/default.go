package engine

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/pankaj-dahiya-devops/dp-remediate/internal/models"
	"github.com/pankaj-dahiya-devops/dp-remediate/internal/policy"
	"github.com/pankaj-dahiya-devops/dp-remediate/internal/providers/aws/common"
	awsrds "github.com/pankaj-dahiya-devops/dp-remediate/internal/providers/aws/rds"
	awss3 "github.com/pankaj-dahiya-devops/dp-remediate/internal/providers/aws/s3"
	awsssm "github.com/pankaj-dahiya-devops/dp-remediate/internal/providers/aws/ssm"
)

// DefaultEngine is the production implementation of Engine.
// It loads the profile, builds one ClientSet per region and drives each
// selected pipeline through Run. It never constructs SDK clients itself.
type DefaultEngine struct {
	provider common.AWSClientProvider
	factory  common.ClientFactory
	log      zerolog.Logger
}

// NewDefaultEngine constructs a DefaultEngine. A nil factory selects
// common.NewClientSet.
func NewDefaultEngine(
	provider common.AWSClientProvider,
	factory common.ClientFactory,
	log zerolog.Logger,
) *DefaultEngine {
	if factory == nil {
		factory = common.NewClientSet
	}
	return &DefaultEngine{provider: provider, factory: factory, log: log}
}

// RunRemediation implements Engine.
//
// Regional pipelines (rds, ssm) run once per resolved region. The s3 pipeline
// lists once against common.GlobalRegion because ListBuckets is account-wide,
// then evaluates and remediates each bucket through its own region's client.
// Pipelines disabled in the policy are skipped with a log line.
func (e *DefaultEngine) RunRemediation(ctx context.Context, opts RemediateOptions) (*models.RemediationReport, error) {
	pipelines, err := selectPipelines(opts.Pipelines)
	if err != nil {
		return nil, err
	}

	profile, err := e.provider.LoadProfile(ctx, opts.Profile)
	if err != nil {
		return nil, fmt.Errorf("load profile %q: %w", opts.Profile, err)
	}

	regions := resolveRegions(profile, opts.Regions)
	if len(regions) == 0 {
		return nil, fmt.Errorf("no region configured for profile %q; pass --region or set AWS_REGION", profile.ProfileName)
	}

	dryRun := opts.DryRun || policy.DryRun(opts.Policy)
	log := e.log.With().Str("profile", profile.ProfileName).Str("account_id", profile.AccountID).Logger()

	report := &models.RemediationReport{
		ReportID:    fmt.Sprintf("remediate-%d", time.Now().UnixNano()),
		GeneratedAt: time.Now().UTC(),
		Profile:     profile.ProfileName,
		AccountID:   profile.AccountID,
		DryRun:      dryRun,
	}

	clients := newClientCache(e.provider, e.factory, profile)
	var errs []error

	for _, name := range pipelines {
		if !policy.IsEnabled(opts.Policy, name) {
			log.Info().Str("pipeline", name).Msg("pipeline disabled by policy")
			continue
		}

		runOpts := RunOptions{
			DryRun:      dryRun,
			Exclude:     policy.Exclusions(opts.Policy, name),
			Concurrency: opts.Concurrency,
		}

		targets := regions
		if name == PipelineS3 {
			targets = []string{common.GlobalRegion}
		}

		for _, region := range targets {
			runOpts.Region = region
			part, err := e.runPipeline(ctx, log, name, clients, runOpts, opts.Policy)
			if err != nil {
				errs = append(errs, err)
			}
			report.Merge(part)
			report.Regions = appendUnique(report.Regions, region)
			if part != nil {
				for _, r := range part.Results {
					report.Regions = appendUnique(report.Regions, r.Region)
				}
			}
		}
	}

	report.Summary = models.Summarize(report.Results)
	return report, errors.Join(errs...)
}

// runPipeline builds the named pipeline over the clients for opts.Region and
// runs it. The s3 pipeline also reaches other regions' clients, one per
// bucket region.
func (e *DefaultEngine) runPipeline(
	ctx context.Context,
	log zerolog.Logger,
	name string,
	clients *clientCache,
	opts RunOptions,
	pol *policy.PolicyConfig,
) (*models.RemediationReport, error) {
	cs := clients.get(opts.Region)
	switch name {
	case PipelineRDS:
		return Run(ctx, log, rdsPipeline{r: awsrds.NewPublicAccessRemediator(cs.RDS)}, opts)
	case PipelineS3:
		p := s3Pipeline{
			lister: awss3.NewPublicAccessRemediator(cs.S3),
			forRegion: func(region string) *awss3.PublicAccessRemediator {
				return awss3.NewPublicAccessRemediator(clients.get(region).S3)
			},
		}
		return Run(ctx, log, p, opts)
	case PipelineSSM:
		arn := policy.ManagedPolicyARN(pol, PipelineSSM)
		return Run(ctx, log, ssmPipeline{d: awsssm.NewPolicyDetacher(cs.EC2, cs.IAM, arn)}, opts)
	}
	return nil, fmt.Errorf("unknown pipeline %q", name)
}

// selectPipelines validates names and returns them in execution order with
// duplicates removed. An empty selection means AllPipelines.
func selectPipelines(names []string) ([]string, error) {
	if len(names) == 0 {
		return AllPipelines, nil
	}
	for _, n := range names {
		if !slices.Contains(AllPipelines, n) {
			return nil, fmt.Errorf("unknown pipeline %q; valid values: %v", n, AllPipelines)
		}
	}
	var out []string
	for _, n := range AllPipelines {
		if slices.Contains(names, n) {
			out = append(out, n)
		}
	}
	return out, nil
}

// resolveRegions returns the explicit region list when provided, otherwise
// the profile's home region.
func resolveRegions(profile *common.ProfileConfig, explicit []string) []string {
	if len(explicit) > 0 {
		return explicit
	}
	if profile.Region == "" {
		return nil
	}
	return []string{profile.Region}
}

func appendUnique(list []string, s string) []string {
	if slices.Contains(list, s) {
		return list
	}
	return append(list, s)
}

// clientCache builds at most one ClientSet per region for the lifetime of a
// run. The profile's own clients are reused for its home region. It is safe
// for concurrent use.
type clientCache struct {
	mu       sync.Mutex
	provider common.AWSClientProvider
	factory  common.ClientFactory
	profile  *common.ProfileConfig
	byRegion map[string]*common.ClientSet
}

func newClientCache(p common.AWSClientProvider, f common.ClientFactory, profile *common.ProfileConfig) *clientCache {
	c := &clientCache{provider: p, factory: f, profile: profile, byRegion: make(map[string]*common.ClientSet)}
	if profile.Clients != nil && profile.Region != "" {
		c.byRegion[profile.Region] = profile.Clients
	}
	return c
}

func (c *clientCache) get(region string) *common.ClientSet {
	c.mu.Lock()
	defer c.mu.Unlock()
	if cs, ok := c.byRegion[region]; ok {
		return cs
	}
	cs := c.factory(c.provider.ConfigForRegion(c.profile, region))
	c.byRegion[region] = cs
	return cs
}
