package engine

import (
	"context"
	"errors"
	"fmt"

	"github.com/pankaj-dahiya-devops/dp-remediate/internal/models"
	"github.com/pankaj-dahiya-devops/dp-remediate/internal/policy"
)

// Pipeline names accepted by RunRemediation and the policy file.
const (
	PipelineRDS = "rds"
	PipelineS3  = "s3"
	PipelineSSM = "ssm"
)

// AllPipelines lists every pipeline in execution order.
var AllPipelines = []string{PipelineRDS, PipelineS3, PipelineSSM}

// ReportFormat controls the CLI output format.
type ReportFormat string

const (
	ReportFormatNone  ReportFormat = ""
	ReportFormatJSON  ReportFormat = "json"
	ReportFormatTable ReportFormat = "table"
)

// Stage names the step of a pipeline at which an error occurred.
type Stage string

const (
	StageList      Stage = "list"
	StageLookup    Stage = "lookup"
	StageRemediate Stage = "remediate"
)

// Sentinels matched with errors.Is against any error returned by Run or
// RunRemediation.
var (
	ErrList      = errors.New("list failed")
	ErrLookup    = errors.New("lookup failed")
	ErrRemediate = errors.New("remediation failed")
)

// StageError wraps a provider error with the pipeline stage and resource it
// belongs to. ResourceID is empty for list failures.
type StageError struct {
	Pipeline   string
	Region     string
	Stage      Stage
	ResourceID string
	Err        error
}

func (e *StageError) Error() string {
	if e.ResourceID == "" {
		return fmt.Sprintf("%s %s (%s): %v", e.Pipeline, e.Stage, e.Region, e.Err)
	}
	return fmt.Sprintf("%s %s %s (%s): %v", e.Pipeline, e.Stage, e.ResourceID, e.Region, e.Err)
}

// Unwrap exposes both the stage sentinel and the underlying provider error.
func (e *StageError) Unwrap() []error {
	return []error{stageSentinel(e.Stage), e.Err}
}

func stageSentinel(s Stage) error {
	switch s {
	case StageList:
		return ErrList
	case StageLookup:
		return ErrLookup
	default:
		return ErrRemediate
	}
}

// toModel converts e into the serialisable form stored on a report.
func (e *StageError) toModel() models.PipelineError {
	return models.PipelineError{
		Pipeline:   e.Pipeline,
		Region:     e.Region,
		Stage:      string(e.Stage),
		ResourceID: e.ResourceID,
		Message:    e.Err.Error(),
	}
}

// RemediateOptions configures a single remediation run.
// It is the sole input to Engine.RunRemediation.
type RemediateOptions struct {
	// Pipelines selects which pipelines run. Empty means AllPipelines.
	Pipelines []string

	// Profile is the named AWS profile to use. Empty means the default
	// credential chain.
	Profile string

	// Regions is an explicit list of regions for the regional pipelines.
	// When empty the profile's home region is used.
	Regions []string

	// DryRun evaluates every resource but issues no mutating call.
	DryRun bool

	// Concurrency bounds how many resources a pipeline processes at once.
	// Values below 1 mean sequential.
	Concurrency int

	// Policy is the parsed dp.yaml. Nil means every pipeline is enabled with
	// no exclusions.
	Policy *policy.PolicyConfig
}

// Engine is the central orchestration interface.
//
// RunRemediation returns a nil report only when the run could not start
// (for example the profile failed to load). Otherwise the report is always
// populated and the error, if any, joins every StageError seen during the run.
type Engine interface {
	RunRemediation(ctx context.Context, opts RemediateOptions) (*models.RemediationReport, error)
}
