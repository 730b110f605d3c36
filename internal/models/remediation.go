package models

import "time"

// ResourceType identifies the kind of cloud resource a result refers to.
type ResourceType string

const (
	ResourceAWSRDS         ResourceType = "RDS_INSTANCE"
	ResourceAWSS3Bucket    ResourceType = "S3_BUCKET"
	ResourceAWSEC2Instance ResourceType = "EC2_INSTANCE"
)

// Status is the outcome of processing one resource in a remediation run.
type Status string

const (
	// StatusRemediated means the corrective API call succeeded.
	StatusRemediated Status = "remediated"

	// StatusCompliant means the resource was evaluated and needed no change.
	StatusCompliant Status = "compliant"

	// StatusSkipped means the resource was excluded by policy or had nothing
	// to act on (e.g. an instance without an instance profile).
	StatusSkipped Status = "skipped"

	// StatusDryRun means the resource needed remediation but the run was a
	// dry run, so no mutating call was issued.
	StatusDryRun Status = "dry_run"

	// StatusFailed means evaluation or remediation returned an error.
	StatusFailed Status = "failed"
)

// RemediationResult records what happened to a single resource.
// Results are never persisted; they are logged and rendered once.
type RemediationResult struct {
	Pipeline     string        `json:"pipeline"`
	ResourceType ResourceType  `json:"resource_type"`
	ResourceID   string        `json:"resource_id"`
	Region       string        `json:"region"`
	Status       Status        `json:"status"`
	Reason       string        `json:"reason,omitempty"`
	Error        string        `json:"error,omitempty"`
	StartedAt    time.Time     `json:"started_at"`
	Duration     time.Duration `json:"duration"`
}

// RemediationSummary holds per-status counts across all results in a report.
type RemediationSummary struct {
	TotalResources int `json:"total_resources"`
	Remediated     int `json:"remediated"`
	Compliant      int `json:"compliant"`
	Skipped        int `json:"skipped"`
	DryRun         int `json:"dry_run"`
	Failed         int `json:"failed"`
}

// PipelineError records a failure that affected a whole pipeline run or
// aborted evaluation of a single resource, as opposed to a failed mutating
// call. ListErrors leave the pipeline with an empty resource set.
type PipelineError struct {
	Pipeline   string `json:"pipeline"`
	Region     string `json:"region"`
	Stage      string `json:"stage"`
	ResourceID string `json:"resource_id,omitempty"`
	Message    string `json:"message"`
}

// RemediationReport is the merged output of one or more pipeline runs.
type RemediationReport struct {
	ReportID    string              `json:"report_id"`
	GeneratedAt time.Time           `json:"generated_at"`
	Profile     string              `json:"profile"`
	AccountID   string              `json:"account_id"`
	Regions     []string            `json:"regions"`
	DryRun      bool                `json:"dry_run"`
	Results     []RemediationResult `json:"results"`
	Errors      []PipelineError     `json:"errors,omitempty"`
	Summary     RemediationSummary  `json:"summary"`
}

// Summarize counts results by status.
func Summarize(results []RemediationResult) RemediationSummary {
	s := RemediationSummary{TotalResources: len(results)}
	for _, r := range results {
		switch r.Status {
		case StatusRemediated:
			s.Remediated++
		case StatusCompliant:
			s.Compliant++
		case StatusSkipped:
			s.Skipped++
		case StatusDryRun:
			s.DryRun++
		case StatusFailed:
			s.Failed++
		}
	}
	return s
}

// Merge appends other's results and errors into r and recomputes the summary.
func (r *RemediationReport) Merge(other *RemediationReport) {
	if other == nil {
		return
	}
	r.Results = append(r.Results, other.Results...)
	r.Errors = append(r.Errors, other.Errors...)
	r.Summary = Summarize(r.Results)
}
