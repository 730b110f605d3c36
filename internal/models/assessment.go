package models

// Verdict is the evaluator's decision for a single resource.
type Verdict string

const (
	// VerdictCompliant means the resource is not exposed; nothing to do.
	VerdictCompliant Verdict = "compliant"

	// VerdictExposed means the resource must be remediated.
	VerdictExposed Verdict = "exposed"

	// VerdictNotApplicable means the check cannot apply to this resource,
	// e.g. an EC2 instance with no instance profile association.
	VerdictNotApplicable Verdict = "not_applicable"
)

// Assessment is the result of evaluating one resource.
// Target carries the secondary resource the remediation acts on, such as the
// IAM role name derived from an instance profile. It is empty when the
// remediation acts on the resource itself.
//
// Region, when set, is where the resource lives and replaces the run's region
// on the result. Account-wide listings such as S3 buckets use it.
type Assessment struct {
	Verdict Verdict
	Reason  string
	Target  string
	Region  string
}
