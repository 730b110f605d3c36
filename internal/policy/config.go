package policy

// DefaultPolicyFile is the policy file name looked up in the working directory.
const DefaultPolicyFile = "dp.yaml"

// PolicyConfig is the remediation policy read from dp.yaml.
type PolicyConfig struct {
	Version   int                       `yaml:"version"`
	DryRun    bool                      `yaml:"dry_run"`
	Pipelines map[string]PipelineConfig `yaml:"pipelines"`
}

// PipelineConfig tunes a single remediation pipeline.
type PipelineConfig struct {
	// Enabled defaults to true when omitted.
	Enabled *bool `yaml:"enabled,omitempty"`

	// Exclude lists resource IDs (DB instance identifiers, bucket names,
	// instance IDs) that are evaluated but never remediated.
	Exclude []string `yaml:"exclude,omitempty"`

	// ManagedPolicyARN overrides the policy detached by the ssm pipeline.
	ManagedPolicyARN string `yaml:"managed_policy_arn,omitempty"`
}
