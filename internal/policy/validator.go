package policy

import (
	"fmt"
	"strings"
)

// Validate checks cfg for semantic correctness and returns all validation errors
// found. An empty slice means the config is valid.
//
// Checks performed:
//   - version must be 1
//   - pipeline names must appear in knownPipelines
//   - exclude entries must be non-empty
//   - managed_policy_arn is only valid on the ssm pipeline and must be an IAM policy ARN
//
// All errors are collected before returning; Validate never stops at the first error.
func Validate(cfg *PolicyConfig, knownPipelines []string) []error {
	if cfg == nil {
		return []error{fmt.Errorf("policy config is nil")}
	}

	known := make(map[string]struct{}, len(knownPipelines))
	for _, name := range knownPipelines {
		known[name] = struct{}{}
	}

	var errs []error

	if cfg.Version != 1 {
		errs = append(errs, fmt.Errorf("version: unsupported value %d; must be 1", cfg.Version))
	}

	for name, pcfg := range cfg.Pipelines {
		if _, ok := known[name]; !ok {
			errs = append(errs, fmt.Errorf("pipelines.%s: unknown pipeline; valid values: %s", name, strings.Join(knownPipelines, ", ")))
		}
		for i, id := range pcfg.Exclude {
			if strings.TrimSpace(id) == "" {
				errs = append(errs, fmt.Errorf("pipelines.%s.exclude[%d]: empty resource ID", name, i))
			}
		}
		if pcfg.ManagedPolicyARN != "" {
			if name != "ssm" {
				errs = append(errs, fmt.Errorf("pipelines.%s.managed_policy_arn: only supported on the ssm pipeline", name))
			} else if !isIAMPolicyARN(pcfg.ManagedPolicyARN) {
				errs = append(errs, fmt.Errorf("pipelines.%s.managed_policy_arn: %q is not an IAM policy ARN", name, pcfg.ManagedPolicyARN))
			}
		}
	}

	return errs
}

// isIAMPolicyARN accepts arn:<partition>:iam::<account|aws>:policy/<path>.
func isIAMPolicyARN(arn string) bool {
	parts := strings.SplitN(arn, ":", 6)
	return len(parts) == 6 &&
		parts[0] == "arn" &&
		parts[2] == "iam" &&
		strings.HasPrefix(parts[5], "policy/")
}
