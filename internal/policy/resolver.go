package policy

// IsEnabled reports whether the named pipeline should run.
// A nil config or a pipeline without an explicit setting is enabled.
func IsEnabled(cfg *PolicyConfig, pipeline string) bool {
	if cfg == nil {
		return true
	}
	p, ok := cfg.Pipelines[pipeline]
	if !ok || p.Enabled == nil {
		return true
	}
	return *p.Enabled
}

// Exclusions returns the set of resource IDs excluded for pipeline.
func Exclusions(cfg *PolicyConfig, pipeline string) map[string]struct{} {
	set := make(map[string]struct{})
	if cfg == nil {
		return set
	}
	for _, id := range cfg.Pipelines[pipeline].Exclude {
		set[id] = struct{}{}
	}
	return set
}

// ManagedPolicyARN returns the managed policy override for pipeline, or ""
// when none is configured.
func ManagedPolicyARN(cfg *PolicyConfig, pipeline string) string {
	if cfg == nil {
		return ""
	}
	return cfg.Pipelines[pipeline].ManagedPolicyARN
}

// DryRun reports whether the policy forces a dry run.
func DryRun(cfg *PolicyConfig) bool {
	return cfg != nil && cfg.DryRun
}
