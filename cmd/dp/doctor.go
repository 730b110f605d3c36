package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/pankaj-dahiya-devops/dp-remediate/internal/config"
	"github.com/pankaj-dahiya-devops/dp-remediate/internal/engine"
	"github.com/pankaj-dahiya-devops/dp-remediate/internal/policy"
	"github.com/pankaj-dahiya-devops/dp-remediate/internal/providers/aws/common"
)

// DoctorResult is the structured output of dp-remediate doctor. It can be
// serialised to JSON via --format=json or rendered as a human-readable table
// (default).
type DoctorResult struct {
	Config struct {
		Path  string `json:"path"`
		Valid bool   `json:"valid"`
		Error string `json:"error,omitempty"`
	} `json:"config"`

	AWS struct {
		Profile     string `json:"profile,omitempty"`
		Credentials bool   `json:"credentials_ok"`
		AccountID   string `json:"account_id,omitempty"`
		Region      string `json:"region,omitempty"`
		RegionsOK   bool   `json:"regions_ok"`
		Error       string `json:"error,omitempty"`
	} `json:"aws"`

	Policy struct {
		Path    string   `json:"path"`
		Present bool     `json:"present"`
		Valid   bool     `json:"valid"`
		Errors  []string `json:"errors,omitempty"`
	} `json:"policy"`

	OverallHealthy bool `json:"overall_healthy"`
}

func newDoctorCmd(gf *globalFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:           "doctor",
		Short:         "Run environment diagnostics",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			format, _ := cmd.Flags().GetString("format")
			profile, _ := cmd.Flags().GetString("profile")
			policyPath, _ := cmd.Flags().GetString("policy")

			loader := config.NewFileLoader(gf.configPath)
			cfg, cfgErr := loader.Load()
			in := doctorInput{configPath: loader.ConfigPath(), configErr: cfgErr, profile: profile, policyPath: policyPath}
			if cfg != nil {
				if !cmd.Flags().Changed("profile") {
					in.profile = cfg.AWS.DefaultProfile
				}
				if !cmd.Flags().Changed("policy") {
					in.policyPath = cfg.Remediation.PolicyFile
				}
			}

			provider := common.NewDefaultAWSClientProvider()
			if cfg != nil {
				provider.WithFallbackRegion(cfg.AWS.DefaultRegion)
			}

			result, err := runDoctor(cmd.Context(), provider, cmd.OutOrStdout(), format, in)
			if err != nil {
				// Rendering failure; main prints it.
				return err
			}
			if !result.OverallHealthy {
				// Exit directly so no error text reaches main's
				// fmt.Fprintln(os.Stderr, err) path.
				os.Exit(1)
			}
			return nil
		},
	}
	cmd.Flags().String("format", "table", `Output format: "table" or "json"`)
	cmd.Flags().String("profile", "", "AWS profile to use (default: config or credential chain)")
	cmd.Flags().String("policy", policy.DefaultPolicyFile, "Remediation policy file to validate")
	return cmd
}

// doctorInput carries the already-resolved settings runDoctor checks.
type doctorInput struct {
	configPath string
	configErr  error
	profile    string
	policyPath string
}

// runDoctor collects all diagnostic results, renders them to w in the
// requested format, and returns the result.
// The returned error covers only rendering failures (e.g. JSON encode error).
// Callers must inspect result.OverallHealthy to determine whether the
// environment is healthy.
func runDoctor(ctx context.Context, awsProvider common.AWSClientProvider, w io.Writer, format string, in doctorInput) (DoctorResult, error) {
	result := collectDoctorResult(ctx, awsProvider, in)

	switch format {
	case "json":
		if err := json.NewEncoder(w).Encode(result); err != nil {
			return result, fmt.Errorf("encode doctor result: %w", err)
		}
	default:
		renderDoctorTable(result, w)
	}

	return result, nil
}

// collectDoctorResult runs all environment checks and populates a DoctorResult.
// It performs no rendering; callers decide how to present the result.
func collectDoctorResult(ctx context.Context, awsProvider common.AWSClientProvider, in doctorInput) DoctorResult {
	var result DoctorResult

	result.Config.Path = in.configPath
	if in.configErr != nil {
		result.Config.Error = in.configErr.Error()
	} else {
		result.Config.Valid = true
	}

	// AWS: credentials → STS account ID → region discovery.
	// An empty profile string selects the default credential chain.
	result.AWS.Profile = in.profile
	profileCfg, err := awsProvider.LoadProfile(ctx, in.profile)
	if err != nil {
		result.AWS.Error = err.Error()
	} else {
		result.AWS.Credentials = true
		result.AWS.AccountID = profileCfg.AccountID
		result.AWS.Region = profileCfg.Region
		_, err = awsProvider.GetActiveRegions(ctx, profileCfg)
		if err != nil {
			result.AWS.Error = err.Error()
		} else {
			result.AWS.RegionsOK = true
		}
	}

	// Policy: stat → load → validate (file is optional).
	result.Policy.Path = in.policyPath
	_, statErr := os.Stat(in.policyPath)
	if statErr == nil {
		result.Policy.Present = true
		cfg, loadErr := policy.LoadPolicy(in.policyPath)
		if loadErr != nil {
			result.Policy.Errors = []string{loadErr.Error()}
		} else {
			errs := policy.Validate(cfg, engine.AllPipelines)
			if len(errs) == 0 {
				result.Policy.Valid = true
			} else {
				for _, e := range errs {
					result.Policy.Errors = append(result.Policy.Errors, e.Error())
				}
			}
		}
	} else if !os.IsNotExist(statErr) {
		// Stat error other than "not found": present but unreadable.
		result.Policy.Present = true
		result.Policy.Errors = []string{statErr.Error()}
	}

	result.OverallHealthy = result.Config.Valid &&
		result.AWS.Credentials &&
		result.AWS.RegionsOK &&
		(!result.Policy.Present || result.Policy.Valid)

	return result
}

// renderDoctorTable writes the human-readable diagnostic output from result to w.
func renderDoctorTable(result DoctorResult, w io.Writer) {
	fmt.Fprintln(w, "Environment Diagnostics")

	fmt.Fprintln(w, "\nConfig:")
	if result.Config.Valid {
		doctorPrint(w, "Config file", "OK", result.Config.Path)
	} else {
		doctorPrint(w, "Config file", "FAIL", result.Config.Error)
	}

	if result.AWS.Profile != "" {
		fmt.Fprintf(w, "\nAWS (profile: %s):\n", result.AWS.Profile)
	} else {
		fmt.Fprintln(w, "\nAWS:")
	}
	if !result.AWS.Credentials {
		doctorPrint(w, "Credentials", "FAIL", result.AWS.Error)
		doctorPrint(w, "STS Identity", "FAIL", "skipped")
		doctorPrint(w, "Regions API", "FAIL", "skipped")
	} else {
		doctorPrint(w, "Credentials", "OK", "")
		doctorPrint(w, "STS Identity", "OK", "Account: "+result.AWS.AccountID)
		doctorPrint(w, "Home Region", "OK", result.AWS.Region)
		if result.AWS.RegionsOK {
			doctorPrint(w, "Regions API", "OK", "")
		} else {
			doctorPrint(w, "Regions API", "FAIL", result.AWS.Error)
		}
	}

	fmt.Fprintln(w, "\nPolicy:")
	if !result.Policy.Present {
		doctorPrint(w, result.Policy.Path+" present", "Not found (optional)", "")
	} else {
		doctorPrint(w, result.Policy.Path+" present", "YES", "")
		if result.Policy.Valid {
			doctorPrint(w, "Policy valid", "OK", "")
		} else {
			for _, e := range result.Policy.Errors {
				doctorPrint(w, "Policy valid", "FAIL", e)
			}
		}
	}
}

// doctorPrint writes a single diagnostic check line to w.
// When detail is non-empty it is appended in parentheses.
func doctorPrint(w io.Writer, label, status, detail string) {
	if detail != "" {
		fmt.Fprintf(w, "  %s: %s (%s)\n", label, status, detail)
	} else {
		fmt.Fprintf(w, "  %s: %s\n", label, status)
	}
}
