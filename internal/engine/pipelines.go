package engine

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	rdstypes "github.com/aws/aws-sdk-go-v2/service/rds/types"
	"github.com/rs/zerolog"

	"github.com/pankaj-dahiya-devops/dp-remediate/internal/models"
	awsrds "github.com/pankaj-dahiya-devops/dp-remediate/internal/providers/aws/rds"
	awss3 "github.com/pankaj-dahiya-devops/dp-remediate/internal/providers/aws/s3"
	awsssm "github.com/pankaj-dahiya-devops/dp-remediate/internal/providers/aws/ssm"
)

// rdsPipeline disables public accessibility on DB instances.
type rdsPipeline struct {
	r *awsrds.PublicAccessRemediator
}

func (rdsPipeline) Name() string                      { return PipelineRDS }
func (rdsPipeline) ResourceType() models.ResourceType { return models.ResourceAWSRDS }

func (p rdsPipeline) List(ctx context.Context) ([]rdstypes.DBInstance, error) {
	return p.r.ListDatabaseInstances(ctx)
}

func (rdsPipeline) ResourceID(db rdstypes.DBInstance) string {
	return aws.ToString(db.DBInstanceIdentifier)
}

func (rdsPipeline) Evaluate(_ context.Context, db rdstypes.DBInstance) (models.Assessment, error) {
	if !awsrds.IsPubliclyAccessible(db) {
		return models.Assessment{Verdict: models.VerdictCompliant}, nil
	}
	return models.Assessment{Verdict: models.VerdictExposed, Reason: "publicly accessible"}, nil
}

func (p rdsPipeline) Remediate(ctx context.Context, db rdstypes.DBInstance, _ models.Assessment) (models.Status, error) {
	return p.r.Remediate(ctx, db)
}

// s3Pipeline strips AllUsers ACL grants and bucket policies. Buckets are
// listed account-wide through lister; every per-bucket call goes through the
// client for the bucket's own region, since S3 rejects requests signed for
// another region.
type s3Pipeline struct {
	lister    *awss3.PublicAccessRemediator
	forRegion func(region string) *awss3.PublicAccessRemediator
}

func (s3Pipeline) Name() string                      { return PipelineS3 }
func (s3Pipeline) ResourceType() models.ResourceType { return models.ResourceAWSS3Bucket }

func (p s3Pipeline) List(ctx context.Context) ([]awss3.Bucket, error) {
	return p.lister.ListBucketLocations(ctx)
}

func (s3Pipeline) ResourceID(b awss3.Bucket) string { return b.Name }

func (p s3Pipeline) Evaluate(ctx context.Context, b awss3.Bucket) (models.Assessment, error) {
	region := b.Region
	if region == "" {
		var err error
		if region, err = p.lister.BucketRegion(ctx, b.Name); err != nil {
			return models.Assessment{}, err
		}
	}

	exp, err := p.forRegion(region).Inspect(ctx, b.Name)
	if err != nil {
		return models.Assessment{}, err
	}
	a := models.Assessment{Verdict: models.VerdictCompliant, Region: region}
	switch exp {
	case awss3.ExposureACL:
		a.Verdict, a.Reason = models.VerdictExposed, "ACL grants access to AllUsers"
	case awss3.ExposurePolicy:
		a.Verdict, a.Reason = models.VerdictExposed, "bucket policy allows principal *"
	}
	return a, nil
}

func (p s3Pipeline) Remediate(ctx context.Context, b awss3.Bucket, a models.Assessment) (models.Status, error) {
	if err := p.forRegion(a.Region).RemovePublicAccess(ctx, b.Name); err != nil {
		return models.StatusFailed, err
	}
	return models.StatusRemediated, nil
}

// ssmPipeline detaches the SSM managed policy from instance roles.
type ssmPipeline struct {
	d *awsssm.PolicyDetacher
}

func (ssmPipeline) Name() string                      { return PipelineSSM }
func (ssmPipeline) ResourceType() models.ResourceType { return models.ResourceAWSEC2Instance }

func (p ssmPipeline) List(ctx context.Context) ([]string, error) {
	return p.d.ListInstances(ctx)
}

func (ssmPipeline) ResourceID(instanceID string) string { return instanceID }

func (p ssmPipeline) Evaluate(ctx context.Context, instanceID string) (models.Assessment, error) {
	profileARN, ok, err := p.d.GetInstanceRole(ctx, instanceID)
	if err != nil {
		return models.Assessment{}, err
	}
	if !ok {
		return models.Assessment{
			Verdict: models.VerdictNotApplicable,
			Reason:  "no single instance profile association",
		}, nil
	}

	role := awsssm.RoleNameFromProfileARN(profileARN)
	zerolog.Ctx(ctx).Debug().
		Str("instance_profile_arn", profileARN).
		Str("role_name", role).
		Msg("derived role name from instance profile")

	return models.Assessment{
		Verdict: models.VerdictExposed,
		Reason:  fmt.Sprintf("role %s may carry %s", role, p.d.PolicyARN()),
		Target:  role,
	}, nil
}

func (p ssmPipeline) Remediate(ctx context.Context, _ string, a models.Assessment) (models.Status, error) {
	detached, err := p.d.Detach(ctx, a.Target)
	if err != nil {
		return models.StatusFailed, err
	}
	if !detached {
		return models.StatusCompliant, nil
	}
	return models.StatusRemediated, nil
}
