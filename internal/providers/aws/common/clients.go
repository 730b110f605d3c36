package common

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ec2"
	"github.com/aws/aws-sdk-go-v2/service/iam"
	"github.com/aws/aws-sdk-go-v2/service/rds"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/sts"
)

// ---------------------------------------------------------------------------
// Per-service client interfaces
//
// Each interface covers only the operations used by this project. The
// remediation packages declare narrower views of the same methods, so a fake
// written against one of them never has to implement the full SDK surface.
// ---------------------------------------------------------------------------

// STSClient is the subset of STS operations used by the loader.
type STSClient interface {
	GetCallerIdentity(
		ctx context.Context,
		params *sts.GetCallerIdentityInput,
		optFns ...func(*sts.Options),
	) (*sts.GetCallerIdentityOutput, error)
}

// EC2Client covers region discovery plus the instance and instance-profile
// association lookups used by the SSM policy detacher.
type EC2Client interface {
	DescribeRegions(
		ctx context.Context,
		params *ec2.DescribeRegionsInput,
		optFns ...func(*ec2.Options),
	) (*ec2.DescribeRegionsOutput, error)

	DescribeInstances(
		ctx context.Context,
		params *ec2.DescribeInstancesInput,
		optFns ...func(*ec2.Options),
	) (*ec2.DescribeInstancesOutput, error)

	DescribeIamInstanceProfileAssociations(
		ctx context.Context,
		params *ec2.DescribeIamInstanceProfileAssociationsInput,
		optFns ...func(*ec2.Options),
	) (*ec2.DescribeIamInstanceProfileAssociationsOutput, error)
}

// RDSClient covers the RDS operations used by the public-access remediator.
type RDSClient interface {
	DescribeDBInstances(
		ctx context.Context,
		params *rds.DescribeDBInstancesInput,
		optFns ...func(*rds.Options),
	) (*rds.DescribeDBInstancesOutput, error)

	ModifyDBInstance(
		ctx context.Context,
		params *rds.ModifyDBInstanceInput,
		optFns ...func(*rds.Options),
	) (*rds.ModifyDBInstanceOutput, error)
}

// S3Client covers bucket listing, bucket region lookup and the ACL /
// bucket-policy operations used by the public-access remediator.
type S3Client interface {
	ListBuckets(
		ctx context.Context,
		params *s3.ListBucketsInput,
		optFns ...func(*s3.Options),
	) (*s3.ListBucketsOutput, error)

	GetBucketLocation(
		ctx context.Context,
		params *s3.GetBucketLocationInput,
		optFns ...func(*s3.Options),
	) (*s3.GetBucketLocationOutput, error)

	GetBucketAcl(
		ctx context.Context,
		params *s3.GetBucketAclInput,
		optFns ...func(*s3.Options),
	) (*s3.GetBucketAclOutput, error)

	PutBucketAcl(
		ctx context.Context,
		params *s3.PutBucketAclInput,
		optFns ...func(*s3.Options),
	) (*s3.PutBucketAclOutput, error)

	GetBucketPolicy(
		ctx context.Context,
		params *s3.GetBucketPolicyInput,
		optFns ...func(*s3.Options),
	) (*s3.GetBucketPolicyOutput, error)

	DeleteBucketPolicy(
		ctx context.Context,
		params *s3.DeleteBucketPolicyInput,
		optFns ...func(*s3.Options),
	) (*s3.DeleteBucketPolicyOutput, error)
}

// IAMClient covers the IAM operations used by the SSM policy detacher.
type IAMClient interface {
	DetachRolePolicy(
		ctx context.Context,
		params *iam.DetachRolePolicyInput,
		optFns ...func(*iam.Options),
	) (*iam.DetachRolePolicyOutput, error)
}

// ---------------------------------------------------------------------------
// ClientSet and ClientFactory
// ---------------------------------------------------------------------------

// ClientSet holds AWS service clients for a given profile and region. All
// fields are interfaces so they can be replaced with fakes in tests.
// A ClientSet is built once per region and shared by every pipeline that runs
// there; remediation code never constructs its own SDK clients.
type ClientSet struct {
	STS STSClient
	EC2 EC2Client
	RDS RDSClient
	S3  S3Client
	IAM IAMClient
}

// ClientFactory creates a ClientSet from an aws.Config.
// Swap this in tests to inject fake clients.
type ClientFactory func(cfg aws.Config) *ClientSet

// NewClientSet is the production ClientFactory.
func NewClientSet(cfg aws.Config) *ClientSet {
	return &ClientSet{
		STS: sts.NewFromConfig(cfg),
		EC2: ec2.NewFromConfig(cfg),
		RDS: rds.NewFromConfig(cfg),
		S3:  s3.NewFromConfig(cfg),
		IAM: iam.NewFromConfig(cfg),
	}
}
