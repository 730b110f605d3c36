package engine

import (
	"context"
	"errors"
	"sync"

	"github.com/aws/aws-sdk-go-v2/aws"
	ec2svc "github.com/aws/aws-sdk-go-v2/service/ec2"
	ec2types "github.com/aws/aws-sdk-go-v2/service/ec2/types"
	iamsvc "github.com/aws/aws-sdk-go-v2/service/iam"
	iamtypes "github.com/aws/aws-sdk-go-v2/service/iam/types"
	rdssvc "github.com/aws/aws-sdk-go-v2/service/rds"
	rdstypes "github.com/aws/aws-sdk-go-v2/service/rds/types"
	s3svc "github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"

	"github.com/pankaj-dahiya-devops/dp-remediate/internal/providers/aws/common"
)

type s3Grant = s3types.Grant

const allUsersURI = "http://acs.amazonaws.com/groups/global/AllUsers"

// fakeProvider implements common.AWSClientProvider without touching AWS.
type fakeProvider struct {
	profile *common.ProfileConfig
	loadErr error
}

func (f *fakeProvider) LoadProfile(_ context.Context, name string) (*common.ProfileConfig, error) {
	if f.loadErr != nil {
		return nil, f.loadErr
	}
	p := *f.profile
	if name != "" {
		p.ProfileName = name
	}
	return &p, nil
}

func (f *fakeProvider) GetActiveRegions(context.Context, *common.ProfileConfig) ([]string, error) {
	return []string{f.profile.Region}, nil
}

func (f *fakeProvider) ConfigForRegion(_ *common.ProfileConfig, region string) aws.Config {
	return aws.Config{Region: region}
}

// fakeAccount holds per-region fake services and counts factory calls.
type fakeAccount struct {
	mu        sync.Mutex
	regions   map[string]*fakeRegion
	s3        *fakeS3
	iam       *fakeIAM
	factoryBy map[string]int
}

type fakeRegion struct {
	rds *fakeRDS
	ec2 *fakeEC2
}

func newFakeAccount(regions ...string) *fakeAccount {
	a := &fakeAccount{
		regions:   map[string]*fakeRegion{},
		s3:        &fakeS3{buckets: map[string]*fakeBucket{}},
		iam:       &fakeIAM{attached: map[string]bool{}},
		factoryBy: map[string]int{},
	}
	for _, r := range regions {
		a.regions[r] = &fakeRegion{
			rds: &fakeRDS{public: map[string]bool{}},
			ec2: &fakeEC2{profiles: map[string][]string{}},
		}
	}
	return a
}

// factory is a common.ClientFactory keyed on cfg.Region. S3 and IAM are
// account-wide, so every region shares their state; the S3 client still
// refuses buckets hosted in another region.
func (a *fakeAccount) factory(cfg aws.Config) *common.ClientSet {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.factoryBy[cfg.Region]++
	cs := &common.ClientSet{S3: &regionalS3{fakeS3: a.s3, region: cfg.Region}, IAM: a.iam}
	if r, ok := a.regions[cfg.Region]; ok {
		cs.RDS = r.rds
		cs.EC2 = r.ec2
	}
	return cs
}

// ---------------------------------------------------------------------------
// RDS
// ---------------------------------------------------------------------------

type fakeRDS struct {
	order       []string
	public      map[string]bool
	modifyCalls int
}

func (f *fakeRDS) add(id string, public bool) {
	f.order = append(f.order, id)
	f.public[id] = public
}

func (f *fakeRDS) DescribeDBInstances(context.Context, *rdssvc.DescribeDBInstancesInput, ...func(*rdssvc.Options)) (*rdssvc.DescribeDBInstancesOutput, error) {
	out := &rdssvc.DescribeDBInstancesOutput{}
	for _, id := range f.order {
		out.DBInstances = append(out.DBInstances, rdstypes.DBInstance{
			DBInstanceIdentifier: aws.String(id),
			PubliclyAccessible:   aws.Bool(f.public[id]),
		})
	}
	return out, nil
}

func (f *fakeRDS) ModifyDBInstance(_ context.Context, in *rdssvc.ModifyDBInstanceInput, _ ...func(*rdssvc.Options)) (*rdssvc.ModifyDBInstanceOutput, error) {
	f.modifyCalls++
	f.public[aws.ToString(in.DBInstanceIdentifier)] = aws.ToBool(in.PubliclyAccessible)
	return &rdssvc.ModifyDBInstanceOutput{}, nil
}

// ---------------------------------------------------------------------------
// S3
// ---------------------------------------------------------------------------

type fakeBucket struct {
	grants []s3types.Grant
	policy *string
	aclErr error

	// region hosts the bucket; empty means us-east-1. ListBuckets reports it
	// only when listRegion is set.
	region     string
	listRegion bool
}

func (b *fakeBucket) home() string {
	if b.region == "" {
		return "us-east-1"
	}
	return b.region
}

type fakeS3 struct {
	mu          sync.Mutex
	order       []string
	buckets     map[string]*fakeBucket
	listCalls   int
	deleteCalls int

	// servedBy records the client region of every per-bucket call.
	servedBy map[string][]string
}

func (f *fakeS3) add(name string, b *fakeBucket) {
	f.order = append(f.order, name)
	f.buckets[name] = b
}

func (f *fakeS3) ListBuckets(context.Context, *s3svc.ListBucketsInput, ...func(*s3svc.Options)) (*s3svc.ListBucketsOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.listCalls++
	out := &s3svc.ListBucketsOutput{}
	for _, n := range f.order {
		b := s3types.Bucket{Name: aws.String(n)}
		if f.buckets[n].listRegion {
			b.BucketRegion = aws.String(f.buckets[n].home())
		}
		out.Buckets = append(out.Buckets, b)
	}
	return out, nil
}

func (f *fakeS3) GetBucketLocation(_ context.Context, in *s3svc.GetBucketLocationInput, _ ...func(*s3svc.Options)) (*s3svc.GetBucketLocationOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return &s3svc.GetBucketLocationOutput{
		LocationConstraint: s3types.BucketLocationConstraint(f.buckets[aws.ToString(in.Bucket)].region),
	}, nil
}

// route records that region's client was used for bucket and fails the way
// S3 does when the request is signed for a region that does not host it.
func (f *fakeS3) route(bucket *string, region string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	name := aws.ToString(bucket)
	if f.servedBy == nil {
		f.servedBy = map[string][]string{}
	}
	f.servedBy[name] = append(f.servedBy[name], region)
	if home := f.buckets[name].home(); home != region {
		return &smithy.GenericAPIError{Code: "PermanentRedirect", Message: "bucket is in " + home}
	}
	return nil
}

func (f *fakeS3) GetBucketAcl(_ context.Context, in *s3svc.GetBucketAclInput, _ ...func(*s3svc.Options)) (*s3svc.GetBucketAclOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	b := f.buckets[aws.ToString(in.Bucket)]
	if b.aclErr != nil {
		return nil, b.aclErr
	}
	return &s3svc.GetBucketAclOutput{
		Grants: append([]s3types.Grant(nil), b.grants...),
		Owner:  &s3types.Owner{ID: aws.String("owner")},
	}, nil
}

func (f *fakeS3) PutBucketAcl(_ context.Context, in *s3svc.PutBucketAclInput, _ ...func(*s3svc.Options)) (*s3svc.PutBucketAclOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.buckets[aws.ToString(in.Bucket)].grants = in.AccessControlPolicy.Grants
	return &s3svc.PutBucketAclOutput{}, nil
}

func (f *fakeS3) GetBucketPolicy(_ context.Context, in *s3svc.GetBucketPolicyInput, _ ...func(*s3svc.Options)) (*s3svc.GetBucketPolicyOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	b := f.buckets[aws.ToString(in.Bucket)]
	if b.policy == nil {
		return nil, &smithy.GenericAPIError{Code: "NoSuchBucketPolicy", Message: "The bucket policy does not exist"}
	}
	return &s3svc.GetBucketPolicyOutput{Policy: b.policy}, nil
}

func (f *fakeS3) DeleteBucketPolicy(_ context.Context, in *s3svc.DeleteBucketPolicyInput, _ ...func(*s3svc.Options)) (*s3svc.DeleteBucketPolicyOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleteCalls++
	f.buckets[aws.ToString(in.Bucket)].policy = nil
	return &s3svc.DeleteBucketPolicyOutput{}, nil
}

// regionalS3 is the fakeS3 view handed out for one region.
type regionalS3 struct {
	*fakeS3
	region string
}

func (c *regionalS3) GetBucketAcl(ctx context.Context, in *s3svc.GetBucketAclInput, optFns ...func(*s3svc.Options)) (*s3svc.GetBucketAclOutput, error) {
	if err := c.route(in.Bucket, c.region); err != nil {
		return nil, err
	}
	return c.fakeS3.GetBucketAcl(ctx, in, optFns...)
}

func (c *regionalS3) PutBucketAcl(ctx context.Context, in *s3svc.PutBucketAclInput, optFns ...func(*s3svc.Options)) (*s3svc.PutBucketAclOutput, error) {
	if err := c.route(in.Bucket, c.region); err != nil {
		return nil, err
	}
	return c.fakeS3.PutBucketAcl(ctx, in, optFns...)
}

func (c *regionalS3) GetBucketPolicy(ctx context.Context, in *s3svc.GetBucketPolicyInput, optFns ...func(*s3svc.Options)) (*s3svc.GetBucketPolicyOutput, error) {
	if err := c.route(in.Bucket, c.region); err != nil {
		return nil, err
	}
	return c.fakeS3.GetBucketPolicy(ctx, in, optFns...)
}

func (c *regionalS3) DeleteBucketPolicy(ctx context.Context, in *s3svc.DeleteBucketPolicyInput, optFns ...func(*s3svc.Options)) (*s3svc.DeleteBucketPolicyOutput, error) {
	if err := c.route(in.Bucket, c.region); err != nil {
		return nil, err
	}
	return c.fakeS3.DeleteBucketPolicy(ctx, in, optFns...)
}

func allUsersRead() s3types.Grant {
	return s3types.Grant{
		Grantee:    &s3types.Grantee{Type: s3types.TypeGroup, URI: aws.String(allUsersURI)},
		Permission: s3types.PermissionRead,
	}
}

func ownerFull() s3types.Grant {
	return s3types.Grant{
		Grantee:    &s3types.Grantee{Type: s3types.TypeCanonicalUser, ID: aws.String("owner")},
		Permission: s3types.PermissionFullControl,
	}
}

// ---------------------------------------------------------------------------
// EC2 and IAM
// ---------------------------------------------------------------------------

type fakeEC2 struct {
	order    []string
	profiles map[string][]string
}

func (f *fakeEC2) add(instanceID string, profileARNs ...string) {
	f.order = append(f.order, instanceID)
	f.profiles[instanceID] = profileARNs
}

func (f *fakeEC2) DescribeRegions(context.Context, *ec2svc.DescribeRegionsInput, ...func(*ec2svc.Options)) (*ec2svc.DescribeRegionsOutput, error) {
	return &ec2svc.DescribeRegionsOutput{}, nil
}

func (f *fakeEC2) DescribeInstances(context.Context, *ec2svc.DescribeInstancesInput, ...func(*ec2svc.Options)) (*ec2svc.DescribeInstancesOutput, error) {
	var insts []ec2types.Instance
	for _, id := range f.order {
		insts = append(insts, ec2types.Instance{InstanceId: aws.String(id)})
	}
	return &ec2svc.DescribeInstancesOutput{
		Reservations: []ec2types.Reservation{{Instances: insts}},
	}, nil
}

func (f *fakeEC2) DescribeIamInstanceProfileAssociations(_ context.Context, in *ec2svc.DescribeIamInstanceProfileAssociationsInput, _ ...func(*ec2svc.Options)) (*ec2svc.DescribeIamInstanceProfileAssociationsOutput, error) {
	id := in.Filters[0].Values[0]
	out := &ec2svc.DescribeIamInstanceProfileAssociationsOutput{}
	for _, arn := range f.profiles[id] {
		out.IamInstanceProfileAssociations = append(out.IamInstanceProfileAssociations, ec2types.IamInstanceProfileAssociation{
			InstanceId:         aws.String(id),
			IamInstanceProfile: &ec2types.IamInstanceProfile{Arn: aws.String(arn)},
		})
	}
	return out, nil
}

// fakeIAM tracks attachment as "role|policyARN".
type fakeIAM struct {
	mu       sync.Mutex
	attached map[string]bool
	detached []string
}

func (f *fakeIAM) attach(role, policyARN string) {
	f.attached[role+"|"+policyARN] = true
}

func (f *fakeIAM) DetachRolePolicy(_ context.Context, in *iamsvc.DetachRolePolicyInput, _ ...func(*iamsvc.Options)) (*iamsvc.DetachRolePolicyOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	key := aws.ToString(in.RoleName) + "|" + aws.ToString(in.PolicyArn)
	if !f.attached[key] {
		return nil, &iamtypes.NoSuchEntityException{Message: aws.String("policy not attached")}
	}
	delete(f.attached, key)
	f.detached = append(f.detached, aws.ToString(in.RoleName))
	return &iamsvc.DetachRolePolicyOutput{}, nil
}

var errAccessDenied = errors.New("AccessDenied")
