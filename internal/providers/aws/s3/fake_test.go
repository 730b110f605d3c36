package awss3

import (
	"context"
	"errors"

	"github.com/aws/aws-sdk-go-v2/aws"
	s3svc "github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"
)

// fakeBucket is the in-memory state of one bucket.
type fakeBucket struct {
	owner  *s3types.Owner
	grants []s3types.Grant
	policy *string

	// region is reported by ListBuckets only when listRegion is set; location
	// is the raw GetBucketLocation constraint.
	region     string
	listRegion bool
	location   s3types.BucketLocationConstraint
}

// fakeS3 models just enough of S3 for the remediator: ACLs and policies are
// stored per bucket and mutated by Put/Delete calls.
type fakeS3 struct {
	order   []string
	buckets map[string]*fakeBucket

	listErr     error
	locationErr error
	aclErr      error
	putErr    error
	policyErr error
	deleteErr error

	policyCalls  int
	putCalls     int
	deleteCalls  int
	lastPutInput *s3svc.PutBucketAclInput
}

func newFakeS3() *fakeS3 {
	return &fakeS3{buckets: make(map[string]*fakeBucket)}
}

func (f *fakeS3) addBucket(name string, grants ...s3types.Grant) *fakeBucket {
	b := &fakeBucket{
		owner:  &s3types.Owner{ID: aws.String("owner-canonical-id"), DisplayName: aws.String("owner")},
		grants: grants,
	}
	f.order = append(f.order, name)
	f.buckets[name] = b
	return b
}

func (f *fakeS3) ListBuckets(_ context.Context, _ *s3svc.ListBucketsInput, _ ...func(*s3svc.Options)) (*s3svc.ListBucketsOutput, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	out := &s3svc.ListBucketsOutput{}
	for _, name := range f.order {
		b := s3types.Bucket{Name: aws.String(name)}
		if fb := f.buckets[name]; fb.listRegion {
			b.BucketRegion = aws.String(fb.region)
		}
		out.Buckets = append(out.Buckets, b)
	}
	return out, nil
}

func (f *fakeS3) GetBucketLocation(_ context.Context, in *s3svc.GetBucketLocationInput, _ ...func(*s3svc.Options)) (*s3svc.GetBucketLocationOutput, error) {
	if f.locationErr != nil {
		return nil, f.locationErr
	}
	b, ok := f.buckets[aws.ToString(in.Bucket)]
	if !ok {
		return nil, &smithy.GenericAPIError{Code: "NoSuchBucket", Message: "not found"}
	}
	return &s3svc.GetBucketLocationOutput{LocationConstraint: b.location}, nil
}

func (f *fakeS3) GetBucketAcl(_ context.Context, in *s3svc.GetBucketAclInput, _ ...func(*s3svc.Options)) (*s3svc.GetBucketAclOutput, error) {
	if f.aclErr != nil {
		return nil, f.aclErr
	}
	b, ok := f.buckets[aws.ToString(in.Bucket)]
	if !ok {
		return nil, &smithy.GenericAPIError{Code: "NoSuchBucket", Message: "not found"}
	}
	grants := make([]s3types.Grant, len(b.grants))
	copy(grants, b.grants)
	return &s3svc.GetBucketAclOutput{Owner: b.owner, Grants: grants}, nil
}

func (f *fakeS3) PutBucketAcl(_ context.Context, in *s3svc.PutBucketAclInput, _ ...func(*s3svc.Options)) (*s3svc.PutBucketAclOutput, error) {
	f.putCalls++
	f.lastPutInput = in
	if f.putErr != nil {
		return nil, f.putErr
	}
	b := f.buckets[aws.ToString(in.Bucket)]
	b.grants = in.AccessControlPolicy.Grants
	b.owner = in.AccessControlPolicy.Owner
	return &s3svc.PutBucketAclOutput{}, nil
}

func (f *fakeS3) GetBucketPolicy(_ context.Context, in *s3svc.GetBucketPolicyInput, _ ...func(*s3svc.Options)) (*s3svc.GetBucketPolicyOutput, error) {
	f.policyCalls++
	if f.policyErr != nil {
		return nil, f.policyErr
	}
	b := f.buckets[aws.ToString(in.Bucket)]
	if b == nil || b.policy == nil {
		return nil, &smithy.GenericAPIError{Code: "NoSuchBucketPolicy", Message: "The bucket policy does not exist"}
	}
	return &s3svc.GetBucketPolicyOutput{Policy: b.policy}, nil
}

func (f *fakeS3) DeleteBucketPolicy(_ context.Context, in *s3svc.DeleteBucketPolicyInput, _ ...func(*s3svc.Options)) (*s3svc.DeleteBucketPolicyOutput, error) {
	f.deleteCalls++
	if f.deleteErr != nil {
		return nil, f.deleteErr
	}
	if b := f.buckets[aws.ToString(in.Bucket)]; b != nil {
		b.policy = nil
	}
	return &s3svc.DeleteBucketPolicyOutput{}, nil
}

var errAccessDenied = errors.New("AccessDenied")

func allUsersGrant(p s3types.Permission) s3types.Grant {
	return s3types.Grant{
		Grantee:    &s3types.Grantee{Type: s3types.TypeGroup, URI: aws.String(AllUsersURI)},
		Permission: p,
	}
}

func ownerGrant() s3types.Grant {
	return s3types.Grant{
		Grantee:    &s3types.Grantee{Type: s3types.TypeCanonicalUser, ID: aws.String("owner-canonical-id")},
		Permission: s3types.PermissionFullControl,
	}
}

func logDeliveryGrant() s3types.Grant {
	return s3types.Grant{
		Grantee:    &s3types.Grantee{Type: s3types.TypeGroup, URI: aws.String("http://acs.amazonaws.com/groups/s3/LogDelivery")},
		Permission: s3types.PermissionWrite,
	}
}
