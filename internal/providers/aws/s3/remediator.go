package awss3

import (
	"context"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	s3svc "github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/rs/zerolog"
)

// Exposure names the mechanism that makes a bucket public.
type Exposure string

const (
	ExposureNone   Exposure = ""
	ExposureACL    Exposure = "acl"
	ExposurePolicy Exposure = "policy"
)

// PublicAccessRemediator evaluates buckets for public exposure and strips it.
type PublicAccessRemediator struct {
	client s3APIClient
}

// NewPublicAccessRemediator returns a remediator that issues all calls
// through client.
func NewPublicAccessRemediator(client s3APIClient) *PublicAccessRemediator {
	return &PublicAccessRemediator{client: client}
}

// ListBuckets returns the names of all buckets owned by the account.
func (r *PublicAccessRemediator) ListBuckets(ctx context.Context) ([]string, error) {
	buckets, err := r.ListBucketLocations(ctx)
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(buckets))
	for _, b := range buckets {
		names = append(names, b.Name)
	}
	return names, nil
}

// IsPublic reports whether the bucket is exposed via its ACL or its policy.
// See Inspect for the exact rules and error handling.
func (r *PublicAccessRemediator) IsPublic(ctx context.Context, bucket string) (bool, error) {
	exp, err := r.Inspect(ctx, bucket)
	if err != nil {
		return false, err
	}
	return exp != ExposureNone, nil
}

// Inspect returns how the bucket is exposed. The ACL is checked first; when it
// grants anything to AllUsers the policy is not fetched. A missing policy
// means "not public via policy". Any other ACL or policy lookup error aborts
// the evaluation and is returned.
func (r *PublicAccessRemediator) Inspect(ctx context.Context, bucket string) (Exposure, error) {
	acl, err := r.client.GetBucketAcl(ctx, &s3svc.GetBucketAclInput{Bucket: aws.String(bucket)})
	if err != nil {
		return ExposureNone, fmt.Errorf("get bucket ACL for %s: %w", bucket, err)
	}
	if GrantsAllUsers(acl.Grants) {
		return ExposureACL, nil
	}

	doc, err := r.bucketPolicy(ctx, bucket)
	if errors.Is(err, ErrNoBucketPolicy) {
		return ExposureNone, nil
	}
	if err != nil {
		return ExposureNone, err
	}

	if doc.AllowsAnonymous() {
		return ExposurePolicy, nil
	}
	if ids := doc.wildcardObjectPrincipals(); len(ids) > 0 {
		zerolog.Ctx(ctx).Warn().
			Str("resource_id", bucket).
			Strs("statements", ids).
			Msg("bucket policy allows a wildcard principal object; not treated as public")
	}
	return ExposureNone, nil
}

// bucketPolicy fetches and parses the bucket policy. It returns an error
// wrapping ErrNoBucketPolicy when the bucket has none.
func (r *PublicAccessRemediator) bucketPolicy(ctx context.Context, bucket string) (*PolicyDocument, error) {
	out, err := r.client.GetBucketPolicy(ctx, &s3svc.GetBucketPolicyInput{Bucket: aws.String(bucket)})
	if err != nil {
		return nil, classifyPolicyError(bucket, err)
	}
	doc, err := ParsePolicy(aws.ToString(out.Policy))
	if err != nil {
		return nil, fmt.Errorf("bucket %s: %w", bucket, err)
	}
	return doc, nil
}

// RemovePublicAccess rewrites the bucket ACL without the AllUsers grants,
// keeping every other grant and the owner as they are, and then deletes the
// bucket policy whether or not it was the source of exposure.
func (r *PublicAccessRemediator) RemovePublicAccess(ctx context.Context, bucket string) error {
	acl, err := r.client.GetBucketAcl(ctx, &s3svc.GetBucketAclInput{Bucket: aws.String(bucket)})
	if err != nil {
		return fmt.Errorf("get bucket ACL for %s: %w", bucket, err)
	}

	_, err = r.client.PutBucketAcl(ctx, &s3svc.PutBucketAclInput{
		Bucket: aws.String(bucket),
		AccessControlPolicy: &s3types.AccessControlPolicy{
			Grants: WithoutAllUsers(acl.Grants),
			Owner:  acl.Owner,
		},
	})
	if err != nil {
		return fmt.Errorf("put bucket ACL for %s: %w", bucket, err)
	}

	if _, err := r.client.DeleteBucketPolicy(ctx, &s3svc.DeleteBucketPolicyInput{Bucket: aws.String(bucket)}); err != nil {
		return fmt.Errorf("delete bucket policy for %s: %w", bucket, err)
	}
	return nil
}
