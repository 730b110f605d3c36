// Package awss3 detects and removes public access on S3 buckets.
//
// A bucket is public when its ACL grants anything to the AllUsers group, or
// when its bucket policy has an Allow statement whose principal is exactly the
// string "*". Remediation strips the AllUsers grants and deletes the bucket
// policy outright.
package awss3

import (
	"context"

	s3svc "github.com/aws/aws-sdk-go-v2/service/s3"
)

// s3APIClient is the narrow S3 interface used by the remediator.
type s3APIClient interface {
	ListBuckets(ctx context.Context, params *s3svc.ListBucketsInput, optFns ...func(*s3svc.Options)) (*s3svc.ListBucketsOutput, error)
	GetBucketLocation(ctx context.Context, params *s3svc.GetBucketLocationInput, optFns ...func(*s3svc.Options)) (*s3svc.GetBucketLocationOutput, error)
	GetBucketAcl(ctx context.Context, params *s3svc.GetBucketAclInput, optFns ...func(*s3svc.Options)) (*s3svc.GetBucketAclOutput, error)
	PutBucketAcl(ctx context.Context, params *s3svc.PutBucketAclInput, optFns ...func(*s3svc.Options)) (*s3svc.PutBucketAclOutput, error)
	GetBucketPolicy(ctx context.Context, params *s3svc.GetBucketPolicyInput, optFns ...func(*s3svc.Options)) (*s3svc.GetBucketPolicyOutput, error)
	DeleteBucketPolicy(ctx context.Context, params *s3svc.DeleteBucketPolicyInput, optFns ...func(*s3svc.Options)) (*s3svc.DeleteBucketPolicyOutput, error)
}
