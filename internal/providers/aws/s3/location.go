package awss3

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	s3svc "github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"
)

// Bucket is a bucket name and the region that hosts it. Region is empty when
// ListBuckets did not report it; BucketRegion resolves it then.
type Bucket struct {
	Name   string
	Region string
}

// ListBucketLocations returns all buckets owned by the account in listing
// order, with the region ListBuckets reports for each.
func (r *PublicAccessRemediator) ListBucketLocations(ctx context.Context) ([]Bucket, error) {
	out, err := r.client.ListBuckets(ctx, &s3svc.ListBucketsInput{})
	if err != nil {
		return nil, fmt.Errorf("list S3 buckets: %w", err)
	}
	buckets := make([]Bucket, 0, len(out.Buckets))
	for _, b := range out.Buckets {
		buckets = append(buckets, Bucket{
			Name:   aws.ToString(b.Name),
			Region: aws.ToString(b.BucketRegion),
		})
	}
	return buckets, nil
}

// BucketRegion returns the region hosting bucket. GetBucketLocation reports an
// empty constraint for us-east-1 and the legacy "EU" for eu-west-1.
func (r *PublicAccessRemediator) BucketRegion(ctx context.Context, bucket string) (string, error) {
	out, err := r.client.GetBucketLocation(ctx, &s3svc.GetBucketLocationInput{Bucket: aws.String(bucket)})
	if err != nil {
		return "", fmt.Errorf("get bucket location for %s: %w", bucket, err)
	}
	switch out.LocationConstraint {
	case "":
		return "us-east-1", nil
	case s3types.BucketLocationConstraintEu:
		return "eu-west-1", nil
	}
	return string(out.LocationConstraint), nil
}
