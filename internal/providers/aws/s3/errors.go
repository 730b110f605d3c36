package awss3

import (
	"errors"
	"fmt"

	"github.com/aws/smithy-go"
)

// ErrNoBucketPolicy is returned when a bucket has no policy attached.
// It is the only benign lookup failure; IsPublic treats it as "not public
// via policy".
var ErrNoBucketPolicy = errors.New("bucket has no policy")

// noSuchBucketPolicyCode is the S3 error code for a bucket without a policy.
// The SDK does not model it as a typed error.
const noSuchBucketPolicyCode = "NoSuchBucketPolicy"

// classifyPolicyError maps the SDK's NoSuchBucketPolicy API error onto
// ErrNoBucketPolicy. Every other error is returned wrapped unchanged.
func classifyPolicyError(bucket string, err error) error {
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) && apiErr.ErrorCode() == noSuchBucketPolicyCode {
		return fmt.Errorf("bucket %s: %w", bucket, ErrNoBucketPolicy)
	}
	return fmt.Errorf("get bucket policy for %s: %w", bucket, err)
}
