// Package awsssm detaches the SSM managed-instance policy from the IAM roles
// behind EC2 instance profiles.
package awsssm

import (
	"context"

	ec2svc "github.com/aws/aws-sdk-go-v2/service/ec2"
	iamsvc "github.com/aws/aws-sdk-go-v2/service/iam"
)

// ec2APIClient is the narrow EC2 interface used to enumerate instances and
// their instance-profile associations.
type ec2APIClient interface {
	DescribeInstances(ctx context.Context, params *ec2svc.DescribeInstancesInput, optFns ...func(*ec2svc.Options)) (*ec2svc.DescribeInstancesOutput, error)
	DescribeIamInstanceProfileAssociations(ctx context.Context, params *ec2svc.DescribeIamInstanceProfileAssociationsInput, optFns ...func(*ec2svc.Options)) (*ec2svc.DescribeIamInstanceProfileAssociationsOutput, error)
}

// iamAPIClient is the narrow IAM interface used to detach the policy.
type iamAPIClient interface {
	DetachRolePolicy(ctx context.Context, params *iamsvc.DetachRolePolicyInput, optFns ...func(*iamsvc.Options)) (*iamsvc.DetachRolePolicyOutput, error)
}
