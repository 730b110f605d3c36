package awsssm

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	ec2svc "github.com/aws/aws-sdk-go-v2/service/ec2"
	ec2types "github.com/aws/aws-sdk-go-v2/service/ec2/types"
	iamsvc "github.com/aws/aws-sdk-go-v2/service/iam"
	iamtypes "github.com/aws/aws-sdk-go-v2/service/iam/types"
)

// DefaultManagedPolicyARN is the AWS managed policy that lets Systems Manager
// manage an instance.
const DefaultManagedPolicyARN = "arn:aws:iam::aws:policy/AmazonSSMManagedInstanceCore"

// PolicyDetacher removes a managed policy from the roles of EC2 instances.
type PolicyDetacher struct {
	ec2       ec2APIClient
	iam       iamAPIClient
	policyARN string
}

// NewPolicyDetacher returns a detacher for policyARN. An empty policyARN
// selects DefaultManagedPolicyARN.
func NewPolicyDetacher(ec2Client ec2APIClient, iamClient iamAPIClient, policyARN string) *PolicyDetacher {
	if policyARN == "" {
		policyARN = DefaultManagedPolicyARN
	}
	return &PolicyDetacher{ec2: ec2Client, iam: iamClient, policyARN: policyARN}
}

// PolicyARN returns the managed policy this detacher removes.
func (d *PolicyDetacher) PolicyARN() string {
	return d.policyARN
}

// ListInstances returns the IDs of all instances from a single
// DescribeInstances call, flattened across reservations in response order.
func (d *PolicyDetacher) ListInstances(ctx context.Context) ([]string, error) {
	out, err := d.ec2.DescribeInstances(ctx, &ec2svc.DescribeInstancesInput{})
	if err != nil {
		return nil, fmt.Errorf("describe instances: %w", err)
	}

	var ids []string
	for _, res := range out.Reservations {
		for _, inst := range res.Instances {
			ids = append(ids, aws.ToString(inst.InstanceId))
		}
	}
	return ids, nil
}

// GetInstanceRole returns the instance-profile ARN associated with
// instanceID. ok is false when the instance has no association or more than
// one; neither case is an error.
func (d *PolicyDetacher) GetInstanceRole(ctx context.Context, instanceID string) (arn string, ok bool, err error) {
	out, err := d.ec2.DescribeIamInstanceProfileAssociations(ctx, &ec2svc.DescribeIamInstanceProfileAssociationsInput{
		Filters: []ec2types.Filter{
			{Name: aws.String("instance-id"), Values: []string{instanceID}},
		},
	})
	if err != nil {
		return "", false, fmt.Errorf("describe instance profile associations for %s: %w", instanceID, err)
	}

	if len(out.IamInstanceProfileAssociations) != 1 {
		return "", false, nil
	}
	profile := out.IamInstanceProfileAssociations[0].IamInstanceProfile
	if profile == nil || aws.ToString(profile.Arn) == "" {
		return "", false, nil
	}
	return aws.ToString(profile.Arn), true, nil
}

// RoleNameFromProfileARN returns the last path segment of an instance-profile
// ARN. This is the role name only when the instance profile and its role are
// named identically, which holds for profiles created by the console but not
// in general.
func RoleNameFromProfileARN(arn string) string {
	if i := strings.LastIndex(arn, "/"); i >= 0 {
		return arn[i+1:]
	}
	return arn
}

// DetachManagedPolicy detaches the managed policy from roleName. A role that
// does not have the policy attached is not an error.
func (d *PolicyDetacher) DetachManagedPolicy(ctx context.Context, roleName string) error {
	_, err := d.Detach(ctx, roleName)
	return err
}

// Detach is DetachManagedPolicy that also reports whether the policy was
// attached. detached is false, with a nil error, when IAM answers
// NoSuchEntity.
func (d *PolicyDetacher) Detach(ctx context.Context, roleName string) (detached bool, err error) {
	_, err = d.iam.DetachRolePolicy(ctx, &iamsvc.DetachRolePolicyInput{
		RoleName:  aws.String(roleName),
		PolicyArn: aws.String(d.policyARN),
	})
	if err == nil {
		return true, nil
	}

	var notFound *iamtypes.NoSuchEntityException
	if errors.As(err, &notFound) {
		return false, nil
	}
	return false, fmt.Errorf("detach %s from role %s: %w", d.policyARN, roleName, err)
}
