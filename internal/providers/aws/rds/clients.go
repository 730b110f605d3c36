// Package awsrds disables public accessibility on RDS database instances.
package awsrds

import (
	"context"

	rdssvc "github.com/aws/aws-sdk-go-v2/service/rds"
)

// rdsAPIClient is the narrow RDS interface used by the remediator.
type rdsAPIClient interface {
	DescribeDBInstances(ctx context.Context, params *rdssvc.DescribeDBInstancesInput, optFns ...func(*rdssvc.Options)) (*rdssvc.DescribeDBInstancesOutput, error)
	ModifyDBInstance(ctx context.Context, params *rdssvc.ModifyDBInstanceInput, optFns ...func(*rdssvc.Options)) (*rdssvc.ModifyDBInstanceOutput, error)
}
