package awsrds

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	rdssvc "github.com/aws/aws-sdk-go-v2/service/rds"
	rdstypes "github.com/aws/aws-sdk-go-v2/service/rds/types"
	"github.com/rs/zerolog"

	"github.com/pankaj-dahiya-devops/dp-remediate/internal/models"
)

// PublicAccessRemediator finds publicly accessible RDS instances and makes
// them private.
type PublicAccessRemediator struct {
	client rdsAPIClient
}

// NewPublicAccessRemediator returns a remediator that issues all calls through
// client. The client is built once by the caller and shared.
func NewPublicAccessRemediator(client rdsAPIClient) *PublicAccessRemediator {
	return &PublicAccessRemediator{client: client}
}

// ListDatabaseInstances returns every DB instance from a single
// DescribeDBInstances call. Pagination is not followed.
func (r *PublicAccessRemediator) ListDatabaseInstances(ctx context.Context) ([]rdstypes.DBInstance, error) {
	out, err := r.client.DescribeDBInstances(ctx, &rdssvc.DescribeDBInstancesInput{})
	if err != nil {
		return nil, fmt.Errorf("describe DB instances: %w", err)
	}
	return out.DBInstances, nil
}

// IsPubliclyAccessible reports whether the instance record has
// PubliclyAccessible set. A nil flag is treated as private.
func IsPubliclyAccessible(db rdstypes.DBInstance) bool {
	return aws.ToBool(db.PubliclyAccessible)
}

// Remediate disables public accessibility when the instance is public and
// applies the change immediately. An already-private instance is left
// untouched and reported as compliant.
func (r *PublicAccessRemediator) Remediate(ctx context.Context, db rdstypes.DBInstance) (models.Status, error) {
	id := aws.ToString(db.DBInstanceIdentifier)
	log := zerolog.Ctx(ctx)

	if !IsPubliclyAccessible(db) {
		log.Debug().Str("resource_id", id).Msg("instance does not have public access")
		return models.StatusCompliant, nil
	}

	_, err := r.client.ModifyDBInstance(ctx, &rdssvc.ModifyDBInstanceInput{
		DBInstanceIdentifier: aws.String(id),
		PubliclyAccessible:   aws.Bool(false),
		ApplyImmediately:     aws.Bool(true),
	})
	if err != nil {
		return models.StatusFailed, fmt.Errorf("modify DB instance %s: %w", id, err)
	}
	return models.StatusRemediated, nil
}
