package awss3

import (
	"github.com/aws/aws-sdk-go-v2/aws"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"
)

// AllUsersURI is the grantee URI of the reserved "everyone" group.
const AllUsersURI = "http://acs.amazonaws.com/groups/global/AllUsers"

// isAllUsersGrant reports whether g grants a permission to AllUsers.
// The URI must match exactly.
func isAllUsersGrant(g s3types.Grant) bool {
	return g.Grantee != nil && aws.ToString(g.Grantee.URI) == AllUsersURI
}

// GrantsAllUsers reports whether any grant in the list targets AllUsers,
// whatever the permission level.
func GrantsAllUsers(grants []s3types.Grant) bool {
	for _, g := range grants {
		if isAllUsersGrant(g) {
			return true
		}
	}
	return false
}

// WithoutAllUsers returns the grants that do not target AllUsers, in their
// original order. The input slice is not modified.
func WithoutAllUsers(grants []s3types.Grant) []s3types.Grant {
	kept := make([]s3types.Grant, 0, len(grants))
	for _, g := range grants {
		if !isAllUsersGrant(g) {
			kept = append(kept, g)
		}
	}
	return kept
}
