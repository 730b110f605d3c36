package awss3

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// PolicyDocument is the subset of an S3 bucket policy needed to decide
// whether it grants anonymous access.
type PolicyDocument struct {
	Version   string      `json:"Version"`
	Statement []Statement `json:"Statement"`
}

// Statement is one bucket policy statement. Principal and Action are kept as
// raw JSON because both may be a string, a list, or an object.
type Statement struct {
	Sid       string          `json:"Sid,omitempty"`
	Effect    string          `json:"Effect"`
	Principal json.RawMessage `json:"Principal,omitempty"`
	Action    json.RawMessage `json:"Action,omitempty"`
}

// UnmarshalJSON accepts Statement as either a single object or a list.
func (d *PolicyDocument) UnmarshalJSON(data []byte) error {
	var raw struct {
		Version   string          `json:"Version"`
		Statement json.RawMessage `json:"Statement"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	d.Version = raw.Version
	d.Statement = nil

	trimmed := bytes.TrimSpace(raw.Statement)
	switch {
	case len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")):
		return nil
	case trimmed[0] == '{':
		var s Statement
		if err := json.Unmarshal(trimmed, &s); err != nil {
			return fmt.Errorf("statement: %w", err)
		}
		d.Statement = []Statement{s}
		return nil
	default:
		if err := json.Unmarshal(trimmed, &d.Statement); err != nil {
			return fmt.Errorf("statement: %w", err)
		}
		return nil
	}
}

// ParsePolicy decodes a bucket policy JSON document.
func ParsePolicy(doc string) (*PolicyDocument, error) {
	var p PolicyDocument
	if err := json.Unmarshal([]byte(doc), &p); err != nil {
		return nil, fmt.Errorf("parse bucket policy: %w", err)
	}
	return &p, nil
}

// PrincipalIsWildcard reports whether the principal is exactly the JSON
// string "*". Object forms such as {"AWS": "*"} do not match.
func (s Statement) PrincipalIsWildcard() bool {
	var p string
	if err := json.Unmarshal(s.Principal, &p); err != nil {
		return false
	}
	return p == "*"
}

// PrincipalMentionsWildcard reports whether the principal is an object with
// "*" among its values, e.g. {"AWS": "*"} or {"AWS": ["*"]}.
// Such statements are just as open as a bare "*" but are not treated as
// public by AllowsAnonymous.
func (s Statement) PrincipalMentionsWildcard() bool {
	var m map[string]json.RawMessage
	if err := json.Unmarshal(s.Principal, &m); err != nil {
		return false
	}
	for _, v := range m {
		var one string
		if json.Unmarshal(v, &one) == nil && one == "*" {
			return true
		}
		var many []string
		if json.Unmarshal(v, &many) == nil {
			for _, p := range many {
				if p == "*" {
					return true
				}
			}
		}
	}
	return false
}

// AllowsAnonymous reports whether any statement has Effect "Allow" and a
// principal of exactly "*".
func (d *PolicyDocument) AllowsAnonymous() bool {
	for _, s := range d.Statement {
		if s.Effect == "Allow" && s.PrincipalIsWildcard() {
			return true
		}
	}
	return false
}

// wildcardObjectPrincipals returns the Sids (or indexes) of Allow statements
// whose principal object contains "*".
func (d *PolicyDocument) wildcardObjectPrincipals() []string {
	var ids []string
	for i, s := range d.Statement {
		if s.Effect != "Allow" || !s.PrincipalMentionsWildcard() {
			continue
		}
		if s.Sid != "" {
			ids = append(ids, s.Sid)
		} else {
			ids = append(ids, fmt.Sprintf("#%d", i))
		}
	}
	return ids
}
