// Package policy performs shape checks on bucket policy documents.
//
// The policy is authored by operators and consumed verbatim by the object
// store; this package only verifies that a document intended to grant public
// read looks structurally right before it is applied out of band.
package policy

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/forgeops/sitesync/errors"
)

// Document is the subset of a bucket policy this module understands.
type Document struct {
	Version   string      `json:"Version"`
	Statement []Statement `json:"Statement"`
}

// Statement is a single policy statement.
type Statement struct {
	Sid       string          `json:"Sid,omitempty"`
	Effect    string          `json:"Effect"`
	Principal json.RawMessage `json:"Principal"`
	Action    StringOrSlice   `json:"Action"`
	Resource  StringOrSlice   `json:"Resource"`
}

// StringOrSlice accepts both the scalar and list forms IAM documents allow.
type StringOrSlice []string

// UnmarshalJSON implements json.Unmarshaler.
func (s *StringOrSlice) UnmarshalJSON(data []byte) error {
	var single string
	if err := json.Unmarshal(data, &single); err == nil {
		*s = []string{single}
		return nil
	}
	var many []string
	if err := json.Unmarshal(data, &many); err != nil {
		return fmt.Errorf("expected string or array of strings: %w", err)
	}
	*s = many
	return nil
}

// CheckPublicRead verifies that raw parses as a policy document granting
// public s3:GetObject on some object path pattern. It checks shape only; the
// object store is the authority on semantics.
func CheckPublicRead(raw []byte) error {
	var doc Document
	if err := json.Unmarshal(raw, &doc); err != nil {
		return errors.NewError("policy", fmt.Errorf("%w: not valid JSON: %v", errors.ErrInvalidInput, err))
	}

	if doc.Version == "" {
		return errors.NewError("policy", errors.ErrInvalidInput).
			WithMessage("policy document missing Version")
	}
	if len(doc.Statement) == 0 {
		return errors.NewError("policy", errors.ErrInvalidInput).
			WithMessage("policy document has no statements")
	}

	for _, stmt := range doc.Statement {
		if publicReadStatement(stmt) {
			return nil
		}
	}

	return errors.NewError("policy", errors.ErrInvalidInput).
		WithMessage("no statement grants public s3:GetObject")
}

// publicReadStatement reports whether stmt allows anyone to read objects.
func publicReadStatement(stmt Statement) bool {
	if stmt.Effect != "Allow" {
		return false
	}
	if !principalIsPublic(stmt.Principal) {
		return false
	}

	hasGet := false
	for _, action := range stmt.Action {
		if action == "s3:GetObject" || action == "s3:*" {
			hasGet = true
			break
		}
	}
	if !hasGet {
		return false
	}

	for _, resource := range stmt.Resource {
		if strings.HasPrefix(resource, "arn:aws:s3:::") && strings.Contains(resource, "/") {
			return true
		}
	}
	return false
}

// principalIsPublic accepts the two public forms: "*" and {"AWS": "*"}.
func principalIsPublic(raw json.RawMessage) bool {
	var star string
	if err := json.Unmarshal(raw, &star); err == nil {
		return star == "*"
	}
	var obj map[string]StringOrSlice
	if err := json.Unmarshal(raw, &obj); err != nil {
		return false
	}
	for _, vals := range obj {
		for _, v := range vals {
			if v == "*" {
				return true
			}
		}
	}
	return false
}
