package policy

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/forgeops/sitesync/errors"
)

const publicReadPolicy = `{
	"Version": "2012-10-17",
	"Statement": [{
		"Sid": "PublicReadGetObject",
		"Effect": "Allow",
		"Principal": "*",
		"Action": "s3:GetObject",
		"Resource": "arn:aws:s3:::my-site/*"
	}]
}`

func TestCheckPublicRead(t *testing.T) {
	t.Run("accepts the canonical public read policy", func(t *testing.T) {
		assert.NoError(t, CheckPublicRead([]byte(publicReadPolicy)))
	})

	t.Run("accepts AWS principal object form", func(t *testing.T) {
		doc := `{
			"Version": "2012-10-17",
			"Statement": [{
				"Effect": "Allow",
				"Principal": {"AWS": "*"},
				"Action": ["s3:GetObject"],
				"Resource": ["arn:aws:s3:::my-site/*"]
			}]
		}`
		assert.NoError(t, CheckPublicRead([]byte(doc)))
	})

	t.Run("accepts wildcard action", func(t *testing.T) {
		doc := `{
			"Version": "2012-10-17",
			"Statement": [{
				"Effect": "Allow",
				"Principal": "*",
				"Action": "s3:*",
				"Resource": "arn:aws:s3:::my-site/*"
			}]
		}`
		assert.NoError(t, CheckPublicRead([]byte(doc)))
	})

	t.Run("finds the granting statement among others", func(t *testing.T) {
		doc := `{
			"Version": "2012-10-17",
			"Statement": [
				{
					"Effect": "Deny",
					"Principal": "*",
					"Action": "s3:DeleteObject",
					"Resource": "arn:aws:s3:::my-site/*"
				},
				{
					"Effect": "Allow",
					"Principal": "*",
					"Action": "s3:GetObject",
					"Resource": "arn:aws:s3:::my-site/*"
				}
			]
		}`
		assert.NoError(t, CheckPublicRead([]byte(doc)))
	})

	rejections := []struct {
		name string
		doc  string
	}{
		{name: "not JSON", doc: `{not json`},
		{name: "missing version", doc: `{"Statement": [{"Effect": "Allow", "Principal": "*", "Action": "s3:GetObject", "Resource": "arn:aws:s3:::b/*"}]}`},
		{name: "no statements", doc: `{"Version": "2012-10-17", "Statement": []}`},
		{name: "deny effect only", doc: `{"Version": "2012-10-17", "Statement": [{"Effect": "Deny", "Principal": "*", "Action": "s3:GetObject", "Resource": "arn:aws:s3:::b/*"}]}`},
		{name: "scoped principal", doc: `{"Version": "2012-10-17", "Statement": [{"Effect": "Allow", "Principal": {"AWS": "arn:aws:iam::123456789012:root"}, "Action": "s3:GetObject", "Resource": "arn:aws:s3:::b/*"}]}`},
		{name: "wrong action", doc: `{"Version": "2012-10-17", "Statement": [{"Effect": "Allow", "Principal": "*", "Action": "s3:PutObject", "Resource": "arn:aws:s3:::b/*"}]}`},
		{name: "bucket-level resource only", doc: `{"Version": "2012-10-17", "Statement": [{"Effect": "Allow", "Principal": "*", "Action": "s3:GetObject", "Resource": "arn:aws:s3:::b"}]}`},
	}

	for _, tt := range rejections {
		t.Run("rejects "+tt.name, func(t *testing.T) {
			err := CheckPublicRead([]byte(tt.doc))
			require.Error(t, err)
			assert.True(t, errors.IsInvalidInput(err))
		})
	}
}

func TestStringOrSlice(t *testing.T) {
	t.Run("scalar form", func(t *testing.T) {
		var s StringOrSlice
		require.NoError(t, s.UnmarshalJSON([]byte(`"s3:GetObject"`)))
		assert.Equal(t, StringOrSlice{"s3:GetObject"}, s)
	})

	t.Run("list form", func(t *testing.T) {
		var s StringOrSlice
		require.NoError(t, s.UnmarshalJSON([]byte(`["s3:GetObject", "s3:ListBucket"]`)))
		assert.Equal(t, StringOrSlice{"s3:GetObject", "s3:ListBucket"}, s)
	})

	t.Run("rejects other shapes", func(t *testing.T) {
		var s StringOrSlice
		assert.Error(t, s.UnmarshalJSON([]byte(`{"a": 1}`)))
	})
}
