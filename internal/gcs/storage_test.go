package gcs

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestURI(t *testing.T) {
	assert.Equal(t, "gs://bucket/statements/a.pdf", URI("bucket", "statements/a.pdf"))
}

func TestFilenameFromURI(t *testing.T) {
	tests := []struct {
		uri  string
		want string
	}{
		{"gs://bucket/folder/file.pdf", "file.pdf"},
		{"gs://bucket/deep/nested/path/extrato.csv", "extrato.csv"},
		{"gs://bucket-only", "bucket-only"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, FilenameFromURI(tt.uri), "uri %q", tt.uri)
	}
}

func TestSplitURI(t *testing.T) {
	bucket, object, err := splitURI("gs://my-bucket/statements/2024/file.pdf")
	assert.NoError(t, err)
	assert.Equal(t, "my-bucket", bucket)
	assert.Equal(t, "statements/2024/file.pdf", object)

	_, _, err = splitURI("https://example.com/file.pdf")
	assert.Error(t, err)

	_, _, err = splitURI("gs://bucket-without-object")
	assert.Error(t, err)
}
