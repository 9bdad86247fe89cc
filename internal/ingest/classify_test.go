package ingest

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name     string
		value    string
		present  bool
		expected Class
	}{
		{name: "absent header", present: false, expected: ClassUnspecified},
		{name: "empty header value", value: "", present: true, expected: ClassOther},
		{name: "plain json", value: "application/json", present: true, expected: ClassJSON},
		{name: "json with charset", value: "application/json; charset=utf-8", present: true, expected: ClassJSON},
		{name: "uppercase json", value: "Application/JSON", present: true, expected: ClassJSON},
		{name: "multipart with boundary", value: "multipart/form-data; boundary=xyz", present: true, expected: ClassMultipart},
		{name: "boundary mentioning json stays multipart", value: "multipart/form-data; boundary=application/json", present: true, expected: ClassMultipart},
		{name: "urlencoded", value: "application/x-www-form-urlencoded", present: true, expected: ClassURLEncoded},
		{name: "text", value: "text/plain", present: true, expected: ClassOther},
		{name: "octet stream", value: "application/octet-stream", present: true, expected: ClassOther},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, Classify(tt.value, tt.present))
		})
	}
}

func TestClass_Buffered(t *testing.T) {
	assert.True(t, ClassJSON.Buffered())
	assert.True(t, ClassOther.Buffered())
	assert.False(t, ClassMultipart.Buffered())
	assert.False(t, ClassURLEncoded.Buffered())
	assert.False(t, ClassUnspecified.Buffered())
}

func TestClass_String(t *testing.T) {
	assert.Equal(t, "json", ClassJSON.String())
	assert.Equal(t, "multipart", ClassMultipart.String())
	assert.Equal(t, "urlencoded", ClassURLEncoded.String())
	assert.Equal(t, "other", ClassOther.String())
	assert.Equal(t, "unspecified", ClassUnspecified.String())
}
