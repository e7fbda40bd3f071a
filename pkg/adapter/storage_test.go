package adapter_test

import (
	"testing"

	"github.com/m-mizutani/argus/pkg/adapter"
	"github.com/m-mizutani/gt"
)

func TestParseObjectURL(t *testing.T) {
	testCases := []struct {
		url    string
		bucket string
		key    string
		ok     bool
	}{
		{"gs://snapshots/2026/01/events.json", "snapshots", "2026/01/events.json", true},
		{"gs://snapshots/events.json", "snapshots", "events.json", true},
		{"gs://snapshots/", "", "", false},
		{"gs://snapshots", "", "", false},
		{"gs:///events.json", "", "", false},
		{"testdata/events.json", "", "", false},
		{"s3://bucket/key", "", "", false},
	}

	for _, tc := range testCases {
		t.Run(tc.url, func(t *testing.T) {
			bucket, key, ok := adapter.ParseObjectURL(tc.url)
			gt.Equal(t, ok, tc.ok)
			gt.Equal(t, bucket, tc.bucket)
			gt.Equal(t, key, tc.key)
		})
	}
}
