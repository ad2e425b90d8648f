package s3downl_test

import (
	"testing"

	"github.com/programme-lv/subseries/internal/s3downl"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseUrl(t *testing.T) {
	bucket, key, err := s3downl.ParseUrl("s3://proglv-datasets/stepik/submissions.csv.zst")
	require.NoError(t, err)
	assert.Equal(t, "proglv-datasets", bucket)
	assert.Equal(t, "stepik/submissions.csv.zst", key)

	bucket, key, err = s3downl.ParseUrl("https://proglv-public.s3.eu-central-1.amazonaws.com/series/java.csv")
	require.NoError(t, err)
	assert.Equal(t, "proglv-public", bucket)
	assert.Equal(t, "series/java.csv", key)

	for _, bad := range []string{
		"ftp://bucket/key",
		"https://example.com/key",
		"s3://bucket-only",
		"s3:///key",
	} {
		_, _, err := s3downl.ParseUrl(bad)
		assert.Error(t, err, bad)
	}
}
