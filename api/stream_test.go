package api_test

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/programme-lv/subseries/api"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTrimStrToRect(t *testing.T) {
	assert.Equal(t, "", api.TrimStrToRect("", 2, 3))
	assert.Equal(t, "ab\ncd", api.TrimStrToRect("ab\ncd", 2, 3))
	assert.Equal(t, "abc[...]\nd\n[...]", api.TrimStrToRect("abcdef\nd\ne", 2, 3))
}

func TestTrimStrToRectKeepsRunesWhole(t *testing.T) {
	line := strings.Repeat("a", 79) + "ты"
	got := api.TrimStrToRect(line, 1, 80)
	assert.True(t, utf8.ValidString(got))
	assert.Equal(t, strings.Repeat("a", 79)+"[...]", got)

	// "ты" is 4 bytes, the cut lands in the middle of "ы"
	assert.Equal(t, "т[...]", api.TrimStrToRect("тыты", 1, 3))
}

func TestDropSubmTrimsPreview(t *testing.T) {
	code := strings.Repeat(strings.Repeat("z", 100)+"\n", 50)
	msg := api.NewDropSubm("run-1", api.Drop{SubmissionID: 9, Reason: "same", CodePreview: code})

	lines := strings.Split(msg.CodePreview, "\n")
	assert.Len(t, lines, api.MaxCodePreviewHeight+1)
	assert.Equal(t, strings.Repeat("z", api.MaxCodePreviewWidth)+"[...]", lines[0])
}

func TestMessagesFlattenIntoJson(t *testing.T) {
	b, err := json.Marshal(api.NewFinishChunk("run-1", api.ChunkStats{Lo: 0, Hi: 9, Kept: 3}))
	require.NoError(t, err)

	var got map[string]any
	require.NoError(t, json.Unmarshal(b, &got))
	assert.Equal(t, "run-1", got["run_uuid"])
	assert.Equal(t, "chunk_finish", got["msg_type"])
	assert.Equal(t, float64(3), got["kept"])

	fin := api.NewFinishRun("run-1", errors.New("boom"))
	require.NotNil(t, fin.ErrorMessage)
	assert.Equal(t, "boom", *fin.ErrorMessage)
	assert.Nil(t, api.NewFinishRun("run-1", nil).ErrorMessage)
}
