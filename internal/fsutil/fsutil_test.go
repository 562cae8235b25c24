package fsutil

import (
	"testing"
	"time"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExpandName(t *testing.T) {
	now := time.Date(2025, 3, 7, 9, 5, 42, 0, time.UTC)

	testCases := []struct {
		format string
		want   string
	}{
		{format: "{input_stem}_params_{timestamp}.md", want: "prod_params_20250307-0905.md"},
		{format: "fixed.xlsx", want: "fixed.xlsx"},
		{format: "{input_stem}-{input_stem}.{unknown}", want: "prod-prod.{unknown}"},
	}
	for _, tc := range testCases {
		t.Run(tc.format, func(t *testing.T) {
			assert.Equal(t, tc.want, ExpandName(tc.format, "prod", now))
		})
	}
}

func TestStem(t *testing.T) {
	assert.Equal(t, "tf", Stem("states/tf.json"))
	assert.Equal(t, "state.backup", Stem("/tmp/state.backup.json"))
	assert.Equal(t, "noext", Stem("noext"))
}

func TestEnsureDirAndExists(t *testing.T) {
	fs := afero.NewMemMapFs()

	require.NoError(t, EnsureDir(fs, "out/nested"))
	require.NoError(t, EnsureDir(fs, "out/nested"))

	ok, err := Exists(fs, "out/nested")
	require.NoError(t, err)
	assert.False(t, ok, "directories are not files")

	require.NoError(t, afero.WriteFile(fs, "out/nested/a.md", []byte("x"), 0o644))
	ok, err = Exists(fs, "out/nested/a.md")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = Exists(fs, "out/missing.md")
	require.NoError(t, err)
	assert.False(t, ok)
}
