package testutil

import (
	"os"
	"sort"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/require"
)

// ReadFile returns the content of a file the run produced.
func ReadFile(t *testing.T, result *HarnessResult, path string) string {
	t.Helper()

	data, err := afero.ReadFile(result.Fs, path)
	require.NoError(t, err, "expected %s to have been written", path)
	return string(data)
}

// AssertFiles checks that the filesystem holds exactly the given files, so
// tests notice both missing output and leftover temporary files.
func AssertFiles(t *testing.T, result *HarnessResult, want ...string) {
	t.Helper()

	var got []string
	err := afero.Walk(result.Fs, "/", func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if !info.IsDir() {
			got = append(got, path)
		}
		return nil
	})
	require.NoError(t, err)

	want = append([]string(nil), want...)
	sort.Strings(want)
	sort.Strings(got)
	require.Equal(t, want, got, "unexpected set of files after the run")
}
