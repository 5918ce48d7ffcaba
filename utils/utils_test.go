package utils

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestHashSequence(t *testing.T) {
	require.Equal(t, HashSequence([]string{"N", "V"}), HashSequence([]string{"N", "V"}))
	require.NotEqual(t, HashSequence([]string{"ab", "c"}), HashSequence([]string{"a", "bc"}))
	require.NotEqual(t, HashSequence([]string{"N", "V"}), HashSequence([]string{"V", "N"}))
}

func TestReadList(t *testing.T) {
	filePath := filepath.Join(t.TempDir(), "tags.txt")
	require.NoError(t, os.WriteFile(filePath, []byte("NN\n  VB \n\nDT\n"), 0o644))

	list, err := ReadList(filePath)
	require.NoError(t, err)
	require.Equal(t, []string{"NN", "VB", "DT"}, list)

	_, err = ReadList(filepath.Join(t.TempDir(), "missing.txt"))
	require.Error(t, err)
}

func TestRecoverWithError(t *testing.T) {
	run := func() (err error) {
		defer RecoverWithError(&err)
		panic("boom")
	}
	err := run()
	require.EqualError(t, err, "got panic: boom")
}
