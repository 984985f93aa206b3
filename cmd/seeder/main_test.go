package main

import (
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRootCmd_Flags(t *testing.T) {
	cmd := rootCmd()
	flag := cmd.Flags().Lookup("dir")
	require.NotNil(t, flag)
	assert.Equal(t, "seed", flag.DefValue)
}

func TestRootCmd_RejectsArguments(t *testing.T) {
	cmd := rootCmd()
	cmd.SetArgs([]string{"users.sql"})
	cmd.SetOut(io.Discard)
	cmd.SetErr(io.Discard)
	assert.Error(t, cmd.Execute())
}

func TestSeedFilesExist(t *testing.T) {
	for _, name := range seedFiles {
		_, err := os.Stat(filepath.Join("..", "..", "seed", name))
		assert.NoError(t, err, name)
	}
}
