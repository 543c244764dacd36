package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/loocode/loo/internal/testutil"
)

// TestResolveWorkingDirDefault verifies the current directory is used
// when no flag is given.
func TestResolveWorkingDirDefault(testingHandle *testing.T) {
	resolved, err := resolveWorkingDir("")
	testutil.RequireNoError(testingHandle, err, "resolve default")
	cwd, _ := os.Getwd()
	testutil.RequireEqual(testingHandle, resolved, cwd, "defaults to the current directory")
}

// TestResolveWorkingDirValidation verifies missing paths and files are
// rejected.
func TestResolveWorkingDirValidation(testingHandle *testing.T) {
	root := testingHandle.TempDir()

	resolved, err := resolveWorkingDir(root)
	testutil.RequireNoError(testingHandle, err, "existing directory accepted")
	testutil.RequireEqual(testingHandle, resolved, root, "absolute path returned")

	_, err = resolveWorkingDir(filepath.Join(root, "missing"))
	testutil.RequireError(testingHandle, err, "missing path rejected")

	file := filepath.Join(root, "plain.txt")
	testutil.RequireNoError(testingHandle, os.WriteFile(file, []byte("x"), 0o644), "create file")
	_, err = resolveWorkingDir(file)
	testutil.RequireError(testingHandle, err, "plain file rejected")
}
