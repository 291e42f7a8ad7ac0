package service

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestWriteErrorFile_CreatesFileWithError(t *testing.T) {
	dir := t.TempDir()
	err := fmt.Errorf("launchctl load -w /x.plist exited with status 0: Load failed: 5: Input/output error")

	if werr := WriteErrorFile(dir, InstallErrorFile, "INSTALL", err); werr != nil {
		t.Fatalf("WriteErrorFile failed: %v", werr)
	}

	data, readErr := os.ReadFile(filepath.Join(dir, InstallErrorFile))
	if readErr != nil {
		t.Fatalf("failed to read %s: %v", InstallErrorFile, readErr)
	}

	content := string(data)
	if !strings.Contains(content, "Input/output error") {
		t.Errorf("expected error message in file, got:\n%s", content)
	}
	if !strings.Contains(content, "INSTALL FAILED") {
		t.Errorf("expected INSTALL FAILED label in file, got:\n%s", content)
	}
}

func TestWriteErrorFile_CreatesDirectory(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "bot", "logs")

	if err := WriteErrorFile(dir, InstallErrorFile, "INSTALL", fmt.Errorf("test error")); err != nil {
		t.Fatalf("WriteErrorFile failed: %v", err)
	}

	data, readErr := os.ReadFile(filepath.Join(dir, InstallErrorFile))
	if readErr != nil {
		t.Fatalf("directory not created or file not written: %v", readErr)
	}
	if !strings.Contains(string(data), "test error") {
		t.Errorf("expected error message, got: %s", string(data))
	}
}

func TestWriteErrorFile_OverwritesPreviousFile(t *testing.T) {
	dir := t.TempDir()

	WriteErrorFile(dir, InstallErrorFile, "INSTALL", fmt.Errorf("first error"))
	WriteErrorFile(dir, InstallErrorFile, "INSTALL", fmt.Errorf("second error"))

	data, _ := os.ReadFile(filepath.Join(dir, InstallErrorFile))
	content := string(data)

	if strings.Contains(content, "first error") {
		t.Error("expected first error to be overwritten")
	}
	if !strings.Contains(content, "second error") {
		t.Errorf("expected second error in file, got: %s", content)
	}
}

func TestClearErrorFile(t *testing.T) {
	dir := t.TempDir()
	WriteErrorFile(dir, InstallErrorFile, "INSTALL", fmt.Errorf("boom"))

	ClearErrorFile(dir, InstallErrorFile)
	if _, err := os.Stat(filepath.Join(dir, InstallErrorFile)); !os.IsNotExist(err) {
		t.Errorf("expected file removed, stat err = %v", err)
	}

	// Missing file is fine.
	ClearErrorFile(dir, InstallErrorFile)
}
