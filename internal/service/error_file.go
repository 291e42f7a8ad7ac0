package service

import (
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// InstallErrorFile is the name of the failure record written into the logs
// directory when an install does not complete.
const InstallErrorFile = "installer-error.log"

// WriteErrorFile records a failure in dir/name so that it is visible next
// to the worker's own logs after the terminal session is gone. The file is
// overwritten on each call so only the most recent failure is kept.
func WriteErrorFile(dir, name string, operation string, err error) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	f, ferr := os.Create(filepath.Join(dir, name))
	if ferr != nil {
		return ferr
	}
	defer f.Close()

	ts := time.Now().Format("2006-01-02 15:04:05")
	_, werr := fmt.Fprintf(f, "[%s] %s FAILED\n%v\n", ts, operation, err)
	return werr
}

// ClearErrorFile removes a stale failure record after a successful run.
func ClearErrorFile(dir, name string) {
	_ = os.Remove(filepath.Join(dir, name))
}
