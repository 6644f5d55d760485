package preflight

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"time"

	"golang.org/x/sys/unix"

	"phonefleet/internal/config"
	"phonefleet/internal/export"
)

// CheckInputFile verifies that path is an existing, readable regular file.
func CheckInputFile(name, path string) Result {
	if path == "" {
		return Result{Name: name, Detail: "path not configured"}
	}
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Result{Name: name, Detail: fmt.Sprintf("%s (error: not found)", path)}
		}
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: stat: %v)", path, err)}
	}
	if !info.Mode().IsRegular() {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: not a regular file)", path)}
	}
	if err := unix.Access(path, unix.R_OK); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: not readable: %v)", path, err)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (%d bytes)", path, info.Size())}
}

// CheckDirectoryAccess verifies that the directory exists and is readable/writable.
func CheckDirectoryAccess(name, path string) Result {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Result{Name: name, Detail: fmt.Sprintf("%s (error: does not exist)", path)}
		}
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: stat: %v)", path, err)}
	}
	if !info.IsDir() {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: is not a directory)", path)}
	}
	if err := unix.Access(path, unix.R_OK|unix.W_OK|unix.X_OK); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: insufficient permissions: %v)", path, err)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (read/write ok)", path)}
}

// CheckWritable verifies that path can be written, either because it is an
// accessible directory or because its nearest existing ancestor is, so the
// directory can be created on first write.
func CheckWritable(name, path string) Result {
	if path == "" {
		return Result{Name: name, Detail: "path not configured"}
	}
	dir := filepath.Clean(path)
	for {
		if _, err := os.Stat(dir); err == nil {
			break
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return Result{Name: name, Detail: fmt.Sprintf("%s (error: no existing parent)", path)}
		}
		dir = parent
	}
	result := CheckDirectoryAccess(name, dir)
	if result.Passed && dir != filepath.Clean(path) {
		result.Detail = fmt.Sprintf("%s (will be created under %s)", path, dir)
	}
	return result
}

// CheckOutputPath verifies that an output file can be written.
func CheckOutputPath(name, path string) Result {
	if info, err := os.Stat(path); err == nil && info.IsDir() {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: is a directory)", path)}
	}
	result := CheckWritable(name, filepath.Dir(path))
	if result.Passed {
		result.Detail = path
	}
	return result
}

// CheckDatabase opens the export source and lists its tables.
func CheckDatabase(ctx context.Context, cfg config.Database) Result {
	name := "Database (" + cfg.Driver + ")"

	checkCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	source, err := export.Open(checkCtx, cfg)
	if err != nil {
		return Result{Name: name, Detail: summarizeDBError(err)}
	}
	defer source.Close()

	tables, err := source.Tables(checkCtx)
	if err != nil {
		return Result{Name: name, Detail: summarizeDBError(err)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("reachable, %d tables", len(tables))}
}

// summarizeDBError produces a human-readable summary for connection failures.
func summarizeDBError(err error) string {
	if errors.Is(err, context.DeadlineExceeded) {
		return "connection timed out (database unresponsive)"
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return "connection timed out (database unreachable)"
	}
	return err.Error()
}
