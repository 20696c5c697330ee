package internal

import (
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/nguyengg/xarchive/util"
)

// Prefix creates a consistent prefix for all file-based commands to use.
//
// i and n are the one-based ordinal and expected count.
func Prefix(i, n int, name string) string {
	return fmt.Sprintf(`[%d/%d] "%s" - `, i, n, util.TruncateRightWithSuffix(filepath.Base(name), 30, "..."))
}

// NewLogger creates a new logger to stderr using Prefix.
func NewLogger(i, n int, name string) *log.Logger {
	return log.New(os.Stderr, Prefix(i, n, name), 0)
}
