//go:build !windows

package main

import (
	"os"
)

// exit terminates with status 1 on any error other than --help; go-flags has already printed it.
func exit(err error) {
	if code := exitCode(err); code != 0 {
		os.Exit(code)
	}
}
