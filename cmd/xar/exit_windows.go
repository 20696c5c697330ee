//go:build windows

package main

import (
	"bufio"
	"fmt"
	"os"

	"golang.org/x/term"
)

// exit is the same as on other platforms but first waits for a key press when started from a console window, which
// closes as soon as xar returns.
func exit(err error) {
	if term.IsTerminal(int(os.Stdin.Fd())) {
		_, _ = fmt.Fprintf(os.Stderr, "xar finished; press Enter to close this window\n")
		_, _ = bufio.NewReader(os.Stdin).ReadString('\n')
	}

	if code := exitCode(err); code != 0 {
		os.Exit(code)
	}
}
