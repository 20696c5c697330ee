package main

import (
	"log"

	"github.com/jessevdk/go-flags"
	"github.com/nguyengg/xarchive/internal/cmd"
)

func main() {
	p, err := cmd.NewParser()
	if err != nil {
		log.Fatal(err)
	}

	_, err = p.Parse()
	exit(err)
}

// exitCode returns 0 for a nil error or when go-flags printed the help message, 1 otherwise.
func exitCode(err error) int {
	if err == nil || flags.WroteHelp(err) {
		return 0
	}

	return 1
}
