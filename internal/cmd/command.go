package cmd

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"

	"github.com/fatih/color"
	"github.com/jessevdk/go-flags"
	"github.com/nguyengg/xarchive/archive"
	"github.com/nguyengg/xarchive/internal/config"
	"github.com/nguyengg/xarchive/storage"
)

// Xar is the root command.
type Xar struct {
	Profile string `short:"p" long:"profile" description:"the AWS profile to use for s3:// names; takes precedence over .xarchive setting"`

	Extract Extract `command:"extract" alias:"x" description:"extract archives"`
	Create  Create  `command:"create" alias:"c" description:"create an archive from files and directories"`
	List    List    `command:"list" alias:"ls" description:"list the entries of ZIP archives"`
	Check   Check   `command:"check" description:"identify the type of archives"`
}

// NewParser returns the parser for all xar commands.
func NewParser() (*flags.Parser, error) {
	opts := &Xar{}

	p := flags.NewNamedParser("xar", flags.Default)
	if _, err := p.AddGroup("Global Options", "", opts); err != nil {
		return nil, err
	}

	p.CommandHandler = func(command flags.Commander, args []string) error {
		config.DefaultLoader.Profile = opts.Profile
		return command.Execute(args)
	}

	return p, nil
}

// env is the state shared by all commands after loading configuration.
type env struct {
	fsys     storage.FileSystem
	archOpts func(*archive.Options)
}

// setup loads the .xarchive configuration and returns a context that is cancelled on interrupt.
func setup() (context.Context, context.CancelFunc, *env, error) {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)

	name, err := config.Load(ctx)
	if err != nil {
		stop()
		return nil, nil, nil, fmt.Errorf("load config error: %w", err)
	}
	if name != "" {
		log.Printf(`loaded config from "%s"`, name)
	}

	archOpts, err := config.ArchiveOptions()
	if err != nil {
		stop()
		return nil, nil, nil, err
	}

	return ctx, stop, &env{fsys: config.NewFileSystem(ctx), archOpts: archOpts}, nil
}

var (
	green = color.New(color.FgGreen, color.Bold).SprintFunc()
	red   = color.New(color.FgRed, color.Bold).SprintFunc()
	cyan  = color.New(color.FgCyan).SprintFunc()
)

// summarise logs the number of successes and every failure.
func summarise(verb string, success, n int, failures []error) {
	log.Printf("%s %s/%d files", verb, green(success), n)
	for _, err := range failures {
		log.Printf("%s %v", red("failed:"), err)
	}
}
