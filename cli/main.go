package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"

	beaver "github.com/gobeaver/beaver-kit/config"
	"github.com/mwantia/objfs"
	"github.com/mwantia/objfs/cmd"
	"github.com/mwantia/objfs/cmd/builtin"
	"github.com/mwantia/objfs/config"
	"github.com/mwantia/objfs/log"
)

// environment configures the command line tool itself. The object store
// settings are resolved by the registry.
type environment struct {
	URI          string `env:"URI,default:objfs:///"`
	LogLevel     string `env:"LOG_LEVEL,default:warn"`
	LogFile      string `env:"LOG_FILE"`
	SettingsFile string `env:"SETTINGS_FILE,default:/etc/objfs/settings.yaml"`
	StagingDir   string `env:"STAGING_DIR"`
	ReadOnly     bool   `env:"READ_ONLY,default:false"`
}

func printUsage(w io.Writer, center *cmd.Center) {
	fmt.Fprintln(w, "usage: objfs [objfs://[account@]host[:port]] <command> [args...]")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "commands:")
	center.PrintHelp(w)
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	env := &environment{}
	if err := beaver.Load(env, beaver.LoadOptions{Prefix: config.EnvPrefix}); err != nil {
		fmt.Fprintf(stderr, "objfs: failed to load environment: %v\n", err)
		return cmd.ExitFailure
	}

	center := cmd.NewCenter()
	if err := builtin.InitBuiltin(center); err != nil {
		fmt.Fprintf(stderr, "objfs: failed to register commands: %v\n", err)
		return cmd.ExitFailure
	}

	uri := env.URI
	if uri == "" {
		uri = config.Scheme + ":///"
	}
	if len(args) > 0 && strings.HasPrefix(args[0], config.Scheme+":") {
		uri, args = args[0], args[1:]
	}
	if len(args) == 0 || args[0] == "help" {
		printUsage(stdout, center)
		return cmd.ExitOK
	}

	level, err := log.ParseLevel(env.LogLevel)
	if err != nil {
		fmt.Fprintf(stderr, "objfs: %v\n", err)
		return cmd.ExitUsage
	}

	opts := []objfs.RegistryOption{
		objfs.WithLogLevel(level),
		objfs.WithLogFile(env.LogFile),
		objfs.WithSettingsFile(env.SettingsFile),
		objfs.WithStagingDir(env.StagingDir),
	}
	if env.ReadOnly {
		opts = append(opts, objfs.AsReadOnly())
	}

	registry, err := objfs.NewRegistry(opts...)
	if err != nil {
		fmt.Fprintf(stderr, "objfs: %v\n", err)
		return cmd.ExitFailure
	}
	defer registry.Shutdown(context.WithoutCancel(ctx))

	fs, err := registry.CreateOrGet(ctx, uri, nil)
	if err != nil {
		fmt.Fprintf(stderr, "objfs: %v\n", err)
		return cmd.ExitFailure
	}

	code, err := center.Execute(ctx, fs, stdout, args...)
	if err != nil {
		fmt.Fprintf(stderr, "objfs: %v\n", err)
	}
	return code
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()

	os.Exit(code)
}
