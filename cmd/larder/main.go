package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/alecthomas/kong"

	"github.com/five82/larder/internal/app"
	"github.com/five82/larder/internal/config"
)

var version = "dev"

// Global carries process-wide state into every command.
type Global struct {
	Ctx context.Context
}

// CLI definition & global flags.
type CLI struct {
	Config  string           `short:"c" help:"Configuration file path (default ~/.config/larder/config.toml)"`
	Prefs   string           `help:"UI preferences file path (default ~/.config/larder/prefs.toml)"`
	EnvFile []string         `name:"env-file" help:"dotenv files to load before reading config" default:".env"`
	Verbose bool             `short:"v" help:"Enable debug logging"`
	Version kong.VersionFlag `name:"version" help:"Show version and exit"`

	Tui     TUICmd     `cmd:"" default:"1" help:"Start the interactive recipe browser (default)"`
	Extract ExtractCmd `cmd:"" help:"Extract a recipe from a YouTube link"`
	Gallery GalleryCmd `cmd:"" help:"Manage saved recipes"`
	Device  DeviceCmd  `cmd:"" help:"Show the device registration and plan"`
	Swaps   SwapsCmd   `cmd:"" help:"Suggest substitutes for an ingredient"`
}

// AfterApply runs after flag parsing: load env files and set up stderr
// logging for the headless commands.
func (c *CLI) AfterApply() error {
	if err := config.LoadDotEnv(c.EnvFile...); err != nil {
		return err
	}
	slog.SetDefault(app.NewLogger(os.Stderr, "info", c.Verbose))
	return nil
}

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	var cli CLI
	parser, err := kong.New(&cli,
		kong.Name("larder"),
		kong.Description("Turn cooking videos into recipes and shopping lists."),
		kong.UsageOnError(),
		kong.Vars{"version": version},
	)
	if err != nil {
		fmt.Fprintf(os.Stderr, "larder: %v\n", err)
		return 1
	}
	kctx, err := parser.Parse(args)
	if err != nil {
		parser.FatalIfErrorf(err)
		return 1
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := kctx.Run(&Global{Ctx: ctx}, &cli); err != nil {
		fmt.Fprintf(os.Stderr, "larder: %v\n", err)
		return 1
	}
	return 0
}
