package main

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/zealmehta21/nevermiss/internal/config"
	"github.com/zealmehta21/nevermiss/internal/db"
	"github.com/zealmehta21/nevermiss/internal/gemini"
	"github.com/zealmehta21/nevermiss/internal/intent"
	"github.com/zealmehta21/nevermiss/internal/mcp"
	"github.com/zealmehta21/nevermiss/internal/notify"
	"github.com/zealmehta21/nevermiss/internal/ops"
	"github.com/zealmehta21/nevermiss/internal/planner"
)

// Version is set via -ldflags at build time.
var Version = "dev"

// cliCommands contains known CLI subcommands.
var cliCommands = map[string]bool{
	"submit": true, "command": true, "transcribe": true,
	"add": true, "list": true, "show": true, "update": true,
	"complete": true, "snooze": true, "delete": true, "purge": true,
	"transcripts": true, "user": true, "digest": true,
	"auth": true, "serve": true,
	"help": true,
}

// isCLIMode determines if we should run CLI vs MCP server.
func isCLIMode() bool {
	if len(os.Args) < 2 {
		return false // No args → MCP server
	}
	arg := os.Args[1]
	if cliCommands[arg] {
		return true
	}
	if arg == "--help" || arg == "-h" || arg == "--version" || arg == "-v" {
		return true
	}
	return false
}

// isHelpOrVersion returns true if the user is requesting help or version info.
func isHelpOrVersion() bool {
	if len(os.Args) < 2 {
		return false
	}
	arg := os.Args[1]
	return arg == "--help" || arg == "-h" || arg == "--version" || arg == "-v" || arg == "help"
}

// isTerminal returns true if stdin is a terminal (not piped).
func isTerminal() bool {
	stat, _ := os.Stdin.Stat()
	return (stat.Mode() & os.ModeCharDevice) != 0
}

// printBanner displays a friendly banner when run interactively without args.
func printBanner() {
	fmt.Println(`
   _  __                 __  ____
  / |/ /__ _  _____ ____/  |/  (_)__ ___
 /    / -_) |/ / -_) __/ /|_/ / (_-<(_-<
/_/|_/\__/|___/\__/_/ /_/  /_/_/___/___/

  Voice and text task planner

  Usage: nevermiss <command> [options]
         nevermiss --help

  MCP server mode requires piped input.`)
}

// deps holds everything a command may need. pipeline is nil when no
// language model is configured.
type deps struct {
	db       *sql.DB
	cfg      *config.Config
	pipeline *planner.Pipeline
	notifier *notify.Notifier
}

// wire opens the database and builds the collaborators described by cfg.
// Email and the language model are optional: a missing piece is logged and
// the commands that need it report CONFIG.
func wire(ctx context.Context, baseDir string, cfg *config.Config) (*deps, error) {
	database, err := db.Init(baseDir)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}
	db.ConfigurePool(database, cfg)

	if unknown := mcp.ValidateDisabledTools(cfg.DisabledTools); len(unknown) > 0 {
		log.Printf("WARNING: unknown tools in disabled_tools: %v", unknown)
	}

	d := &deps{db: database, cfg: cfg, notifier: newNotifier(ctx, cfg)}

	if err := cfg.ValidateForModel(); err != nil {
		log.Printf("language model disabled: %v", err)
		return d, nil
	}
	client, err := gemini.New(ctx, gemini.Options{
		APIKey:          cfg.GeminiAPIKey,
		Model:           cfg.PlannerModel,
		TranscribeModel: cfg.TranscribeModel,
		Timeout:         time.Duration(cfg.LLMTimeoutSeconds) * time.Second,
	})
	if err != nil {
		database.Close()
		return nil, err
	}
	d.pipeline = planner.NewPipeline(ops.NewStore(database), intent.NewExtractor(client), d.notifier,
		planner.WithTranscriber(client))
	return d, nil
}

// newNotifier returns a Gmail-backed notifier when email is enabled and
// authorized, and a logging notifier otherwise.
func newNotifier(ctx context.Context, cfg *config.Config) *notify.Notifier {
	if cfg.Email.Enabled {
		if err := cfg.ValidateForEmail(); err != nil {
			log.Printf("email disabled: %v", err)
		} else if g, err := notify.OpenGmail(ctx, cfg.Email.CredentialsFile, cfg.Email.TokenFile, cfg.Email.From); err != nil {
			log.Printf("email disabled: %v", err)
		} else {
			return notify.New(g)
		}
	}
	return notify.New(notify.LogSender{Logger: log.Default()})
}

func main() {
	// No args + interactive terminal → show banner and exit
	if len(os.Args) < 2 && isTerminal() {
		printBanner()
		return
	}

	// Handle --help/--version before DB init (no DB needed)
	if isHelpOrVersion() {
		app := newCLIApp(nil)
		if err := app.Run(os.Args); err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			os.Exit(1)
		}
		return
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: could not determine home directory: %v\n", err)
		os.Exit(1)
	}

	baseDir := filepath.Join(homeDir, ".nevermiss")

	cfg, err := config.Load(baseDir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: failed to load config: %v\n", err)
		os.Exit(1)
	}

	ctx := context.Background()
	d, err := wire(ctx, baseDir, cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
	defer d.db.Close()

	// CLI mode: known subcommand
	if isCLIMode() {
		app := newCLIApp(d)
		if err := app.Run(os.Args); err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			d.db.Close()
			os.Exit(1)
		}
		return
	}

	// Unknown argument + terminal → show error (don't start MCP server)
	if len(os.Args) >= 2 && isTerminal() {
		fmt.Fprintf(os.Stderr, "error: unknown command %q\n", os.Args[1])
		fmt.Fprintf(os.Stderr, "Run 'nevermiss --help' for usage.\n")
		d.db.Close()
		os.Exit(1)
	}

	// MCP server mode (default)
	if err := mcp.Run(d.db, cfg, d.pipeline, Version); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		d.db.Close()
		os.Exit(1)
	}
}
