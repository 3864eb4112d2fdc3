// Command mcp-reminders serves the reminders store over MCP.
//
// The server speaks the protocol on stdio; logs go to stderr.
//
// Usage:
//
//	./mcp-reminders                       # Start MCP server (stdio)
//	./mcp-reminders --config path.yaml    # Use a specific config file
//	./mcp-reminders --help                # Show help
package main

import (
	"flag"
	"fmt"
	"os"

	_ "github.com/joho/godotenv/autoload" // Load .env before reading the environment
	"github.com/mark3labs/mcp-go/server"

	"github.com/notexe/mcp-reminders/internal/config"
	"github.com/notexe/mcp-reminders/internal/eventstore"
	"github.com/notexe/mcp-reminders/internal/logging"
	"github.com/notexe/mcp-reminders/internal/reminder"
)

func main() {
	configPath := flag.String("config", config.GetDefaultConfigPath(), "Path to configuration file")
	flag.Usage = printHelp
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading configuration: %v\n", err)
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Invalid configuration: %v\n", err)
		os.Exit(1)
	}

	logger, err := logging.Setup(os.Stderr, cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error configuring logging: %v\n", err)
		os.Exit(1)
	}

	if err := cfg.EnsureStoreDir(); err != nil {
		logger.Error("failed to prepare store", "error", err)
		os.Exit(1)
	}

	store, err := eventstore.Open(cfg.Store.Path,
		eventstore.WithDefaultList(cfg.Store.DefaultList),
		eventstore.WithLists(cfg.Store.Lists...),
		eventstore.WithLogger(logging.For("eventstore")),
	)
	if err != nil {
		logger.Error("failed to open reminders store", "path", cfg.Store.Path, "error", err)
		os.Exit(1)
	}
	defer store.Close()

	managers := reminder.NewProvider(func() (*reminder.Manager, error) {
		return reminder.NewManager(store)
	})

	s, err := reminder.NewServer(cfg.Server.Name, cfg.Server.Version, managers)
	if err != nil {
		logger.Error("failed to build server", "error", err)
		os.Exit(1)
	}

	logger.Info("starting reminders MCP server", "name", cfg.Server.Name, "store", cfg.Store.Path)
	if err := server.ServeStdio(s.MCPServer()); err != nil {
		logger.Error("server error", "error", err)
		os.Exit(1)
	}
}

func printHelp() {
	fmt.Fprintln(os.Stderr, `MCP Reminders Server - Reminders store via MCP protocol

USAGE:
    mcp-reminders [--config path]   Start MCP server (communicates via stdio)
    mcp-reminders --help            Show this help

CONFIGURATION:
    --config    YAML config file (default: ~/.mcp-reminders/config.yaml)

ENVIRONMENT:
    REMINDERS_STORE__PATH           SQLite database file
                                    Default: ~/.mcp-reminders/reminders.db
    REMINDERS_STORE__DEFAULT_LIST   List for reminders created without one
    REMINDERS_LOG__LEVEL            debug, info, warn, error
    REMINDER_DB_PATH                Same as REMINDERS_STORE__PATH

TOOLS:
    list_reminder_lists  List all reminder lists
    list_reminders       List reminders (start_date, end_date, list_name, include_completed)
    create_reminder      Create a reminder (title, due_date, notes, priority, list_name, url)
    update_reminder      Update the given fields of a reminder
    complete_reminder    Mark a reminder as completed
    delete_reminder      Delete a reminder permanently

RESOURCES:
    reminders://lists    Names of all reminder lists

CLIENT CONFIGURATION:
    {
      "mcpServers": {
        "reminders": {
          "command": "/path/to/mcp-reminders",
          "args": []
        }
      }
    }`)
}
