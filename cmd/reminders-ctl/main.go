// Command reminders-ctl drives a reminders MCP server from the shell.
//
// Usage:
//
//	./reminders-ctl tools
//	./reminders-ctl lists
//	./reminders-ctl call create_reminder title="Buy milk" priority=5
//	./reminders-ctl --server ./mcp-reminders call list_reminders include_completed=true
//	./reminders-ctl --in-process call list_reminder_lists
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	_ "github.com/joho/godotenv/autoload" // Load .env before reading the environment

	"github.com/notexe/mcp-reminders/internal/config"
	"github.com/notexe/mcp-reminders/internal/eventstore"
	"github.com/notexe/mcp-reminders/internal/logging"
	"github.com/notexe/mcp-reminders/internal/mcp"
	"github.com/notexe/mcp-reminders/internal/reminder"
	"github.com/notexe/mcp-reminders/internal/ui"
)

func main() {
	serverCmd := flag.String("server", "mcp-reminders", "Reminders MCP server command")
	inProcess := flag.Bool("in-process", false, "Open the store directly instead of spawning a server")
	configPath := flag.String("config", config.GetDefaultConfigPath(), "Path to configuration file")
	noColor := flag.Bool("no-color", false, "Disable colored output")
	timeout := flag.Duration("timeout", 60*time.Second, "Overall timeout")
	flag.Usage = printUsage
	flag.Parse()

	f := ui.NewFormatter(!*noColor)
	if flag.NArg() < 1 {
		printUsage()
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	client, cleanup, err := connect(ctx, *serverCmd, *inProcess, *configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, f.FormatError(err))
		os.Exit(1)
	}
	defer cleanup()

	name, err := client.Connect(ctx)
	if err != nil {
		fmt.Fprintln(os.Stderr, f.FormatError(err))
		os.Exit(1)
	}
	fmt.Fprintln(os.Stderr, f.FormatConnected(name))

	if err := run(ctx, client, f, flag.Args()); err != nil {
		fmt.Fprintln(os.Stderr, f.FormatError(err))
		os.Exit(1)
	}
}

// connect returns a client either for a spawned server process or for a
// server built in this process on the configured store.
func connect(ctx context.Context, serverCmd string, inProcess bool, configPath string) (*mcp.Client, func(), error) {
	if !inProcess {
		fields := strings.Fields(serverCmd)
		if len(fields) == 0 {
			return nil, nil, errors.New("empty server command")
		}
		c, err := mcp.NewClient(fields[0], os.Environ(), fields[1:]...)
		if err != nil {
			return nil, nil, err
		}
		return c, func() { c.Close() }, nil
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, nil, errors.Wrap(err, "loading configuration")
	}
	if err := cfg.Validate(); err != nil {
		return nil, nil, errors.Wrap(err, "invalid configuration")
	}
	if _, err := logging.Setup(os.Stderr, "warn", cfg.Log.Format); err != nil {
		return nil, nil, err
	}
	if err := cfg.EnsureStoreDir(); err != nil {
		return nil, nil, err
	}

	store, err := eventstore.Open(cfg.Store.Path,
		eventstore.WithDefaultList(cfg.Store.DefaultList),
		eventstore.WithLists(cfg.Store.Lists...),
	)
	if err != nil {
		return nil, nil, err
	}
	srv, err := reminder.NewServer(cfg.Server.Name, cfg.Server.Version, reminder.NewProvider(func() (*reminder.Manager, error) {
		return reminder.NewManager(store)
	}))
	if err != nil {
		store.Close()
		return nil, nil, err
	}
	c, err := mcp.NewInProcessClient(ctx, srv.MCPServer())
	if err != nil {
		store.Close()
		return nil, nil, err
	}
	return c, func() {
		c.Close()
		store.Close()
	}, nil
}

func run(ctx context.Context, client *mcp.Client, f *ui.Formatter, args []string) error {
	switch args[0] {
	case "tools":
		tools, err := client.ListTools(ctx)
		if err != nil {
			return err
		}
		fmt.Println(f.FormatTools(tools))

	case "lists":
		text, err := client.ReadResource(ctx, reminder.ListsResourceURI)
		if err != nil {
			return err
		}
		fmt.Println(f.FormatResult(reminder.ListsResourceURI, text))

	case "call":
		if len(args) < 2 {
			return errors.New("usage: call <tool> [key=value ...]")
		}
		toolArgs, err := parseArgs(args[2:])
		if err != nil {
			return err
		}
		text, err := client.CallTool(ctx, args[1], toolArgs)
		if err != nil {
			return err
		}
		fmt.Println(f.FormatResult(args[1], text))

	default:
		return errors.Newf("unknown command: %s", args[0])
	}
	return nil
}

// parseArgs turns key=value pairs into tool arguments. true/false become
// booleans, numbers become numbers and everything else stays a string.
// Wrap a value in quotes to force a string.
func parseArgs(pairs []string) (map[string]interface{}, error) {
	out := make(map[string]interface{}, len(pairs))
	for _, p := range pairs {
		key, val, ok := strings.Cut(p, "=")
		if !ok || key == "" {
			return nil, errors.Newf("invalid argument %q, expected key=value", p)
		}
		out[key] = parseValue(val)
	}
	return out, nil
}

func parseValue(v string) interface{} {
	if len(v) >= 2 && v[0] == '"' && v[len(v)-1] == '"' {
		return v[1 : len(v)-1]
	}
	switch v {
	case "true":
		return true
	case "false":
		return false
	}
	if n, err := strconv.ParseFloat(v, 64); err == nil {
		return n
	}
	return v
}

func printUsage() {
	fmt.Fprintln(os.Stderr, `reminders-ctl - drive a reminders MCP server

USAGE:
    reminders-ctl [flags] tools
    reminders-ctl [flags] lists
    reminders-ctl [flags] call <tool> [key=value ...]

FLAGS:
    --server <cmd>   Server command to spawn (default: mcp-reminders)
    --in-process     Open the configured store directly
    --config <path>  Config file used with --in-process
    --no-color       Disable colored output
    --timeout <d>    Overall timeout (default: 60s)

EXAMPLES:
    reminders-ctl call create_reminder title="Buy milk" due_date=2024-03-15T09:00:00
    reminders-ctl call list_reminders list_name=Work include_completed=true
    reminders-ctl call complete_reminder reminder_id=<id>`)
}
