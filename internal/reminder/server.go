package reminder

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/notexe/mcp-reminders/internal/logging"
)

const (
	// DefaultServerName is the MCP server name announced at initialization.
	DefaultServerName = "Reminders"
	// DefaultServerVersion is the MCP server version announced at initialization.
	DefaultServerVersion = "1.0.0"

	// ListsResourceURI lists reminder list names.
	ListsResourceURI = "reminders://lists"
)

// Server is the MCP server for the reminders store.
type Server struct {
	mcpServer *server.MCPServer
	managers  *Provider
	schemas   map[string]*jsonschema.Schema
	handlers  map[string]server.ToolHandlerFunc
	log       *slog.Logger
}

// toolFunc parses a tool's arguments and returns the call to run against
// the manager. Parsing never touches the store, so malformed input is
// rejected before access is requested.
type toolFunc func(args map[string]interface{}) (toolCall, error)

// toolCall runs a parsed tool call and returns the success text.
type toolCall func(m *Manager) (string, error)

// integer narrows a number property to whole values.
func integer() mcp.PropertyOption {
	return func(schema map[string]interface{}) {
		schema["type"] = "integer"
	}
}

// NewServer creates a reminders MCP server. Managers are obtained from
// managers on each call, so access is requested on first use.
func NewServer(name, version string, managers *Provider) (*Server, error) {
	if name == "" {
		name = DefaultServerName
	}
	if version == "" {
		version = DefaultServerVersion
	}

	s := &Server{
		managers: managers,
		schemas:  make(map[string]*jsonschema.Schema),
		handlers: make(map[string]server.ToolHandlerFunc),
		log:      logging.For("server"),
	}

	s.mcpServer = server.NewMCPServer(
		name,
		version,
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
		server.WithRecovery(),
	)

	if err := s.registerTools(); err != nil {
		return nil, err
	}
	s.registerResources()
	return s, nil
}

// MCPServer returns the underlying MCP server for serving.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcpServer
}

func (s *Server) registerTools() error {
	tools := []struct {
		tool   mcp.Tool
		action string
		run    toolFunc
	}{
		{
			tool: mcp.NewTool("list_reminder_lists",
				mcp.WithDescription("List all available reminder lists."),
			),
			action: "listing reminder lists",
			run:    s.listReminderLists,
		},
		{
			tool: mcp.NewTool("list_reminders",
				mcp.WithDescription("List reminders with optional filters. Date filters keep only reminders that have a due date within the range, bounds included."),
				mcp.WithString("start_date", mcp.Description("Filter reminders with due dates on or after this date (ISO format)")),
				mcp.WithString("end_date", mcp.Description("Filter reminders with due dates on or before this date (ISO format)")),
				mcp.WithString("list_name", mcp.Description("Optional reminder list name to filter by (check "+ListsResourceURI+")")),
				mcp.WithBoolean("include_completed", mcp.Description("Whether to include completed reminders (default: false)"), mcp.DefaultBool(false)),
			),
			action: "listing reminders",
			run:    s.listReminders,
		},
		{
			tool: mcp.NewTool("create_reminder",
				mcp.WithDescription(strings.Join([]string{
					"Create a new reminder.",
					"",
					"Before using this tool:",
					"1. Ask the user which reminder list they want to use if not specified (check " + ListsResourceURI + ")",
					"2. Confirm the title and due date with the user",
					"3. Ask if they want to set priority or notes",
				}, "\n")),
				mcp.WithString("title", mcp.Required(), mcp.Description("Reminder title")),
				mcp.WithString("due_date", mcp.Description("Optional due date in ISO format (YYYY-MM-DDTHH:MM:SS)")),
				mcp.WithString("notes", mcp.Description("Optional notes/description")),
				mcp.WithNumber("priority", mcp.Description("Priority level (0=none, 1-4=high, 5=medium, 6-9=low, default: 0)"), integer(), mcp.Min(0), mcp.Max(9), mcp.DefaultNumber(0)),
				mcp.WithString("list_name", mcp.Description("Optional reminder list name. Ask the user which list to use, referencing "+ListsResourceURI)),
				mcp.WithString("url", mcp.Description("Optional URL associated with the reminder")),
			),
			action: "creating reminder",
			run:    s.createReminder,
		},
		{
			tool: mcp.NewTool("update_reminder",
				mcp.WithDescription(strings.Join([]string{
					"Update an existing reminder. Only the fields provided are changed.",
					"",
					"Before using this tool:",
					"1. Ask the user which fields they want to update",
					"2. If moving to a different list, verify the list exists using " + ListsResourceURI,
					"3. Confirm the changes with the user",
				}, "\n")),
				mcp.WithString("reminder_id", mcp.Required(), mcp.Description("Unique identifier of the reminder to update")),
				mcp.WithString("title", mcp.Description("Optional new title")),
				mcp.WithString("due_date", mcp.Description("Optional new due date in ISO format")),
				mcp.WithString("notes", mcp.Description("Optional new notes/description")),
				mcp.WithNumber("priority", mcp.Description("Optional new priority (0-9)"), integer(), mcp.Min(0), mcp.Max(9)),
				mcp.WithString("list_name", mcp.Description("Optional new reminder list. Ask the user which list to use, referencing "+ListsResourceURI)),
				mcp.WithString("url", mcp.Description("Optional URL")),
				mcp.WithBoolean("completed", mcp.Description("Optional completion status (true/false)")),
			),
			action: "updating reminder",
			run:    s.updateReminder,
		},
		{
			tool: mcp.NewTool("complete_reminder",
				mcp.WithDescription("Mark a reminder as completed."),
				mcp.WithString("reminder_id", mcp.Required(), mcp.Description("Unique identifier of the reminder to complete")),
			),
			action: "completing reminder",
			run:    s.completeReminder,
		},
		{
			tool: mcp.NewTool("delete_reminder",
				mcp.WithDescription("Delete a reminder permanently."),
				mcp.WithString("reminder_id", mcp.Required(), mcp.Description("Unique identifier of the reminder to delete")),
			),
			action: "deleting reminder",
			run:    s.deleteReminder,
		},
	}

	for _, t := range tools {
		schema, err := compileToolSchema(t.tool)
		if err != nil {
			return err
		}
		s.schemas[t.tool.Name] = schema
		s.handlers[t.tool.Name] = s.handle(t.tool.Name, t.action, t.run)
		s.mcpServer.AddTool(t.tool, s.handlers[t.tool.Name])
	}
	return nil
}

func (s *Server) registerResources() {
	s.mcpServer.AddResource(
		mcp.NewResource(ListsResourceURI, "Reminder lists",
			mcp.WithResourceDescription("List all available reminder lists that can be used with reminder operations"),
			mcp.WithMIMEType("text/plain"),
		),
		s.handleListsResource,
	)
}

// handle wraps a tool so that argument validation, manager construction and
// store failures all come back as error text instead of protocol faults.
// Arguments are fully parsed before the manager is built.
func (s *Server) handle(name, action string, run toolFunc) server.ToolHandlerFunc {
	return func(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		args := compactArgs(req.GetArguments())

		if err := validateArgs(s.schemas[name], args); err != nil {
			return mcp.NewToolResultError(errorText(action, err)), nil
		}

		call, err := run(args)
		if err != nil {
			return mcp.NewToolResultError(errorText(action, err)), nil
		}

		m, err := s.managers.Manager()
		if err != nil {
			return mcp.NewToolResultError(errorText(action, err)), nil
		}

		text, err := call(m)
		if err != nil {
			s.log.Debug("tool call failed", "tool", name, "error", err)
			return mcp.NewToolResultError(errorText(action, err)), nil
		}
		return mcp.NewToolResultText(text), nil
	}
}

func (s *Server) handleListsResource(_ context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	text, err := s.listsText()
	if err != nil {
		text = errorText("listing reminder lists", err)
	}
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      req.Params.URI,
			MIMEType: "text/plain",
			Text:     text,
		},
	}, nil
}

func (s *Server) listsText() (string, error) {
	m, err := s.managers.Manager()
	if err != nil {
		return "", err
	}
	names, err := m.ListNames()
	if err != nil {
		return "", err
	}
	return formatListNames(names), nil
}

func formatListNames(names []string) string {
	if len(names) == 0 {
		return "No reminder lists found"
	}
	var b strings.Builder
	b.WriteString("Available reminder lists:")
	for _, n := range names {
		b.WriteString("\n- ")
		b.WriteString(n)
	}
	return b.String()
}

func (s *Server) listReminderLists(_ map[string]interface{}) (toolCall, error) {
	return func(m *Manager) (string, error) {
		names, err := m.ListNames()
		if err != nil {
			return "", err
		}
		return formatListNames(names), nil
	}, nil
}

func (s *Server) listReminders(args map[string]interface{}) (toolCall, error) {
	start, err := dateArg(args, "start_date")
	if err != nil {
		return nil, err
	}
	end, err := dateArg(args, "end_date")
	if err != nil {
		return nil, err
	}
	listName, err := stringArg(args, "list_name")
	if err != nil {
		return nil, err
	}
	includeCompleted, err := boolArg(args, "include_completed")
	if err != nil {
		return nil, err
	}

	var name string
	if listName != nil {
		name = *listName
	}
	withCompleted := includeCompleted != nil && *includeCompleted

	return func(m *Manager) (string, error) {
		reminders, err := m.List(start, end, name, withCompleted)
		if err != nil {
			return "", err
		}
		if len(reminders) == 0 {
			return "No reminders found matching the criteria", nil
		}

		var b strings.Builder
		for _, r := range reminders {
			b.WriteString(r.String())
		}
		return b.String(), nil
	}, nil
}

func (s *Server) createReminder(args map[string]interface{}) (toolCall, error) {
	req, err := ParseCreateRequest(args)
	if err != nil {
		return nil, err
	}

	return func(m *Manager) (string, error) {
		s.log.Info("incoming create reminder request", "title", req.Title, "list", req.ListName)
		r, err := m.Create(req)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("Successfully created reminder: %s (ID: %s)", r.Title, r.Identifier), nil
	}, nil
}

func (s *Server) updateReminder(args map[string]interface{}) (toolCall, error) {
	id, err := reminderID(args)
	if err != nil {
		return nil, err
	}
	req, err := ParseUpdateRequest(args)
	if err != nil {
		return nil, err
	}

	return func(m *Manager) (string, error) {
		r, err := m.Update(id, req)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("Successfully updated reminder: %s", r.Title), nil
	}, nil
}

func (s *Server) completeReminder(args map[string]interface{}) (toolCall, error) {
	id, err := reminderID(args)
	if err != nil {
		return nil, err
	}

	return func(m *Manager) (string, error) {
		r, err := m.Complete(id)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("Successfully completed reminder: %s", r.Title), nil
	}, nil
}

func (s *Server) deleteReminder(args map[string]interface{}) (toolCall, error) {
	id, err := reminderID(args)
	if err != nil {
		return nil, err
	}

	return func(m *Manager) (string, error) {
		if _, err := m.Delete(id); err != nil {
			return "", err
		}
		return "Successfully deleted reminder", nil
	}, nil
}

func reminderID(args map[string]interface{}) (string, error) {
	id, err := stringArg(args, "reminder_id")
	if err != nil {
		return "", err
	}
	if id == nil || *id == "" {
		return "", validationError("reminder_id", "field required")
	}
	return *id, nil
}
