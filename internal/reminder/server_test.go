package reminder

import (
	"context"
	"regexp"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/notexe/mcp-reminders/internal/eventstore"
)

func newTestServer(t *testing.T, opts ...eventstore.Option) *Server {
	t.Helper()
	s := openStore(t, opts...)
	srv, err := NewServer("", "", NewProvider(func() (*Manager, error) { return NewManager(s) }))
	require.NoError(t, err)
	return srv
}

func callTool(t *testing.T, srv *Server, name string, args map[string]interface{}) (string, bool) {
	t.Helper()
	h, ok := srv.handlers[name]
	require.True(t, ok, "tool %s not registered", name)

	req := mcp.CallToolRequest{}
	req.Params.Name = name
	req.Params.Arguments = args

	res, err := h(context.Background(), req)
	require.NoError(t, err)
	require.Len(t, res.Content, 1)
	text, ok := res.Content[0].(mcp.TextContent)
	require.True(t, ok)
	return text.Text, res.IsError
}

var createdID = regexp.MustCompile(`\(ID: ([^)]+)\)$`)

func createVia(t *testing.T, srv *Server, args map[string]interface{}) string {
	t.Helper()
	text, isErr := callTool(t, srv, "create_reminder", args)
	require.False(t, isErr, text)
	m := createdID.FindStringSubmatch(text)
	require.Len(t, m, 2, text)
	return m[1]
}

func TestServerRegistersTools(t *testing.T) {
	srv := newTestServer(t)
	for _, name := range []string{
		"list_reminder_lists", "list_reminders", "create_reminder",
		"update_reminder", "complete_reminder", "delete_reminder",
	} {
		assert.Contains(t, srv.handlers, name)
		assert.Contains(t, srv.schemas, name)
	}
}

func TestServerListReminderLists(t *testing.T) {
	srv := newTestServer(t, eventstore.WithLists("Work"))

	text, isErr := callTool(t, srv, "list_reminder_lists", nil)
	assert.False(t, isErr)
	assert.Equal(t, "Available reminder lists:\n- Reminders\n- Work", text)
}

func TestServerCreateAndList(t *testing.T) {
	srv := newTestServer(t)

	text, isErr := callTool(t, srv, "list_reminders", map[string]interface{}{})
	assert.False(t, isErr)
	assert.Equal(t, "No reminders found matching the criteria", text)

	id := createVia(t, srv, map[string]interface{}{"title": "Buy milk", "priority": float64(0), "notes": nil})

	text, isErr = callTool(t, srv, "list_reminders", map[string]interface{}{})
	assert.False(t, isErr)
	assert.Contains(t, text, "Reminder: Buy milk,\n")
	assert.Contains(t, text, " - Identifier: "+id+",\n")
	assert.Contains(t, text, " - List: Reminders,\n")
	assert.Contains(t, text, " - Status: Pending,\n")
}

func TestServerUpdateCompleteDelete(t *testing.T) {
	srv := newTestServer(t)
	id := createVia(t, srv, map[string]interface{}{"title": "Draft"})

	text, isErr := callTool(t, srv, "update_reminder", map[string]interface{}{"reminder_id": id, "title": "Final"})
	assert.False(t, isErr)
	assert.Equal(t, "Successfully updated reminder: Final", text)

	text, isErr = callTool(t, srv, "complete_reminder", map[string]interface{}{"reminder_id": id})
	assert.False(t, isErr)
	assert.Equal(t, "Successfully completed reminder: Final", text)

	text, _ = callTool(t, srv, "list_reminders", map[string]interface{}{"include_completed": true})
	assert.Contains(t, text, " - Status: Completed,\n")

	text, isErr = callTool(t, srv, "delete_reminder", map[string]interface{}{"reminder_id": id})
	assert.False(t, isErr)
	assert.Equal(t, "Successfully deleted reminder", text)

	text, isErr = callTool(t, srv, "complete_reminder", map[string]interface{}{"reminder_id": id})
	assert.True(t, isErr)
	assert.Equal(t, "Error completing reminder: Reminder with id: "+id+" does not exist", text)
}

func TestServerValidationErrors(t *testing.T) {
	srv := newTestServer(t)

	text, isErr := callTool(t, srv, "create_reminder", map[string]interface{}{"title": "x", "priority": float64(12)})
	assert.True(t, isErr)
	assert.Contains(t, text, "Error creating reminder: invalid priority")

	text, isErr = callTool(t, srv, "create_reminder", map[string]interface{}{})
	assert.True(t, isErr)
	assert.Contains(t, text, "Error creating reminder: invalid")

	text, isErr = callTool(t, srv, "list_reminders", map[string]interface{}{"start_date": "someday"})
	assert.True(t, isErr)
	assert.Contains(t, text, "Error listing reminders: invalid start_date")

	text, isErr = callTool(t, srv, "create_reminder", map[string]interface{}{"title": "x", "list_name": "Nope"})
	assert.True(t, isErr)
	assert.Equal(t, "Error creating reminder: Reminder list: Nope does not exist", text)
}

func TestServerPermissionDenied(t *testing.T) {
	s := openStore(t, eventstore.WithAccessHandler(func(eventstore.EntityType) (bool, error) {
		return false, nil
	}))
	srv, err := NewServer("", "", NewProvider(func() (*Manager, error) { return NewManager(s) }))
	require.NoError(t, err)

	text, isErr := callTool(t, srv, "create_reminder", map[string]interface{}{"title": "x"})
	assert.True(t, isErr)
	assert.Contains(t, text, "Error creating reminder: Reminders access not granted.")
	assert.Contains(t, text, "4. Restart the MCP client")
}

func TestServerRejectsBadArgumentsBeforeRequestingAccess(t *testing.T) {
	var requests atomic.Int32
	s := openStore(t, eventstore.WithAccessHandler(func(eventstore.EntityType) (bool, error) {
		requests.Add(1)
		return false, nil
	}))
	srv, err := NewServer("", "", NewProvider(func() (*Manager, error) { return NewManager(s) }))
	require.NoError(t, err)

	tests := []struct {
		tool string
		args map[string]interface{}
		want string
	}{
		{"create_reminder", map[string]interface{}{"title": "x", "due_date": "not-a-date"}, "Error creating reminder: invalid due_date"},
		{"create_reminder", map[string]interface{}{"title": "x", "priority": 2.5}, "Error creating reminder: invalid priority"},
		{"create_reminder", map[string]interface{}{"title": ""}, "Error creating reminder: invalid title"},
		{"update_reminder", map[string]interface{}{"reminder_id": ""}, "Error updating reminder: invalid reminder_id"},
		{"update_reminder", map[string]interface{}{"reminder_id": "A", "due_date": "later"}, "Error updating reminder: invalid due_date"},
		{"list_reminders", map[string]interface{}{"start_date": "someday"}, "Error listing reminders: invalid start_date"},
		{"list_reminders", map[string]interface{}{"end_date": "someday"}, "Error listing reminders: invalid end_date"},
		{"complete_reminder", map[string]interface{}{"reminder_id": ""}, "Error completing reminder: invalid reminder_id"},
		{"delete_reminder", map[string]interface{}{"reminder_id": ""}, "Error deleting reminder: invalid reminder_id"},
	}
	for _, tt := range tests {
		text, isErr := callTool(t, srv, tt.tool, tt.args)
		assert.True(t, isErr)
		assert.True(t, strings.HasPrefix(text, tt.want), "%s %v: %s", tt.tool, tt.args, text)
	}
	assert.Equal(t, int32(0), requests.Load())

	text, isErr := callTool(t, srv, "create_reminder", map[string]interface{}{"title": "x"})
	assert.True(t, isErr)
	assert.Contains(t, text, "Reminders access not granted")
	assert.Equal(t, int32(1), requests.Load())
}

func TestServerReportsStoreWriteFailures(t *testing.T) {
	fs := &failingStore{Store: openStore(t)}
	srv, err := NewServer("", "", NewProvider(func() (*Manager, error) { return NewManager(fs) }))
	require.NoError(t, err)
	id := createVia(t, srv, map[string]interface{}{"title": "x"})
	fs.fail = true

	text, isErr := callTool(t, srv, "create_reminder", map[string]interface{}{"title": "y"})
	assert.True(t, isErr)
	assert.Equal(t, "Error creating reminder: failed to save reminder: disk full", text)

	text, isErr = callTool(t, srv, "complete_reminder", map[string]interface{}{"reminder_id": id})
	assert.True(t, isErr)
	assert.Equal(t, "Error completing reminder: failed to save reminder: disk full", text)

	text, isErr = callTool(t, srv, "delete_reminder", map[string]interface{}{"reminder_id": id})
	assert.True(t, isErr)
	assert.Equal(t, "Error deleting reminder: failed to delete reminder: disk full", text)
}

func TestServerAdvertisesIntegerPriority(t *testing.T) {
	srv := newTestServer(t)
	for _, name := range []string{"create_reminder", "update_reminder"} {
		err := validateArgs(srv.schemas[name], map[string]interface{}{"title": "x", "reminder_id": "A", "priority": 1.5})
		require.Error(t, err, name)
		assert.Contains(t, err.Error(), "invalid priority")
		assert.NoError(t, validateArgs(srv.schemas[name], map[string]interface{}{"title": "x", "reminder_id": "A", "priority": float64(3)}))
	}
}

func TestServerListsResource(t *testing.T) {
	srv := newTestServer(t, eventstore.WithLists("Groceries"))

	req := mcp.ReadResourceRequest{}
	req.Params.URI = ListsResourceURI
	contents, err := srv.handleListsResource(context.Background(), req)
	require.NoError(t, err)
	require.Len(t, contents, 1)

	text, ok := contents[0].(mcp.TextResourceContents)
	require.True(t, ok)
	assert.Equal(t, ListsResourceURI, text.URI)
	assert.Equal(t, "text/plain", text.MIMEType)
	assert.Equal(t, "Available reminder lists:\n- Reminders\n- Groceries", text.Text)
}

func TestFormatListNamesEmpty(t *testing.T) {
	assert.Equal(t, "No reminder lists found", formatListNames(nil))
}
