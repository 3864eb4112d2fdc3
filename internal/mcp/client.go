// Package mcp provides the MCP client used to drive a reminders server,
// either as a child process over stdio or in-process.
package mcp

import (
	"context"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/mark3labs/mcp-go/client"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// ErrToolFailed marks tool results the server flagged as errors. The error
// text is the server's message.
var ErrToolFailed = errors.New("tool reported an error")

// Tool represents an MCP tool with its metadata
type Tool struct {
	Name        string
	Description string
	InputSchema mcp.ToolInputSchema
}

// Resource is a resource advertised by the server.
type Resource struct {
	URI         string
	Name        string
	Description string
	MIMEType    string
}

// Client wraps MCP client functionality
type Client struct {
	mcpClient *client.Client
	connected bool
}

// NewClient creates a new MCP client that connects to a server via stdio.
// command is the path to the MCP server executable. env entries are
// KEY=VALUE pairs added to the child's environment.
func NewClient(command string, env []string, args ...string) (*Client, error) {
	mcpClient, err := client.NewStdioMCPClient(command, env, args...)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create MCP client")
	}

	return &Client{mcpClient: mcpClient}, nil
}

// NewInProcessClient creates a client talking directly to srv.
func NewInProcessClient(ctx context.Context, srv *server.MCPServer) (*Client, error) {
	mcpClient, err := client.NewInProcessClient(srv)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create in-process MCP client")
	}
	if err := mcpClient.Start(ctx); err != nil {
		return nil, errors.Wrap(err, "failed to start in-process MCP client")
	}

	return &Client{mcpClient: mcpClient}, nil
}

// Connect performs the protocol handshake and returns the server's name.
func (c *Client) Connect(ctx context.Context) (string, error) {
	initRequest := mcp.InitializeRequest{}
	initRequest.Params.ProtocolVersion = mcp.LATEST_PROTOCOL_VERSION
	initRequest.Params.ClientInfo = mcp.Implementation{
		Name:    "reminders-ctl",
		Version: "1.0.0",
	}
	initRequest.Params.Capabilities = mcp.ClientCapabilities{}

	res, err := c.mcpClient.Initialize(ctx, initRequest)
	if err != nil {
		return "", errors.Wrap(err, "MCP initialization failed")
	}

	c.connected = true
	return res.ServerInfo.Name, nil
}

// ListTools returns all available tools from the MCP server.
func (c *Client) ListTools(ctx context.Context) ([]Tool, error) {
	if !c.connected {
		return nil, errors.New("not connected to MCP server, call Connect() first")
	}

	toolsResult, err := c.mcpClient.ListTools(ctx, mcp.ListToolsRequest{})
	if err != nil {
		return nil, errors.Wrap(err, "failed to list tools")
	}

	tools := make([]Tool, 0, len(toolsResult.Tools))
	for _, t := range toolsResult.Tools {
		tools = append(tools, Tool{
			Name:        t.Name,
			Description: t.Description,
			InputSchema: t.InputSchema,
		})
	}

	return tools, nil
}

// ListResources returns the resources the server advertises.
func (c *Client) ListResources(ctx context.Context) ([]Resource, error) {
	if !c.connected {
		return nil, errors.New("not connected to MCP server, call Connect() first")
	}

	res, err := c.mcpClient.ListResources(ctx, mcp.ListResourcesRequest{})
	if err != nil {
		return nil, errors.Wrap(err, "failed to list resources")
	}

	out := make([]Resource, 0, len(res.Resources))
	for _, r := range res.Resources {
		out = append(out, Resource{
			URI:         r.URI,
			Name:        r.Name,
			Description: r.Description,
			MIMEType:    r.MIMEType,
		})
	}
	return out, nil
}

// CallTool executes a tool and returns its text. A result the server flags
// as an error comes back as an error marked ErrToolFailed.
func (c *Client) CallTool(ctx context.Context, name string, args map[string]interface{}) (string, error) {
	if !c.connected {
		return "", errors.New("not connected to MCP server")
	}

	request := mcp.CallToolRequest{}
	request.Params.Name = name
	request.Params.Arguments = args

	result, err := c.mcpClient.CallTool(ctx, request)
	if err != nil {
		return "", errors.Wrap(err, "tool call failed")
	}

	var parts []string
	for _, content := range result.Content {
		switch tc := content.(type) {
		case mcp.TextContent:
			parts = append(parts, tc.Text)
		case *mcp.TextContent:
			parts = append(parts, tc.Text)
		}
	}
	output := strings.Join(parts, "\n")

	if result.IsError {
		return "", errors.Mark(errors.Newf("%s", output), ErrToolFailed)
	}
	return output, nil
}

// ReadResource returns the text of the resource at uri.
func (c *Client) ReadResource(ctx context.Context, uri string) (string, error) {
	if !c.connected {
		return "", errors.New("not connected to MCP server")
	}

	request := mcp.ReadResourceRequest{}
	request.Params.URI = uri

	result, err := c.mcpClient.ReadResource(ctx, request)
	if err != nil {
		return "", errors.Wrapf(err, "failed to read resource %s", uri)
	}

	var parts []string
	for _, content := range result.Contents {
		switch rc := content.(type) {
		case mcp.TextResourceContents:
			parts = append(parts, rc.Text)
		case *mcp.TextResourceContents:
			parts = append(parts, rc.Text)
		}
	}
	return strings.Join(parts, "\n"), nil
}

// Close closes the connection to the MCP server.
func (c *Client) Close() error {
	if c.mcpClient != nil {
		return c.mcpClient.Close()
	}
	return nil
}
