// Package mcpserver provides an MCP (Model Context Protocol) server
// that exposes dashboard tools for LLM integration via stdio transport.
package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/pulsehq/socialpulse/internal/dashboard"
	"github.com/pulsehq/socialpulse/internal/models"
	"github.com/pulsehq/socialpulse/internal/workflow"
)

// Server wraps the MCP server with dashboard tools.
type Server struct {
	mcp  *server.MCPServer
	ctrl *dashboard.Controller
}

// New creates a new MCP server with all dashboard tools registered.
func New(ctrl *dashboard.Controller) *Server {
	s := &Server{ctrl: ctrl}

	s.mcp = server.NewMCPServer(
		"SocialPulse",
		"1.0.0",
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)

	s.mcp.AddTool(mcp.NewTool("list_clients",
		mcp.WithDescription("List the agency's mirrored clients with health and growth figures."),
	), s.listClients)

	s.mcp.AddTool(mcp.NewTool("list_posts",
		mcp.WithDescription("List mirrored campaign posts. Optionally filter by workflow status."),
		mcp.WithString("status", mcp.Description("Optional status filter (Draft, Pending Approval, Scheduled, Approved, Rejected)")),
	), s.listPosts)

	s.mcp.AddTool(mcp.NewTool("list_messages",
		mcp.WithDescription("List mirrored inbox messages."),
	), s.listMessages)

	s.mcp.AddTool(mcp.NewTool("create_post",
		mcp.WithDescription("Draft a campaign post for a client. The post starts in Draft "+
			"status unless another valid status is given; platform must be one of "+
			"Instagram, TikTok, or LinkedIn."),
		mcp.WithString("client", mcp.Required(), mcp.Description("Client name the post belongs to")),
		mcp.WithString("platform", mcp.Required(), mcp.Description("Target platform (Instagram, TikTok, LinkedIn)")),
		mcp.WithString("preview", mcp.Description("Caption preview text")),
		mcp.WithString("date", mcp.Description("Scheduled date, RFC 3339 (defaults to now)")),
	), s.createPost)

	s.mcp.AddTool(mcp.NewTool("set_post_status",
		mcp.WithDescription("Move a campaign post through the approval workflow. Transitions "+
			"follow Draft → Pending Approval → Scheduled → Approved; Rejected is reachable "+
			"only from Pending Approval and is terminal."),
		mcp.WithString("id", mcp.Required(), mcp.Description("Post document id")),
		mcp.WithString("status", mcp.Required(), mcp.Description("Target status")),
	), s.setPostStatus)

	s.mcp.AddTool(mcp.NewTool("badge_counts",
		mcp.WithDescription("Get the sidebar badge counts: pending approvals, unread messages, competitors."),
	), s.badgeCounts)

	return s
}

// ServeStdio starts the MCP server on stdin/stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcp)
}

// MCPServer returns the underlying server for testing.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcp
}

func toolJSON(v any) (*mcp.CallToolResult, error) {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) listClients(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return toolJSON(s.ctrl.Clients())
}

func (s *Server) listPosts(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	posts := s.ctrl.Posts()
	if status, err := req.RequireString("status"); err == nil && status != "" {
		if !models.ValidStatus(status) {
			return mcp.NewToolResultError(fmt.Sprintf("unknown status: %s", status)), nil
		}
		filtered := posts[:0:0]
		for _, p := range posts {
			if p.Status == status {
				filtered = append(filtered, p)
			}
		}
		posts = filtered
	}
	return toolJSON(posts)
}

func (s *Server) listMessages(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return toolJSON(s.ctrl.Messages())
}

func (s *Server) createPost(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	client, err := req.RequireString("client")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	platform, err := req.RequireString("platform")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	d := workflow.Draft{Client: client, Platform: platform}
	if preview, err := req.RequireString("preview"); err == nil {
		d.Preview = preview
	}
	if date, err := req.RequireString("date"); err == nil {
		d.Date = date
	}

	id, err := s.ctrl.CreatePost(ctx, d)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("created: %s", id)), nil
}

func (s *Server) setPostStatus(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireString("id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	status, err := req.RequireString("status")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if err := s.ctrl.SetPostStatus(ctx, id, status); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("post %s is now %s", id, status)), nil
}

func (s *Server) badgeCounts(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return toolJSON(s.ctrl.Badges())
}
