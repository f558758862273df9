// Package mcpserver provides an MCP (Model Context Protocol) server that
// exposes lickdex tools for LLM integration via stdio transport.
package mcpserver

import (
	"context"
	"encoding/json"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/starford/lickdex/internal/ingest"
)

const tabFormatURI = "lickdex://tab-format"

// Server wraps the MCP server with lickdex tools.
type Server struct {
	mcp *server.MCPServer
	svc *ingest.Service
}

// New creates a new MCP server with all lickdex tools registered.
func New(svc *ingest.Service) *Server {
	s := &Server{svc: svc}

	s.mcp = server.NewMCPServer(
		"lickdex",
		"1.0.0",
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)

	s.mcp.AddTool(mcp.NewTool("analyze_tab",
		mcp.WithDescription("Compute measure and pitch statistics for a tab document without storing it. "+
			"Matches are exact fractions. Read the format via get_tab_contract first."),
		mcp.WithString("content", mcp.Required(), mcp.Description("Tab document in the lickdex YAML format")),
		mcp.WithString("tracks", mcp.Description("Comma-separated track indexes; all guitar tracks when empty")),
	), s.analyzeTab)

	s.mcp.AddTool(mcp.NewTool("ingest_tab",
		mcp.WithDescription("Analyze a tab document and store it in the catalog. "+
			"A document that was already ingested is rejected."),
		mcp.WithString("content", mcp.Required(), mcp.Description("Tab document in the lickdex YAML format")),
		mcp.WithString("filename", mcp.Description("File name to record (must end with .yaml, .yml or .tab)")),
		mcp.WithString("tracks", mcp.Description("Comma-separated track indexes; all guitar tracks when empty")),
	), s.ingestTab)

	s.mcp.AddTool(mcp.NewTool("import_tab",
		mcp.WithDescription("Download a tab document from an http(s) URL or a data: URI and ingest it."),
		mcp.WithString("url", mcp.Required(), mcp.Description("http(s) URL or data: URI of the tab file")),
		mcp.WithString("filename", mcp.Description("Optional file name override")),
	), s.importTab)

	s.mcp.AddTool(mcp.NewTool("get_tab_contract",
		mcp.WithDescription("Returns the lickdex tab document format. "+
			"Call this before writing documents for analyze_tab or ingest_tab."),
	), s.getTabContract)

	s.mcp.AddTool(mcp.NewTool("search_songs",
		mcp.WithDescription("Full-text search over song titles, artists and albums."),
		mcp.WithString("query", mcp.Required(), mcp.Description("Search query string")),
	), s.searchSongs)

	s.mcp.AddTool(mcp.NewTool("get_song",
		mcp.WithDescription("Get a stored song and the IDs of its analyzed tracks."),
		mcp.WithString("id", mcp.Required(), mcp.Description("Song ID")),
	), s.getSong)

	s.mcp.AddTool(mcp.NewTool("get_track",
		mcp.WithDescription("Get a track's canonical measures with their occurrences and match, and its pitch occupancy."),
		mcp.WithString("id", mcp.Required(), mcp.Description("Track ID")),
		mcp.WithNumber("min_match", mcp.Description("Only return measures whose match is at least this value (0..1)")),
	), s.getTrack)

	s.mcp.AddTool(mcp.NewTool("get_measure",
		mcp.WithDescription("Get the beats and pitches of a canonical measure."),
		mcp.WithString("id", mcp.Required(), mcp.Description("Measure ID")),
	), s.getMeasure)

	s.mcp.AddTool(mcp.NewTool("find_licks",
		mcp.WithDescription("Find every track in the catalog that plays a canonical measure."),
		mcp.WithString("measure_id", mcp.Required(), mcp.Description("Measure ID")),
	), s.findLicks)

	s.mcp.AddResource(
		mcp.NewResource(tabFormatURI, "Tab Format Contract",
			mcp.WithResourceDescription("YAML tab document format accepted by lickdex."),
			mcp.WithMIMEType("text/markdown"),
		),
		s.readTabFormatResource,
	)

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

// jsonResult renders v as an indented JSON text result.
func jsonResult(v any) (*mcp.CallToolResult, error) {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) analyzeTab(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	content, err := req.RequireString("content")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	tracks, err := ingest.ParseTracks(req.GetString("tracks", ""))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	res, err := s.svc.Analyze(ctx, []byte(content), tracks)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(res)
}

func (s *Server) ingestTab(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	content, err := req.RequireString("content")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	tracks, err := ingest.ParseTracks(req.GetString("tracks", ""))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	filename, err := tabFilename(req.GetString("filename", ""))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	song, err := s.svc.Ingest(ctx, filename, []byte(content), tracks)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(song)
}

func (s *Server) getTabContract(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultText(TabFormatContract), nil
}

func (s *Server) readTabFormatResource(_ context.Context, _ mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      tabFormatURI,
			MIMEType: "text/markdown",
			Text:     TabFormatContract,
		},
	}, nil
}

func (s *Server) searchSongs(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query, err := req.RequireString("query")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	songs, err := s.svc.Search(ctx, query, 20)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if len(songs) == 0 {
		return mcp.NewToolResultText("no songs found"), nil
	}
	return jsonResult(songs)
}

func (s *Server) getSong(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireString("id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	song, err := s.svc.GetSong(ctx, id)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(song)
}

func (s *Server) getTrack(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireString("id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	track, err := s.svc.GetTrack(ctx, id, req.GetFloat("min_match", 0))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(track)
}

func (s *Server) getMeasure(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireString("id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	m, err := s.svc.GetMeasure(ctx, id)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(m)
}

func (s *Server) findLicks(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireString("measure_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	licks, err := s.svc.Licks(ctx, id)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if len(licks) == 0 {
		return mcp.NewToolResultText("no tracks play this measure"), nil
	}
	return jsonResult(licks)
}
