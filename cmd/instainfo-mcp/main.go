// Command instainfo-mcp serves Instagram investigations as an MCP tool over
// stdio.
package main

import (
	"context"
	"log/slog"
	"os"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/DEV-EVIIL/INSTA-INFO/pkg/archive"
	"github.com/DEV-EVIIL/INSTA-INFO/pkg/httpcache"
	"github.com/DEV-EVIIL/INSTA-INFO/pkg/investigate"
)

func main() {
	// Stdout carries the MCP protocol, so logs go to stderr.
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))

	opts := []investigate.Option{investigate.WithLogger(logger)}
	if os.Getenv("INSTAINFO_NO_BROWSER") == "" {
		opts = append(opts, investigate.WithBrowserCookies())
	}
	const cacheTTL = 24 * time.Hour
	if c, err := httpcache.New(cacheTTL); err != nil {
		// Without persistence, concurrent tool calls still share in-flight fetches.
		logger.Warn("failed to initialize disk cache, using memory-only cache", "error", err)
		opts = append(opts, investigate.WithHTTPCache(httpcache.NewNull(cacheTTL)))
	} else {
		defer c.Close() //nolint:errcheck // best effort on shutdown
		opts = append(opts, investigate.WithHTTPCache(c))
	}

	var store *archive.Store
	if dsn := os.Getenv("INSTAINFO_DATABASE_URL"); dsn != "" {
		var err error
		store, err = archive.New(context.Background(), dsn)
		if err != nil {
			logger.Warn("failed to open archive, continuing without it", "error", err)
		} else {
			defer store.Close()
			opts = append(opts, investigate.WithArchive(store))
		}
	}

	mcpServer := server.NewMCPServer(
		"instainfo",
		"1.0.0",
		server.WithLogging(),
		server.WithRecovery(),
	)

	investigateTool := mcp.NewTool("investigate_instagram",
		mcp.WithDescription("Investigate a public Instagram account and return a JSON report with profile data, "+
			"engagement, posting patterns, hashtags, mentions, locations, and linked accounts."),
		mcp.WithString("target",
			mcp.Description("Instagram username (with or without @), profile URL, or post/reel URL."),
			mcp.Required(),
		),
		mcp.WithBoolean("skip_lookup",
			mcp.Description("Skip the obfuscated contact lookup."),
		),
	)
	mcpServer.AddTool(investigateTool, newInvestigateHandler(logger, opts...))

	if store != nil {
		latestTool := mcp.NewTool("latest_investigation",
			mcp.WithDescription("Return the most recent archived investigation report of an Instagram account."),
			mcp.WithString("username",
				mcp.Description("Instagram username, with or without @."),
				mcp.Required(),
			),
		)
		mcpServer.AddTool(latestTool, newLatestHandler(logger, store))
	}

	logger.Info("starting instainfo MCP server via stdio")
	if err := server.ServeStdio(mcpServer); err != nil {
		logger.Error("server error", "error", err)
		os.Exit(1) //nolint:gocritic // exitAfterDefer is acceptable in main
	}
}
