package main

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/DEV-EVIIL/INSTA-INFO/pkg/archive"
	"github.com/DEV-EVIIL/INSTA-INFO/pkg/investigate"
	"github.com/DEV-EVIIL/INSTA-INFO/pkg/report"
)

type toolHandler = func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error)

func textResult(text string, isError bool) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.TextContent{
				Type: "text",
				Text: text,
			},
		},
		IsError: isError,
	}
}

func newInvestigateHandler(logger *slog.Logger, opts ...investigate.Option) toolHandler {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		args := request.Params.Arguments

		target, ok := args["target"].(string)
		if !ok || strings.TrimSpace(target) == "" {
			return nil, errors.New("missing or invalid required argument: target (string)")
		}

		runOpts := opts
		if skip, ok := args["skip_lookup"].(bool); ok && skip {
			runOpts = append(runOpts[:len(runOpts):len(runOpts)], investigate.WithoutLookup())
		}

		logger.InfoContext(ctx, "handling investigate_instagram", "target", target)

		r, err := investigate.Run(ctx, target, runOpts...)
		if err != nil {
			// Failures are reported to the model as a tool result, not a protocol error.
			return textResult("investigation failed: "+investigate.Classify(err), true), nil
		}

		var b strings.Builder
		if err := r.WriteJSON(&b); err != nil {
			return nil, err
		}
		return textResult(b.String(), false), nil
	}
}

// reportFinder returns the newest archived report for a username.
type reportFinder interface {
	Latest(ctx context.Context, username string) (*report.Report, error)
}

func newLatestHandler(logger *slog.Logger, finder reportFinder) toolHandler {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		username, ok := request.Params.Arguments["username"].(string)
		username = strings.TrimPrefix(strings.TrimSpace(username), "@")
		if !ok || username == "" {
			return nil, errors.New("missing or invalid required argument: username (string)")
		}

		logger.InfoContext(ctx, "handling latest_investigation", "username", username)

		r, err := finder.Latest(ctx, username)
		if errors.Is(err, archive.ErrNotFound) {
			return textResult("no archived investigation for @"+username, true), nil
		}
		if err != nil {
			return nil, err
		}

		var b strings.Builder
		if err := r.WriteJSON(&b); err != nil {
			return nil, err
		}
		return textResult(b.String(), false), nil
	}
}
