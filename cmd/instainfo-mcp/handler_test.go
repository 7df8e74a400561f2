package main

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/DEV-EVIIL/INSTA-INFO/pkg/analysis"
	"github.com/DEV-EVIIL/INSTA-INFO/pkg/archive"
	"github.com/DEV-EVIIL/INSTA-INFO/pkg/investigate"
	"github.com/DEV-EVIIL/INSTA-INFO/pkg/profile"
	"github.com/DEV-EVIIL/INSTA-INFO/pkg/report"
)

type stubProvider struct{}

func (stubProvider) FetchProfile(_ context.Context, handle string) (*profile.Profile, error) {
	if handle != "janedoe" {
		return nil, profile.ErrProfileNotFound
	}
	return &profile.Profile{Username: "janedoe", UserID: "1", Followers: 10}, nil
}

func (stubProvider) FetchPosts(context.Context, string) ([]profile.Post, error) { return nil, nil }

func (stubProvider) ResolveShortcode(context.Context, string) (string, error) {
	return "", profile.ErrProfileNotFound
}

func call(t *testing.T, args map[string]any) (*mcp.CallToolResult, error) {
	t.Helper()
	h := newInvestigateHandler(slog.Default(), investigate.WithProvider(stubProvider{}), investigate.WithoutLookup())
	req := mcp.CallToolRequest{}
	req.Params.Name = "investigate_instagram"
	req.Params.Arguments = args
	return h(context.Background(), req)
}

func resultText(t *testing.T, res *mcp.CallToolResult) string {
	t.Helper()
	if len(res.Content) != 1 {
		t.Fatalf("result has %d content items, want 1", len(res.Content))
	}
	tc, ok := res.Content[0].(mcp.TextContent)
	if !ok {
		t.Fatalf("content is %T, want mcp.TextContent", res.Content[0])
	}
	return tc.Text
}

func TestInvestigateHandler(t *testing.T) {
	res, err := call(t, map[string]any{"target": "@janedoe"})
	if err != nil {
		t.Fatalf("handler error = %v", err)
	}
	if res.IsError {
		t.Fatalf("result is an error: %s", resultText(t, res))
	}

	var report map[string]any
	if err := json.Unmarshal([]byte(resultText(t, res)), &report); err != nil {
		t.Fatalf("result is not JSON: %v", err)
	}
	if report["username"] != "janedoe" {
		t.Errorf("username = %v, want janedoe", report["username"])
	}
}

func TestInvestigateHandlerNotFound(t *testing.T) {
	res, err := call(t, map[string]any{"target": "nobody"})
	if err != nil {
		t.Fatalf("handler error = %v", err)
	}
	if !res.IsError {
		t.Fatal("result should be an error")
	}
	if got, want := resultText(t, res), "investigation failed: not_found"; got != want {
		t.Errorf("result = %q, want %q", got, want)
	}
}

func TestInvestigateHandlerMissingTarget(t *testing.T) {
	for _, args := range []map[string]any{{}, {"target": ""}, {"target": 42}} {
		if _, err := call(t, args); err == nil {
			t.Errorf("handler(%v) should fail", args)
		}
	}
}

type stubFinder struct {
	reports map[string]*report.Report
	err     error
}

func (f stubFinder) Latest(_ context.Context, username string) (*report.Report, error) {
	if f.err != nil {
		return nil, f.err
	}
	r, ok := f.reports[username]
	if !ok {
		return nil, archive.ErrNotFound
	}
	return r, nil
}

func TestLatestHandler(t *testing.T) {
	r, err := report.Assemble(&profile.Profile{Username: "janedoe", Followers: 10}, analysis.Blocks{}, nil,
		report.WithTimestamp(time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)))
	if err != nil {
		t.Fatalf("Assemble failed: %v", err)
	}
	h := newLatestHandler(slog.Default(), stubFinder{reports: map[string]*report.Report{"janedoe": r}})

	tests := []struct {
		name     string
		username any
		wantErr  bool
		wantText string
	}{
		{name: "found", username: "@janedoe"},
		{name: "not archived", username: "nobody", wantText: "no archived investigation for @nobody"},
		{name: "missing", username: nil, wantErr: true},
		{name: "blank", username: " @ ", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := mcp.CallToolRequest{}
			req.Params.Name = "latest_investigation"
			req.Params.Arguments = map[string]any{"username": tt.username}

			res, err := h(context.Background(), req)
			if tt.wantErr {
				if err == nil {
					t.Fatal("handler should fail")
				}
				return
			}
			if err != nil {
				t.Fatalf("handler error = %v", err)
			}
			if tt.wantText != "" {
				if !res.IsError || resultText(t, res) != tt.wantText {
					t.Errorf("result = %q (error %v), want error %q", resultText(t, res), res.IsError, tt.wantText)
				}
				return
			}

			var got map[string]any
			if err := json.Unmarshal([]byte(resultText(t, res)), &got); err != nil {
				t.Fatalf("result is not JSON: %v", err)
			}
			if got["id"] != r.ID {
				t.Errorf("id = %v, want %s", got["id"], r.ID)
			}
		})
	}
}

func TestLatestHandlerStoreError(t *testing.T) {
	h := newLatestHandler(slog.Default(), stubFinder{err: errors.New("connection refused")})

	req := mcp.CallToolRequest{}
	req.Params.Arguments = map[string]any{"username": "janedoe"}
	if _, err := h(context.Background(), req); err == nil {
		t.Error("handler should surface store errors")
	}
}
