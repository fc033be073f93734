package main

import (
	"context"
	"fmt"
	"slices"
	"strconv"

	"github.com/relaykit/mcp"
)

type server struct{}

func (s server) prompts() [][]mcp.Prompt {
	return [][]mcp.Prompt{
		{
			{
				Name:        "test-prompt-1",
				Description: "Test Prompt 1",
				Arguments: []mcp.PromptArgument{
					{Name: "arg1", Description: "Argument 1", Required: true},
				},
			},
		},
		{
			{
				Name:        "test-prompt-2",
				Description: "Test Prompt 2",
				Arguments: []mcp.PromptArgument{
					{Name: "arg2", Description: "Argument 2", Required: false},
				},
			},
		},
		{
			{
				Name:        "test-prompt-3",
				Description: "Test Prompt 3",
				Arguments: []mcp.PromptArgument{
					{Name: "arg3", Description: "Argument 3", Required: true},
				},
			},
		},
	}
}

func (s server) promptResults() map[string]mcp.GetPromptResult {
	return map[string]mcp.GetPromptResult{
		"test-prompt-1": {
			Description: "Test Prompt 1",
			Messages: []mcp.PromptMessage{
				{
					Role:    mcp.RoleUser,
					Content: mcp.Content{Type: mcp.ContentTypeText, Text: "Hello"},
				},
			},
		},
		"test-prompt-2": {
			Description: "Test Prompt 2",
			Messages: []mcp.PromptMessage{
				{
					Role:    mcp.RoleAssistant,
					Content: mcp.Content{Type: mcp.ContentTypeText, Text: "Hello"},
				},
				{
					Role:    mcp.RoleUser,
					Content: mcp.Content{Type: mcp.ContentTypeText, Text: "World"},
				},
			},
		},
		"test-prompt-3": {
			Description: "Test Prompt 3",
			Messages: []mcp.PromptMessage{
				{
					Role:    mcp.RoleAssistant,
					Content: mcp.Content{Type: mcp.ContentTypeText, Text: "Hello"},
				},
				{
					Role:    mcp.RoleUser,
					Content: mcp.Content{Type: mcp.ContentTypeText, Text: "MCP"},
				},
			},
		},
	}
}

// ListPrompts implements mcp.PromptServer.
func (s server) ListPrompts(
	_ context.Context,
	params mcp.ListPromptsParams,
	_ mcp.ProgressReporter,
	_ mcp.RequestClientFunc,
) (mcp.ListPromptResult, error) {
	crs := params.Cursor
	if crs == "" {
		crs = "0"
	}
	crsInt, err := strconv.Atoi(crs)
	if err != nil {
		return mcp.ListPromptResult{}, fmt.Errorf("invalid cursor: %w", err)
	}

	nc := crsInt + 1
	ncStr := strconv.Itoa(nc)
	if nc >= len(s.prompts()) {
		ncStr = ""
	}

	return mcp.ListPromptResult{
		Prompts:    s.prompts()[crsInt],
		NextCursor: ncStr,
	}, nil
}

// GetPrompt implements mcp.PromptServer.
func (s server) GetPrompt(
	_ context.Context,
	params mcp.GetPromptParams,
	_ mcp.ProgressReporter,
	_ mcp.RequestClientFunc,
) (mcp.GetPromptResult, error) {
	found := false
	for _, ps := range s.prompts() {
		idx := slices.IndexFunc(ps, func(p mcp.Prompt) bool {
			return p.Name == params.Name
		})
		if idx > -1 {
			found = true
			break
		}
	}
	if !found {
		return mcp.GetPromptResult{}, fmt.Errorf("prompt not found")
	}

	return s.promptResults()[params.Name], nil
}

// CompletesPrompt implements mcp.PromptServer.
func (s server) CompletesPrompt(
	_ context.Context,
	_ mcp.CompletesCompletionParams,
	_ mcp.RequestClientFunc,
) (mcp.CompletionResult, error) {
	return mcp.CompletionResult{}, nil
}
