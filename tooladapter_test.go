package mcp_test

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/relaykit/mcp"
)

type getWeatherArgs struct {
	City    string `json:"city"`
	Units   string `json:"units,omitempty"`
	Invalid string `json:"-"`
}

func TestNewCallableTool_SchemaAndDefaults(t *testing.T) {
	tool, _ := mcp.NewCallableTool("getWeather", func(
		context.Context, mcp.ToolContext, getWeatherArgs,
	) (any, error) {
		return nil, nil
	})

	if tool.Name != "getWeather" {
		t.Fatalf("tool.Name = %q, want %q", tool.Name, "getWeather")
	}
	if tool.Description != "get Weather" {
		t.Fatalf("tool.Description = %q, want %q", tool.Description, "get Weather")
	}

	var schema map[string]any
	if err := json.Unmarshal(tool.InputSchema, &schema); err != nil {
		t.Fatalf("InputSchema is not valid JSON: %v", err)
	}
	if schema["type"] != "object" {
		t.Fatalf("InputSchema.type = %v, want \"object\"", schema["type"])
	}
	props, ok := schema["properties"].(map[string]any)
	if !ok {
		t.Fatalf("InputSchema.properties is not an object: %v", schema["properties"])
	}
	if _, ok := props["city"]; !ok {
		t.Fatalf("InputSchema.properties missing \"city\": %v", props)
	}

	required, _ := schema["required"].([]any)
	hasCity := false
	for _, r := range required {
		if r == "city" {
			hasCity = true
		}
		if r == "units" {
			t.Fatal("InputSchema.required lists \"units\", which is tagged omitempty and should be optional")
		}
	}
	if !hasCity {
		t.Fatalf("InputSchema.required = %v, want it to include \"city\"", required)
	}
}

func TestNewCallableTool_DescriptionOverride(t *testing.T) {
	tool, _ := mcp.NewCallableTool("getWeather", func(
		context.Context, mcp.ToolContext, getWeatherArgs,
	) (any, error) {
		return nil, nil
	}, mcp.WithCallableToolDescription("fetches current weather"))

	if tool.Description != "fetches current weather" {
		t.Fatalf("tool.Description = %q, want override to take effect", tool.Description)
	}
}

func TestNewCallableTool_Invoke(t *testing.T) {
	_, handler := mcp.NewCallableTool("getWeather", func(
		_ context.Context, _ mcp.ToolContext, args getWeatherArgs,
	) (any, error) {
		return map[string]string{"city": args.City, "conditions": "sunny"}, nil
	})

	params := mcp.CallToolParams{Arguments: json.RawMessage(`{"city":"Boston"}`)}
	result, err := handler(context.Background(), params, nil, nil)
	if err != nil {
		t.Fatalf("handler() unexpected error: %v", err)
	}
	if len(result.Content) != 1 || result.Content[0].Type != mcp.ContentTypeText {
		t.Fatalf("handler() = %+v, want a single text content item", result.Content)
	}

	var decoded map[string]string
	if err := json.Unmarshal([]byte(result.Content[0].Text), &decoded); err != nil {
		t.Fatalf("result content is not valid JSON: %v", err)
	}
	if decoded["city"] != "Boston" {
		t.Fatalf("decoded[\"city\"] = %q, want %q", decoded["city"], "Boston")
	}
}

func TestNewCallableTool_InvalidArguments(t *testing.T) {
	_, handler := mcp.NewCallableTool("getWeather", func(
		context.Context, mcp.ToolContext, getWeatherArgs,
	) (any, error) {
		return nil, nil
	})

	params := mcp.CallToolParams{Arguments: json.RawMessage(`{"city":"Boston","extra":true}`)}
	if _, err := handler(context.Background(), params, nil, nil); err == nil {
		t.Fatal("handler() expected error for unknown field, got nil")
	}
}

func TestNewCallableTool_MissingRequiredArgument(t *testing.T) {
	_, handler := mcp.NewCallableTool("getWeather", func(
		context.Context, mcp.ToolContext, getWeatherArgs,
	) (any, error) {
		return nil, nil
	})

	params := mcp.CallToolParams{Arguments: json.RawMessage(`{"units":"celsius"}`)}
	if _, err := handler(context.Background(), params, nil, nil); err == nil {
		t.Fatal("handler() expected error for missing required \"city\" argument, got nil")
	}

	if _, err := handler(context.Background(), mcp.CallToolParams{}, nil, nil); err == nil {
		t.Fatal("handler() expected error for entirely absent arguments, got nil")
	}
}

func TestNewCallableTool_UpperCaseTypes(t *testing.T) {
	tool, _ := mcp.NewCallableTool("getWeather", func(
		context.Context, mcp.ToolContext, getWeatherArgs,
	) (any, error) {
		return nil, nil
	}, mcp.WithCallableToolUpperCaseTypes())

	var schema map[string]any
	if err := json.Unmarshal(tool.InputSchema, &schema); err != nil {
		t.Fatalf("InputSchema is not valid JSON: %v", err)
	}
	if schema["type"] != "OBJECT" {
		t.Fatalf("InputSchema.type = %v, want \"OBJECT\"", schema["type"])
	}

	props, ok := schema["properties"].(map[string]any)
	if !ok {
		t.Fatalf("InputSchema.properties is not an object: %v", schema["properties"])
	}
	city, ok := props["city"].(map[string]any)
	if !ok {
		t.Fatalf("InputSchema.properties.city is not an object: %v", props["city"])
	}
	if city["type"] != "STRING" {
		t.Fatalf("InputSchema.properties.city.type = %v, want \"STRING\"", city["type"])
	}
}

func TestNewCallableTool_HandlerErrorBecomesGoError(t *testing.T) {
	wantErr := errors.New("boom")
	_, handler := mcp.NewCallableTool("getWeather", func(
		context.Context, mcp.ToolContext, getWeatherArgs,
	) (any, error) {
		return nil, wantErr
	})

	params := mcp.CallToolParams{Arguments: json.RawMessage(`{"city":"Boston"}`)}
	_, err := handler(context.Background(), params, nil, nil)
	if !errors.Is(err, wantErr) {
		t.Fatalf("handler() error = %v, want %v", err, wantErr)
	}
}

func TestNewCallableTool_NilResultIsDone(t *testing.T) {
	_, handler := mcp.NewCallableTool("noop", func(
		context.Context, mcp.ToolContext, getWeatherArgs,
	) (any, error) {
		return nil, nil
	})

	params := mcp.CallToolParams{Arguments: json.RawMessage(`{"city":"Boston"}`)}
	result, err := handler(context.Background(), params, nil, nil)
	if err != nil {
		t.Fatalf("handler() unexpected error: %v", err)
	}
	if len(result.Content) != 1 || result.Content[0].Text != "Done" {
		t.Fatalf("handler() = %+v, want a single \"Done\" text content item", result.Content)
	}
}

func TestNewCallableTool_ImageResult(t *testing.T) {
	_, handler := mcp.NewCallableTool("render", func(
		context.Context, mcp.ToolContext, getWeatherArgs,
	) (any, error) {
		return mcp.ToolImage{Data: []byte("fake-png-bytes"), MimeType: "image/png"}, nil
	})

	params := mcp.CallToolParams{Arguments: json.RawMessage(`{"city":"Boston"}`)}
	result, err := handler(context.Background(), params, nil, nil)
	if err != nil {
		t.Fatalf("handler() unexpected error: %v", err)
	}
	if len(result.Content) != 1 || result.Content[0].Type != mcp.ContentTypeImage {
		t.Fatalf("handler() = %+v, want a single image content item", result.Content)
	}
	if result.Content[0].MimeType != "image/png" {
		t.Fatalf("handler() MimeType = %q, want %q", result.Content[0].MimeType, "image/png")
	}
}

func TestToolRegistry_MergeToolSet(t *testing.T) {
	r := mcp.NewToolRegistry()
	defer r.Close()

	noop := func(
		_ context.Context, _ mcp.CallToolParams, _ mcp.ProgressReporter, _ mcp.RequestClientFunc,
	) (mcp.CallToolResult, error) {
		return mcp.CallToolResult{}, nil
	}

	tools := []mcp.Tool{{Name: "search"}, {Name: "fetch"}}
	handlers := map[string]mcp.ToolHandler{"search": noop, "fetch": noop}

	if err := r.MergeToolSet("web", tools, handlers); err != nil {
		t.Fatalf("MergeToolSet() unexpected error: %v", err)
	}

	result, err := r.ListTools(context.Background(), mcp.ListToolsParams{}, nil, nil)
	if err != nil {
		t.Fatalf("ListTools() unexpected error: %v", err)
	}
	if len(result.Tools) != 2 {
		t.Fatalf("ListTools() = %+v, want 2 merged tools", result.Tools)
	}
	for _, tool := range result.Tools {
		if tool.Name != "web.search" && tool.Name != "web.fetch" {
			t.Fatalf("unexpected merged tool name %q", tool.Name)
		}
	}

	// Re-merging the same set should keep the first occurrence rather than erroring.
	if err := r.MergeToolSet("web", tools, handlers); err != nil {
		t.Fatalf("MergeToolSet() unexpected error on re-merge: %v", err)
	}
	afterRemerge, err := r.ListTools(context.Background(), mcp.ListToolsParams{}, nil, nil)
	if err != nil {
		t.Fatalf("ListTools() unexpected error: %v", err)
	}
	if len(afterRemerge.Tools) != 2 {
		t.Fatalf("ListTools() after re-merge = %+v, want still 2 tools", afterRemerge.Tools)
	}
}
