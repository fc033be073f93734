package mcp_test

import (
	"context"
	"testing"
	"time"

	"github.com/relaykit/mcp"
)

func TestToolRegistry_AddRemove(t *testing.T) {
	r := mcp.NewToolRegistry()
	defer r.Close()

	echo := mcp.Tool{Name: "echo"}
	handler := func(
		_ context.Context, params mcp.CallToolParams, _ mcp.ProgressReporter, _ mcp.RequestClientFunc,
	) (mcp.CallToolResult, error) {
		return mcp.CallToolResult{Content: []mcp.Content{{Type: mcp.ContentTypeText, Text: "ok"}}}, nil
	}

	if err := r.Add(echo, handler); err != nil {
		t.Fatalf("Add() unexpected error: %v", err)
	}

	if err := r.Add(echo, handler); err == nil {
		t.Fatal("Add() expected error on duplicate name, got nil")
	}

	result, err := r.ListTools(context.Background(), mcp.ListToolsParams{}, nil, nil)
	if err != nil {
		t.Fatalf("ListTools() unexpected error: %v", err)
	}
	if len(result.Tools) != 1 || result.Tools[0].Name != "echo" {
		t.Fatalf("ListTools() = %+v, want a single echo tool", result.Tools)
	}

	callResult, err := r.CallTool(context.Background(), mcp.CallToolParams{Name: "echo"}, nil, nil)
	if err != nil {
		t.Fatalf("CallTool() unexpected error: %v", err)
	}
	if len(callResult.Content) != 1 || callResult.Content[0].Text != "ok" {
		t.Fatalf("CallTool() = %+v, want text content \"ok\"", callResult)
	}

	if _, err := r.CallTool(context.Background(), mcp.CallToolParams{Name: "missing"}, nil, nil); err == nil {
		t.Fatal("CallTool() expected error for unknown tool, got nil")
	}

	if err := r.Remove("echo"); err != nil {
		t.Fatalf("Remove() unexpected error: %v", err)
	}
	if err := r.Remove("echo"); err == nil {
		t.Fatal("Remove() expected error on absent name, got nil")
	}
}

func TestToolRegistry_ListTools_Pagination(t *testing.T) {
	r := mcp.NewToolRegistry()
	defer r.Close()

	handler := func(
		_ context.Context, _ mcp.CallToolParams, _ mcp.ProgressReporter, _ mcp.RequestClientFunc,
	) (mcp.CallToolResult, error) {
		return mcp.CallToolResult{}, nil
	}

	for i := 0; i < 15; i++ {
		if err := r.Add(mcp.Tool{Name: string(rune('a' + i))}, handler); err != nil {
			t.Fatalf("Add() unexpected error: %v", err)
		}
	}

	first, err := r.ListTools(context.Background(), mcp.ListToolsParams{}, nil, nil)
	if err != nil {
		t.Fatalf("ListTools() unexpected error: %v", err)
	}
	if len(first.Tools) != 10 || first.NextCursor == "" {
		t.Fatalf("ListTools() first page = %d tools, cursor %q, want 10 tools and a cursor",
			len(first.Tools), first.NextCursor)
	}

	second, err := r.ListTools(context.Background(), mcp.ListToolsParams{Cursor: first.NextCursor}, nil, nil)
	if err != nil {
		t.Fatalf("ListTools() unexpected error: %v", err)
	}
	if len(second.Tools) != 5 || second.NextCursor != "" {
		t.Fatalf("ListTools() second page = %d tools, cursor %q, want 5 tools and no cursor",
			len(second.Tools), second.NextCursor)
	}
}

func TestToolRegistry_ToolListUpdates(t *testing.T) {
	r := mcp.NewToolRegistry(mcp.WithToolRegistryListChanged())
	defer r.Close()

	updates := r.ToolListUpdates()
	received := make(chan struct{})
	go func() {
		for range updates {
			close(received)
			return
		}
	}()

	handler := func(
		_ context.Context, _ mcp.CallToolParams, _ mcp.ProgressReporter, _ mcp.RequestClientFunc,
	) (mcp.CallToolResult, error) {
		return mcp.CallToolResult{}, nil
	}
	if err := r.Add(mcp.Tool{Name: "t"}, handler); err != nil {
		t.Fatalf("Add() unexpected error: %v", err)
	}

	select {
	case <-received:
	case <-time.After(time.Second):
		t.Fatal("ToolListUpdates() did not emit after Add()")
	}
}

func TestResourceRegistry_LiteralAndTemplate(t *testing.T) {
	r := mcp.NewResourceRegistry()
	defer r.Close()

	literalHandler := func(_ context.Context, uri string, _ map[string]string) (mcp.ReadResourceResult, error) {
		return mcp.ReadResourceResult{Contents: []mcp.ResourceContents{{URI: uri, Text: "literal"}}}, nil
	}
	if err := r.Add(mcp.Resource{URI: "test://static/one", Name: "one"}, literalHandler); err != nil {
		t.Fatalf("Add() unexpected error: %v", err)
	}

	templateHandler := func(_ context.Context, uri string, vars map[string]string) (mcp.ReadResourceResult, error) {
		return mcp.ReadResourceResult{
			Contents: []mcp.ResourceContents{{URI: uri, Text: "resource " + vars["id"]}},
		}, nil
	}
	if err := r.AddTemplate(mcp.ResourceTemplate{
		URITemplate: "test://static/resource/{id}",
		Name:        "Static Resource",
	}, templateHandler); err != nil {
		t.Fatalf("AddTemplate() unexpected error: %v", err)
	}

	listResult, err := r.ListResources(context.Background(), mcp.ListResourcesParams{}, nil, nil)
	if err != nil {
		t.Fatalf("ListResources() unexpected error: %v", err)
	}
	if len(listResult.Resources) != 1 || listResult.Resources[0].URI != "test://static/one" {
		t.Fatalf("ListResources() = %+v, want only the literal resource", listResult.Resources)
	}

	templatesResult, err := r.ListResourceTemplates(context.Background(), mcp.ListResourceTemplatesParams{}, nil, nil)
	if err != nil {
		t.Fatalf("ListResourceTemplates() unexpected error: %v", err)
	}
	if len(templatesResult.Templates) != 1 {
		t.Fatalf("ListResourceTemplates() = %+v, want a single template", templatesResult.Templates)
	}

	literalRead, err := r.ReadResource(context.Background(), mcp.ReadResourceParams{URI: "test://static/one"}, nil, nil)
	if err != nil {
		t.Fatalf("ReadResource() unexpected error: %v", err)
	}
	if literalRead.Contents[0].Text != "literal" {
		t.Fatalf("ReadResource() literal = %+v, want text \"literal\"", literalRead.Contents)
	}

	templateRead, err := r.ReadResource(
		context.Background(), mcp.ReadResourceParams{URI: "test://static/resource/42"}, nil, nil)
	if err != nil {
		t.Fatalf("ReadResource() unexpected error: %v", err)
	}
	if templateRead.Contents[0].Text != "resource 42" {
		t.Fatalf("ReadResource() template = %+v, want text \"resource 42\"", templateRead.Contents)
	}

	if _, err := r.ReadResource(context.Background(), mcp.ReadResourceParams{URI: "test://unknown"}, nil, nil); err == nil {
		t.Fatal("ReadResource() expected error for unmatched uri, got nil")
	}
}

func TestResourceRegistry_LiteralWinsOverEarlierRegisteredTemplate(t *testing.T) {
	r := mcp.NewResourceRegistry()
	defer r.Close()

	templateHandler := func(_ context.Context, uri string, vars map[string]string) (mcp.ReadResourceResult, error) {
		return mcp.ReadResourceResult{
			Contents: []mcp.ResourceContents{{URI: uri, Text: "template " + vars["id"]}},
		}, nil
	}
	if err := r.AddTemplate(mcp.ResourceTemplate{
		URITemplate: "test://static/resource/{id}",
		Name:        "Static Resource",
	}, templateHandler); err != nil {
		t.Fatalf("AddTemplate() unexpected error: %v", err)
	}

	literalHandler := func(_ context.Context, uri string, _ map[string]string) (mcp.ReadResourceResult, error) {
		return mcp.ReadResourceResult{Contents: []mcp.ResourceContents{{URI: uri, Text: "literal"}}}, nil
	}
	if err := r.Add(mcp.Resource{URI: "test://static/resource/42", Name: "exact"}, literalHandler); err != nil {
		t.Fatalf("Add() unexpected error: %v", err)
	}

	// "test://static/resource/42" matches both the template (registered first) and the
	// literal resource registered afterward; the exact literal match must win regardless of
	// registration order.
	read, err := r.ReadResource(
		context.Background(), mcp.ReadResourceParams{URI: "test://static/resource/42"}, nil, nil)
	if err != nil {
		t.Fatalf("ReadResource() unexpected error: %v", err)
	}
	if read.Contents[0].Text != "literal" {
		t.Fatalf("ReadResource() = %+v, want the literal resource to win the tie", read.Contents)
	}
}

func TestResourceRegistry_CompletesResourceTemplate(t *testing.T) {
	r := mcp.NewResourceRegistry()
	defer r.Close()

	handler := func(_ context.Context, uri string, _ map[string]string) (mcp.ReadResourceResult, error) {
		return mcp.ReadResourceResult{}, nil
	}
	if err := r.AddTemplate(mcp.ResourceTemplate{URITemplate: "test://resource/{id}"}, handler); err != nil {
		t.Fatalf("AddTemplate() unexpected error: %v", err)
	}

	if err := r.Completions().Add(
		mcp.CompletionRef{Type: mcp.CompletionRefResource, URI: "test://resource/{id}"},
		"id",
		func(_ context.Context, value string) (mcp.CompletionResult, error) {
			result := mcp.CompletionResult{}
			result.Completion.Values = []string{"1", "2"}
			return result, nil
		},
	); err != nil {
		t.Fatalf("Completions().Add() unexpected error: %v", err)
	}

	result, err := r.CompletesResourceTemplate(context.Background(), mcp.CompletesCompletionParams{
		Ref:      mcp.CompletionRef{Type: mcp.CompletionRefResource, URI: "test://resource/{id}"},
		Argument: mcp.CompletionArgument{Name: "id", Value: ""},
	}, nil)
	if err != nil {
		t.Fatalf("CompletesResourceTemplate() unexpected error: %v", err)
	}
	if len(result.Completion.Values) != 2 {
		t.Fatalf("CompletesResourceTemplate() = %+v, want 2 completion values", result.Completion)
	}

	_, err = r.CompletesResourceTemplate(context.Background(), mcp.CompletesCompletionParams{
		Ref:      mcp.CompletionRef{Type: mcp.CompletionRefResource, URI: "test://resource/{id}"},
		Argument: mcp.CompletionArgument{Name: "notAVariable", Value: ""},
	}, nil)
	if err == nil {
		t.Fatal("CompletesResourceTemplate() expected error for unknown argument, got nil")
	}
}

func TestPromptRegistry_GetPromptValidatesArguments(t *testing.T) {
	r := mcp.NewPromptRegistry()
	defer r.Close()

	handler := func(_ context.Context, args map[string]string) (mcp.GetPromptResult, error) {
		return mcp.GetPromptResult{Description: args["topic"]}, nil
	}
	if err := r.Add(mcp.Prompt{
		Name:      "summarize",
		Arguments: []mcp.PromptArgument{{Name: "topic", Required: true}},
	}, handler); err != nil {
		t.Fatalf("Add() unexpected error: %v", err)
	}

	result, err := r.GetPrompt(context.Background(), mcp.GetPromptParams{
		Name:      "summarize",
		Arguments: map[string]string{"topic": "weather"},
	}, nil, nil)
	if err != nil {
		t.Fatalf("GetPrompt() unexpected error: %v", err)
	}
	if result.Description != "weather" {
		t.Fatalf("GetPrompt() description = %q, want %q", result.Description, "weather")
	}

	_, err = r.GetPrompt(context.Background(), mcp.GetPromptParams{
		Name:      "summarize",
		Arguments: map[string]string{"undeclared": "x"},
	}, nil, nil)
	if err == nil {
		t.Fatal("GetPrompt() expected error for undeclared argument, got nil")
	}
}

func TestCompletionRegistry_AddRemoveComplete(t *testing.T) {
	reg := mcp.NewCompletionRegistry()

	ref := mcp.CompletionRef{Type: mcp.CompletionRefPrompt, Name: "summarize"}
	handler := func(_ context.Context, value string) (mcp.CompletionResult, error) {
		result := mcp.CompletionResult{}
		result.Completion.Values = []string{"weather", "news"}
		return result, nil
	}

	if err := reg.Add(ref, "topic", handler); err != nil {
		t.Fatalf("Add() unexpected error: %v", err)
	}
	if err := reg.Add(ref, "topic", handler); err == nil {
		t.Fatal("Add() expected error on duplicate registration, got nil")
	}

	result, err := reg.Complete(context.Background(), mcp.CompletesCompletionParams{
		Ref:      ref,
		Argument: mcp.CompletionArgument{Name: "topic", Value: "w"},
	})
	if err != nil {
		t.Fatalf("Complete() unexpected error: %v", err)
	}
	if len(result.Completion.Values) != 2 {
		t.Fatalf("Complete() = %+v, want 2 values", result.Completion)
	}

	unknown, err := reg.Complete(context.Background(), mcp.CompletesCompletionParams{
		Ref:      mcp.CompletionRef{Type: mcp.CompletionRefPrompt, Name: "other"},
		Argument: mcp.CompletionArgument{Name: "topic"},
	})
	if err != nil {
		t.Fatalf("Complete() unexpected error for unregistered ref: %v", err)
	}
	if len(unknown.Completion.Values) != 0 {
		t.Fatalf("Complete() = %+v, want empty result for unregistered ref", unknown.Completion)
	}

	if err := reg.Remove(ref, "topic"); err != nil {
		t.Fatalf("Remove() unexpected error: %v", err)
	}
	if err := reg.Remove(ref, "topic"); err == nil {
		t.Fatal("Remove() expected error on absent registration, got nil")
	}
}

func TestRootRegistry_AddRemoveList(t *testing.T) {
	r := mcp.NewRootRegistry()
	defer r.Close()

	if err := r.Add(mcp.Root{URI: "file:///a", Name: "a"}); err != nil {
		t.Fatalf("Add() unexpected error: %v", err)
	}
	if err := r.Add(mcp.Root{URI: "file:///a", Name: "a"}); err == nil {
		t.Fatal("Add() expected error on duplicate uri, got nil")
	}

	list, err := r.RootsList(context.Background())
	if err != nil {
		t.Fatalf("RootsList() unexpected error: %v", err)
	}
	if len(list.Roots) != 1 || list.Roots[0].URI != "file:///a" {
		t.Fatalf("RootsList() = %+v, want a single root", list.Roots)
	}

	if err := r.Remove("file:///a"); err != nil {
		t.Fatalf("Remove() unexpected error: %v", err)
	}
	if err := r.Remove("file:///a"); err == nil {
		t.Fatal("Remove() expected error on absent uri, got nil")
	}
}
