package mcp

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strings"
	"unicode"

	"github.com/invopop/jsonschema"
)

// ToolContext is the per-invocation side-channel passed to a callable tool alongside its
// decoded arguments. It is never reflected into the tool's input schema.
type ToolContext struct {
	// Progress reports operation progress to the calling client, if supported.
	Progress ProgressReporter
	// RequestClient lets the callable issue server-to-client requests (roots, sampling)
	// while handling the call.
	RequestClient RequestClientFunc
}

// ToolFunc is a host callable adapted into a Tool by NewCallableTool. A is the callable's
// argument struct; its exported fields (minus any carrying the `json:",omitempty"` tag) are
// the tool's required input properties.
type ToolFunc[A any] func(ctx context.Context, tc ToolContext, args A) (any, error)

// ToolImage is returned by a ToolFunc to produce image content instead of JSON-serialized
// text. When MimeType is set, the result is an Image content item; otherwise it's packaged
// as a {mimeType, data} JSON object wrapped in a Text content item, matching a generator that
// has no declared mime type for the tool.
type ToolImage struct {
	Data     []byte
	MimeType string
}

type callableToolConfig struct {
	description    string
	upperCaseTypes bool
}

// CallableToolOption configures a tool built by NewCallableTool.
type CallableToolOption func(*callableToolConfig)

// WithCallableToolDescription overrides the tool's description. Without this option the
// description defaults to the de-camel-cased tool name.
func WithCallableToolDescription(description string) CallableToolOption {
	return func(c *callableToolConfig) {
		c.description = description
	}
}

// WithCallableToolUpperCaseTypes upper-cases every "type" value in the generated input
// schema, for providers that expect e.g. "STRING" instead of "string".
func WithCallableToolUpperCaseTypes() CallableToolOption {
	return func(c *callableToolConfig) {
		c.upperCaseTypes = true
	}
}

// NewCallableTool reflects A's fields into a Draft 2020-12 JSON Schema and wraps fn into a
// ToolHandler that decodes CallToolParams.Arguments into A, injects a ToolContext, invokes fn,
// and converts the result into a CallToolResult. The returned Tool and ToolHandler can be
// passed to ToolRegistry.Add or wired directly into a hand-rolled ToolServer.
func NewCallableTool[A any](name string, fn ToolFunc[A], opts ...CallableToolOption) (Tool, ToolHandler) {
	cfg := callableToolConfig{}
	for _, opt := range opts {
		opt(&cfg)
	}

	description := cfg.description
	if description == "" {
		description = deCamelCase(name)
	}

	schema := reflectInputSchema[A]()
	if cfg.upperCaseTypes {
		upperCaseSchemaTypes(schema)
	}
	raw, err := json.Marshal(schema)
	if err != nil {
		raw = json.RawMessage(`{"type":"object","additionalProperties":false}`)
	}

	tool := Tool{
		Name:        name,
		Description: description,
		InputSchema: raw,
	}

	handler := func(
		ctx context.Context,
		params CallToolParams,
		progress ProgressReporter,
		requestClient RequestClientFunc,
	) (CallToolResult, error) {
		var args A
		if len(params.Arguments) > 0 {
			if err := checkRequiredArguments(params.Arguments, schema.Required); err != nil {
				return CallToolResult{}, fmt.Errorf("invalid arguments for tool %s: %w", name, err)
			}

			dec := json.NewDecoder(bytes.NewReader(params.Arguments))
			dec.DisallowUnknownFields()
			if err := dec.Decode(&args); err != nil {
				return CallToolResult{}, fmt.Errorf("invalid arguments for tool %s: %w", name, err)
			}
		} else if len(schema.Required) > 0 {
			return CallToolResult{}, fmt.Errorf(
				"invalid arguments for tool %s: missing required argument %q", name, schema.Required[0],
			)
		}

		tc := ToolContext{Progress: progress, RequestClient: requestClient}

		result, err := fn(ctx, tc, args)
		if err != nil {
			return CallToolResult{}, err
		}

		return convertToolResult(result)
	}

	return tool, handler
}

// checkRequiredArguments reports an error naming the first property in required that is
// absent from raw's top-level JSON object. encoding/json happily decodes a missing
// non-omitempty field to its zero value, so this check runs ahead of the decode into A to
// reject the call per the adapter's "missing required arguments fail the call" contract.
func checkRequiredArguments(raw json.RawMessage, required []string) error {
	if len(required) == 0 {
		return nil
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil {
		return fmt.Errorf("%w", err)
	}

	for _, name := range required {
		if _, ok := fields[name]; !ok {
			return fmt.Errorf("missing required argument %q", name)
		}
	}
	return nil
}

// reflectInputSchema reflects A into a Draft 2020-12 object schema. Fields are required
// unless tagged `json:",omitempty"`; nested struct types are referenced under $defs rather
// than inlined.
func reflectInputSchema[A any]() *jsonschema.Schema {
	r := &jsonschema.Reflector{
		ExpandedStruct:             true,
		AllowAdditionalProperties:  false,
		RequiredFromJSONSchemaTags: false,
	}
	return r.Reflect(new(A))
}

// upperCaseSchemaTypes walks a reflected schema's properties and $defs, upper-casing every
// "type" value in place. Properties is an *orderedmap.OrderedMap, but Definitions is a plain
// map[string]*Schema, so the two fields are walked differently.
func upperCaseSchemaTypes(s *jsonschema.Schema) {
	if s == nil {
		return
	}

	if s.Type != "" {
		s.Type = strings.ToUpper(s.Type)
	}

	if s.Items != nil {
		upperCaseSchemaTypes(s.Items)
	}

	if s.Properties != nil {
		for el := s.Properties.Oldest(); el != nil; el = el.Next() {
			upperCaseSchemaTypes(el.Value)
		}
	}

	for _, def := range s.Definitions {
		upperCaseSchemaTypes(def)
	}
}

// deCamelCase inserts a space before each interior uppercase rune, e.g. "getWeather"
// becomes "get Weather". Used to derive a default tool description from its name.
func deCamelCase(s string) string {
	var b strings.Builder
	for i, r := range s {
		if i > 0 && unicode.IsUpper(r) {
			b.WriteByte(' ')
		}
		b.WriteRune(r)
	}
	return b.String()
}

// convertToolResult converts a ToolFunc's return value into a CallToolResult per the
// adapter's result contract: nil becomes a "Done" text, a ToolImage becomes image content
// (or a JSON-wrapped text fallback when no mime type was attached), and everything else is
// JSON-serialized into a single text content item.
func convertToolResult(v any) (CallToolResult, error) {
	if v == nil {
		return CallToolResult{Content: []Content{{Type: ContentTypeText, Text: "Done"}}}, nil
	}

	if img, ok := v.(ToolImage); ok {
		data := base64.StdEncoding.EncodeToString(img.Data)
		if img.MimeType != "" {
			return CallToolResult{
				Content: []Content{{Type: ContentTypeImage, Data: data, MimeType: img.MimeType}},
			}, nil
		}

		payload, err := json.Marshal(struct {
			MimeType string `json:"mimeType"`
			Data     string `json:"data"`
		}{MimeType: "image/png", Data: data})
		if err != nil {
			return CallToolResult{}, fmt.Errorf("failed to marshal image payload: %w", err)
		}

		return CallToolResult{Content: []Content{{Type: ContentTypeText, Text: string(payload)}}}, nil
	}

	data, err := json.Marshal(v)
	if err != nil {
		return CallToolResult{}, fmt.Errorf("failed to marshal tool result: %w", err)
	}

	return CallToolResult{Content: []Content{{Type: ContentTypeText, Text: string(data)}}}, nil
}

// prefixedToolName joins prefix and toolName for a merged tool set. It errors when either
// argument is empty.
func prefixedToolName(prefix, toolName string) (string, error) {
	if prefix == "" || toolName == "" {
		return "", fmt.Errorf("prefix and tool name must both be non-empty")
	}
	return prefix + "." + toolName, nil
}

// MergeToolSet registers tools under name "<prefix>.<tool.Name>" into r, resolving collisions
// by keeping the first occurrence: a name already present in r is skipped rather than
// erroring, so merging several tool sets that happen to overlap is a no-op for the overlap.
func (r *ToolRegistry) MergeToolSet(prefix string, tools []Tool, handlers map[string]ToolHandler) error {
	for _, tool := range tools {
		mergedName, err := prefixedToolName(prefix, tool.Name)
		if err != nil {
			return err
		}

		handler := handlers[tool.Name]
		if handler == nil {
			return fmt.Errorf("no handler provided for tool %s", tool.Name)
		}

		merged := tool
		merged.Name = mergedName

		if err := r.Add(merged, handler); err != nil {
			continue
		}
	}

	return nil
}
