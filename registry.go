package mcp

import (
	"context"
	"fmt"
	"iter"
	"log/slog"
	"strconv"
	"strings"
	"sync"

	"github.com/yosida95/uritemplate/v3"
)

const registryPageSize = 10

// ToolHandler invokes a registered tool with its call parameters. The ProgressReporter and
// RequestClientFunc are forwarded unchanged from the ToolServer.CallTool call that dispatched
// to the registry.
type ToolHandler func(context.Context, CallToolParams, ProgressReporter, RequestClientFunc) (CallToolResult, error)

type toolEntry struct {
	tool    Tool
	handler ToolHandler
}

// ToolRegistry is a concurrency-safe, insertion-ordered collection of tools. It implements
// ToolServer and ToolListUpdater, so a server can register a ToolRegistry directly with
// WithToolServer/WithToolListUpdater instead of hand-rolling a static switch over tool names.
type ToolRegistry struct {
	mu      sync.RWMutex
	order   []string
	entries map[string]toolEntry

	listChanged bool
	updates     chan struct{}
	done        chan struct{}

	logger *slog.Logger
}

// ToolRegistryOption configures a ToolRegistry constructed by NewToolRegistry.
type ToolRegistryOption func(*ToolRegistry)

// WithToolRegistryListChanged enables "tools/list_changed" broadcasts on Add/Remove.
func WithToolRegistryListChanged() ToolRegistryOption {
	return func(r *ToolRegistry) {
		r.listChanged = true
	}
}

// WithToolRegistryLogger overrides the registry's logger.
func WithToolRegistryLogger(logger *slog.Logger) ToolRegistryOption {
	return func(r *ToolRegistry) {
		r.logger = logger
	}
}

// NewToolRegistry constructs an empty ToolRegistry.
func NewToolRegistry(opts ...ToolRegistryOption) *ToolRegistry {
	r := &ToolRegistry{
		entries: make(map[string]toolEntry),
		updates: make(chan struct{}, 1),
		done:    make(chan struct{}),
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Add registers a tool under tool.Name. It errors when the name is already registered.
func (r *ToolRegistry) Add(tool Tool, handler ToolHandler) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.entries[tool.Name]; exists {
		return fmt.Errorf("tool already registered: %s", tool.Name)
	}

	r.entries[tool.Name] = toolEntry{tool: tool, handler: handler}
	r.order = append(r.order, tool.Name)

	r.notifyListChanged()

	return nil
}

// Remove unregisters a tool by name. It errors when the name isn't registered.
func (r *ToolRegistry) Remove(name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.entries[name]; !exists {
		return fmt.Errorf("tool not registered: %s", name)
	}

	delete(r.entries, name)
	for i, n := range r.order {
		if n == name {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}

	r.notifyListChanged()

	return nil
}

func (r *ToolRegistry) notifyListChanged() {
	if !r.listChanged {
		return
	}
	select {
	case r.updates <- struct{}{}:
	default:
	}
}

// ListTools implements ToolServer.
func (r *ToolRegistry) ListTools(
	_ context.Context,
	params ListToolsParams,
	_ ProgressReporter,
	_ RequestClientFunc,
) (ListToolsResult, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	start := 0
	if params.Cursor != "" {
		parsed, err := strconv.Atoi(params.Cursor)
		if err != nil {
			return ListToolsResult{}, fmt.Errorf("invalid cursor: %w", err)
		}
		start = parsed
	}
	if start < 0 || start > len(r.order) {
		return ListToolsResult{}, fmt.Errorf("invalid cursor: %s", params.Cursor)
	}

	end := start + registryPageSize
	if end > len(r.order) {
		end = len(r.order)
	}

	tools := make([]Tool, 0, end-start)
	for _, name := range r.order[start:end] {
		tools = append(tools, r.entries[name].tool)
	}

	nextCursor := ""
	if end < len(r.order) {
		nextCursor = strconv.Itoa(end)
	}

	return ListToolsResult{Tools: tools, NextCursor: nextCursor}, nil
}

// CallTool implements ToolServer.
func (r *ToolRegistry) CallTool(
	ctx context.Context,
	params CallToolParams,
	progress ProgressReporter,
	requestClient RequestClientFunc,
) (CallToolResult, error) {
	r.mu.RLock()
	entry, ok := r.entries[params.Name]
	r.mu.RUnlock()
	if !ok {
		return CallToolResult{}, fmt.Errorf("tool not found: %s", params.Name)
	}

	return entry.handler(ctx, params, progress, requestClient)
}

// ToolListUpdates implements ToolListUpdater.
func (r *ToolRegistry) ToolListUpdates() iter.Seq[struct{}] {
	return func(yield func(struct{}) bool) {
		for {
			select {
			case <-r.done:
				return
			case <-r.updates:
				if !yield(struct{}{}) {
					return
				}
			}
		}
	}
}

// Close stops the registry's update stream. Safe to call once.
func (r *ToolRegistry) Close() {
	close(r.done)
}

// ResourceHandler reads the content of a resource matched by uri. vars carries the RFC-6570
// variable bindings extracted when uri matched a registered template; it is empty for a
// literal (non-templated) resource.
type ResourceHandler func(ctx context.Context, uri string, vars map[string]string) (ReadResourceResult, error)

type resourceEntry struct {
	resource Resource
	template ResourceTemplate
	isTmpl   bool
	compiled *uritemplate.Template
	handler  ResourceHandler
}

// ResourceRegistry is a concurrency-safe, insertion-ordered collection of resources and
// resource templates, keyed by URI. It implements ResourceServer, ResourceListUpdater, and
// ResourceSubscriptionHandler.
type ResourceRegistry struct {
	mu      sync.RWMutex
	order   []string
	entries map[string]resourceEntry

	subscribers map[string]struct{}

	completions *CompletionRegistry

	listChanged bool
	updates     chan struct{}
	subUpdates  chan string
	done        chan struct{}

	logger *slog.Logger
}

// ResourceRegistryOption configures a ResourceRegistry constructed by NewResourceRegistry.
type ResourceRegistryOption func(*ResourceRegistry)

// WithResourceRegistryListChanged enables "resources/list_changed" broadcasts on Add/Remove.
func WithResourceRegistryListChanged() ResourceRegistryOption {
	return func(r *ResourceRegistry) {
		r.listChanged = true
	}
}

// WithResourceRegistryLogger overrides the registry's logger.
func WithResourceRegistryLogger(logger *slog.Logger) ResourceRegistryOption {
	return func(r *ResourceRegistry) {
		r.logger = logger
	}
}

// NewResourceRegistry constructs an empty ResourceRegistry.
func NewResourceRegistry(opts ...ResourceRegistryOption) *ResourceRegistry {
	r := &ResourceRegistry{
		entries:     make(map[string]resourceEntry),
		subscribers: make(map[string]struct{}),
		completions: NewCompletionRegistry(),
		updates:     make(chan struct{}, 1),
		subUpdates:  make(chan string, 16),
		done:        make(chan struct{}),
		logger:      slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Completions returns the completion registry backing this resource registry's
// CompletesResourceTemplate handler.
func (r *ResourceRegistry) Completions() *CompletionRegistry {
	return r.completions
}

// Add registers a resource or resource template. A uri containing "{" is treated as an
// RFC-6570 template and surfaced via ListResourceTemplates instead of ListResources. It
// errors when uri is already registered or isn't a well-formed URI template.
func (r *ResourceRegistry) Add(resource Resource, handler ResourceHandler) error {
	return r.add(resource.URI, resourceEntry{resource: resource, handler: handler})
}

// AddTemplate registers a resource template. tmpl.URITemplate is the RFC-6570 template string
// matched against incoming ReadResource requests.
func (r *ResourceRegistry) AddTemplate(tmpl ResourceTemplate, handler ResourceHandler) error {
	return r.add(tmpl.URITemplate, resourceEntry{template: tmpl, isTmpl: true, handler: handler})
}

func (r *ResourceRegistry) add(uri string, entry resourceEntry) error {
	compiled, err := uritemplate.New(uri)
	if err != nil {
		return fmt.Errorf("invalid resource uri template %q: %w", uri, err)
	}
	entry.compiled = compiled
	if !entry.isTmpl && strings.Contains(uri, "{") {
		entry.isTmpl = true
		entry.template = ResourceTemplate{
			Annotations: entry.resource.Annotations,
			URITemplate: uri,
			Name:        entry.resource.Name,
			Description: entry.resource.Description,
			MimeType:    entry.resource.MimeType,
		}
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.entries[uri]; exists {
		return fmt.Errorf("resource already registered: %s", uri)
	}

	r.entries[uri] = entry
	r.order = append(r.order, uri)

	r.notifyListChanged()

	return nil
}

// Remove unregisters a resource or resource template by its URI (or URI template). It errors
// when the URI isn't registered.
func (r *ResourceRegistry) Remove(uri string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.entries[uri]; !exists {
		return fmt.Errorf("resource not registered: %s", uri)
	}

	delete(r.entries, uri)
	for i, u := range r.order {
		if u == uri {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}

	r.notifyListChanged()

	return nil
}

func (r *ResourceRegistry) notifyListChanged() {
	if !r.listChanged {
		return
	}
	select {
	case r.updates <- struct{}{}:
	default:
	}
}

// ListResources implements ResourceServer. Only literal (non-templated) resources are listed.
func (r *ResourceRegistry) ListResources(
	_ context.Context,
	params ListResourcesParams,
	_ ProgressReporter,
	_ RequestClientFunc,
) (ListResourcesResult, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var literal []Resource
	for _, uri := range r.order {
		entry := r.entries[uri]
		if entry.isTmpl {
			continue
		}
		literal = append(literal, entry.resource)
	}

	start := 0
	if params.Cursor != "" {
		parsed, err := strconv.Atoi(params.Cursor)
		if err != nil {
			return ListResourcesResult{}, fmt.Errorf("invalid cursor: %w", err)
		}
		start = parsed
	}
	if start < 0 || start > len(literal) {
		return ListResourcesResult{}, fmt.Errorf("invalid cursor: %s", params.Cursor)
	}

	end := start + registryPageSize
	if end > len(literal) {
		end = len(literal)
	}

	nextCursor := ""
	if end < len(literal) {
		nextCursor = strconv.Itoa(end)
	}

	return ListResourcesResult{Resources: literal[start:end], NextCursor: nextCursor}, nil
}

// ReadResource implements ResourceServer. It resolves params.URI by first trying an exact,
// literal match, then by matching each registered template in insertion order; the first
// template match wins.
func (r *ResourceRegistry) ReadResource(
	ctx context.Context,
	params ReadResourceParams,
	_ ProgressReporter,
	_ RequestClientFunc,
) (ReadResourceResult, error) {
	r.mu.RLock()
	if entry, ok := r.entries[params.URI]; ok && !entry.isTmpl {
		handler := entry.handler
		r.mu.RUnlock()
		return handler(ctx, params.URI, nil)
	}

	var matched *resourceEntry
	var vars map[string]string
	for _, uri := range r.order {
		entry := r.entries[uri]
		if !entry.isTmpl {
			continue
		}
		values := entry.compiled.Match(params.URI)
		if values == nil {
			continue
		}
		matched = &entry
		vars = make(map[string]string, len(values))
		for name, v := range values {
			vars[name] = v.String()
		}
		break
	}
	r.mu.RUnlock()

	if matched == nil {
		return ReadResourceResult{}, fmt.Errorf("resource not found: %s", params.URI)
	}

	return matched.handler(ctx, params.URI, vars)
}

// ListResourceTemplates implements ResourceServer.
func (r *ResourceRegistry) ListResourceTemplates(
	_ context.Context,
	params ListResourceTemplatesParams,
	_ ProgressReporter,
	_ RequestClientFunc,
) (ListResourceTemplatesResult, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var templates []ResourceTemplate
	for _, uri := range r.order {
		entry := r.entries[uri]
		if !entry.isTmpl {
			continue
		}
		templates = append(templates, entry.template)
	}

	start := 0
	if params.Cursor != "" {
		parsed, err := strconv.Atoi(params.Cursor)
		if err != nil {
			return ListResourceTemplatesResult{}, fmt.Errorf("invalid cursor: %w", err)
		}
		start = parsed
	}
	if start < 0 || start > len(templates) {
		return ListResourceTemplatesResult{}, fmt.Errorf("invalid cursor: %s", params.Cursor)
	}

	end := start + registryPageSize
	if end > len(templates) {
		end = len(templates)
	}

	nextCursor := ""
	if end < len(templates) {
		nextCursor = strconv.Itoa(end)
	}

	return ListResourceTemplatesResult{Templates: templates[start:end], NextCursor: nextCursor}, nil
}

// CompletesResourceTemplate implements ResourceServer. It validates that the referenced
// template exists and that the argument name is among the template's RFC-6570 variable names
// before delegating to the registered completion handler.
func (r *ResourceRegistry) CompletesResourceTemplate(
	ctx context.Context,
	params CompletesCompletionParams,
	_ RequestClientFunc,
) (CompletionResult, error) {
	r.mu.RLock()
	entry, ok := r.entries[params.Ref.URI]
	r.mu.RUnlock()
	if !ok || !entry.isTmpl {
		return CompletionResult{}, fmt.Errorf("resource template not found: %s", params.Ref.URI)
	}

	varnames := entry.compiled.Varnames()
	found := false
	for _, v := range varnames {
		if v == params.Argument.Name {
			found = true
			break
		}
	}
	if !found {
		return CompletionResult{}, fmt.Errorf("argument %q is not a variable of template %s", params.Argument.Name, params.Ref.URI)
	}

	return r.completions.Complete(ctx, params)
}

// SubscribeResource implements ResourceSubscriptionHandler.
func (r *ResourceRegistry) SubscribeResource(params SubscribeResourceParams) {
	r.mu.Lock()
	r.subscribers[params.URI] = struct{}{}
	r.mu.Unlock()
}

// UnsubscribeResource implements ResourceSubscriptionHandler.
func (r *ResourceRegistry) UnsubscribeResource(params UnsubscribeResourceParams) {
	r.mu.Lock()
	delete(r.subscribers, params.URI)
	r.mu.Unlock()
}

// NotifyResourceUpdated signals that a subscribed resource's content changed, causing the
// server to emit "notifications/resources/updated" for uri if a client is subscribed to it.
func (r *ResourceRegistry) NotifyResourceUpdated(uri string) {
	r.mu.RLock()
	_, subscribed := r.subscribers[uri]
	r.mu.RUnlock()
	if !subscribed {
		return
	}

	select {
	case r.subUpdates <- uri:
	case <-r.done:
	}
}

// SubscribedResourceUpdates implements ResourceSubscriptionHandler.
func (r *ResourceRegistry) SubscribedResourceUpdates() iter.Seq[string] {
	return func(yield func(string) bool) {
		for {
			select {
			case <-r.done:
				return
			case uri := <-r.subUpdates:
				if !yield(uri) {
					return
				}
			}
		}
	}
}

// ResourceListUpdates implements ResourceListUpdater.
func (r *ResourceRegistry) ResourceListUpdates() iter.Seq[struct{}] {
	return func(yield func(struct{}) bool) {
		for {
			select {
			case <-r.done:
				return
			case <-r.updates:
				if !yield(struct{}{}) {
					return
				}
			}
		}
	}
}

// Close stops the registry's update streams. Safe to call once.
func (r *ResourceRegistry) Close() {
	close(r.done)
}

// PromptHandler renders a specific prompt given its caller-supplied arguments.
type PromptHandler func(ctx context.Context, args map[string]string) (GetPromptResult, error)

type promptEntry struct {
	prompt  Prompt
	handler PromptHandler
}

// PromptRegistry is a concurrency-safe, insertion-ordered collection of prompts keyed by
// name. It implements PromptServer and PromptListUpdater.
type PromptRegistry struct {
	mu      sync.RWMutex
	order   []string
	entries map[string]promptEntry

	completions *CompletionRegistry

	listChanged bool
	updates     chan struct{}
	done        chan struct{}

	logger *slog.Logger
}

// PromptRegistryOption configures a PromptRegistry constructed by NewPromptRegistry.
type PromptRegistryOption func(*PromptRegistry)

// WithPromptRegistryListChanged enables "prompts/list_changed" broadcasts on Add/Remove.
func WithPromptRegistryListChanged() PromptRegistryOption {
	return func(r *PromptRegistry) {
		r.listChanged = true
	}
}

// WithPromptRegistryLogger overrides the registry's logger.
func WithPromptRegistryLogger(logger *slog.Logger) PromptRegistryOption {
	return func(r *PromptRegistry) {
		r.logger = logger
	}
}

// NewPromptRegistry constructs an empty PromptRegistry.
func NewPromptRegistry(opts ...PromptRegistryOption) *PromptRegistry {
	r := &PromptRegistry{
		entries:     make(map[string]promptEntry),
		completions: NewCompletionRegistry(),
		updates:     make(chan struct{}, 1),
		done:        make(chan struct{}),
		logger:      slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Completions returns the completion registry backing this prompt registry's
// CompletesPrompt handler.
func (r *PromptRegistry) Completions() *CompletionRegistry {
	return r.completions
}

// Add registers a prompt under prompt.Name. It errors when the name is already registered.
func (r *PromptRegistry) Add(prompt Prompt, handler PromptHandler) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.entries[prompt.Name]; exists {
		return fmt.Errorf("prompt already registered: %s", prompt.Name)
	}

	r.entries[prompt.Name] = promptEntry{prompt: prompt, handler: handler}
	r.order = append(r.order, prompt.Name)

	r.notifyListChanged()

	return nil
}

// Remove unregisters a prompt by name. It errors when the name isn't registered.
func (r *PromptRegistry) Remove(name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.entries[name]; !exists {
		return fmt.Errorf("prompt not registered: %s", name)
	}

	delete(r.entries, name)
	for i, n := range r.order {
		if n == name {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}

	r.notifyListChanged()

	return nil
}

func (r *PromptRegistry) notifyListChanged() {
	if !r.listChanged {
		return
	}
	select {
	case r.updates <- struct{}{}:
	default:
	}
}

// ListPrompts implements PromptServer.
func (r *PromptRegistry) ListPrompts(
	_ context.Context,
	params ListPromptsParams,
	_ ProgressReporter,
	_ RequestClientFunc,
) (ListPromptResult, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	start := 0
	if params.Cursor != "" {
		parsed, err := strconv.Atoi(params.Cursor)
		if err != nil {
			return ListPromptResult{}, fmt.Errorf("invalid cursor: %w", err)
		}
		start = parsed
	}
	if start < 0 || start > len(r.order) {
		return ListPromptResult{}, fmt.Errorf("invalid cursor: %s", params.Cursor)
	}

	end := start + registryPageSize
	if end > len(r.order) {
		end = len(r.order)
	}

	prompts := make([]Prompt, 0, end-start)
	for _, name := range r.order[start:end] {
		prompts = append(prompts, r.entries[name].prompt)
	}

	nextCursor := ""
	if end < len(r.order) {
		nextCursor = strconv.Itoa(end)
	}

	return ListPromptResult{Prompts: prompts, NextCursor: nextCursor}, nil
}

// GetPrompt implements PromptServer. It rejects argument names that aren't declared on the
// prompt before invoking the handler.
func (r *PromptRegistry) GetPrompt(
	ctx context.Context,
	params GetPromptParams,
	_ ProgressReporter,
	_ RequestClientFunc,
) (GetPromptResult, error) {
	r.mu.RLock()
	entry, ok := r.entries[params.Name]
	r.mu.RUnlock()
	if !ok {
		return GetPromptResult{}, fmt.Errorf("prompt not found: %s", params.Name)
	}

	for name := range params.Arguments {
		declared := false
		for _, arg := range entry.prompt.Arguments {
			if arg.Name == name {
				declared = true
				break
			}
		}
		if !declared {
			return GetPromptResult{}, fmt.Errorf("prompt %s has no argument %q", params.Name, name)
		}
	}

	return entry.handler(ctx, params.Arguments)
}

// CompletesPrompt implements PromptServer. It validates that the referenced prompt exists and
// that the argument belongs to it before delegating to the registered completion handler.
func (r *PromptRegistry) CompletesPrompt(
	ctx context.Context,
	params CompletesCompletionParams,
	_ RequestClientFunc,
) (CompletionResult, error) {
	r.mu.RLock()
	entry, ok := r.entries[params.Ref.Name]
	r.mu.RUnlock()
	if !ok {
		return CompletionResult{}, fmt.Errorf("prompt not found: %s", params.Ref.Name)
	}

	declared := false
	for _, arg := range entry.prompt.Arguments {
		if arg.Name == params.Argument.Name {
			declared = true
			break
		}
	}
	if !declared {
		return CompletionResult{}, fmt.Errorf("prompt %s has no argument %q", params.Ref.Name, params.Argument.Name)
	}

	return r.completions.Complete(ctx, params)
}

// PromptListUpdates implements PromptListUpdater.
func (r *PromptRegistry) PromptListUpdates() iter.Seq[struct{}] {
	return func(yield func(struct{}) bool) {
		for {
			select {
			case <-r.done:
				return
			case <-r.updates:
				if !yield(struct{}{}) {
					return
				}
			}
		}
	}
}

// Close stops the registry's update stream. Safe to call once.
func (r *PromptRegistry) Close() {
	close(r.done)
}

// CompletionHandler returns completion suggestions for a single argument value.
type CompletionHandler func(ctx context.Context, value string) (CompletionResult, error)

type completionKey struct {
	refType  string
	ref      string
	argument string
}

// CompletionRegistry is a concurrency-safe collection of completion handlers keyed by a
// CompletionRef (a prompt name or resource template URI) plus an argument name. PromptRegistry
// and ResourceRegistry each own one to back their CompletesPrompt/CompletesResourceTemplate
// methods, after validating the reference itself.
type CompletionRegistry struct {
	mu       sync.RWMutex
	handlers map[completionKey]CompletionHandler
}

// NewCompletionRegistry constructs an empty CompletionRegistry.
func NewCompletionRegistry() *CompletionRegistry {
	return &CompletionRegistry{handlers: make(map[completionKey]CompletionHandler)}
}

// Add registers a completion handler for ref's argument. It errors when that (ref, argument)
// pair is already registered.
func (r *CompletionRegistry) Add(ref CompletionRef, argument string, handler CompletionHandler) error {
	key, err := completionKeyFor(ref, argument)
	if err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.handlers[key]; exists {
		return fmt.Errorf("completion handler already registered for %s/%s#%s", ref.Type, ref.refID(), argument)
	}
	r.handlers[key] = handler

	return nil
}

// Remove unregisters a completion handler. It errors when the (ref, argument) pair isn't
// registered.
func (r *CompletionRegistry) Remove(ref CompletionRef, argument string) error {
	key, err := completionKeyFor(ref, argument)
	if err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.handlers[key]; !exists {
		return fmt.Errorf("completion handler not registered for %s/%s#%s", ref.Type, ref.refID(), argument)
	}
	delete(r.handlers, key)

	return nil
}

// Complete looks up the handler for params.Ref/params.Argument.Name and invokes it. It returns
// an empty result when no handler is registered, matching the teacher's no-completions-found
// behavior in servers/everything.
func (r *CompletionRegistry) Complete(ctx context.Context, params CompletesCompletionParams) (CompletionResult, error) {
	key, err := completionKeyFor(params.Ref, params.Argument.Name)
	if err != nil {
		return CompletionResult{}, err
	}

	r.mu.RLock()
	handler, ok := r.handlers[key]
	r.mu.RUnlock()
	if !ok {
		return CompletionResult{}, nil
	}

	return handler(ctx, params.Argument.Value)
}

func completionKeyFor(ref CompletionRef, argument string) (completionKey, error) {
	switch ref.Type {
	case CompletionRefPrompt:
		return completionKey{refType: ref.Type, ref: ref.Name, argument: argument}, nil
	case CompletionRefResource:
		return completionKey{refType: ref.Type, ref: ref.URI, argument: argument}, nil
	default:
		return completionKey{}, fmt.Errorf("unsupported completion ref type: %q", ref.Type)
	}
}

func (ref CompletionRef) refID() string {
	if ref.Type == CompletionRefResource {
		return ref.URI
	}
	return ref.Name
}

// RootRegistry is a concurrency-safe, insertion-ordered collection of client-side roots keyed
// by URI. It implements RootsListHandler and RootsListUpdater.
type RootRegistry struct {
	mu    sync.RWMutex
	order []string
	roots map[string]Root

	listChanged bool
	updates     chan struct{}
	done        chan struct{}
}

// RootRegistryOption configures a RootRegistry constructed by NewRootRegistry.
type RootRegistryOption func(*RootRegistry)

// WithRootRegistryListChanged enables "notifications/roots/list_changed" broadcasts on
// Add/Remove.
func WithRootRegistryListChanged() RootRegistryOption {
	return func(r *RootRegistry) {
		r.listChanged = true
	}
}

// NewRootRegistry constructs an empty RootRegistry.
func NewRootRegistry(opts ...RootRegistryOption) *RootRegistry {
	r := &RootRegistry{
		roots:   make(map[string]Root),
		updates: make(chan struct{}, 1),
		done:    make(chan struct{}),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Add registers a root under root.URI. It errors when the URI is already registered.
func (r *RootRegistry) Add(root Root) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.roots[root.URI]; exists {
		return fmt.Errorf("root already registered: %s", root.URI)
	}

	r.roots[root.URI] = root
	r.order = append(r.order, root.URI)

	r.notifyListChanged()

	return nil
}

// Remove unregisters a root by URI. It errors when the URI isn't registered.
func (r *RootRegistry) Remove(uri string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.roots[uri]; !exists {
		return fmt.Errorf("root not registered: %s", uri)
	}

	delete(r.roots, uri)
	for i, u := range r.order {
		if u == uri {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}

	r.notifyListChanged()

	return nil
}

func (r *RootRegistry) notifyListChanged() {
	if !r.listChanged {
		return
	}
	select {
	case r.updates <- struct{}{}:
	default:
	}
}

// RootsList implements RootsListHandler.
func (r *RootRegistry) RootsList(context.Context) (RootList, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	roots := make([]Root, 0, len(r.order))
	for _, uri := range r.order {
		roots = append(roots, r.roots[uri])
	}

	return RootList{Roots: roots}, nil
}

// RootsListUpdates implements RootsListUpdater.
func (r *RootRegistry) RootsListUpdates() iter.Seq[struct{}] {
	return func(yield func(struct{}) bool) {
		for {
			select {
			case <-r.done:
				return
			case <-r.updates:
				if !yield(struct{}{}) {
					return
				}
			}
		}
	}
}

// Close stops the registry's update stream. Safe to call once.
func (r *RootRegistry) Close() {
	close(r.done)
}
