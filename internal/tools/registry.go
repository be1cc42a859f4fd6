package tools

import (
	"context"
	"fmt"
	"os"
	"sort"
	"strings"
	"sync"
)

// Registry manages multiple MCP tool server connections.
type Registry struct {
	mu          sync.RWMutex
	connections map[string]*MCPConnection // server name → connection
	toolIndex   map[string]string         // tool name → server name
}

// NewRegistry creates an empty tool registry.
func NewRegistry() *Registry {
	return &Registry{
		connections: make(map[string]*MCPConnection),
		toolIndex:   make(map[string]string),
	}
}

// Register launches an MCP tool server and adds its tools to the registry.
func (r *Registry) Register(ctx context.Context, name string, cfg ToolServerConfig) error {
	if !cfg.Enabled {
		return nil
	}

	conn, err := NewMCPConnection(ctx, name, cfg.Binary, buildEnv(cfg.Env), cfg.Args...)
	if err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if old, ok := r.connections[name]; ok {
		old.Close()
	}
	r.connections[name] = conn
	for _, toolName := range conn.ToolNames() {
		r.toolIndex[toolName] = name
	}
	return nil
}

// buildEnv appends cfg entries to the parent environment, expanding ${VAR}
// references.
func buildEnv(extra map[string]string) []string {
	env := append([]string(nil), os.Environ()...)
	for k, v := range extra {
		if strings.HasPrefix(v, "${") && strings.HasSuffix(v, "}") {
			v = os.Getenv(v[2 : len(v)-1])
		}
		env = append(env, k+"="+v)
	}
	return env
}

// AllTools returns tool definitions from all registered servers, sorted by name.
func (r *Registry) AllTools() []ToolDef {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var all []ToolDef
	for _, conn := range r.connections {
		all = append(all, conn.ToolDefs()...)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].Name < all[j].Name })
	return all
}

// Call routes a tool call to the server that provides it.
func (r *Registry) Call(ctx context.Context, name string, args map[string]any) (*Result, error) {
	r.mu.RLock()
	serverName, ok := r.toolIndex[name]
	conn := r.connections[serverName]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("unknown tool: %s", name)
	}
	return conn.Call(ctx, name, args)
}

// CallTool routes a tool call and flattens tool errors into text.
func (r *Registry) CallTool(ctx context.Context, name string, args map[string]any) (string, error) {
	res, err := r.Call(ctx, name, args)
	if err != nil {
		return "", err
	}
	if res.IsError {
		return "error: " + res.Text, nil
	}
	return res.Text, nil
}

// HasTools returns true if any tools are registered.
func (r *Registry) HasTools() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.toolIndex) > 0
}

// HasTool reports whether a tool with the given name is registered.
func (r *Registry) HasTool(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.toolIndex[name]
	return ok
}

// Close shuts down all MCP server connections.
func (r *Registry) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()
	for name, conn := range r.connections {
		conn.Close()
		delete(r.connections, name)
	}
	r.toolIndex = make(map[string]string)
}
