package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"reflect"
	"slices"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/alt-coder/pocketflow-go/v2/llm"
)

// Registry holds local tools backed by typed Go functions. It is safe for
// concurrent use.
type Registry struct {
	mu    sync.RWMutex
	tools map[string]localTool
	order []string
}

type localTool struct {
	def    llm.ToolDefinition
	params []param
	call   func(ctx context.Context, args map[string]any) (string, error)
}

// param is the parsed form of one input struct field.
type param struct {
	name     string
	required bool
	enum     []string
	def      any
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{tools: make(map[string]localTool)}
}

// Register adds a tool whose arguments decode into In. The parameter schema
// is derived from In's fields:
//
//	type WeatherInput struct {
//		City  string  `json:"city" description:"City name"`
//		Units *string `json:"units" enum:"metric,imperial"`
//		Days  int     `json:"days" default:"1"`
//	}
//
// Fields that are neither pointers nor carry a default tag are required. A
// string Out is returned as is; anything else is sent back as JSON.
func Register[In any, Out any](r *Registry, name, description string, handler func(ctx context.Context, in In) (Out, error)) error {
	if name == "" {
		return fmt.Errorf("tool name cannot be empty")
	}
	if handler == nil {
		return fmt.Errorf("tool %s: handler cannot be nil", name)
	}

	schema, params, err := schemaOf(reflect.TypeFor[In]())
	if err != nil {
		return fmt.Errorf("tool %s: %w", name, err)
	}

	tool := localTool{
		def:    llm.ToolDefinition{Name: name, Description: description, Parameters: schema},
		params: params,
		call: func(ctx context.Context, args map[string]any) (string, error) {
			var in In
			raw, err := json.Marshal(args)
			if err != nil {
				return "", fmt.Errorf("encode arguments: %w", err)
			}
			if err := json.Unmarshal(raw, &in); err != nil {
				return "", fmt.Errorf("decode arguments: %w", err)
			}
			out, err := handler(ctx, in)
			if err != nil {
				return "", err
			}
			if s, ok := any(out).(string); ok {
				return s, nil
			}
			encoded, err := json.Marshal(out)
			if err != nil {
				return "", fmt.Errorf("encode result: %w", err)
			}
			return string(encoded), nil
		},
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.tools[name]; exists {
		return fmt.Errorf("tool %s already registered", name)
	}
	r.tools[name] = tool
	r.order = append(r.order, name)
	return nil
}

// Definitions returns the registered tools in registration order.
func (r *Registry) Definitions() []llm.ToolDefinition {
	r.mu.RLock()
	defer r.mu.RUnlock()
	defs := make([]llm.ToolDefinition, 0, len(r.order))
	for _, name := range r.order {
		defs = append(defs, r.tools[name].def)
	}
	return defs
}

// Has reports whether a tool is registered.
func (r *Registry) Has(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.tools[name]
	return ok
}

// Remove unregisters a tool.
func (r *Registry) Remove(name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.tools[name]; !ok {
		return notFound(name)
	}
	delete(r.tools, name)
	r.order = slices.DeleteFunc(r.order, func(n string) bool { return n == name })
	return nil
}

// Execute validates the call's arguments and runs the handler. Argument and
// handler failures are returned as errors.
func (r *Registry) Execute(ctx context.Context, call llm.ToolCall) (llm.ToolResult, error) {
	r.mu.RLock()
	tool, ok := r.tools[call.Name]
	r.mu.RUnlock()
	if !ok {
		return llm.ToolResult{}, notFound(call.Name)
	}

	args, err := prepareArgs(tool.params, call.Args)
	if err != nil {
		return llm.ToolResult{}, fmt.Errorf("tool %s: %w", call.Name, err)
	}
	content, err := tool.call(ctx, args)
	if err != nil {
		return llm.ToolResult{}, fmt.Errorf("tool %s: %w", call.Name, err)
	}
	return llm.ToolResult{ID: call.ID, Name: call.Name, Content: content}, nil
}

// prepareArgs fills defaults and checks required and enum parameters. The
// caller's map is not modified.
func prepareArgs(params []param, args map[string]any) (map[string]any, error) {
	out := make(map[string]any, len(args)+len(params))
	for k, v := range args {
		out[k] = v
	}
	for _, p := range params {
		v, ok := out[p.name]
		if !ok {
			switch {
			case p.def != nil:
				out[p.name] = p.def
			case p.required:
				return nil, fmt.Errorf("required parameter %q is missing", p.name)
			}
			continue
		}
		if len(p.enum) > 0 && !slices.Contains(p.enum, fmt.Sprint(v)) {
			return nil, fmt.Errorf("parameter %q value %v is not one of %v", p.name, v, p.enum)
		}
	}
	return out, nil
}

// schemaOf builds a JSON schema object for the input struct t.
func schemaOf(t reflect.Type) (map[string]any, []param, error) {
	if t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t.Kind() != reflect.Struct {
		return nil, nil, fmt.Errorf("input type must be a struct, got %s", t.Kind())
	}

	properties := make(map[string]any)
	var required []string
	var params []param
	for i := range t.NumField() {
		field := t.Field(i)
		if !field.IsExported() {
			continue
		}
		name := fieldName(field)
		if name == "-" {
			continue
		}

		jsonType, err := jsonType(field.Type)
		if err != nil {
			return nil, nil, fmt.Errorf("field %s: %w", field.Name, err)
		}
		description := field.Tag.Get("description")
		if description == "" {
			description = "Parameter " + name
		}
		prop := map[string]any{"type": jsonType, "description": description}

		p := param{name: name}
		if enum := field.Tag.Get("enum"); enum != "" {
			for _, v := range strings.Split(enum, ",") {
				p.enum = append(p.enum, strings.TrimSpace(v))
			}
			prop["enum"] = p.enum
		}
		if def, ok := field.Tag.Lookup("default"); ok {
			if err := yaml.Unmarshal([]byte(def), &p.def); err != nil {
				return nil, nil, fmt.Errorf("field %s: invalid default %q: %w", field.Name, def, err)
			}
			prop["default"] = p.def
		} else if field.Type.Kind() != reflect.Pointer {
			p.required = true
			required = append(required, name)
		}

		properties[name] = prop
		params = append(params, p)
	}

	schema := map[string]any{"type": "object", "properties": properties}
	if len(required) > 0 {
		schema["required"] = required
	}
	return schema, params, nil
}

func fieldName(field reflect.StructField) string {
	for _, key := range []string{"json", "yaml"} {
		if name, _, _ := strings.Cut(field.Tag.Get(key), ","); name != "" {
			return name
		}
	}
	return field.Name
}

func jsonType(t reflect.Type) (string, error) {
	if t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	switch t.Kind() {
	case reflect.String:
		return "string", nil
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return "integer", nil
	case reflect.Float32, reflect.Float64:
		return "number", nil
	case reflect.Bool:
		return "boolean", nil
	case reflect.Slice, reflect.Array:
		return "array", nil
	case reflect.Map, reflect.Struct:
		return "object", nil
	default:
		return "", fmt.Errorf("unsupported type %s", t.Kind())
	}
}
