package tools

import (
	"context"
	"fmt"
	"sort"

	"github.com/cloudwego/eino/schema"
)

// Traits classify an operation for authorization, caching and summarizing.
type Traits struct {
	// UserScoped operations receive the authenticated user id from the
	// dispatcher, never from LLM arguments.
	UserScoped bool
	// Volatile results go stale quickly; answers built on them are not cached.
	Volatile bool
	// Recommendation results may be empty; empty ones are silently dropped.
	Recommendation bool
}

// Operation is a named data lookup the LLM may request.
type Operation interface {
	Info() *schema.ToolInfo
	Traits() Traits
	Run(ctx context.Context, args Args, userID string) (string, error)
}

// RunFunc executes an operation.
type RunFunc func(ctx context.Context, args Args, userID string) (string, error)

type funcOperation struct {
	info   *schema.ToolInfo
	traits Traits
	run    RunFunc
}

// NewOperation adapts a function into an Operation.
func NewOperation(info *schema.ToolInfo, traits Traits, run RunFunc) Operation {
	return &funcOperation{info: info, traits: traits, run: run}
}

func (o *funcOperation) Info() *schema.ToolInfo { return o.info }
func (o *funcOperation) Traits() Traits         { return o.traits }

func (o *funcOperation) Run(ctx context.Context, args Args, userID string) (string, error) {
	return o.run(ctx, args, userID)
}

// Registry is the fixed set of operations the dispatcher may execute.
type Registry struct {
	ops map[string]Operation
}

// NewRegistry builds a registry; duplicate names are rejected.
func NewRegistry(ops ...Operation) (*Registry, error) {
	r := &Registry{ops: make(map[string]Operation, len(ops))}
	for _, op := range ops {
		if err := r.register(op); err != nil {
			return nil, err
		}
	}
	return r, nil
}

func (r *Registry) register(op Operation) error {
	info := op.Info()
	if info == nil || info.Name == "" {
		return fmt.Errorf("operation without a name")
	}
	if _, dup := r.ops[info.Name]; dup {
		return fmt.Errorf("operation %s registered twice", info.Name)
	}
	r.ops[info.Name] = op
	return nil
}

// Lookup finds an operation by name.
func (r *Registry) Lookup(name string) (Operation, bool) {
	op, ok := r.ops[name]
	return op, ok
}

// Traits returns the traits of name; unknown names have none.
func (r *Registry) Traits(name string) Traits {
	if op, ok := r.ops[name]; ok {
		return op.Traits()
	}
	return Traits{}
}

// Names lists operation names in sorted order.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.ops))
	for name := range r.ops {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Infos returns the operation schemas offered to the LLM, sorted by name.
func (r *Registry) Infos() []*schema.ToolInfo {
	infos := make([]*schema.ToolInfo, 0, len(r.ops))
	for _, name := range r.Names() {
		infos = append(infos, r.ops[name].Info())
	}
	return infos
}
