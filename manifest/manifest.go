// Package manifest loads declarative workflow definitions from YAML and
// applies them to an engine. Handlers stay in Go; the manifest references
// them by name through a Registry, so the YAML carries only topology:
// the workflow name, its tasks, and the startup triggers.
//
// Example manifest:
//
//	name: pipeline
//	tasks:
//	  - name: double
//	    handler: math.double
//	  - name: record
//	    handler: sink.record
//	    state:
//	      total: 0
//	start:
//	  - task: double
//	    with: {value: 5}
//	  - task: double
//	    batch:
//	      - {value: 1}
//	      - {value: 2}
package manifest

import (
	"context"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/taskwire/taskwire/pkg/api"
)

// TaskDecl declares one task: a local name, a registered handler reference,
// and optional initial state.
type TaskDecl struct {
	Name    string         `yaml:"name"`
	Handler string         `yaml:"handler"`
	State   map[string]any `yaml:"state"`
}

// TriggerDecl declares one startup trigger. With and Batch are mutually
// exclusive; with neither, the task is triggered from an empty partial.
type TriggerDecl struct {
	Task  string           `yaml:"task"`
	With  map[string]any   `yaml:"with"`
	Batch []map[string]any `yaml:"batch"`
}

// Manifest is a declarative workflow definition.
type Manifest struct {
	Name  string        `yaml:"name"`
	Tasks []TaskDecl    `yaml:"tasks"`
	Start []TriggerDecl `yaml:"start"`
}

// Registry maps handler references used in manifests to TaskFuncs.
type Registry struct {
	handlers map[string]api.TaskFunc
}

// NewRegistry returns an empty handler registry.
func NewRegistry() *Registry {
	return &Registry{handlers: make(map[string]api.TaskFunc)}
}

// Register binds a handler reference to fn. Re-registering a name overwrites.
func (r *Registry) Register(name string, fn api.TaskFunc) *Registry {
	r.handlers[name] = fn
	return r
}

// Parse decodes and validates a manifest from YAML.
func Parse(data []byte) (*Manifest, error) {
	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("manifest: %w", err)
	}
	if err := m.validate(); err != nil {
		return nil, err
	}
	return &m, nil
}

// Load reads and parses a manifest file.
func Load(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Parse(data)
}

func (m *Manifest) validate() error {
	if m.Name == "" {
		return fmt.Errorf("manifest: workflow name is required")
	}
	if len(m.Tasks) == 0 {
		return fmt.Errorf("manifest: workflow %q declares no tasks", m.Name)
	}

	declared := make(map[string]bool, len(m.Tasks))
	for _, td := range m.Tasks {
		if td.Name == "" {
			return fmt.Errorf("manifest: workflow %q has a task with no name", m.Name)
		}
		if td.Handler == "" {
			return fmt.Errorf("manifest: task %q has no handler reference", td.Name)
		}
		declared[td.Name] = true
	}

	for _, tr := range m.Start {
		if tr.Task == "" {
			return fmt.Errorf("manifest: workflow %q has a start trigger with no task", m.Name)
		}
		if !declared[tr.Task] {
			return fmt.Errorf("manifest: start trigger references undeclared task %q", tr.Task)
		}
		if tr.With != nil && len(tr.Batch) > 0 {
			return fmt.Errorf("manifest: start trigger for %q sets both with and batch", tr.Task)
		}
	}
	return nil
}

// Apply configures eng from the manifest: name, tasks (handlers resolved
// through reg, state from each declaration), and a startup hook issuing the
// declared triggers in order.
//
// Apply does not call Start; the caller decides when dispatch begins.
func (m *Manifest) Apply(eng api.Engine, reg *Registry) error {
	for _, td := range m.Tasks {
		if _, ok := reg.handlers[td.Handler]; !ok {
			return fmt.Errorf("manifest: task %q references unknown handler %q", td.Name, td.Handler)
		}
	}

	eng.SetName(m.Name)

	for _, td := range m.Tasks {
		fn := reg.handlers[td.Handler]
		decl := td
		eng.DefineTask(decl.Name, fn, func() api.Fields {
			// Each workflow gets its own copy of the declared state so two
			// engines applying one manifest never share a record.
			state := make(api.Fields, len(decl.State))
			for k, v := range decl.State {
				state[k] = v
			}
			return state
		})
	}

	if len(m.Start) == 0 {
		return nil
	}

	triggers := m.Start
	eng.SetStartupHook(func(ctx context.Context, trigger api.TriggerFunc) error {
		for _, tr := range triggers {
			var err error
			switch {
			case len(tr.Batch) > 0:
				partials := make([]api.Fields, len(tr.Batch))
				for i, entry := range tr.Batch {
					partials[i] = api.Fields(entry)
				}
				err = trigger(ctx, tr.Task, partials...)
			case tr.With != nil:
				err = trigger(ctx, tr.Task, api.Fields(tr.With))
			default:
				err = trigger(ctx, tr.Task)
			}
			if err != nil {
				return err
			}
		}
		return nil
	})
	return nil
}
