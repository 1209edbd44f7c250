package manifest

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/taskwire/taskwire"
	"github.com/taskwire/taskwire/pkg/api"
)

const pipelineYAML = `
name: pipeline
tasks:
  - name: double
    handler: math.double
  - name: record
    handler: sink.record
    state:
      total: 0
start:
  - task: double
    batch:
      - {value: 1}
      - {value: 2}
      - {value: 3}
`

func TestParseValidManifest(t *testing.T) {
	m, err := Parse([]byte(pipelineYAML))
	require.NoError(t, err)

	require.Equal(t, "pipeline", m.Name)
	require.Len(t, m.Tasks, 2)
	require.Equal(t, "math.double", m.Tasks[0].Handler)
	require.Len(t, m.Start, 1)
	require.Len(t, m.Start[0].Batch, 3)
}

func TestParseRejectsInvalidManifests(t *testing.T) {
	cases := []struct {
		name string
		yaml string
	}{
		{"missing name", "tasks: [{name: t, handler: h}]"},
		{"no tasks", "name: wf"},
		{"task without handler", "name: wf\ntasks: [{name: t}]"},
		{"start references unknown task", "name: wf\ntasks: [{name: t, handler: h}]\nstart: [{task: other}]"},
		{"with and batch together", "name: wf\ntasks: [{name: t, handler: h}]\nstart: [{task: t, with: {a: 1}, batch: [{a: 1}]}]"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Parse([]byte(tc.yaml))
			require.Error(t, err)
		})
	}
}

func TestApplyRunsDeclaredWorkflow(t *testing.T) {
	m, err := Parse([]byte(pipelineYAML))
	require.NoError(t, err)

	var results []int
	reg := NewRegistry().
		Register("math.double", func(ctx context.Context, inv *api.Invocation) error {
			fields := inv.Context.(api.Fields)
			v := fields["value"].(int)
			return inv.Trigger(ctx, "record", api.Fields{"value": v * 2})
		}).
		Register("sink.record", func(ctx context.Context, inv *api.Invocation) error {
			fields := inv.Context.(api.Fields)
			results = append(results, fields["value"].(int))
			return nil
		})

	eng := taskwire.NewEngine().SetContextRule(taskwire.DefaultsRule(nil))
	require.NoError(t, m.Apply(eng, reg))
	require.NoError(t, eng.Start(context.Background()))

	// Batch entries dispatch in order; each chain completes before the next.
	require.Equal(t, []int{2, 4, 6}, results)
}

func TestApplyRejectsUnknownHandler(t *testing.T) {
	m, err := Parse([]byte(pipelineYAML))
	require.NoError(t, err)

	reg := NewRegistry().Register("math.double", func(ctx context.Context, inv *api.Invocation) error {
		return nil
	})

	err = m.Apply(taskwire.NewEngine(), reg)
	require.Error(t, err)
	require.Contains(t, err.Error(), "sink.record")
}

func TestApplyGivesEachEngineItsOwnState(t *testing.T) {
	const yml = `
name: counter
tasks:
  - name: count
    handler: count
    state:
      total: 0
`
	m, err := Parse([]byte(yml))
	require.NoError(t, err)

	count := func(ctx context.Context, inv *api.Invocation) error {
		inv.State["total"] = inv.State["total"].(int) + 1
		return nil
	}

	run := func() api.Engine {
		reg := NewRegistry().Register("count", count)
		eng := taskwire.NewEngine().SetContextRule(taskwire.DefaultsRule(nil))
		require.NoError(t, m.Apply(eng, reg))
		require.NoError(t, eng.Start(context.Background()))
		require.NoError(t, eng.Trigger(context.Background(), "count"))
		return eng
	}

	first := run()
	second := run()

	var firstTotal, secondTotal int
	first.DefineTask("count", func(ctx context.Context, inv *api.Invocation) error {
		firstTotal = inv.State["total"].(int)
		return nil
	})
	second.DefineTask("count", func(ctx context.Context, inv *api.Invocation) error {
		secondTotal = inv.State["total"].(int)
		return nil
	})
	require.NoError(t, first.Trigger(context.Background(), "count"))
	require.NoError(t, second.Trigger(context.Background(), "count"))

	require.Equal(t, 1, firstTotal)
	require.Equal(t, 1, secondTotal)
}

func TestLoadReadsManifestFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pipeline.yaml")
	require.NoError(t, os.WriteFile(path, []byte(pipelineYAML), 0o644))

	m, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, "pipeline", m.Name)

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
}
