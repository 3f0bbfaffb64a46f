package pipeline

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"

	"github.com/capitalize-ai/journey-analytics/internal/agent"
	"github.com/capitalize-ai/journey-analytics/internal/analytics"
	"github.com/capitalize-ai/journey-analytics/internal/model"
)

func findTool(t *testing.T, tools []agent.Tool, name string) agent.Tool {
	t.Helper()
	for _, tool := range tools {
		if tool.Name == name {
			return tool
		}
	}
	t.Fatalf("tool %q not found", name)
	return agent.Tool{}
}

func call(t *testing.T, tool agent.Tool, args string) (any, error) {
	t.Helper()
	return tool.Handler(context.Background(), gjson.Parse(args))
}

func TestQueryTools(t *testing.T) {
	env := testEnv(t, bookingEvents(9))
	tools := QueryTools(env)

	t.Run("count users", func(t *testing.T) {
		out, err := call(t, findTool(t, tools, "count_users_with_events"), `{"event_names":["payment_success"]}`)
		require.NoError(t, err)
		m := out.(analytics.UserMatch)
		assert.Equal(t, 6, m.Matching)
		assert.Equal(t, 9, m.Total)
	})

	t.Run("count users requires names", func(t *testing.T) {
		_, err := call(t, findTool(t, tools, "count_users_with_events"), `{}`)
		assert.Error(t, err)
	})

	t.Run("list names by category", func(t *testing.T) {
		tool := findTool(t, tools, "list_event_names")

		out, err := call(t, tool, `{"category":"application"}`)
		require.NoError(t, err)
		assert.Contains(t, out.([]string), "bus_search")

		out, err = call(t, tool, `{"category":"system"}`)
		require.NoError(t, err)
		assert.Empty(t, out)
	})

	t.Run("summary", func(t *testing.T) {
		out, err := call(t, findTool(t, tools, "get_dataset_summary"), `{}`)
		require.NoError(t, err)
		assert.Equal(t, 9, out.(model.DatasetSummary).TotalUsers)
	})
}

func TestFunnelToolStages(t *testing.T) {
	env := testEnv(t, bookingEvents(9))
	tool := funnelTool(env)

	out, err := call(t, tool, `{"stages":[{"name":"Search","events":["bus_search"]},{"name":"Paid","events":["payment_success"]}]}`)
	require.NoError(t, err)
	stages := out.([]analytics.FunnelStage)
	require.Len(t, stages, 2)
	assert.Equal(t, 9, stages[0].Users)
	assert.Equal(t, 6, stages[1].Users)
	assert.Equal(t, 3, *stages[1].Lost)

	out, err = call(t, tool, `{}`)
	require.NoError(t, err)
	assert.Len(t, out, len(env.Analysis.FunnelStages))

	_, err = call(t, tool, `{"stages":[{"name":"Search"}]}`)
	assert.Error(t, err)
}

func TestArgHelpers(t *testing.T) {
	args := gjson.Parse(`{"n":"7","k":3,"eps":0.5,"names":["a","",  "b"]}`)

	assert.Equal(t, 20, intArg(args, "n", 20))
	assert.Equal(t, 3, intArg(args, "k", 20))
	assert.Equal(t, 0.5, floatArg(args, "eps", 1.2))
	assert.Equal(t, 1.2, floatArg(args, "missing", 1.2))
	assert.Equal(t, []string{"a", "b"}, stringsArg(args, "names"))
}

func TestTaskToolsIncludeMetricTool(t *testing.T) {
	env := testEnv(t, bookingEvents(3))
	for _, task := range Catalog() {
		tools := task.Tools(env)
		require.Len(t, tools, 5, task.Name)
		names := make(map[string]bool)
		for _, tool := range tools {
			assert.NotEmpty(t, tool.Description, tool.Name)
			assert.False(t, names[tool.Name], "duplicate tool %s in %s", tool.Name, task.Name)
			names[tool.Name] = true
		}
	}
}
