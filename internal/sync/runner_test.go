package sync

import (
	"context"
	"testing"

	"partsync/internal/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunEntityRejectsUnknownNames(t *testing.T) {
	runner := NewRunner(nil, nil, nil, 0, logger.New("error"))

	_, err := runner.RunEntity(context.Background(), "widget", ModeSync)
	require.Error(t, err)
	assert.EqualError(t, err, `unknown entity "widget"`)

	_, err = runner.RunEntity(context.Background(), "brand", "replace")
	require.Error(t, err)
	assert.EqualError(t, err, `unknown mode "replace"`)
}

func TestEntitiesCoverEveryRunnableName(t *testing.T) {
	runner := NewRunner(nil, nil, nil, 0, logger.New("error"))

	names := runner.Entities()
	assert.Len(t, names, 18)
	for _, name := range []string{"brand", "vehicle", "product", "premier_pricing", "product_html"} {
		assert.Contains(t, names, name)
	}
}

func TestPipelineGraphIsAcyclic(t *testing.T) {
	runner := NewRunner(nil, nil, nil, 0, logger.New("error"))

	// Ordering the full graph must succeed before any stage runs.
	order, err := runner.Pipeline().sort()
	require.NoError(t, err)
	require.Len(t, order, 18)

	position := make(map[string]int, len(order))
	for i, stage := range order {
		position[stage.Name] = i
	}
	for _, stage := range order {
		for _, dep := range stage.DependsOn {
			assert.Less(t, position[dep], position[stage.Name],
				"%s must run after %s", stage.Name, dep)
		}
	}
}
