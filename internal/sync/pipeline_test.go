package sync

import (
	"context"
	"testing"

	"partsync/internal/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func recordingStage(name string, ran *[]string, msgs []string, deps ...string) Stage {
	return Stage{
		Name:      name,
		DependsOn: deps,
		Run: func(ctx context.Context) []string {
			*ran = append(*ran, name)
			return msgs
		},
	}
}

func TestPipelineRunsDependenciesFirst(t *testing.T) {
	var ran []string
	p := NewPipeline(logger.New("error"),
		recordingStage("vehicle", &ran, nil, "base_vehicle"),
		recordingStage("base_vehicle", &ran, nil, "make_year"),
		recordingStage("make_year", &ran, nil),
	)

	_, err := p.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"make_year", "base_vehicle", "vehicle"}, ran)
}

func TestPipelineRejectsUnknownDependency(t *testing.T) {
	var ran []string
	p := NewPipeline(logger.New("error"),
		recordingStage("vehicle", &ran, nil, "ghost"),
	)

	_, err := p.Run(context.Background())
	require.Error(t, err)
	assert.EqualError(t, err, `stage "vehicle" depends on unknown stage "ghost"`)
	assert.Empty(t, ran)
}

func TestPipelineRejectsCycleBeforeRunningAnything(t *testing.T) {
	var ran []string
	p := NewPipeline(logger.New("error"),
		recordingStage("a", &ran, nil, "b"),
		recordingStage("b", &ran, nil, "a"),
	)

	_, err := p.Run(context.Background())
	require.Error(t, err)
	assert.EqualError(t, err, "stage dependency cycle detected")
	assert.Empty(t, ran)
}

func TestPipelineRejectsDuplicateStage(t *testing.T) {
	var ran []string
	p := NewPipeline(logger.New("error"),
		recordingStage("brand", &ran, nil),
		recordingStage("brand", &ran, nil),
	)

	_, err := p.Run(context.Background())
	require.Error(t, err)
	assert.EqualError(t, err, `duplicate stage "brand"`)
}

func TestPipelineSkipsDependentsOfFailedStage(t *testing.T) {
	var ran []string
	p := NewPipeline(logger.New("error"),
		recordingStage("brand", &ran, []string{"Error: SEMA Brand, boom"}),
		recordingStage("dataset", &ran, []string{"Info: SEMA Dataset, everything up-to-date"}, "brand"),
		recordingStage("product", &ran, nil, "dataset"),
		recordingStage("year", &ran, []string{"Success: SEMA Year 2020 created"}),
	)

	msgs, err := p.Run(context.Background())
	require.NoError(t, err)

	// The failed stage's dependents are skipped transitively, unrelated
	// stages still run.
	assert.Equal(t, []string{"brand", "year"}, ran)
	assert.Contains(t, msgs, "Error: SEMA Brand, boom")
	assert.Contains(t, msgs, "Error: dataset, skipped, dependency brand failed")
	assert.Contains(t, msgs, "Error: product, skipped, dependency dataset failed")
	assert.Contains(t, msgs, "Success: SEMA Year 2020 created")
}

func TestPipelineMixedMessagesDoNotFailStage(t *testing.T) {
	var ran []string
	p := NewPipeline(logger.New("error"),
		recordingStage("brand", &ran, []string{
			"Error: SEMA Brand X, boom",
			"Success: SEMA Brand Y created",
		}),
		recordingStage("dataset", &ran, nil, "brand"),
	)

	_, err := p.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"brand", "dataset"}, ran)
}

func TestPipelineEmptyStageOutputIsNotFailure(t *testing.T) {
	var ran []string
	p := NewPipeline(logger.New("error"),
		recordingStage("brand", &ran, nil),
		recordingStage("dataset", &ran, nil, "brand"),
	)

	msgs, err := p.Run(context.Background())
	require.NoError(t, err)
	assert.Empty(t, msgs)
	assert.Equal(t, []string{"brand", "dataset"}, ran)
}
