package models_test

import (
	"encoding/json"
	"testing"

	"github.com/Aryanchhabra/DeepResearchAI/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStep_JSON(t *testing.T) {
	for _, step := range models.Steps() {
		b, err := json.Marshal(step)
		require.NoError(t, err)
		var back models.Step
		require.NoError(t, json.Unmarshal(b, &back))
		assert.Equal(t, step, back)
	}

	b, err := json.Marshal(models.StepFactChecking)
	require.NoError(t, err)
	assert.Equal(t, `"fact_checking"`, string(b))

	_, err = models.ParseStep("compiling")
	assert.Error(t, err)
	_, err = json.Marshal(models.Step(9))
	assert.Error(t, err)
}

func TestStep_Order(t *testing.T) {
	steps := models.Steps()
	for i := 1; i < len(steps); i++ {
		assert.Less(t, steps[i-1], steps[i])
	}
}

func TestSources_ValueScan(t *testing.T) {
	var nilSources models.Sources
	v, err := nilSources.Value()
	require.NoError(t, err)
	assert.Equal(t, "[]", v)

	src := models.Sources{models.NewSource("", " https://a.example "), models.NewSource("B", "https://b.example")}
	v, err = src.Value()
	require.NoError(t, err)

	var scanned models.Sources
	require.NoError(t, scanned.Scan([]byte(v.(string))))
	assert.Equal(t, models.Sources{{Title: models.UnknownTitle, URL: "https://a.example"}, {Title: "B", URL: "https://b.example"}}, scanned)

	require.NoError(t, scanned.Scan(nil))
	assert.NotNil(t, scanned)
	assert.Empty(t, scanned)

	assert.Error(t, scanned.Scan(42))
}

func TestTask_Snapshot(t *testing.T) {
	step := models.StepSearching
	failed := models.Task{
		ID:     "t1",
		Status: models.FailedTaskStatus,
		Step:   models.StepSearching,
		Error:  &models.TaskError{Message: "searching: tavily: http 401", Step: &step},
	}
	snap := failed.Snapshot()
	assert.Equal(t, "searching: tavily: http 401", snap.Error)
	assert.Equal(t, &step, snap.FailedStep)
	assert.NotNil(t, snap.Sources)
	assert.Empty(t, snap.Answer)
	assert.True(t, snap.Status.Terminal())

	pending := models.Task{ID: "t2", Status: models.PendingTaskStatus}
	assert.False(t, pending.Snapshot().Status.Terminal())
}
