package tasks

import (
	"testing"

	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveTaskRoundTrip(t *testing.T) {
	task, err := NewResolveTask("https://youtu.be/abc", "job-1")
	require.NoError(t, err)
	assert.Equal(t, TypeResolve, task.Type())

	p, err := ParseResolvePayload(task)
	require.NoError(t, err)
	assert.Equal(t, "job-1", p.JobID)
	assert.Equal(t, "https://youtu.be/abc", p.URL)
}

func TestParseResolvePayloadRejectsGarbage(t *testing.T) {
	_, err := ParseResolvePayload(asynq.NewTask(TypeResolve, []byte("{not json")))
	assert.Error(t, err)
}
