package patterns

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentlens/agentlens-core/internal/models"
)

func record(msg string, mutate ...func(*models.FailureRecord)) models.FailureRecord {
	r := models.FailureRecord{
		TraceID:   "trace-1",
		SpanID:    "span-1",
		SpanName:  "call-llm",
		SpanType:  "generation",
		Timestamp: time.Date(2025, 6, 15, 10, 0, 0, 0, time.UTC),
	}
	if msg != "" {
		r.StatusMessage = models.StrPtr(msg)
	}
	for _, m := range mutate {
		m(&r)
	}
	return r
}

func TestExtractFeatures_Basic(t *testing.T) {
	r := record("Request to https://api.openai.com/v1 timed out", func(r *models.FailureRecord) {
		r.ComponentType = models.StrPtr("llm")
		r.ToolName = models.StrPtr("chat")
	})

	f := ExtractFeatures(r)
	require.NotNil(t, f.NormalizedMessage)
	assert.Equal(t, "Request to <URL> timed out", *f.NormalizedMessage)
	assert.Equal(t, models.CategoryTimeout, f.Category)
	assert.Equal(t, "llm", models.StrVal(f.ComponentType))
	assert.Equal(t, "chat", models.StrVal(f.ToolName))
	assert.Equal(t, "generation", f.SpanType)
	assert.Nil(t, f.StackSignature)
}

func TestExtractFeatures_AbsentMessage(t *testing.T) {
	f := ExtractFeatures(record(""))
	assert.Nil(t, f.ErrorMessage)
	assert.Nil(t, f.NormalizedMessage)
	assert.Equal(t, models.CategoryUnknown, f.Category)
}

func TestExtractFeatures_StackSignature(t *testing.T) {
	stack := "Error: boom\n" +
		"    at handleRequest (/app/src/handler.js:42:7)\n" +
		"    at retryWrapper (/app/node_modules/retry/index.js:10:3)\n" +
		"    at runTool (/app/src/tools/run.js:88:1)\n"

	r := record("boom", func(r *models.FailureRecord) {
		r.Attributes = map[string]string{"exception.stacktrace": stack}
	})

	f := ExtractFeatures(r)
	require.NotNil(t, f.StackSignature)
	assert.Equal(t, "handleRequest > runTool", *f.StackSignature)
}

func TestExtractFeatures_StackAllFramesFiltered(t *testing.T) {
	stack := "Error: boom\n" +
		"    at wrapped (/srv/node_modules/lib/a.js:1:1)\n" +
		"    at inner (/srv/node_modules/lib/b.js:2:2)\n"

	r := record("boom", func(r *models.FailureRecord) {
		r.Attributes = map[string]string{"stack_trace": stack}
	})

	assert.Nil(t, ExtractFeatures(r).StackSignature)
}

func TestComputeSignature_StableAndDiscriminating(t *testing.T) {
	a := ExtractFeatures(record("timed out calling service 12345678"))
	b := ExtractFeatures(record("timed out calling service 98765432"))
	c := ExtractFeatures(record("permission denied"))

	// Same features after normalization hash identically, every time.
	assert.Equal(t, ComputeSignature(a), ComputeSignature(b))
	assert.Equal(t, ComputeSignature(a), ComputeSignature(a))

	// Different categories and messages diverge.
	assert.NotEqual(t, ComputeSignature(a), ComputeSignature(c))
}
