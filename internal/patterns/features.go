package patterns

import (
	"regexp"
	"strings"

	"github.com/agentlens/agentlens-core/internal/models"
)

// Attribute keys inspected for a stack trace, in preference order.
var stackAttributeKeys = []string{"exception.stacktrace", "stack_trace", "stacktrace"}

// Path markers for frames that belong to dependencies rather than the
// instrumented application. Frames matching any of these are dropped.
var dependencyFrameMarkers = []string{"node_modules", "site-packages", "/vendor/", "/usr/lib"}

// stackFrameRe matches one "at function (location)" style frame line and
// captures the function name and location.
var stackFrameRe = regexp.MustCompile(`^\s*at\s+([\w$.<>\[\]]+)\s*(?:\((.*)\))?`)

const maxStackFrames = 5

// ExtractFeatures derives the immutable feature view of one failed span.
func ExtractFeatures(r models.FailureRecord, overrides ...CategoryRule) models.FailureFeatures {
	return models.FailureFeatures{
		ErrorMessage:      r.StatusMessage,
		NormalizedMessage: NormalizeOptional(r.StatusMessage),
		Category:          CategorizeError(r.StatusMessage, overrides...),
		ComponentType:     r.ComponentType,
		SpanType:          r.SpanType,
		ToolName:          r.ToolName,
		SpanName:          r.SpanName,
		Model:             r.Model,
		StackSignature:    extractStackSignature(r.Attributes),
	}
}

// extractStackSignature parses a stack-trace attribute into a compact
// signature: the application-owned function names of the top frames joined
// with " > ". Returns nil when no stack attribute exists or every frame is
// filtered out as dependency code.
func extractStackSignature(attributes map[string]string) *string {
	if len(attributes) == 0 {
		return nil
	}

	var raw string
	for _, key := range stackAttributeKeys {
		if v, ok := attributes[key]; ok && v != "" {
			raw = v
			break
		}
	}
	if raw == "" {
		return nil
	}

	var frames []string
	for _, line := range strings.Split(raw, "\n") {
		m := stackFrameRe.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		if isDependencyFrame(m[2]) {
			continue
		}
		frames = append(frames, m[1])
		if len(frames) == maxStackFrames {
			break
		}
	}
	if len(frames) == 0 {
		return nil
	}
	sig := strings.Join(frames, " > ")
	return &sig
}

func isDependencyFrame(location string) bool {
	for _, marker := range dependencyFrameMarkers {
		if strings.Contains(location, marker) {
			return true
		}
	}
	return false
}
