package patterns

import (
	"fmt"
	"hash/fnv"

	"github.com/agentlens/agentlens-core/internal/models"
)

// ComputeSignature derives a stable grouping key from a feature record.
// Equal feature values always yield the same key within a process run; the
// key is also used for correlation-analyzer cache keys, so it is a single
// cheap FNV-1a pass rather than a cryptographic hash.
func ComputeSignature(f models.FailureFeatures) string {
	h := fnv.New64a()
	writeField(h, string(f.Category))
	writeField(h, models.StrVal(f.NormalizedMessage))
	writeField(h, models.StrVal(f.ComponentType))
	writeField(h, f.SpanType)
	writeField(h, models.StrVal(f.ToolName))
	return fmt.Sprintf("%016x", h.Sum64())
}

func writeField(h interface{ Write([]byte) (int, error) }, s string) {
	h.Write([]byte(s))
	h.Write([]byte{0}) // field separator so "a"+"bc" != "ab"+"c"
}
