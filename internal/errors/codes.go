package errors

// Error codes for the retrieval engine. Codes are stable identifiers used in
// logs and by callers to branch on error kind without string matching.
const (
	// ErrCodeNotIndexed indicates the entity has no index yet. Not fatal;
	// the caller should trigger an index build.
	ErrCodeNotIndexed = "ERR_IDX_NOT_INDEXED"

	// ErrCodeBuildInProgress indicates a build for the entity is already
	// running. Informational; callers may poll and retry.
	ErrCodeBuildInProgress = "ERR_IDX_BUILDING"

	// ErrCodeEmbedUnavailable indicates the embedding backend is absent or
	// failed. The engine continues lexical-only.
	ErrCodeEmbedUnavailable = "ERR_EMBED_UNAVAILABLE"

	// ErrCodeMalformedSource indicates a single source record could not be
	// normalized or chunked. Skipped during builds, never aborts the build.
	ErrCodeMalformedSource = "ERR_SRC_MALFORMED"

	// ErrCodeInvalidInput indicates a caller-supplied argument is invalid.
	ErrCodeInvalidInput = "ERR_INVALID_INPUT"

	// ErrCodeInternal indicates a structural invariant violation (e.g.
	// vector count diverging from chunk count). These are bugs.
	ErrCodeInternal = "ERR_INTERNAL"
)

// isRetryableCode reports whether operations failing with this code can be
// retried by the caller.
func isRetryableCode(code string) bool {
	switch code {
	case ErrCodeBuildInProgress, ErrCodeEmbedUnavailable:
		return true
	default:
		return false
	}
}
