package tools

// Metadata annotates every result with the invocation's observable facts.
type Metadata struct {
	ToolName     string `json:"tool_name"`
	InvocationID string `json:"invocation_id"`
	MockMode     bool   `json:"mock_mode"`
	CacheHit     bool   `json:"cache_hit"`
	DurationMS   int64  `json:"duration_ms"`
}

// Result is the uniform shape returned for every invocation, success or
// failure. Callers never receive a bare error from the pipeline.
type Result struct {
	Success  bool     `json:"success"`
	Output   any      `json:"result,omitempty"`
	Err      *Error   `json:"error,omitempty"`
	Metadata Metadata `json:"metadata"`
}

// OK builds a successful result.
func OK(output any, meta Metadata) Result {
	return Result{Success: true, Output: output, Metadata: meta}
}

// Fail builds a failed result carrying a classified error.
func Fail(err *Error, meta Metadata) Result {
	return Result{Success: false, Err: err, Metadata: meta}
}
