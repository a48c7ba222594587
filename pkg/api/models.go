package api

// StatsResponse is the JSON response for GET /api/v1/stats.
type StatsResponse struct {
	Segments     int    `json:"segments"`
	Paths        int    `json:"paths"`
	PangenomeLen uint64 `json:"pangenome_len"`
	MinSegmentID uint32 `json:"min_segment_id"`
	MaxSegmentID uint32 `json:"max_segment_id"`
	MatrixNNZ    int    `json:"matrix_nnz"`
}

// NodeResponse is the JSON response for segment lookups.
type NodeResponse struct {
	SegmentID uint32 `json:"segment_id"`
	Offset    uint64 `json:"offset"`
	Length    uint64 `json:"length"`
}

// StepJSON represents one path step in a response. Offset is relative to
// the start of the path.
type StepJSON struct {
	Index       int    `json:"index"`
	SegmentID   uint32 `json:"segment_id"`
	Orientation string `json:"orientation"`
	Offset      uint64 `json:"offset"`
	Length      uint64 `json:"length"`
}

// PathRangeResponse is the JSON response for GET /api/v1/paths/{name}/steps.
type PathRangeResponse struct {
	Path      string     `json:"path"`
	Start     uint64     `json:"start"`
	End       uint64     `json:"end"`
	Steps     []StepJSON `json:"steps"`
	Truncated bool       `json:"truncated,omitempty"`
}

// PathsOnNodeResponse is the JSON response for GET /api/v1/nodes/{node}/paths.
type PathsOnNodeResponse struct {
	SegmentID uint32   `json:"segment_id"`
	Paths     []string `json:"paths"`
}

// ErrorResponse is the JSON response for errors.
type ErrorResponse struct {
	Error string `json:"error"`
	Field string `json:"field,omitempty"`
}

// HealthResponse is the JSON response for GET /api/v1/health.
type HealthResponse struct {
	Status string `json:"status"`
}
