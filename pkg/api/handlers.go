package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/sirupsen/logrus"

	"gfa_index/pkg/graph"
	"gfa_index/pkg/query"
)

// Handlers holds the HTTP handlers and their dependencies.
type Handlers struct {
	querier query.Querier
}

// NewHandlers creates handlers backed by q.
func NewHandlers(q query.Querier) *Handlers {
	return &Handlers{querier: q}
}

// HandleHealth handles GET /api/v1/health.
func (h *Handlers) HandleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, HealthResponse{Status: "ok"})
}

// HandleStats handles GET /api/v1/stats.
func (h *Handlers) HandleStats(w http.ResponseWriter, r *http.Request) {
	s := h.querier.Stats(r.Context())
	writeJSON(w, StatsResponse{
		Segments:     s.Segments,
		Paths:        s.Paths,
		PangenomeLen: uint64(s.PangenomeLen),
		MinSegmentID: s.MinSegmentID,
		MaxSegmentID: s.MaxSegmentID,
		MatrixNNZ:    s.MatrixNNZ,
	})
}

// HandleNode handles GET /api/v1/nodes/{node}.
func (h *Handlers) HandleNode(w http.ResponseWriter, r *http.Request) {
	id, ok := parseSegmentID(w, r)
	if !ok {
		return
	}
	span, err := h.querier.NodeSpan(r.Context(), id)
	if err != nil {
		writeQueryError(w, err)
		return
	}
	writeJSON(w, nodeResponse(span))
}

// HandleNodePaths handles GET /api/v1/nodes/{node}/paths.
func (h *Handlers) HandleNodePaths(w http.ResponseWriter, r *http.Request) {
	id, ok := parseSegmentID(w, r)
	if !ok {
		return
	}
	paths, err := h.querier.PathsOnNode(r.Context(), id)
	if err != nil {
		writeQueryError(w, err)
		return
	}
	if paths == nil {
		paths = []string{}
	}
	writeJSON(w, PathsOnNodeResponse{SegmentID: id, Paths: paths})
}

// HandlePos handles GET /api/v1/pos/{pos}.
func (h *Handlers) HandlePos(w http.ResponseWriter, r *http.Request) {
	pos, err := strconv.ParseUint(r.PathValue("pos"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "pos")
		return
	}
	span, err := h.querier.NodeAt(r.Context(), graph.Bp(pos))
	if err != nil {
		writeQueryError(w, err)
		return
	}
	writeJSON(w, nodeResponse(span))
}

// HandlePathSteps handles GET /api/v1/paths/{name}/steps?start=&end=.
func (h *Handlers) HandlePathSteps(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	start, err := strconv.ParseUint(q.Get("start"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "start")
		return
	}
	end, err := strconv.ParseUint(q.Get("end"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "end")
		return
	}

	res, err := h.querier.PathRange(r.Context(), r.PathValue("name"), graph.Bp(start), graph.Bp(end))
	if err != nil {
		writeQueryError(w, err)
		return
	}
	resp := PathRangeResponse{
		Path:      res.Path,
		Start:     uint64(res.Start),
		End:       uint64(res.End),
		Steps:     make([]StepJSON, len(res.Steps)),
		Truncated: res.Truncated,
	}
	for i, s := range res.Steps {
		resp.Steps[i] = stepJSON(s)
	}
	writeJSON(w, resp)
}

// HandlePathPos handles GET /api/v1/paths/{name}/pos/{pos}.
func (h *Handlers) HandlePathPos(w http.ResponseWriter, r *http.Request) {
	pos, err := strconv.ParseUint(r.PathValue("pos"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "pos")
		return
	}
	s, err := h.querier.StepAt(r.Context(), r.PathValue("name"), graph.Bp(pos))
	if err != nil {
		writeQueryError(w, err)
		return
	}
	writeJSON(w, stepJSON(*s))
}

func parseSegmentID(w http.ResponseWriter, r *http.Request) (uint32, bool) {
	id, err := strconv.ParseUint(r.PathValue("node"), 10, 32)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "node")
		return 0, false
	}
	return uint32(id), true
}

func nodeResponse(s *query.NodeSpan) NodeResponse {
	return NodeResponse{SegmentID: s.SegmentID, Offset: uint64(s.Offset), Length: uint64(s.Length)}
}

func stepJSON(s query.Step) StepJSON {
	orient := "+"
	if s.Reverse {
		orient = "-"
	}
	return StepJSON{
		Index:       s.Index,
		SegmentID:   s.SegmentID,
		Orientation: orient,
		Offset:      uint64(s.Offset),
		Length:      uint64(s.Length),
	}
}

func writeQueryError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, query.ErrPathNotFound):
		writeError(w, http.StatusNotFound, "path_not_found", "name")
	case errors.Is(err, query.ErrNodeOutOfRange):
		writeError(w, http.StatusNotFound, "segment_not_found", "node")
	case errors.Is(err, query.ErrPosOutOfRange):
		writeError(w, http.StatusUnprocessableEntity, "position_out_of_range", "pos")
	case errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded):
		writeError(w, http.StatusServiceUnavailable, "request_timeout", "")
	default:
		logrus.WithError(err).Error("query failed")
		writeError(w, http.StatusInternalServerError, "internal_error", "")
	}
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, field string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(ErrorResponse{Error: code, Field: field})
}
