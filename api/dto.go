package api

import "github.com/poiesic/datagen/core"

const (
	defaultNumRows = 10
	defaultTopK    = 5
)

// GenerateRequest is the body of POST /generate.
type GenerateRequest struct {
	Topic   string `json:"topic"`
	NumRows *int   `json:"num_rows"`
}

// SearchRequest is the body of POST /search.
type SearchRequest struct {
	Topic     string `json:"topic"`
	QueryText string `json:"query_text"`
	TopK      *int   `json:"top_k"`
}

// PipelineRequest is the body of POST /pipeline. Intent is passed to the
// router unchanged, so unrecognized values exercise the generate fallback.
type PipelineRequest struct {
	Intent    string `json:"intent"`
	Topic     string `json:"topic"`
	NumRows   *int   `json:"num_rows"`
	QueryText string `json:"query_text"`
	TopK      *int   `json:"top_k"`
}

// GenerateResponse is returned by POST /generate.
type GenerateResponse struct {
	Status           string        `json:"status"`
	Count            int           `json:"count"`
	GeneratedRecords []core.Record `json:"generated_records"`
}

// SearchResponse is returned by POST /search.
type SearchResponse struct {
	Results []core.QueryResult `json:"results"`
}

// PipelineResponse is returned by POST /pipeline.
type PipelineResponse struct {
	RequestID        string             `json:"request_id"`
	Intent           string             `json:"intent"`
	Fallback         bool               `json:"fallback"`
	Count            int                `json:"count"`
	CollectionName   string             `json:"collection_name,omitempty"`
	GeneratedRecords []core.Record      `json:"generated_records,omitempty"`
	Results          []core.QueryResult `json:"results,omitempty"`
}

// ErrorBody describes a failed request.
type ErrorBody struct {
	Kind   string `json:"kind"`
	Stage  string `json:"stage,omitempty"`
	Detail string `json:"detail"`
}

// ErrorResponse wraps ErrorBody.
type ErrorResponse struct {
	Error ErrorBody `json:"error"`
}

func intOr(v *int, def int) int {
	if v == nil {
		return def
	}
	return *v
}

func nonNilRecords(records []core.Record) []core.Record {
	if records == nil {
		return []core.Record{}
	}
	return records
}

func nonNilResults(results []core.QueryResult) []core.QueryResult {
	if results == nil {
		return []core.QueryResult{}
	}
	return results
}
