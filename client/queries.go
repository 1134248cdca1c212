package client

import "context"

// QueryService runs ad-hoc query analysis.
type QueryService struct {
	c *Client
}

// analyzeRequest is the wire shape of an analyze call.
type analyzeRequest struct {
	URIString string `json:"uri_string"`
	Query     string `json:"query"`
}

// Analyze executes the query with EXPLAIN ANALYZE on the database at
// uriString and returns the normalized plan metrics. The query really runs.
func (s *QueryService) Analyze(ctx context.Context, uriString, query string) (*QueryPlanMetrics, error) {
	var resp QueryPlanMetrics
	if err := s.c.post(ctx, "/api/v1/queries/metrics", analyzeRequest{URIString: uriString, Query: query}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}
