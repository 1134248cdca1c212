package client

import "context"

// ExporterService manages per-user exporter containers.
type ExporterService struct {
	c *Client
}

// startRequest is the wire shape of a start call.
type startRequest struct {
	UserID    string `json:"userId"`
	URIString string `json:"uri_string"`
	Port      int    `json:"port,omitempty"`
}

// Start provisions an exporter for userID against the database at uriString.
// Port 0 lets the server pick one.
func (s *ExporterService) Start(ctx context.Context, userID, uriString string, port int) (*ExporterTarget, error) {
	var resp ExporterTarget
	if err := s.c.post(ctx, "/api/v1/exporters/start", startRequest{UserID: userID, URIString: uriString, Port: port}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Stop tears down the exporter for userID. Stopping a user that was never
// started succeeds.
func (s *ExporterService) Stop(ctx context.Context, userID string) error {
	return s.c.post(ctx, "/api/v1/exporters/stop", map[string]string{"userId": userID}, nil)
}
