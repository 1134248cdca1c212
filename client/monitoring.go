package client

import "context"

// MonitoringService drives the direct-polling monitoring session.
type MonitoringService struct {
	c *Client
}

// connectRequest is the wire shape of a connect call.
type connectRequest struct {
	DatabaseURL string `json:"databaseUrl"`
	UserID      string `json:"userId,omitempty"`
}

// Connect starts monitoring the database at databaseURL. An empty userID
// uses the server's default session.
func (s *MonitoringService) Connect(ctx context.Context, databaseURL, userID string) (*ConnectResponse, error) {
	var resp ConnectResponse
	if err := s.c.post(ctx, "/api/v1/monitoring/connect", connectRequest{DatabaseURL: databaseURL, UserID: userID}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Disconnect stops the monitoring session for userID (empty for the default
// session). Disconnecting a session that never connected succeeds.
func (s *MonitoringService) Disconnect(ctx context.Context, userID string) error {
	body := map[string]string{}
	if userID != "" {
		body["userId"] = userID
	}
	return s.c.post(ctx, "/api/v1/monitoring/disconnect", body, nil)
}
