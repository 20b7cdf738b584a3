package api

import (
	"context"
	"fmt"
)

// Envelopes fetches file envelopes through an Authorizer.
type Envelopes struct {
	Authorizer Authorizer
	Client     *Client
}

func (e *Envelopes) Envelope(ctx context.Context, fileID string) ([]byte, error) {
	url, headers, err := e.Authorizer.EnvelopeAuthorization(ctx, fileID)
	if err != nil {
		return nil, fmt.Errorf("error authorizing envelope request: %w", err)
	}
	return e.Client.GetEnvelope(ctx, url, headers)
}
