package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
)

// Authorizer yields the URL and headers needed to call the file and envelope
// endpoints for a file.
type Authorizer interface {
	FileAuthorization(ctx context.Context, fileID string) (string, http.Header, error)
	EnvelopeAuthorization(ctx context.Context, fileID string) (string, http.Header, error)
}

// TokenAuthorizer authorizes requests with a bearer token. When a work
// package is set, the access token is first exchanged for a work-order token
// scoped to the file.
type TokenAuthorizer struct {
	HTTPClient    *http.Client
	BaseURL       string
	Token         string
	WorkPackageID string
}

var _ Authorizer = &TokenAuthorizer{}

func (a *TokenAuthorizer) FileAuthorization(ctx context.Context, fileID string) (string, http.Header, error) {
	headers, err := a.headers(ctx, fileID)
	if err != nil {
		return "", nil, err
	}
	return a.endpoint("objects", fileID), headers, nil
}

func (a *TokenAuthorizer) EnvelopeAuthorization(ctx context.Context, fileID string) (string, http.Header, error) {
	headers, err := a.headers(ctx, fileID)
	if err != nil {
		return "", nil, err
	}
	return a.endpoint("objects", fileID, "envelopes"), headers, nil
}

func (a *TokenAuthorizer) headers(ctx context.Context, fileID string) (http.Header, error) {
	token := a.Token
	if a.WorkPackageID != "" {
		workOrderToken, err := a.workOrderToken(ctx, fileID)
		if err != nil {
			return nil, err
		}
		token = workOrderToken
	}
	headers := http.Header{}
	if token != "" {
		headers.Set("Authorization", "Bearer "+token)
	}
	return headers, nil
}

func (a *TokenAuthorizer) workOrderToken(ctx context.Context, fileID string) (string, error) {
	endpoint := a.endpoint("work-packages", a.WorkPackageID, "files", fileID, "work-order-tokens")
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(nil))
	if err != nil {
		return "", fmt.Errorf("failed to create request for %s: %w", endpoint, err)
	}
	req.Header.Set("Authorization", "Bearer "+a.Token)

	httpClient := a.HTTPClient
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	resp, err := httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("error executing request for %s: %w", endpoint, err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK, http.StatusCreated:
		var token string
		if err := json.NewDecoder(resp.Body).Decode(&token); err != nil || token == "" {
			return "", &ExternalAPIError{URL: endpoint, StatusCode: resp.StatusCode, Message: "malformed work order token"}
		}
		return token, nil
	case http.StatusUnauthorized, http.StatusForbidden:
		return "", fmt.Errorf("%w: %s", ErrUnauthorized, endpoint)
	case http.StatusNotFound:
		return "", fmt.Errorf("%w: %s", ErrFileNotRegistered, fileID)
	default:
		return "", unexpectedResponse(endpoint, resp)
	}
}

func (a *TokenAuthorizer) endpoint(segments ...string) string {
	escaped := make([]string, len(segments))
	for i, segment := range segments {
		escaped[i] = url.PathEscape(segment)
	}
	return strings.TrimSuffix(a.BaseURL, "/") + "/" + strings.Join(escaped, "/")
}
