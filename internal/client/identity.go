package client

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
)

const defaultIdentityTimeout = 10 * time.Second

// IdentityResolver resolves a user id to a deliverable recipient address.
type IdentityResolver interface {
	Resolve(ctx context.Context, userID string) (string, error)
}

type identityResponse struct {
	Data *identityDTO `json:"data"`
}

type identityDTO struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}

// IdentityClient looks recipients up in the user directory service.
type IdentityClient struct {
	client  *resty.Client
	baseURL string
}

func NewIdentityClient(baseURL string, timeout time.Duration) (*IdentityClient, error) {
	if timeout <= 0 {
		timeout = defaultIdentityTimeout
	}

	client := resty.New()
	client.SetTimeout(timeout)
	client.SetRetryCount(0)

	return NewIdentityClientWithClient(baseURL, client)
}

func NewIdentityClientWithClient(baseURL string, client *resty.Client) (*IdentityClient, error) {
	trimmed := strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if trimmed == "" {
		return nil, fmt.Errorf("identity service url is required")
	}
	if _, err := url.ParseRequestURI(trimmed); err != nil {
		return nil, fmt.Errorf("invalid identity service url: %w", err)
	}
	if client == nil {
		return nil, fmt.Errorf("resty client is required")
	}
	if client.GetClient().Timeout == 0 {
		client.SetTimeout(defaultIdentityTimeout)
	}
	client.SetRetryCount(0)

	return &IdentityClient{
		client:  client,
		baseURL: trimmed,
	}, nil
}

func (c *IdentityClient) Resolve(ctx context.Context, userID string) (string, error) {
	if c == nil || c.client == nil {
		return "", fmt.Errorf("identity client is not initialized")
	}
	if strings.TrimSpace(userID) == "" {
		return "", fmt.Errorf("user id is required")
	}

	var parsed identityResponse
	response, err := c.client.R().
		SetContext(ctx).
		SetResult(&parsed).
		Get(fmt.Sprintf("%s/api/v1/users/%s", c.baseURL, url.PathEscape(userID)))
	if err != nil {
		return "", &DownstreamError{
			Target:    "identity",
			Message:   "request failed",
			Transient: !errors.Is(err, context.Canceled),
			Cause:     err,
		}
	}

	statusCode := response.StatusCode()
	switch {
	case statusCode == http.StatusOK:
		if parsed.Data == nil || strings.TrimSpace(parsed.Data.Email) == "" {
			return "", &DownstreamError{
				Target:     "identity",
				StatusCode: statusCode,
				Message:    "response missing recipient address",
				Transient:  false,
				NotFound:   true,
			}
		}
		return parsed.Data.Email, nil
	case statusCode == http.StatusNotFound:
		return "", &DownstreamError{
			Target:     "identity",
			StatusCode: statusCode,
			Message:    fmt.Sprintf("user %s not found", userID),
			NotFound:   true,
		}
	default:
		return "", &DownstreamError{
			Target:     "identity",
			StatusCode: statusCode,
			Message:    fmt.Sprintf("identity service returned status %d", statusCode),
			Transient:  isTransientHTTPStatus(statusCode),
		}
	}
}
