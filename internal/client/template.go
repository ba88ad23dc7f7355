package client

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/bkaradag/notify-relay/internal/domain"
	"github.com/go-resty/resty/v2"
)

const defaultTemplateTimeout = 10 * time.Second

// TemplateRenderer renders a template code plus variables into subject/body.
type TemplateRenderer interface {
	Render(ctx context.Context, templateCode string, variables map[string]any) (domain.RenderedTemplate, error)
}

type renderResponse struct {
	Data *renderDTO `json:"data"`
}

type renderDTO struct {
	Subject string `json:"subject"`
	Body    string `json:"body"`
}

// TemplateClient calls the template-rendering service.
type TemplateClient struct {
	client  *resty.Client
	baseURL string
}

func NewTemplateClient(baseURL string, timeout time.Duration) (*TemplateClient, error) {
	if timeout <= 0 {
		timeout = defaultTemplateTimeout
	}

	client := resty.New()
	client.SetTimeout(timeout)
	client.SetRetryCount(0)

	return NewTemplateClientWithClient(baseURL, client)
}

func NewTemplateClientWithClient(baseURL string, client *resty.Client) (*TemplateClient, error) {
	trimmed := strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if trimmed == "" {
		return nil, fmt.Errorf("template service url is required")
	}
	if _, err := url.ParseRequestURI(trimmed); err != nil {
		return nil, fmt.Errorf("invalid template service url: %w", err)
	}
	if client == nil {
		return nil, fmt.Errorf("resty client is required")
	}
	if client.GetClient().Timeout == 0 {
		client.SetTimeout(defaultTemplateTimeout)
	}
	client.SetRetryCount(0)

	return &TemplateClient{
		client:  client,
		baseURL: trimmed,
	}, nil
}

func (c *TemplateClient) Render(ctx context.Context, templateCode string, variables map[string]any) (domain.RenderedTemplate, error) {
	if c == nil || c.client == nil {
		return domain.RenderedTemplate{}, fmt.Errorf("template client is not initialized")
	}
	if strings.TrimSpace(templateCode) == "" {
		return domain.RenderedTemplate{}, fmt.Errorf("template code is required")
	}
	if variables == nil {
		variables = map[string]any{}
	}

	var parsed renderResponse
	response, err := c.client.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(variables).
		SetResult(&parsed).
		Post(fmt.Sprintf("%s/api/v1/templates/%s/render", c.baseURL, url.PathEscape(templateCode)))
	if err != nil {
		return domain.RenderedTemplate{}, &DownstreamError{
			Target:    "template",
			Message:   "request failed",
			Transient: !errors.Is(err, context.Canceled),
			Cause:     err,
		}
	}

	statusCode := response.StatusCode()
	switch {
	case statusCode == http.StatusOK:
		if parsed.Data == nil || strings.TrimSpace(parsed.Data.Body) == "" {
			return domain.RenderedTemplate{}, &DownstreamError{
				Target:     "template",
				StatusCode: statusCode,
				Message:    "rendered template missing body",
				Transient:  true,
			}
		}

		subject := strings.TrimSpace(parsed.Data.Subject)
		if subject == "" {
			subject = domain.DefaultSubject
		}

		return domain.RenderedTemplate{
			Subject: subject,
			Body:    parsed.Data.Body,
		}, nil
	case statusCode == http.StatusNotFound:
		// A nonexistent template cannot succeed on retry.
		return domain.RenderedTemplate{}, &DownstreamError{
			Target:     "template",
			StatusCode: statusCode,
			Message:    fmt.Sprintf("template %s not found", templateCode),
			NotFound:   true,
		}
	default:
		return domain.RenderedTemplate{}, &DownstreamError{
			Target:     "template",
			StatusCode: statusCode,
			Message:    fmt.Sprintf("template service returned status %d", statusCode),
			Transient:  isTransientHTTPStatus(statusCode),
		}
	}
}
