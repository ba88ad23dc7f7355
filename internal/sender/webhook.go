package sender

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/bkaradag/notify-relay/internal/client"
	"github.com/go-resty/resty/v2"
)

const defaultSendTimeout = 10 * time.Second

type sendRequest struct {
	To      string `json:"to"`
	Subject string `json:"subject"`
	Body    string `json:"body"`
}

// WebhookSender posts rendered payloads to an HTTP transport endpoint, for
// example an SMTP relay bridge or a webhook sink.
type WebhookSender struct {
	client   *resty.Client
	endpoint string
}

func NewWebhookSender(endpoint string) (*WebhookSender, error) {
	restyClient := resty.New()
	restyClient.SetTimeout(defaultSendTimeout)
	restyClient.SetRetryCount(0)

	return NewWebhookSenderWithClient(endpoint, restyClient)
}

func NewWebhookSenderWithClient(endpoint string, restyClient *resty.Client) (*WebhookSender, error) {
	trimmedEndpoint := strings.TrimSpace(endpoint)
	if trimmedEndpoint == "" {
		return nil, fmt.Errorf("transport endpoint is required")
	}
	if _, err := url.ParseRequestURI(trimmedEndpoint); err != nil {
		return nil, fmt.Errorf("invalid transport endpoint: %w", err)
	}
	if restyClient == nil {
		return nil, fmt.Errorf("resty client is required")
	}

	if restyClient.GetClient().Timeout == 0 {
		restyClient.SetTimeout(defaultSendTimeout)
	}
	restyClient.SetRetryCount(0)

	return &WebhookSender{
		client:   restyClient,
		endpoint: trimmedEndpoint,
	}, nil
}

func (s *WebhookSender) Send(ctx context.Context, recipient, subject, body string) error {
	if s == nil || s.client == nil {
		return fmt.Errorf("sender is not initialized")
	}
	if strings.TrimSpace(recipient) == "" {
		return fmt.Errorf("recipient is required")
	}

	reqBody := sendRequest{
		To:      recipient,
		Subject: subject,
		Body:    body,
	}

	response, err := s.client.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(reqBody).
		Post(s.endpoint)
	if err != nil {
		return &client.DownstreamError{
			Target:    "transport",
			Message:   "send request failed",
			Transient: !errors.Is(err, context.Canceled),
			Cause:     err,
		}
	}
	if response == nil {
		return &client.DownstreamError{
			Target:    "transport",
			Message:   "transport returned empty response",
			Transient: true,
		}
	}

	statusCode := response.StatusCode()
	if statusCode >= http.StatusOK && statusCode < http.StatusMultipleChoices {
		return nil
	}

	message := fmt.Sprintf("transport returned status %d", statusCode)
	if responseBody := strings.TrimSpace(response.String()); responseBody != "" {
		message = fmt.Sprintf("%s: %s", message, responseBody)
	}

	return &client.DownstreamError{
		Target:     "transport",
		StatusCode: statusCode,
		Message:    message,
		Transient:  true,
	}
}
