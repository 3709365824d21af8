package gmail

import (
	"context"
	"encoding/base64"
	"log/slog"
	"net/http"
	"strings"

	gmail "google.golang.org/api/gmail/v1"
	"google.golang.org/api/option"

	"github.com/tkoenig/gmailcli/internal/logging"
)

// maxPageSize is the largest page the messages.list endpoint serves.
const maxPageSize = 100

// Client wraps the Gmail Users service with bearer authentication and the
// error taxonomy of this package. All calls act on the authenticated user.
type Client struct {
	svc    *gmail.UsersService
	logger *slog.Logger
}

// Option customizes a Client.
type Option func(*clientConfig)

type clientConfig struct {
	endpoint string
	base     http.RoundTripper
	logger   *slog.Logger
}

// WithEndpoint overrides the API base URL, used by tests.
func WithEndpoint(endpoint string) Option {
	return func(c *clientConfig) { c.endpoint = endpoint }
}

// WithBaseTransport replaces the underlying HTTP transport.
func WithBaseTransport(base http.RoundTripper) Option {
	return func(c *clientConfig) { c.base = base }
}

// WithLogger sets the client logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *clientConfig) { c.logger = logger }
}

// NewClient builds an authenticated Gmail client. Tokens come from source
// per request; a 401 triggers exactly one forced refresh and retry.
func NewClient(ctx context.Context, source TokenSource, opts ...Option) (*Client, error) {
	cfg := &clientConfig{logger: slog.Default()}
	for _, opt := range opts {
		opt(cfg)
	}

	httpClient := &http.Client{Transport: newAuthTransport(source, cfg.base)}
	serviceOpts := []option.ClientOption{option.WithHTTPClient(httpClient)}
	if cfg.endpoint != "" {
		serviceOpts = append(serviceOpts, option.WithEndpoint(cfg.endpoint))
	}

	svc, err := gmail.NewService(ctx, serviceOpts...)
	if err != nil {
		return nil, wrapError(err)
	}
	return &Client{svc: svc.Users, logger: cfg.logger}, nil
}

// List returns up to limit message summaries matching the query, in the
// provider's most-recent-first order. Each summary carries the threading
// headers needed for replies.
func (c *Client) List(ctx context.Context, query string, limit int64) ([]*MessageSummary, error) {
	if limit <= 0 {
		return nil, nil
	}

	var ids []string
	pageToken := ""
	for int64(len(ids)) < limit {
		pageSize := limit - int64(len(ids))
		if pageSize > maxPageSize {
			pageSize = maxPageSize
		}

		req := c.svc.Messages.List("me").MaxResults(pageSize).Context(ctx)
		if query != "" {
			req = req.Q(query)
		}
		if pageToken != "" {
			req = req.PageToken(pageToken)
		}

		res, err := req.Do()
		if err != nil {
			return nil, wrapError(err)
		}
		for _, m := range res.Messages {
			ids = append(ids, m.Id)
		}
		if res.NextPageToken == "" {
			break
		}
		pageToken = res.NextPageToken
	}
	if int64(len(ids)) > limit {
		ids = ids[:limit]
	}

	summaries := make([]*MessageSummary, 0, len(ids))
	for _, id := range ids {
		msg, err := c.svc.Messages.Get("me", id).
			Format("metadata").
			MetadataHeaders(metadataHeaders...).
			Context(ctx).
			Do()
		if err != nil {
			return nil, wrapError(err)
		}
		summaries = append(summaries, summaryFromMessage(msg))
	}

	c.logger.Debug("listed messages",
		logging.Operation("list"),
		slog.Int("count", len(summaries)))
	return summaries, nil
}

// Get fetches a single message in full: headers, decoded text and HTML
// bodies, and attachment metadata.
func (c *Client) Get(ctx context.Context, id string) (*Message, error) {
	msg, err := c.svc.Messages.Get("me", id).Format("full").Context(ctx).Do()
	if err != nil {
		return nil, wrapError(err)
	}
	return messageFromFull(msg)
}

// SendResult identifies a sent message.
type SendResult struct {
	ID       string `json:"id"`
	ThreadID string `json:"thread_id"`
}

// Send submits a raw RFC 822 message. A non-empty threadID associates the
// message with an existing conversation.
func (c *Client) Send(ctx context.Context, raw []byte, threadID string) (*SendResult, error) {
	msg := &gmail.Message{
		Raw:      base64.RawURLEncoding.EncodeToString(raw),
		ThreadId: threadID,
	}
	sent, err := c.svc.Messages.Send("me", msg).Context(ctx).Do()
	if err != nil {
		return nil, wrapError(err)
	}

	c.logger.Info("message sent",
		logging.Operation("send"),
		logging.Status(logging.StatusSuccess),
		slog.String("message_id", sent.Id))
	return &SendResult{ID: sent.Id, ThreadID: sent.ThreadId}, nil
}

// Label is a Gmail label with its id and display name.
type Label struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Type string `json:"type,omitempty"`
}

// Labels returns all labels of the account.
func (c *Client) Labels(ctx context.Context) ([]*Label, error) {
	res, err := c.svc.Labels.List("me").Context(ctx).Do()
	if err != nil {
		return nil, wrapError(err)
	}
	labels := make([]*Label, 0, len(res.Labels))
	for _, l := range res.Labels {
		labels = append(labels, &Label{ID: l.Id, Name: l.Name, Type: l.Type})
	}
	return labels, nil
}

// ModifyLabels adds and removes labels on a message. Labels are given by
// display name or id and resolved case-insensitively; an unknown label is a
// NotFound error before anything is modified.
func (c *Client) ModifyLabels(ctx context.Context, id string, add, remove []string) (*Message, error) {
	var addIDs, removeIDs []string
	if len(add) > 0 || len(remove) > 0 {
		labels, err := c.Labels(ctx)
		if err != nil {
			return nil, err
		}
		if addIDs, err = resolveLabels(labels, add); err != nil {
			return nil, err
		}
		if removeIDs, err = resolveLabels(labels, remove); err != nil {
			return nil, err
		}
	}

	msg, err := c.svc.Messages.Modify("me", id, &gmail.ModifyMessageRequest{
		AddLabelIds:    addIDs,
		RemoveLabelIds: removeIDs,
	}).Context(ctx).Do()
	if err != nil {
		return nil, wrapError(err)
	}

	c.logger.Debug("labels modified",
		logging.Operation("label"),
		slog.String("message_id", id))
	return &Message{ID: msg.Id, ThreadID: msg.ThreadId, LabelIDs: msg.LabelIds}, nil
}

// resolveLabels maps label names or ids to ids. Ids match exactly, names
// match case-insensitively.
func resolveLabels(labels []*Label, names []string) ([]string, error) {
	if len(names) == 0 {
		return nil, nil
	}
	ids := make([]string, 0, len(names))
	for _, name := range names {
		id, ok := lookupLabel(labels, name)
		if !ok {
			return nil, &APIError{Kind: KindNotFound, Reason: "unknown label: " + name}
		}
		ids = append(ids, id)
	}
	return ids, nil
}

func lookupLabel(labels []*Label, name string) (string, bool) {
	for _, l := range labels {
		if l.ID == name {
			return l.ID, true
		}
	}
	for _, l := range labels {
		if strings.EqualFold(l.Name, name) {
			return l.ID, true
		}
	}
	return "", false
}
