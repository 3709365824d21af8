package gmail

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	gmail "google.golang.org/api/gmail/v1"

	"github.com/tkoenig/gmailcli/internal/auth"
)

type stubSource struct {
	mu         sync.Mutex
	token      string
	next       string
	refreshErr error
	refreshes  int
}

func (s *stubSource) AccessToken(ctx context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.token, nil
}

func (s *stubSource) ForceRefresh(ctx context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.refreshes++
	if s.refreshErr != nil {
		return "", s.refreshErr
	}
	if s.next != "" {
		s.token = s.next
	}
	return s.token, nil
}

func newTestClient(t *testing.T, source TokenSource, handler http.Handler) *Client {
	t.Helper()
	ts := httptest.NewServer(handler)
	t.Cleanup(ts.Close)

	client, err := NewClient(context.Background(), source, WithEndpoint(ts.URL))
	require.NoError(t, err)
	return client
}

func writeJSON(t *testing.T, w http.ResponseWriter, v any) {
	t.Helper()
	w.Header().Set("Content-Type", "application/json")
	require.NoError(t, json.NewEncoder(w).Encode(v))
}

func writeAPIError(w http.ResponseWriter, code int, message, reason string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	fmt.Fprintf(w, `{"error":{"code":%d,"message":%q,"errors":[{"reason":%q,"message":%q}]}}`,
		code, message, reason, message)
}

func metadataMessage(id, threadID string, headers map[string]string) *gmail.Message {
	var hs []*gmail.MessagePartHeader
	for name, value := range headers {
		hs = append(hs, &gmail.MessagePartHeader{Name: name, Value: value})
	}
	return &gmail.Message{
		Id:       id,
		ThreadId: threadID,
		Snippet:  "snippet of " + id,
		Payload:  &gmail.MessagePart{Headers: hs},
	}
}

func TestListFetchesMetadataPerMessage(t *testing.T) {
	source := &stubSource{token: "T1"}

	mux := http.NewServeMux()
	mux.HandleFunc("/gmail/v1/users/me/messages", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer T1", r.Header.Get("Authorization"))
		assert.Equal(t, "in:inbox", r.URL.Query().Get("q"))
		writeJSON(t, w, &gmail.ListMessagesResponse{
			Messages: []*gmail.Message{{Id: "m1"}, {Id: "m2"}},
		})
	})
	mux.HandleFunc("/gmail/v1/users/me/messages/m1", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "metadata", r.URL.Query().Get("format"))
		writeJSON(t, w, metadataMessage("m1", "t1", map[string]string{
			"Subject":    "Hello",
			"From":       "Alice <alice@example.com>",
			"Date":       "Mon, 24 Aug 2026 10:00:00 +0000",
			"Message-ID": "<m1@example.com>",
		}))
	})
	mux.HandleFunc("/gmail/v1/users/me/messages/m2", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(t, w, metadataMessage("m2", "t2", map[string]string{
			"Subject":    "Re: Hello",
			"From":       "Bob <bob@example.com>",
			"References": "<m1@example.com>",
		}))
	})

	client := newTestClient(t, source, mux)
	summaries, err := client.List(context.Background(), "in:inbox", 10)
	require.NoError(t, err)
	require.Len(t, summaries, 2)

	assert.Equal(t, "m1", summaries[0].ID)
	assert.Equal(t, "Hello", summaries[0].Subject)
	assert.Equal(t, "Alice <alice@example.com>", summaries[0].From)
	assert.Equal(t, "snippet of m1", summaries[0].Snippet)
	assert.Equal(t, "<m1@example.com>", summaries[0].MessageID)
	assert.Equal(t, "<m1@example.com>", summaries[1].References)
}

func TestListHonorsLimitAcrossPages(t *testing.T) {
	source := &stubSource{token: "T1"}

	mux := http.NewServeMux()
	mux.HandleFunc("/gmail/v1/users/me/messages", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("pageToken") == "" {
			writeJSON(t, w, &gmail.ListMessagesResponse{
				Messages:      []*gmail.Message{{Id: "m1"}, {Id: "m2"}},
				NextPageToken: "page2",
			})
			return
		}
		writeJSON(t, w, &gmail.ListMessagesResponse{
			Messages: []*gmail.Message{{Id: "m3"}, {Id: "m4"}},
		})
	})
	mux.HandleFunc("/gmail/v1/users/me/messages/", func(w http.ResponseWriter, r *http.Request) {
		id := strings.TrimPrefix(r.URL.Path, "/gmail/v1/users/me/messages/")
		writeJSON(t, w, metadataMessage(id, "t-"+id, nil))
	})

	client := newTestClient(t, source, mux)
	summaries, err := client.List(context.Background(), "", 3)
	require.NoError(t, err)
	require.Len(t, summaries, 3)
	assert.Equal(t, "m3", summaries[2].ID)
}

func TestUnauthorizedTriggersSingleRefreshRetry(t *testing.T) {
	source := &stubSource{token: "T1", next: "T2"}

	mux := http.NewServeMux()
	mux.HandleFunc("/gmail/v1/users/me/messages/m1", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer T2" {
			writeAPIError(w, http.StatusUnauthorized, "Invalid Credentials", "authError")
			return
		}
		writeJSON(t, w, metadataMessage("m1", "t1", map[string]string{"Subject": "ok"}))
	})

	client := newTestClient(t, source, mux)
	msg, err := client.Get(context.Background(), "m1")
	require.NoError(t, err)
	assert.Equal(t, "ok", msg.Subject)
	assert.Equal(t, 1, source.refreshes)
}

func TestUnauthorizedAfterRefreshSurfaces(t *testing.T) {
	source := &stubSource{token: "T1"}

	var calls int
	mux := http.NewServeMux()
	mux.HandleFunc("/gmail/v1/users/me/messages/m1", func(w http.ResponseWriter, r *http.Request) {
		calls++
		writeAPIError(w, http.StatusUnauthorized, "Invalid Credentials", "authError")
	})

	client := newTestClient(t, source, mux)
	_, err := client.Get(context.Background(), "m1")
	require.Error(t, err)
	assert.True(t, IsKind(err, KindUnauthorized), "got %v", err)
	assert.Equal(t, 2, calls, "exactly one retry after the forced refresh")
	assert.Equal(t, 1, source.refreshes)
}

func TestRefreshRejectionKeepsAuthClassification(t *testing.T) {
	source := &stubSource{
		token:      "T1",
		refreshErr: &auth.Error{Kind: auth.KindRefreshRejected, Reason: "refresh token revoked"},
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/gmail/v1/users/me/messages/m1", func(w http.ResponseWriter, r *http.Request) {
		writeAPIError(w, http.StatusUnauthorized, "Invalid Credentials", "authError")
	})

	client := newTestClient(t, source, mux)
	_, err := client.Get(context.Background(), "m1")
	require.Error(t, err)
	assert.True(t, auth.IsKind(err, auth.KindRefreshRejected), "got %v", err)
	assert.False(t, IsKind(err, KindTransport), "auth failures must not look like transport trouble")
	assert.Equal(t, 1, source.refreshes)
}

func TestErrorMapping(t *testing.T) {
	tests := []struct {
		name   string
		status int
		reason string
		want   Kind
	}{
		{"not found", http.StatusNotFound, "notFound", KindNotFound},
		{"rate limited", http.StatusTooManyRequests, "rateLimitExceeded", KindRateLimited},
		{"quota via 403", http.StatusForbidden, "userRateLimitExceeded", KindRateLimited},
		{"forbidden", http.StatusForbidden, "insufficientPermissions", KindUnauthorized},
		{"bad request", http.StatusBadRequest, "invalidArgument", KindMalformed},
		{"server error", http.StatusInternalServerError, "backendError", KindTransport},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			source := &stubSource{token: "T1"}
			mux := http.NewServeMux()
			mux.HandleFunc("/gmail/v1/users/me/messages/m1", func(w http.ResponseWriter, r *http.Request) {
				writeAPIError(w, tt.status, tt.name, tt.reason)
			})

			client := newTestClient(t, source, mux)
			_, err := client.Get(context.Background(), "m1")
			require.Error(t, err)
			assert.True(t, IsKind(err, tt.want), "got %v", err)

			var apiErr *APIError
			require.ErrorAs(t, err, &apiErr)
			assert.Equal(t, tt.status, apiErr.Status)
		})
	}
}

func TestGetDecodesBodiesAndAttachments(t *testing.T) {
	source := &stubSource{token: "T1"}

	full := &gmail.Message{
		Id:       "m1",
		ThreadId: "t1",
		LabelIds: []string{"INBOX", "UNREAD"},
		Payload: &gmail.MessagePart{
			MimeType: "multipart/mixed",
			Headers: []*gmail.MessagePartHeader{
				{Name: "Subject", Value: "Report"},
				{Name: "From", Value: "alice@example.com"},
				{Name: "Message-ID", Value: "<m1@example.com>"},
			},
			Parts: []*gmail.MessagePart{
				{
					MimeType: "multipart/alternative",
					Parts: []*gmail.MessagePart{
						{
							MimeType: "text/plain",
							Body:     &gmail.MessagePartBody{Data: base64.URLEncoding.EncodeToString([]byte("plain body"))},
						},
						{
							MimeType: "text/html",
							Body:     &gmail.MessagePartBody{Data: base64.URLEncoding.EncodeToString([]byte("<p>html body</p>"))},
						},
					},
				},
				{
					MimeType: "application/pdf",
					Filename: "report.pdf",
					PartId:   "2",
					Body:     &gmail.MessagePartBody{AttachmentId: "att-1", Size: 2048},
				},
			},
		},
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/gmail/v1/users/me/messages/m1", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "full", r.URL.Query().Get("format"))
		writeJSON(t, w, full)
	})

	client := newTestClient(t, source, mux)
	msg, err := client.Get(context.Background(), "m1")
	require.NoError(t, err)

	assert.Equal(t, "Report", msg.Subject)
	assert.Equal(t, "plain body", msg.TextBody)
	assert.Equal(t, "<p>html body</p>", msg.HTMLBody)
	require.Len(t, msg.Attachments, 1)
	assert.Equal(t, "report.pdf", msg.Attachments[0].Filename)
	assert.Equal(t, "application/pdf", msg.Attachments[0].MimeType)
	assert.Equal(t, int64(2048), msg.Attachments[0].Size)
	assert.Equal(t, "att-1", msg.Attachments[0].AttachmentID)
}

func TestSendEncodesRawAndThreads(t *testing.T) {
	source := &stubSource{token: "T1"}
	raw := []byte("From: me@example.com\r\nTo: you@example.com\r\n\r\nhi")

	mux := http.NewServeMux()
	mux.HandleFunc("/gmail/v1/users/me/messages/send", func(w http.ResponseWriter, r *http.Request) {
		var req gmail.Message
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))

		decoded, err := base64.RawURLEncoding.DecodeString(req.Raw)
		require.NoError(t, err)
		assert.Equal(t, raw, decoded)
		assert.Equal(t, "t9", req.ThreadId)

		writeJSON(t, w, &gmail.Message{Id: "sent-1", ThreadId: "t9"})
	})

	client := newTestClient(t, source, mux)
	result, err := client.Send(context.Background(), raw, "t9")
	require.NoError(t, err)
	assert.Equal(t, "sent-1", result.ID)
	assert.Equal(t, "t9", result.ThreadID)
}

func TestModifyLabelsResolvesNames(t *testing.T) {
	source := &stubSource{token: "T1"}

	var modified *gmail.ModifyMessageRequest
	mux := http.NewServeMux()
	mux.HandleFunc("/gmail/v1/users/me/labels", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(t, w, &gmail.ListLabelsResponse{Labels: []*gmail.Label{
			{Id: "INBOX", Name: "INBOX", Type: "system"},
			{Id: "Label_7", Name: "Receipts", Type: "user"},
		}})
	})
	mux.HandleFunc("/gmail/v1/users/me/messages/m1/modify", func(w http.ResponseWriter, r *http.Request) {
		modified = &gmail.ModifyMessageRequest{}
		require.NoError(t, json.NewDecoder(r.Body).Decode(modified))
		writeJSON(t, w, &gmail.Message{Id: "m1", ThreadId: "t1", LabelIds: []string{"Label_7"}})
	})

	client := newTestClient(t, source, mux)
	msg, err := client.ModifyLabels(context.Background(), "m1", []string{"receipts"}, []string{"INBOX"})
	require.NoError(t, err)
	assert.Equal(t, []string{"Label_7"}, msg.LabelIDs)

	require.NotNil(t, modified)
	assert.Equal(t, []string{"Label_7"}, modified.AddLabelIds)
	assert.Equal(t, []string{"INBOX"}, modified.RemoveLabelIds)
}

func TestModifyLabelsUnknownName(t *testing.T) {
	source := &stubSource{token: "T1"}

	var modifyCalled bool
	mux := http.NewServeMux()
	mux.HandleFunc("/gmail/v1/users/me/labels", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(t, w, &gmail.ListLabelsResponse{Labels: []*gmail.Label{
			{Id: "INBOX", Name: "INBOX", Type: "system"},
		}})
	})
	mux.HandleFunc("/gmail/v1/users/me/messages/m1/modify", func(w http.ResponseWriter, r *http.Request) {
		modifyCalled = true
		writeJSON(t, w, &gmail.Message{Id: "m1"})
	})

	client := newTestClient(t, source, mux)
	_, err := client.ModifyLabels(context.Background(), "m1", []string{"no-such-label"}, nil)
	require.Error(t, err)
	assert.True(t, IsKind(err, KindNotFound), "got %v", err)
	assert.Contains(t, err.Error(), "no-such-label")
	assert.False(t, modifyCalled, "nothing may be modified when a label is unknown")
}
