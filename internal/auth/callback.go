package auth

import (
	"context"
	"fmt"
	"html"
	"net"
	"net/http"
	"net/url"
	"sync"
	"time"
)

// callbackResult carries the parameters of the single accepted redirect.
type callbackResult struct {
	code  string
	state string
	err   error
}

// CallbackListener binds the loopback endpoint named by a redirect URI,
// accepts exactly one authorization redirect, and releases the port.
//
// The listener is a scoped resource: Listen acquires the socket, Wait blocks
// for one request within a timeout, and Close releases the socket on every
// exit path so a subsequent login can rebind the same port immediately.
type CallbackListener struct {
	ln      net.Listener
	srv     *http.Server
	path    string
	results chan callbackResult

	mu       sync.Mutex
	accepted bool
	closed   bool
}

// Listen parses the redirect URI and binds its host/port. The URI must use
// plain http on a loopback-style address; failing to bind surfaces
// KindListenerBindFailed.
func Listen(redirectURI string) (*CallbackListener, error) {
	u, err := url.Parse(redirectURI)
	if err != nil {
		return nil, &Error{Kind: KindListenerBindFailed, Reason: fmt.Sprintf("invalid redirect_uri %q", redirectURI), Err: err}
	}
	if u.Scheme != "http" {
		return nil, &Error{Kind: KindListenerBindFailed, Reason: "redirect_uri must use http for local callback capture"}
	}
	if u.Hostname() == "" {
		return nil, &Error{Kind: KindListenerBindFailed, Reason: "redirect_uri is missing a host"}
	}

	port := u.Port()
	if port == "" {
		port = "80"
	}

	ln, err := net.Listen("tcp", net.JoinHostPort(u.Hostname(), port))
	if err != nil {
		return nil, &Error{
			Kind:   KindListenerBindFailed,
			Reason: fmt.Sprintf("failed to bind oauth callback listener on %s:%s", u.Hostname(), port),
			Err:    err,
		}
	}

	path := u.Path
	if path == "" {
		path = "/"
	}

	l := &CallbackListener{
		ln:      ln,
		path:    path,
		results: make(chan callbackResult, 1),
	}

	mux := http.NewServeMux()
	mux.HandleFunc(path, l.handleCallback)
	l.srv = &http.Server{Handler: mux}

	go func() {
		// Serve returns once the listener closes; the error is expected.
		_ = l.srv.Serve(ln)
	}()

	return l, nil
}

// Addr returns the bound address, useful when the redirect URI uses port 0.
func (l *CallbackListener) Addr() net.Addr {
	return l.ln.Addr()
}

func (l *CallbackListener) handleCallback(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeCallbackPage(w, http.StatusMethodNotAllowed, "oauth callback only accepts GET requests")
		return
	}

	l.mu.Lock()
	if l.accepted {
		l.mu.Unlock()
		writeCallbackPage(w, http.StatusGone, "this login attempt has already received a callback")
		return
	}
	l.accepted = true
	l.mu.Unlock()

	q := r.URL.Query()
	if errCode := q.Get("error"); errCode != "" {
		provider := &ProviderError{Code: errCode, Description: q.Get("error_description")}
		writeCallbackPage(w, http.StatusBadRequest, "authorization failed: "+provider.Error())
		l.results <- callbackResult{err: &Error{Kind: KindAuthorizationDenied, Reason: provider.Error(), Err: provider}}
		return
	}

	writeCallbackPage(w, http.StatusOK, "login complete. you can return to the terminal.")
	l.results <- callbackResult{code: q.Get("code"), state: q.Get("state")}
}

// Wait blocks for exactly one inbound callback, bounded by timeout. On
// timeout it fails with KindCallbackTimeout; either way the caller is
// expected to Close the listener.
func (l *CallbackListener) Wait(ctx context.Context, timeout time.Duration) (code, state string, err error) {
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case res := <-l.results:
		if res.err != nil {
			return "", "", res.err
		}
		return res.code, res.state, nil
	case <-timer.C:
		return "", "", &Error{Kind: KindCallbackTimeout, Reason: fmt.Sprintf("no callback within %s", timeout)}
	case <-ctx.Done():
		return "", "", &Error{Kind: KindCallbackTimeout, Reason: "login cancelled", Err: ctx.Err()}
	}
}

// Close releases the socket. It is idempotent and safe on every exit path.
func (l *CallbackListener) Close() error {
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return nil
	}
	l.closed = true
	l.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	return l.srv.Shutdown(ctx)
}

func writeCallbackPage(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	fmt.Fprintf(w, "<!doctype html><html><body><p>%s</p></body></html>", html.EscapeString(message))
}
