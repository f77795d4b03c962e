package server

import (
	"io"
	"net/http"
	"net/http/httputil"
	"net/url"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"github.com/troioi-vn/meo-gpt-connector/upstream"
)

// Proxy forwards the request to the main app on behalf of the token's user.
// It must run after RequireBearer.
func (s *Server) Proxy() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s.proxy.ServeHTTP(w, r)
	}
}

// newUpstreamProxy builds the reverse proxy to the main app. The agent's
// bearer token is replaced by the upstream credential it carries; the main
// app's 429 and 5xx answers become UPSTREAM_ERROR, other statuses pass through.
func newUpstreamProxy(mainAppURL string) (*httputil.ReverseProxy, error) {
	target, err := url.Parse(mainAppURL)
	if err != nil {
		return nil, errors.Wrap(err, "invalid main app url")
	}
	if target.Scheme == "" || target.Host == "" {
		return nil, errors.Errorf("main app url %q must be absolute", mainAppURL)
	}

	return &httputil.ReverseProxy{
		Rewrite: func(pr *httputil.ProxyRequest) {
			pr.SetURL(target)
			pr.SetXForwarded()

			pr.Out.Header.Del("Authorization")
			pr.Out.Header.Del("Cookie")
			if principal, ok := PrincipalFromContext(pr.In.Context()); ok {
				pr.Out.Header.Set("Authorization", "Bearer "+principal.Credential)
			}
			if requestID := RequestIDFromContext(pr.In.Context()); requestID != "" {
				pr.Out.Header.Set(RequestIDHeader, requestID)
			}
		},
		ModifyResponse: checkUpstreamResponse,
		ErrorHandler:   proxyErrorHandler,
	}, nil
}

func checkUpstreamResponse(resp *http.Response) error {
	if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= http.StatusInternalServerError {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return upstream.NewError(resp.StatusCode, body)
	}
	return nil
}

func proxyErrorHandler(w http.ResponseWriter, r *http.Request, err error) {
	message := "Main app is unreachable."
	var upstreamErr *upstream.Error
	if errors.As(err, &upstreamErr) {
		message = "Main app is temporarily unavailable."
		if upstreamErr.StatusCode == http.StatusTooManyRequests {
			message = "The server is busy, please try again in a moment."
		}
	}
	log.Ctx(r.Context()).Warn().Err(err).Str("path", r.URL.Path).Msg("upstream request failed")
	writeJSONError(w, r, codeUpstreamError, message, http.StatusBadGateway)
}
