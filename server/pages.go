package server

import (
	"bytes"
	"embed"
	"html/template"
	"net/http"

	"github.com/rs/zerolog/log"
)

//go:embed templates/*.html
var pageFiles embed.FS

const (
	pageSessionExpired = "session_expired.html"
	pageCallbackFailed = "callback_failed.html"
)

// pageData is what every page template can use.
type pageData struct {
	AppName   string
	RequestID string
	Message   string
}

func parsePages() (*template.Template, error) {
	return template.ParseFS(pageFiles, "templates/*.html")
}

// renderPage buffers the page so a failed render can still answer 500.
func (s *Server) renderPage(w http.ResponseWriter, r *http.Request, name string, status int, message string) {
	var buf bytes.Buffer
	data := pageData{
		AppName:   s.config.GetAppName(),
		RequestID: RequestIDFromContext(r.Context()),
		Message:   message,
	}
	if err := s.pages.ExecuteTemplate(&buf, name, data); err != nil {
		log.Ctx(r.Context()).Error().Err(err).Str("page", name).Msg("failed to render page")
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", contentTypeHTML)
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}

func (s *Server) renderSessionExpired(w http.ResponseWriter, r *http.Request) {
	s.renderPage(w, r, pageSessionExpired, http.StatusBadRequest, "")
}

// renderCallbackFailed answers a failed browser step with a page carrying the
// status and message the JSON surface would use.
func (s *Server) renderCallbackFailed(w http.ResponseWriter, r *http.Request, err error) {
	apiErr := classifyError(err)
	if apiErr.status >= http.StatusInternalServerError {
		log.Ctx(r.Context()).Error().Err(err).Msg("callback failed")
	}
	s.renderPage(w, r, pageCallbackFailed, apiErr.status, apiErr.message)
}
