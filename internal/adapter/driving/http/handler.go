// Package httphandler is the HTTP driving adapter: it maps catalog views
// onto OPDS feed routes and serves page images, behind HTTP basic auth.
package httphandler

import (
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/comicserve/comicserve/internal/adapter/driving/opds"
	"github.com/comicserve/comicserve/internal/application"
	"github.com/comicserve/comicserve/internal/domain/model"
	"github.com/comicserve/comicserve/internal/domain/port/driven"
)

// Handler serves the OPDS catalog routes.
type Handler struct {
	issues  driven.IssueStore
	library *application.LibraryService
	feeds   *opds.Builder
	logger  *slog.Logger
}

// NewHandler creates a Handler with all required dependencies.
func NewHandler(
	issues driven.IssueStore,
	library *application.LibraryService,
	feeds *opds.Builder,
	logger *slog.Logger,
) *Handler {
	return &Handler{
		issues:  issues,
		library: library,
		feeds:   feeds,
		logger:  logger,
	}
}

// NewServeMux creates an http.Handler with all routes registered and
// wrapped with basic auth, logging, and recovery middleware. Every route
// is authenticated: catalog views are per-user (unread state), and the
// page path needs the user for its auto-mark-read side effect.
func NewServeMux(h *Handler, users driven.UserStore, logger *slog.Logger) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /{$}", h.Root)
	mux.HandleFunc("GET /all", h.All)
	mux.HandleFunc("GET /recent", h.Recent)
	mux.HandleFunc("GET /unread", h.Unread)
	mux.HandleFunc("GET /series", h.UnreadBySeries)
	mux.HandleFunc("GET /series/{series}", h.UnreadForSeries)
	mux.HandleFunc("GET /publishers", h.Publishers)
	mux.HandleFunc("GET /publishers/{publisher}", h.PublisherSeries)
	mux.HandleFunc("GET /publishers/{publisher}/{series}", h.PublisherSeriesIssues)
	mux.HandleFunc("GET /search", h.Search)
	mux.HandleFunc("GET /book/{id}/page/{page}", h.Page)
	mux.HandleFunc("POST /book/{id}/read", h.MarkRead)

	// Recovery innermost so panics are caught before logging; auth
	// outermost so unauthenticated requests never reach a handler.
	wrapped := recoveryMiddleware(logger, mux)
	wrapped = loggingMiddleware(logger, wrapped)
	wrapped = basicAuthMiddleware(users, logger, wrapped)

	return wrapped
}

// Root serves the navigation feed.
func (h *Handler) Root(w http.ResponseWriter, r *http.Request) {
	h.writeFeed(w, h.feeds.Navigation())
}

// All serves every issue as a flat acquisition feed.
func (h *Handler) All(w http.ResponseWriter, r *http.Request) {
	issues, err := h.issues.All(r.Context())
	if err != nil {
		h.serverError(w, "list all issues", err)
		return
	}
	h.writeFeed(w, h.feeds.IssueFeed("All comics", "/all", issues))
}

// Recent serves all issues sorted by modification time, newest first.
func (h *Handler) Recent(w http.ResponseWriter, r *http.Request) {
	issues, err := h.issues.Recent(r.Context())
	if err != nil {
		h.serverError(w, "list recent issues", err)
		return
	}
	h.writeFeed(w, h.feeds.IssueFeed("Recent comics", "/recent", issues))
}

// Unread serves the authenticated user's unread issues.
func (h *Handler) Unread(w http.ResponseWriter, r *http.Request) {
	issues, err := h.issues.Unread(r.Context(), userID(r))
	if err != nil {
		h.serverError(w, "list unread issues", err)
		return
	}
	h.writeFeed(w, h.feeds.IssueFeed("Unread comics", "/unread", issues))
}

// UnreadBySeries serves the user's unread issues grouped by series.
func (h *Handler) UnreadBySeries(w http.ResponseWriter, r *http.Request) {
	groups, err := h.issues.UnreadGroupedBySeries(r.Context(), userID(r))
	if err != nil {
		h.serverError(w, "group unread by series", err)
		return
	}
	feed := h.feeds.GroupFeed("Unread by series", "/series", groups, func(key string) string {
		return "/series/" + url.PathEscape(key)
	})
	h.writeFeed(w, feed)
}

// UnreadForSeries serves the user's unread issues within one series.
func (h *Handler) UnreadForSeries(w http.ResponseWriter, r *http.Request) {
	series := r.PathValue("series")

	issues, err := h.issues.Unread(r.Context(), userID(r))
	if err != nil {
		h.serverError(w, "list unread issues", err)
		return
	}

	var matched []model.Issue
	for _, issue := range issues {
		if seriesKey(issue) == series {
			matched = append(matched, issue)
		}
	}
	h.writeFeed(w, h.feeds.IssueFeed(series, "/series/"+url.PathEscape(series), matched))
}

// Publishers serves all issues grouped by publisher.
func (h *Handler) Publishers(w http.ResponseWriter, r *http.Request) {
	groups, err := h.issues.ByPublisher(r.Context())
	if err != nil {
		h.serverError(w, "group by publisher", err)
		return
	}
	feed := h.feeds.GroupFeed("Publishers", "/publishers", groups, func(key string) string {
		return "/publishers/" + url.PathEscape(key)
	})
	h.writeFeed(w, feed)
}

// PublisherSeries serves one publisher's series list.
func (h *Handler) PublisherSeries(w http.ResponseWriter, r *http.Request) {
	publisher := r.PathValue("publisher")

	groups, err := h.issues.SeriesForPublisher(r.Context(), publisher)
	if err != nil {
		h.serverError(w, "list series for publisher", err)
		return
	}
	self := "/publishers/" + url.PathEscape(publisher)
	feed := h.feeds.GroupFeed(publisher, self, groups, func(key string) string {
		return self + "/" + url.PathEscape(key)
	})
	h.writeFeed(w, feed)
}

// PublisherSeriesIssues serves the issues of one publisher's series.
func (h *Handler) PublisherSeriesIssues(w http.ResponseWriter, r *http.Request) {
	publisher := r.PathValue("publisher")
	series := r.PathValue("series")

	issues, err := h.issues.IssuesForPublisherSeries(r.Context(), publisher, series)
	if err != nil {
		h.serverError(w, "list issues for publisher series", err)
		return
	}
	self := "/publishers/" + url.PathEscape(publisher) + "/" + url.PathEscape(series)
	h.writeFeed(w, h.feeds.IssueFeed(series, self, issues))
}

// Search serves a full-text search over issue metadata. The query comes
// from the q parameter.
func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("q")
	if query == "" {
		http.Error(w, "missing query parameter q", http.StatusBadRequest)
		return
	}

	issues, err := h.issues.Search(r.Context(), query)
	if err != nil {
		h.serverError(w, "search issues", err)
		return
	}
	h.writeFeed(w, h.feeds.IssueFeed("Search: "+query, "/search?q="+url.QueryEscape(query), issues))
}

// Page serves one page image of an issue. Requesting a page within the
// last two of the book marks it read for the authenticated user.
func (h *Handler) Page(w http.ResponseWriter, r *http.Request) {
	issueID, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		http.Error(w, "invalid issue id", http.StatusBadRequest)
		return
	}
	page, err := strconv.Atoi(r.PathValue("page"))
	if err != nil {
		http.Error(w, "invalid page number", http.StatusBadRequest)
		return
	}

	name, data, err := h.library.GetPage(r.Context(), issueID, page, userID(r))
	if errors.Is(err, application.ErrNoSuchPage) {
		http.Error(w, "no such page", http.StatusNotFound)
		return
	}
	if err != nil {
		h.serverError(w, "read page", err)
		return
	}

	w.Header().Set("Content-Type", pageContentType(name))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

// MarkRead explicitly marks an issue read for the authenticated user.
func (h *Handler) MarkRead(w http.ResponseWriter, r *http.Request) {
	issueID, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		http.Error(w, "invalid issue id", http.StatusBadRequest)
		return
	}

	if err := h.library.MarkRead(r.Context(), issueID, userID(r)); err != nil {
		h.serverError(w, "mark read", err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) writeFeed(w http.ResponseWriter, feed opds.Feed) {
	body, err := h.feeds.Render(feed)
	if err != nil {
		h.serverError(w, "render feed", err)
		return
	}

	w.Header().Set("Content-Type", opds.FeedContentType)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(body)
}

func (h *Handler) serverError(w http.ResponseWriter, action string, err error) {
	h.logger.Error("request failed", "action", action, "error", err)
	http.Error(w, "internal server error", http.StatusInternalServerError)
}

// seriesKey mirrors the grouping queries' key: the series name, or "None"
// when the metadata never set one.
func seriesKey(issue model.Issue) string {
	if issue.Series == nil {
		return model.NoGroup
	}
	return *issue.Series
}

func pageContentType(name string) string {
	switch {
	case strings.HasSuffix(strings.ToLower(name), ".png"):
		return "image/png"
	case strings.HasSuffix(strings.ToLower(name), ".gif"):
		return "image/gif"
	default:
		return "image/jpeg"
	}
}
