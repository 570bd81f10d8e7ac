// Package opds renders catalog views as OPDS 1.2 Atom feeds. This is the
// boundary layer's document format; it holds no catalog logic beyond
// turning issues and groups into entries.
package opds

import (
	"encoding/xml"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/microcosm-cc/bluemonday"

	"github.com/comicserve/comicserve/internal/domain/model"
)

// Link relations used by the catalog feeds.
const (
	RelSelf        = "self"
	RelStart       = "start"
	RelSubsection  = "subsection"
	RelSortNew     = "http://opds-spec.org/sort/new"
	RelAcquisition = "http://opds-spec.org/acquisition"
	RelImage       = "http://opds-spec.org/image"
)

// Atom media types for feed links.
const (
	TypeNavigation  = "application/atom+xml; profile=opds-catalog; kind=navigation"
	TypeAcquisition = "application/atom+xml; profile=opds-catalog; kind=acquisition"
	TypeJPEG        = "image/jpeg"
)

// FeedContentType is the Content-Type for rendered feed documents.
const FeedContentType = "application/atom+xml; charset=utf-8"

// Feed is an Atom feed document.
type Feed struct {
	XMLName   xml.Name `xml:"feed"`
	Xmlns     string   `xml:"xmlns,attr"`
	XmlnsOpds string   `xml:"xmlns:opds,attr"`
	ID        string   `xml:"id"`
	Title     string   `xml:"title"`
	Updated   string   `xml:"updated"`
	Links     []Link   `xml:"link"`
	Entries   []Entry  `xml:"entry"`
}

// Link is an Atom link element.
type Link struct {
	Type string `xml:"type,attr"`
	Rel  string `xml:"rel,attr"`
	Href string `xml:"href,attr"`
}

// Entry is one Atom feed entry.
type Entry struct {
	Title   string   `xml:"title"`
	ID      string   `xml:"id"`
	Updated string   `xml:"updated"`
	Content *Content `xml:"content,omitempty"`
	Authors []Author `xml:"author,omitempty"`
	Links   []Link   `xml:"link"`
}

// Content is an entry's content element.
type Content struct {
	Type string `xml:"type,attr"`
	Text string `xml:",chardata"`
}

// Author is an entry author.
type Author struct {
	Name string `xml:"name"`
}

// Builder assembles catalog feeds. Feed-level ids are stable tag URIs
// under the configured authority; entry ids are fresh urn:uuid values,
// matching what OPDS readers expect for dynamic catalogs.
type Builder struct {
	authority string
	sanitizer *bluemonday.Policy
}

// NewBuilder creates a feed Builder for the given tag authority.
func NewBuilder(authority string) *Builder {
	return &Builder{
		authority: authority,
		// Issue summaries come out of archive metadata written by
		// arbitrary tools; strip all markup before echoing them back.
		sanitizer: bluemonday.StrictPolicy(),
	}
}

// Navigation builds the root navigation feed linking every catalog view.
func (b *Builder) Navigation() Feed {
	now := timestamp(time.Now())

	sections := []struct {
		title   string
		content string
		href    string
		rel     string
	}{
		{"All comics", "All comics as a flat list", "/all", RelSubsection},
		{"Recent comics", "All comics sorted by recency", "/recent", RelSortNew},
		{"Unread comics", "Unread comics sorted by recency", "/unread", RelSortNew},
		{"Unread by series", "Unread comics grouped by series", "/series", RelSubsection},
		{"Publishers", "Comics by publisher and series", "/publishers", RelSubsection},
	}

	entries := make([]Entry, 0, len(sections))
	for _, s := range sections {
		entries = append(entries, Entry{
			Title:   s.title,
			ID:      b.tagID(s.href),
			Updated: now,
			Content: &Content{Type: "text", Text: s.content},
			Links:   []Link{{Type: TypeAcquisition, Rel: s.rel, Href: s.href}},
		})
	}

	return Feed{
		Xmlns:     "http://www.w3.org/2005/Atom",
		XmlnsOpds: "http://opds-spec.org/2010/catalog",
		ID:        b.tagID("/"),
		Title:     "comicserve",
		Updated:   now,
		Links: []Link{
			{Type: TypeNavigation, Rel: RelSelf, Href: "/"},
			{Type: TypeNavigation, Rel: RelStart, Href: "/"},
		},
		Entries: entries,
	}
}

// IssueFeed builds an acquisition feed over a list of issues.
func (b *Builder) IssueFeed(title, self string, issues []model.Issue) Feed {
	entries := make([]Entry, 0, len(issues))
	for _, issue := range issues {
		entries = append(entries, b.issueEntry(issue))
	}

	return Feed{
		Xmlns:     "http://www.w3.org/2005/Atom",
		XmlnsOpds: "http://opds-spec.org/2010/catalog",
		ID:        b.tagID(self),
		Title:     title,
		Updated:   timestamp(time.Now()),
		Links: []Link{
			{Type: TypeAcquisition, Rel: RelSelf, Href: self},
			{Type: TypeNavigation, Rel: RelStart, Href: "/"},
		},
		Entries: entries,
	}
}

// GroupFeed builds a navigation feed over grouping-query results, linking
// each group to hrefFor(key).
func (b *Builder) GroupFeed(title, self string, groups []model.Group, hrefFor func(key string) string) Feed {
	entries := make([]Entry, 0, len(groups))
	for _, g := range groups {
		href := hrefFor(g.Key)
		entries = append(entries, Entry{
			Title:   g.Key,
			ID:      b.tagID(href),
			Updated: timestamp(g.UpdatedAt),
			Links:   []Link{{Type: TypeAcquisition, Rel: RelSubsection, Href: href}},
		})
	}

	return Feed{
		Xmlns:     "http://www.w3.org/2005/Atom",
		XmlnsOpds: "http://opds-spec.org/2010/catalog",
		ID:        b.tagID(self),
		Title:     title,
		Updated:   timestamp(time.Now()),
		Links: []Link{
			{Type: TypeNavigation, Rel: RelSelf, Href: self},
			{Type: TypeNavigation, Rel: RelStart, Href: "/"},
		},
		Entries: entries,
	}
}

// Render serializes a feed with the XML declaration prepended.
func (b *Builder) Render(f Feed) ([]byte, error) {
	body, err := xml.MarshalIndent(f, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal feed: %w", err)
	}
	return append([]byte(xml.Header), body...), nil
}

func (b *Builder) issueEntry(issue model.Issue) Entry {
	entry := Entry{
		Title:   issue.DisplayTitle(),
		ID:      "urn:uuid:" + uuid.NewString(),
		Updated: timestamp(issue.ModifiedAt),
		Links: []Link{
			{Type: TypeJPEG, Rel: RelAcquisition, Href: pageHref(issue.ID, 0)},
			{Type: TypeJPEG, Rel: RelImage, Href: pageHref(issue.ID, 0)},
		},
	}

	if issue.Summary != nil {
		entry.Content = &Content{Type: "html", Text: b.sanitizer.Sanitize(*issue.Summary)}
	}
	if issue.Writer != nil {
		entry.Authors = append(entry.Authors, Author{Name: *issue.Writer})
	}
	if issue.Penciller != nil {
		entry.Authors = append(entry.Authors, Author{Name: *issue.Penciller})
	}

	return entry
}

// tagID forms a stable tag URI for a catalog location.
func (b *Builder) tagID(href string) string {
	return "tag:" + b.authority + ":" + href
}

func pageHref(issueID int64, page int) string {
	return "/book/" + strconv.FormatInt(issueID, 10) + "/page/" + strconv.Itoa(page)
}

func timestamp(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}
