// Package comicinfo parses the ComicInfo.xml metadata document embedded in
// comic archives into a structured record. The format is a flat element
// tree; only the leaf elements the catalog cares about are extracted, and
// anything unrecognized is ignored.
package comicinfo

import (
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strconv"
	"time"
)

// EntryName is the exact in-archive name of the metadata document.
const EntryName = "ComicInfo.xml"

// Info is the subset of issue metadata a ComicInfo document can populate.
// Nil fields were absent from the document (or failed a best-effort
// numeric parse).
type Info struct {
	Title       *string
	Series      *string
	Number      *int
	Volume      *int
	Summary     *string
	Web         *string
	ReleasedAt  *time.Time
	Writer      *string
	Penciller   *string
	Inker       *string
	Colorist    *string
	CoverArtist *string
	Publisher   *string
	PageCount   *int
}

// Parse reads a ComicInfo document in a single pass: character data is
// buffered and dispatched by the closing tag's local name, so a repeated
// element simply overwrites the earlier value. Malformed markup fails the
// whole parse; a malformed numeric value only leaves that field unset.
func Parse(doc []byte) (*Info, error) {
	dec := xml.NewDecoder(bytes.NewReader(doc))

	var info Info
	var current string
	var year, month, day *int

	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("parse comic info: %w", err)
		}

		switch t := tok.(type) {
		case xml.CharData:
			current = string(t)
		case xml.EndElement:
			switch t.Name.Local {
			case "Title":
				info.Title = strptr(current)
			case "Series":
				info.Series = strptr(current)
			case "Number":
				info.Number = intptr(current)
			case "Volume":
				info.Volume = intptr(current)
			case "Summary":
				info.Summary = strptr(current)
			case "Web":
				info.Web = strptr(current)
			case "Year":
				year = intptr(current)
			case "Month":
				month = intptr(current)
			case "Day":
				day = intptr(current)
			case "Writer":
				info.Writer = strptr(current)
			case "Penciller":
				info.Penciller = strptr(current)
			case "Inker":
				info.Inker = strptr(current)
			case "Colorist":
				info.Colorist = strptr(current)
			case "CoverArtist":
				info.CoverArtist = strptr(current)
			case "Publisher":
				info.Publisher = strptr(current)
			case "PageCount":
				info.PageCount = intptr(current)
			}
		}
	}

	info.ReleasedAt = releaseDate(year, month, day)
	return &info, nil
}

// releaseDate assembles a date from the Year/Month/Day elements. Year is
// required; month and day default to 1. A combination that does not name a
// real calendar day (day 31 of a short month) yields no date at all.
func releaseDate(year, month, day *int) *time.Time {
	if year == nil {
		return nil
	}
	m, d := 1, 1
	if month != nil {
		m = *month
	}
	if day != nil {
		d = *day
	}

	t := time.Date(*year, time.Month(m), d, 0, 0, 0, 0, time.UTC)
	// time.Date normalizes out-of-range components instead of failing;
	// a changed component means the input named no real day.
	if t.Year() != *year || t.Month() != time.Month(m) || t.Day() != d {
		return nil
	}
	return &t
}

func strptr(s string) *string {
	return &s
}

func intptr(s string) *int {
	n, err := strconv.Atoi(s)
	if err != nil {
		return nil
	}
	return &n
}
