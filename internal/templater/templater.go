// Package templater substitutes a fixed token vocabulary into user-supplied
// format strings. Substitution is literal string replacement: no escaping, no
// recursive expansion, no conditional logic. Unknown tokens are left verbatim.
package templater

import (
	"regexp"
	"strconv"
	"strings"

	"coverarr/internal/domain"
)

var templatePattern = regexp.MustCompile(`{(\w+?)}`)

type Templater struct {
	Book      *domain.Book
	Series    *domain.Series
	Provider  *domain.Provider
	Extension string
}

func New(book *domain.Book, series *domain.Series, provider *domain.Provider) *Templater {
	return &Templater{
		Book:     book,
		Series:   series,
		Provider: provider,
	}
}

func (t *Templater) ExecTemplate(template string) string {
	newString := template
	for _, match := range templatePattern.FindAllStringSubmatch(template, -1) {
		replace := match[0]

		if value, ok := t.resolve(match[1]); ok {
			replace = value
		}

		newString = strings.Replace(newString, match[0], replace, 1)
	}

	return newString
}

func (t *Templater) resolve(token string) (string, bool) {
	switch token {
	case "volumeName":
		return t.bookValue(func(b *domain.Book) string { return b.VolumeName }), true
	case "volumeNumber":
		return t.bookValue(func(b *domain.Book) string { return b.VolumeNumber }), true
	case "bookTitle":
		return t.bookValue(func(b *domain.Book) string { return b.Title }), true
	case "bookId":
		return t.bookValue(func(b *domain.Book) string { return b.ID }), true
	case "coverUrl":
		return t.bookValue(func(b *domain.Book) string { return b.CoverURL }), true
	case "pageName":
		if t.Book != nil && t.Book.Page != nil {
			return t.Book.Page.Type, true
		}
		return "", true
	case "pageNumber":
		if t.Book != nil && t.Book.Page != nil {
			return strconv.Itoa(t.Book.Page.Number), true
		}
		return "", true
	case "seriesTitle":
		return t.seriesValue(func(s *domain.Series) string { return s.Title }), true
	case "seriesThumbnail":
		return t.seriesValue(func(s *domain.Series) string { return s.ThumbnailURL }), true
	case "seriesId":
		return t.seriesValue(func(s *domain.Series) string { return s.ID }), true
	case "seriesType":
		// missing publication type renders as the digital fallback
		if value := t.seriesValue(func(s *domain.Series) string { return s.BookType }); value != "" {
			return value, true
		}
		return "digital", true
	case "providerName":
		return t.providerValue(func(p *domain.Provider) string { return p.Name }), true
	case "providerId":
		return t.providerValue(func(p *domain.Provider) string { return p.ID }), true
	case "localeName":
		return t.providerValue(func(p *domain.Provider) string { return p.LocaleName }), true
	case "localeCode":
		return t.providerValue(func(p *domain.Provider) string { return p.LocaleCode }), true
	case "score":
		if t.Book != nil && t.Book.Meta != nil {
			return strconv.Itoa(t.Book.Meta.Score), true
		}
		return "0", true
	case "width":
		if t.Book != nil && t.Book.Meta != nil {
			return strconv.Itoa(t.Book.Meta.Width), true
		}
		return "", true
	case "height":
		if t.Book != nil && t.Book.Meta != nil {
			return strconv.Itoa(t.Book.Meta.Height), true
		}
		return "", true
	case "cropped":
		if t.Book != nil && t.Book.Cropped() {
			return "cropped", true
		}
		return "", true
	case "extension":
		return t.Extension, true
	}

	return "", false
}

func (t *Templater) bookValue(get func(*domain.Book) string) string {
	if t.Book == nil {
		return ""
	}
	return get(t.Book)
}

func (t *Templater) seriesValue(get func(*domain.Series) string) string {
	if t.Series == nil {
		return ""
	}
	return get(t.Series)
}

func (t *Templater) providerValue(get func(*domain.Provider) string) string {
	if t.Provider == nil {
		return ""
	}
	return get(t.Provider)
}
