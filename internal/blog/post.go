package blog

import (
	"time"
)

const (
	DefaultTitle = "Untitled"

	// excerptRunes is how much body a missing excerpt is cut from
	excerptRunes = 150
)

// PostSummary is a post without its body, used for listings.
type PostSummary struct {
	ID          string   `json:"slug"`
	Title       string   `json:"title"`
	Date        string   `json:"date"`
	Tags        []string `json:"tags"`
	Excerpt     string   `json:"excerpt"`
	ReadingTime string   `json:"readingTime"`
}

// Post is a fully loaded post.
type Post struct {
	PostSummary
	Body string `json:"content"`

	published time.Time
}

// Summary drops the body.
func (p Post) Summary() PostSummary {
	s := p.PostSummary
	s.Tags = append([]string{}, p.Tags...)
	return s
}

// Published is the parsed date used for ordering; the Unix epoch when the
// header date does not parse.
func (p Post) Published() time.Time { return p.published }

// newPost applies field defaults to a parsed document.
func newPost(id string, doc Document, now time.Time) Post {
	title, ok := doc.Meta.String("title")
	if !ok || title == "" {
		title = DefaultTitle
	}

	date, ok := doc.Meta.String("date")
	if !ok || date == "" {
		date = now.UTC().Format(time.DateOnly)
	}

	tags, ok := doc.Meta.List("tags")
	if !ok {
		tags = []string{}
	}

	excerpt, ok := doc.Meta.String("excerpt")
	if !ok || excerpt == "" {
		excerpt = defaultExcerpt(doc.Body)
	}

	published, ok := ParseDate(date)
	if !ok {
		published = time.Unix(0, 0).UTC()
	}

	return Post{
		PostSummary: PostSummary{
			ID:          id,
			Title:       title,
			Date:        date,
			Tags:        tags,
			Excerpt:     excerpt,
			ReadingTime: ReadingTime(doc.Body),
		},
		Body:      doc.Body,
		published: published,
	}
}

// defaultExcerpt is the first excerptRunes characters of body plus "...".
// The ellipsis is added even when the body is shorter.
func defaultExcerpt(body string) string {
	r := []rune(body)
	if len(r) > excerptRunes {
		r = r[:excerptRunes]
	}
	return string(r) + "..."
}
