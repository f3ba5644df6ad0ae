package blog

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/tridenttech/trident-web/internal/log"
	"github.com/tridenttech/trident-web/internal/xerrors"
)

// ParseFunc parses one raw document.
type ParseFunc func(raw string) (Document, error)

// TagMode controls how Store.Tags deduplicates.
type TagMode int

const (
	// TagsFoldCase treats tags differing only in case as one category, listed
	// under the first spelling seen in date order. This matches ByTag.
	TagsFoldCase TagMode = iota
	// TagsExact keeps every distinct spelling.
	TagsExact
)

type LoadOptions struct {
	Logger log.Logger

	// Now supplies the date for posts without one. Defaults to time.Now.
	Now func() time.Time

	// Parse defaults to ParseDocument.
	Parse ParseFunc

	TagMode TagMode

	// OnSkip is called for each document dropped from the collection.
	OnSkip func(id string, err error)
}

// Store is the loaded post collection. It is built once by Load and never
// changes afterwards.
type Store struct {
	posts []Post // date descending
	index map[string]int
	tags  []string
}

// Load parses every document in docs (identifier -> raw text) and returns
// the resulting Store. A document that fails to parse is logged and left
// out; it never stops the others from loading.
func Load(ctx context.Context, docs map[string]string, opts LoadOptions) *Store {
	if opts.Logger == nil {
		opts.Logger = log.Nop()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Parse == nil {
		opts.Parse = ParseDocument
	}

	ids := make([]string, 0, len(docs))
	for id := range docs {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	now := opts.Now()
	posts := make([]Post, 0, len(ids))
	for _, id := range ids {
		p, err := buildPost(id, docs[id], opts.Parse, now)
		if err != nil {
			opts.Logger.Error(ctx, err, "skipping blog document", "slug", id)
			if opts.OnSkip != nil {
				opts.OnSkip(id, err)
			}
			continue
		}
		posts = append(posts, p)
	}

	// ids are pre-sorted, so a stable sort leaves equal dates in slug order
	sort.SliceStable(posts, func(i, j int) bool {
		return posts[i].published.After(posts[j].published)
	})

	s := &Store{
		posts: posts,
		index: make(map[string]int, len(posts)),
		tags:  collectTags(posts, opts.TagMode),
	}
	for i, p := range posts {
		s.index[p.ID] = i
	}

	opts.Logger.Info(ctx, "loaded blog posts",
		"posts", len(posts),
		"skipped", len(ids)-len(posts),
		"tags", len(s.tags),
	)
	return s
}

// buildPost is the per-document failure boundary: errors and panics from
// parse both come back as an error.
func buildPost(id, raw string, parse ParseFunc, now time.Time) (p Post, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = xerrors.Newf("parse %s: panic: %v", id, r)
		}
	}()

	doc, err := parse(raw)
	if err != nil {
		return Post{}, xerrors.Wrapf(err, "parse %s", id)
	}
	if doc.Meta == nil {
		return Post{}, xerrors.Newf("parse %s: parser returned no metadata", id)
	}
	return newPost(id, doc, now), nil
}

func collectTags(posts []Post, mode TagMode) []string {
	seen := map[string]bool{}
	tags := []string{}
	for _, p := range posts {
		for _, t := range p.Tags {
			key := t
			if mode == TagsFoldCase {
				key = strings.ToLower(t)
			}
			if seen[key] {
				continue
			}
			seen[key] = true
			tags = append(tags, t)
		}
	}
	sort.Strings(tags)
	return tags
}

// Len is the number of loaded posts.
func (s *Store) Len() int { return len(s.posts) }

// All returns every post summary, newest first.
func (s *Store) All() []PostSummary {
	out := make([]PostSummary, len(s.posts))
	for i, p := range s.posts {
		out[i] = p.Summary()
	}
	return out
}

// Get looks a post up by identifier.
func (s *Store) Get(id string) (Post, bool) {
	i, ok := s.index[id]
	if !ok {
		return Post{}, false
	}
	p := s.posts[i]
	p.Tags = append([]string{}, p.Tags...)
	return p, true
}

// Has reports whether a post with the identifier was loaded.
func (s *Store) Has(id string) bool {
	_, ok := s.index[id]
	return ok
}

// ByTag returns summaries of posts carrying tag, compared case-insensitively,
// newest first. No match is an empty slice.
func (s *Store) ByTag(tag string) []PostSummary {
	want := strings.ToLower(tag)
	out := []PostSummary{}
	for _, p := range s.posts {
		for _, t := range p.Tags {
			if strings.ToLower(t) == want {
				out = append(out, p.Summary())
				break
			}
		}
	}
	return out
}

// Tags lists every category across all posts, deduplicated per the
// TagMode given to Load and sorted ascending by byte value.
func (s *Store) Tags() []string {
	return append([]string{}, s.tags...)
}
