// Package blog turns the site's markdown posts into an in-memory, read-only
// post collection.
//
// Each post is a text document with an optional header block:
//
//	---
//	title: "Shipping Go services"
//	date: 2025-03-01
//	tags: ["go", "ops"]
//	excerpt: Short summary for cards.
//	---
//	Markdown body...
//
// [ParseDocument] splits and parses a single document. [Load] builds a [Store]
// from an identifier-to-text map (see [Discover]) once at startup; the Store
// is never mutated afterwards, so its query methods are safe for concurrent use.
package blog
