// Package contact handles the contact form: it validates a submission and
// relays it to the configured third-party form endpoint.
//
// The site keeps nothing; a submission either reaches the relay or the visitor
// gets an error back.
package contact
