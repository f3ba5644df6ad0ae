// Package content holds the site snapshot: the built front end plus the
// blog/*.md sources the blog store is loaded from.
//
// A snapshot comes from one of three places:
//   - the seed compiled into the binary
//   - a local directory
//   - a tar.gz bundle in S3, named by the SHA-256 published in an SSM
//     parameter and optionally signed with a KMS key
//
// Bundles are checked against the published digest and extracted in memory
// with limits on archive size, per-file size, total size and file count.
// Entries that are not regular files or that would escape the root are
// rejected.
package content
