// Package cryptoutil verifies site content bundles: SHA-256 digests compared
// in constant time, and detached bundle signatures checked against an AWS
// KMS asymmetric key.
package cryptoutil
