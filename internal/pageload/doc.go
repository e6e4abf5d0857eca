// Package pageload reads the control page the surface binds to.
//
// A page source is one of:
//
//   - a file path (relative or absolute, or a file:// URL)
//   - an http:// or https:// URL, fetched with GET
//   - an s3://bucket/key object, fetched with the AWS SDK
//
// The loaded page carries the parsed document and, for http(s) sources,
// the final URL after redirects, which the update endpoint is derived from.
package pageload
