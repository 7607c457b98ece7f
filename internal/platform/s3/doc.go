// Package s3 stores deploy artifacts in S3-compatible object storage.
//
// `hostctl package --push` uploads the zipped project here so every archive
// shipped to a host is kept outside the host itself. Buckets are created on
// first use.
package s3
