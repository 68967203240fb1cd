// Package file stores opaque blobs under string keys.
//
// S3Storage targets Amazon S3 and compatible services (MinIO, R2) through
// aws-sdk-go-v2. LocalStorage writes below a base directory and is used in
// development and tests. Both reject keys that escape their root.
package file
