// Package s3store implements objectstore.Store on Amazon S3 and
// S3-compatible services.
package s3store
