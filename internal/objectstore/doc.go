// Package objectstore defines the read-only object storage port used by the
// configuration repository. Concrete backends live in subpackages (s3store,
// gcsstore, filestore); MemoryStore is an in-process bucket.
package objectstore
