// Package gcsstore implements objectstore.Store on Google Cloud Storage.
package gcsstore
