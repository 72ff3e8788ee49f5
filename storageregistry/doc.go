// Package storageregistry implements the storage-directory health registry
// the journal set notifies on every journal failure: it tracks per-directory
// error counts, classifies directories as local or shared/remote storage,
// and maintains a rolling distribution of fsync latencies for diagnostics.
package storageregistry
