// Package journalset fans out edit-log operations from a metadata server
// to a configurable collection of underlying journals, tracks per-journal
// health, and enforces quorum-style availability policies: the facade
// keeps serving writes as long as enough journals remain healthy, and
// surfaces a quorum-lost error before the metadata server would otherwise
// lose durability guarantees.
package journalset
