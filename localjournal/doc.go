// Package localjournal implements core.FileBackedJournal on top of a plain
// storage directory: edit log records are appended to a segment file that is
// in-progress while a transaction range is open, and renamed to a finalized,
// range-named file once that range is closed off.
package localjournal
