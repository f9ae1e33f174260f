// Package connectors provides the input sources the ingest pipeline reads
// from. The filesystem connector lists the PDFs in a directory and
// reports settled changes to them for watch mode.
package connectors
