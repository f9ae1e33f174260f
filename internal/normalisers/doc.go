// Package normalisers holds the source-format readers that turn input
// files into page text for the ingest pipeline. PDF is the only format
// finlit ingests; see the pdf subpackage.
package normalisers
