// Package driving defines the use cases the CLI calls: ingesting PDFs,
// indexing chunk files, searching the knowledge base, answering questions
// and managing settings.
//
// Implementations live in internal/core/services.
package driving
