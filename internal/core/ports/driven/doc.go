// Package driven defines the interfaces that core calls OUT to infrastructure.
//
// These are the "driven" or "secondary" ports in hexagonal architecture.
// Core services depend on these interfaces, and infrastructure adapters
// implement them.
//
// # Required Interfaces
//
//   - Extractor: Recovers page text from a PDF
//   - PDFSource: Lists and stats input PDFs
//   - PostProcessor, PostProcessorPipeline: Cleaning and chunking
//   - ChunkWriter, ChunkReader: Line-delimited JSON chunk files
//   - VectorStore: Deduplicated record storage and similarity search
//   - EmbeddingService: Generates vector embeddings
//   - ConfigStore: Application configuration
//   - PromptStore: User-editable prompt templates with embedded defaults
//
// # Optional Interfaces
//
// These can be nil - the application degrades gracefully:
//
//   - Generator: Text generation. Without it, only greetings are answered.
//   - IngestLedger: Remembers ingested PDFs so unchanged files are skipped.
//   - AIConfigValidator: Pings providers when settings are checked.
//
// # Import Rules
//
//   - Can Import: domain package only
//   - Cannot Import: Any adapter, connector, or normaliser package
package driven
