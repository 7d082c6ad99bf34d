// Package driven defines the interfaces that core calls OUT to infrastructure.
//
// These are the "driven" or "secondary" ports in hexagonal architecture.
// Core services depend on these interfaces, and infrastructure adapters
// implement them.
//
// # Required Interfaces
//
// These must be provided for the application to function:
//
//   - Extractor: Turns uploaded bytes into text
//   - EmbeddingService: Generates vector embeddings (OpenAI, Ollama)
//   - VectorStore: Collection management, upsert and k-NN query
//     (memory, SQLite, Qdrant, pgvector)
//   - GenerationService: Produces answers from prompts (OpenAI, Ollama, Anthropic)
//
// # Optional Interfaces
//
// These can be nil - the application falls back to embedded defaults:
//
//   - PromptStore: User-customisable prompt templates
//   - ConfigStore: Persistent configuration file
//
// # Thread Safety
//
// Adapters are constructed once at startup and shared by concurrent
// requests. Every implementation must be safe for concurrent use.
//
// # Import Rules
//
//   - Can Import: domain package only
//   - Cannot Import: Any adapter, extractor, or driving package
package driven
