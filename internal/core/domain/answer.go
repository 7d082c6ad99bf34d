package domain

// NoRelevantInformationAnswer is returned when retrieval finds no context.
// The generator is not consulted in that case.
const NoRelevantInformationAnswer = "I couldn't find any relevant information in the documents."

// QueryOptions configures a single question.
type QueryOptions struct {
	// TopK overrides the configured number of chunks to retrieve. Zero uses the default.
	TopK int
}

// Answer is the result of a question.
type Answer struct {
	// Text is the generated answer.
	Text string

	// Context holds the retrieved chunk texts in descending similarity order.
	Context []string

	// Sources holds the source filename of each context chunk, index-aligned with Context.
	Sources []string

	// Grounded is false when no context was found and Text is the canned answer.
	Grounded bool
}

// SkippedDocument records a document dropped from an ingestion batch.
type SkippedDocument struct {
	// Filename is the uploaded name of the document.
	Filename string

	// Reason is a human-readable explanation.
	Reason string
}

// IngestReport summarises an ingestion call.
type IngestReport struct {
	// BatchID identifies the ingestion call.
	BatchID string

	// DocumentsIndexed counts documents that contributed at least one chunk.
	DocumentsIndexed int

	// ChunksIndexed counts records written to the vector store.
	ChunksIndexed int

	// Skipped lists documents that were not indexed.
	Skipped []SkippedDocument
}

// DocumentsSkipped returns the number of skipped documents.
func (r *IngestReport) DocumentsSkipped() int {
	return len(r.Skipped)
}
