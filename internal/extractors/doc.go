// Package extractors provides implementations of the Extractor interface
// for the document formats accepted on upload. Each extractor knows how to
// turn the bytes of a specific media type into plain text.
//
// Extractors are registered with the Registry at startup.
package extractors
