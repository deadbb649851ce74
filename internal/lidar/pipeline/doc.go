// Package pipeline turns a stream of raw sensor packets into frames.
//
// Each packet goes through decode, firing extraction, geometric conversion
// and frame batching. Extraction and batching carry state between packets
// and always run in packet order. Conversion is pure and may be spread over
// a worker pool with Run; the results are re-joined in packet order before
// they reach the batcher.
//
// Push, Finish and Frames form the single-goroutine pull path.
package pipeline
