// Package scribe provides clients for the two AI endpoints the charting
// pipeline depends on: speech-to-text for captured audio segments and
// conversation summarization.
//
// The [Client] talks to a halo transcription backend over HTTP. Summaries
// can alternatively be produced directly against the OpenAI API via
// [OpenAISummarizer]. Neither client retries; retry policy belongs to the
// caller (the capture session treats each segment independently).
package scribe

import "context"

// Transcriber converts one captured audio segment into text.
type Transcriber interface {
	// Transcribe submits the raw audio payload and returns the recognized
	// text verbatim. An empty string is a successful "no speech detected"
	// result, not an error.
	Transcribe(ctx context.Context, audio []byte) (string, error)
}

// Summarizer produces a clinical summary from a full conversation
// transcript (entry texts, newline-joined in timestamp order).
type Summarizer interface {
	Summarize(ctx context.Context, conversation string) (string, error)
}
