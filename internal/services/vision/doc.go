// Package vision extracts screen text through an OpenAI-compatible
// multimodal chat-completions endpoint.
//
// Each call sends one PNG as a base64 data URL together with the configured
// prompt and returns the assistant message content. Transport and API errors
// are classified with the services markers so the frame processor can decide
// whether to retry.
package vision
