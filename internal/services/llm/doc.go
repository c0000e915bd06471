// Package llm wraps the OpenRouter chat completion API used for script
// generation. The client issues single requests and classifies failures for
// the pipeline retry layer: HTTP 5xx, 429, and network timeouts surface as
// transient errors, while 4xx responses and malformed payloads surface as
// external tool errors that retrying cannot fix.
package llm
