// Package gemini implements provider.Provider for Google's Gemini models using
// the Generative Language REST API (generateContent and streamGenerateContent
// with server-sent events).
//
// Instructions are folded into the single user prompt; token limits and
// temperature travel in generationConfig. Every request carries the configured
// safety settings, DefaultSafetySettings unless replaced with WithSafetySettings.
//
// Failures are reported as:
//   - *APIError for non-2xx answers, with the canonical status and ErrorInfo reason
//   - *BlockedError (matching ErrBlocked) when the prompt or the answer was blocked
//   - wrapped net/http and context errors for transport failures
package gemini
