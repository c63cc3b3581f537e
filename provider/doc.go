// Package provider defines the contract shared by the AI completion backends
// (OpenAI and Google Gemini) and everything that is independent of a particular
// wire protocol: provider kinds and their static metadata, the prompt templates
// used for code analysis, and the uniform error taxonomy.
//
// Design decisions:
//   - One small interface: a backend only knows how to complete a Request and how
//     to stream one. Prompt construction and error mapping live outside of it.
//   - Streaming as a sequence: Stream returns an iter.Seq2 of text increments so
//     the consumer pulls chunks one at a time and an error aborts the sequence.
//   - Uniform errors: every failure leaving the gateway is a *Error that matches
//     exactly one of the sentinel errors with errors.Is.
//
// Key concepts:
//   - Kind: identifies a backend (KindOpenAI, KindGemini)
//   - Info: display metadata for a kind (name, model, icon)
//   - Request: instructions + prompt + generation limits
//   - Provider: the interface both backends implement
//
// Example usage:
//
//	req := provider.AnalysisRequest(code, "go")
//	for chunk, err := range backend.Stream(ctx, req) {
//	    if err != nil {
//	        return err
//	    }
//	    fmt.Print(chunk)
//	}
package provider
