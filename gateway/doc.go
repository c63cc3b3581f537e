// Package gateway puts the OpenAI and Gemini backends behind one contract.
//
// A Gateway holds at most one active client. Initialize swaps it wholesale;
// every other call reads it under a lock and never mutates conversation state.
// Raw backend failures are mapped to the provider error taxonomy before they
// leave the package, so callers only ever test against provider.ErrNotReady,
// provider.ErrInvalidCredential, provider.ErrRateLimited,
// provider.ErrContentFiltered, provider.ErrTransport and
// provider.ErrUnknownProvider.
//
//	gw := gateway.New()
//	if !gw.Initialize(provider.Config{Kind: provider.KindGemini, Credential: key}) {
//	    return errors.New("gemini is not configured")
//	}
//	err := gw.StreamAnalyze(ctx, code, "go", func(chunk string) {
//	    fmt.Print(chunk)
//	})
package gateway
