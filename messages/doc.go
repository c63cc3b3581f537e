// Package messages defines the entries of a code analysis conversation.
//
// A conversation is an ordered list of Message values. Users submit code, the
// assistant answers with explanations or insights, and the system reports
// configuration outcomes and failures:
//
//	user:      Code(id, "print(1)", "python", now)
//	assistant: Explanation(id, "This prints 1.", provider.KindOpenAI, now)
//	system:    System(id, messages.TypeError, "❌ **Error**: ...", now)
//
// Streamed answers start as a Placeholder with Streaming set; chunks are added
// with Append and Complete ends the stream. Messages serialize to JSON with
// strfmt timestamps so they round-trip through the conversation snapshot.
package messages
