// Package repl is the terminal front end of codelens.
//
// A session subscribes a console to the conversation topic and prints every
// message, streamed chunk and connection status as it is published, while the
// prompt loop reads code and slash commands from the input. Code is sent with
// an empty line; its language is detected unless one is forced with /lang.
package repl
