// Package chat holds conversations and drives one exchange at a time:
// the user message is stored, the reply is streamed, and the conversation
// gets a title after its first exchange.
package chat
