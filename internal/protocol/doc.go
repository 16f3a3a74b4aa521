// Package protocol holds the line-oriented wire format of the chat relay:
// splitting a byte stream into logical messages, classifying client input and
// formatting server lines. It has no knowledge of sessions or rooms.
package protocol
