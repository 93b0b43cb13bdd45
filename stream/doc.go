// Package stream runs streamed chat responses and keeps track of the ones
// in flight so they can be cancelled and reset as a group.
//
// Every reset starts a new generation. A stream started in an earlier
// generation stops delivering chunks and leaves no state behind.
package stream
