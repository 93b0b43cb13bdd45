// Package title generates short conversation titles. At most one generation
// runs per conversation; a duplicate request gets a fallback title at once.
package title
