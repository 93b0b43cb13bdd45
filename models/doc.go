// Package models keeps the list of models installed on the inference backend.
package models
