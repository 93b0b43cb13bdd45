// Package ollama is the recoverykit client for an Ollama inference server.
//
// It reports reachability for the connection recovery strategy, lists the
// installed models for the model manager, and runs chat completions for the
// streaming and title services. Calls that carry a request body go through a
// circuit breaker so a dead server fails fast instead of stacking timeouts.
package ollama
