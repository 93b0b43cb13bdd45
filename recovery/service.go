package recovery

import "strings"

// Service is the closed set of logical services a strategy can be built for.
type Service int

const (
	ServiceUnknown Service = iota
	ServiceConnection
	ServiceModel
	ServiceStreaming
	ServiceFileProcessing
	ServiceState
	ServiceTitleGeneration
)

var serviceAliases = map[string]Service{
	"ollama":           ServiceConnection,
	"connection":       ServiceConnection,
	"model":            ServiceModel,
	"modelmanager":     ServiceModel,
	"streaming":        ServiceStreaming,
	"messagestreaming": ServiceStreaming,
	"fileprocessing":   ServiceFileProcessing,
	"state":            ServiceState,
	"chatstate":        ServiceState,
	"titlegeneration":  ServiceTitleGeneration,
}

// ParseService maps a service name onto a Service, ignoring case and
// surrounding whitespace. Unrecognized names map to ServiceUnknown.
func ParseService(name string) Service {
	return serviceAliases[strings.ToLower(strings.TrimSpace(name))]
}

// String returns the canonical name.
func (s Service) String() string {
	switch s {
	case ServiceConnection:
		return "connection"
	case ServiceModel:
		return "model"
	case ServiceStreaming:
		return "streaming"
	case ServiceFileProcessing:
		return "fileprocessing"
	case ServiceState:
		return "state"
	case ServiceTitleGeneration:
		return "titlegeneration"
	default:
		return "unknown"
	}
}
