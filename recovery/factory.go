package recovery

// Dependencies are the optional collaborators strategies can use. Any of
// them may be nil; the factory degrades to strategies that do not need them.
type Dependencies struct {
	Backend Backend
	Models  ModelRefresher
	Reset   ResetFunc
	Config  Config
}

// Factory builds the recovery strategy for a service.
type Factory struct {
	deps Dependencies
}

// NewFactory creates a factory. Zero config fields take their defaults.
func NewFactory(deps Dependencies) *Factory {
	deps.Config.ApplyDefaults()
	return &Factory{deps: deps}
}

// ForService resolves name with ParseService and returns its strategy.
func (f *Factory) ForService(name string) Strategy {
	return f.For(ParseService(name))
}

// For returns the strategy for svc. It never returns nil: a service whose
// required dependency is missing gets the fallback chain.
func (f *Factory) For(svc Service) Strategy {
	switch svc {
	case ServiceConnection:
		if conn, ok := f.connection(); ok {
			return conn
		}
	case ServiceModel:
		if f.deps.Models != nil {
			return f.withConnection(f.modelLoading())
		}
	case ServiceStreaming:
		return f.withConnection(Streaming{Cooldown: f.deps.Config.StreamingCooldown})
	case ServiceFileProcessing:
		return FileProcessing{}
	case ServiceState:
		return f.state()
	case ServiceTitleGeneration:
		return TitleGeneration{}
	case ServiceUnknown:
	}
	return f.fallback()
}

// fallback is Connection then State when a backend is available, State alone otherwise.
func (f *Factory) fallback() Strategy {
	return f.withConnection(f.state())
}

func (f *Factory) withConnection(s Strategy) Strategy {
	conn, ok := f.connection()
	if !ok {
		return s
	}
	return Composite{Strategies: []Strategy{conn, s}}
}

func (f *Factory) connection() (Connection, bool) {
	if f.deps.Backend == nil {
		return Connection{}, false
	}
	return Connection{Checker: f.deps.Backend, Timeout: f.deps.Config.ConnectionTimeout}, true
}

func (f *Factory) modelLoading() ModelLoading {
	return ModelLoading{
		Models:      f.deps.Models,
		MaxAttempts: f.deps.Config.ModelAttempts,
		BaseDelay:   f.deps.Config.ModelBaseDelay,
	}
}

func (f *Factory) state() State {
	return State{Reset: f.deps.Reset, Settle: f.deps.Config.StateSettle}
}
