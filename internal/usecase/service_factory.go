package usecase

import (
	"browser-agent-engine/internal/usecase/adapters"
)

type serviceFactory struct {
	deps Params
}

func newServiceFactory(deps Params) *serviceFactory {
	return &serviceFactory{
		deps: deps,
	}
}

func (f *serviceFactory) CreateEngineService() adapters.EngineService {
	return NewEngineService(EngineServiceParams{
		Config:   f.deps.Config,
		Logger:   f.deps.Logger,
		Browser:  f.deps.Browser,
		Chain:    f.deps.Chain,
		Consent:  f.deps.Consent,
		Login:    f.deps.Login,
		Teardown: f.deps.Teardown,
	})
}

func (f *serviceFactory) CreateBrowserService() adapters.BrowserService {
	return f.deps.Browser
}
