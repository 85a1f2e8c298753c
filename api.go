// +build !js

package webrtc

import "github.com/pion/interceptor"

// API bundles the global funcions of the WebRTC and ORTC API.
type API struct {
	settingEngine *SettingEngine
	mediaEngine   *MediaEngine

	interceptorRegistry *interceptor.Registry
	interceptor         interceptor.Interceptor
}

// NewAPI Creates a new API object for keeping semi-global settings to WebRTC objects
func NewAPI(options ...func(*API)) *API {
	a := &API{}

	for _, o := range options {
		o(a)
	}

	if a.settingEngine == nil {
		a.settingEngine = &SettingEngine{}
	}

	if a.mediaEngine == nil {
		a.mediaEngine = &MediaEngine{}
	}

	if a.interceptorRegistry == nil {
		a.interceptorRegistry = &interceptor.Registry{}
		if err := RegisterDefaultInterceptors(a.mediaEngine, a.interceptorRegistry); err != nil {
			a.interceptor = &interceptor.NoOp{}
			return a
		}
	}

	chain, err := a.interceptorRegistry.Build("")
	if err != nil {
		chain = &interceptor.NoOp{}
	}
	a.interceptor = chain

	return a
}

// WithInterceptorRegistry allows providing a pre-configured interceptor
// Registry to the API. Settings should not be changed after passing the
// registry to an API.
func WithInterceptorRegistry(r *interceptor.Registry) func(a *API) {
	return func(a *API) {
		a.interceptorRegistry = r
	}
}

// WithMediaEngine allows providing a MediaEngine to the API.
// Settings should not be changed after passing the engine to an API.
func WithMediaEngine(m MediaEngine) func(a *API) {
	return func(a *API) {
		a.mediaEngine = &m
	}
}

// WithSettingEngine allows providing a SettingEngine to the API.
// Settings should not be changed after passing the engine to an API.
func WithSettingEngine(s SettingEngine) func(a *API) {
	return func(a *API) {
		a.settingEngine = &s
	}
}
