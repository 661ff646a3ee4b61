package usecase

import (
	"context"
	"errors"
	"log/slog"

	"go.opentelemetry.io/otel/trace"

	"fincrew/internal/domain"
	"fincrew/internal/infra/tracer"
)

// HealthTracker is the provider availability state consulted by the router.
type HealthTracker interface {
	// Select returns the first available provider in preference order.
	Select() (name string, ok bool)
	// Probe reports whether the named provider is currently available.
	Probe(name string) bool
	MarkDown(name string)
	MarkQuotaExhausted(name string)
}

// ProviderFactory builds a provider by name with a per-request credential.
type ProviderFactory interface {
	Build(name, apiKey string) (domain.LLMProvider, error)
}

// RouteRequest is one user query plus routing hints. Provider, when set,
// pins the request to that backend with no failover. Credential, when set,
// overrides the ambient credential for whichever backend handles the request.
type RouteRequest struct {
	Query      string
	Provider   string
	Credential string
}

// RouteResult is a completed chat turn.
type RouteResult struct {
	Response     string
	ProviderUsed string
	AgentUsed    string
}

// Router dispatches queries to the manager agent through a healthy LLM
// provider, with failover across backends in configured preference order.
type Router struct {
	manager     domain.Agent
	tracker     HealthTracker
	factory     ProviderFactory
	credentials domain.CredentialSource
	logger      *slog.Logger
}

// RouterDeps holds construction parameters for a Router.
type RouterDeps struct {
	Manager     domain.Agent
	Tracker     HealthTracker
	Factory     ProviderFactory
	Credentials domain.CredentialSource
	Logger      *slog.Logger
}

// NewRouter creates the request router.
func NewRouter(deps RouterDeps) *Router {
	return &Router{
		manager:     deps.Manager,
		tracker:     deps.Tracker,
		factory:     deps.Factory,
		credentials: deps.Credentials,
		logger:      deps.Logger,
	}
}

// Route runs one query through the manager. Failures surface as *RouteError
// so the transport layer can map them to status codes.
func (r *Router) Route(ctx context.Context, req RouteRequest) (*RouteResult, error) {
	ctx, span := tracer.StartSpan(ctx, "router.route",
		trace.WithAttributes(tracer.StringAttr("router.preferred", req.Provider)),
	)
	defer span.End()

	if req.Provider != "" {
		res, err := r.routePinned(ctx, req)
		if err != nil {
			tracer.RecordError(span, err)
			return nil, err
		}
		tracer.SetOK(span)
		return res, nil
	}

	res, err := r.routeAuto(ctx, req)
	if err != nil {
		tracer.RecordError(span, err)
		return nil, err
	}
	tracer.SetOK(span)
	return res, nil
}

// routePinned handles a request pinned to one backend: one attempt, no
// substitution. The failure is still recorded by its actual kind so the
// penalty cooldown matches the cause.
func (r *Router) routePinned(ctx context.Context, req RouteRequest) (*RouteResult, error) {
	name := req.Provider
	if !r.tracker.Probe(name) {
		return nil, &domain.RouteError{
			Kind:     domain.FailureProviderDown,
			Provider: name,
			Err:      domain.ErrPreferredProvider,
		}
	}

	result, err := r.attempt(ctx, name, req)
	if err == nil {
		return result, nil
	}

	switch {
	case errors.Is(err, domain.ErrCredentialMissing):
		return nil, &domain.RouteError{Kind: domain.FailureNeedsCredential, Provider: name, Err: err}
	case errors.Is(err, domain.ErrQuotaExhausted):
		r.tracker.MarkQuotaExhausted(name)
	case errors.Is(err, domain.ErrProviderDown), errors.Is(err, domain.ErrProvider):
		r.tracker.MarkDown(name)
	default:
		return nil, &domain.RouteError{Kind: domain.FailureServerError, Provider: name, Err: err}
	}

	return nil, &domain.RouteError{Kind: domain.FailureProviderDown, Provider: name, Err: err}
}

// routeAuto walks the preference order, penalizing failed backends and
// moving on, until a backend completes the turn or none remain.
func (r *Router) routeAuto(ctx context.Context, req RouteRequest) (*RouteResult, error) {
	var lastErr error
	for {
		name, ok := r.tracker.Select()
		if !ok {
			err := lastErr
			if err == nil {
				err = domain.ErrAllProvidersDown
			}
			return nil, &domain.RouteError{Kind: domain.FailureAllDown, Err: err}
		}

		result, err := r.attempt(ctx, name, req)
		if err == nil {
			return result, nil
		}
		lastErr = err

		switch {
		case errors.Is(err, domain.ErrCredentialMissing):
			return nil, &domain.RouteError{Kind: domain.FailureNeedsCredential, Provider: name, Err: err}
		case errors.Is(err, domain.ErrQuotaExhausted):
			r.tracker.MarkQuotaExhausted(name)
		case errors.Is(err, domain.ErrProviderDown), errors.Is(err, domain.ErrProvider):
			r.tracker.MarkDown(name)
		default:
			return nil, &domain.RouteError{Kind: domain.FailureServerError, Provider: name, Err: err}
		}

		r.logger.Warn("provider failed, trying next",
			"provider", name,
			"error", err,
		)
	}
}

// attempt runs the manager once through the named backend.
func (r *Router) attempt(ctx context.Context, name string, req RouteRequest) (*RouteResult, error) {
	credential := req.Credential
	if credential == "" {
		var ok bool
		credential, ok = r.credentials.Lookup(name)
		if !ok {
			return nil, domain.NewDomainError("Router.attempt", domain.ErrCredentialMissing, name)
		}
	}

	provider, err := r.factory.Build(name, credential)
	if err != nil {
		return nil, err
	}

	result, err := r.manager.Process(ctx, req.Query, provider)
	if err != nil {
		return nil, err
	}

	return &RouteResult{
		Response:     result.Content,
		ProviderUsed: name,
		AgentUsed:    r.manager.Name(),
	}, nil
}
