// Package app provides application services that orchestrate domain logic.
package app

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"github.com/artpar/modgate/core/registry"
	"github.com/artpar/modgate/domain/access"
	"github.com/artpar/modgate/domain/apiconfig"
	"github.com/artpar/modgate/domain/dispatch"
	"github.com/artpar/modgate/domain/module"
	"github.com/artpar/modgate/domain/route"
	"github.com/artpar/modgate/domain/usage"
	"github.com/artpar/modgate/pkg/envelope"
	"github.com/artpar/modgate/ports"
	"github.com/rs/zerolog"
)

// ErrConfiguration wraps every error that stops a gateway from being built.
var ErrConfiguration = errors.New("gateway configuration")

// Dispatch outcomes, used as log fields and metric labels.
const (
	OutcomeRoot               = "root"
	OutcomeListing            = "listing"
	OutcomeUnsupportedVersion = "unsupported_version"
	OutcomeNotFound           = "not_found"
	OutcomeUnavailable        = "unavailable"
	OutcomeUnauthorized       = "unauthorized"
	OutcomeAuthError          = "auth_error"
	OutcomeLoadError          = "load_error"
	OutcomeModuleError        = "module_error"
	OutcomeModuleOK           = "ok"
	OutcomeUnmatched          = "unmatched"
)

// GatewayDeps contains dependencies for the Gateway.
type GatewayDeps struct {
	Registry   *registry.Registry
	Resolver   ports.AccessKeyResolver
	RequestLog ports.RequestLog // optional
	Clock      ports.Clock
	IDGen      ports.IDGenerator
	Logger     zerolog.Logger
}

// GatewayConfig contains the service manifest and dispatch settings.
type GatewayConfig struct {
	Service          apiconfig.Main
	HideErrorDetails bool
}

// Gateway runs the dispatch pipeline for one loaded manifest.
// A Gateway is immutable after NewGateway and safe for concurrent use.
type Gateway struct {
	registry   *registry.Registry
	auth       *Authenticator
	requestLog ports.RequestLog
	clock      ports.Clock
	idGen      ports.IDGenerator
	logger     zerolog.Logger

	service     apiconfig.Main
	versions    map[string]apiconfig.Version // by normalized id
	table       *route.Table
	hideDetails bool
}

// Result contains the outcome of handling one request.
type Result struct {
	Response envelope.Response
	Outcome  string
	Version  string // normalized, empty when not resolved
	Path     string // normalized, empty when not resolved

	// Err is the internal cause for error outcomes. Never sent to callers
	// when error details are hidden.
	Err error

	// Record is set when a module executed successfully.
	Record *usage.Record

	ModuleDuration time.Duration
}

// NewGateway validates the manifest, builds the route table and
// activates every configured library.
func NewGateway(ctx context.Context, deps GatewayDeps, cfg GatewayConfig) (*Gateway, error) {
	if deps.Registry == nil {
		return nil, fmt.Errorf("%w: registry is required", ErrConfiguration)
	}
	if err := apiconfig.Validate(cfg.Service); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrConfiguration, err)
	}
	for _, v := range cfg.Service.Versions {
		if err := deps.Registry.ActivateLibraries(ctx, v); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrConfiguration, err)
		}
	}

	versions := make(map[string]apiconfig.Version, len(cfg.Service.Versions))
	for _, v := range cfg.Service.Versions {
		versions[route.Normalize(v.Version)] = v
	}

	return &Gateway{
		registry:    deps.Registry,
		auth:        NewAuthenticator(deps.Resolver),
		requestLog:  deps.RequestLog,
		clock:       deps.Clock,
		idGen:       deps.IDGen,
		logger:      deps.Logger,
		service:     cfg.Service,
		versions:    versions,
		table:       route.Build(cfg.Service),
		hideDetails: cfg.HideErrorDetails,
	}, nil
}

// Service returns the manifest the gateway was built from.
func (g *Gateway) Service() apiconfig.Main {
	return g.service
}

// Routes returns the compiled route table.
func (g *Gateway) Routes() *route.Table {
	return g.table
}

// Handle runs req through the pipeline. It never returns an error;
// every failure is expressed as a response.
func (g *Gateway) Handle(ctx context.Context, req dispatch.Request) Result {
	switch req.Target {
	case dispatch.TargetRoot:
		return Result{
			Response: envelope.FromDocument(envelope.Root(g.service.Name, g.service.DocumentationURL)),
			Outcome:  OutcomeRoot,
		}
	case dispatch.TargetVersion:
		return g.handleVersion(req)
	case dispatch.TargetModule:
		return g.handleModule(ctx, req)
	default:
		return Result{Response: envelope.NotFound(), Outcome: OutcomeUnmatched}
	}
}

func (g *Gateway) handleVersion(req dispatch.Request) Result {
	version := route.Normalize(req.Version)
	v, ok := g.versions[version]
	if !ok {
		return Result{
			Response: envelope.FromDocument(envelope.UnsupportedVersion()),
			Outcome:  OutcomeUnsupportedVersion,
		}
	}

	modules := make(map[string]envelope.ModuleInfo, len(v.Modules))
	for _, m := range v.Modules {
		h, err := g.registry.Instantiate(v.Version, m)
		if err != nil {
			return g.internalError(req, OutcomeLoadError, version, "", err)
		}
		info := h.Info()
		modules["/"+strings.Trim(m.Path, "/")] = envelope.ModuleInfo{
			Name:        info.Name,
			Version:     info.Version,
			Description: info.Description,
		}
	}

	return Result{
		Response: envelope.FromDocument(envelope.ModuleListing(modules)),
		Outcome:  OutcomeListing,
		Version:  version,
	}
}

func (g *Gateway) handleModule(ctx context.Context, req dispatch.Request) Result {
	start := g.clock.Now()

	// 1. Resolve route
	entry, ok := g.table.Resolve(req.Version, req.ModulePath)
	if !ok {
		return Result{
			Response: envelope.FromDocument(envelope.ResourceNotFound()),
			Outcome:  OutcomeNotFound,
		}
	}
	v := g.versions[entry.Version]
	m := v.Modules[entry.Index]

	// 2. Availability: version first, then module
	if !v.Available {
		return g.unavailable(entry, v.UnavailableMessage)
	}
	if !m.Available {
		return g.unavailable(entry, m.UnavailableMessage)
	}

	// 3. Authenticate
	rec := access.Anonymous()
	if m.AuthenticationRequired {
		var err error
		rec, err = g.auth.Authenticate(ctx, req)
		if errors.Is(err, ErrUnauthorized) {
			return Result{
				Response: envelope.FromDocument(envelope.Unauthorized()),
				Outcome:  OutcomeUnauthorized,
				Version:  entry.Version,
				Path:     entry.Path,
				Err:      err,
			}
		}
		if err != nil {
			return g.internalError(req, OutcomeAuthError, entry.Version, entry.Path, err)
		}
	}

	// 4. Instantiate
	h, err := g.registry.Instantiate(v.Version, m)
	if err != nil {
		return g.internalError(req, OutcomeLoadError, entry.Version, entry.Path, err)
	}
	h.SetAccessRecord(rec)

	// 5. Execute
	execStart := g.clock.Now()
	err = execute(ctx, h, req)
	end := g.clock.Now()
	if err != nil {
		res := g.internalError(req, OutcomeModuleError, entry.Version, entry.Path, err)
		res.ModuleDuration = end.Sub(execStart)
		return res
	}

	// 6. Emit raw module output
	resp := envelope.FromModule(h.ResponseCode(), h.ContentType(), h.Body(), h.IsFile(), h.FileName())

	record := &usage.Record{
		ApplicationID:       rec.ApplicationID,
		AccessRecordID:      rec.ID,
		Version:             entry.Version,
		Path:                entry.Path,
		ResponseContentType: resp.ContentType,
		ResponseLength:      int64(len(resp.Body)),
		ResponseCode:        resp.Status,
		ResponseTime:        end.Sub(start),
		UserAgent:           req.UserAgent,
		RemoteIP:            req.RemoteIP,
		Timestamp:           end,
	}
	if g.idGen != nil {
		record.ID = g.idGen.New()
	}

	return Result{
		Response:       resp,
		Outcome:        OutcomeModuleOK,
		Version:        entry.Version,
		Path:           entry.Path,
		Record:         record,
		ModuleDuration: end.Sub(execStart),
	}
}

// Report hands a completed-request record to the request log, if any.
// Callers log and discard the error; it never changes a response.
func (g *Gateway) Report(ctx context.Context, rec usage.Record) error {
	if g.requestLog == nil {
		return nil
	}
	return g.requestLog.Record(ctx, rec)
}

// HasRequestLog reports whether a request log is configured.
func (g *Gateway) HasRequestLog() bool {
	return g.requestLog != nil
}

func (g *Gateway) unavailable(entry route.Entry, message string) Result {
	return Result{
		Response: envelope.FromDocument(envelope.ResourceNotAvailable(message)),
		Outcome:  OutcomeUnavailable,
		Version:  entry.Version,
		Path:     entry.Path,
	}
}

func (g *Gateway) internalError(req dispatch.Request, outcome, version, path string, err error) Result {
	g.logger.Error().
		Err(err).
		Str("request_id", req.RequestID).
		Str("outcome", outcome).
		Str("version", version).
		Str("path", path).
		Msg("request failed")

	detail := ""
	if !g.hideDetails {
		detail = err.Error()
	}
	return Result{
		Response: envelope.FromDocument(envelope.InternalServerError(detail).WithReference(req.RequestID)),
		Outcome:  outcome,
		Version:  version,
		Path:     path,
		Err:      err,
	}
}

// execute runs the module, converting a panic into an error.
func execute(ctx context.Context, h module.Handler, req dispatch.Request) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("module %s panicked: %v", h.Info().Name, r)
		}
	}()
	return h.ProcessRequest(ctx, req)
}

// GatewayRef holds the current gateway and allows it to be swapped on reload.
type GatewayRef struct {
	p atomic.Pointer[Gateway]
}

// NewGatewayRef creates a reference to g.
func NewGatewayRef(g *Gateway) *GatewayRef {
	ref := &GatewayRef{}
	ref.p.Store(g)
	return ref
}

// Load returns the current gateway.
func (r *GatewayRef) Load() *Gateway {
	return r.p.Load()
}

// Store replaces the current gateway.
func (r *GatewayRef) Store(g *Gateway) {
	r.p.Store(g)
}
