package session

import (
	"context"
	"errors"
	"fmt"

	"github.com/hashicorp/go-hclog"

	"xplore/internal/form"
	"xplore/internal/httpclient"
	"xplore/internal/model"
	"xplore/internal/openapi"
)

type Deps struct {
	Fetcher  *openapi.Fetcher
	Cache    *openapi.Cache
	Executor httpclient.Executor
	Logger   hclog.Logger
}

// Controller runs the user's actions: loading a catalogue, building and
// sending requests. Every failure comes back as an error for the caller to
// show; none of them ends the session.
type Controller struct {
	session  *Session
	fetcher  *openapi.Fetcher
	cache    *openapi.Cache
	executor httpclient.Executor
	logger   hclog.Logger

	spec      *openapi.Spec
	catalogue model.Catalogue

	last    *httpclient.RequestSpec
	lastRes *httpclient.Presentation
}

func NewController(s *Session, deps Deps) *Controller {
	logger := deps.Logger
	if logger == nil {
		logger = hclog.NewNullLogger()
	}
	return &Controller{
		session:   s,
		fetcher:   deps.Fetcher,
		cache:     deps.Cache,
		executor:  deps.Executor,
		logger:    logger.Named("controller"),
		catalogue: model.Catalogue{},
	}
}

func (c *Controller) Session() *Session { return c.session }

// LoadCatalogue fetches the active service's document, or reuses the cached
// one unless refresh is set. On failure the catalogue is empty.
func (c *Controller) LoadCatalogue(ctx context.Context, refresh bool) (model.Catalogue, error) {
	spec, err := c.loadSpec(ctx, refresh)
	if err != nil {
		c.spec = nil
		c.catalogue = model.Catalogue{}
		c.logger.Warn("catalogue unavailable", "service", c.session.Service, "error", err)
		return c.catalogue, err
	}
	c.spec = spec
	c.catalogue = openapi.Normalize(spec.Doc)
	c.session.OfferBaseURL(spec.Info.ServerURL)
	c.logger.Debug("catalogue loaded", "service", spec.Service, "tags", len(c.catalogue), "endpoints", c.catalogue.Len())
	return c.catalogue, nil
}

func (c *Controller) loadSpec(ctx context.Context, refresh bool) (*openapi.Spec, error) {
	s := c.session
	if !refresh && c.cache != nil {
		if spec, ok := c.cache.Get(s.Service); ok {
			return spec, nil
		}
	}
	if c.fetcher == nil {
		return nil, errors.New("no spec fetcher configured")
	}
	if s.SpecFile != "" {
		return c.fetcher.LoadFile(ctx, s.Service, s.SpecFile)
	}
	svc, ok := s.ActiveService()
	if !ok {
		return nil, fmt.Errorf("unknown service %q", s.Service)
	}
	return c.fetcher.Fetch(ctx, svc.Name, s.BaseURL, svc.Mount)
}

func (c *Controller) Catalogue() model.Catalogue { return c.catalogue }

// Spec is the document behind the current catalogue, nil when none loaded.
func (c *Controller) Spec() *openapi.Spec { return c.spec }

// Form derives the fields of ep and returns them with the endpoint's state,
// creating the state on first use.
func (c *Controller) Form(ep model.Endpoint) (form.FieldSet, *form.State) {
	st := c.session.Forms.For(ep)
	fs := form.Derive(ep, st.ContentType)
	st.Seed(fs.Body)
	return fs, st
}

// Build turns the endpoint's form state into a request without sending it.
func (c *Controller) Build(ep model.Endpoint) (httpclient.RequestSpec, error) {
	fs, st := c.Form(ep)
	path, query, body := st.Collect(fs)
	return httpclient.BuildRequest(httpclient.BuildInput{
		BaseURL:     c.session.BaseURL,
		Endpoint:    ep,
		PathValues:  path,
		QueryValues: query,
		Headers:     st.Headers,
		BodyMode:    st.Mode,
		ContentType: fs.Body.ContentType,
		BodySchema:  fs.Body.Schema,
		BodyValues:  body,
		RawBody:     st.RawBody,
		PartitionID: c.session.PartitionFor(st),
		Auth:        c.session.Auth,
	})
}

// Execute builds and sends a request for ep. A build failure means nothing
// was sent.
func (c *Controller) Execute(ctx context.Context, ep model.Endpoint) (httpclient.Presentation, error) {
	spec, err := c.Build(ep)
	if err != nil {
		c.logger.Debug("request not built", "endpoint", ep.ID(), "error", err)
		return httpclient.Presentation{}, err
	}
	return c.dispatch(ctx, spec)
}

// Rerun sends the last request again as it was built.
func (c *Controller) Rerun(ctx context.Context) (httpclient.Presentation, error) {
	if c.last == nil {
		return httpclient.Presentation{}, errors.New("no request to re-run")
	}
	return c.dispatch(ctx, *c.last)
}

// Last returns the last request sent and its response, if any.
func (c *Controller) Last() (*httpclient.RequestSpec, *httpclient.Presentation) {
	return c.last, c.lastRes
}

func (c *Controller) dispatch(ctx context.Context, spec httpclient.RequestSpec) (httpclient.Presentation, error) {
	if c.executor == nil {
		return httpclient.Presentation{}, errors.New("no executor configured")
	}
	c.last = &spec
	res, err := c.executor.Execute(ctx, spec)
	if err != nil {
		c.logger.Debug("request failed", "method", spec.Method, "url", spec.URL, "error", err)
		return httpclient.Presentation{}, err
	}
	p := httpclient.Present(res)
	c.lastRes = &p
	return p, nil
}

// Describe turns an action error into the message shown to the user.
func Describe(err error) string {
	if err == nil {
		return ""
	}
	var (
		fetchErr  *openapi.SpecFetchError
		bodyErr   *httpclient.InvalidBodyError
		methodErr *httpclient.UnsupportedMethodError
		reqErr    *httpclient.RequestError
	)
	switch {
	case errors.As(err, &fetchErr):
		return "No catalogue available: " + fetchErr.Error()
	case errors.As(err, &bodyErr):
		return "Not sent, " + bodyErr.Error()
	case errors.As(err, &methodErr):
		return "Not sent, " + methodErr.Error()
	case errors.As(err, &reqErr):
		return "Request failed: " + reqErr.Error()
	default:
		return err.Error()
	}
}
