package pipeline

import (
	"log/slog"
	"strings"
	"sync"

	"github.com/IshaanNene/SecondPrice/internal/types"
)

// Middleware processes a raw listing and returns the (possibly modified) record.
// Return nil to drop the record from the pipeline.
type Middleware interface {
	// Name returns the middleware's identifier.
	Name() string

	// Process transforms a record. Return nil to drop it.
	Process(raw *types.RawListing) (*types.RawListing, error)
}

// Pipeline chains middleware processors together.
type Pipeline struct {
	middlewares []Middleware
	logger      *slog.Logger
}

// New creates a Pipeline running mws in order.
func New(logger *slog.Logger, mws ...Middleware) *Pipeline {
	return &Pipeline{
		middlewares: mws,
		logger:      logger.With("component", "pipeline"),
	}
}

// Use adds a middleware to the pipeline chain.
func (p *Pipeline) Use(mw Middleware) {
	p.middlewares = append(p.middlewares, mw)
}

// Process runs the record through all middleware in order.
func (p *Pipeline) Process(raw *types.RawListing) (*types.RawListing, error) {
	current := raw
	for _, mw := range p.middlewares {
		result, err := mw.Process(current)
		if err != nil {
			return nil, &PipelineError{Stage: mw.Name(), Err: err}
		}
		if result == nil {
			p.logger.Debug("record dropped", "stage", mw.Name(), "url", raw.GetString(types.FieldURL))
			return nil, nil
		}
		current = result
	}
	return current, nil
}

// Run processes a batch, keeping order and dropping records that a
// middleware rejects or fails on.
func (p *Pipeline) Run(raws []*types.RawListing) []*types.RawListing {
	out := make([]*types.RawListing, 0, len(raws))
	for _, raw := range raws {
		result, err := p.Process(raw)
		if err != nil {
			p.logger.Warn("record failed processing", "error", err)
			continue
		}
		if result != nil {
			out = append(out, result)
		}
	}
	return out
}

// Len returns the number of middleware in the chain.
func (p *Pipeline) Len() int {
	return len(p.middlewares)
}

// PipelineError wraps errors that occur in a pipeline stage.
type PipelineError struct {
	Stage string
	Err   error
}

func (e *PipelineError) Error() string {
	return "pipeline error at stage " + e.Stage + ": " + e.Err.Error()
}

func (e *PipelineError) Unwrap() error { return e.Err }

// --- Built-in Middleware ---

// RequiredFieldsMiddleware drops records missing any of the fields.
type RequiredFieldsMiddleware struct {
	Fields []string
}

func (m *RequiredFieldsMiddleware) Name() string { return "required_fields" }

func (m *RequiredFieldsMiddleware) Process(raw *types.RawListing) (*types.RawListing, error) {
	for _, field := range m.Fields {
		val, ok := raw.Get(field)
		if !ok || val == nil {
			return nil, nil
		}
		if s, isString := val.(string); isString && s == "" {
			return nil, nil
		}
	}
	return raw, nil
}

// DedupMiddleware drops records whose key field was already seen.
// Records with an empty key always pass.
type DedupMiddleware struct {
	mu   sync.Mutex
	seen map[string]struct{}
	key  string
}

func NewDedupMiddleware(key string) *DedupMiddleware {
	return &DedupMiddleware{
		seen: make(map[string]struct{}),
		key:  key,
	}
}

func (m *DedupMiddleware) Name() string { return "dedup" }

func (m *DedupMiddleware) Process(raw *types.RawListing) (*types.RawListing, error) {
	val := raw.GetString(m.key)
	if val == "" {
		return raw, nil
	}
	if m.key == types.FieldURL {
		val = CanonicalizeURL(val)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.seen[val]; exists {
		return nil, nil
	}
	m.seen[val] = struct{}{}
	return raw, nil
}

// TrimMiddleware trims whitespace from all string fields.
type TrimMiddleware struct{}

func (m *TrimMiddleware) Name() string { return "trim" }

func (m *TrimMiddleware) Process(raw *types.RawListing) (*types.RawListing, error) {
	for _, key := range raw.Keys() {
		if s := raw.GetString(key); s != "" {
			raw.Set(key, strings.TrimSpace(s))
		}
	}
	return raw, nil
}
