package pipeline

import (
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/IshaanNene/SecondPrice/internal/types"
)

var testLogger = slog.New(slog.NewTextHandler(io.Discard, nil))

func raw(fields map[string]any) *types.RawListing {
	r := types.NewRawListing("https://example.com")
	for k, v := range fields {
		r.Set(k, v)
	}
	return r
}

func TestPipelineTrim(t *testing.T) {
	p := New(testLogger, &TrimMiddleware{})

	result, err := p.Process(raw(map[string]any{"title": "  Hello World  ", "price": 10.0}))
	require.NoError(t, err)
	assert.Equal(t, "Hello World", result.GetString("title"))
	v, _ := result.Get("price")
	assert.Equal(t, 10.0, v)
}

func TestRequiredFieldsMiddleware(t *testing.T) {
	m := &RequiredFieldsMiddleware{Fields: []string{types.FieldTitle, types.FieldURL}}

	kept, err := m.Process(raw(map[string]any{"title": "Bike", "url": "https://x/1"}))
	require.NoError(t, err)
	assert.NotNil(t, kept)

	dropped, _ := m.Process(raw(map[string]any{"title": "Bike"}))
	assert.Nil(t, dropped)

	dropped, _ = m.Process(raw(map[string]any{"title": "", "url": "https://x/1"}))
	assert.Nil(t, dropped)
}

func TestDedupByCanonicalURL(t *testing.T) {
	p := New(testLogger, NewDedupMiddleware(types.FieldURL))

	out := p.Run([]*types.RawListing{
		raw(map[string]any{"url": "https://Example.com/item/1/?b=2&a=1#top"}),
		raw(map[string]any{"url": "https://example.com/item/1?a=1&b=2"}),
		raw(map[string]any{"url": "https://example.com/item/2"}),
		raw(map[string]any{"title": "no url"}),
	})
	assert.Len(t, out, 3)
}

func TestHTMLSanitizeSelectedFields(t *testing.T) {
	m := NewHTMLSanitizeMiddleware(types.FieldDescription)
	r := raw(map[string]any{
		"description": "<p>Great   <b>bike</b></p>\n &amp; helmet",
		"title":       "<keep>",
	})

	result, err := m.Process(r)
	require.NoError(t, err)
	assert.Equal(t, "Great bike & helmet", result.GetString("description"))
	assert.Equal(t, "<keep>", result.GetString("title"))
}

type failing struct{}

func (failing) Name() string { return "failing" }
func (failing) Process(*types.RawListing) (*types.RawListing, error) {
	return nil, errors.New("broken")
}

func TestRunSkipsFailedRecords(t *testing.T) {
	p := New(testLogger, failing{})
	_, err := p.Process(raw(nil))
	var pe *PipelineError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, "failing", pe.Stage)

	assert.Empty(t, p.Run([]*types.RawListing{raw(nil)}))
	assert.Equal(t, 1, p.Len())
}
