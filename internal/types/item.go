package types

import (
	"time"
)

// Raw field names understood by Normalize.
const (
	FieldID          = "id"
	FieldTitle       = "title"
	FieldDescription = "description"
	FieldPrice       = "price"
	FieldCurrency    = "currency"
	FieldCondition   = "condition"
	FieldCategory    = "category"
	FieldURL         = "url"
	FieldImages      = "images"
	FieldCreatedAt   = "createdAt"
	FieldMetadata    = "metadata"
)

// RawListing is a shape-varying record extracted from HTML or a browser DOM,
// before normalization.
type RawListing struct {
	// Fields stores the extracted key-value data.
	Fields map[string]any

	// PageURL is the page this record was extracted from.
	PageURL string

	// ExtractedAt is when this record was created.
	ExtractedAt time.Time
}

// NewRawListing creates an empty record extracted from pageURL.
func NewRawListing(pageURL string) *RawListing {
	return &RawListing{
		Fields:      make(map[string]any),
		PageURL:     pageURL,
		ExtractedAt: time.Now(),
	}
}

// Set sets a field value.
func (r *RawListing) Set(key string, value any) {
	r.Fields[key] = value
}

// Get retrieves a field value.
func (r *RawListing) Get(key string) (any, bool) {
	v, ok := r.Fields[key]
	return v, ok
}

// GetString retrieves a field value as a string.
func (r *RawListing) GetString(key string) string {
	v, ok := r.Fields[key]
	if !ok {
		return ""
	}
	s, ok := v.(string)
	if !ok {
		return ""
	}
	return s
}

// Has returns true if the field exists.
func (r *RawListing) Has(key string) bool {
	_, ok := r.Fields[key]
	return ok
}

// Delete removes a field.
func (r *RawListing) Delete(key string) {
	delete(r.Fields, key)
}

// Keys returns all field names.
func (r *RawListing) Keys() []string {
	keys := make([]string, 0, len(r.Fields))
	for k := range r.Fields {
		keys = append(keys, k)
	}
	return keys
}

// SetMeta stores a platform-specific extra under the metadata field.
func (r *RawListing) SetMeta(key string, value any) {
	meta, ok := r.Fields[FieldMetadata].(map[string]any)
	if !ok {
		meta = make(map[string]any)
		r.Fields[FieldMetadata] = meta
	}
	meta[key] = value
}
