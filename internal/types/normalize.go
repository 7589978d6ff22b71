package types

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Defaults applied by Normalize.
const (
	DefaultCurrency  = "HKD"
	DefaultCondition = "unknown"
	DefaultCategory  = "unknown"
)

// isoMillis matches the timestamp shape browsers produce for Date.toISOString.
const isoMillis = "2006-01-02T15:04:05.000Z07:00"

// now is replaced in tests.
var now = time.Now

// Normalize converts a raw record into a Listing. Each default is applied
// independently; a field that cannot be read falls back to its default.
// source always wins over any "source" field in the raw record.
func Normalize(source string, raw *RawListing) Listing {
	if raw == nil {
		raw = NewRawListing("")
	}
	ts := now()

	l := Listing{
		ID:          raw.GetString(FieldID),
		Title:       stringField(raw, FieldTitle),
		Description: stringField(raw, FieldDescription),
		Price:       priceField(raw),
		Currency:    stringOr(raw, FieldCurrency, DefaultCurrency),
		Condition:   stringOr(raw, FieldCondition, DefaultCondition),
		Category:    stringOr(raw, FieldCategory, DefaultCategory),
		Source:      source,
		URL:         stringField(raw, FieldURL),
		Images:      imagesField(raw),
		CreatedAt:   createdAtField(raw, ts),
		Metadata:    metadataField(raw),
	}
	if l.ID == "" {
		l.ID = GenerateID(source, ts)
	}
	return l
}

// GenerateID builds an id of the form {source}-{unix millis}-{random}.
func GenerateID(source string, at time.Time) string {
	suffix := strings.ReplaceAll(uuid.NewString(), "-", "")[:9]
	return fmt.Sprintf("%s-%d-%s", source, at.UnixMilli(), suffix)
}

func stringField(raw *RawListing, key string) string {
	v, ok := raw.Get(key)
	if !ok || v == nil {
		return ""
	}
	switch s := v.(type) {
	case string:
		return s
	case fmt.Stringer:
		return s.String()
	default:
		return fmt.Sprint(v)
	}
}

func stringOr(raw *RawListing, key, def string) string {
	if s := stringField(raw, key); s != "" {
		return s
	}
	return def
}

func priceField(raw *RawListing) *float64 {
	v, ok := raw.Get(FieldPrice)
	if !ok || v == nil {
		return nil
	}
	var f float64
	switch p := v.(type) {
	case *float64:
		if p == nil {
			return nil
		}
		f = *p
	case float64:
		f = p
	case float32:
		f = float64(p)
	case int:
		f = float64(p)
	case int64:
		f = float64(p)
	case string:
		return ParsePrice(p)
	default:
		return nil
	}
	if math.IsNaN(f) || math.IsInf(f, 0) || f < 0 {
		return nil
	}
	return &f
}

func imagesField(raw *RawListing) []string {
	images := []string{}
	v, ok := raw.Get(FieldImages)
	if !ok {
		return images
	}
	switch list := v.(type) {
	case []string:
		for _, img := range list {
			if img != "" {
				images = append(images, img)
			}
		}
	case []any:
		for _, item := range list {
			if s, ok := item.(string); ok && s != "" {
				images = append(images, s)
			}
		}
	case string:
		if list != "" {
			images = append(images, list)
		}
	}
	return images
}

func createdAtField(raw *RawListing, ts time.Time) string {
	v, ok := raw.Get(FieldCreatedAt)
	if ok {
		switch t := v.(type) {
		case time.Time:
			if !t.IsZero() {
				return t.UTC().Format(isoMillis)
			}
		case string:
			if t != "" {
				return t
			}
		case int64:
			return time.UnixMilli(t).UTC().Format(isoMillis)
		}
	}
	return ts.UTC().Format(isoMillis)
}

func metadataField(raw *RawListing) map[string]any {
	meta := make(map[string]any)
	if m, ok := raw.Fields[FieldMetadata].(map[string]any); ok {
		for k, v := range m {
			meta[k] = v
		}
	}
	return meta
}

// FormatPrice renders a price the way ParsePrice reads it back.
func FormatPrice(p *float64) string {
	if p == nil {
		return ""
	}
	return strconv.FormatFloat(*p, 'f', -1, 64)
}
