// Package config loads the file-backed defaults and the database-backed
// settings overrides the Memory Tool Facade consults before every proposal.
// A JSON file on disk is the base layer; rows in settings_overrides win
// over it, since those are server config re-read on every call rather than
// project config checked into a repo.
package config

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"strconv"
)

// MemoryExtractionThresholdKey is the one setting both the file defaults and
// the database overrides are expected to carry.
const MemoryExtractionThresholdKey = "memory_extraction_threshold"

// AllowedSubjectsKey gates which subjects the facade will accept a proposal
// for when set to a non-empty list; an empty or absent value admits any
// subject.
const AllowedSubjectsKey = "allowed_subjects"

// DefaultExtractionThreshold is used when neither the file nor the database
// supplies memory_extraction_threshold.
const DefaultExtractionThreshold = 3.0

// OverrideSource fetches the raw string-valued overrides, e.g.
// internal/storage.Store.GetAllOverrides, kept as an interface so Settings
// can be loaded without pulling in a storage dependency at compile time.
type OverrideSource interface {
	GetAllOverrides(ctx context.Context) (map[string]string, error)
}

// Settings is the resolved, typed configuration the facade and retrieval
// paths read from. File values are the base layer; database overrides win.
type Settings struct {
	ExtractionThreshold float64
	AllowedSubjects     []string
	raw                 map[string]any
}

// Load reads path (a JSON object of defaults; a missing file is not an
// error) and then layers the database's settings_overrides table on top,
// coercing each known key to its typed form.
func Load(ctx context.Context, path string, overrides OverrideSource, log *slog.Logger) (Settings, error) {
	raw := map[string]any{}

	if data, err := os.ReadFile(path); err == nil {
		if err := json.Unmarshal(data, &raw); err != nil {
			log.Warn("settings file is not valid JSON, ignoring", "event_type", "load_defaults_failed", "path", path, "error", err.Error())
			raw = map[string]any{}
		}
	} else if !os.IsNotExist(err) {
		log.Warn("failed to read settings file", "event_type", "load_defaults_failed", "path", path, "error", err.Error())
	}

	if overrides != nil {
		ov, err := overrides.GetAllOverrides(ctx)
		if err != nil {
			log.Error("failed to load settings overrides", "event_type", "load_overrides_failed", "error", err.Error())
		} else {
			for k, v := range ov {
				coerced, err := coerceOverride(k, v)
				if err != nil {
					log.Error("failed to coerce settings override", "event_type", "coerce_override_failed", "key", k, "value", v, "error", err.Error())
					continue
				}
				raw[k] = coerced
			}
		}
	}

	return fromRaw(raw), nil
}

// coerceOverride applies the typed coercion each known setting needs:
// memory_extraction_threshold is always stored as text in
// settings_overrides and must be parsed back to a float before use.
// allowed_subjects may arrive either as a JSON array or as a
// JSON-encoded-string array, a tolerance needed because some callers
// double-encode list settings.
func coerceOverride(key, value string) (any, error) {
	switch key {
	case MemoryExtractionThresholdKey:
		f, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return nil, fmt.Errorf("parse %s: %w", key, err)
		}
		return f, nil
	case AllowedSubjectsKey:
		var list []string
		if err := json.Unmarshal([]byte(value), &list); err == nil {
			return list, nil
		}
		var nested string
		if err := json.Unmarshal([]byte(value), &nested); err == nil {
			var inner []string
			if err := json.Unmarshal([]byte(nested), &inner); err == nil {
				return inner, nil
			}
		}
		return nil, fmt.Errorf("allowed_subjects override is neither a JSON array nor a JSON-encoded array string")
	default:
		return value, nil
	}
}

func fromRaw(raw map[string]any) Settings {
	s := Settings{
		ExtractionThreshold: DefaultExtractionThreshold,
		AllowedSubjects:     []string{"*"},
		raw:                 raw,
	}

	switch v := raw[MemoryExtractionThresholdKey].(type) {
	case float64:
		s.ExtractionThreshold = v
	case json.Number:
		if f, err := v.Float64(); err == nil {
			s.ExtractionThreshold = f
		}
	}

	switch v := raw[AllowedSubjectsKey].(type) {
	case []string:
		if len(v) > 0 {
			s.AllowedSubjects = v
		}
	case []any:
		var list []string
		for _, item := range v {
			if str, ok := item.(string); ok {
				list = append(list, str)
			}
		}
		if len(list) > 0 {
			s.AllowedSubjects = list
		}
	}

	return s
}

// SubjectAllowed reports whether subject passes the allowed_subjects gate.
// A list containing the wildcard "*" (the default) admits everything.
func (s Settings) SubjectAllowed(subject string) bool {
	for _, allowed := range s.AllowedSubjects {
		if allowed == "*" || allowed == subject {
			return true
		}
	}
	return false
}
