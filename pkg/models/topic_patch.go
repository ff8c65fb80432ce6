package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
)

// TopicPatch is the normalized result of validating a partial-update
// request body. Nil pointer fields were absent from the payload and must
// be left untouched by the store. ClearDescription records an explicit
// JSON null for description, which empties the field rather than
// skipping it.
type TopicPatch struct {
	Title            *string
	Description      *string
	ClearDescription bool
	Status           *TopicStatus
	Technology       *string
	LeetcodeLinks    []LeetcodeLink
	SetLinks         bool
}

// HasChanges reports whether the patch carries at least one field.
func (p *TopicPatch) HasChanges() bool {
	return p.Title != nil ||
		p.Description != nil ||
		p.ClearDescription ||
		p.Status != nil ||
		p.Technology != nil ||
		p.SetLinks
}

// Fields lists the names of the fields present in the patch, for logging.
func (p *TopicPatch) Fields() []string {
	var fields []string
	if p.Title != nil {
		fields = append(fields, "title")
	}
	if p.Description != nil || p.ClearDescription {
		fields = append(fields, "description")
	}
	if p.Status != nil {
		fields = append(fields, "status")
	}
	if p.Technology != nil {
		fields = append(fields, "technology")
	}
	if p.SetLinks {
		fields = append(fields, "leetcode_links")
	}
	return fields
}

var patchFields = map[string]bool{
	"title":          true,
	"description":    true,
	"status":         true,
	"technology":     true,
	"leetcode_links": true,
}

// ParseTopicPatch validates a partial-update request body against the
// topic schema. Matching is strict: unknown keys are rejected rather than
// ignored, so a client cannot smuggle fields past validation. The returned
// error is a FieldErrors value when the body parsed as JSON but failed the
// schema, and a plain error when the body was not a JSON object at all.
func ParseTopicPatch(body []byte) (*TopicPatch, error) {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, fmt.Errorf("request body is not a JSON object: %w", err)
	}

	var errs FieldErrors
	patch := &TopicPatch{}

	// Deterministic field order keeps error output stable.
	keys := make([]string, 0, len(raw))
	for k := range raw {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, key := range keys {
		if !patchFields[key] {
			errs = append(errs, FieldError{Field: key, Message: "unknown field"})
		}
	}

	if value, ok := raw["title"]; ok {
		var title string
		if err := json.Unmarshal(value, &title); err != nil {
			errs = append(errs, FieldError{Field: "title", Message: "must be a string"})
		} else if fe := validateTitle(title); fe != nil {
			errs = append(errs, *fe)
		} else {
			patch.Title = &title
		}
	}

	if value, ok := raw["description"]; ok {
		if isJSONNull(value) {
			patch.ClearDescription = true
		} else {
			var description string
			if err := json.Unmarshal(value, &description); err != nil {
				errs = append(errs, FieldError{Field: "description", Message: "must be a string or null"})
			} else if fe := validateDescription(description); fe != nil {
				errs = append(errs, *fe)
			} else {
				patch.Description = &description
			}
		}
	}

	if value, ok := raw["status"]; ok {
		var status TopicStatus
		if err := json.Unmarshal(value, &status); err != nil {
			errs = append(errs, FieldError{Field: "status", Message: "must be a string"})
		} else if fe := validateStatus(status); fe != nil {
			errs = append(errs, *fe)
		} else {
			patch.Status = &status
		}
	}

	if value, ok := raw["technology"]; ok {
		var technology string
		if err := json.Unmarshal(value, &technology); err != nil {
			errs = append(errs, FieldError{Field: "technology", Message: "must be a string"})
		} else if fe := validateTechnology(technology); fe != nil {
			errs = append(errs, *fe)
		} else {
			patch.Technology = &technology
		}
	}

	if value, ok := raw["leetcode_links"]; ok {
		links, linkErrs := parseLinks(value)
		if len(linkErrs) > 0 {
			errs = append(errs, linkErrs...)
		} else {
			patch.LeetcodeLinks = links
			patch.SetLinks = true
		}
	}

	if len(errs) > 0 {
		return nil, errs
	}

	if !patch.HasChanges() {
		return nil, FieldErrors{{Field: "body", Message: "at least one field is required"}}
	}

	return patch, nil
}

// parseLinks strictly decodes the leetcode_links array. Unknown keys
// inside link objects are rejected like unknown top-level fields.
func parseLinks(value json.RawMessage) ([]LeetcodeLink, FieldErrors) {
	if isJSONNull(value) {
		return nil, FieldErrors{{Field: "leetcode_links", Message: "must be an array"}}
	}

	var links []LeetcodeLink
	dec := json.NewDecoder(bytes.NewReader(value))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&links); err != nil {
		return nil, FieldErrors{{Field: "leetcode_links", Message: "must be an array of {url, difficulty} objects"}}
	}

	if errs := validateLeetcodeLinks(links); len(errs) > 0 {
		return nil, errs
	}

	// The stored value is always an array, never SQL-side null.
	if links == nil {
		links = []LeetcodeLink{}
	}

	return links, nil
}

func isJSONNull(value json.RawMessage) bool {
	return bytes.Equal(bytes.TrimSpace(value), []byte("null"))
}
