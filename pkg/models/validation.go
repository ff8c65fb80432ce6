package models

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"
	"unicode/utf8"
)

// FieldError names a rejected request field and the reason, in a shape
// suitable for a 400 response body.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// FieldErrors is the rejection result of request validation.
type FieldErrors []FieldError

// Error implements the error interface so validation results can travel
// through error returns and be recovered with errors.As.
func (e FieldErrors) Error() string {
	if len(e) == 0 {
		return "validation failed"
	}
	parts := make([]string, len(e))
	for i, fe := range e {
		parts[i] = fe.Field + ": " + fe.Message
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

const (
	maxTitleLen       = 200
	maxDescriptionLen = 1000
	maxTechnologyLen  = 100
)

// technologyPattern limits technology tags to alphanumerics plus
// space, dot, hyphen and underscore ("C#" is spelled "CSharp").
var technologyPattern = regexp.MustCompile(`^[A-Za-z0-9 ._-]+$`)

func validateTitle(title string) *FieldError {
	n := utf8.RuneCountInString(title)
	if n < 1 || n > maxTitleLen {
		return &FieldError{Field: "title", Message: fmt.Sprintf("must be between 1 and %d characters", maxTitleLen)}
	}
	return nil
}

func validateDescription(description string) *FieldError {
	if utf8.RuneCountInString(description) > maxDescriptionLen {
		return &FieldError{Field: "description", Message: fmt.Sprintf("must be at most %d characters", maxDescriptionLen)}
	}
	return nil
}

func validateStatus(status TopicStatus) *FieldError {
	if !status.IsValid() {
		return &FieldError{Field: "status", Message: fmt.Sprintf("must be one of %q, %q, %q",
			StatusNotStarted, StatusInProgress, StatusCompleted)}
	}
	return nil
}

func validateTechnology(technology string) *FieldError {
	n := utf8.RuneCountInString(technology)
	if n < 1 || n > maxTechnologyLen {
		return &FieldError{Field: "technology", Message: fmt.Sprintf("must be between 1 and %d characters", maxTechnologyLen)}
	}
	if !technologyPattern.MatchString(technology) {
		return &FieldError{Field: "technology", Message: "may only contain letters, digits, spaces, dots, hyphens and underscores"}
	}
	return nil
}

func validateLeetcodeLinks(links []LeetcodeLink) FieldErrors {
	var errs FieldErrors

	if len(links) > MaxLeetcodeLinks {
		errs = append(errs, FieldError{
			Field:   "leetcode_links",
			Message: fmt.Sprintf("at most %d links are allowed", MaxLeetcodeLinks),
		})
		return errs
	}

	for i, link := range links {
		if !isValidHTTPURL(link.URL) {
			errs = append(errs, FieldError{
				Field:   fmt.Sprintf("leetcode_links[%d].url", i),
				Message: "must be a valid http(s) URL",
			})
		}
		switch link.Difficulty {
		case DifficultyEasy, DifficultyMedium, DifficultyHard:
		default:
			errs = append(errs, FieldError{
				Field:   fmt.Sprintf("leetcode_links[%d].difficulty", i),
				Message: fmt.Sprintf("must be one of %q, %q, %q", DifficultyEasy, DifficultyMedium, DifficultyHard),
			})
		}
	}

	return errs
}

func isValidHTTPURL(raw string) bool {
	u, err := url.Parse(raw)
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}
