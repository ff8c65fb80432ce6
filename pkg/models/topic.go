package models

import (
	"time"

	"github.com/google/uuid"
)

// Topic status values. The lifecycle is a straight line; the database
// enforces the same set via the topic_status enum type.
const (
	StatusNotStarted TopicStatus = "not_started"
	StatusInProgress TopicStatus = "in_progress"
	StatusCompleted  TopicStatus = "completed"
)

// TopicStatus is the progress state of a topic.
type TopicStatus string

// IsValid reports whether s is one of the known status values.
func (s TopicStatus) IsValid() bool {
	switch s {
	case StatusNotStarted, StatusInProgress, StatusCompleted:
		return true
	}
	return false
}

// Link difficulty labels, matching LeetCode's own.
const (
	DifficultyEasy   = "Easy"
	DifficultyMedium = "Medium"
	DifficultyHard   = "Hard"
)

// MaxLeetcodeLinks bounds the practice-link list per topic.
const MaxLeetcodeLinks = 5

// LeetcodeLink is one practice problem attached to a topic.
// Stored as a JSONB array in the topics table.
type LeetcodeLink struct {
	URL        string `json:"url"`
	Difficulty string `json:"difficulty"`
}

// Topic is a user-owned unit of study content. Topics form a shallow
// hierarchy through ParentID. Stored in the topics table.
type Topic struct {
	ID            uuid.UUID      `json:"id"`
	OwnerID       uuid.UUID      `json:"owner_id"`
	ParentID      *uuid.UUID     `json:"parent_id,omitempty"`
	Title         string         `json:"title"`
	Description   *string        `json:"description,omitempty"`
	Status        TopicStatus    `json:"status"`
	Technology    string         `json:"technology"`
	LeetcodeLinks []LeetcodeLink `json:"leetcode_links"`
	CreatedAt     time.Time      `json:"created_at"`
	UpdatedAt     time.Time      `json:"updated_at"`
}

// TopicCreate carries the validated fields for creating a topic.
type TopicCreate struct {
	Title         string         `json:"title"`
	Description   *string        `json:"description,omitempty"`
	Status        TopicStatus    `json:"status,omitempty"`
	Technology    string         `json:"technology"`
	ParentID      *uuid.UUID     `json:"parent_id,omitempty"`
	LeetcodeLinks []LeetcodeLink `json:"leetcode_links,omitempty"`
}

// Validate applies the topic field rules to a create request and fills
// in defaults. Returns nil when the request is acceptable.
func (c *TopicCreate) Validate() FieldErrors {
	var errs FieldErrors

	if fe := validateTitle(c.Title); fe != nil {
		errs = append(errs, *fe)
	}
	if c.Description != nil {
		if fe := validateDescription(*c.Description); fe != nil {
			errs = append(errs, *fe)
		}
	}
	if c.Status == "" {
		c.Status = StatusNotStarted
	} else if fe := validateStatus(c.Status); fe != nil {
		errs = append(errs, *fe)
	}
	if fe := validateTechnology(c.Technology); fe != nil {
		errs = append(errs, *fe)
	}
	if linkErrs := validateLeetcodeLinks(c.LeetcodeLinks); len(linkErrs) > 0 {
		errs = append(errs, linkErrs...)
	}
	if c.LeetcodeLinks == nil {
		c.LeetcodeLinks = []LeetcodeLink{}
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

// TopicFilter narrows and orders a topic listing. Zero values mean
// "no filter". The sort column is whitelisted by the repository.
type TopicFilter struct {
	Technology string
	Status     TopicStatus
	ParentID   *uuid.UUID
	SortBy     string
	Ascending  bool
	Limit      int
	Offset     int
}
