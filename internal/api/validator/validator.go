// Package validator checks scoring API requests and returns per-field error
// details.
package validator

import (
	"fmt"
	"math"
	"sort"
	"strings"
	"unicode"

	"github.com/Adithya-Monish-Kumar-K/Dictionary-Text-Analytics/internal/api"
	"github.com/Adithya-Monish-Kumar-K/Dictionary-Text-Analytics/internal/scorer"
)

const (
	maxIDLength    = 255
	maxLabelLength = 255
	maxTextLength  = 1048576
	maxTokens      = 200000
	maxGroups      = 1000
	maxGroupTerms  = 100000
	maxDocuments   = 10000
)

// ValidationError holds per-field validation failure messages.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	fields := make([]string, 0, len(e.Fields))
	for field := range e.Fields {
		fields = append(fields, field)
	}
	sort.Strings(fields)
	parts := make([]string, 0, len(fields))
	for _, field := range fields {
		parts = append(parts, fmt.Sprintf("%s:%s", field, e.Fields[field]))
	}
	return strings.Join(parts, "; ")
}

// ValidateScoreRequest requires at most one of text or tokens. An empty
// document is valid: its proportions are reported as undefined, not rejected.
func ValidateScoreRequest(req *api.ScoreRequest) error {
	errs := make(map[string]string)
	checkDocument(errs, "", req)
	if len(errs) > 0 {
		return &ValidationError{Fields: errs}
	}
	return nil
}

func checkDocument(errs map[string]string, prefix string, req *api.ScoreRequest) {
	if len(req.ID) > maxIDLength {
		errs[prefix+"id"] = fmt.Sprintf("id must be at most %d characters", maxIDLength)
	}
	if len(req.Label) > maxLabelLength {
		errs[prefix+"label"] = fmt.Sprintf("label must be at most %d characters", maxLabelLength)
	}
	switch {
	case req.Text != "" && req.Tokens != nil:
		errs[prefix+"text"] = "text and tokens are mutually exclusive"
	case len(req.Text) > maxTextLength:
		errs[prefix+"text"] = fmt.Sprintf("text must be at most %d characters", maxTextLength)
	case len(req.Tokens) > maxTokens:
		errs[prefix+"tokens"] = fmt.Sprintf("at most %d tokens are accepted", maxTokens)
	}
	for i, tok := range req.Tokens {
		if strings.TrimSpace(tok) == "" {
			errs[prefix+"tokens"] = fmt.Sprintf("token %d is blank", i)
			break
		}
		if strings.ContainsFunc(tok, unicode.IsControl) {
			errs[prefix+"tokens"] = fmt.Sprintf("token %d contains a control character", i)
			break
		}
	}
}

// ValidateRankRequest checks the group table. Scores must be finite.
func ValidateRankRequest(req *api.RankRequest) error {
	errs := make(map[string]string)

	if len(req.Groups) == 0 {
		errs["groups"] = "at least one group is required"
	} else if len(req.Groups) > maxGroups {
		errs["groups"] = fmt.Sprintf("at most %d groups are accepted", maxGroups)
	}
	if req.TopK < 0 {
		errs["top_k"] = "top_k must not be negative"
	}
	for group, terms := range req.Groups {
		field := "groups." + group
		if len(terms) > maxGroupTerms {
			errs[field] = fmt.Sprintf("at most %d terms per group are accepted", maxGroupTerms)
			continue
		}
		for _, ts := range terms {
			if ts.Term == "" {
				errs[field] = "terms must not be empty"
				break
			}
			if math.IsNaN(ts.Score) || math.IsInf(ts.Score, 0) {
				errs[field] = fmt.Sprintf("score for %q must be finite", ts.Term)
				break
			}
		}
	}
	if len(errs) > 0 {
		return &ValidationError{Fields: errs}
	}
	return nil
}

// ValidateDistinctiveRequest checks every document and the aggregation name.
func ValidateDistinctiveRequest(req *api.DistinctiveRequest) error {
	errs := make(map[string]string)

	switch {
	case len(req.Documents) == 0:
		errs["documents"] = "at least one document is required"
	case len(req.Documents) > maxDocuments:
		errs["documents"] = fmt.Sprintf("at most %d documents are accepted", maxDocuments)
	default:
		for i := range req.Documents {
			checkDocument(errs, fmt.Sprintf("documents[%d].", i), &req.Documents[i])
		}
	}
	if req.Aggregation != "" {
		if _, err := scorer.ParseAggregation(req.Aggregation); err != nil {
			errs["aggregation"] = "aggregation must be max or mean"
		}
	}
	if req.TopK < 0 {
		errs["top_k"] = "top_k must not be negative"
	}
	if len(errs) > 0 {
		return &ValidationError{Fields: errs}
	}
	return nil
}
