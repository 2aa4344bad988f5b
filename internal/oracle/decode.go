package oracle

import (
	"encoding/json"
	"errors"
	"regexp"
	"strings"

	"resourcemap/internal/domain"
)

var fenceRe = regexp.MustCompile("^```(?:json)?\\s*|\\s*```$")

// cleanJSON strips surrounding whitespace and a Markdown code fence that
// models sometimes wrap their JSON in.
func cleanJSON(raw string) string {
	return strings.TrimSpace(fenceRe.ReplaceAllString(strings.TrimSpace(raw), ""))
}

// Decode parses a provider reply into a normalized model. Only malformed JSON
// and missing required fields fail; an unknown status becomes In-progress and
// an ETA that is not a date is kept as written.
func Decode(provider, raw string) (domain.Model, error) {
	body := cleanJSON(raw)
	if body == "" {
		return domain.Model{}, newError(KindMalformed, provider, nil, "%s returned an empty response", provider)
	}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal([]byte(body), &fields); err != nil {
		return domain.Model{}, newError(KindMalformed, provider, err, "%s returned malformed JSON: %v", provider, err)
	}
	var missing []string
	for _, key := range requiredCollections {
		if _, ok := fields[key]; !ok {
			missing = append(missing, key)
		}
	}
	if len(missing) > 0 {
		return domain.Model{}, newError(KindMalformed, provider, nil, "%s response is missing %s", provider, strings.Join(missing, ", "))
	}
	var m domain.Model
	if err := json.Unmarshal([]byte(body), &m); err != nil {
		return domain.Model{}, newError(KindMalformed, provider, err, "%s returned data that does not match the model: %v", provider, err)
	}
	m.Normalize()
	m.CoerceStatuses()
	if err := m.ValidateRequired(); err != nil {
		var verr *domain.ValidationError
		if errors.As(err, &verr) {
			return domain.Model{}, newError(KindMalformed, provider, err, "%s returned an incomplete model: %s", provider, strings.Join(verr.Issues, "; "))
		}
		return domain.Model{}, newError(KindMalformed, provider, err, "%s returned an invalid model: %v", provider, err)
	}
	return m, nil
}
