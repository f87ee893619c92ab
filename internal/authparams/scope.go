package authparams

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// ErrNoScopes is returned when scope parsing produces an empty list. An
// empty scope parameter must never silently become a no-scope request.
var ErrNoScopes = errors.New("scope must contain at least one scope")

// ScopeList is a non-empty ordered list of OAuth scope strings.
type ScopeList []string

// ParseScopes splits a space-separated scope string. Empty input is a
// validation error, not an empty list.
func ParseScopes(s string) (ScopeList, error) {
	scopes := strings.Fields(s)
	if len(scopes) == 0 {
		return nil, ErrNoScopes
	}
	return ScopeList(scopes), nil
}

// ParseScopeValues handles the query-string form, where the scope parameter
// may be repeated and each value may itself be space-separated.
func ParseScopeValues(values []string) (ScopeList, error) {
	var scopes ScopeList
	for _, v := range values {
		scopes = append(scopes, strings.Fields(v)...)
	}
	if len(scopes) == 0 {
		return nil, ErrNoScopes
	}
	return scopes, nil
}

// String joins the scopes with spaces.
func (s ScopeList) String() string {
	return strings.Join(s, " ")
}

// UnmarshalJSON accepts either a space-separated string or an array of
// strings; both must produce at least one scope.
func (s *ScopeList) UnmarshalJSON(data []byte) error {
	var asList []string
	if err := json.Unmarshal(data, &asList); err == nil {
		if len(asList) == 0 {
			return ErrNoScopes
		}
		*s = ScopeList(asList)
		return nil
	}

	var asString string
	if err := json.Unmarshal(data, &asString); err != nil {
		return fmt.Errorf("scope must be a string or an array of strings")
	}
	parsed, err := ParseScopes(asString)
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}
