// Package authparams models the optional Google authorization parameters
// (access_type, prompt, include_granted_scopes, login_hint) and the scope
// list. Values are parsed leniently from query strings or JSON, normalized
// into typed values, and serialized back to the exact provider query
// parameters. The same normalized set is replayed at exchange time so
// consent semantics stay consistent across the two halves of the flow.
package authparams

import (
	"encoding/json"
	"fmt"
	"strings"

	"golang.org/x/oauth2"
)

// AccessType controls whether Google issues a refresh token. Offline access
// is what makes a refresh token possible at all.
type AccessType string

const (
	AccessTypeOnline  AccessType = "online"
	AccessTypeOffline AccessType = "offline"
)

// ParseAccessType validates an access_type value. Empty input yields the
// online default.
func ParseAccessType(s string) (AccessType, error) {
	switch s {
	case "":
		return AccessTypeOnline, nil
	case string(AccessTypeOnline):
		return AccessTypeOnline, nil
	case string(AccessTypeOffline):
		return AccessTypeOffline, nil
	default:
		return "", fmt.Errorf("invalid access_type value: %q", s)
	}
}

// Prompt is a single value of the prompt parameter.
type Prompt string

const (
	PromptNone          Prompt = "none"
	PromptConsent       Prompt = "consent"
	PromptSelectAccount Prompt = "select_account"
)

// ParsePrompt validates a single prompt token.
func ParsePrompt(s string) (Prompt, error) {
	switch s {
	case string(PromptNone):
		return PromptNone, nil
	case string(PromptConsent):
		return PromptConsent, nil
	case string(PromptSelectAccount):
		return PromptSelectAccount, nil
	default:
		return "", fmt.Errorf("invalid prompt value: %q", s)
	}
}

// PromptList is the ordered prompt parameter, serialized space-joined.
type PromptList []Prompt

// DefaultPromptList prompts for consent, which is required for Google to
// issue a refresh token on repeat authorizations.
func DefaultPromptList() PromptList {
	return PromptList{PromptConsent}
}

// ParsePromptList parses a comma- or space-delimited prompt string. Empty
// input yields the default.
func ParsePromptList(s string) (PromptList, error) {
	tokens := strings.FieldsFunc(s, func(r rune) bool {
		return r == ',' || r == ' '
	})
	if len(tokens) == 0 {
		return DefaultPromptList(), nil
	}

	list := make(PromptList, 0, len(tokens))
	for _, tok := range tokens {
		p, err := ParsePrompt(strings.TrimSpace(tok))
		if err != nil {
			return nil, err
		}
		list = append(list, p)
	}
	return list, nil
}

// String joins the prompts with spaces, the form Google expects.
func (p PromptList) String() string {
	parts := make([]string, len(p))
	for i, v := range p {
		parts[i] = string(v)
	}
	return strings.Join(parts, " ")
}

// MarshalJSON serializes the list as its space-joined string form.
func (p PromptList) MarshalJSON() ([]byte, error) {
	return json.Marshal(p.String())
}

// UnmarshalJSON accepts either an array of prompt strings or a single
// delimited string.
func (p *PromptList) UnmarshalJSON(data []byte) error {
	var asList []string
	if err := json.Unmarshal(data, &asList); err == nil {
		list := make(PromptList, 0, len(asList))
		for _, tok := range asList {
			prompt, err := ParsePrompt(tok)
			if err != nil {
				return err
			}
			list = append(list, prompt)
		}
		if len(list) == 0 {
			list = DefaultPromptList()
		}
		*p = list
		return nil
	}

	var asString string
	if err := json.Unmarshal(data, &asString); err != nil {
		return fmt.Errorf("prompt must be a string or an array of strings")
	}
	list, err := ParsePromptList(asString)
	if err != nil {
		return err
	}
	*p = list
	return nil
}

// IncludeGrantedScopes enables Google's incremental authorization. Accepted
// as a JSON bool or the literal strings "true"/"false"; defaults to true.
type IncludeGrantedScopes bool

// MarshalJSON serializes as a plain bool.
func (g IncludeGrantedScopes) MarshalJSON() ([]byte, error) {
	return json.Marshal(bool(g))
}

// UnmarshalJSON accepts a bool or the strings "true" and "false".
func (g *IncludeGrantedScopes) UnmarshalJSON(data []byte) error {
	var asBool bool
	if err := json.Unmarshal(data, &asBool); err == nil {
		*g = IncludeGrantedScopes(asBool)
		return nil
	}

	var asString string
	if err := json.Unmarshal(data, &asString); err != nil {
		return fmt.Errorf(`include_granted_scopes must be "true", "false", true, or false`)
	}
	v, err := parseIncludeGrantedScopes(asString)
	if err != nil {
		return err
	}
	*g = v
	return nil
}

func parseIncludeGrantedScopes(s string) (IncludeGrantedScopes, error) {
	switch s {
	case "", "true":
		return true, nil
	case "false":
		return false, nil
	default:
		return false, fmt.Errorf(`include_granted_scopes must be "true" or "false", got %q`, s)
	}
}

// ExtraParams is the normalized set of optional authorization parameters,
// chosen at authorization time and replayed unchanged at exchange time.
type ExtraParams struct {
	AccessType           AccessType           `json:"access_type"`
	Prompt               PromptList           `json:"prompt"`
	IncludeGrantedScopes IncludeGrantedScopes `json:"include_granted_scopes"`
	LoginHint            string               `json:"login_hint,omitempty"`
}

// DefaultExtraParams returns the defaults applied when a caller supplies
// nothing: online access, consent prompt, incremental authorization on.
func DefaultExtraParams() ExtraParams {
	return ExtraParams{
		AccessType:           AccessTypeOnline,
		Prompt:               DefaultPromptList(),
		IncludeGrantedScopes: true,
	}
}

// ParseExtraParams builds an ExtraParams from raw query values, applying
// defaults for absent parameters.
func ParseExtraParams(get func(string) string) (ExtraParams, error) {
	params := DefaultExtraParams()

	accessType, err := ParseAccessType(get("access_type"))
	if err != nil {
		return ExtraParams{}, err
	}
	params.AccessType = accessType

	prompt, err := ParsePromptList(get("prompt"))
	if err != nil {
		return ExtraParams{}, err
	}
	params.Prompt = prompt

	granted, err := parseIncludeGrantedScopes(get("include_granted_scopes"))
	if err != nil {
		return ExtraParams{}, err
	}
	params.IncludeGrantedScopes = granted

	params.LoginHint = get("login_hint")

	return params, nil
}

// UnmarshalJSON decodes the set applying the same defaults as
// DefaultExtraParams for absent fields. This is the cookie round-trip path.
func (p *ExtraParams) UnmarshalJSON(data []byte) error {
	var raw struct {
		AccessType           *string              `json:"access_type"`
		Prompt               *PromptList          `json:"prompt"`
		IncludeGrantedScopes *IncludeGrantedScopes `json:"include_granted_scopes"`
		LoginHint            string               `json:"login_hint"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	result := DefaultExtraParams()
	if raw.AccessType != nil {
		accessType, err := ParseAccessType(*raw.AccessType)
		if err != nil {
			return err
		}
		result.AccessType = accessType
	}
	if raw.Prompt != nil {
		result.Prompt = *raw.Prompt
	}
	if raw.IncludeGrantedScopes != nil {
		result.IncludeGrantedScopes = *raw.IncludeGrantedScopes
	}
	result.LoginHint = raw.LoginHint

	*p = result
	return nil
}

// AuthCodeOptions serializes the set as provider query parameters in a
// stable order. access_type and prompt are always emitted, defaults
// included; include_granted_scopes only when enabled; login_hint only when
// present.
func (p ExtraParams) AuthCodeOptions() []oauth2.AuthCodeOption {
	opts := []oauth2.AuthCodeOption{
		oauth2.SetAuthURLParam("access_type", string(p.AccessType)),
	}
	if bool(p.IncludeGrantedScopes) {
		opts = append(opts, oauth2.SetAuthURLParam("include_granted_scopes", "true"))
	}
	if p.LoginHint != "" {
		opts = append(opts, oauth2.SetAuthURLParam("login_hint", p.LoginHint))
	}
	prompt := p.Prompt
	if len(prompt) == 0 {
		prompt = DefaultPromptList()
	}
	opts = append(opts, oauth2.SetAuthURLParam("prompt", prompt.String()))
	return opts
}
