package oauth2flow

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// ErrMalformedRequest is returned when a stored authorization request cannot be decoded.
var ErrMalformedRequest = errors.New("malformed authorization request")

// Encode serializes req as URL-safe base64 JSON.
func Encode(req *AuthorizationRequest) (string, error) {
	b, err := json.Marshal(req)
	if err != nil {
		return "", fmt.Errorf("failed to encode authorization request: %w", err)
	}
	return base64.URLEncoding.EncodeToString(b), nil
}

// Decode reverses Encode. The clientId, authorizationUri, redirectUri and state fields are
// required; response and grant types may be plain strings or {"value": ...} objects and the
// response type is upper-cased. Unknown fields are ignored.
func Decode(encoded string) (*AuthorizationRequest, error) {
	raw, err := decodeBase64(encoded)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformedRequest, err)
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil {
		return nil, fmt.Errorf("%w: expected JSON object: %w", ErrMalformedRequest, err)
	}

	req := &AuthorizationRequest{
		Attributes:           map[string]any{},
		AdditionalParameters: map[string]any{},
		GrantType:            GrantTypeAuthorizationCode,
		ResponseType:         ResponseTypeCode,
	}

	for _, f := range []struct {
		name string
		dst  *string
	}{
		{"clientId", &req.ClientID},
		{"authorizationUri", &req.AuthorizationURI},
		{"redirectUri", &req.RedirectURI},
		{"state", &req.State},
	} {
		value, ok := stringField(fields, f.name)
		if !ok {
			return nil, fmt.Errorf("%w: missing required field '%s'", ErrMalformedRequest, f.name)
		}
		*f.dst = value
	}

	req.Scopes = scopesField(fields["scopes"])

	if v, ok := typeField(fields["responseType"]); ok {
		req.ResponseType = strings.ToUpper(v)
	}
	if v, ok := typeField(fields["grantType"]); ok {
		req.GrantType = v
	}

	if err := mapField(fields, "attributes", &req.Attributes); err != nil {
		return nil, err
	}
	if err := mapField(fields, "additionalParameters", &req.AdditionalParameters); err != nil {
		return nil, err
	}

	return req, nil
}

func decodeBase64(s string) ([]byte, error) {
	var lastErr error
	for _, enc := range []*base64.Encoding{base64.URLEncoding, base64.RawURLEncoding, base64.StdEncoding} {
		b, err := enc.DecodeString(s)
		if err == nil {
			return b, nil
		}
		lastErr = err
	}
	return nil, lastErr
}

func stringField(fields map[string]json.RawMessage, name string) (string, bool) {
	raw, ok := fields[name]
	if !ok {
		return "", false
	}
	var s *string
	if err := json.Unmarshal(raw, &s); err != nil || s == nil {
		return "", false
	}
	return *s, true
}

// scopesField keeps the string entries of a JSON array, de-duplicated in order.
// Anything other than an array yields no scopes.
func scopesField(raw json.RawMessage) []string {
	var items []json.RawMessage
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil
	}

	seen := make(map[string]bool, len(items))
	var scopes []string
	for _, item := range items {
		var s string
		if err := json.Unmarshal(item, &s); err != nil || seen[s] {
			continue
		}
		seen[s] = true
		scopes = append(scopes, s)
	}
	return scopes
}

func typeField(raw json.RawMessage) (string, bool) {
	if raw == nil {
		return "", false
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil && s != "" {
		return s, true
	}
	var wrapped struct {
		Value string `json:"value"`
	}
	if err := json.Unmarshal(raw, &wrapped); err == nil && wrapped.Value != "" {
		return wrapped.Value, true
	}
	return "", false
}

func mapField(fields map[string]json.RawMessage, name string, dst *map[string]any) error {
	raw, ok := fields[name]
	if !ok || string(raw) == "null" {
		return nil
	}
	var m map[string]any
	if err := json.Unmarshal(raw, &m); err != nil {
		return fmt.Errorf("%w: field '%s' must be an object", ErrMalformedRequest, name)
	}
	*dst = m
	return nil
}
