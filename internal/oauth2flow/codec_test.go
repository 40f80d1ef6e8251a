package oauth2flow

import (
	"encoding/base64"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeDecode(t *testing.T) {
	req, err := NewPKCECustomizer().Customize(NewAuthorizationRequest(testConfig(), "state-1"))
	require.NoError(t, err)

	encoded, err := Encode(req)
	require.NoError(t, err)

	decoded, err := Decode(encoded)
	require.NoError(t, err)

	assert.Equal(t, req.ClientID, decoded.ClientID)
	assert.Equal(t, req.AuthorizationURI, decoded.AuthorizationURI)
	assert.Equal(t, req.RedirectURI, decoded.RedirectURI)
	assert.Equal(t, req.State, decoded.State)
	assert.Equal(t, req.Scopes, decoded.Scopes)
	assert.Equal(t, ResponseTypeCode, decoded.ResponseType)
	assert.Equal(t, req.CodeVerifier(), decoded.CodeVerifier())
	assert.Equal(t, req.AdditionalParameters, decoded.AdditionalParameters)
}

func encodeJSON(s string) string {
	return base64.URLEncoding.EncodeToString([]byte(s))
}

func TestDecode_RequiredFields(t *testing.T) {
	tests := map[string]string{
		"clientId":         `{"authorizationUri":"a","redirectUri":"r","state":"s"}`,
		"authorizationUri": `{"clientId":"c","redirectUri":"r","state":"s"}`,
		"redirectUri":      `{"clientId":"c","authorizationUri":"a","state":"s"}`,
		"state":            `{"clientId":"c","authorizationUri":"a","redirectUri":"r","state":null}`,
	}
	for field, body := range tests {
		t.Run(field, func(t *testing.T) {
			_, err := Decode(encodeJSON(body))
			require.ErrorIs(t, err, ErrMalformedRequest)
			assert.Contains(t, err.Error(), field)
		})
	}
}

func TestDecode_ResponseTypeIsUpperCased(t *testing.T) {
	for _, body := range []string{
		`{"clientId":"c","authorizationUri":"a","redirectUri":"r","state":"s","responseType":"code"}`,
		`{"clientId":"c","authorizationUri":"a","redirectUri":"r","state":"s","responseType":{"value":"code"}}`,
	} {
		req, err := Decode(encodeJSON(body))
		require.NoError(t, err)
		assert.Equal(t, "CODE", req.ResponseType)
	}
}

func TestDecode_Lenient(t *testing.T) {
	body := `{
		"clientId":"c","authorizationUri":"a","redirectUri":"r","state":"s",
		"scopes":["openid",1,"email","openid"],
		"authorizationRequestUri":"ignored",
		"grantType":{"value":"authorization_code"}
	}`

	req, err := Decode(encodeJSON(body))
	require.NoError(t, err)
	assert.Equal(t, []string{"openid", "email"}, req.Scopes)
	assert.Equal(t, GrantTypeAuthorizationCode, req.GrantType)
	assert.NotNil(t, req.Attributes)
	assert.NotNil(t, req.AdditionalParameters)

	req, err = Decode(encodeJSON(`{"clientId":"c","authorizationUri":"a","redirectUri":"r","state":"s","scopes":"openid"}`))
	require.NoError(t, err)
	assert.Empty(t, req.Scopes)
}

func TestDecode_StandardAlphabet(t *testing.T) {
	body := `{"clientId":"c","authorizationUri":"a","redirectUri":"r","state":"s"}`

	req, err := Decode(base64.StdEncoding.EncodeToString([]byte(body)))
	require.NoError(t, err)
	assert.Equal(t, "c", req.ClientID)
}

func TestDecode_Malformed(t *testing.T) {
	for _, input := range []string{"%%%", encodeJSON("[1,2]"), encodeJSON("not json")} {
		_, err := Decode(input)
		assert.ErrorIs(t, err, ErrMalformedRequest)
	}

	_, err := Decode(encodeJSON(`{"clientId":"c","authorizationUri":"a","redirectUri":"r","state":"s","attributes":[]}`))
	assert.ErrorIs(t, err, ErrMalformedRequest)
}
