package webauthn

import "encoding/json"

const (
	clientDataTypeCreate = "webauthn.create"
	clientDataTypeGet    = "webauthn.get"
)

// parseClientData decodes a Base64URL clientDataJSON field into its UTF-8
// JSON object form.
func parseClientData(clientDataJSONB64 string) (*CollectedClientData, []byte, error) {
	raw, err := DecodeBase64URL(clientDataJSONB64)
	if err != nil {
		return nil, nil, newError(CodeInvalidClientDataType, "clientDataJSON is not valid base64url: %v", err)
	}

	var cd CollectedClientData
	if err := json.Unmarshal(raw, &cd); err != nil {
		return nil, nil, newError(CodeInvalidClientDataType, "clientDataJSON is not valid JSON: %v", err)
	}

	return &cd, raw, nil
}

// verifyClientDataType checks clientData.type against the expected
// ceremony type.
func verifyClientDataType(cd *CollectedClientData, want string) error {
	if cd.Type != want {
		return newError(CodeInvalidClientDataType, "clientData.type is %q, want %q", cd.Type, want)
	}
	return nil
}

// verifyChallenge checks clientData.challenge against the expected
// challenge byte-for-byte, in constant time.
func verifyChallenge(cd *CollectedClientData, expectedChallenge string) error {
	got, err := DecodeBase64URL(cd.Challenge)
	if err != nil {
		return newError(CodeChallengeMismatch, "clientData.challenge is not valid base64url: %v", err)
	}
	want, err := DecodeBase64URL(expectedChallenge)
	if err != nil {
		return newError(CodeChallengeMismatch, "expected challenge is not valid base64url: %v", err)
	}
	if !ConstantTimeEqual(got, want) {
		return newError(CodeChallengeMismatch, "clientData.challenge does not match the expected challenge")
	}
	return nil
}

// verifyOrigin checks clientData.origin is a member of the expected
// origin set, with case-sensitive, exact string matching.
func verifyOrigin(cd *CollectedClientData, expectedOrigins []string) (string, error) {
	for _, o := range expectedOrigins {
		if cd.Origin == o {
			return o, nil
		}
	}
	return "", newError(CodeOriginMismatch, "clientData.origin %q is not in the expected origin set", cd.Origin)
}

// matchRPIDHash computes SHA-256 of each candidate RP-ID and
// constant-time compares it to the authenticator-supplied hash, returning
// the matched RP-ID.
func matchRPIDHash(rpIDHash [32]byte, candidates []string) (string, error) {
	for _, id := range candidates {
		h := sha256Sum([]byte(id))
		if ConstantTimeEqual(h, rpIDHash[:]) {
			return id, nil
		}
	}
	return "", newError(CodeRPIDMismatch, "authenticator data rp_id_hash does not match any expected RP ID")
}
