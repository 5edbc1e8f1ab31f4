package webauthn

// AuthenticationOptions customises a single call to BeginAuthentication
// beyond the RelyingParty's defaults.
type AuthenticationOptions struct {
	AllowCredentials []PublicKeyCredentialDescriptor
	UserVerification UserVerificationRequirement
	RPID             string
	Extensions       map[string]interface{}
	Timeout          uint32
}

// AuthenticationChallenge is the result of BeginAuthentication: the
// options to send to the client, and the raw challenge the caller must
// persist to verify the matching response.
type AuthenticationChallenge struct {
	Options   *PublicKeyCredentialRequestOptions
	Challenge string
}

// BeginAuthentication builds a PublicKeyCredentialRequestOptions, per
// §4.H options generation. If opts.AllowCredentials is empty the field is
// omitted entirely, enabling discoverable-credential flows.
func (rp *RelyingParty) BeginAuthentication(opts *AuthenticationOptions) (*AuthenticationChallenge, error) {
	if opts == nil {
		opts = &AuthenticationOptions{}
	}

	challengeBytes, err := randomBytes(rp.ChallengeSizeBytes)
	if err != nil {
		return nil, newError(CodeConfigurationError, "generating challenge: %v", err)
	}
	challenge := EncodeBase64URL(challengeBytes)

	userVerification := rp.UserVerificationPolicy
	if opts.UserVerification != "" {
		userVerification = opts.UserVerification
	}

	rpID := rp.RPID
	if opts.RPID != "" {
		rpID = opts.RPID
	}

	timeout := rp.OperationTimeoutMS
	if opts.Timeout != 0 {
		timeout = opts.Timeout
	}

	requestOpts := &PublicKeyCredentialRequestOptions{
		Challenge:        challenge,
		Timeout:          timeout,
		RPID:             rpID,
		UserVerification: userVerification,
		Extensions:       opts.Extensions,
	}
	if len(opts.AllowCredentials) > 0 {
		requestOpts.AllowCredentials = opts.AllowCredentials
	}

	return &AuthenticationChallenge{Options: requestOpts, Challenge: challenge}, nil
}

// AuthenticationVerifyInput bundles the ceremony context
// VerifyAuthentication needs beyond the credential envelope and the
// stored credential it asserts against.
type AuthenticationVerifyInput struct {
	ExpectedChallenge string
	ExpectedOrigins   []string // falls back to RelyingParty.Origins when empty
	ExpectedRPIDs     []string // falls back to []string{RelyingParty.RPID} when empty
	RequireUV         *bool    // falls back to UserVerificationPolicy == required when nil
	StoredCredential  *WebAuthnCredential
}

// VerifyAuthentication validates a client's AuthenticationCredential
// envelope against the ceremony context and the previously stored
// credential, per §4.H response verification. The caller is responsible
// for persisting VerifiedAuthenticationInfo.NewCounter and the updated
// last-used timestamp on success.
func (rp *RelyingParty) VerifyAuthentication(cred *AuthenticationCredential, in AuthenticationVerifyInput) (*VerifiedAuthenticationInfo, error) {
	if in.StoredCredential == nil {
		return nil, newError(CodeCredentialIDMismatch, "no stored credential was provided to verify against")
	}

	origins := in.ExpectedOrigins
	if len(origins) == 0 {
		origins = rp.Origins
	}
	rpIDs := in.ExpectedRPIDs
	if len(rpIDs) == 0 {
		rpIDs = []string{rp.RPID}
	}
	requireUV := rp.UserVerificationPolicy == VerificationRequired
	if in.RequireUV != nil {
		requireUV = *in.RequireUV
	}

	// 1. response.id must equal credential.credential_id.
	respID, err := DecodeBase64URL(cred.ID)
	if err != nil {
		return nil, newError(CodeCredentialIDMismatch, "credential id is not valid base64url: %v", err)
	}
	if !ConstantTimeEqual(respID, in.StoredCredential.CredentialID) {
		return nil, newError(CodeCredentialIDMismatch, "response credential id does not match the stored credential")
	}

	cd, clientDataRaw, err := parseClientData(cred.Response.ClientDataJSON)
	if err != nil {
		return nil, err
	}

	if err := verifyClientDataType(cd, clientDataTypeGet); err != nil {
		return nil, err
	}
	if err := verifyChallenge(cd, in.ExpectedChallenge); err != nil {
		return nil, err
	}
	matchedOrigin, err := verifyOrigin(cd, origins)
	if err != nil {
		return nil, err
	}

	rawAuthData, err := DecodeBase64URL(cred.Response.AuthenticatorData)
	if err != nil {
		return nil, newError(CodeAuthenticatorDataTooShort, "authenticatorData is not valid base64url: %v", err)
	}
	authData, err := parseAuthenticatorData(rawAuthData)
	if err != nil {
		return nil, err
	}

	matchedRPID, err := matchRPIDHash(authData.RPIDHash, rpIDs)
	if err != nil {
		return nil, err
	}

	if err := authData.requireFlags(true, requireUV); err != nil {
		return nil, err
	}

	// Counter rule (§4.H step 7 / §8): skip the check only when both the
	// stored and presented counters are zero; otherwise require a strict
	// increase.
	newCounter := authData.SignCount
	oldCounter := in.StoredCredential.Counter
	if !(newCounter == 0 && oldCounter == 0) {
		if newCounter <= oldCounter {
			return nil, newError(CodeCounterError, "authenticator signature counter did not advance: stored=%d presented=%d", oldCounter, newCounter)
		}
	}

	key, err := decodeStoredCOSEKey(in.StoredCredential.PublicKeyCOSE)
	if err != nil {
		return nil, err
	}

	sigBytes, err := DecodeBase64URL(cred.Response.Signature)
	if err != nil {
		return nil, newError(CodeSignatureVerificationFailed, "signature is not valid base64url: %v", err)
	}

	clientDataHash := sha256Sum(clientDataRaw)
	signingInput := append(append([]byte(nil), rawAuthData...), clientDataHash...)

	ok, err := verifySignature(key, signingInput, sigBytes)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, newError(CodeSignatureVerificationFailed, "signature verification failed")
	}

	return &VerifiedAuthenticationInfo{
		CredentialID: EncodeBase64URL(in.StoredCredential.CredentialID),
		NewCounter:   newCounter,
		Origin:       matchedOrigin,
		RPID:         matchedRPID,
		UserVerified: authData.UserVerified,
	}, nil
}
