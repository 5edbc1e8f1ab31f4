package webauthn

import (
	"github.com/aoneahsan/webauthn-server-buildkit/cose"
	"github.com/aoneahsan/webauthn-server-buildkit/internal/cbor"
)

// decodeStoredCOSEKey parses the raw CBOR bytes of a persisted
// credential's public key back into a cose.Key for signature
// verification.
func decodeStoredCOSEKey(raw []byte) (cose.Key, error) {
	key, err := cose.Decode(raw)
	if err != nil {
		return cose.Key{}, newError(CodeCoseUnsupportedKeyType, "decoding stored credential public key: %v", err)
	}
	return key, nil
}

// RegistrationOptions customises a single call to BeginRegistration
// beyond the RelyingParty's defaults.
type RegistrationOptions struct {
	ExcludeCredentials         []PublicKeyCredentialDescriptor
	AuthenticatorSelection     *AuthenticatorSelection
	PreferredAuthenticatorType PreferredAuthenticatorType
	Extensions                 map[string]interface{}
	Timeout                    uint32
	Attestation                AttestationPreference
}

// RegistrationChallenge is the result of BeginRegistration: the options
// to send to the client, and the raw challenge the caller must persist
// (typically via a ChallengeStore) to verify the matching response.
type RegistrationChallenge struct {
	Options   *PublicKeyCredentialCreationOptions
	Challenge string
}

// BeginRegistration builds a PublicKeyCredentialCreationOptions for the
// given user, per §4.G options generation.
func (rp *RelyingParty) BeginRegistration(user User, opts *RegistrationOptions) (*RegistrationChallenge, error) {
	if opts == nil {
		opts = &RegistrationOptions{}
	}

	challengeBytes, err := randomBytes(rp.ChallengeSizeBytes)
	if err != nil {
		return nil, newError(CodeConfigurationError, "generating challenge: %v", err)
	}
	challenge := EncodeBase64URL(challengeBytes)

	userHandle, err := randomBytes(32)
	if err != nil {
		return nil, newError(CodeConfigurationError, "generating webauthn user handle: %v", err)
	}

	selection := rp.composeAuthenticatorSelection(opts)

	attestation := rp.AttestationPreference
	if opts.Attestation != "" {
		attestation = opts.Attestation
	}

	timeout := rp.OperationTimeoutMS
	if opts.Timeout != 0 {
		timeout = opts.Timeout
	}

	creationOpts := &PublicKeyCredentialCreationOptions{
		Challenge: challenge,
		RP: PublicKeyCredentialRpEntity{
			ID:   rp.RPID,
			Name: rp.RPName,
		},
		User: PublicKeyCredentialUserEntity{
			ID:          EncodeBase64URL(userHandle),
			Name:        user.Username,
			DisplayName: user.displayName(),
		},
		PubKeyCredParams:       pubKeyCredParams(rp.SupportedAlgorithms),
		Timeout:                timeout,
		ExcludeCredentials:     opts.ExcludeCredentials,
		AuthenticatorSelection: selection,
		Attestation:            attestation,
		Extensions:             opts.Extensions,
	}

	return &RegistrationChallenge{Options: creationOpts, Challenge: challenge}, nil
}

// composeAuthenticatorSelection layers {default residentKey=preferred,
// userVerification=policy} <- config <- call overrides, per §4.G step 3.
func (rp *RelyingParty) composeAuthenticatorSelection(opts *RegistrationOptions) *AuthenticatorSelection {
	sel := AuthenticatorSelection{
		ResidentKey:      ResidentKeyPreferred,
		UserVerification: rp.UserVerificationPolicy,
	}

	if rp.AuthenticatorSelection != nil {
		mergeAuthenticatorSelection(&sel, rp.AuthenticatorSelection)
	}
	if opts.AuthenticatorSelection != nil {
		mergeAuthenticatorSelection(&sel, opts.AuthenticatorSelection)
	}

	if attachment := attachmentForPreferredType(opts.PreferredAuthenticatorType); attachment != "" {
		sel.AuthenticatorAttachment = attachment
	}

	return &sel
}

func mergeAuthenticatorSelection(base, override *AuthenticatorSelection) {
	if override.AuthenticatorAttachment != "" {
		base.AuthenticatorAttachment = override.AuthenticatorAttachment
	}
	if override.ResidentKey != "" {
		base.ResidentKey = override.ResidentKey
		base.RequireResidentKey = override.ResidentKey == ResidentKeyRequired
	}
	if override.UserVerification != "" {
		base.UserVerification = override.UserVerification
	}
}

// attachmentForPreferredType maps the higher-level preferred_authenticator_type
// hint down to an AuthenticatorAttachment value, per §4.G step 3:
// security_key -> cross-platform, local_device -> platform,
// remote_device -> attachment left unset.
func attachmentForPreferredType(pref PreferredAuthenticatorType) AuthenticatorAttachment {
	switch pref {
	case PreferredSecurityKey:
		return AttachmentCrossPlatform
	case PreferredLocalDevice:
		return AttachmentPlatform
	default:
		return ""
	}
}

func pubKeyCredParams(algs []Algorithm) []PublicKeyCredentialParameters {
	params := make([]PublicKeyCredentialParameters, len(algs))
	for i, alg := range algs {
		params[i] = PublicKeyCredentialParameters{Type: "public-key", Alg: alg}
	}
	return params
}

// RegistrationVerifyInput bundles the ceremony context VerifyRegistration
// needs beyond the credential envelope itself.
type RegistrationVerifyInput struct {
	ExpectedChallenge string
	ExpectedOrigins   []string // falls back to RelyingParty.Origins when empty
	ExpectedRPIDs     []string // falls back to []string{RelyingParty.RPID} when empty
	RequireUV         *bool    // falls back to UserVerificationPolicy == required when nil
}

// VerifyRegistration validates a client's RegistrationCredential envelope
// against the ceremony context, per §4.G response verification.
func (rp *RelyingParty) VerifyRegistration(cred *RegistrationCredential, in RegistrationVerifyInput) (*VerifiedRegistrationInfo, error) {
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

	cd, clientDataRaw, err := parseClientData(cred.Response.ClientDataJSON)
	if err != nil {
		return nil, err
	}

	if err := verifyClientDataType(cd, clientDataTypeCreate); err != nil {
		return nil, err
	}
	if err := verifyChallenge(cd, in.ExpectedChallenge); err != nil {
		return nil, err
	}
	matchedOrigin, err := verifyOrigin(cd, origins)
	if err != nil {
		return nil, err
	}

	attestationObjectBytes, err := DecodeBase64URL(cred.Response.AttestationObject)
	if err != nil {
		return nil, newError(CodeCborDecodeError, "attestationObject is not valid base64url: %v", err)
	}

	rawAuthData, fmtName, err := decodeAttestationObject(attestationObjectBytes)
	if err != nil {
		return nil, err
	}
	_ = fmtName // format is accepted without statement validation, per §4.G "no attestation statement verification"

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

	if authData.AttestedCredentialData == nil || len(authData.AttestedCredentialData.CredentialID) == 0 {
		return nil, newError(CodeMissingCredentialData, "authenticator data has no attested credential data")
	}

	deviceType := DeviceTypeSingle
	if authData.BackupEligible {
		deviceType = DeviceTypeMultiple
	}

	var aaguid []byte
	if authData.AttestedCredentialData.AAGUID != [16]byte{} {
		aaguid = append([]byte(nil), authData.AttestedCredentialData.AAGUID[:]...)
	}

	_ = clientDataRaw // used only for the hash in the original verification procedure; attestation statement verification is out of scope (§4.G)

	return &VerifiedRegistrationInfo{
		CredentialID:         EncodeBase64URL(authData.AttestedCredentialData.CredentialID),
		PublicKeyCOSE:        authData.AttestedCredentialData.RawCredentialKey,
		Counter:              authData.SignCount,
		Transports:           cred.Response.Transports,
		CredentialDeviceType: deviceType,
		BackedUp:             authData.BackupState,
		Origin:               matchedOrigin,
		RPID:                 matchedRPID,
		UserVerified:         authData.UserVerified,
		AAGUID:               aaguid,
	}, nil
}

// decodeAttestationObject CBOR-decodes the attestationObject map and
// returns its authData bytes and fmt identifier, tolerating either
// integer- or text-keyed top-level representations per §6.2.
func decodeAttestationObject(b []byte) ([]byte, string, error) {
	v, err := cbor.Decode(b)
	if err != nil {
		return nil, "", newError(CodeCborDecodeError, "decoding attestation object: %v", err)
	}
	if v.Kind() != cbor.KindMap {
		return nil, "", newError(CodeCborDecodeError, "attestation object is not a CBOR map")
	}
	m := v.Map()

	authDataVal, ok := m.GetText("authData")
	if !ok {
		authDataVal, ok = m.GetInt(1)
	}
	if !ok {
		return nil, "", newError(CodeCborDecodeError, "attestation object missing authData")
	}
	fmtVal, ok := m.GetText("fmt")
	if !ok {
		fmtVal, ok = m.GetInt(2)
	}
	if !ok {
		return nil, "", newError(CodeCborDecodeError, "attestation object missing fmt")
	}

	return authDataVal.Bytes(), fmtVal.Text(), nil
}
