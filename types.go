package webauthn

import "time"

// AttestationPreference is the Relying Party's preference for how much
// attestation information an authenticator should convey at registration.
type AttestationPreference string

const (
	AttestationNone       AttestationPreference = "none"
	AttestationIndirect   AttestationPreference = "indirect"
	AttestationDirect     AttestationPreference = "direct"
	AttestationEnterprise AttestationPreference = "enterprise"
)

// UserVerificationRequirement describes how strongly a ceremony should
// insist on user verification (as opposed to mere user presence).
type UserVerificationRequirement string

const (
	VerificationRequired    UserVerificationRequirement = "required"
	VerificationPreferred   UserVerificationRequirement = "preferred"
	VerificationDiscouraged UserVerificationRequirement = "discouraged"
)

// ResidentKeyRequirement describes the Relying Party's need for a
// discoverable (resident) credential.
type ResidentKeyRequirement string

const (
	ResidentKeyRequired    ResidentKeyRequirement = "required"
	ResidentKeyPreferred   ResidentKeyRequirement = "preferred"
	ResidentKeyDiscouraged ResidentKeyRequirement = "discouraged"
)

// AuthenticatorAttachment constrains which class of authenticator a
// ceremony will accept.
type AuthenticatorAttachment string

const (
	AttachmentPlatform      AuthenticatorAttachment = "platform"
	AttachmentCrossPlatform AuthenticatorAttachment = "cross-platform"
)

// PreferredAuthenticatorType is a higher-level hint a caller can give in
// place of AuthenticatorAttachment; it is mapped down to an attachment
// value when building options.
type PreferredAuthenticatorType string

const (
	PreferredSecurityKey   PreferredAuthenticatorType = "security_key"
	PreferredLocalDevice    PreferredAuthenticatorType = "local_device"
	PreferredRemoteDevice   PreferredAuthenticatorType = "remote_device"
)

// AuthenticatorTransport is a hint as to how a client might communicate
// with an authenticator for a given credential.
type AuthenticatorTransport string

const (
	TransportUSB       AuthenticatorTransport = "usb"
	TransportNFC       AuthenticatorTransport = "nfc"
	TransportBLE       AuthenticatorTransport = "ble"
	TransportHybrid    AuthenticatorTransport = "hybrid"
	TransportInternal  AuthenticatorTransport = "internal"
	TransportCable     AuthenticatorTransport = "cable"
	TransportSmartCard AuthenticatorTransport = "smart-card"
)

// CredentialDeviceType classifies whether a credential's key material is
// bound to a single authenticator or may be synced across devices.
type CredentialDeviceType string

const (
	DeviceTypeSingle   CredentialDeviceType = "singleDevice"
	DeviceTypeMultiple CredentialDeviceType = "multiDevice"
)

// AuthenticatorSelection carries a Relying Party's or caller's hints about
// which authenticators are acceptable for a registration ceremony.
type AuthenticatorSelection struct {
	AuthenticatorAttachment AuthenticatorAttachment     `json:"authenticatorAttachment,omitempty"`
	ResidentKey             ResidentKeyRequirement      `json:"residentKey,omitempty"`
	RequireResidentKey      bool                        `json:"requireResidentKey,omitempty"`
	UserVerification        UserVerificationRequirement `json:"userVerification,omitempty"`
}

// User is the application-level identity a credential is registered to.
// Id is the application's own user identifier, distinct from the
// WebAuthn user handle minted at registration time.
type User struct {
	ID          string `json:"id"`
	Username    string `json:"username"`
	DisplayName string `json:"displayName,omitempty"`
}

func (u User) displayName() string {
	if u.DisplayName != "" {
		return u.DisplayName
	}
	return u.Username
}

// WebAuthnCredential is the durable record a caller persists after a
// successful registration ceremony, and looks up to verify subsequent
// authentications.
type WebAuthnCredential struct {
	CredentialID   []byte
	PublicKeyCOSE  []byte
	Counter        uint32
	Transports     []AuthenticatorTransport
	DeviceType     CredentialDeviceType
	BackedUp       bool
	UserID         string
	WebAuthnUserID []byte
	CreatedAt      time.Time
	LastUsedAt     *time.Time
	AAGUID         []byte
}

// ChallengeOperation distinguishes a registration ceremony's challenge
// from an authentication ceremony's challenge.
type ChallengeOperation string

const (
	OperationRegistration  ChallengeOperation = "registration"
	OperationAuthentication ChallengeOperation = "authentication"
)

// ChallengeData is the transient, TTL-bound record tracking a single
// outstanding ceremony challenge.
type ChallengeData struct {
	Challenge string
	UserID    string
	Operation ChallengeOperation
	CreatedAt time.Time
	ExpiresAt time.Time
}

// Session is the authenticated state produced by a successful
// authentication ceremony, either held in the session store or carried
// detached inside a sealed token.
type Session struct {
	SessionID    string                 `json:"sessionId"`
	UserID       string                 `json:"userId"`
	CredentialID string                 `json:"credentialId"`
	UserVerified bool                   `json:"userVerified"`
	ExpiresAt    time.Time              `json:"expiresAt"`
	Extra        map[string]interface{} `json:"extra,omitempty"`
}

// --- Wire envelopes exchanged with the client (§6.2) ---

// PublicKeyCredentialRpEntity names the Relying Party in creation options.
type PublicKeyCredentialRpEntity struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Icon string `json:"icon,omitempty"`
}

// PublicKeyCredentialUserEntity names the user account in creation
// options, keyed by the WebAuthn user handle rather than the application
// user id.
type PublicKeyCredentialUserEntity struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	DisplayName string `json:"displayName"`
}

// PublicKeyCredentialParameters pairs a credential type with an
// acceptable signing algorithm.
type PublicKeyCredentialParameters struct {
	Type string    `json:"type"`
	Alg  Algorithm `json:"alg"`
}

// PublicKeyCredentialDescriptor references a specific credential, used in
// excludeCredentials and allowCredentials lists.
type PublicKeyCredentialDescriptor struct {
	Type       string                    `json:"type"`
	ID         string                    `json:"id"`
	Transports []AuthenticatorTransport `json:"transports,omitempty"`
}

// PublicKeyCredentialCreationOptions is handed to the client to drive a
// create() call.
type PublicKeyCredentialCreationOptions struct {
	Challenge              string                                `json:"challenge"`
	RP                      PublicKeyCredentialRpEntity           `json:"rp"`
	User                    PublicKeyCredentialUserEntity         `json:"user"`
	PubKeyCredParams        []PublicKeyCredentialParameters       `json:"pubKeyCredParams"`
	Timeout                 uint32                                `json:"timeout,omitempty"`
	ExcludeCredentials      []PublicKeyCredentialDescriptor       `json:"excludeCredentials,omitempty"`
	AuthenticatorSelection  *AuthenticatorSelection               `json:"authenticatorSelection,omitempty"`
	Attestation             AttestationPreference                 `json:"attestation,omitempty"`
	Extensions              map[string]interface{}                `json:"extensions,omitempty"`
}

// PublicKeyCredentialRequestOptions is handed to the client to drive a
// get() call.
type PublicKeyCredentialRequestOptions struct {
	Challenge        string                           `json:"challenge"`
	Timeout          uint32                            `json:"timeout,omitempty"`
	RPID             string                            `json:"rpId,omitempty"`
	AllowCredentials []PublicKeyCredentialDescriptor   `json:"allowCredentials,omitempty"`
	UserVerification UserVerificationRequirement       `json:"userVerification,omitempty"`
	Extensions       map[string]interface{}            `json:"extensions,omitempty"`
}

// TokenBinding reflects the client's use of the Token Binding protocol.
// Carried through for completeness; this core does not verify it against
// a live TLS connection.
type TokenBinding struct {
	Status string `json:"status"`
	ID     string `json:"id,omitempty"`
}

// CollectedClientData is the parsed form of clientDataJSON, as produced by
// the client during either ceremony.
type CollectedClientData struct {
	Type         string        `json:"type"`
	Challenge    string        `json:"challenge"`
	Origin       string        `json:"origin"`
	CrossOrigin  bool          `json:"crossOrigin,omitempty"`
	TokenBinding *TokenBinding `json:"tokenBinding,omitempty"`
}

// AuthenticatorAttestationResponse carries the raw blobs an authenticator
// returns from a create() call.
type AuthenticatorAttestationResponse struct {
	ClientDataJSON    string                    `json:"clientDataJSON"`
	AttestationObject string                    `json:"attestationObject"`
	Transports        []AuthenticatorTransport `json:"transports,omitempty"`
}

// RegistrationCredential is the envelope a client returns from a
// create() call.
type RegistrationCredential struct {
	ID                      string                            `json:"id"`
	RawID                    string                            `json:"rawId"`
	Response                 AuthenticatorAttestationResponse `json:"response"`
	AuthenticatorAttachment AuthenticatorAttachment           `json:"authenticatorAttachment,omitempty"`
	ClientExtensionResults   map[string]interface{}            `json:"clientExtensionResults,omitempty"`
	Type                     string                            `json:"type"`
}

// AuthenticatorAssertionResponse carries the raw blobs an authenticator
// returns from a get() call.
type AuthenticatorAssertionResponse struct {
	ClientDataJSON    string `json:"clientDataJSON"`
	AuthenticatorData string `json:"authenticatorData"`
	Signature         string `json:"signature"`
	UserHandle        string `json:"userHandle,omitempty"`
}

// AuthenticationCredential is the envelope a client returns from a get()
// call.
type AuthenticationCredential struct {
	ID                      string                          `json:"id"`
	RawID                    string                          `json:"rawId"`
	Response                 AuthenticatorAssertionResponse `json:"response"`
	AuthenticatorAttachment AuthenticatorAttachment         `json:"authenticatorAttachment,omitempty"`
	ClientExtensionResults   map[string]interface{}          `json:"clientExtensionResults,omitempty"`
	Type                     string                          `json:"type"`
}

// VerifiedRegistrationInfo is returned by VerifyRegistration on success;
// persistence of a WebAuthnCredential built from it is the caller's
// responsibility.
type VerifiedRegistrationInfo struct {
	CredentialID    string
	PublicKeyCOSE   []byte
	Counter         uint32
	Transports      []AuthenticatorTransport
	CredentialDeviceType CredentialDeviceType
	BackedUp        bool
	Origin          string
	RPID            string
	UserVerified    bool
	AAGUID          []byte
}

// VerifiedAuthenticationInfo is returned by VerifyAuthentication on
// success; the caller is responsible for persisting the new counter and
// last-used timestamp.
type VerifiedAuthenticationInfo struct {
	CredentialID string
	NewCounter   uint32
	Origin       string
	RPID         string
	UserVerified bool
}
