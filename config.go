package webauthn

import "time"

const (
	minChallengeSizeBytes = 16
	maxChallengeSizeBytes = 64
	minOperationTimeoutMS = 10_000
	minTokenSecretBytes   = 32

	defaultChallengeSizeBytes = 32
	defaultOperationTimeoutMS = 60_000
	defaultSessionDurationMS  = 24 * 3600 * 1000
)

// RelyingParty is the immutable-after-construction configuration that
// drives every ceremony and session operation. Build one with NewConfig.
type RelyingParty struct {
	RPName       string
	RPID         string
	Origins      []string

	SupportedAlgorithms []Algorithm

	AttestationPreference  AttestationPreference
	UserVerificationPolicy UserVerificationRequirement
	AuthenticatorSelection *AuthenticatorSelection

	ChallengeSizeBytes int
	OperationTimeoutMS uint32
	SessionDurationMS  int64

	TokenSecret []byte

	// Logger receives a single diagnostic line when RevokeSession
	// swallows an error opening an already-invalid token (§7
	// "Swallowed"). May be left nil.
	Logger Logger
}

// ConfigOption customises a RelyingParty built by NewConfig.
type ConfigOption func(*RelyingParty)

// WithSupportedAlgorithms overrides the default algorithm priority order.
func WithSupportedAlgorithms(algs ...Algorithm) ConfigOption {
	return func(rp *RelyingParty) { rp.SupportedAlgorithms = algs }
}

// WithAttestationPreference sets the default attestation conveyance
// preference offered to clients.
func WithAttestationPreference(pref AttestationPreference) ConfigOption {
	return func(rp *RelyingParty) { rp.AttestationPreference = pref }
}

// WithUserVerificationPolicy sets the default user verification
// requirement.
func WithUserVerificationPolicy(policy UserVerificationRequirement) ConfigOption {
	return func(rp *RelyingParty) { rp.UserVerificationPolicy = policy }
}

// WithAuthenticatorSelection sets default authenticator selection hints.
func WithAuthenticatorSelection(sel AuthenticatorSelection) ConfigOption {
	return func(rp *RelyingParty) { rp.AuthenticatorSelection = &sel }
}

// WithChallengeSize overrides the default challenge size in bytes.
func WithChallengeSize(n int) ConfigOption {
	return func(rp *RelyingParty) { rp.ChallengeSizeBytes = n }
}

// WithOperationTimeout overrides the default ceremony timeout in
// milliseconds.
func WithOperationTimeout(ms uint32) ConfigOption {
	return func(rp *RelyingParty) { rp.OperationTimeoutMS = ms }
}

// WithSessionDuration overrides the default session lifetime in
// milliseconds.
func WithSessionDuration(ms int64) ConfigOption {
	return func(rp *RelyingParty) { rp.SessionDurationMS = ms }
}

// WithLogger attaches a diagnostic logger, used only for the single
// swallowed-error line in RevokeSession.
func WithLogger(logger Logger) ConfigOption {
	return func(rp *RelyingParty) { rp.Logger = logger }
}

// NewConfig builds a RelyingParty configuration with the library's
// defaults, then applies opts, then validates.
func NewConfig(rpName, rpID string, origins []string, tokenSecret []byte, opts ...ConfigOption) (*RelyingParty, error) {
	rp := &RelyingParty{
		RPName:                 rpName,
		RPID:                   rpID,
		Origins:                origins,
		SupportedAlgorithms:    DefaultSupportedAlgorithms(),
		AttestationPreference:  AttestationNone,
		UserVerificationPolicy: VerificationPreferred,
		ChallengeSizeBytes:     defaultChallengeSizeBytes,
		OperationTimeoutMS:     defaultOperationTimeoutMS,
		SessionDurationMS:      defaultSessionDurationMS,
		TokenSecret:            tokenSecret,
	}

	for _, opt := range opts {
		opt(rp)
	}

	if err := rp.Validate(); err != nil {
		return nil, err
	}
	return rp, nil
}

// Validate checks that the configuration's required fields and bounds
// hold, per §4.J validate_config.
func (rp *RelyingParty) Validate() error {
	if rp.RPName == "" {
		return newError(CodeConfigurationError, "rp_name is required")
	}
	if rp.RPID == "" {
		return newError(CodeConfigurationError, "rp_id is required")
	}
	if len(rp.Origins) == 0 {
		return newError(CodeConfigurationError, "at least one origin is required")
	}
	if len(rp.SupportedAlgorithms) == 0 {
		return newError(CodeConfigurationError, "at least one supported algorithm is required")
	}
	if rp.ChallengeSizeBytes < minChallengeSizeBytes || rp.ChallengeSizeBytes > maxChallengeSizeBytes {
		return newError(CodeConfigurationError, "challenge_size_bytes must be in [%d, %d], got %d", minChallengeSizeBytes, maxChallengeSizeBytes, rp.ChallengeSizeBytes)
	}
	if rp.OperationTimeoutMS < minOperationTimeoutMS {
		return newError(CodeConfigurationError, "operation_timeout_ms must be >= %d, got %d", minOperationTimeoutMS, rp.OperationTimeoutMS)
	}
	if rp.SessionDurationMS <= 0 {
		return newError(CodeConfigurationError, "session_duration_ms must be positive")
	}
	if len(rp.TokenSecret) < minTokenSecretBytes {
		return newError(CodeConfigurationError, "token_secret must be at least %d bytes, got %d", minTokenSecretBytes, len(rp.TokenSecret))
	}
	return nil
}

func (rp *RelyingParty) operationTimeout() time.Duration {
	return time.Duration(rp.OperationTimeoutMS) * time.Millisecond
}

func (rp *RelyingParty) sessionDuration() time.Duration {
	return time.Duration(rp.SessionDurationMS) * time.Millisecond
}
