package webauthn

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validTokenSecret() []byte {
	return []byte(strings.Repeat("a", minTokenSecretBytes))
}

func TestNewConfigAppliesDefaults(t *testing.T) {
	rp, err := NewConfig("Example Corp", "example.com", []string{"https://example.com"}, validTokenSecret())
	require.NoError(t, err)
	assert.Equal(t, defaultChallengeSizeBytes, rp.ChallengeSizeBytes)
	assert.Equal(t, uint32(defaultOperationTimeoutMS), rp.OperationTimeoutMS)
	assert.Equal(t, int64(defaultSessionDurationMS), rp.SessionDurationMS)
	assert.Equal(t, AttestationNone, rp.AttestationPreference)
	assert.Equal(t, VerificationPreferred, rp.UserVerificationPolicy)
	assert.NotEmpty(t, rp.SupportedAlgorithms)
}

func TestNewConfigMissingRPName(t *testing.T) {
	_, err := NewConfig("", "example.com", []string{"https://example.com"}, validTokenSecret())
	require.Error(t, err)
	assert.Equal(t, CodeConfigurationError, CodeOf(err))
}

func TestNewConfigMissingOrigins(t *testing.T) {
	_, err := NewConfig("Example Corp", "example.com", nil, validTokenSecret())
	require.Error(t, err)
	assert.Equal(t, CodeConfigurationError, CodeOf(err))
}

func TestValidateChallengeSizeBounds(t *testing.T) {
	base := func(sz int) *RelyingParty {
		rp, err := NewConfig("Example Corp", "example.com", []string{"https://example.com"}, validTokenSecret(), WithChallengeSize(sz))
		if err != nil {
			return nil
		}
		return rp
	}

	assert.Nil(t, base(15))
	assert.NotNil(t, base(16))
	assert.NotNil(t, base(64))
	assert.Nil(t, base(65))
}

func TestValidateOperationTimeoutBound(t *testing.T) {
	_, err := NewConfig("Example Corp", "example.com", []string{"https://example.com"}, validTokenSecret(), WithOperationTimeout(9_999))
	require.Error(t, err)
	assert.Equal(t, CodeConfigurationError, CodeOf(err))

	_, err = NewConfig("Example Corp", "example.com", []string{"https://example.com"}, validTokenSecret(), WithOperationTimeout(10_000))
	require.NoError(t, err)
}

func TestValidateTokenSecretLengthBound(t *testing.T) {
	short := []byte(strings.Repeat("a", minTokenSecretBytes-1))
	_, err := NewConfig("Example Corp", "example.com", []string{"https://example.com"}, short)
	require.Error(t, err)
	assert.Equal(t, CodeConfigurationError, CodeOf(err))

	_, err = NewConfig("Example Corp", "example.com", []string{"https://example.com"}, validTokenSecret())
	require.NoError(t, err)
}

func TestValidateSessionDurationMustBePositive(t *testing.T) {
	_, err := NewConfig("Example Corp", "example.com", []string{"https://example.com"}, validTokenSecret(), WithSessionDuration(0))
	require.Error(t, err)
	assert.Equal(t, CodeConfigurationError, CodeOf(err))
}

func TestWithLoggerIsOptional(t *testing.T) {
	rp, err := NewConfig("Example Corp", "example.com", []string{"https://example.com"}, validTokenSecret())
	require.NoError(t, err)
	assert.Nil(t, rp.Logger)
	rp.logf("no logger configured, must not panic: %d", 1)
}

type recordingLogger struct{ lines []string }

func (l *recordingLogger) Printf(format string, args ...interface{}) {
	l.lines = append(l.lines, format)
}

func TestWithLoggerReceivesSwallowedTokenErrors(t *testing.T) {
	logger := &recordingLogger{}
	rp, err := NewConfig("Example Corp", "example.com", []string{"https://example.com"}, validTokenSecret(), WithLogger(logger))
	require.NoError(t, err)

	c := NewCeremony(rp, nil, nil, nil)
	c.RevokeSession(context.Background(), "not-a-valid-token")
	assert.Len(t, logger.lines, 1)
}
