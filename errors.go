package webauthn

import "fmt"

// Code is a stable error code surfaced to callers, per the error taxonomy
// this library maintains independent of Go error message text.
type Code string

// The set of stable error codes this library returns.
const (
	CodeConfigurationError                 Code = "CONFIGURATION_ERROR"
	CodeCborDecodeError                     Code = "CBOR_DECODE_ERROR"
	CodeCoseMissingKty                      Code = "COSE_MISSING_KTY"
	CodeCoseEC2Invalid                      Code = "COSE_EC2_INVALID"
	CodeCoseRSAInvalid                      Code = "COSE_RSA_INVALID"
	CodeCoseOKPInvalid                      Code = "COSE_OKP_INVALID"
	CodeCoseUnsupportedKeyType              Code = "COSE_UNSUPPORTED_KEY_TYPE"
	CodeCoseUnknownAlgorithm                Code = "COSE_UNKNOWN_ALGORITHM"
	CodeAuthenticatorDataTooShort           Code = "AUTHENTICATOR_DATA_TOO_SHORT"
	CodeAuthenticatorDataInvalidCredentialData Code = "AUTHENTICATOR_DATA_INVALID_CREDENTIAL_DATA"
	CodeUserPresenceRequired                Code = "USER_PRESENCE_REQUIRED"
	CodeUserVerificationRequired             Code = "USER_VERIFICATION_REQUIRED"
	CodeInvalidClientDataType                Code = "INVALID_CLIENT_DATA_TYPE"
	CodeChallengeMismatch                    Code = "CHALLENGE_MISMATCH"
	CodeOriginMismatch                       Code = "ORIGIN_MISMATCH"
	CodeRPIDMismatch                         Code = "RPID_MISMATCH"
	CodeMissingCredentialData                Code = "MISSING_CREDENTIAL_DATA"
	CodeCredentialIDMismatch                 Code = "CREDENTIAL_ID_MISMATCH"
	CodeCounterError                         Code = "COUNTER_ERROR"
	CodeSignatureVerificationFailed          Code = "SIGNATURE_VERIFICATION_FAILED"
	CodeUnsupportedAlgorithm                 Code = "UNSUPPORTED_ALGORITHM"
	CodeTokenCreationFailed                  Code = "TOKEN_CREATION_FAILED"
	CodeInvalidToken                         Code = "INVALID_TOKEN"
	CodeSessionExpired                       Code = "SESSION_EXPIRED"
	CodeSessionNotFound                      Code = "SESSION_NOT_FOUND"
	CodeStorageError                         Code = "STORAGE_ERROR"
)

// Error is this library's error type: a stable Code plus a human-readable
// message, with optional wrapping of a lower-level cause. Messages never
// echo secret material (token secrets, challenges, key bytes).
type Error struct {
	Code    Code
	Msg     string
	Wrapped error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Wrapped != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Msg, e.Wrapped)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Msg)
}

// Unwrap allows errors.Is/errors.As to see through to the wrapped cause.
func (e *Error) Unwrap() error { return e.Wrapped }

// Wrap returns a copy of e with its Wrapped cause set to err. The
// receiver is left unmodified so package-level Error values can be reused
// as templates, the way the teacher's Error.Wrap does.
func (e *Error) Wrap(err error) *Error {
	n := *e
	n.Wrapped = err
	return &n
}

// newError builds an *Error with a formatted message.
func newError(code Code, format string, args ...interface{}) *Error {
	return &Error{Code: code, Msg: fmt.Sprintf(format, args...)}
}

// CodeOf returns the stable Code carried by err, or "" if err is not (or
// does not wrap) an *Error from this package.
func CodeOf(err error) Code {
	var e *Error
	for err != nil {
		if as, ok := err.(*Error); ok {
			e = as
			break
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			break
		}
		err = u.Unwrap()
	}
	if e == nil {
		return ""
	}
	return e.Code
}
