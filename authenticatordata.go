package webauthn

import (
	"encoding/binary"

	"github.com/aoneahsan/webauthn-server-buildkit/cose"
	"github.com/aoneahsan/webauthn-server-buildkit/internal/cbor"
)

// authDataFlag is a single bit of the authenticator data flags byte.
type authDataFlag byte

const (
	flagUP authDataFlag = 0x01 // user present
	flagUV authDataFlag = 0x04 // user verified
	flagBE authDataFlag = 0x08 // backup eligible
	flagBS authDataFlag = 0x10 // backup state
	flagAT authDataFlag = 0x40 // attested credential data present
	flagED authDataFlag = 0x80 // extensions present
)

const (
	authDataMinLength      = 37
	authDataRPIDHashLen    = 32
	authDataAAGUIDLen      = 16
	authDataCredIDLenBytes = 2
)

// AttestedCredentialData is the variable-length section of authenticator
// data present when the AT flag is set, carrying the newly minted
// credential's identity and public key.
type AttestedCredentialData struct {
	AAGUID          [16]byte
	CredentialID    []byte
	CredentialKey   cose.Key
	RawCredentialKey []byte
}

// AuthenticatorData is the parsed form of the authData byte string
// produced by an authenticator during both registration and
// authentication ceremonies.
type AuthenticatorData struct {
	RPIDHash               [32]byte
	UserPresent            bool
	UserVerified            bool
	BackupEligible          bool
	BackupState             bool
	AttestedCredentialData *AttestedCredentialData
	Extensions              map[string]interface{}
	SignCount               uint32
	Raw                     []byte
}

// parseAuthenticatorData parses the fixed-layout authData byte string per
// §4.E: 32-byte RP-ID hash, 1 flags byte, 4-byte big-endian counter,
// followed by optional attested credential data and/or extensions.
func parseAuthenticatorData(data []byte) (*AuthenticatorData, error) {
	if len(data) < authDataMinLength {
		return nil, newError(CodeAuthenticatorDataTooShort, "authenticator data is %d bytes, need at least %d", len(data), authDataMinLength)
	}

	ad := &AuthenticatorData{Raw: data}
	copy(ad.RPIDHash[:], data[:authDataRPIDHashLen])

	flags := data[authDataRPIDHashLen]
	ad.UserPresent = flags&byte(flagUP) != 0
	ad.UserVerified = flags&byte(flagUV) != 0
	ad.BackupEligible = flags&byte(flagBE) != 0
	ad.BackupState = flags&byte(flagBS) != 0
	attested := flags&byte(flagAT) != 0
	extended := flags&byte(flagED) != 0

	ad.SignCount = binary.BigEndian.Uint32(data[33:37])

	rest := data[37:]

	if attested {
		acd, remaining, err := parseAttestedCredentialData(rest, extended)
		if err != nil {
			return nil, err
		}
		ad.AttestedCredentialData = acd
		rest = remaining
	}

	if extended {
		val, _, err := cbor.DecodeFirst(rest)
		if err != nil {
			return nil, newError(CodeAuthenticatorDataInvalidCredentialData, "decoding extensions: %v", err)
		}
		ext, err := cborValueToMap(val)
		if err != nil {
			return nil, newError(CodeAuthenticatorDataInvalidCredentialData, "extensions map: %v", err)
		}
		ad.Extensions = ext
	}

	return ad, nil
}

// parseAttestedCredentialData parses the AAGUID, credential ID, and COSE
// public key that follow the fixed header when AT is set. When
// extensionsFollow is false, the COSE key is taken to be every remaining
// byte, since the simplified CBOR codec used here does not need to
// support incremental re-slicing in that case. When extensions follow,
// cbor.DecodeFirst is used to find exactly where the key ends.
func parseAttestedCredentialData(data []byte, extensionsFollow bool) (*AttestedCredentialData, []byte, error) {
	if len(data) < authDataAAGUIDLen+authDataCredIDLenBytes {
		return nil, nil, newError(CodeAuthenticatorDataInvalidCredentialData, "attested credential data truncated before credential id length")
	}

	acd := &AttestedCredentialData{}
	copy(acd.AAGUID[:], data[:authDataAAGUIDLen])
	offset := authDataAAGUIDLen

	credIDLen := binary.BigEndian.Uint16(data[offset : offset+authDataCredIDLenBytes])
	offset += authDataCredIDLenBytes

	if len(data) < offset+int(credIDLen) {
		return nil, nil, newError(CodeAuthenticatorDataInvalidCredentialData, "attested credential data truncated before end of credential id")
	}
	acd.CredentialID = append([]byte(nil), data[offset:offset+int(credIDLen)]...)
	offset += int(credIDLen)

	keyBytes := data[offset:]
	var rest []byte
	if extensionsFollow {
		_, remaining, err := cbor.DecodeFirst(keyBytes)
		if err != nil {
			return nil, nil, newError(CodeAuthenticatorDataInvalidCredentialData, "decoding credential public key: %v", err)
		}
		rest = remaining
		keyBytes = keyBytes[:len(keyBytes)-len(remaining)]
	} else {
		rest = nil
	}

	key, err := cose.Decode(keyBytes)
	if err != nil {
		return nil, nil, newError(CodeAuthenticatorDataInvalidCredentialData, "decoding credential public key: %v", err)
	}
	acd.CredentialKey = key
	acd.RawCredentialKey = append([]byte(nil), keyBytes...)

	return acd, rest, nil
}

func cborValueToMap(v cbor.Value) (map[string]interface{}, error) {
	if v.Kind() != cbor.KindMap {
		return nil, newError(CodeCborDecodeError, "expected a CBOR map")
	}
	m := v.Map()
	out := make(map[string]interface{}, m.Len())
	for _, entry := range m.Entries() {
		if entry.Key.Kind() != cbor.KindText {
			continue
		}
		out[entry.Key.Text()] = entry.Value
	}
	return out, nil
}

// requireFlags enforces the user-presence/user-verification policy for a
// parsed authenticator data value.
func (ad *AuthenticatorData) requireFlags(requireUserPresence, requireUserVerification bool) error {
	if requireUserPresence && !ad.UserPresent {
		return newError(CodeUserPresenceRequired, "authenticator did not set the user present flag")
	}
	if requireUserVerification && !ad.UserVerified {
		return newError(CodeUserVerificationRequired, "authenticator did not set the user verified flag")
	}
	return nil
}
