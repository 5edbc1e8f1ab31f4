package webauthn

// Logger is the minimal diagnostic hook this core accepts. It mirrors
// the stdlib log.Logger's Printf shape so callers can adapt any
// structured logger (zerolog, logrus, zap) without this module taking a
// dependency on one.
type Logger interface {
	Printf(format string, args ...interface{})
}

func (rp *RelyingParty) logf(format string, args ...interface{}) {
	if rp.Logger == nil {
		return
	}
	rp.Logger.Printf(format, args...)
}
