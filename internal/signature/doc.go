// Package signature verifies inbound webhook signatures.
//
// A Config lists one or more verifications; a request passes when any of them
// matches, so a signing secret can be rotated by configuring the old and the
// new secret side by side. The RingCentral preset checks the hex encoded
// HMAC-SHA256 of the raw body carried in X-RingCentral-Signature:
//
//	cfg := signature.RingCentral(os.Getenv("RINGCENTRAL_WEBHOOK_SECRET"))
//	verifier := signature.NewVerifier(cfg, logger)
//
//	body, err := signature.PreserveRequestBody(r)
//	if err != nil { ... }
//	if token := signature.ValidationToken(r); token != "" {
//		// subscription handshake: echo the token, nothing to verify
//	}
//	if err := verifier.Verify(r, body); err != nil { ... }
//
// Header formats are templates: "${signature}" matches the whole header value
// and "sha256=${signature}" strips a prefix.
package signature
