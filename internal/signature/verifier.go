package signature

import (
	"bytes"
	"crypto/hmac"
	"crypto/sha1"
	"crypto/sha256"
	"crypto/sha512"
	"encoding/base64"
	"encoding/hex"
	"hash"
	"io"
	"net/http"
	"regexp"
	"strings"

	"crm-connect/internal/common/errors"
	"crm-connect/internal/common/logging"
)

// maxBodyBytes bounds what PreserveRequestBody reads
const maxBodyBytes = 1 << 20

var formatVar = regexp.MustCompile(`\\\$\\\{(\w+)\\\}`)

// Verifier checks requests against a Config
type Verifier struct {
	config *Config
	logger logging.Logger
}

func NewVerifier(config *Config, logger logging.Logger) *Verifier {
	if logger == nil {
		logger = logging.GetGlobalLogger()
	}
	if config == nil {
		config = &Config{}
	}
	config.SetDefaults()
	return &Verifier{
		config: config,
		logger: logger.WithFields(logging.Field{"component", "signature"}),
	}
}

// Enabled reports whether Verify checks anything
func (v *Verifier) Enabled() bool { return v.config.Enabled }

// Verify returns an auth error unless one verification matches body. With
// FailureAction "log" a mismatch is only logged.
func (v *Verifier) Verify(r *http.Request, body []byte) error {
	if !v.config.Enabled {
		return nil
	}

	var lastErr error
	for i := range v.config.Verifications {
		verification := &v.config.Verifications[i]
		err := v.verifySignature(r, body, verification)
		if err == nil {
			v.logger.Debug("Signature verified",
				logging.Field{"header", verification.Header},
			)
			return nil
		}
		lastErr = err
	}
	if lastErr == nil {
		lastErr = NewVerificationError("", "no verification methods configured")
	}

	v.logger.Warn("Signature verification failed",
		logging.Field{"error", lastErr.Error()},
		logging.Field{"action", v.config.FailureAction},
		logging.Field{"remote_addr", r.RemoteAddr},
	)
	if v.config.FailureAction == "log" {
		return nil
	}
	return errors.AuthError("invalid webhook signature").WithCode("INVALID_SIGNATURE")
}

func (v *Verifier) verifySignature(r *http.Request, body []byte, config *VerificationConfig) error {
	headerValue := r.Header.Get(config.Header)
	if headerValue == "" {
		return NewVerificationError(config.Header, "missing signature header")
	}

	sig, err := parseSignatureFormat(headerValue, config.Format)
	if err != nil {
		return NewVerificationError(config.Header, "failed to parse signature: %v", err)
	}

	expected, err := computeSignature(body, config.Secret, config.Algorithm, config.Encoding)
	if err != nil {
		return NewVerificationError(config.Header, "failed to compute signature: %v", err)
	}

	// hex digests are compared case insensitively
	if config.Encoding == "hex" {
		sig = strings.ToLower(sig)
	}
	if !hmac.Equal([]byte(sig), []byte(expected)) {
		return NewVerificationError(config.Header, "signature mismatch")
	}
	return nil
}

// parseSignatureFormat extracts ${signature} from a header value
func parseSignatureFormat(headerValue, format string) (string, error) {
	pattern := regexp.QuoteMeta(format)
	captures := formatVar.FindAllStringSubmatch(pattern, -1)
	for _, capture := range captures {
		pattern = strings.Replace(pattern, capture[0], `([^,\s]+)`, 1)
	}

	re, err := regexp.Compile("^" + pattern + "$")
	if err != nil {
		return "", errors.InternalError("invalid format pattern", err)
	}
	matches := re.FindStringSubmatch(strings.TrimSpace(headerValue))
	if matches == nil {
		return "", errors.ValidationError("header value doesn't match format")
	}

	for i, capture := range captures {
		if capture[1] == "signature" && i+1 < len(matches) {
			return matches[i+1], nil
		}
	}
	return "", errors.ValidationError("signature not found in header value")
}

func computeSignature(data []byte, secret, algorithm, encoding string) (string, error) {
	var h hash.Hash
	switch algorithm {
	case "hmac-sha1":
		h = hmac.New(sha1.New, []byte(secret))
	case "hmac-sha256":
		h = hmac.New(sha256.New, []byte(secret))
	case "hmac-sha512":
		h = hmac.New(sha512.New, []byte(secret))
	default:
		return "", errors.ValidationError("unsupported algorithm: " + algorithm)
	}

	h.Write(data)
	sum := h.Sum(nil)

	switch encoding {
	case "hex":
		return hex.EncodeToString(sum), nil
	case "base64":
		return base64.StdEncoding.EncodeToString(sum), nil
	default:
		return "", errors.ValidationError("unsupported encoding: " + encoding)
	}
}

// Sign computes the header value a sender attaches to body
func Sign(body []byte, config VerificationConfig) (string, error) {
	config.SetDefaults()
	sig, err := computeSignature(body, config.Secret, config.Algorithm, config.Encoding)
	if err != nil {
		return "", err
	}
	return strings.Replace(config.Format, "${signature}", sig, 1), nil
}

// ValidationToken returns the subscription handshake token, if any
func ValidationToken(r *http.Request) string {
	return strings.TrimSpace(r.Header.Get(ValidationTokenHeader))
}

// PreserveRequestBody reads the body and replaces it with a fresh reader
func PreserveRequestBody(r *http.Request) ([]byte, error) {
	if r.Body == nil {
		return nil, nil
	}
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes+1))
	if err != nil {
		return nil, err
	}
	if len(body) > maxBodyBytes {
		return nil, errors.ValidationError("request body too large")
	}
	r.Body = io.NopCloser(bytes.NewReader(body))
	return body, nil
}
