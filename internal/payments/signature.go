// Package payments talks to the payment provider: it verifies inbound
// webhook envelopes, decodes their events, and creates checkout sessions.
package payments

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// DefaultTolerance is the accepted clock skew between the timestamp in a
// signature header and our clock. Older envelopes are treated as replays.
const DefaultTolerance = 5 * time.Minute

// AuthenticityError reports a webhook envelope that failed verification.
// Nothing is mutated when this is returned.
type AuthenticityError struct {
	Reason string
}

func (e AuthenticityError) Error() string {
	return "webhook verification failed: " + e.Reason
}

// VerifySignature checks a provider signature header of the form
// "t=<unix>,v1=<hex hmac>" against the raw payload and shared secret.
// The signed message is "<t>.<payload>" and the MAC is HMAC-SHA256.
// Multiple v1 entries are accepted if any matches (secret rotation).
func VerifySignature(payload []byte, header, secret string, now time.Time, tolerance time.Duration) error {
	if strings.TrimSpace(header) == "" {
		return AuthenticityError{Reason: "missing signature header"}
	}

	var timestamp int64 = -1
	var candidates []string
	for _, part := range strings.Split(header, ",") {
		kv := strings.SplitN(strings.TrimSpace(part), "=", 2)
		if len(kv) != 2 {
			continue
		}
		switch kv[0] {
		case "t":
			ts, err := strconv.ParseInt(kv[1], 10, 64)
			if err != nil {
				return AuthenticityError{Reason: "malformed timestamp"}
			}
			timestamp = ts
		case "v1":
			candidates = append(candidates, kv[1])
		}
	}

	if timestamp < 0 {
		return AuthenticityError{Reason: "missing timestamp"}
	}
	if len(candidates) == 0 {
		return AuthenticityError{Reason: "missing v1 signature"}
	}

	age := now.Sub(time.Unix(timestamp, 0))
	if age > tolerance || age < -tolerance {
		return AuthenticityError{Reason: fmt.Sprintf("timestamp outside tolerance of %v", tolerance)}
	}

	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(strconv.FormatInt(timestamp, 10)))
	mac.Write([]byte("."))
	mac.Write(payload)
	expected := hex.EncodeToString(mac.Sum(nil))

	for _, candidate := range candidates {
		if hmac.Equal([]byte(candidate), []byte(expected)) {
			return nil
		}
	}
	return AuthenticityError{Reason: "signature mismatch"}
}

// SignPayload produces a signature header for the given payload, used by
// tests and local tooling to forge valid envelopes.
func SignPayload(payload []byte, secret string, at time.Time) string {
	ts := strconv.FormatInt(at.Unix(), 10)
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(ts))
	mac.Write([]byte("."))
	mac.Write(payload)
	return "t=" + ts + ",v1=" + hex.EncodeToString(mac.Sum(nil))
}
