package session

import (
	"crypto/rand"
	"encoding/json"
	"math/big"
	"time"

	qrcode "github.com/skip2/go-qrcode"
)

const (
	codeAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	codeLength   = 6
)

// GenerateCode produces a 6-character attendance code drawn uniformly from
// [A-Z0-9]. No uniqueness guarantee beyond the 36^6 collision space; codes
// are short-lived and scoped to one session.
func GenerateCode() string {
	max := big.NewInt(int64(len(codeAlphabet)))
	buf := make([]byte, codeLength)
	for i := range buf {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			// crypto/rand only fails when the platform source is broken;
			// fall back to the first symbol rather than panic mid-request.
			buf[i] = codeAlphabet[0]
			continue
		}
		buf[i] = codeAlphabet[n.Int64()]
	}
	return string(buf)
}

// CodePayload is the structured token carried inside the QR image and echoed
// back by scanning clients. ExpiresAt is mandatory so expiry display and
// validation are self-contained; the server still cross-checks it against the
// session's own expiry and never lets it extend the window.
type CodePayload struct {
	SessionID  string    `json:"sessionId,omitempty"`
	CourseID   string    `json:"courseId"`
	CourseCode string    `json:"courseCode"`
	UniqueCode string    `json:"uniqueCode"`
	Timestamp  time.Time `json:"timestamp"`
	ExpiresAt  time.Time `json:"expiresAt"`
}

// Encode serializes the payload to its transport string.
func (p CodePayload) Encode() (string, error) {
	data, err := json.Marshal(p)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// DecodePayload parses a scanned transport string.
func DecodePayload(s string) (CodePayload, error) {
	var p CodePayload
	err := json.Unmarshal([]byte(s), &p)
	return p, err
}

// QRImage renders the payload as a PNG of the given pixel size.
func QRImage(p CodePayload, size int) ([]byte, error) {
	if size <= 0 {
		size = 256
	}
	encoded, err := p.Encode()
	if err != nil {
		return nil, err
	}
	return qrcode.Encode(encoded, qrcode.Medium, size)
}
