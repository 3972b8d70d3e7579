package utils

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"fmt"
	"strings"
	"time"
)

const QRCodePrefix = "JUNA-"

// GenerateQRCode returns JUNA- followed by 8 uppercase hex characters
// drawn from 4 crypto-random bytes.
func GenerateQRCode() (string, error) {
	b := make([]byte, 4)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return QRCodePrefix + strings.ToUpper(hex.EncodeToString(b)), nil
}

// CodesEqual compares redemption codes in constant time.
func CodesEqual(a, b string) bool {
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}

// FormatOrderNumber renders ORD-YYYYMM-NNNNN.
func FormatOrderNumber(period string, seq int64) string {
	return fmt.Sprintf("ORD-%s-%05d", period, seq)
}

func OrderPeriod(t time.Time) string {
	return t.UTC().Format("200601")
}

func HashToken(token string) string {
	hash := sha256.Sum256([]byte(token))
	return hex.EncodeToString(hash[:])
}
