// Package cashfree proxies INR payment orders to the Cashfree PG API.
package cashfree

import (
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"fmt"
	"math"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
)

type Environment string

const (
	Production Environment = "PRODUCTION"
	Sandbox    Environment = "SANDBOX"
)

// DefaultAPIVersion is sent as x-api-version when none is configured.
const DefaultAPIVersion = "2023-08-01"

const productionHostSuffix = "vyakart.com"

var defaultBaseURLs = map[Environment]string{
	Production: "https://api.cashfree.com",
	Sandbox:    "https://sandbox.cashfree.com",
}

// Mode is the lowercase name returned to clients.
func (e Environment) Mode() string {
	if e == Production {
		return "production"
	}
	return "sandbox"
}

// OrderEnvironment picks the environment for order creation: the configured one,
// production when unset.
func OrderEnvironment(configured string) Environment {
	env := strings.ToUpper(strings.TrimSpace(configured))
	if env == "" || env == string(Production) {
		return Production
	}
	return Sandbox
}

// VerifyEnvironment picks the environment for verification: an explicit
// PRODUCTION or SANDBOX wins, then the request host, then sandbox.
func VerifyEnvironment(configured, host string) Environment {
	switch env := Environment(strings.ToUpper(strings.TrimSpace(configured))); env {
	case Production, Sandbox:
		return env
	}
	if strings.HasSuffix(strings.ToLower(host), productionHostSuffix) {
		return Production
	}
	return Sandbox
}

// epsilon is the gap between 1 and the next float64.
var epsilon = math.Nextafter(1, 2) - 1

// Round2 rounds to two decimal places, nudging halves such as 1.005 upward.
func Round2(n float64) float64 {
	return math.Round((n+epsilon)*100) / 100
}

// Truncate shortens s to max characters, ending with an ellipsis when cut.
func Truncate(s string, max int) string {
	if utf8.RuneCountInString(s) <= max {
		return s
	}
	runes := []rune(s)
	return string(runes[:max-1]) + "…"
}

func shorten(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max] + "…"
}

var (
	emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)
	nonDigits    = regexp.MustCompile(`\D`)
)

// SanitizeEmail returns the trimmed email when it looks valid, else "".
func SanitizeEmail(email string) string {
	email = strings.TrimSpace(email)
	if !emailPattern.MatchString(email) {
		return ""
	}
	return email
}

// SanitizePhone keeps the digits of phone when there are 10 to 14 of them, else "".
func SanitizePhone(phone string) string {
	digits := nonDigits.ReplaceAllString(phone, "")
	if len(digits) < 10 || len(digits) > 14 {
		return ""
	}
	return digits
}

// NewOrderID returns don-YYYYMMDDHHMMSS-xxxxxx.
func NewOrderID(now time.Time) string {
	suffix := strings.ReplaceAll(uuid.NewString(), "-", "")[:6]
	return fmt.Sprintf("don-%s-%s", now.UTC().Format("20060102150405"), suffix)
}

// Sign computes the base64 HMAC-SHA256 webhook signature of body.
func Sign(body []byte, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

// VerifySignature compares signature against the expected one in constant time.
func VerifySignature(body []byte, signature, secret string) bool {
	expected := Sign(body, secret)
	if len(expected) != len(signature) {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(expected), []byte(signature)) == 1
}
