// Package auth provides bearer token verification for the planner API.
package auth

import (
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"routeplan/internal/config"
)

// Verifier validates bearer tokens and extracts the caller's role.
// Supports modes: dev (no verify), token (static shared tokens), hmac (HS256 JWT).
type Verifier struct {
	Mode       string
	Tokens     []string
	HMACSecret []byte
	RoleClaim  string
	now        func() time.Time
}

type Principal struct {
	Subject string
	Role    string
}

var (
	ErrMissingToken = errors.New("missing bearer token")
	ErrBadToken     = errors.New("invalid token")
	ErrExpired      = errors.New("token expired")
)

func NewVerifier(cfg config.Auth) *Verifier {
	role := cfg.RoleClaim
	if role == "" {
		role = "role"
	}
	return &Verifier{
		Mode:       strings.ToLower(cfg.Mode),
		Tokens:     cfg.Tokens,
		HMACSecret: []byte(cfg.HMACSecret),
		RoleClaim:  role,
		now:        time.Now,
	}
}

// CanWrite reports whether the principal may start planning runs.
func (p Principal) CanWrite() bool { return p.Role == "admin" || p.Role == "planner" }

func (v *Verifier) Verify(token string) (Principal, error) {
	switch v.Mode {
	case "", "dev":
		// token format: subject:role, anything else is an admin
		if parts := strings.SplitN(token, ":", 2); len(parts) == 2 && parts[1] != "" {
			return Principal{Subject: parts[0], Role: strings.ToLower(parts[1])}, nil
		}
		return Principal{Subject: "dev", Role: "admin"}, nil
	case "token":
		if token == "" {
			return Principal{}, ErrMissingToken
		}
		for _, t := range v.Tokens {
			if subtle.ConstantTimeCompare([]byte(t), []byte(token)) == 1 {
				return Principal{Subject: "token", Role: "admin"}, nil
			}
		}
		return Principal{}, ErrBadToken
	case "hmac":
		return v.verifyJWT(token)
	default:
		return Principal{}, errors.New("unsupported auth mode")
	}
}

func (v *Verifier) verifyJWT(token string) (Principal, error) {
	if token == "" {
		return Principal{}, ErrMissingToken
	}
	segs := strings.Split(token, ".")
	if len(segs) != 3 {
		return Principal{}, ErrBadToken
	}
	headerJSON, err := b64urlDecode(segs[0])
	if err != nil {
		return Principal{}, ErrBadToken
	}
	payloadJSON, err := b64urlDecode(segs[1])
	if err != nil {
		return Principal{}, ErrBadToken
	}
	sig, err := b64urlDecode(segs[2])
	if err != nil {
		return Principal{}, ErrBadToken
	}
	var hdr map[string]any
	if err := json.Unmarshal(headerJSON, &hdr); err != nil {
		return Principal{}, ErrBadToken
	}
	if alg, _ := hdr["alg"].(string); alg != "HS256" {
		return Principal{}, errors.New("unsupported alg for hmac")
	}
	mac := hmac.New(sha256.New, v.HMACSecret)
	mac.Write([]byte(segs[0] + "." + segs[1]))
	if !hmac.Equal(mac.Sum(nil), sig) {
		return Principal{}, errors.New("bad signature")
	}
	var claims map[string]any
	if err := json.Unmarshal(payloadJSON, &claims); err != nil {
		return Principal{}, ErrBadToken
	}
	if exp, ok := claims["exp"].(float64); ok && v.now().Unix() >= int64(exp) {
		return Principal{}, ErrExpired
	}
	sub, _ := claims["sub"].(string)
	role, _ := claims[v.RoleClaim].(string)
	if role == "" {
		role = "viewer"
	}
	return Principal{Subject: sub, Role: strings.ToLower(role)}, nil
}

// SignHS256 issues a token for claims. Used by tooling and tests.
func SignHS256(secret []byte, claims map[string]any) (string, error) {
	hdr, _ := json.Marshal(map[string]string{"alg": "HS256", "typ": "JWT"})
	body, err := json.Marshal(claims)
	if err != nil {
		return "", err
	}
	in := base64.RawURLEncoding.EncodeToString(hdr) + "." + base64.RawURLEncoding.EncodeToString(body)
	mac := hmac.New(sha256.New, secret)
	mac.Write([]byte(in))
	return in + "." + base64.RawURLEncoding.EncodeToString(mac.Sum(nil)), nil
}

func b64urlDecode(s string) ([]byte, error) { return base64.RawURLEncoding.DecodeString(s) }
