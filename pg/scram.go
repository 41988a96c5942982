package pg

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"strconv"
	"strings"

	"golang.org/x/crypto/pbkdf2"
)

// scramClient runs the client side of SCRAM-SHA-256 (RFC 5802) without
// channel binding (gs2 header "n,,"). Every non-happy path is an explicit
// error; the caller drives the exchange message by message.
type scramClient struct {
	user        string
	password    string
	clientNonce string

	clientFirstBare string
	serverFirst     string
	saltedPassword  []byte
}

// newScramClient creates a client with a fresh 24-character nonce.
func newScramClient(user, password string) (*scramClient, error) {
	nonce, err := generateNonce(24)
	if err != nil {
		return nil, err
	}
	return &scramClient{user: user, password: password, clientNonce: nonce}, nil
}

// generateNonce returns n printable random characters valid in SCRAM
// nonces (no comma).
func generateNonce(n int) (string, error) {
	const alphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789+/"
	raw := make([]byte, n)
	if _, err := rand.Read(raw); err != nil {
		return "", fmt.Errorf("scram nonce: %w", err)
	}
	for i, b := range raw {
		raw[i] = alphabet[int(b)%len(alphabet)]
	}
	return string(raw), nil
}

// clientFirst returns the full client-first message, gs2 header included.
func (s *scramClient) clientFirst() string {
	s.clientFirstBare = "n=" + s.user + ",r=" + s.clientNonce
	return "n,," + s.clientFirstBare
}

// handleServerFirst parses the server-first message, derives the salted
// password, and returns the client-final message carrying the proof.
func (s *scramClient) handleServerFirst(serverFirst string) (string, error) {
	s.serverFirst = serverFirst

	var nonce, saltB64 string
	iterations := 0
	for _, field := range strings.Split(serverFirst, ",") {
		switch {
		case strings.HasPrefix(field, "r="):
			nonce = field[2:]
		case strings.HasPrefix(field, "s="):
			saltB64 = field[2:]
		case strings.HasPrefix(field, "i="):
			n, err := strconv.Atoi(field[2:])
			if err != nil {
				return "", fmt.Errorf("scram: bad iteration count %q", field[2:])
			}
			iterations = n
		}
	}
	if nonce == "" || saltB64 == "" || iterations == 0 {
		return "", fmt.Errorf("scram: malformed server-first message %q", serverFirst)
	}
	if !strings.HasPrefix(nonce, s.clientNonce) {
		return "", authSignatureErr()
	}

	salt, err := base64.StdEncoding.DecodeString(saltB64)
	if err != nil {
		return "", fmt.Errorf("scram: bad salt encoding: %w", err)
	}

	s.saltedPassword = pbkdf2.Key([]byte(s.password), salt, iterations, 32, sha256.New)

	clientKey := hmacSHA256(s.saltedPassword, "Client Key")
	storedKey := sha256.Sum256(clientKey)

	withoutProof := "c=biws,r=" + nonce
	authMessage := s.clientFirstBare + "," + s.serverFirst + "," + withoutProof

	clientSignature := hmacSHA256(storedKey[:], authMessage)
	proof := make([]byte, len(clientKey))
	for i := range clientKey {
		proof[i] = clientKey[i] ^ clientSignature[i]
	}

	return withoutProof + ",p=" + base64.StdEncoding.EncodeToString(proof), nil
}

// verifyServerFinal checks the server signature of the server-final message.
func (s *scramClient) verifyServerFinal(serverFinal string) error {
	var sigB64 string
	for _, field := range strings.Split(serverFinal, ",") {
		if strings.HasPrefix(field, "v=") {
			sigB64 = field[2:]
		}
		if strings.HasPrefix(field, "e=") {
			return &AuthError{code: "auth_server_signature", message: "server rejected authentication: " + field[2:]}
		}
	}
	got, err := base64.StdEncoding.DecodeString(sigB64)
	if err != nil {
		return authSignatureErr()
	}

	serverKey := hmacSHA256(s.saltedPassword, "Server Key")
	withoutProof := "c=biws,r=" + s.nonceFromServerFirst()
	authMessage := s.clientFirstBare + "," + s.serverFirst + "," + withoutProof
	want := hmacSHA256(serverKey, authMessage)

	if !hmac.Equal(got, want) {
		return authSignatureErr()
	}
	return nil
}

func (s *scramClient) nonceFromServerFirst() string {
	for _, field := range strings.Split(s.serverFirst, ",") {
		if strings.HasPrefix(field, "r=") {
			return field[2:]
		}
	}
	return ""
}

func hmacSHA256(key []byte, msg string) []byte {
	mac := hmac.New(sha256.New, key)
	mac.Write([]byte(msg))
	return mac.Sum(nil)
}
