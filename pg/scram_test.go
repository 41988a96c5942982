package pg

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Golden exchange: user testuser, password testpass, salt "randomsalt",
// 4096 iterations, fixed client nonce. The client-final message must be
// bitwise identical to the reference vector.
func TestScramGoldenVector(t *testing.T) {
	c := &scramClient{
		user:        "testuser",
		password:    "testpass",
		clientNonce: "rOprNGfwEbeRWgbNEkqO",
	}

	first := c.clientFirst()
	assert.Equal(t, "n,,n=testuser,r=rOprNGfwEbeRWgbNEkqO", first)

	serverFirst := "r=rOprNGfwEbeRWgbNEkqO3rfcNHYJY1ZVvWVs7j,s=cmFuZG9tc2FsdA==,i=4096"
	final, err := c.handleServerFirst(serverFirst)
	require.NoError(t, err)
	assert.Equal(t,
		"c=biws,r=rOprNGfwEbeRWgbNEkqO3rfcNHYJY1ZVvWVs7j,p=Jxgps/amlmJ9i77+CpKqJysnGnNBrmW55IpB+s2uzck=",
		final)

	require.NoError(t, c.verifyServerFinal("v=KRKDF/t/MuK+LEj85iOf6FdyJFV/XbNZSU9mF/i4SSc="))
}

func TestScramRejectsForeignNonce(t *testing.T) {
	c := &scramClient{user: "u", password: "p", clientNonce: "abcdef"}
	c.clientFirst()

	// Server nonce must extend the client nonce; a replaced nonce fails.
	_, err := c.handleServerFirst("r=zzzzzz123,s=cmFuZG9tc2FsdA==,i=4096")
	var authErr *AuthError
	require.ErrorAs(t, err, &authErr)
	assert.Equal(t, "auth_server_signature", authErr.Code())
}

func TestScramRejectsBadServerSignature(t *testing.T) {
	c := &scramClient{user: "testuser", password: "testpass", clientNonce: "rOprNGfwEbeRWgbNEkqO"}
	c.clientFirst()
	_, err := c.handleServerFirst("r=rOprNGfwEbeRWgbNEkqO3rfcNHYJY1ZVvWVs7j,s=cmFuZG9tc2FsdA==,i=4096")
	require.NoError(t, err)

	err = c.verifyServerFinal("v=AAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAA=")
	var authErr *AuthError
	require.ErrorAs(t, err, &authErr)
}

func TestScramMalformedServerFirst(t *testing.T) {
	c := &scramClient{user: "u", password: "p", clientNonce: "n"}
	c.clientFirst()
	_, err := c.handleServerFirst("garbage")
	require.Error(t, err)
}

func TestScramNonceGeneration(t *testing.T) {
	c1, err := newScramClient("u", "p")
	require.NoError(t, err)
	c2, err := newScramClient("u", "p")
	require.NoError(t, err)
	assert.Len(t, c1.clientNonce, 24)
	assert.NotEqual(t, c1.clientNonce, c2.clientNonce)
}
