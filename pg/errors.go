package pg

import "fmt"

// ConnError is a transport-level failure. The owning connection is no longer
// usable and should be discarded.
type ConnError struct {
	code    string
	message string
	cause   error
}

func (e *ConnError) Error() string {
	if e.cause != nil {
		return e.message + ": " + e.cause.Error()
	}
	return e.message
}

func (e *ConnError) Unwrap() error { return e.cause }

// Code returns the stable error code.
func (e *ConnError) Code() string { return e.code }

func connIOErr(err error) *ConnError {
	return &ConnError{code: "conn_io", message: "connection I/O failed", cause: err}
}

func connEOFErr() *ConnError {
	return &ConnError{code: "conn_eof", message: "unexpected EOF from server"}
}

func connTLSErr(err error) *ConnError {
	return &ConnError{code: "conn_tls", message: "TLS handshake failed", cause: err}
}

func connTLSUnsupportedErr() *ConnError {
	return &ConnError{code: "conn_tls_unsupported", message: "server does not accept TLS connections"}
}

// AuthError is an authentication failure during startup.
type AuthError struct {
	code    string
	message string
}

func (e *AuthError) Error() string { return e.message }

// Code returns the stable error code.
func (e *AuthError) Code() string { return e.code }

func authPasswordRequiredErr() *AuthError {
	return &AuthError{code: "auth_password_required", message: "server requested a password but none was configured"}
}

func authMechanismErr(mech string) *AuthError {
	return &AuthError{code: "auth_mechanism", message: "unsupported authentication mechanism: " + mech}
}

func authSignatureErr() *AuthError {
	return &AuthError{code: "auth_server_signature", message: "server signature verification failed"}
}

// ServerError is an ErrorResponse reported by the server.
type ServerError struct {
	Severity string
	SQLState string
	Message  string
	Detail   string
	Hint     string
	Position int
}

func (e *ServerError) Error() string {
	return fmt.Sprintf("%s %s: %s", e.Severity, e.SQLState, e.Message)
}

// Code returns the server SQLSTATE.
func (e *ServerError) Code() string { return e.SQLState }

// EncodeError is a statement that cannot be encoded for the wire.
type EncodeError struct {
	code    string
	message string
}

func (e *EncodeError) Error() string { return e.message }

// Code returns the stable error code.
func (e *EncodeError) Code() string { return e.code }

func tooManyParamsErr(n int) *EncodeError {
	return &EncodeError{
		code:    "encode_too_many_params",
		message: fmt.Sprintf("too many parameters: %d (protocol limit is 32767)", n),
	}
}

// PoolError is a pool acquisition failure.
type PoolError struct {
	code    string
	message string
}

func (e *PoolError) Error() string { return e.message }

// Code returns the stable error code.
func (e *PoolError) Code() string { return e.code }

func acquireTimeoutErr() *PoolError {
	return &PoolError{code: "pool_acquire_timeout", message: "timed out waiting for a pool permit"}
}

func connectTimeoutErr() *PoolError {
	return &PoolError{code: "pool_connect_timeout", message: "timed out establishing a new connection"}
}

func poolClosedErr() *PoolError {
	return &PoolError{code: "pool_closed", message: "pool is closed"}
}

// TxError is an operation attempted in an incompatible transaction state.
type TxError struct {
	message string
}

func (e *TxError) Error() string { return e.message }

// Code returns the stable error code.
func (e *TxError) Code() string { return "tx_invalid_state" }

func txInvalidErr(op string) *TxError {
	return &TxError{message: "transaction is in a failed state; only rollback is permitted (attempted " + op + ")"}
}
