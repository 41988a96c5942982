package transpiler

import (
	"bytes"
	"encoding/hex"
	"fmt"
	"strconv"

	"github.com/google/uuid"

	"github.com/qail-io/qail-go/ast"
)

// Param is one bound parameter produced while rendering a statement. Data is
// the textual wire form; Null marks SQL NULL. Name is set for named (:name)
// parameters and External marks slots whose value the caller supplies at
// execution time (named and explicit positional references).
type Param struct {
	Data     []byte
	Null     bool
	Name     string
	External bool
}

// EncodeError is a value that cannot be encoded for the wire.
type EncodeError struct {
	code    string
	message string
}

func (e *EncodeError) Error() string { return e.message }

// Code returns the stable error code.
func (e *EncodeError) Code() string { return e.code }

// ErrNullByte reports a string value containing a NUL byte; such values are
// rejected before any I/O happens.
func ErrNullByte() *EncodeError {
	return &EncodeError{
		code:    "encode_null_byte",
		message: "value contains NUL byte (0x00), which PostgreSQL cannot store",
	}
}

// EncodeValueText renders a scalar Value into its textual parameter form.
// Returns (nil, true, nil) for NULL. Strings and JSON documents containing
// NUL bytes fail with ErrNullByte.
func EncodeValueText(v ast.Value) (data []byte, null bool, err error) {
	switch x := v.(type) {
	case ast.Null, ast.NullUUID:
		return nil, true, nil
	case ast.Bool:
		if x {
			return []byte("t"), false, nil
		}
		return []byte("f"), false, nil
	case ast.Int:
		return strconv.AppendInt(nil, int64(x), 10), false, nil
	case ast.Float:
		return strconv.AppendFloat(nil, float64(x), 'g', -1, 64), false, nil
	case ast.String:
		if bytes.IndexByte([]byte(x), 0) >= 0 {
			return nil, false, ErrNullByte()
		}
		return []byte(x), false, nil
	case ast.UUID:
		return []byte(uuid.UUID(x).String()), false, nil
	case ast.Timestamp:
		return []byte(x), false, nil
	case ast.Bytes:
		out := make([]byte, 0, 2+hex.EncodedLen(len(x)))
		out = append(out, '\\', 'x')
		out = append(out, hex.EncodeToString(x)...)
		return out, false, nil
	case ast.JSON:
		if bytes.IndexByte([]byte(x), 0) >= 0 {
			return nil, false, ErrNullByte()
		}
		return []byte(x), false, nil
	case ast.Vector:
		var b bytes.Buffer
		b.WriteByte('[')
		for i, f := range x {
			if i > 0 {
				b.WriteByte(',')
			}
			b.Write(strconv.AppendFloat(nil, float64(f), 'g', -1, 32))
		}
		b.WriteByte(']')
		return b.Bytes(), false, nil
	case ast.Array:
		var b bytes.Buffer
		b.WriteByte('{')
		for i, e := range x {
			if i > 0 {
				b.WriteByte(',')
			}
			elem, elemNull, err := EncodeValueText(e)
			if err != nil {
				return nil, false, err
			}
			if elemNull {
				b.WriteString("NULL")
				continue
			}
			if _, isStr := e.(ast.String); isStr {
				b.WriteByte('"')
				for _, c := range elem {
					if c == '"' || c == '\\' {
						b.WriteByte('\\')
					}
					b.WriteByte(c)
				}
				b.WriteByte('"')
			} else {
				b.Write(elem)
			}
		}
		b.WriteByte('}')
		return b.Bytes(), false, nil
	case ast.Interval:
		return []byte(fmt.Sprintf("%d %s", x.Amount, x.Unit)), false, nil
	}
	return nil, false, fmt.Errorf("transpiler: value %T has no textual parameter form", v)
}
