package pg

import (
	"bytes"
	"encoding/binary"
)

// Frontend and backend message type bytes. Framing is
// type:byte + length:int32(be, includes itself) + body; the startup family
// has no type byte.
const (
	msgQuery     = 'Q'
	msgParse     = 'P'
	msgBind      = 'B'
	msgDescribe  = 'D'
	msgExecute   = 'E'
	msgSync      = 'S'
	msgClose     = 'C'
	msgTerminate = 'X'
	msgPassword  = 'p' // also carries SASL responses
	msgCopyData  = 'd'
	msgCopyDone  = 'c'
	msgCopyFail  = 'f'

	msgAuthentication       = 'R'
	msgParameterStatus      = 'S'
	msgBackendKeyData       = 'K'
	msgReadyForQuery        = 'Z'
	msgRowDescription       = 'T'
	msgDataRow              = 'D'
	msgCommandComplete      = 'C'
	msgEmptyQueryResponse   = 'I'
	msgNoData               = 'n'
	msgParameterDescription = 't'
	msgParseComplete        = '1'
	msgBindComplete         = '2'
	msgCloseComplete        = '3'
	msgNotification         = 'A'
	msgCopyInResponse       = 'G'
	msgCopyOutResponse      = 'H'
	msgCopyBothResponse     = 'W'
	msgErrorResponse        = 'E'
	msgNoticeResponse       = 'N'
)

// Authentication sub-codes.
const (
	authOK           = 0
	authCleartext    = 3
	authMD5          = 5
	authSASL         = 10
	authSASLContinue = 11
	authSASLFinal    = 12
)

// Protocol magic numbers.
const (
	protocolVersion = 196608   // 3.0
	sslRequestCode  = 80877103
	cancelCode      = 80877102
)

// appendMsg frames a typed message: the payload writer fills the body.
func appendMsg(buf []byte, typ byte, body []byte) []byte {
	buf = append(buf, typ)
	buf = binary.BigEndian.AppendUint32(buf, uint32(len(body)+4))
	return append(buf, body...)
}

// appendStartup frames the untyped startup message with user and database
// parameters.
func appendStartup(buf []byte, user, database string) []byte {
	var body []byte
	body = binary.BigEndian.AppendUint32(body, protocolVersion)
	body = append(body, "user"...)
	body = append(body, 0)
	body = append(body, user...)
	body = append(body, 0)
	body = append(body, "database"...)
	body = append(body, 0)
	body = append(body, database...)
	body = append(body, 0)
	body = append(body, 0)

	buf = binary.BigEndian.AppendUint32(buf, uint32(len(body)+4))
	return append(buf, body...)
}

// appendSSLRequest frames the SSLRequest probe.
func appendSSLRequest(buf []byte) []byte {
	buf = binary.BigEndian.AppendUint32(buf, 8)
	return binary.BigEndian.AppendUint32(buf, sslRequestCode)
}

// appendCancelRequest frames the out-of-band CancelRequest.
func appendCancelRequest(buf []byte, processID, secretKey uint32) []byte {
	buf = binary.BigEndian.AppendUint32(buf, 16)
	buf = binary.BigEndian.AppendUint32(buf, cancelCode)
	buf = binary.BigEndian.AppendUint32(buf, processID)
	return binary.BigEndian.AppendUint32(buf, secretKey)
}

// appendSASLInitial frames SASLInitialResponse with the mechanism name and
// the client-first message.
func appendSASLInitial(buf []byte, mechanism, clientFirst string) []byte {
	var body []byte
	body = append(body, mechanism...)
	body = append(body, 0)
	body = binary.BigEndian.AppendUint32(body, uint32(len(clientFirst)))
	body = append(body, clientFirst...)
	return appendMsg(buf, msgPassword, body)
}

// appendSASLResponse frames a bare SASLResponse.
func appendSASLResponse(buf []byte, data string) []byte {
	return appendMsg(buf, msgPassword, []byte(data))
}

// appendSimpleQuery frames a Query message.
func appendSimpleQuery(buf []byte, sql string) []byte {
	body := make([]byte, 0, len(sql)+1)
	body = append(body, sql...)
	body = append(body, 0)
	return appendMsg(buf, msgQuery, body)
}

// appendParse frames Parse with no pre-declared parameter types; the server
// infers them.
func appendParse(buf []byte, name, sql string) []byte {
	body := make([]byte, 0, len(name)+len(sql)+4)
	body = append(body, name...)
	body = append(body, 0)
	body = append(body, sql...)
	body = append(body, 0)
	body = binary.BigEndian.AppendUint16(body, 0)
	return appendMsg(buf, msgParse, body)
}

// appendBind frames Bind of the unnamed portal against a statement, with
// all parameters in text format and text results.
func appendBind(buf []byte, stmt string, params []wireParam) []byte {
	var body []byte
	body = append(body, 0) // unnamed portal
	body = append(body, stmt...)
	body = append(body, 0)
	body = binary.BigEndian.AppendUint16(body, 0) // param format codes: all text
	body = binary.BigEndian.AppendUint16(body, uint16(len(params)))
	for _, p := range params {
		if p.null {
			body = binary.BigEndian.AppendUint32(body, 0xFFFFFFFF)
			continue
		}
		body = binary.BigEndian.AppendUint32(body, uint32(len(p.data)))
		body = append(body, p.data...)
	}
	body = binary.BigEndian.AppendUint16(body, 0) // result format codes: all text
	return appendMsg(buf, msgBind, body)
}

// wireParam is one Bind parameter in text format.
type wireParam struct {
	data []byte
	null bool
}

// appendDescribePortal frames Describe of the unnamed portal, forcing a
// RowDescription.
func appendDescribePortal(buf []byte) []byte {
	return appendMsg(buf, msgDescribe, []byte{'P', 0})
}

// appendExecute frames Execute of the unnamed portal with no row limit.
func appendExecute(buf []byte) []byte {
	body := []byte{0, 0, 0, 0, 0}
	return appendMsg(buf, msgExecute, body)
}

// appendSync frames Sync.
func appendSync(buf []byte) []byte {
	return appendMsg(buf, msgSync, nil)
}

// appendTerminate frames Terminate.
func appendTerminate(buf []byte) []byte {
	return appendMsg(buf, msgTerminate, nil)
}

// appendCopyData frames one CopyData message.
func appendCopyData(buf []byte, data []byte) []byte {
	return appendMsg(buf, msgCopyData, data)
}

// appendCopyDone frames CopyDone.
func appendCopyDone(buf []byte) []byte {
	return appendMsg(buf, msgCopyDone, nil)
}

// parseErrorResponse decodes the field list of an ErrorResponse or
// NoticeResponse payload.
func parseErrorResponse(payload []byte) *ServerError {
	se := &ServerError{}
	for len(payload) > 0 {
		code := payload[0]
		if code == 0 {
			break
		}
		payload = payload[1:]
		end := bytes.IndexByte(payload, 0)
		if end < 0 {
			break
		}
		val := string(payload[:end])
		payload = payload[end+1:]
		switch code {
		case 'S':
			se.Severity = val
		case 'C':
			se.SQLState = val
		case 'M':
			se.Message = val
		case 'D':
			se.Detail = val
		case 'H':
			se.Hint = val
		case 'P':
			se.Position = atoiSafe(val)
		}
	}
	return se
}

func atoiSafe(s string) int {
	n := 0
	for _, c := range s {
		if c < '0' || c > '9' {
			return n
		}
		n = n*10 + int(c-'0')
	}
	return n
}

// ColumnDesc is server-supplied column metadata from a RowDescription.
type ColumnDesc struct {
	Name    string
	TypeOID uint32
	Format  int16
}

// parseRowDescription decodes a RowDescription payload.
func parseRowDescription(payload []byte) []ColumnDesc {
	if len(payload) < 2 {
		return nil
	}
	n := int(binary.BigEndian.Uint16(payload))
	payload = payload[2:]
	cols := make([]ColumnDesc, 0, n)
	for i := 0; i < n; i++ {
		end := bytes.IndexByte(payload, 0)
		if end < 0 {
			break
		}
		name := string(payload[:end])
		payload = payload[end+1:]
		if len(payload) < 18 {
			break
		}
		typeOID := binary.BigEndian.Uint32(payload[6:10])
		format := int16(binary.BigEndian.Uint16(payload[16:18]))
		payload = payload[18:]
		cols = append(cols, ColumnDesc{Name: name, TypeOID: typeOID, Format: format})
	}
	return cols
}

// parseDataRow decodes a DataRow payload into per-column byte slices;
// nil marks NULL. The returned slices are copies and safe to retain.
func parseDataRow(payload []byte) [][]byte {
	if len(payload) < 2 {
		return nil
	}
	n := int(binary.BigEndian.Uint16(payload))
	payload = payload[2:]
	values := make([][]byte, 0, n)
	for i := 0; i < n; i++ {
		if len(payload) < 4 {
			break
		}
		l := int(int32(binary.BigEndian.Uint32(payload)))
		payload = payload[4:]
		if l < 0 {
			values = append(values, nil)
			continue
		}
		if len(payload) < l {
			break
		}
		v := make([]byte, l)
		copy(v, payload[:l])
		payload = payload[l:]
		values = append(values, v)
	}
	return values
}

// commandTagRows extracts the affected-row count from a CommandComplete tag:
// the last whitespace-separated token, base 10.
func commandTagRows(tag []byte) uint64 {
	tag = bytes.TrimRight(tag, "\x00")
	idx := bytes.LastIndexByte(tag, ' ')
	if idx < 0 {
		return 0
	}
	var n uint64
	for _, c := range tag[idx+1:] {
		if c < '0' || c > '9' {
			return 0
		}
		n = n*10 + uint64(c-'0')
	}
	return n
}
