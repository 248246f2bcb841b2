package resp

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"strconv"
)

// ErrProtocol marks a malformed frame. The caller decides whether the
// connection survives; the decoder itself never discards buffered bytes
// beyond the broken frame.
var ErrProtocol = errors.New("protocol error")

const (
	// maxBulkLength caps a single bulk string at 512MB, like Redis.
	maxBulkLength = 512 * 1024 * 1024
	// maxMultibulkLength caps the element count of a request array.
	maxMultibulkLength = 1024 * 1024
	// maxInlineLength caps a single inline request line.
	maxInlineLength = 64 * 1024
)

// Decoder turns a byte stream into Values. Reads block on the underlying
// reader until a full frame is buffered, so a partial frame is simply
// resumed by the next Read on the same connection.
type Decoder struct {
	rd *bufio.Reader
}

func NewDecoder(rd io.Reader) *Decoder {
	return &Decoder{rd: bufio.NewReader(rd)}
}

// Buffered returns the number of decoded-but-unconsumed input bytes.
// A pipelining client leaves follow-up commands here.
func (d *Decoder) Buffered() int {
	return d.rd.Buffered()
}

// ReadCommand reads the next client request. Multibulk requests start with
// '*'; anything else is treated as an inline command line. Either form is
// returned as an array of bulk strings. Empty inline lines are skipped.
func (d *Decoder) ReadCommand() (Value, error) {
	for {
		first, err := d.rd.ReadByte()
		if err != nil {
			return Value{}, err
		}

		if first == TypeArray {
			return d.readArray()
		}

		if err := d.rd.UnreadByte(); err != nil {
			return Value{}, err
		}

		v, err := d.readInline()
		if err != nil {
			return Value{}, err
		}
		if len(v.Array) == 0 {
			continue // bare CRLF, nothing to dispatch
		}
		return v, nil
	}
}

// Read decodes a single frame of any type. Used for replies and for the
// recursive elements of arrays.
func (d *Decoder) Read() (Value, error) {
	first, err := d.rd.ReadByte()
	if err != nil {
		return Value{}, err
	}

	val := Value{Type: first}

	switch first {
	case TypeSimpleString, TypeError:
		str, err := d.readLine()
		if err != nil {
			return Value{}, err
		}
		val.String = str
		return val, nil

	case TypeInteger:
		n, err := d.readInteger()
		if err != nil {
			return Value{}, err
		}
		val.Integer = n
		return val, nil

	case TypeBulkString:
		return d.readBulk()

	case TypeArray:
		return d.readArray()
	}

	return Value{}, fmt.Errorf("%w: unexpected type byte %q", ErrProtocol, first)
}

func (d *Decoder) readArray() (Value, error) {
	n, err := d.readInteger()
	if err != nil {
		return Value{}, err
	}

	if n == -1 {
		return Value{Type: TypeArray, IsNull: true}, nil
	}
	if n < 0 || n > maxMultibulkLength {
		return Value{}, fmt.Errorf("%w: invalid multibulk length %d", ErrProtocol, n)
	}

	val := Value{
		Type:  TypeArray,
		Array: make([]Value, n),
	}
	for i := range val.Array {
		el, err := d.Read()
		if err != nil {
			return Value{}, err
		}
		val.Array[i] = el
	}
	return val, nil
}

func (d *Decoder) readBulk() (Value, error) {
	n, err := d.readInteger()
	if err != nil {
		return Value{}, err
	}

	if n == -1 {
		return Value{Type: TypeBulkString, IsNull: true}, nil
	}
	if n < 0 || n > maxBulkLength {
		return Value{}, fmt.Errorf("%w: invalid bulk length %d", ErrProtocol, n)
	}

	buf := make([]byte, n+2)
	if _, err := io.ReadFull(d.rd, buf); err != nil {
		return Value{}, err
	}
	if buf[n] != '\r' || buf[n+1] != '\n' {
		return Value{}, fmt.Errorf("%w: bulk string missing CRLF terminator", ErrProtocol)
	}

	return Value{Type: TypeBulkString, String: buf[:n]}, nil
}

// readInline parses a whitespace-separated command line into an array of
// bulk strings, the same shape a multibulk request decodes to.
func (d *Decoder) readInline() (Value, error) {
	line, err := d.readLine()
	if err != nil {
		return Value{}, err
	}

	fields := bytes.Fields(line)
	val := Value{
		Type:  TypeArray,
		Array: make([]Value, len(fields)),
	}
	for i, f := range fields {
		val.Array[i] = Value{Type: TypeBulkString, String: f}
	}
	return val, nil
}

// readLine reads up to CRLF and returns the line without the terminator.
// It accumulates buffer-sized chunks so the length cap fires while the
// line is being read, not after an oversized one is fully buffered.
func (d *Decoder) readLine() ([]byte, error) {
	var line []byte
	for {
		chunk, err := d.rd.ReadSlice('\n')
		if len(line)+len(chunk) > maxInlineLength {
			return nil, fmt.Errorf("%w: request line too long", ErrProtocol)
		}
		line = append(line, chunk...)
		if err == nil {
			break
		}
		if err != bufio.ErrBufferFull {
			return nil, err
		}
	}
	if len(line) < 2 || line[len(line)-2] != '\r' {
		return nil, fmt.Errorf("%w: invalid line ending", ErrProtocol)
	}
	return line[:len(line)-2], nil
}

func (d *Decoder) readInteger() (int64, error) {
	line, err := d.readLine()
	if err != nil {
		return 0, err
	}

	n, err := strconv.ParseInt(string(line), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: invalid integer %q", ErrProtocol, line)
	}
	return n, nil
}
