package resp_test

import (
	"bytes"
	"io"
	"testing"

	"github.com/lunamoth/driftwood/internal/resp"
)

func TestEncoderWrite(t *testing.T) {
	tests := []struct {
		name     string
		input    resp.Value
		expected string
	}{
		{
			name:     "integer positive",
			input:    resp.MakeInteger(100),
			expected: ":100\r\n",
		},
		{
			name:     "integer negative",
			input:    resp.MakeInteger(-42),
			expected: ":-42\r\n",
		},
		{
			name:     "simple string",
			input:    resp.MakeSimpleString("OK"),
			expected: "+OK\r\n",
		},
		{
			name:     "error",
			input:    resp.MakeError("ERR something broke"),
			expected: "-ERR something broke\r\n",
		},
		{
			name:     "bulk string",
			input:    resp.MakeBulkString("hello"),
			expected: "$5\r\nhello\r\n",
		},
		{
			name:     "bulk string empty",
			input:    resp.MakeBulkString(""),
			expected: "$0\r\n\r\n",
		},
		{
			name:     "bulk string null",
			input:    resp.MakeNilBulkString(),
			expected: "$-1\r\n",
		},
		{
			name:     "bulk bytes binary",
			input:    resp.MakeBulkBytes([]byte("a\r\nb")),
			expected: "$4\r\na\r\nb\r\n",
		},
		{
			name: "array of strings",
			input: resp.MakeArray([]resp.Value{
				resp.MakeBulkString("fff"),
				resp.MakeBulkString("ttt"),
			}),
			expected: "*2\r\n$3\r\nfff\r\n$3\r\nttt\r\n",
		},
		{
			name:     "array null",
			input:    resp.Value{Type: resp.TypeArray, IsNull: true},
			expected: "*-1\r\n",
		},
		{
			name:     "array empty",
			input:    resp.MakeArray([]resp.Value{}),
			expected: "*0\r\n",
		},
		{
			name: "mixed nested array",
			input: resp.MakeArray([]resp.Value{
				resp.MakeInteger(1),
				resp.MakeArray([]resp.Value{
					resp.MakeSimpleString("inner"),
				}),
			}),
			expected: "*2\r\n:1\r\n*1\r\n+inner\r\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			enc := resp.NewEncoder(&buf)

			if err := enc.Write(tt.input); err != nil {
				t.Fatalf("Write() failed: %v", err)
			}
			if err := enc.Flush(); err != nil {
				t.Fatalf("Flush() failed: %v", err)
			}

			if buf.String() != tt.expected {
				t.Errorf("Write() got = %q, want %q", buf.String(), tt.expected)
			}
		})
	}
}

func TestEncoderRoundTrip(t *testing.T) {
	in := resp.MakeArray([]resp.Value{
		resp.MakeBulkString("LRANGE"),
		resp.MakeBulkString("queue"),
		resp.MakeBulkString("0"),
		resp.MakeBulkString("-1"),
	})

	var buf bytes.Buffer
	enc := resp.NewEncoder(&buf)
	if err := enc.Write(in); err != nil {
		t.Fatalf("Write() failed: %v", err)
	}
	if err := enc.Flush(); err != nil {
		t.Fatalf("Flush() failed: %v", err)
	}

	out, err := resp.NewDecoder(&buf).ReadCommand()
	if err != nil {
		t.Fatalf("ReadCommand() failed: %v", err)
	}
	if len(out.Array) != len(in.Array) {
		t.Fatalf("round trip lost elements: %d != %d", len(out.Array), len(in.Array))
	}
	for i := range in.Array {
		if string(out.Array[i].String) != string(in.Array[i].String) {
			t.Errorf("element %d = %q, want %q", i, out.Array[i].String, in.Array[i].String)
		}
	}
}

func TestEncoderWriteError(t *testing.T) {
	enc := resp.NewEncoder(&errorWriter{})

	if err := enc.Write(resp.MakeSimpleString("test")); err != nil {
		t.Fatalf("Write() failed: %v", err)
	}
	if err := enc.Flush(); err == nil {
		t.Error("expected error from Flush(), but got nil")
	}
}

type errorWriter struct{}

func (e *errorWriter) Write(_ []byte) (n int, err error) {
	return 0, io.ErrClosedPipe
}
