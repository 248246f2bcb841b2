package resp_test

import (
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/lunamoth/driftwood/internal/resp"
)

func TestReadCommandMultibulk(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  []string
	}{
		{
			name:  "SET request",
			input: "*3\r\n$3\r\nSET\r\n$3\r\nfoo\r\n$3\r\nbar\r\n",
			want:  []string{"SET", "foo", "bar"},
		},
		{
			name:  "single element",
			input: "*1\r\n$4\r\nPING\r\n",
			want:  []string{"PING"},
		},
		{
			name:  "binary safe payload",
			input: "*2\r\n$3\r\nGET\r\n$7\r\nfo\r\nbar\r\n",
			want:  []string{"GET", "fo\r\nbar"},
		},
		{
			name:  "empty bulk string",
			input: "*2\r\n$3\r\nGET\r\n$0\r\n\r\n",
			want:  []string{"GET", ""},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := resp.NewDecoder(strings.NewReader(tt.input))

			val, err := d.ReadCommand()
			if err != nil {
				t.Fatalf("ReadCommand() unexpected error: %v", err)
			}
			if val.Type != resp.TypeArray {
				t.Fatalf("ReadCommand() type = %q, want array", val.Type)
			}
			if len(val.Array) != len(tt.want) {
				t.Fatalf("ReadCommand() got %d elements, want %d", len(val.Array), len(tt.want))
			}
			for i, w := range tt.want {
				if got := string(val.Array[i].String); got != w {
					t.Errorf("element %d = %q, want %q", i, got, w)
				}
			}
		})
	}
}

func TestReadCommandInline(t *testing.T) {
	d := resp.NewDecoder(strings.NewReader("SET foo bar\r\n\r\nGET foo\r\n"))

	val, err := d.ReadCommand()
	if err != nil {
		t.Fatalf("ReadCommand() unexpected error: %v", err)
	}
	got := []string{}
	for _, el := range val.Array {
		got = append(got, string(el.String))
	}
	if len(got) != 3 || got[0] != "SET" || got[1] != "foo" || got[2] != "bar" {
		t.Errorf("inline parse got %v", got)
	}

	// the empty line in between is skipped, not surfaced as a command
	val, err = d.ReadCommand()
	if err != nil {
		t.Fatalf("ReadCommand() unexpected error: %v", err)
	}
	if len(val.Array) != 2 || string(val.Array[0].String) != "GET" {
		t.Errorf("second inline command got %v", val.Array)
	}
}

func TestReadCommandPipelined(t *testing.T) {
	d := resp.NewDecoder(strings.NewReader(
		"*2\r\n$3\r\nGET\r\n$1\r\na\r\n*2\r\n$3\r\nGET\r\n$1\r\nb\r\n"))

	for _, want := range []string{"a", "b"} {
		val, err := d.ReadCommand()
		if err != nil {
			t.Fatalf("ReadCommand() unexpected error: %v", err)
		}
		if got := string(val.Array[1].String); got != want {
			t.Errorf("pipelined key = %q, want %q", got, want)
		}
	}

	if _, err := d.ReadCommand(); err != io.EOF {
		t.Errorf("expected EOF after last command, got %v", err)
	}
}

func TestReadMalformed(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr error
	}{
		{"negative multibulk count", "*-5\r\n", resp.ErrProtocol},
		{"huge multibulk count", "*99999999\r\n", resp.ErrProtocol},
		{"non numeric bulk length", "*1\r\n$abc\r\n", resp.ErrProtocol},
		{"negative bulk length", "*1\r\n$-3\r\n", resp.ErrProtocol},
		{"bulk without CRLF", "*1\r\n$3\r\nfooXX", resp.ErrProtocol},
		{"bare LF line ending", "*1\r\n$3\n", resp.ErrProtocol},
		{"truncated bulk payload", "*1\r\n$10\r\nabc", io.ErrUnexpectedEOF},
		{"truncated array", "*2\r\n$3\r\nfoo\r\n", io.EOF},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := resp.NewDecoder(strings.NewReader(tt.input))

			_, err := d.ReadCommand()
			if err == nil {
				t.Fatal("ReadCommand() expected error, got nil")
			}
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("ReadCommand() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestReadLineLengthCap(t *testing.T) {
	// a line that never terminates must be rejected once the cap is
	// reached, instead of being buffered in full first
	d := resp.NewDecoder(strings.NewReader(strings.Repeat("a", 80*1024)))
	_, err := d.ReadCommand()
	if !errors.Is(err, resp.ErrProtocol) {
		t.Errorf("oversized line error = %v, want %v", err, resp.ErrProtocol)
	}

	// a long valid line spans several internal buffer fills and still parses
	long := strings.Repeat("b", 8*1024)
	d = resp.NewDecoder(strings.NewReader("SET k " + long + "\r\n"))
	val, err := d.ReadCommand()
	if err != nil {
		t.Fatalf("ReadCommand() unexpected error: %v", err)
	}
	if len(val.Array) != 3 || string(val.Array[2].String) != long {
		t.Errorf("long inline argument not preserved, got %d elements", len(val.Array))
	}
}

func TestReadReplyTypes(t *testing.T) {
	tests := []struct {
		name  string
		input string
		check func(t *testing.T, v resp.Value)
	}{
		{
			name:  "simple string",
			input: "+OK\r\n",
			check: func(t *testing.T, v resp.Value) {
				if v.Type != resp.TypeSimpleString || string(v.String) != "OK" {
					t.Errorf("got %q %q", v.Type, v.String)
				}
			},
		},
		{
			name:  "error",
			input: "-ERR oops\r\n",
			check: func(t *testing.T, v resp.Value) {
				if v.Type != resp.TypeError || string(v.String) != "ERR oops" {
					t.Errorf("got %q %q", v.Type, v.String)
				}
			},
		},
		{
			name:  "integer",
			input: ":-42\r\n",
			check: func(t *testing.T, v resp.Value) {
				if v.Type != resp.TypeInteger || v.Integer != -42 {
					t.Errorf("got %q %d", v.Type, v.Integer)
				}
			},
		},
		{
			name:  "null bulk",
			input: "$-1\r\n",
			check: func(t *testing.T, v resp.Value) {
				if v.Type != resp.TypeBulkString || !v.IsNull {
					t.Errorf("got %q IsNull=%v", v.Type, v.IsNull)
				}
			},
		},
		{
			name:  "null array",
			input: "*-1\r\n",
			check: func(t *testing.T, v resp.Value) {
				if v.Type != resp.TypeArray || !v.IsNull {
					t.Errorf("got %q IsNull=%v", v.Type, v.IsNull)
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := resp.NewDecoder(strings.NewReader(tt.input))

			val, err := d.Read()
			if err != nil {
				t.Fatalf("Read() unexpected error: %v", err)
			}
			tt.check(t, val)
		})
	}
}
