package vm

import (
	"errors"
	"testing"

	"github.com/hugr-lab/recfilter/internal/msgpack"
	"github.com/hugr-lab/recfilter/internal/serialize"
	"github.com/hugr-lab/recfilter/query"
)

func TestCodecRoundTrip(t *testing.T) {
	queries := []string{
		`size > 20 || range == "antarctic"`,
		`!(upper(name) != "MOBY") && rare == true`,
		`note == null || depth < -3`,
		`lower("") == name`,
	}

	for _, q := range queries {
		t.Run(q, func(t *testing.T) {
			prog := Compile(query.MustParse(q))
			data, err := prog.MarshalBinary()
			if err != nil {
				t.Fatalf("MarshalBinary() error = %v", err)
			}
			got, err := DecodeProgram(data)
			if err != nil {
				t.Fatalf("DecodeProgram() error = %v", err)
			}
			if !got.Equal(prog) {
				t.Errorf("decoded =\n%s\nwant\n%s", got, prog)
			}
		})
	}
}

func TestDecodeProgramErrors(t *testing.T) {
	malformed, err := (&Program{Code: []Instruction{{Op: OpPushField, Name: "a"}, {Op: OpAnd}}}).MarshalBinary()
	if err != nil {
		t.Fatal(err)
	}

	raw, err := msgpack.Encode(&wireProgram{Version: codecVersion + 1})
	if err != nil {
		t.Fatal(err)
	}
	future, err := serialize.Compress(raw)
	if err != nil {
		t.Fatal(err)
	}

	raw, err = msgpack.Encode(&wireProgram{Version: codecVersion, Code: []wireInstruction{{Op: uint8(OpPushLiteral), Kind: 9}}})
	if err != nil {
		t.Fatal(err)
	}
	badKind, err := serialize.Compress(raw)
	if err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name string
		data []byte
		want error
	}{
		{"empty", nil, ErrInvalidEncoding},
		{"garbage", []byte("not a program"), ErrInvalidEncoding},
		{"future version", future, ErrInvalidEncoding},
		{"unknown kind", badKind, ErrInvalidEncoding},
		{"malformed", malformed, ErrMalformedProgram},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := DecodeProgram(tt.data)
			if !errors.Is(err, tt.want) {
				t.Errorf("DecodeProgram() error = %v, want %v", err, tt.want)
			}
		})
	}
}
