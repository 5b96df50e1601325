package vm

import (
	"fmt"

	"github.com/hugr-lab/recfilter/internal/msgpack"
	"github.com/hugr-lab/recfilter/internal/serialize"
	"github.com/hugr-lab/recfilter/query"
)

// codecVersion is bumped whenever the opcode numbering changes.
const codecVersion = 1

type wireProgram struct {
	Version int               `msgpack:"v"`
	Code    []wireInstruction `msgpack:"code"`
}

type wireInstruction struct {
	Op   uint8   `msgpack:"op"`
	Name string  `msgpack:"name,omitempty"`
	Kind uint8   `msgpack:"kind,omitempty"`
	Bool bool    `msgpack:"b,omitempty"`
	Num  float64 `msgpack:"n,omitempty"`
	Str  string  `msgpack:"s,omitempty"`
}

// MarshalBinary encodes the program as zstd-compressed MessagePack.
func (p *Program) MarshalBinary() ([]byte, error) {
	wp := wireProgram{Version: codecVersion, Code: make([]wireInstruction, len(p.Code))}
	for i, in := range p.Code {
		wi := wireInstruction{Op: uint8(in.Op), Name: in.Name}
		if in.Op == OpPushLiteral {
			wi.Kind = uint8(in.Value.Kind())
			switch in.Value.Kind() {
			case query.KindBool:
				wi.Bool, _ = in.Value.AsBool()
			case query.KindNumber:
				wi.Num, _ = in.Value.AsNumber()
			case query.KindString:
				wi.Str, _ = in.Value.AsText()
			}
		}
		wp.Code[i] = wi
	}

	data, err := msgpack.Encode(&wp)
	if err != nil {
		return nil, err
	}
	return serialize.Compress(data)
}

// UnmarshalBinary decodes a program produced by MarshalBinary and checks
// its stack discipline with Validate.
func (p *Program) UnmarshalBinary(data []byte) error {
	raw, err := serialize.Decompress(data)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidEncoding, err)
	}

	var wp wireProgram
	if err := msgpack.Decode(raw, &wp); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidEncoding, err)
	}
	if wp.Version != codecVersion {
		return fmt.Errorf("%w: unsupported version %d", ErrInvalidEncoding, wp.Version)
	}

	code := make([]Instruction, len(wp.Code))
	for i, wi := range wp.Code {
		in := Instruction{Op: Opcode(wi.Op), Name: wi.Name}
		if in.Op == OpPushLiteral {
			switch query.Kind(wi.Kind) {
			case query.KindNull:
				in.Value = query.Null()
			case query.KindBool:
				in.Value = query.Bool(wi.Bool)
			case query.KindNumber:
				in.Value = query.Number(wi.Num)
			case query.KindString:
				in.Value = query.String(wi.Str)
			default:
				return fmt.Errorf("%w: instruction %d has unknown value kind %d", ErrInvalidEncoding, i, wi.Kind)
			}
		}
		code[i] = in
	}

	decoded := Program{Code: code}
	if err := decoded.Validate(); err != nil {
		return err
	}
	*p = decoded
	return nil
}

// DecodeProgram decodes and validates an encoded program.
func DecodeProgram(data []byte) (*Program, error) {
	p := &Program{}
	if err := p.UnmarshalBinary(data); err != nil {
		return nil, err
	}
	return p, nil
}
