package decl

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
)

// jsonDecl is the on-disk form of a [Declaration]. Exactly one of the
// pointer fields is set.
type jsonDecl struct {
	Struct    *Struct    `json:"struct,omitempty"`
	Function  *Function  `json:"function,omitempty"`
	Enum      *Enum      `json:"enum,omitempty"`
	TypeAlias *TypeAlias `json:"alias,omitempty"`
}

// ReadJSON decodes a declaration list as written by [WriteJSON].
// Declarations without a header path get header.
func ReadJSON(r io.Reader, header string) ([]Declaration, error) {
	var raw []jsonDecl
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&raw); err != nil {
		return nil, err
	}
	res := make([]Declaration, 0, len(raw))
	for i, jd := range raw {
		var d Declaration
		var origin *Origin
		n := 0
		if jd.Struct != nil {
			d, origin = jd.Struct, &jd.Struct.Origin
			n++
		}
		if jd.Function != nil {
			d, origin = jd.Function, &jd.Function.Origin
			n++
		}
		if jd.Enum != nil {
			d, origin = jd.Enum, &jd.Enum.Origin
			n++
		}
		if jd.TypeAlias != nil {
			d, origin = jd.TypeAlias, &jd.TypeAlias.Origin
			n++
		}
		if n != 1 {
			return nil, fmt.Errorf("declaration %v: expected exactly one of struct, function, enum or alias", i)
		}
		if origin.Name == "" && jd.Enum == nil {
			return nil, fmt.Errorf("declaration %v: missing name", i)
		}
		if origin.Header == "" {
			origin.Header = header
		}
		res = append(res, d)
	}
	return res, nil
}

// LoadJSON reads a declaration dump from a file.
func LoadJSON(path, header string) ([]Declaration, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	decls, err := ReadJSON(f, header)
	if err != nil {
		return nil, fmt.Errorf("%v: %w", path, err)
	}
	return decls, nil
}

// WriteJSON encodes decls so that [ReadJSON] can restore them.
func WriteJSON(w io.Writer, decls []Declaration) error {
	raw := make([]jsonDecl, 0, len(decls))
	for _, d := range decls {
		switch d := d.(type) {
		case *Struct:
			raw = append(raw, jsonDecl{Struct: d})
		case *Function:
			raw = append(raw, jsonDecl{Function: d})
		case *Enum:
			raw = append(raw, jsonDecl{Enum: d})
		case *TypeAlias:
			raw = append(raw, jsonDecl{TypeAlias: d})
		default:
			return errors.New("unknown declaration type")
		}
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(raw)
}
