package grammar

import (
	"strings"
)

func (t *Type) String() string {
	return t.Name + strings.Repeat("[]", len(t.Dims))
}

func (s *Signature) String() string {
	params := make([]string, len(s.Params))
	for i, p := range s.Params {
		params[i] = p.String()
	}
	return s.Name + "(" + strings.Join(params, ", ") + "): " + s.Return.String()
}

func (m *MethodRef) String() string {
	return m.Owner + "#" + m.Signature.String()
}

func (f *FieldRef) String() string {
	return f.Owner + "#" + f.Name
}

func (m *Method) String() string {
	return m.Owner + "#" + m.Signature.String()
}
