package dispatch

import (
	"reflect"

	"github.com/invopop/jsonschema"
)

// MethodInfo describes one table entry for discovery.
type MethodInfo struct {
	Name       string               `json:"name"`
	Kind       string               `json:"kind"`
	Params     []*jsonschema.Schema `json:"params"`
	ParamNames []string             `json:"paramNames,omitempty"`
	Result     *jsonschema.Schema   `json:"result,omitempty"`
}

// Describe reflects the parameter and result types of every entry into JSON
// Schema, ordered by wire name.
func (t *Table) Describe() []MethodInfo {
	r := &jsonschema.Reflector{
		DoNotReference: true,
		Anonymous:      true,
	}
	infos := make([]MethodInfo, 0, len(t.entries))
	for _, name := range t.Names() {
		e := t.entries[name]
		desc := e.Descriptor()
		info := MethodInfo{
			Name:       name,
			Kind:       e.Kind().String(),
			Params:     make([]*jsonschema.Schema, len(desc.Params)),
			ParamNames: desc.ParamNames,
		}
		for i, p := range desc.Params {
			info.Params[i] = reflectSchema(r, p)
		}
		if desc.Result != nil {
			info.Result = reflectSchema(r, desc.Result)
		}
		infos = append(infos, info)
	}
	return infos
}

func reflectSchema(r *jsonschema.Reflector, t reflect.Type) *jsonschema.Schema {
	s := r.ReflectFromType(t)
	if s != nil {
		s.Version = ""
	}
	return s
}
