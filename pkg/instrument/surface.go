package instrument

import (
	"sort"

	"github.com/chazu/stacklog/pkg/bytecode"
)

// Method is one static method the logging sink declares.
type Method struct {
	Name string `toml:"name" json:"name"`
	Desc string `toml:"desc" json:"desc"`
}

// Surface is the set of static methods the logging sink class declares.
// The registry checks its required entry points against a Surface instead
// of inspecting the sink class at run time.
type Surface struct {
	methods map[string][]string // name -> descriptors, one per overload
}

// NewSurface builds a surface from declared methods. Duplicates collapse.
func NewSurface(methods ...Method) Surface {
	s := Surface{methods: make(map[string][]string)}
	for _, m := range methods {
		if !s.Has(m.Name, m.Desc) {
			s.methods[m.Name] = append(s.methods[m.Name], m.Desc)
		}
	}
	return s
}

// DefaultSurface returns the surface of a sink that implements exactly the
// logging contract, with actionOwner as the internal name of its action enum.
func DefaultSurface(actionOwner string) Surface {
	action := bytecode.ObjectOf(actionOwner)
	var methods []Method
	for _, sig := range targetSignatures(action) {
		methods = append(methods, Method{Name: sig.name, Desc: sig.desc()})
	}
	for _, vs := range bytecode.ValueSorts() {
		methods = append(methods, Method{Name: convertName, Desc: convertSignature(vs).desc()})
	}
	return NewSurface(methods...)
}

// Lookup returns the descriptors declared under name.
func (s Surface) Lookup(name string) []string {
	return s.methods[name]
}

// Has reports whether the surface declares name with exactly desc.
func (s Surface) Has(name, desc string) bool {
	for _, d := range s.methods[name] {
		if d == desc {
			return true
		}
	}
	return false
}

// Methods returns every declared method sorted by name, then descriptor.
func (s Surface) Methods() []Method {
	var out []Method
	for name, descs := range s.methods {
		for _, d := range descs {
			out = append(out, Method{Name: name, Desc: d})
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Name != out[j].Name {
			return out[i].Name < out[j].Name
		}
		return out[i].Desc < out[j].Desc
	})
	return out
}

// Len returns the number of declared methods.
func (s Surface) Len() int {
	n := 0
	for _, descs := range s.methods {
		n += len(descs)
	}
	return n
}
