package discovery

import (
	"reflect"
	"runtime"

	"ctr/internal/domain"
)

// Suite builds a definition from the exported methods of v. Methods are bound
// to v, so v plays the part of the class object and nothing is instantiated.
//
// A method promoted from an embedded field is attributed to that field's type
// and is not run through v. A method that v's type redeclares is its own.
func Suite(name string, v any) domain.Definition {
	def := domain.Definition{Name: name}
	if v == nil {
		return def
	}

	val := reflect.ValueOf(v)
	typ := val.Type()
	promoted := promotedMethods(typ)

	for i := 0; i < typ.NumMethod(); i++ {
		m := typ.Method(i)
		method := domain.Method{
			Name: m.Name,
			Body: val.Method(i).Interface(),
		}
		if owner, ok := promoted[m.Name]; ok && !declaredOn(typ, m.Name) {
			method.DeclaredBy = owner
		}
		def.Methods = append(def.Methods, method)
	}
	return def
}

// declaredOn reports whether t (or, for a pointer, its element type) has a
// hand-written method called name. Promoted methods and the pointer wrappers
// of value methods are compiler generated.
func declaredOn(t reflect.Type, name string) bool {
	types := []reflect.Type{t}
	if t.Kind() == reflect.Pointer {
		types = append(types, t.Elem())
	}
	for _, candidate := range types {
		m, ok := candidate.MethodByName(name)
		if ok && !generated(m.Func) {
			return true
		}
	}
	return false
}

func generated(fn reflect.Value) bool {
	f := runtime.FuncForPC(fn.Pointer())
	if f == nil {
		return true
	}
	file, _ := f.FileLine(f.Entry())
	return file == "<autogenerated>"
}

// promotedMethods maps method names provided by embedded fields to the name
// of the embedded type.
func promotedMethods(t reflect.Type) map[string]string {
	out := make(map[string]string)
	st := t
	if st.Kind() == reflect.Pointer {
		st = st.Elem()
	}
	if st.Kind() != reflect.Struct {
		return out
	}

	for i := 0; i < st.NumField(); i++ {
		f := st.Field(i)
		if !f.Anonymous {
			continue
		}
		ft := f.Type
		owner := ft.Name()
		if ft.Kind() == reflect.Pointer {
			owner = ft.Elem().Name()
		} else if ft.Kind() != reflect.Interface {
			ft = reflect.PointerTo(ft)
		}
		for j := 0; j < ft.NumMethod(); j++ {
			if _, seen := out[ft.Method(j).Name]; !seen {
				out[ft.Method(j).Name] = owner
			}
		}
	}
	return out
}
