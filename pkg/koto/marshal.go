package koto

import (
	"fmt"
	"reflect"

	"github.com/kotoscript/koto/internal/value"
)

// ToValue converts a Go value into the Koto value.Value it's displayed and
// operated on as. Functions become a value.NativeFunction that marshals
// its own arguments/results on each call, the way funxy's Marshaller.ToValue
// wraps a reflect.Func as a HostObject - except here the wrapping is a
// first-class callable rather than an opaque host reference, since this
// VM's NativeFunction is itself just a Go closure.
func ToValue(goVal interface{}) (value.Value, error) {
	if goVal == nil {
		return value.NullVal(), nil
	}
	if v, ok := goVal.(value.Value); ok {
		return v, nil
	}

	rv := reflect.ValueOf(goVal)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return value.IntVal(rv.Int()), nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return value.IntVal(int64(rv.Uint())), nil
	case reflect.Float32, reflect.Float64:
		return value.FloatVal(rv.Float()), nil
	case reflect.Bool:
		return value.BoolVal(rv.Bool()), nil
	case reflect.String:
		return value.StrVal(value.NewStr(rv.String())), nil
	case reflect.Slice, reflect.Array:
		elems := make([]value.Value, rv.Len())
		for i := 0; i < rv.Len(); i++ {
			ev, err := ToValue(rv.Index(i).Interface())
			if err != nil {
				return value.Value{}, err
			}
			elems[i] = ev
		}
		return value.ListVal(value.NewList(elems...)), nil
	case reflect.Map:
		if rv.Type().Key().Kind() != reflect.String {
			return value.Value{}, fmt.Errorf("unsupported map key type %s (only string keys)", rv.Type().Key())
		}
		m := value.NewMap()
		iter := rv.MapRange()
		for iter.Next() {
			ev, err := ToValue(iter.Value().Interface())
			if err != nil {
				return value.Value{}, err
			}
			if err := m.Insert(value.StrVal(value.NewStr(iter.Key().String())), ev); err != nil {
				return value.Value{}, err
			}
		}
		return value.MapVal(m), nil
	case reflect.Struct:
		return structToMap(rv)
	case reflect.Ptr:
		if rv.IsNil() {
			return value.NullVal(), nil
		}
		return ToValue(rv.Elem().Interface())
	case reflect.Func:
		return wrapFunc(rv), nil
	default:
		return value.Value{}, fmt.Errorf("cannot convert Go value of kind %s to koto value", rv.Kind())
	}
}

func structToMap(rv reflect.Value) (value.Value, error) {
	m := value.NewMap()
	t := rv.Type()
	for i := 0; i < rv.NumField(); i++ {
		f := t.Field(i)
		if f.PkgPath != "" {
			continue
		}
		fv, err := ToValue(rv.Field(i).Interface())
		if err != nil {
			return value.Value{}, err
		}
		if err := m.Insert(value.StrVal(value.NewStr(f.Name)), fv); err != nil {
			return value.Value{}, err
		}
	}
	return value.MapVal(m), nil
}

// wrapFunc adapts an arbitrary Go function to value.NativeFunction,
// converting each call's Koto arguments to the function's declared
// parameter types and its return values (0, 1, or many -> Tuple) back to
// Koto values.
func wrapFunc(fn reflect.Value) value.Value {
	ft := fn.Type()
	native := value.NativeFunction(func(ctx value.CallContext, args []value.Value, instance *value.Value) (value.Value, error) {
		numIn := ft.NumIn()
		if ft.IsVariadic() {
			if len(args) < numIn-1 {
				return value.Value{}, fmt.Errorf("expected at least %d arguments, got %d", numIn-1, len(args))
			}
		} else if len(args) != numIn {
			return value.Value{}, fmt.Errorf("expected %d arguments, got %d", numIn, len(args))
		}

		goArgs := make([]reflect.Value, len(args))
		for i, a := range args {
			var targetType reflect.Type
			switch {
			case ft.IsVariadic() && i >= numIn-1:
				targetType = ft.In(numIn - 1).Elem()
			case i < numIn:
				targetType = ft.In(i)
			}
			gv, err := FromValue(a, targetType)
			if err != nil {
				return value.Value{}, fmt.Errorf("argument %d: %w", i, err)
			}
			if gv == nil {
				goArgs[i] = reflect.Zero(targetType)
				continue
			}
			rv := reflect.ValueOf(gv)
			if rv.Type().AssignableTo(targetType) {
				goArgs[i] = rv
			} else if rv.Type().ConvertibleTo(targetType) {
				goArgs[i] = rv.Convert(targetType)
			} else {
				return value.Value{}, fmt.Errorf("argument %d: cannot convert %s to %s", i, rv.Type(), targetType)
			}
		}

		results := fn.Call(goArgs)
		switch len(results) {
		case 0:
			return value.NullVal(), nil
		case 1:
			return ToValue(results[0].Interface())
		default:
			elems := make([]value.Value, len(results))
			for i, r := range results {
				ev, err := ToValue(r.Interface())
				if err != nil {
					return value.Value{}, err
				}
				elems[i] = ev
			}
			return value.TupleVal(value.NewTuple(elems...)), nil
		}
	})
	return value.NativeFunctionVal(native)
}

// FromValue converts a Koto value.Value back to a Go value. targetType is
// optional; when given it steers numeric widening and slice element type.
func FromValue(v value.Value, targetType reflect.Type) (interface{}, error) {
	switch v.Tag {
	case value.Null:
		return nil, nil
	case value.Bool:
		return v.AsBool(), nil
	case value.Int:
		if targetType != nil {
			switch targetType.Kind() {
			case reflect.Float32, reflect.Float64:
				return float64(v.AsInt()), nil
			case reflect.Int32:
				return int32(v.AsInt()), nil
			}
		}
		return v.AsInt(), nil
	case value.Float:
		return v.AsFloat(), nil
	case value.StrTag:
		return v.Str().String(), nil
	case value.ListTag:
		l := v.List()
		elemType := reflect.TypeOf((*interface{})(nil)).Elem()
		if targetType != nil && targetType.Kind() == reflect.Slice {
			elemType = targetType.Elem()
		}
		out := reflect.MakeSlice(reflect.SliceOf(elemType), 0, l.Len())
		for _, e := range l.Elements {
			gv, err := FromValue(e, elemType)
			if err != nil {
				return nil, err
			}
			if gv == nil {
				out = reflect.Append(out, reflect.Zero(elemType))
				continue
			}
			rv := reflect.ValueOf(gv)
			if !rv.Type().AssignableTo(elemType) && rv.Type().ConvertibleTo(elemType) {
				rv = rv.Convert(elemType)
			}
			out = reflect.Append(out, rv)
		}
		return out.Interface(), nil
	case value.TupleTag:
		t := v.Tuple()
		out := make([]interface{}, t.Len())
		for i, e := range t.Elements {
			gv, err := FromValue(e, nil)
			if err != nil {
				return nil, err
			}
			out[i] = gv
		}
		return out, nil
	case value.MapTag:
		m := v.Map()
		out := make(map[string]interface{}, m.Len())
		err := m.Each(func(k, val value.Value) error {
			gv, err := FromValue(val, nil)
			if err != nil {
				return err
			}
			ks, err := FromValue(k, reflect.TypeOf(""))
			if err != nil {
				return err
			}
			out[fmt.Sprint(ks)] = gv
			return nil
		})
		if err != nil {
			return nil, err
		}
		return out, nil
	case value.FunctionTag, value.NativeFunctionTag:
		return v, nil
	default:
		return nil, fmt.Errorf("unsupported koto value for conversion: %s", v.TypeName())
	}
}
