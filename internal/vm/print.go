package vm

// FormatValue renders v the way the print statement does.
func (h *Heap) FormatValue(v Value) string {
	switch {
	case v.IsNil():
		return "nil"
	case v.IsBool():
		if v.AsBool() {
			return "true"
		}
		return "false"
	case v.IsNumber():
		return formatNumber(v.AsNumber())
	}
	return h.formatObject(h.Get(v.AsHandle()))
}

func (h *Heap) formatObject(o Obj) string {
	switch obj := o.(type) {
	case *String:
		return obj.Chars
	case *Function:
		return formatFunction(obj)
	case *Closure:
		return formatFunction(obj.Function)
	case *BoundMethod:
		return formatFunction(obj.Method.Function)
	case *Native:
		return "<native fn>"
	case *Class:
		return obj.Name.Chars
	case *Instance:
		return obj.Class.Name.Chars + " instance"
	case *Upvalue:
		return "upvalue"
	}
	return "<object>"
}

func formatFunction(fn *Function) string {
	if fn.Name == nil {
		return "<script>"
	}
	return "<fn " + fn.Name.Chars + ">"
}
