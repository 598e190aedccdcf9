package diag

// Reporter receives diagnostics from the lexer and compiler.
type Reporter interface {
	Report(code Code, line int, where, msg string)
}

// BagReporter is an adapter that writes to *Bag.
type BagReporter struct{ Bag *Bag }

func (r BagReporter) Report(code Code, line int, where, msg string) {
	if r.Bag == nil {
		return
	}
	r.Bag.Add(Diagnostic{Code: code, Message: msg, Line: line, Where: where})
}
