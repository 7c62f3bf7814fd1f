package sexp

import "strings"

// String prints a list in source syntax.
func String(l *Cons) string {
	var sb strings.Builder
	writeList(&sb, l)
	return sb.String()
}

func writeList(sb *strings.Builder, l *Cons) {
	sb.WriteByte('(')
	for c := l; c != nil; c = c.Cdr {
		if c != l {
			sb.WriteByte(' ')
		}
		if c.Car.IsList() {
			writeList(sb, c.Car.List)
		} else {
			sb.WriteString(c.Car.String())
		}
	}
	sb.WriteByte(')')
}

// Forms prints each element of a top-level list on its own line, the way
// a program is written in a source file.
func Forms(l *Cons) string {
	var sb strings.Builder
	for c := l; c != nil; c = c.Cdr {
		if c.Car.IsList() {
			writeList(&sb, c.Car.List)
		} else {
			sb.WriteString(c.Car.String())
		}
		sb.WriteByte('\n')
	}
	return sb.String()
}
