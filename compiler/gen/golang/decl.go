package golang

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/dave/jennifer/jen"

	"github.com/syssam/casegen/compiler/relation"
	"github.com/syssam/casegen/model"
)

// unit declares e and the classifiers nested in it.
func (r *renderer) unit(f *jen.File, e *model.Entity) {
	switch e.Kind {
	case model.KindTypedef:
		r.typedef(f, e)
	case model.KindEnum:
		r.enum(f, e)
	default:
		r.class(f, e)
	}
	for _, n := range r.v.Nested(e.ID) {
		f.Line()
		r.unit(f, n)
	}
}

func comment(c string) []jen.Code {
	if c == "" {
		return nil
	}
	var out []jen.Code
	for _, l := range strings.Split(c, "\n") {
		out = append(out, jen.Comment(l))
	}
	return out
}

func (r *renderer) comment(f *jen.File, e *model.Entity) {
	for _, c := range comment(r.v.Comment(e)) {
		f.Add(c)
	}
}

func (r *renderer) typedef(f *jen.File, e *model.Entity) {
	alias := r.goType(e.Class.Alias)
	if alias == "" {
		alias = "any"
	}
	r.comment(f, e)
	f.Type().Id(r.typeName(e.ID)).Op("=").Id(alias)
}

// enum declares an int type and one constant per enumerator. Enumerators
// without a value follow the previous one.
func (r *renderer) enum(f *jen.File, e *model.Entity) {
	name := r.typeName(e.ID)
	r.comment(f, e)
	f.Type().Id(name).Int()
	values := r.v.Attributes(e.ID)
	if len(values) == 0 {
		return
	}
	var (
		defs []jen.Code
		base = "0"
		off  int
	)
	for _, a := range values {
		if a.Attribute.HasDefault && a.Attribute.Default != "" {
			base, off = expr(a.Attribute.Default), 0
		}
		value := base
		if n, err := strconv.Atoi(base); err == nil {
			value = strconv.Itoa(n + off)
		} else if off > 0 {
			value = fmt.Sprintf("%s + %d", base, off)
		}
		off++
		defs = append(defs, comment(r.v.Comment(a))...)
		defs = append(defs, jen.Id(name+exported(a.Name, model.AccessPublic)).Id(name).Op("=").Id(value))
	}
	f.Line()
	f.Const().Defs(defs...)
}

func (r *renderer) class(f *jen.File, e *model.Entity) {
	name := r.typeName(e.ID)
	var fields []jen.Code
	for _, b := range e.Class.Bases {
		fields = append(fields, jen.Id(r.typeName(b.Class)))
	}
	var statics []*model.Entity
	for _, a := range r.v.Attributes(e.ID) {
		if a.Attribute.Static {
			statics = append(statics, a)
			continue
		}
		fields = append(fields, comment(r.v.Comment(a))...)
		fields = append(fields, jen.Id(r.ident(e.ID, a)).Id(r.orAny(a.Attribute.Type)))
	}
	r.comment(f, e)
	f.Type().Id(name).Struct(fields...)

	for _, a := range statics {
		f.Line()
		r.comment(f, a)
		s := f.Var().Id(r.ident(e.ID, a)).Id(r.orAny(a.Attribute.Type))
		if d := expr(a.Attribute.Default); d != "" && !zero[d] {
			s.Op("=").Id(d)
		}
	}

	var abstract []jen.Code
	for _, op := range r.v.Operations(e.ID) {
		if op.Operation.Abstract {
			abstract = append(abstract, comment(r.v.Comment(op))...)
			abstract = append(abstract, jen.Id(r.ident(e.ID, op)).Params(r.params(op.Operation.Params)...).Add(r.result(op.Operation.Return)))
		}
	}
	if len(abstract) > 0 {
		f.Line()
		f.Comment(fmt.Sprintf("%sInterface lists the methods the types embedding %s implement.", name, name))
		f.Type().Id(name + "Interface").Interface(abstract...)
	}

	for _, c := range r.constructors(e.ID) {
		r.constructor(f, e, c)
	}
	for _, op := range r.v.Operations(e.ID) {
		switch d := op.Operation; {
		case d.Abstract, d.Constructor:
		case d.Destructor:
			r.destructor(f, e, op)
		default:
			r.method(f, e, op)
		}
	}
}

func (r *renderer) orAny(t model.TypeRef) string {
	if s := r.goType(t); s != "" {
		return s
	}
	return "any"
}

func (r *renderer) result(t model.TypeRef) jen.Code {
	if s := r.goType(t); s != "" {
		return jen.Id(s)
	}
	return jen.Null()
}

func (r *renderer) params(ps []model.Param) []jen.Code {
	out := make([]jen.Code, 0, len(ps))
	for _, p := range ps {
		out = append(out, jen.Id(p.Name).Id(r.orAny(p.Type)))
	}
	return out
}

// ctor is one constructor of a class. A nil op stands for the constructor
// synthesized for classes that only need their defaults applied.
type ctor struct {
	op     *model.Entity
	suffix string
}

func (c ctor) params() []model.Param {
	if c.op == nil {
		return nil
	}
	return c.op.Operation.Params
}

// constructors lists the constructors of class. Overloads are told apart
// by a numeric suffix.
func (r *renderer) constructors(class model.ID) []ctor {
	var out []ctor
	for _, op := range r.v.Operations(class) {
		if !op.Operation.Constructor {
			continue
		}
		c := ctor{op: op}
		if len(out) > 0 {
			c.suffix = strconv.Itoa(len(out) + 1)
		}
		out = append(out, c)
	}
	if len(out) == 0 && r.needsInit(class) {
		out = append(out, ctor{})
	}
	return out
}

// needsInit reports whether the zero value of class misses a default or
// a base initialisation.
func (r *renderer) needsInit(class model.ID) bool {
	for _, a := range r.v.Attributes(class) {
		if d := a.Attribute; !d.Static && d.HasDefault && d.Default != "" && !zero[expr(d.Default)] {
			return true
		}
	}
	e := r.v.Entity(class)
	for _, b := range e.Class.Bases {
		if _, ok := r.baseInit(b.Class, 0); ok {
			return true
		}
	}
	return false
}

// baseInit returns the constructor of base taking argc arguments,
// preferring the preferred one.
func (r *renderer) baseInit(base model.ID, argc int) (ctor, bool) {
	var (
		found ctor
		ok    bool
	)
	for _, c := range r.constructors(base) {
		if len(c.params()) != argc {
			continue
		}
		if !ok || (c.op != nil && c.op.Operation.Preferred) {
			found, ok = c, true
		}
	}
	return found, ok
}

func (r *renderer) destroyable(class model.ID) bool {
	for _, op := range r.v.Operations(class) {
		if op.Operation.Destructor {
			return true
		}
	}
	return false
}

func (r *renderer) constructor(f *jen.File, e *model.Entity, c ctor) {
	name := r.typeName(e.ID)
	var (
		data *model.OperationData
		acc  = model.AccessPublic
	)
	if c.op != nil {
		data = c.op.Operation
		acc = data.Access
	}
	recv := r.receiver(e.ID, data)
	newName := exported("New"+name+c.suffix, acc)
	initName := "init" + c.suffix
	var args []jen.Code
	for _, p := range c.params() {
		args = append(args, jen.Id(p.Name))
	}

	f.Line()
	if c.op != nil && r.v.Comment(c.op) != "" {
		r.comment(f, c.op)
	} else {
		f.Comment(fmt.Sprintf("%s returns a new %s.", newName, name))
	}
	f.Func().Id(newName).Params(r.params(c.params())...).Op("*").Id(name).Block(
		jen.Id(recv).Op(":=").Op("&").Id(name).Values(),
		jen.Id(recv).Dot(initName).Call(args...),
		jen.Return(jen.Id(recv)),
	)

	var body []jen.Code
	var inits []model.Init
	if data != nil {
		inits = data.Inits
	}
	for _, b := range e.Class.Bases {
		var bargs []jen.Code
		for _, in := range inits {
			if in.Base == b.Class {
				for _, a := range in.Args {
					bargs = append(bargs, jen.Id(a))
				}
			}
		}
		if bc, ok := r.baseInit(b.Class, len(bargs)); ok {
			body = append(body, jen.Id(recv).Dot(r.typeName(b.Class)).Dot("init"+bc.suffix).Call(bargs...))
		}
	}
	for _, a := range r.v.Attributes(e.ID) {
		if d := a.Attribute; !d.Static && d.HasDefault && d.Default != "" && !zero[expr(d.Default)] {
			body = append(body, jen.Id(recv).Dot(r.ident(e.ID, a)).Op("=").Id(expr(d.Default)))
		}
	}
	for _, in := range inits {
		if in.Member != "" {
			body = append(body, jen.Id(recv).Dot(r.named(e.ID, in.Member)).Op("=").Id(strings.Join(in.Args, ", ")))
		}
	}
	if data != nil {
		body = append(body, raw(data.Body)...)
	}
	if r.v.Operation(e.ID, model.RoleSetup) != nil {
		body = append(body, jen.Id(recv).Dot(r.named(e.ID, relation.SetupName)).Call())
	}
	f.Line()
	f.Func().Params(jen.Id(recv).Op("*").Id(name)).Id(initName).Params(r.params(c.params())...).Block(body...)
}

func (r *renderer) destructor(f *jen.File, e *model.Entity, op *model.Entity) {
	recv := r.receiver(e.ID, nil)
	var body []jen.Code
	if r.v.Operation(e.ID, model.RoleTeardown) != nil {
		body = append(body, jen.Id(recv).Dot(r.named(e.ID, relation.TeardownName)).Call())
	}
	body = append(body, raw(op.Operation.Body)...)
	for _, b := range e.Class.Bases {
		if r.destroyable(b.Class) {
			body = append(body, jen.Id(recv).Dot(r.typeName(b.Class)).Dot("Destroy").Call())
		}
	}
	f.Line()
	if r.v.Comment(op) != "" {
		r.comment(f, op)
	} else {
		f.Comment("Destroy unlinks the " + r.typeName(e.ID) + " from its associations.")
	}
	f.Func().Params(jen.Id(recv).Op("*").Id(r.typeName(e.ID))).Id("Destroy").Params().Block(body...)
}

func (r *renderer) method(f *jen.File, e *model.Entity, op *model.Entity) {
	d := op.Operation
	s := scope{
		class: e.ID,
		recv:  r.receiver(e.ID, d),
		where: r.typeName(e.ID) + "." + r.ident(e.ID, op),
	}
	if d.Static {
		s.where = r.ident(e.ID, op)
	}
	f.Line()
	r.comment(f, op)
	fn := f.Func()
	if !d.Static {
		fn.Params(jen.Id(s.recv).Op("*").Id(r.typeName(e.ID)))
	}
	fn.Id(r.ident(e.ID, op)).Params(r.params(d.Params)...).Add(r.result(d.Return)).Block(r.body(s, op)...)
}

// raw turns user written statements into block items.
func raw(body string) []jen.Code {
	body = strings.Trim(body, "\n")
	if strings.TrimSpace(body) == "" {
		return nil
	}
	var out []jen.Code
	for _, l := range strings.Split(body, "\n") {
		if l = strings.TrimSpace(l); l == "" {
			out = append(out, jen.Line())
			continue
		}
		out = append(out, jen.Id(l))
	}
	return out
}
