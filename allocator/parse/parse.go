// Package parse reads the textual unit description format.
//
// The format is line-oriented, one directive per line:
//
//	unit fib
//
//	reg x0 units q0
//	reg w0 units q0
//	reg sp units qsp
//	reserve sp
//
//	class gpr = x0 x1 x2
//
//	vreg v0 class gpr weight 10 live 0:10 12:20
//	vreg v1 class gpr weight 1 debug live 0:4
//
//	hint v0 hard = x2 x1
//
// Registers sharing a unit alias each other. weight inf marks a range
// which must not be spilled. debug marks a register only referenced by
// debug metadata. # starts a comment.
package parse

import (
	"context"
	"math"
	"strconv"
	"strings"

	"tlog.app/go/errors"
	"tlog.app/go/tlog"

	"github.com/slowlang/regalloc/allocator/live"
	"github.com/slowlang/regalloc/allocator/regfile"
	"github.com/slowlang/regalloc/allocator/unit"
)

type (
	parser struct {
		file *regfile.File

		name string

		units   map[string]regfile.Unit
		regs    map[string]regfile.PhysReg
		classes map[string]regfile.Class

		vregs   []vreg
		vnames  map[string]live.VReg
		hints   []hint
		reserve []string
	}

	vreg struct {
		name   string
		class  string
		weight float64
		debug  bool
		live   []live.Range
	}

	hint struct {
		vreg string
		hard bool
		regs []string
	}
)

// Parse builds a unit from its textual description.
func Parse(ctx context.Context, name string, text []byte) (u *unit.Unit, err error) {
	tr := tlog.SpanFromContext(ctx)

	p := &parser{
		file:    regfile.New(),
		name:    "unit",
		units:   make(map[string]regfile.Unit),
		regs:    make(map[string]regfile.PhysReg),
		classes: make(map[string]regfile.Class),
		vnames:  make(map[string]live.VReg),
	}

	for ln, l := range strings.Split(string(text), "\n") {
		if i := strings.IndexByte(l, '#'); i >= 0 {
			l = l[:i]
		}

		f := strings.Fields(l)
		if len(f) == 0 {
			continue
		}

		err = p.directive(f)
		if err != nil {
			return nil, errors.Wrap(err, "%v:%d", name, ln+1)
		}
	}

	u, err = p.build()
	if err != nil {
		return nil, errors.Wrap(err, "%v", name)
	}

	tr.V("parse").Printw("unit parsed", "name", u.Name, "regs", p.file.NumRegs(), "vregs", u.NumVirtRegs())

	return u, nil
}

func (p *parser) directive(f []string) (err error) {
	switch f[0] {
	case "unit":
		if len(f) != 2 {
			return errors.New("unit takes one name")
		}

		p.name = f[1]
	case "reg":
		return p.reg(f[1:])
	case "reserve":
		if len(f) != 2 {
			return errors.New("reserve takes one register")
		}

		p.reserve = append(p.reserve, f[1])
	case "class":
		return p.class(f[1:])
	case "vreg":
		return p.vreg(f[1:])
	case "hint":
		return p.hint(f[1:])
	default:
		return errors.New("unknown directive: %v", f[0])
	}

	return nil
}

func (p *parser) reg(f []string) error {
	if len(f) < 3 || f[1] != "units" {
		return errors.New("want: reg <name> units <unit>...")
	}

	name := f[0]

	if _, ok := p.regs[name]; ok {
		return errors.New("register redefined: %v", name)
	}

	units := make([]regfile.Unit, 0, len(f)-2)

	for _, un := range f[2:] {
		u, ok := p.units[un]
		if !ok {
			u = regfile.Unit(len(p.units))
			p.units[un] = u
		}

		units = append(units, u)
	}

	p.regs[name] = p.file.AddReg(name, units...)

	return nil
}

func (p *parser) class(f []string) error {
	if len(f) < 2 || f[1] != "=" {
		return errors.New("want: class <name> = <reg>...")
	}

	name := f[0]

	if _, ok := p.classes[name]; ok {
		return errors.New("class redefined: %v", name)
	}

	order := make([]regfile.PhysReg, 0, len(f)-2)

	for _, rn := range f[2:] {
		r, ok := p.regs[rn]
		if !ok {
			return errors.New("unknown register: %v", rn)
		}

		order = append(order, r)
	}

	p.classes[name] = p.file.AddClass(name, order...)

	return nil
}

func (p *parser) vreg(f []string) error {
	if len(f) < 1 {
		return errors.New("want: vreg <name> class <class> weight <w> [debug] live <start:end>...")
	}

	v := vreg{name: f[0]}

	if _, ok := p.vnames[v.name]; ok {
		return errors.New("vreg redefined: %v", v.name)
	}

	f = f[1:]

	for len(f) != 0 {
		switch f[0] {
		case "class":
			if len(f) < 2 {
				return errors.New("class takes a name")
			}

			v.class = f[1]
			f = f[2:]
		case "weight":
			if len(f) < 2 {
				return errors.New("weight takes a number")
			}

			w, err := weight(f[1])
			if err != nil {
				return errors.Wrap(err, "weight")
			}

			v.weight = w
			f = f[2:]
		case "debug":
			v.debug = true
			f = f[1:]
		case "live":
			f = f[1:]

			for len(f) != 0 && strings.Contains(f[0], ":") {
				r, err := span(f[0])
				if err != nil {
					return errors.Wrap(err, "live")
				}

				if l := len(v.live); l != 0 && v.live[l-1].End > r.Start {
					return errors.New("ranges must be ordered and disjoint")
				}

				v.live = append(v.live, r)
				f = f[1:]
			}
		default:
			return errors.New("unexpected token: %v", f[0])
		}
	}

	if v.class == "" {
		return errors.New("vreg %v: class is required", v.name)
	}

	if len(v.live) == 0 {
		return errors.New("vreg %v: live ranges are required", v.name)
	}

	p.vnames[v.name] = live.VReg(len(p.vregs))
	p.vregs = append(p.vregs, v)

	return nil
}

func (p *parser) hint(f []string) error {
	if len(f) < 2 {
		return errors.New("want: hint <vreg> [hard] = <reg>...")
	}

	h := hint{vreg: f[0]}
	f = f[1:]

	if f[0] == "hard" {
		h.hard = true
		f = f[1:]
	}

	if len(f) < 1 || f[0] != "=" {
		return errors.New("want: hint <vreg> [hard] = <reg>...")
	}

	h.regs = f[1:]

	p.hints = append(p.hints, h)

	return nil
}

func (p *parser) build() (*unit.Unit, error) {
	for _, rn := range p.reserve {
		r, ok := p.regs[rn]
		if !ok {
			return nil, errors.New("reserve: unknown register: %v", rn)
		}

		p.file.Reserve(r)
	}

	p.file.Freeze()

	u := unit.New(p.name, p.file)

	for _, v := range p.vregs {
		c, ok := p.classes[v.class]
		if !ok {
			return nil, errors.New("vreg %v: unknown class: %v", v.name, v.class)
		}

		id := u.AddVReg(v.name, c, v.weight, v.live...)

		if v.debug {
			u.MarkDebugOnly(id)
		}
	}

	for _, h := range p.hints {
		v, ok := p.vnames[h.vreg]
		if !ok {
			return nil, errors.New("hint: unknown vreg: %v", h.vreg)
		}

		regs := make([]regfile.PhysReg, 0, len(h.regs))

		for _, rn := range h.regs {
			r, ok := p.regs[rn]
			if !ok {
				return nil, errors.New("hint %v: unknown register: %v", h.vreg, rn)
			}

			regs = append(regs, r)
		}

		u.SetHint(v, h.hard, regs...)
	}

	return u, nil
}

func weight(s string) (float64, error) {
	if s == "inf" {
		return math.Inf(1), nil
	}

	w, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, errors.New("bad number: %v", s)
	}

	return w, nil
}

func span(s string) (live.Range, error) {
	st, en, ok := strings.Cut(s, ":")
	if !ok {
		return live.Range{}, errors.New("want start:end, got %v", s)
	}

	a, err := strconv.Atoi(st)
	if err != nil {
		return live.Range{}, errors.New("bad number: %v", st)
	}

	b, err := strconv.Atoi(en)
	if err != nil {
		return live.Range{}, errors.New("bad number: %v", en)
	}

	if b <= a {
		return live.Range{}, errors.New("empty range: %v", s)
	}

	return live.Range{Start: live.Point(a), End: live.Point(b)}, nil
}
