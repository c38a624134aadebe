// Package bookio persists definition books as JSON and hot-reloads them on
// file changes. Ports are stored in the textual form core.Port renders, with
// references written by definition name so files survive id reassignment.
package bookio

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/scoobiii/HVMx/internal/core"
)

type fileBook struct {
	Defs map[string]fileDef `json:"defs"`
}

type fileDef struct {
	Arity   int         `json:"arity"`
	Root    string      `json:"root"`
	Slots   []string    `json:"slots,omitempty"`
	Redexes [][2]string `json:"redexes,omitempty"`
}

// Load reads a book file into a fresh book.
func Load(path string) (*core.Book, error) {
	bk := core.NewBook()
	if err := LoadInto(bk, path); err != nil {
		return nil, err
	}
	return bk, nil
}

// LoadInto merges a book file into bk. The whole file is parsed against a
// staging name table before the live book is touched, so a malformed file
// leaves bk exactly as it was. Existing names are overwritten in place and
// keep their ids, which is what makes hot reloading safe for live reference
// ports. LoadInto assumes a single writer per book.
func LoadInto(bk *core.Book, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading book %s: %w", path, err)
	}
	var fb fileBook
	if err := json.Unmarshal(data, &fb); err != nil {
		return fmt.Errorf("parsing book %s: %w", path, err)
	}

	// Stage ids for every name in the file so mutually recursive bodies
	// resolve without registering anything yet. Known names keep their
	// ids; new names get the ids the sorted insertion below will assign.
	names := make([]string, 0, len(fb.Defs))
	for name := range fb.Defs {
		names = append(names, name)
	}
	sort.Strings(names)
	st := &staging{book: bk, ids: make(map[string]uint32, len(names))}
	next := uint32(bk.Len())
	for _, name := range names {
		if ref, ok := bk.Ref(name); ok {
			st.ids[name] = ref.DefID()
		} else {
			st.ids[name] = next
			next++
		}
	}

	parsed := make([]core.Def, len(names))
	for i, name := range names {
		def, err := parseDef(st, name, fb.Defs[name])
		if err != nil {
			return fmt.Errorf("book %s: %w", path, err)
		}
		parsed[i] = def
	}

	for i, name := range names {
		bk.Insert(name, parsed[i])
	}
	return nil
}

// staging resolves names during a load: names in the incoming file map to
// their staged ids, everything else falls through to the live book.
type staging struct {
	book *core.Book
	ids  map[string]uint32
}

func (s *staging) Ref(name string) (core.Port, bool) {
	if id, ok := s.ids[name]; ok {
		return core.Ref(id), true
	}
	return s.book.Ref(name)
}

// Save writes bk to a book file.
func Save(bk *core.Book, path string) error {
	fb := fileBook{Defs: make(map[string]fileDef, bk.Len())}
	for _, name := range bk.Names() {
		def, ok := bk.Get(name)
		if !ok {
			continue
		}
		fd := fileDef{
			Arity: def.Arity,
			Root:  FormatPort(bk, def.Root),
		}
		for _, s := range def.Slots {
			fd.Slots = append(fd.Slots, FormatPort(bk, s))
		}
		for _, r := range def.Redexes {
			fd.Redexes = append(fd.Redexes, [2]string{FormatPort(bk, r.A), FormatPort(bk, r.B)})
		}
		fb.Defs[name] = fd
	}
	data, err := json.MarshalIndent(fb, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling book: %w", err)
	}
	if err := os.WriteFile(path, append(data, '\n'), 0644); err != nil {
		return fmt.Errorf("writing book %s: %w", path, err)
	}
	return nil
}

func parseDef(r Resolver, name string, fd fileDef) (core.Def, error) {
	def := core.Def{Name: name, Arity: fd.Arity}
	root, err := ParsePort(r, fd.Root)
	if err != nil {
		return core.Def{}, fmt.Errorf("def %q root: %w", name, err)
	}
	def.Root = root
	for i, s := range fd.Slots {
		p, err := ParsePort(r, s)
		if err != nil {
			return core.Def{}, fmt.Errorf("def %q slot %d: %w", name, i, err)
		}
		def.Slots = append(def.Slots, p)
	}
	for i, rx := range fd.Redexes {
		a, err := ParsePort(r, rx[0])
		if err != nil {
			return core.Def{}, fmt.Errorf("def %q redex %d: %w", name, i, err)
		}
		b, err := ParsePort(r, rx[1])
		if err != nil {
			return core.Def{}, fmt.Errorf("def %q redex %d: %w", name, i, err)
		}
		def.Redexes = append(def.Redexes, core.Redex{A: a, B: b})
	}
	if err := checkAddrs(&def); err != nil {
		return core.Def{}, fmt.Errorf("def %q: %w", name, err)
	}
	return def, nil
}

// checkAddrs rejects template ports addressing slots outside the template.
func checkAddrs(def *core.Def) error {
	limit := uint64(len(def.Slots))
	check := func(p core.Port) error {
		switch p.Tag() {
		case core.TagVar, core.TagCon, core.TagDup, core.TagLam, core.TagApp, core.TagOpr:
			if p.Addr() >= limit {
				return fmt.Errorf("%w: %s addresses slot %d of %d",
					core.ErrMalformedNet, p, p.Addr(), limit)
			}
		}
		return nil
	}
	if err := check(def.Root); err != nil {
		return err
	}
	for _, s := range def.Slots {
		if err := check(s); err != nil {
			return err
		}
	}
	for _, r := range def.Redexes {
		if err := check(r.A); err != nil {
			return err
		}
		if err := check(r.B); err != nil {
			return err
		}
	}
	return nil
}

// FormatPort renders p for a book file. References resolve to @name when the
// book knows the id; everything else uses the port's canonical form.
func FormatPort(bk *core.Book, p core.Port) string {
	if p.Tag() == core.TagRef && bk != nil {
		if name, ok := bk.NameOf(p.DefID()); ok {
			return "@" + name
		}
	}
	return p.String()
}

// Resolver maps definition names to reference ports. *core.Book is the usual
// implementation; LoadInto substitutes a staging table during parsing.
type Resolver interface {
	Ref(name string) (core.Port, bool)
}

// ParsePort reads the textual port syntax. @name references resolve through
// r; numeric ref#N forms bypass the name table.
func ParsePort(r Resolver, s string) (core.Port, error) {
	switch {
	case s == "":
		return 0, fmt.Errorf("empty port")
	case s == "_":
		return core.Hole, nil
	case s == "era":
		return core.Era(), nil
	case strings.HasPrefix(s, "@"):
		if r == nil {
			return 0, fmt.Errorf("reference %s without a resolver", s)
		}
		p, ok := r.Ref(s[1:])
		if !ok {
			return 0, fmt.Errorf("%w: %s", core.ErrUndefinedRef, s)
		}
		return p, nil
	case strings.HasPrefix(s, "#"):
		n, err := strconv.ParseUint(s[1:], 10, 64)
		if err != nil {
			return 0, fmt.Errorf("numeral %q: %w", s, err)
		}
		return core.Num(core.NewNumb(n)), nil
	case strings.HasPrefix(s, "ref#"):
		id, err := strconv.ParseUint(s[4:], 10, 32)
		if err != nil {
			return 0, fmt.Errorf("reference %q: %w", s, err)
		}
		return core.Ref(uint32(id)), nil
	}

	head, addrText, ok := strings.Cut(s, "@")
	if !ok {
		return 0, fmt.Errorf("unrecognized port %q", s)
	}
	addr, err := strconv.ParseUint(addrText, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("address in %q: %w", s, err)
	}

	switch {
	case head == "var":
		return core.Var(addr), nil
	case head == "lam":
		return core.Lam(addr), nil
	case head == "app":
		return core.App(addr), nil
	case strings.HasPrefix(head, "opr:"):
		op, ok := core.OperByName(head[4:])
		if !ok {
			return 0, fmt.Errorf("unknown operation %q in %q", head[4:], s)
		}
		return core.Opr(op, addr), nil
	case strings.HasPrefix(head, "dup"):
		lab, err := strconv.ParseUint(head[3:], 10, 16)
		if err != nil {
			return 0, fmt.Errorf("duplicator label in %q: %w", s, err)
		}
		return core.Dup(uint16(lab), addr), nil
	case strings.HasPrefix(head, "con"):
		labText, ariText, ok := strings.Cut(head[3:], "/")
		if !ok {
			return 0, fmt.Errorf("constructor %q needs label/arity", s)
		}
		lab, err := strconv.ParseUint(labText, 10, 16)
		if err != nil {
			return 0, fmt.Errorf("constructor label in %q: %w", s, err)
		}
		ari, err := strconv.ParseUint(ariText, 10, 8)
		if err != nil || ari > core.MaxArity {
			return 0, fmt.Errorf("constructor arity in %q out of range", s)
		}
		return core.Con(uint16(lab), uint8(ari), addr), nil
	default:
		return 0, fmt.Errorf("unrecognized port %q", s)
	}
}
