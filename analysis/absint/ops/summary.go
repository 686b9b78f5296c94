package ops

import (
	"fmt"
	"sort"

	"github.com/cs-au-dk/absum/analysis/absint"
	"github.com/cs-au-dk/absum/analysis/cfg"
	L "github.com/cs-au-dk/absum/analysis/lattice"
	loc "github.com/cs-au-dk/absum/analysis/location"
	"github.com/cs-au-dk/absum/utils"
)

// Summary is a summary over access-path maps. Preconditions and
// postconditions are expressed relative to the callee's parameters. The
// actual argument paths and the destination of the call site are remembered
// for renaming the postcondition back.
type Summary struct {
	target    *cfg.Function
	site      *cfg.Node
	pre       L.AccessPathMap
	post      L.AccessPathMap
	finalized bool
	// Access paths of the actual arguments that are plain references.
	actuals map[int]loc.AccessPath
	dst     *loc.AccessPath
}

var _ absint.Summary[L.AccessPathMap] = (*Summary)(nil)

func (s *Summary) Target() *cfg.Function { return s.target }

func (s *Summary) Site() *cfg.Node { return s.site }

func (s *Summary) PreCondition() L.AccessPathMap { return s.pre }

func (s *Summary) PostCondition() L.AccessPathMap { return s.post }

func (s *Summary) IsFinalized() bool { return s.finalized }

func (s *Summary) setPost(post L.AccessPathMap) {
	if s.finalized {
		panic(fmt.Sprintf("summary of %s is already finalized", s.target.Name()))
	}
	s.post = post
	s.finalized = true
}

// Escapes reports whether information at the path may be observed by a
// caller: fields of objects passed as arguments, statics and the return
// value.
func Escapes(p loc.AccessPath) bool {
	base := p.Base()
	switch {
	case base.IsParam():
		return !p.IsRoot()
	case base.IsStatic(), base.IsReturn():
		return true
	}
	return false
}

// Finalize keeps the part of the state reaching the callee's exit that
// escapes to callers.
func (s *Summary) Finalize(callee *absint.AbstractState[L.AccessPathMap]) {
	rv := callee.ReturnValue()
	switch {
	case rv.IsBot(), rv.IsTop():
		s.setPost(rv)
	default:
		s.setPost(rv.Filter(func(p loc.AccessPath, _ L.Interval) bool {
			return Escapes(p)
		}).WithoutAliases())
	}
}

// Reuse adopts the postcondition of a cached summary.
func (s *Summary) Reuse(cached absint.Summary[L.AccessPathMap]) {
	if !cached.IsFinalized() {
		panic(fmt.Sprintf("reusing summary that is not finalized: %s", cached))
	}
	s.setPost(cached.PostCondition())
}

// rename translates a callee path into the caller's naming scheme.
func (s *Summary) rename(p loc.AccessPath) (loc.AccessPath, bool) {
	base := p.Base()
	switch {
	case base.IsStatic():
		return p, true
	case base.IsReturn():
		if s.dst == nil {
			return loc.AccessPath{}, false
		}
		return p.Rebase(loc.ReturnPath(), *s.dst), true
	case base.IsParam():
		actual, found := s.actuals[base.Index()]
		if !found {
			// The argument was a temporary value.
			return loc.AccessPath{}, false
		}
		return p.Rebase(loc.ParamPath(base.Index()), actual), true
	}
	return loc.AccessPath{}, false
}

// Affects reports whether the callee may have modified the caller path.
func (s *Summary) Affects(p loc.AccessPath) bool {
	if p.Base().IsStatic() {
		return true
	}
	if s.dst != nil && p.HasPrefix(*s.dst) {
		return true
	}
	for _, actual := range s.actuals {
		if p != actual && p.HasPrefix(actual) {
			return true
		}
	}
	return false
}

// Apply merges the postcondition into the caller state. Every caller path the
// callee may have modified is overwritten by the renamed postcondition, or
// forgotten if the postcondition does not bind it.
func (s *Summary) Apply(caller L.AccessPathMap) L.AccessPathMap {
	if !s.finalized {
		panic(fmt.Sprintf("applying summary that is not finalized: %s", s))
	}
	switch {
	case caller.IsBot():
		return caller
	case s.post.IsBot():
		return caller.ToBot()
	}

	renamed := make(map[loc.AccessPath]L.Interval)
	var order []loc.AccessPath
	for _, p := range s.post.Paths() {
		np, ok := s.rename(p)
		if !ok {
			continue
		}
		v := s.post.Get(p)
		if old, found := renamed[np]; found {
			v = old.Join(v)
		} else {
			order = append(order, np)
		}
		renamed[np] = v
	}

	actuals := make([]loc.AccessPath, 0, len(s.actuals))
	for _, actual := range s.actuals {
		actuals = append(actuals, actual)
	}
	res := forgetAliased(caller, actuals, s.dst).Filter(func(p loc.AccessPath, _ L.Interval) bool {
		return !s.Affects(p)
	})
	for _, np := range order {
		res = res.Set(np, renamed[np])
	}
	return res
}

func (s *Summary) Subsumes(other absint.Summary[L.AccessPathMap]) bool {
	return s.target == other.Target() && other.PreCondition().Leq(s.pre)
}

func (s *Summary) String() string {
	str := utils.FunString(s.target.Name())
	if s.site != nil {
		str += "@" + s.site.Label()
	}
	str += ": " + s.pre.String() + " ⇒ "
	if !s.finalized {
		return str + "?"
	}
	return str + s.post.String()
}

// SummaryFactory creates access-path summaries.
type SummaryFactory struct{}

var _ absint.SummaryFactory[L.AccessPathMap] = SummaryFactory{}

func newSummary(input absint.InvokeInput[L.AccessPathMap]) *Summary {
	s := &Summary{
		target:  input.Target,
		site:    input.Node,
		post:    L.AccessPathMapBot(),
		actuals: make(map[int]loc.AccessPath),
	}
	if input.Invoke != nil {
		for i := range input.Invoke.Args() {
			if actual, ok := input.Invoke.ArgPath(i); ok {
				s.actuals[i] = actual
			}
		}
		if dst, ok := input.Invoke.Dst(); ok {
			s.dst = &dst
		}
	}
	return s
}

// CreateSummary projects the caller state onto the statics and the
// arguments of the call, renamed to the callee's parameters.
func (SummaryFactory) CreateSummary(input absint.InvokeInput[L.AccessPathMap]) absint.Summary[L.AccessPathMap] {
	s := newSummary(input)

	in := input.PreCondition
	if in.IsBot() {
		s.pre = in
		return s
	}

	args := input.Arguments
	if args == nil && input.Invoke != nil {
		args = Arguments(in, input.Invoke)
	}

	pre := in.Filter(func(p loc.AccessPath, _ L.Interval) bool {
		return p.Base().IsStatic()
	}).WithoutAliases()
	for _, arg := range args {
		arg.ForEach(func(p loc.AccessPath, v L.Interval) {
			pre = pre.Set(p, v)
		})
	}
	s.pre = entryAliases(pre, in, s.actuals)
	return s
}

// image is a name under which the callee may reach a caller object.
type image struct {
	callee, caller loc.AccessPath
}

// entryAliases records in the callee precondition pre which of the callee's
// names may reach the same caller object: arguments that overlap each other
// or a static, directly or through an alias of the caller state in.
func entryAliases(pre, in L.AccessPathMap, actuals map[int]loc.AccessPath) L.AccessPathMap {
	idx := make([]int, 0, len(actuals))
	for i := range actuals {
		idx = append(idx, i)
	}
	sort.Ints(idx)

	var images []image
	for _, i := range idx {
		actual, param := actuals[i], loc.ParamPath(i)
		images = append(images, image{param, actual})
		in.Aliases(func(a, b loc.AccessPath) {
			for _, xy := range [2][2]loc.AccessPath{{a, b}, {b, a}} {
				x, y := xy[0], xy[1]
				switch {
				case actual.HasPrefix(x):
					images = append(images, image{param, actual.Rebase(x, y)})
				case x.HasPrefix(actual):
					images = append(images, image{x.Rebase(actual, param), y})
				}
			}
		})
	}

	for k, u := range images {
		if u.caller.Base().IsStatic() {
			pre = pre.Alias(u.callee, u.caller)
		}
		for _, v := range images[k+1:] {
			if u.callee.Base() == v.callee.Base() {
				continue
			}
			switch {
			case u.caller.HasPrefix(v.caller):
				pre = pre.Alias(u.callee, u.caller.Rebase(v.caller, v.callee))
			case v.caller.HasPrefix(u.caller):
				pre = pre.Alias(v.caller.Rebase(u.caller, u.callee), v.callee)
			}
		}
	}

	// Statics have the same names in the callee.
	in.Aliases(func(a, b loc.AccessPath) {
		if a.Base().IsStatic() && b.Base().IsStatic() {
			pre = pre.Alias(a, b)
		}
	})
	return pre
}

// forgetAliased forgets the caller paths that may alias a location modified
// by a call: the fields below the actual arguments, the destination and every
// static.
func forgetAliased(caller L.AccessPathMap, actuals []loc.AccessPath, dst *loc.AccessPath) L.AccessPathMap {
	res := caller
	for _, actual := range actuals {
		res = res.ForgetAliasedFields(actual)
	}
	if dst != nil {
		res = res.ForgetAliased(*dst)
	}
	caller.Aliases(func(a, b loc.AccessPath) {
		switch {
		case a.Base().IsStatic():
			res = res.ForgetPrefix(b)
		case b.Base().IsStatic():
			res = res.ForgetPrefix(a)
		}
	})
	return res
}

// SkippedSummary is a summary of a callee that is not analyzed. Its
// precondition is the caller state and it gives up everything the callee
// may modify.
func (SummaryFactory) SkippedSummary(input absint.InvokeInput[L.AccessPathMap]) absint.Summary[L.AccessPathMap] {
	s := newSummary(input)
	s.pre = input.PreCondition
	s.setPost(L.NewAccessPathMap())
	return s
}

// Arguments computes the state of every actual argument in the callee's
// naming scheme.
func Arguments(in L.AccessPathMap, inv *cfg.Invoke) []L.AccessPathMap {
	args := make([]L.AccessPathMap, len(inv.Args()))
	for i, arg := range inv.Args() {
		param := loc.ParamPath(i)
		m := L.NewAccessPathMap()

		if actual, ok := inv.ArgPath(i); ok {
			for _, p := range in.PathsWithPrefix(actual) {
				m = m.Set(p.Rebase(actual, param), in.Get(p))
			}
		} else {
			m = m.Set(param, Eval(in, arg))
		}
		args[i] = m
	}
	return args
}
