package absint

import (
	"fmt"
	"strings"

	"github.com/cs-au-dk/absum/analysis/cfg"
)

// Frame is an activation on the call stack. Site is the call-site node in
// the caller, or nil for the root.
type Frame struct {
	Method *cfg.Function
	Site   *cfg.Node
}

// CallStack tracks the methods on the active analysis path of one worker.
// It must not be shared between goroutines.
type CallStack struct {
	frames   []Frame
	maxDepth int
}

func NewCallStack(maxDepth int) *CallStack {
	if maxDepth <= 0 {
		panic(fmt.Sprintf("call stack depth must be positive, got %d", maxDepth))
	}
	return &CallStack{maxDepth: maxDepth}
}

func (s *CallStack) Push(method *cfg.Function, site *cfg.Node) {
	s.frames = append(s.frames, Frame{method, site})
}

func (s *CallStack) Pop() Frame {
	if len(s.frames) == 0 {
		panic("pop from empty call stack")
	}
	top := s.frames[len(s.frames)-1]
	s.frames = s.frames[:len(s.frames)-1]
	return top
}

func (s *CallStack) Top() (Frame, bool) {
	if len(s.frames) == 0 {
		return Frame{}, false
	}
	return s.frames[len(s.frames)-1], true
}

// Depth is the number of frames.
func (s *CallStack) Depth() int { return len(s.frames) }

func (s *CallStack) MaxDepth() int { return s.maxDepth }

// AtLimit reports whether no more frames may be pushed.
func (s *CallStack) AtLimit() bool { return len(s.frames) >= s.maxDepth }

// IndexOf returns the position of the oldest frame of the method, or -1.
func (s *CallStack) IndexOf(method *cfg.Function) int {
	for i, f := range s.frames {
		if f.Method == method {
			return i
		}
	}
	return -1
}

// Contains tests membership by identity.
func (s *CallStack) Contains(method *cfg.Function) bool {
	return s.IndexOf(method) >= 0
}

// Cycle returns the methods from the oldest frame of method to the top of
// the stack. It is empty if the method is not on the stack.
func (s *CallStack) Cycle(method *cfg.Function) (res []*cfg.Function) {
	i := s.IndexOf(method)
	if i < 0 {
		return nil
	}
	for _, f := range s.frames[i:] {
		res = append(res, f.Method)
	}
	return
}

// Frames returns a copy of the frames, oldest first.
func (s *CallStack) Frames() []Frame {
	return append([]Frame(nil), s.frames...)
}

// CallString returns the k most recent call sites when entering a callee
// from site, most recent first.
func (s *CallStack) CallString(k int, site *cfg.Node) CallString {
	sites := make([]*cfg.Node, 0, k)
	if site != nil && k > 0 {
		sites = append(sites, site)
	}
	for i := len(s.frames) - 1; i >= 0 && len(sites) < k; i-- {
		if s.frames[i].Site != nil {
			sites = append(sites, s.frames[i].Site)
		}
	}
	return CallString{sites}
}

func (s *CallStack) String() string {
	strs := make([]string, len(s.frames))
	for i, f := range s.frames {
		strs[i] = f.Method.Name()
	}
	return "[" + strings.Join(strs, " → ") + "]"
}
