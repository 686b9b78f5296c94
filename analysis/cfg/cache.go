package cfg

import "sync"

// GraphCache provides the bodies of functions. A nil graph means there is
// nothing to analyze.
type GraphCache interface {
	GetGraph(f *Function) *Graph
}

// GetGraph returns the installed body of the function.
func (p *Program) GetGraph(f *Function) *Graph {
	return f.body
}

// MemoGraphCache builds each body at most once, on demand. It is safe for
// concurrent use.
type MemoGraphCache struct {
	build func(*Function) (*Graph, error)
	mu    sync.Mutex
	cache map[*Function]*Graph
	errs  map[*Function]error
}

// NewMemoGraphCache memoizes the builder. Functions the builder fails on have
// no graph; the error is available from Err.
func NewMemoGraphCache(build func(*Function) (*Graph, error)) *MemoGraphCache {
	return &MemoGraphCache{
		build: build,
		cache: make(map[*Function]*Graph),
		errs:  make(map[*Function]error),
	}
}

func (c *MemoGraphCache) GetGraph(f *Function) *Graph {
	c.mu.Lock()
	defer c.mu.Unlock()

	if g, found := c.cache[f]; found {
		return g
	}
	g, err := c.build(f)
	if err != nil {
		c.errs[f] = err
		g = nil
	}
	c.cache[f] = g
	return g
}

// Err returns the error produced while building the body of f, if any.
func (c *MemoGraphCache) Err(f *Function) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.errs[f]
}

// Len is the number of functions requested so far.
func (c *MemoGraphCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.cache)
}
