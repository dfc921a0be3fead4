package filter

import (
	"fmt"

	"github.com/antonmedv/expr"
	"github.com/antonmedv/expr/vm"
	lru "github.com/hashicorp/golang-lru"
)

// ProgramCache keeps the most recently used compiled filter programs.
type ProgramCache struct {
	cache *lru.Cache
}

func NewProgramCache(size int) (*ProgramCache, error) {
	cache, err := lru.New(size)
	if err != nil {
		return nil, err
	}
	return &ProgramCache{cache: cache}, nil
}

// Get returns the compiled program for expression, compiling and caching it if needed.
func (c *ProgramCache) Get(expression string) (*vm.Program, error) {
	if v, ok := c.cache.Get(expression); ok {
		return v.(*vm.Program), nil
	}
	prog, err := expr.Compile(expression, expr.Env(Env{}), expr.AsBool())
	if err != nil {
		return nil, fmt.Errorf("could not compile filter %q: %w", expression, err)
	}
	c.cache.Add(expression, prog)
	return prog, nil
}

// Len returns the number of cached programs.
func (c *ProgramCache) Len() int {
	return c.cache.Len()
}

// Run evaluates prog against env. A nil program passes everything, an evaluation error passes nothing.
func Run(prog *vm.Program, env Env) (bool, error) {
	if prog == nil {
		return true, nil
	}
	res, err := expr.Run(prog, env)
	if err != nil {
		return false, err
	}
	if bRes, ok := res.(bool); ok && bRes {
		return true, nil
	}
	return false, nil
}
