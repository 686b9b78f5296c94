package counter

type Counter struct {
	n    int
	hits int
}

var total int

func (c *Counter) Inc(by int) int {
	c.n += by
	total++
	return c.n
}

func run() int { //@ returns("[5, 5]")
	c := &Counter{}
	c.Inc(2)
	r := c.Inc(3)
	return r
}

func setTotal() int { //@ returns("[3, 3]")
	total = 3
	return total
}

func clamp(x int) int { //@ returns("[0, 10]")
	if x > 10 {
		return 10
	}
	if 0 > x {
		return 0
	}
	return x
}

func useClamp(y int) int { //@ returns("[0, 10]")
	return clamp(y)
}

func sum(n int) int { //@ returns("[0, ∞]")
	s := 0
	for i := 0; i < n; i++ {
		s += i
	}
	return s
}

func fib(n int) int { //@ returns("[0, ∞]")
	a, b := 0, 1
	for i := 0; i < n; i++ {
		a, b = b, a+b
	}
	return a
}

func assert(b bool) {
	if !b {
		panic("assertion failed")
	}
}

func checked(x int) int { //@ returns("[1, 10]")
	y := clamp(x)
	assert(y <= 10)
	assert(y >= 1)
	return y
}
