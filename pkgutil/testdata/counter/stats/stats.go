package stats

type Counter struct {
	n int
}

func (c *Counter) Inc(by int) int {
	c.n += by
	return c.n
}
