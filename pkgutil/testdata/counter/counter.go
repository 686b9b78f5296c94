package main

import "example.com/counter/stats"

func main() {
	c := &stats.Counter{}
	c.Inc(2)
	println(c.Inc(3))
}
