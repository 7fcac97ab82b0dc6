package rng

// Rn2 returns a value in [0, x). It returns 0 without drawing when x <= 0.
// Every draw consumes exactly one raw output and keeps its remainder; unlike
// NextUint there is no rejection of the biased top range.
func (g *Isaac64) Rn2(x int) int {
	return g.rn2("rn2", x)
}

func (g *Isaac64) rn2(fn string, x int) int {
	if x <= 0 {
		return 0
	}
	raw := g.raw()
	v := raw % uint64(x)
	g.record(fn, int64(x), int64(v), raw)
	return int(v)
}

// Rnd returns a value in [1, x]. It returns 1 without drawing when x <= 0.
func (g *Isaac64) Rnd(x int) int {
	if x <= 0 {
		return 1
	}
	return g.rn2("rnd", x) + 1
}

// Rn1 returns a value in [y, y+x).
func (g *Isaac64) Rn1(x, y int) int {
	return g.rn2("rn1", x) + y
}

// Dice rolls n dice of x sides.
func (g *Isaac64) Dice(n, x int) int {
	res := n
	if x <= 0 || n <= 0 {
		return n
	}
	for ; n > 0; n-- {
		res += g.rn2("d", x)
	}
	return res
}

// Rnl is a luck-adjusted Rn2. Good luck pushes results toward 0.
func (g *Isaac64) Rnl(x, luck int) int {
	if x <= 0 {
		return 0
	}
	adj := luck
	if x <= 15 {
		adj = (abs(luck) + 1) / 3 * sign(luck)
	}

	i := g.rn2("rnl", x)
	if adj != 0 && g.rn2("rnl", 37+abs(adj)) != 0 {
		i -= adj
		if i < 0 {
			i = 0
		} else if i >= x {
			i = x - 1
		}
	}
	return i
}

// Rne draws from a truncated geometric distribution with ratio 1/x. The cap
// is 5 below experience level 15 and ulevel/3 from there on.
func (g *Isaac64) Rne(x, ulevel int) int {
	limit := 5
	if ulevel >= 15 {
		limit = ulevel / 3
	}
	tmp := 1
	for tmp < limit && g.rn2("rne", x) == 0 {
		tmp++
	}
	return tmp
}

// Rnz returns a value centred on i with a long tail in both directions.
func (g *Isaac64) Rnz(i, ulevel int) int {
	x := int64(i)
	tmp := int64(1000)
	tmp += int64(g.rn2("rnz", 1000))
	tmp *= int64(g.Rne(4, ulevel))
	if g.rn2("rnz", 2) != 0 {
		x *= tmp
		x /= 1000
	} else {
		x *= 1000
		x /= tmp
	}
	return int(x)
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

func sign(v int) int {
	switch {
	case v < 0:
		return -1
	case v > 0:
		return 1
	}
	return 0
}
