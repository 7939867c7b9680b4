package surface

// Color3 is an RGB byte triple.
type Color3 struct {
	R, G, B uint8
}

// Within reports whether every channel of c differs from o by at most tol.
func (c Color3) Within(o Color3, tol int) bool {
	return absDiff(c.R, o.R) <= tol && absDiff(c.G, o.G) <= tol && absDiff(c.B, o.B) <= tol
}

func absDiff(a, b uint8) int {
	if a > b {
		return int(a - b)
	}
	return int(b - a)
}
