package contour

// Area returns the polygon area enclosed by the contour (shoelace formula)
// with pixel centres as vertices. A single pixel or a straight run has zero
// area; an s*s square has (s-1)^2.
func (c Contour) Area() float64 {
	n := len(c)
	if n < 3 {
		return 0
	}
	var sum int
	for i := range n {
		a, b := c[i], c[(i+1)%n]
		sum += a.X*b.Y - b.X*a.Y
	}
	if sum < 0 {
		sum = -sum
	}
	return float64(sum) / 2
}
