package callapi

// chainMiddlewares wraps the base transport with the given middlewares in
// registration order, so the last registered middleware becomes the outermost
// wrapper and sees the request first.
func chainMiddlewares(base Transport, middlewares []Middleware) Transport {
	t := base
	for _, mw := range middlewares {
		if mw == nil {
			continue
		}
		t = mw(t)
	}
	return t
}
