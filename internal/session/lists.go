package session

import "smartshop/internal/catalog"

// pushFront returns a new list with v first, any existing entry with the same
// key removed, truncated to max entries. The input slice is not modified.
func pushFront[T any, K comparable](list []T, v T, max int, key func(T) K) []T {
	k := key(v)
	out := make([]T, 0, min(len(list)+1, max))
	out = append(out, v)
	for _, e := range list {
		if len(out) == max {
			break
		}
		if key(e) == k {
			continue
		}
		out = append(out, e)
	}
	return out
}

func pushString(list []string, v string, max int) []string {
	return pushFront(list, v, max, func(s string) string { return s })
}

func pushProduct(list []catalog.Product, p catalog.Product, max int) []catalog.Product {
	return pushFront(list, p, max, func(p catalog.Product) catalog.ID { return p.ID })
}
