//go:build !race

package storefront

func passwordHashCost() int {
	return 10
}
