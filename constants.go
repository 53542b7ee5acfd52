package main

// Output layout
const (
	// Spaces between the alias column and the addresses in `remotes -v`
	columnGap = 2

	// How authorization expiry is printed
	expiryLayout = "2006-01-02 15:04:05 MST"
)
