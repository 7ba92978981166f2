//go:build !unix

package cli

func errnoName(error) string { return "" }
