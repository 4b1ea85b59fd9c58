package app

import (
	"fmt"
	"strings"
)

// deal:view:{id}
func dealViewKey(id string) string { return "deal:view:" + strings.TrimSpace(id) }

// deals:list:{gen}:limit={limit}:max={maxPrice|any}
func dealListKey(gen string, limit int, maxPrice *float64) string {
	m := "any"
	if maxPrice != nil {
		m = fmt.Sprintf("%.2f", *maxPrice)
	}
	return fmt.Sprintf("deals:list:%s:limit=%d:max=%s", gen, limit, m)
}

// listGenKey holds the current listing generation. Every deal write moves it
// on, so each cached page of the previous generation is orphaned and expires.
const listGenKey = "deals:list:gen"

const (
	destinationsKey = "directory:destinations"
	hotelsKey       = "directory:hotels"
	airportsKey     = "directory:airports"
)
