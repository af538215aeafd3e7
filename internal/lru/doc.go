// Package lru implements a generic fixed-capacity least-recently-used cache.
package lru
