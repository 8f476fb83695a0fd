package store

// prefixed() returns a new slice of prefix followed by key without aliasing either
func prefixed(prefix, key []byte) []byte {
	out := make([]byte, 0, len(prefix)+len(key))
	return append(append(out, prefix...), key...)
}
