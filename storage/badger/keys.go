package badger

// Key prefixes for different data types
const (
	collectionPrefix = "vcol:"
	entryPrefix      = "vent:"
)

// makeCollectionKey generates the metadata key for a collection.
func makeCollectionKey(name string) []byte {
	return []byte(collectionPrefix + name)
}

// makeEntryPrefix generates the prefix shared by all entries of a collection.
// Format: prefix + name + NUL. The NUL keeps "a" from matching entries of "ab".
func makeEntryPrefix(name string) []byte {
	buf := make([]byte, 0, len(entryPrefix)+len(name)+1)
	buf = append(buf, entryPrefix...)
	buf = append(buf, name...)
	return append(buf, 0)
}

// makeEntryKey generates the key for a single entry.
// Format: prefix:name NUL id
func makeEntryKey(name, id string) []byte {
	p := makeEntryPrefix(name)
	return append(p, id...)
}
