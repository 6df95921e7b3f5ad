package cos

import "github.com/OneOfOne/xxhash"

// NameHash turns a region or data-item name into a stable 64-bit id, the way
// the CIS direct backend mints region/item ids from their names.
func NameHash(name string) uint64 {
	return xxhash.Checksum64([]byte(name))
}
