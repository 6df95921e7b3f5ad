package cos

// Data-item region ids embed the memory-server id hosting extent 0 in their
// high bits (spec.md §3 invariant 4, §9 Design Notes "Region id encoding").
// Masking must happen at exactly the boundary to the CIS — everywhere else in
// the runtime deals with the embedded form.
const (
	regionIDBits  = 40
	regionIDMask  = (uint64(1) << regionIDBits) - 1
	memserverBits = 64 - regionIDBits
)

// EncodeItemRegionID embeds serverID (the server hosting extent 0) into the
// high bits of a pure region id, for use in data-item descriptors.
func EncodeItemRegionID(regionID, serverID uint64) uint64 {
	return (serverID << regionIDBits) | (regionID & regionIDMask)
}

// DecodeRegionID recovers the pure region id from an (possibly) encoded one.
// Safe to call on a plain region-level id too: the CIS mints region ids
// already masked to regionIDMask (cos.NameHash result is passed through this
// same mask at CreateRegion time), so decoding a never-encoded id is a no-op.
func DecodeRegionID(encoded uint64) uint64 {
	return encoded & regionIDMask
}

// DecodeServerID recovers the memory-server id embedded in a data-item's
// region id, or 0 if none was embedded (region-level descriptor).
func DecodeServerID(encoded uint64) uint64 {
	return encoded >> regionIDBits
}
