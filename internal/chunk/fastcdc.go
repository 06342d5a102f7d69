package chunk

// fastCDCBoundaries implements a FastCDC-style content-defined chunking cut
// point algorithm: a gear-hash rolling checksum with a normalized chunking
// mask schedule (a stricter mask below the average size, a looser one
// above it), bounded by minSize/maxSize. It returns the byte offsets
// bracketing each chunk, i.e. len(result) == chunk_count+1, with
// result[0] == 0 and result[len-1] == len(data).
func fastCDCBoundaries(data []byte) []int {
	n := len(data)
	bounds := []int{0}

	maskSmall := uint64(1)<<normalizedBits(avgSize, minSize) - 1
	maskLarge := uint64(1)<<normalizedBits(avgSize, maxSize) - 1

	start := 0
	for start < n {
		cut := cutPoint(data[start:], maskSmall, maskLarge)
		end := start + cut
		if end > n {
			end = n
		}
		bounds = append(bounds, end)
		start = end
	}

	if bounds[len(bounds)-1] != n {
		bounds = append(bounds, n)
	}
	return bounds
}

// cutPoint scans window (relative offsets) and returns the length of the
// next chunk using the gear-hash rolling checksum with normalized chunking:
// a stricter mask is used while inside [0,avg), a looser one afterward,
// so the distribution concentrates around avgSize while minSize/maxSize
// remain hard bounds.
func cutPoint(window []byte, maskSmall, maskLarge uint64) int {
	if len(window) <= minSize {
		return len(window)
	}

	limit := len(window)
	if limit > maxSize {
		limit = maxSize
	}

	var hash uint64
	i := minSize
	for ; i < limit; i++ {
		hash = (hash << 1) + gearTable[window[i]]

		var mask uint64
		if i < avgSize {
			mask = maskSmall
		} else {
			mask = maskLarge
		}

		if hash&mask == 0 {
			return i + 1
		}
	}

	return limit
}

// normalizedBits returns how many low bits of the gear hash must be zero
// for a cut point near bound, given avg as the target chunk size. The
// baseline bit count is log2(avg); normalized chunking then shifts it by
// log2(avg/bound) bits stricter when bound is below avg (discouraging
// cuts before the target is reached) or log2(bound/avg) bits looser when
// bound is above it (encouraging a cut soon after), per FastCDC's
// two-mask normalization scheme.
func normalizedBits(avg, bound int) uint {
	base := log2Floor(avg)
	switch {
	case bound <= 0 || bound == avg:
		return base
	case bound < avg:
		return base + log2Floor(avg/bound)
	default:
		delta := log2Floor(bound / avg)
		if delta >= base {
			delta = base - 1 // keep at least 1 bit of entropy in the mask
		}
		return base - delta
	}
}

func log2Floor(v int) uint {
	bits := uint(0)
	for v > 1 {
		v >>= 1
		bits++
	}
	return bits
}

// gearTable is a fixed pseudo-random 256-entry table used by the gear hash,
// generated once at init from a simple deterministic splitmix64 sequence —
// it need not be cryptographically random, only fixed and well-distributed,
// so chunk boundaries are reproducible across runs and platforms.
var gearTable [256]uint64

func init() {
	var seed uint64 = 0x9E3779B97F4A7C15
	for i := range gearTable {
		seed += 0x9E3779B97F4A7C15
		z := seed
		z = (z ^ (z >> 30)) * 0xBF58476D1CE4E5B9
		z = (z ^ (z >> 27)) * 0x94D049BB133111EB
		z = z ^ (z >> 31)
		gearTable[i] = z
	}
}
