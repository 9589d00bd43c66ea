package consensus

import "sort"

// HeaderView is the minimal ancestor-walk surface the consensus package
// needs from the block index: given an entry, read back N ancestors'
// version/time/bits without knowing anything about BlockIndexEntry itself.
// pkg/blockindex implements this directly over its arena. n counts blocks
// back from (and including, at n=0) the view's reference point, matching
// AncestorTimes so one adapter type satisfies both.
type HeaderView interface {
	VersionBack(n uint64) int32
	TimestampBack(n uint64) uint32
	BitsBack(n uint64) uint32
	HeightBack(n uint64) uint64
}

// MedianTimePast returns the median timestamp of the MedianTimeSpan most
// recent ancestors; near genesis, of however many ancestors exist.
func MedianTimePast(v HeaderView) uint32 {
	height := v.HeightBack(0)
	n := uint64(MedianTimeSpan)
	if height+1 < n {
		n = height + 1
	}

	times := make([]uint32, n)
	for i := uint64(0); i < n; i++ {
		times[i] = v.TimestampBack(i)
	}
	sort.Slice(times, func(i, j int) bool { return times[i] < times[j] })
	return times[len(times)/2]
}

// Supermajority reports whether at least `required` of the `window`
// ancestors ending at (and including) v's reference point have version >=
// minVersion.
func Supermajority(view HeaderView, minVersion int32, window, required int) bool {
	count := 0
	for i := uint64(0); i < uint64(window); i++ {
		if view.VersionBack(i) >= minVersion {
			count++
		}
	}
	return count >= required
}

// RequiredHeaderVersion walks the historical version-upgrade rules
// (BIP34/66/65-style supermajority gates) and returns the minimum header
// version a new block must carry given its immediate predecessor's
// ancestry: once a super-majority of the last MajorityWindow ancestors
// carry version >= v, headers with version < v are rejected, for each
// historical v in {2,3,4}.
func (p *Params) RequiredHeaderVersion(prevView HeaderView) int32 {
	required := int32(1)
	if Supermajority(prevView, 4, p.MajorityWindow, p.MajorityRejectV4) {
		required = 4
	} else if Supermajority(prevView, 3, p.MajorityWindow, p.MajorityRejectV3) {
		required = 3
	} else if Supermajority(prevView, 2, p.MajorityWindow, p.MajorityRejectV2) {
		required = 2
	}
	return required
}
