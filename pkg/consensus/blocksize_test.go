package consensus

import "testing"

// Whether a block at exactly the size limit accepts and one byte over
// rejects is pkg/validation's job to assert; here we only pin the
// schedule's own boundary.
func TestMaxBlockSizeSchedule(t *testing.T) {
	p := MainnetParams()

	if got := p.MaxBlockSize(TwoMegForkTime - 1); got != p.MaxBlockSizeLegacy {
		t.Fatalf("before fork: got %d, want legacy %d", got, p.MaxBlockSizeLegacy)
	}
	if got := p.MaxBlockSize(TwoMegForkTime); got != p.MaxBlockSizeCurrent {
		t.Fatalf("at fork: got %d, want current %d", got, p.MaxBlockSizeCurrent)
	}
	if got := p.MaxBlockSize(TwoMegForkTime + 1); got != p.MaxBlockSizeCurrent {
		t.Fatalf("after fork: got %d, want current %d", got, p.MaxBlockSizeCurrent)
	}
}

func TestMaxBlockSigopsIsOneFiftiethOfSize(t *testing.T) {
	p := MainnetParams()
	for _, tm := range []uint32{0, TwoMegForkTime - 1, TwoMegForkTime, TwoMegForkTime + 1} {
		want := p.MaxBlockSize(tm) / MaxBlockSigopsDivisor
		if got := p.MaxBlockSigops(tm); got != want {
			t.Errorf("MaxBlockSigops(%d) = %d, want %d", tm, got, want)
		}
	}
}
