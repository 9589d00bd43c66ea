package consensus

import "testing"

// fakeWindow is a WindowView over parallel per-height version/MTP slices.
type fakeWindow struct {
	versions []int32
	mtps     []uint32
}

func (w *fakeWindow) tip() uint64                        { return uint64(len(w.versions) - 1) }
func (w *fakeWindow) VersionBack(n uint64) int32         { return w.versions[w.tip()-n] }
func (w *fakeWindow) MedianTimePastBack(n uint64) uint32 { return w.mtps[w.tip()-n] }
func (w *fakeWindow) HeightBack(n uint64) uint64         { return w.tip() - n }

func deploymentTestParams() *Params {
	p := RegtestParams()
	p.MinerConfirmationWindow = 8
	p.RuleChangeActivationThreshold = 6
	return p
}

// A deployment that gathers enough signals walks
// DEFINED -> STARTED -> LOCKED_IN -> ACTIVE, one period per transition.
func TestDeploymentLifecycleToActive(t *testing.T) {
	p := deploymentTestParams()
	d := Deployment{Name: "testdummy", Bit: 0, BeginTime: 100, EndTime: 200}

	signaling := int32(0x20000001)
	w := &fakeWindow{}
	for height := 0; height < 32; height++ {
		version := int32(0x20000000)
		mtp := uint32(50)
		switch {
		case height >= 8 && height < 16:
			mtp = 150 // signaling window opens
		case height >= 16 && height < 24:
			mtp = 160
			version = signaling
		case height >= 24:
			mtp = 170
		}
		w.versions = append(w.versions, version)
		w.mtps = append(w.mtps, mtp)
	}

	if got := p.DeploymentStateAt(d, w); got != DeploymentActive {
		t.Fatalf("state = %s, want ACTIVE", got)
	}
}

// A deployment whose window closes before the threshold is met fails and
// stays failed.
func TestDeploymentTimesOutToFailed(t *testing.T) {
	p := deploymentTestParams()
	d := Deployment{Name: "testdummy", Bit: 0, BeginTime: 100, EndTime: 200}

	w := &fakeWindow{}
	for height := 0; height < 32; height++ {
		mtp := uint32(150)
		if height >= 24 {
			mtp = 250 // past EndTime without ever locking in
		}
		w.versions = append(w.versions, int32(0x20000000))
		w.mtps = append(w.mtps, mtp)
	}

	if got := p.DeploymentStateAt(d, w); got != DeploymentFailed {
		t.Fatalf("state = %s, want FAILED", got)
	}
}

// Before any period boundary has passed, every deployment is DEFINED.
func TestDeploymentDefinedNearGenesis(t *testing.T) {
	p := deploymentTestParams()
	d := Deployment{Name: "testdummy", Bit: 0, BeginTime: 100, EndTime: 200}

	w := &fakeWindow{
		versions: []int32{0x20000000, 0x20000000, 0x20000000},
		mtps:     []uint32{150, 150, 150},
	}
	if got := p.DeploymentStateAt(d, w); got != DeploymentDefined {
		t.Fatalf("state = %s, want DEFINED", got)
	}
}
