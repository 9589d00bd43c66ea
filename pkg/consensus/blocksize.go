package consensus

// MaxBlockSize is the flat-step schedule this node commits to at its
// interface: 1,000,000 bytes before TwoMegForkTime, 2,000,000 at and
// after. A linearly-growing schedule exists in other deployments of the
// same fork; it is deliberately not implemented here (see DESIGN.md).
func (p *Params) MaxBlockSize(blockTime uint32) uint32 {
	if blockTime < TwoMegForkTime {
		return p.MaxBlockSizeLegacy
	}
	return p.MaxBlockSizeCurrent
}

// MaxBlockSigops is the per-block signature-operation ceiling, one
// fiftieth of the size limit in effect at blockTime.
func (p *Params) MaxBlockSigops(blockTime uint32) uint32 {
	return p.MaxBlockSize(blockTime) / MaxBlockSigopsDivisor
}
