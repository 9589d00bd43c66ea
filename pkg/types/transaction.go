package types

// SequenceFinal marks an input as not subject to relative-locktime or
// nLockTime (BIP68/BIP125 opt-out).
const SequenceFinal uint32 = 0xFFFFFFFF

// LocktimeThreshold is the boundary below which Transaction.LockTime is
// interpreted as a block height, and at or above which it is a Unix time.
const LocktimeThreshold uint32 = 500000000

// Outpoint identifies one output of one transaction.
type Outpoint struct {
	Hash  Hash
	Index uint32
}

// TxInput references a previous output by outpoint and carries the
// unlocking script and sequence number.
type TxInput struct {
	PrevTxHash      Hash
	OutputIndex     uint32
	SignatureScript []byte
	Sequence        uint32
}

// Outpoint returns the (tx_hash, index) this input spends.
func (in *TxInput) Outpoint() Outpoint {
	return Outpoint{Hash: in.PrevTxHash, Index: in.OutputIndex}
}

// IsNull reports whether this input's outpoint is the null reference used
// by coinbase inputs.
func (in *TxInput) IsNull() bool {
	return in.PrevTxHash.IsZero() && in.OutputIndex == 0xFFFFFFFF
}

// TxOutput carries a satoshi value and the script that locks it.
type TxOutput struct {
	Value        int64
	PubKeyScript []byte
}

// Transaction is a value transfer: inputs consumed, outputs created.
type Transaction struct {
	Version  int32
	Inputs   []TxInput
	Outputs  []TxOutput
	LockTime uint32
}

// IsCoinbase reports whether tx is a coinbase transaction: exactly one
// input with a null outpoint.
func (tx *Transaction) IsCoinbase() bool {
	return len(tx.Inputs) == 1 && tx.Inputs[0].IsNull()
}
