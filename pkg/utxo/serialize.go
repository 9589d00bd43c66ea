package utxo

import (
	"bytes"
	"fmt"

	"github.com/pouria-shahmiri/chaincore/pkg/serialization"
	"github.com/pouria-shahmiri/chaincore/pkg/types"
)

// SerializeCoins encodes a Coins record for the backing store: height,
// coinbase flag, version, then each output as a presence byte plus
// (for live outputs) value+script.
func SerializeCoins(c *types.Coins) ([]byte, error) {
	var buf bytes.Buffer

	if err := serialization.WriteUint64(&buf, c.Height); err != nil {
		return nil, err
	}
	coinbase := byte(0)
	if c.IsCoinbase {
		coinbase = 1
	}
	buf.WriteByte(coinbase)
	if err := serialization.WriteInt32(&buf, c.Version); err != nil {
		return nil, err
	}
	if err := serialization.WriteVarInt(&buf, uint64(len(c.Outputs))); err != nil {
		return nil, err
	}

	for _, out := range c.Outputs {
		if out == nil {
			buf.WriteByte(0)
			continue
		}
		buf.WriteByte(1)
		if err := serialization.WriteUint64(&buf, uint64(out.Value)); err != nil {
			return nil, err
		}
		if err := serialization.WriteBytes(&buf, out.PubKeyScript); err != nil {
			return nil, err
		}
	}

	return buf.Bytes(), nil
}

// DeserializeCoins is the inverse of SerializeCoins.
func DeserializeCoins(data []byte) (*types.Coins, error) {
	buf := bytes.NewReader(data)

	height, err := serialization.ReadUint64(buf)
	if err != nil {
		return nil, fmt.Errorf("read height: %w", err)
	}

	coinbaseByte := make([]byte, 1)
	if _, err := buf.Read(coinbaseByte); err != nil {
		return nil, fmt.Errorf("read coinbase flag: %w", err)
	}

	version, err := serialization.ReadInt32(buf)
	if err != nil {
		return nil, fmt.Errorf("read version: %w", err)
	}

	count, err := serialization.ReadVarInt(buf)
	if err != nil {
		return nil, fmt.Errorf("read output count: %w", err)
	}

	outputs := make([]*types.TxOutput, count)
	for i := range outputs {
		present := make([]byte, 1)
		if _, err := buf.Read(present); err != nil {
			return nil, fmt.Errorf("read output %d presence: %w", i, err)
		}
		if present[0] == 0 {
			continue
		}

		rawValue, err := serialization.ReadUint64(buf)
		if err != nil {
			return nil, fmt.Errorf("read output %d value: %w", i, err)
		}
		value := int64(rawValue)
		script, err := serialization.ReadBytes(buf)
		if err != nil {
			return nil, fmt.Errorf("read output %d script: %w", i, err)
		}
		outputs[i] = &types.TxOutput{Value: value, PubKeyScript: script}
	}

	return &types.Coins{
		Height:     height,
		IsCoinbase: coinbaseByte[0] == 1,
		Version:    version,
		Outputs:    outputs,
	}, nil
}
