package alpha

// Bool returns the boolean reading of a block/metadata pair: lit torches
// and levers with the on bit set are true, wires are true when carrying any
// signal, everything else is false.
func Bool(block BlockID, meta byte) bool {
	switch block {
	case BlockRedstoneTorch:
		return true
	case BlockRedstoneTorchOff:
		return false
	case BlockRedstoneWire:
		return meta&MetaWireMask != 0
	case BlockLever:
		return meta&MetaLeverOn != 0
	}
	return false
}

// Truthify folds a boolean back into the block representation. Torches swap
// between the lit and unlit slots, wires keep their signal strength when
// already driven and jump to full strength when freshly driven, levers set
// or clear the on bit. Blocks the codec does not know pass through
// unchanged.
func Truthify(truth bool, block BlockID, meta byte) (BlockID, byte) {
	switch block {
	case BlockRedstoneTorch, BlockRedstoneTorchOff:
		if truth {
			return BlockRedstoneTorch, meta
		}
		return BlockRedstoneTorchOff, meta
	case BlockRedstoneWire:
		if truth {
			if meta&MetaWireMask != 0 {
				return block, meta
			}
			return block, meta | MetaWireFull
		}
		return block, meta &^ MetaWireMask
	case BlockLever:
		if truth {
			return block, meta | MetaLeverOn
		}
		return block, meta &^ MetaLeverOn
	}
	return block, meta
}

// NibbleAt reads the 4-bit value at index i from a packed nibble array.
// Even indices occupy the low nibble of their byte.
func NibbleAt(data []byte, i int) byte {
	b := data[i>>1]
	if i&1 == 0 {
		return b & 0x0F
	}
	return b >> 4
}

// SetNibble writes the 4-bit value v at index i in a packed nibble array.
func SetNibble(data []byte, i int, v byte) {
	v &= 0x0F
	if i&1 == 0 {
		data[i>>1] = data[i>>1]&0xF0 | v
	} else {
		data[i>>1] = data[i>>1]&0x0F | v<<4
	}
}
