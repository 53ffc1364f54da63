package cc111x

import "ccdump-go/x/conv"

// Status is the READ_STATUS byte.
type Status uint8

const (
	StatusChipEraseDone    Status = 0x80
	StatusPconIdle         Status = 0x40
	StatusCPUHalted        Status = 0x20
	StatusPMActive         Status = 0x10
	StatusHaltStatus       Status = 0x08
	StatusDebugLocked      Status = 0x04
	StatusOscillatorStable Status = 0x02
	StatusStackOverflow    Status = 0x01
)

func (s Status) EraseDone() bool        { return s&StatusChipEraseDone != 0 }
func (s Status) PconIdle() bool         { return s&StatusPconIdle != 0 }
func (s Status) Halted() bool           { return s&StatusCPUHalted != 0 }
func (s Status) PMActive() bool         { return s&StatusPMActive != 0 }
func (s Status) HaltStatus() bool       { return s&StatusHaltStatus != 0 }
func (s Status) Locked() bool           { return s&StatusDebugLocked != 0 }
func (s Status) OscillatorStable() bool { return s&StatusOscillatorStable != 0 }
func (s Status) StackOverflow() bool    { return s&StatusStackOverflow != 0 }

// String renders the byte and its flags, e.g. "0x22 [HALTED UNLOCKED OSC_STABLE]".
func (s Status) String() string {
	b := make([]byte, 0, 64)
	b = append(b, "0x"...)
	b = conv.AppendHex8(b, byte(s))
	b = append(b, " ["...)
	flag := func(on bool, name string) {
		if on {
			b = append(b, name...)
			b = append(b, ' ')
		}
	}
	flag(s.EraseDone(), "ERASE_DONE")
	flag(s.PconIdle(), "IDLE")
	flag(s.Halted(), "HALTED")
	flag(s.PMActive(), "PM0")
	flag(s.HaltStatus(), "BKPT")
	if s.Locked() {
		flag(true, "LOCKED")
	} else {
		flag(true, "UNLOCKED")
	}
	if s.OscillatorStable() {
		flag(true, "OSC_STABLE")
	} else {
		flag(true, "OSC_UNSTABLE")
	}
	flag(s.StackOverflow(), "STKOVERFLOW")
	b[len(b)-1] = ']'
	return string(b)
}

// ChipID is the GET_CHIP_ID reply: family in the high byte, revision low.
type ChipID uint16

// FamilyCC1110 is the chip family this dumper is built for.
const FamilyCC1110 = 0x89

// Known CC11xx siblings; flash geometry may differ from the CC1110F32.
var siblingFamilies = [...]byte{0x81, 0x91, 0x85, 0x95, 0xA5, 0xB5}

func (id ChipID) Family() byte   { return byte(id >> 8) }
func (id ChipID) Revision() byte { return byte(id) }

// Valid is false for the all-zero and all-one patterns a silent or floating
// DD line produces.
func (id ChipID) Valid() bool { return id != 0x0000 && id != 0xFFFF }

func (id ChipID) String() string {
	b := make([]byte, 0, 6)
	b = append(b, "0x"...)
	return string(conv.AppendHex16(b, uint16(id)))
}

// KnownSibling reports whether family belongs to the CC11xx line.
func KnownSibling(family byte) bool {
	if family == FamilyCC1110 {
		return true
	}
	for _, f := range siblingFamilies {
		if f == family {
			return true
		}
	}
	return false
}
