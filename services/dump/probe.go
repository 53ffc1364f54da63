package dump

// ProbeVerdict classifies the first three flash bytes before a full read.
type ProbeVerdict string

const (
	// ProbeResetVector: byte 0 is LJMP (0x02), the usual 8051 reset vector.
	ProbeResetVector ProbeVerdict = "ljmp"
	// ProbeAllZero usually means a locked chip or DD stuck low.
	ProbeAllZero ProbeVerdict = "all_zero"
	// ProbeErased means blank flash or DD stuck high.
	ProbeErased  ProbeVerdict = "all_ff"
	ProbeUnknown ProbeVerdict = "unknown"
)

// ClassifyProbe inspects bytes 0..2 of code memory.
func ClassifyProbe(b [3]byte) ProbeVerdict {
	switch {
	case b[0] == 0x02:
		return ProbeResetVector
	case b == [3]byte{}:
		return ProbeAllZero
	case b == [3]byte{0xFF, 0xFF, 0xFF}:
		return ProbeErased
	}
	return ProbeUnknown
}

// Suspicious reports verdicts worth a warning. The dump still proceeds: a
// blank chip is a legitimate image.
func (v ProbeVerdict) Suspicious() bool { return v == ProbeAllZero || v == ProbeErased }
