package types

// DumpReport summarises one flash dump session.
type DumpReport struct {
	ChipID   uint16   `json:"chip_id"`
	Family   uint8    `json:"family"`
	Revision uint8    `json:"revision"`
	Attempts int      `json:"attempts"`
	Status   uint8    `json:"status"`
	Config   uint8    `json:"config"`
	PC       uint16   `json:"pc"`
	OscPolls int      `json:"osc_polls,omitempty"`
	Warnings []string `json:"warnings,omitempty"`

	Probe        [3]byte `json:"probe"`
	ProbeVerdict string  `json:"probe_verdict"`

	Bytes     int    `json:"bytes"`
	Blocks    int    `json:"blocks"`
	ElapsedMs int64  `json:"elapsed_ms"`
	Complete  bool   `json:"complete"`
	Error     string `json:"error,omitempty"`
}

// CaptureSummary describes a HEX stream collected on the host.
type CaptureSummary struct {
	HexPath  string  `json:"hex_path"`
	BinPath  string  `json:"bin_path"`
	Base     uint16  `json:"base"`
	Size     int     `json:"size"`
	Expected int     `json:"expected"`
	Records  int     `json:"records"`
	LogLines int     `json:"log_lines"`
	FFRatio  float64 `json:"ff_ratio"`
	Head     []byte  `json:"head"`
}

// Complete reports whether the capture covers the expected size.
func (c CaptureSummary) Complete() bool { return c.Size == c.Expected }

// MostlyErased flags captures that are mainly 0xFF.
func (c CaptureSummary) MostlyErased() bool { return c.FFRatio > 0.9 }
