package cc111x

// Command is one fixed debug-interface opcode with its request and response
// byte counts.
type Command struct {
	Name   string
	Opcode byte
	Req    uint8 // request bytes following the opcode (0..3)
	Resp   uint8 // response bytes (0..2)
}

// Debug opcodes (CC111x instruction table; the CC253x family differs).
var (
	CmdReadStatus  = Command{"READ_STATUS", 0x34, 0, 1}
	CmdGetChipID   = Command{"GET_CHIP_ID", 0x68, 0, 2}
	CmdHalt        = Command{"HALT", 0x44, 0, 1}
	CmdResume      = Command{"RESUME", 0x4C, 0, 1}
	CmdDebugInstr1 = Command{"DEBUG_INSTR_1", 0x55, 1, 1}
	CmdDebugInstr2 = Command{"DEBUG_INSTR_2", 0x56, 2, 1}
	CmdDebugInstr3 = Command{"DEBUG_INSTR_3", 0x57, 3, 1}
	CmdWrConfig    = Command{"WR_CONFIG", 0x1D, 1, 1}
	CmdRdConfig    = Command{"RD_CONFIG", 0x24, 0, 1}
	CmdGetPC       = Command{"GET_PC", 0x28, 0, 2}

	// CmdChipErase wipes flash and the lock bit. Nothing in this module
	// sends it; it is listed so decoders recognise the opcode.
	CmdChipErase = Command{"CHIP_ERASE", 0x14, 0, 1}
)

var commandTable = [...]Command{
	CmdReadStatus, CmdGetChipID, CmdHalt, CmdResume,
	CmdDebugInstr1, CmdDebugInstr2, CmdDebugInstr3,
	CmdWrConfig, CmdRdConfig, CmdGetPC, CmdChipErase,
}

// LookupOpcode returns the table entry for op.
func LookupOpcode(op byte) (Command, bool) {
	for _, c := range commandTable {
		if c.Opcode == op {
			return c, true
		}
	}
	return Command{}, false
}

// 8051 instruction bytes shipped through DEBUG_INSTR_n.
const (
	opMovDptrImm = 0x90 // MOV DPTR,#data16
	opClrA       = 0xE4 // CLR A
	opMovAImm    = 0x74 // MOV A,#data
	opMovcADptr  = 0x93 // MOVC A,@A+DPTR
	opIncDptr    = 0xA3 // INC DPTR
	opMovDirImm  = 0x75 // MOV direct,#data
)

// Debug configuration bits (RD_CONFIG / WR_CONFIG).
const (
	ConfigSelFlashInfoPage = 0x01
	ConfigTimerSuspend     = 0x02
	ConfigDMAPause         = 0x04
	ConfigTimersOff        = 0x08
)
