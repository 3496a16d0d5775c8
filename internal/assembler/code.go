package assembler

// Fixed encoding tables of the hack machine language. A C instruction is laid
// out as 111a cccc ccdd djjj, where a plus the six c bits select the
// computation, ddd the destination registers and jjj the jump condition.

// predefinedSymbols are the registers and memory mapped io addresses every
// program can reference without declaring them.
var predefinedSymbols = map[string]int{
	"SP":     0,
	"LCL":    1,
	"ARG":    2,
	"THIS":   3,
	"THAT":   4,
	"R0":     0,
	"R1":     1,
	"R2":     2,
	"R3":     3,
	"R4":     4,
	"R5":     5,
	"R6":     6,
	"R7":     7,
	"R8":     8,
	"R9":     9,
	"R10":    10,
	"R11":    11,
	"R12":    12,
	"R13":    13,
	"R14":    14,
	"R15":    15,
	"SCREEN": 16384,
	"KBD":    24576,
}

// compTable maps a computation to its a-bit followed by the six c bits. The
// commutative spellings (A+D, M&D ...) map to the same code.
var compTable = map[string]uint16{
	"0":   0b0101010,
	"1":   0b0111111,
	"-1":  0b0111010,
	"D":   0b0001100,
	"A":   0b0110000,
	"!D":  0b0001101,
	"!A":  0b0110001,
	"-D":  0b0001111,
	"-A":  0b0110011,
	"D+1": 0b0011111,
	"1+D": 0b0011111,
	"A+1": 0b0110111,
	"1+A": 0b0110111,
	"D-1": 0b0001110,
	"A-1": 0b0110010,
	"D+A": 0b0000010,
	"A+D": 0b0000010,
	"D-A": 0b0010011,
	"A-D": 0b0000111,
	"D&A": 0b0000000,
	"A&D": 0b0000000,
	"D|A": 0b0010101,
	"A|D": 0b0010101,
	"M":   0b1110000,
	"!M":  0b1110001,
	"-M":  0b1110011,
	"M+1": 0b1110111,
	"1+M": 0b1110111,
	"M-1": 0b1110010,
	"D+M": 0b1000010,
	"M+D": 0b1000010,
	"D-M": 0b1010011,
	"M-D": 0b1000111,
	"D&M": 0b1000000,
	"M&D": 0b1000000,
	"D|M": 0b1010101,
	"M|D": 0b1010101,
}

// destTable maps a destination to the A/D/M write mask. Any ordering of the
// register letters is accepted.
var destTable = map[string]uint16{
	"":    0b000,
	"M":   0b001,
	"D":   0b010,
	"MD":  0b011,
	"DM":  0b011,
	"A":   0b100,
	"AM":  0b101,
	"MA":  0b101,
	"AD":  0b110,
	"DA":  0b110,
	"AMD": 0b111,
	"ADM": 0b111,
	"DAM": 0b111,
	"DMA": 0b111,
	"MAD": 0b111,
	"MDA": 0b111,
}

var jumpTable = map[string]uint16{
	"":    0b000,
	"JGT": 0b001,
	"JEQ": 0b010,
	"JGE": 0b011,
	"JLT": 0b100,
	"JNE": 0b101,
	"JLE": 0b110,
	"JMP": 0b111,
}

const (
	cInstructionPrefix uint16 = 0b111 << 13
	// MaxAddress is the largest operand an A instruction can load.
	MaxAddress = 1<<15 - 1
	// VariableBaseAddress is where the first variable symbol is allocated.
	VariableBaseAddress = 16
)

// encodeC assembles the three looked up fields into a C instruction word.
func encodeC(comp, dest, jump uint16) uint16 {
	return cInstructionPrefix | comp<<6 | dest<<3 | jump
}

// FormatWord renders word as sixteen '0'/'1' characters, most significant bit
// first.
func FormatWord(word uint16) string {
	code := [16]byte{}
	for j := 15; j >= 0; j-- {
		code[j] = byte(word&1) + '0'
		word >>= 1
	}
	return string(code[:])
}
