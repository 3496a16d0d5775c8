package hackcpu

import (
	"errors"
	"fmt"
)

// A small Hack CPU used to execute what the toolchain produces. It runs a ROM of binary words against a 32K word
// data memory with the A, D and PC registers, the way the hardware does, and stops once the program enters the
// canonical halt loop:
//
//	(END)
//	@END
//	0;JMP

const (
	RAMSize = 1 << 15

	SP   = 0
	LCL  = 1
	ARG  = 2
	THIS = 3
	THAT = 4
)

var (
	ErrCycleLimit = errors.New("hackcpu: cycle limit exceeded")
	ErrPCOutOfROM = errors.New("hackcpu: pc out of rom")
)

type CPU struct {
	ROM []uint16
	RAM [RAMSize]uint16

	A  uint16
	D  uint16
	PC uint16

	Halted bool
	Cycles int
}

func NewCPU(rom []uint16) *CPU {
	return &CPU{ROM: rom}
}

// Peek reads a data memory word as the signed value the Hack platform interprets it as.
func (c *CPU) Peek(addr int) int16 {
	return int16(c.RAM[addr])
}

func (c *CPU) Poke(addr int, value int16) {
	c.RAM[addr] = uint16(value)
}

// Step executes one instruction.
func (c *CPU) Step() error {
	if c.Halted {
		return nil
	}
	if int(c.PC) >= len(c.ROM) {
		c.Halted = true
		return fmt.Errorf("%w: pc=%d", ErrPCOutOfROM, c.PC)
	}
	instr := c.ROM[c.PC]
	c.Cycles++
	if instr&0x8000 == 0 {
		c.A = instr
		c.PC++
		return nil
	}
	addr := c.A & (RAMSize - 1)
	y := c.A
	if instr&0x1000 != 0 {
		y = c.RAM[addr]
	}
	out := alu(c.D, y, (instr>>6)&0x3f)
	dest := (instr >> 3) & 0x7
	if dest&0x1 != 0 {
		c.RAM[addr] = out
	}
	if dest&0x2 != 0 {
		c.D = out
	}
	if dest&0x4 != 0 {
		c.A = out
	}
	if !jump(int16(out), instr&0x7) {
		c.PC++
		return nil
	}
	target := c.A
	if dest == 0 && c.PC > 0 && target == c.PC-1 && c.ROM[target] == target {
		c.Halted = true
		return nil
	}
	c.PC = target
	return nil
}

// Run steps until the program halts or maxCycles instructions have been executed.
func (c *CPU) Run(maxCycles int) error {
	for i := 0; i < maxCycles; i++ {
		if c.Halted {
			return nil
		}
		if err := c.Step(); err != nil {
			return err
		}
	}
	if c.Halted {
		return nil
	}
	return ErrCycleLimit
}

// alu implements the six control bits zx nx zy ny f no.
func alu(x, y uint16, control uint16) uint16 {
	if control&0x20 != 0 {
		x = 0
	}
	if control&0x10 != 0 {
		x = ^x
	}
	if control&0x08 != 0 {
		y = 0
	}
	if control&0x04 != 0 {
		y = ^y
	}
	var out uint16
	if control&0x02 != 0 {
		out = x + y
	} else {
		out = x & y
	}
	if control&0x01 != 0 {
		out = ^out
	}
	return out
}

func jump(out int16, condition uint16) bool {
	switch condition {
	case 0b001:
		return out > 0
	case 0b010:
		return out == 0
	case 0b011:
		return out >= 0
	case 0b100:
		return out < 0
	case 0b101:
		return out != 0
	case 0b110:
		return out <= 0
	case 0b111:
		return true
	}
	return false
}
