package vm

import "fmt"

// Instruction is a decoded instruction word. The set of implementations is
// closed: one struct per variant, each carrying only its own operands.
type Instruction interface {
	fmt.Stringer
	instruction()
}

type (
	// 0000
	Halt struct{}
	// 00E0
	Clear struct{}
	// 00EE
	Return struct{}
	// 0NNN, acknowledged but never executed
	Routine struct{ NNN uint16 }
	// 1NNN
	Goto struct{ NNN uint16 }
	// 2NNN
	Call struct{ NNN uint16 }
	// 3XNN
	Eq struct {
		X  uint8
		NN uint8
	}
	// 4XNN
	Neq struct {
		X  uint8
		NN uint8
	}
	// 5XY0
	EqReg struct{ X, Y uint8 }
	// 6XNN
	SetConst struct {
		X  uint8
		NN uint8
	}
	// 7XNN
	AddConst struct {
		X  uint8
		NN uint8
	}
	// 8XY0
	SetReg struct{ X, Y uint8 }
	// 8XY1
	Or struct{ X, Y uint8 }
	// 8XY2
	And struct{ X, Y uint8 }
	// 8XY3
	Xor struct{ X, Y uint8 }
	// 8XY4
	AddReg struct{ X, Y uint8 }
	// 8XY5
	SubReg struct{ X, Y uint8 }
	// 8XY6
	ShiftRight struct{ X, Y uint8 }
	// 8XY7
	Subtract struct{ X, Y uint8 }
	// 8XYE
	ShiftLeft struct{ X, Y uint8 }
	// 9XY0
	NeqReg struct{ X, Y uint8 }
	// ANNN
	SetIndex struct{ NNN uint16 }
	// BNNN
	Jump struct{ NNN uint16 }
	// CXNN
	Rand struct {
		X  uint8
		NN uint8
	}
	// DXYN
	Draw struct{ X, Y, N uint8 }
	// EX9E
	KeyPressed struct{ X uint8 }
	// EXA1
	KeyNotPressed struct{ X uint8 }
	// FX07
	GetDelay struct{ X uint8 }
	// FX0A
	GetKey struct{ X uint8 }
	// FX15
	SetDelay struct{ X uint8 }
	// FX18
	SetSound struct{ X uint8 }
	// FX1E
	AddIndex struct{ X uint8 }
	// FX29
	SpriteIndex struct{ X uint8 }
	// FX33
	BCD struct{ X uint8 }
	// FX55
	Dump struct{ N uint8 }
	// FX65
	Load struct{ N uint8 }
	// None is any word that matches nothing above. It executes as a no-op.
	None struct{ Word uint16 }
)

func (Halt) instruction() {}
func (Clear) instruction() {}
func (Return) instruction() {}
func (Routine) instruction() {}
func (Goto) instruction() {}
func (Call) instruction() {}
func (Eq) instruction() {}
func (Neq) instruction() {}
func (EqReg) instruction() {}
func (SetConst) instruction() {}
func (AddConst) instruction() {}
func (SetReg) instruction() {}
func (Or) instruction() {}
func (And) instruction() {}
func (Xor) instruction() {}
func (AddReg) instruction() {}
func (SubReg) instruction() {}
func (ShiftRight) instruction() {}
func (Subtract) instruction() {}
func (ShiftLeft) instruction() {}
func (NeqReg) instruction() {}
func (SetIndex) instruction() {}
func (Jump) instruction() {}
func (Rand) instruction() {}
func (Draw) instruction() {}
func (KeyPressed) instruction() {}
func (KeyNotPressed) instruction() {}
func (GetDelay) instruction() {}
func (GetKey) instruction() {}
func (SetDelay) instruction() {}
func (SetSound) instruction() {}
func (AddIndex) instruction() {}
func (SpriteIndex) instruction() {}
func (BCD) instruction() {}
func (Dump) instruction() {}
func (Load) instruction() {}
func (None) instruction() {}

func (Halt) String() string { return "halt" }
func (Clear) String() string { return "cls" }
func (Return) String() string { return "rts" }
func (i Routine) String() string { return fmt.Sprintf("sys 0x%04x", i.NNN) }
func (i Goto) String() string { return fmt.Sprintf("jmp 0x%04x", i.NNN) }
func (i Call) String() string { return fmt.Sprintf("jsr 0x%04x", i.NNN) }
func (i Eq) String() string { return fmt.Sprintf("skeq v%x, %d", i.X, i.NN) }
func (i Neq) String() string { return fmt.Sprintf("skne v%x, %d", i.X, i.NN) }
func (i EqReg) String() string { return fmt.Sprintf("skeq v%x, v%x", i.X, i.Y) }
func (i SetConst) String() string { return fmt.Sprintf("mov v%x, %d", i.X, i.NN) }
func (i AddConst) String() string { return fmt.Sprintf("add v%x, %d", i.X, i.NN) }
func (i SetReg) String() string { return fmt.Sprintf("mov v%x, v%x", i.X, i.Y) }
func (i Or) String() string { return fmt.Sprintf("or v%x, v%x", i.X, i.Y) }
func (i And) String() string { return fmt.Sprintf("and v%x, v%x", i.X, i.Y) }
func (i Xor) String() string { return fmt.Sprintf("xor v%x, v%x", i.X, i.Y) }
func (i AddReg) String() string { return fmt.Sprintf("add v%x, v%x", i.X, i.Y) }
func (i SubReg) String() string { return fmt.Sprintf("sub v%x, v%x", i.X, i.Y) }
func (i ShiftRight) String() string { return fmt.Sprintf("shr v%x", i.X) }
func (i Subtract) String() string { return fmt.Sprintf("rsb v%x, v%x", i.X, i.Y) }
func (i ShiftLeft) String() string { return fmt.Sprintf("shl v%x", i.X) }
func (i NeqReg) String() string { return fmt.Sprintf("skne v%x, v%x", i.X, i.Y) }
func (i SetIndex) String() string { return fmt.Sprintf("mvi 0x%04x", i.NNN) }
func (i Jump) String() string { return fmt.Sprintf("jmi 0x%04x", i.NNN) }
func (i Rand) String() string { return fmt.Sprintf("rand v%x, %d", i.X, i.NN) }
func (i Draw) String() string { return fmt.Sprintf("sprite v%x, v%x, %d", i.X, i.Y, i.N) }
func (i KeyPressed) String() string { return fmt.Sprintf("skpr v%x", i.X) }
func (i KeyNotPressed) String() string { return fmt.Sprintf("skup v%x", i.X) }
func (i GetDelay) String() string { return fmt.Sprintf("gdelay v%x", i.X) }
func (i GetKey) String() string { return fmt.Sprintf("key v%x", i.X) }
func (i SetDelay) String() string { return fmt.Sprintf("sdelay v%x", i.X) }
func (i SetSound) String() string { return fmt.Sprintf("ssound v%x", i.X) }
func (i AddIndex) String() string { return fmt.Sprintf("adi v%x", i.X) }
func (i SpriteIndex) String() string { return fmt.Sprintf("font v%x", i.X) }
func (i BCD) String() string { return fmt.Sprintf("bcd v%x", i.X) }
func (i Dump) String() string { return fmt.Sprintf("str %d", i.N) }
func (i Load) String() string { return fmt.Sprintf("ldr %d", i.N) }
func (i None) String() string { return fmt.Sprintf("unknown 0x%04X", i.Word) }

func addr(n1, n2, n3 uint8) uint16 {
	return uint16(n1)<<8 | uint16(n2)<<4 | uint16(n3)
}

func imm(n1, n2 uint8) uint8 {
	return n1<<4 | n2
}

// Decode maps an instruction word to its variant. It is total: words that
// match no encoding decode to None.
func Decode(word uint16) Instruction {
	n0 := uint8(word >> 12 & 0xF)
	n1 := uint8(word >> 8 & 0xF)
	n2 := uint8(word >> 4 & 0xF)
	n3 := uint8(word & 0xF)

	switch n0 {
	case 0x0:
		switch {
		case n1 == 0 && n2 == 0 && n3 == 0:
			// 0000 - Halt
			return Halt{}
		case n1 == 0 && n2 == 0xE && n3 == 0:
			// 00E0 - Clear screen
			return Clear{}
		case n1 == 0 && n2 == 0xE && n3 == 0xE:
			// 00EE - Return from subroutine
			return Return{}
		}
		// 0NNN - Machine code routine
		return Routine{NNN: addr(n1, n2, n3)}

	case 0x1:
		// 1NNN - Jumps to address NNN
		return Goto{NNN: addr(n1, n2, n3)}

	case 0x2:
		// 2NNN - Calls subroutine at NNN
		return Call{NNN: addr(n1, n2, n3)}

	case 0x3:
		// 3XNN - Skips the next instruction if VX equals NN
		return Eq{X: n1, NN: imm(n2, n3)}

	case 0x4:
		// 4XNN - Skips the next instruction if VX does not equal NN
		return Neq{X: n1, NN: imm(n2, n3)}

	case 0x5:
		// 5XY0 - Skips the next instruction if VX equals VY
		if n3 == 0 {
			return EqReg{X: n1, Y: n2}
		}

	case 0x6:
		// 6XNN - Sets VX to NN
		return SetConst{X: n1, NN: imm(n2, n3)}

	case 0x7:
		// 7XNN - Adds NN to VX
		return AddConst{X: n1, NN: imm(n2, n3)}

	case 0x8:
		switch n3 {
		case 0x0:
			return SetReg{X: n1, Y: n2}
		case 0x1:
			return Or{X: n1, Y: n2}
		case 0x2:
			return And{X: n1, Y: n2}
		case 0x3:
			return Xor{X: n1, Y: n2}
		case 0x4:
			return AddReg{X: n1, Y: n2}
		case 0x5:
			return SubReg{X: n1, Y: n2}
		case 0x6:
			return ShiftRight{X: n1, Y: n2}
		case 0x7:
			return Subtract{X: n1, Y: n2}
		case 0xE:
			return ShiftLeft{X: n1, Y: n2}
		}

	case 0x9:
		// 9XY0 - Skips the next instruction if VX doesn't equal VY
		if n3 == 0 {
			return NeqReg{X: n1, Y: n2}
		}

	case 0xA:
		// ANNN - Sets I to the address NNN
		return SetIndex{NNN: addr(n1, n2, n3)}

	case 0xB:
		// BNNN - Jumps to the address NNN plus V0
		return Jump{NNN: addr(n1, n2, n3)}

	case 0xC:
		// CXNN - Sets VX to a random number, masked by NN
		return Rand{X: n1, NN: imm(n2, n3)}

	case 0xD:
		// DXYN - Draws an 8xN sprite from I at (VX, VY)
		return Draw{X: n1, Y: n2, N: n3}

	case 0xE:
		switch imm(n2, n3) {
		case 0x9E:
			return KeyPressed{X: n1}
		case 0xA1:
			return KeyNotPressed{X: n1}
		}

	case 0xF:
		switch imm(n2, n3) {
		case 0x07:
			return GetDelay{X: n1}
		case 0x0A:
			return GetKey{X: n1}
		case 0x15:
			return SetDelay{X: n1}
		case 0x18:
			return SetSound{X: n1}
		case 0x1E:
			return AddIndex{X: n1}
		case 0x29:
			return SpriteIndex{X: n1}
		case 0x33:
			return BCD{X: n1}
		case 0x55:
			return Dump{N: n1}
		case 0x65:
			return Load{N: n1}
		}
	}

	return None{Word: word}
}
