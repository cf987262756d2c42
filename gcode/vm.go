package gcode

import "github.com/mastercactapus/lasersend/coord"

// VM tracks the tool position across commands.
//
// Axes are modal: a command that omits an axis leaves it unchanged.
type VM struct {
	pos coord.Point
}

// NewVM constructs a new VM at the machine origin.
func NewVM() *VM {
	return &VM{pos: coord.Origin}
}

func (vm VM) Pos() coord.Point { return vm.pos }

func applyBlock(p coord.Point, b Block) coord.Point {
	for _, g := range b {
		if !g.IsAxis() {
			continue
		}
		switch g.W {
		case 'X':
			p.X = g.Arg
		case 'Y':
			p.Y = g.Arg
		}
	}

	return p
}

// Run applies the axis words of b and returns the new position.
func (vm *VM) Run(b Block) coord.Point {
	vm.pos = applyBlock(vm.pos, b)
	return vm.pos
}
