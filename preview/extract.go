package preview

import (
	"errors"

	"github.com/mastercactapus/lasersend/coord"
	"github.com/mastercactapus/lasersend/gcode"
)

// Extract walks the program and returns its tool path.
//
// Extraction stops at the first command with an unreadable axis value;
// the returned error matches gcode.ErrMalformedCommand.
func Extract(p gcode.Program) (*Path, error) {
	vm := gcode.NewVM()
	path := &Path{
		CutPath: []coord.Point{vm.Pos()},
		Travel:  []Segment{},
	}

	for i, line := range p {
		op := gcode.Classify(line)
		if op == gcode.OpNone {
			continue
		}

		b, err := gcode.ScanAxes(line)
		if err != nil {
			var se *gcode.SyntaxError
			if errors.As(err, &se) {
				se.Line = i
			}
			return nil, err
		}

		prev := vm.Pos()
		next := vm.Run(b)
		path.CutPath = append(path.CutPath, next)

		if op == gcode.OpRapid {
			path.Travel = append(path.Travel, Segment{
				Kind:   KindTravel,
				Points: []coord.Point{prev, next},
			})
		}
	}

	return path, nil
}
