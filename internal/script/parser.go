// Package script implements the drive language used to steer the robot by
// hand:
//
//	// comments are allowed
//	forward 13; right; forward 6; left;
//	face up;
//	goto (12, 7);
//	repeat 4 { right; }
//	scan; pickup;
//
// Programs run directly on a search.Actuator, so every step updates the
// board and reaches the actuator's observers like an engine action.
package script

import (
	"fmt"
	"os"

	"github.com/alecthomas/participle/v2"
	"github.com/alecthomas/participle/v2/lexer"
)

// MaxRepeat bounds a single repeat count.
const MaxRepeat = 10000

type Program struct {
	Statements []*Statement `parser:"@@*"`
}

type Statement struct {
	Pos lexer.Position

	Forward  *int    `parser:"  'forward' @Int ';'"`
	Backward *int    `parser:"| 'backward' @Int ';'"`
	Turn     *string `parser:"| @('left' | 'right') ';'"`
	Face     *string `parser:"| 'face' @('up' | 'down' | 'left' | 'right') ';'"`
	Goto     *Point  `parser:"| 'goto' @@ ';'"`
	Pickup   bool    `parser:"| @'pickup' ';'"`
	Scan     bool    `parser:"| @'scan' ';'"`
	Repeat   *Repeat `parser:"| @@"`
}

type Point struct {
	X int `parser:"'(' @('-'? Int)"`
	Y int `parser:"',' @('-'? Int) ')'"`
}

type Repeat struct {
	Count int          `parser:"'repeat' @Int"`
	Body  []*Statement `parser:"'{' @@* '}'"`
}

var parser = participle.MustBuild[Program]()

// Parse parses a program. name labels positions in errors.
func Parse(name, src string) (*Program, error) {
	prog, err := parser.ParseString(name, src)
	if err != nil {
		return nil, err
	}
	if err := prog.validate(); err != nil {
		return nil, err
	}
	return prog, nil
}

// ParseFile reads and parses the program at path.
func ParseFile(path string) (*Program, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read script: %w", err)
	}
	return Parse(path, string(data))
}

func (p *Program) validate() error {
	return validateBlock(p.Statements)
}

func validateBlock(stmts []*Statement) error {
	for _, s := range stmts {
		if s.Repeat == nil {
			continue
		}
		if s.Repeat.Count > MaxRepeat {
			return fmt.Errorf("%s: repeat count %d exceeds %d", s.Pos, s.Repeat.Count, MaxRepeat)
		}
		if err := validateBlock(s.Repeat.Body); err != nil {
			return err
		}
	}
	return nil
}
