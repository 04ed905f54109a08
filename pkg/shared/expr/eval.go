/*
Copyright 2022 The Numaproj Authors.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package expr

import (
	"fmt"

	"github.com/antonmedv/expr"
	"github.com/antonmedv/expr/vm"
)

// BoolProgram is a compiled boolean expression. It is safe for concurrent use.
type BoolProgram struct {
	expression string
	program    *vm.Program
}

// CompileBool compiles an expression that must evaluate to a bool.
func CompileBool(expression string) (*BoolProgram, error) {
	program, err := expr.Compile(expression, expr.Env(newEnv(nil)))
	if err != nil {
		return nil, fmt.Errorf("unable to compile expression '%s': %w", expression, err)
	}
	return &BoolProgram{expression: expression, program: program}, nil
}

// Eval runs the program against the payload.
func (p *BoolProgram) Eval(payload []byte) (bool, error) {
	result, err := expr.Run(p.program, newEnv(payload))
	if err != nil {
		return false, fmt.Errorf("unable to evaluate expression '%s': %w", p.expression, err)
	}
	resultBool, ok := result.(bool)
	if !ok {
		return false, fmt.Errorf("unable to cast expression result '%v' to bool", result)
	}
	return resultBool, nil
}

func (p *BoolProgram) String() string {
	return p.expression
}

// EvalBool compiles and evaluates the expression in one go.
func EvalBool(expression string, payload []byte) (bool, error) {
	p, err := CompileBool(expression)
	if err != nil {
		return false, err
	}
	return p.Eval(payload)
}
