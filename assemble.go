package main

import (
	"strings"

	"github.com/pkg/errors"
)

// Relocation is a pending 8-byte patch site: bytes at Offset in the
// final machine code must be overwritten with the runtime address of
// the rodata label named Label (movabs r64, @label).
type Relocation struct {
	Offset int
	Label  string
}

// AssembledUnit is the output of assembling one function's (or the
// whole program's) textual Assembly IR lines.
type AssembledUnit struct {
	Code        []byte
	Labels      map[string]int
	Relocations []Relocation
}

const maxRelaxIterations = 10

func isLabelLine(line string) (string, bool) {
	line = strings.TrimSpace(line)
	if line != "" && strings.HasSuffix(line, ":") && !strings.HasPrefix(line, ";") {
		return line[:len(line)-1], true
	}
	return "", false
}

func isBlankOrComment(line string) bool {
	line = strings.TrimSpace(line)
	return line == "" || strings.HasPrefix(line, ";")
}

// instrSize returns the byte length Emit/encodeXAt would produce for
// line, given the current relaxation form table, without needing a
// resolved label set (used during measuring passes).
func instrSize(line string, forms map[int]jumpForm, idx int) (int, error) {
	mnem, ops := splitLine(line)
	switch mnem {
	case "movabs":
		return 10, nil
	case "jmp", "call":
		f, ok := forms[idx]
		if !ok {
			f = formNear
		}
		return jmpSize(mnem, f), nil
	default:
		if _, ok := jccOpcodes[mnem]; ok {
			f, ok := forms[idx]
			if !ok {
				f = formNear
			}
			return jccSize(f), nil
		}
		_ = ops
		res, err := Emit(line)
		if err != nil {
			return 0, err
		}
		return len(res.bytes), nil
	}
}

// computeLabels walks lines once, assigning each label the running byte
// address, sizing instructions per forms.
func computeLabels(lines []string, forms map[int]jumpForm) (map[string]int, error) {
	labels := make(map[string]int)
	addr, idx := 0, 0
	for _, line := range lines {
		if isBlankOrComment(line) {
			continue
		}
		if name, ok := isLabelLine(line); ok {
			if _, exists := labels[name]; !exists {
				labels[name] = addr
			}
			continue
		}
		sz, err := instrSize(line, forms, idx)
		if err != nil {
			return nil, err
		}
		addr += sz
		idx++
	}
	return labels, nil
}

func formsEqual(a, b map[int]jumpForm) bool {
	if len(a) != len(b) {
		return false
	}
	for k, v := range a {
		if bv, ok := b[k]; !ok || bv != v {
			return false
		}
	}
	return true
}

// relax runs the branch-relaxation fixpoint: a stable per-instruction
// ordinal indexes jumpForm assignments that only ever promote from
// short to near, never back, capped at maxRelaxIterations, mirroring
// original_source/assembler.py's assemble_code.
func relax(lines []string) (map[string]int, map[int]jumpForm, bool, error) {
	forms := map[int]jumpForm{}
	labels, err := computeLabels(lines, forms)
	if err != nil {
		return nil, nil, false, err
	}

	for iter := 0; iter < maxRelaxIterations; iter++ {
		old := forms
		newForms := map[int]jumpForm{}
		addr, idx := 0, 0

		for _, line := range lines {
			if isBlankOrComment(line) {
				continue
			}
			if _, ok := isLabelLine(line); ok {
				continue
			}
			mnem, ops := splitLine(line)
			_, isJcc := jccOpcodes[mnem]
			if (mnem == "jmp" || isJcc) && len(ops) >= 1 {
				if lbl, known := labels[ops[0]]; known {
					form, present := old[idx]
					if !present {
						form = formShort
					}
					var instrLen int
					if mnem == "jmp" {
						instrLen = jmpSize(mnem, form)
					} else {
						instrLen = jccSize(form)
					}
					offset := lbl - (addr + instrLen)
					switch {
					case form == formNear:
						newForms[idx] = formNear
					case offset >= -128 && offset <= 127:
						newForms[idx] = formShort
					default:
						newForms[idx] = formNear
					}
				}
			}
			sz, err := instrSize(line, old, idx)
			if err != nil {
				return nil, nil, false, err
			}
			addr += sz
			idx++
		}

		forms = newForms
		labels, err = computeLabels(lines, forms)
		if err != nil {
			return nil, nil, false, err
		}
		if formsEqual(old, forms) {
			return labels, forms, true, nil
		}
	}
	return labels, forms, false, nil
}

// Assemble turns a block of Assembly IR text into machine code, labels,
// and pending string relocations. Non-convergence after
// maxRelaxIterations is reported via the verbose trace rather than
// failing the build, and the last iteration's form table is used as is,
// matching the teacher's tolerance for producing possibly suboptimal
// code rather than refusing to compile.
func Assemble(source string) (*AssembledUnit, error) {
	rawLines := strings.Split(source, "\n")
	lines := make([]string, len(rawLines))
	for i, l := range rawLines {
		lines[i] = strings.TrimSpace(l)
	}

	labels, forms, converged, err := relax(lines)
	if err != nil {
		return nil, Wrap(PhaseEncoding, err)
	}
	if !converged {
		debugf("branch relaxation did not converge after %d iterations\n", maxRelaxIterations)
	}

	var out []byte
	var relocs []Relocation
	addr, idx := 0, 0

	for lineNum, line := range lines {
		if isBlankOrComment(line) {
			continue
		}
		if _, ok := isLabelLine(line); ok {
			continue
		}
		mnem, ops := splitLine(line)
		var res encResult
		switch {
		case mnem == "movabs":
			res, err = encodeMovabsAt(ops)
		case mnem == "jmp" || mnem == "call":
			if len(ops) < 1 {
				err = errors.Errorf("%s requires a target", mnem)
				break
			}
			form, ok := forms[idx]
			if !ok {
				form = formNear
			}
			res, err = encodeJmpCallAt(mnem, ops[0], addr, labels, form, true)
		default:
			if _, isJcc := jccOpcodes[mnem]; isJcc {
				if len(ops) < 1 {
					err = errors.Errorf("%s requires a target", mnem)
					break
				}
				form, ok := forms[idx]
				if !ok {
					form = formNear
				}
				res, err = encodeJccAt(mnem, ops[0], addr, labels, form, true)
			} else {
				res, err = Emit(line)
			}
		}
		if err != nil {
			return nil, Wrap(PhaseEncoding, errors.Wrapf(err, "line %d: %q", lineNum+1, line))
		}
		if res.relocAt >= 0 {
			relocs = append(relocs, Relocation{Offset: addr + res.relocAt, Label: res.relocTo})
		}
		out = append(out, res.bytes...)
		addr += len(res.bytes)
		idx++
	}

	return &AssembledUnit{Code: out, Labels: labels, Relocations: relocs}, nil
}
