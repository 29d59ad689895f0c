package main

import "github.com/pkg/errors"

const (
	mmapBufferSize = 4096
	readBufSize    = 64 // readln integer scratch buffer, stack-allocated
)

// compileWrite dispatches write/writeln on the value's inferred type,
// following original_source/code_generator.py's compile_write switch.
func (c *Codegen) compileWrite(w *WriteStmt) error {
	t := w.Value.Type()
	switch {
	case t == TypeStr:
		if err := c.compileWriteString(w.Value); err != nil {
			return err
		}
	case t == TypeBool:
		if err := c.compileWriteBool(w.Value); err != nil {
			return err
		}
	case t.IsInteger():
		if err := c.compileWriteInteger(w.Value); err != nil {
			return err
		}
	default:
		return errors.Errorf("codegen: cannot write type %s", t)
	}
	if w.Newline {
		c.emitNewlineSyscall()
	}
	return nil
}

func (c *Codegen) emitNewlineSyscall() {
	lbl := c.addString("\n")
	c.emit("mov rax, 1")
	c.emit("mov rdi, 1")
	c.emitf("movabs rsi, @%s", lbl)
	c.emit("mov rdx, 1")
	c.emit("syscall")
}

// compileWriteString writes a str-typed value. A literal is emitted as
// a direct write(1, &rodata, knownLen) syscall; anything else (an
// identifier, a read()/readln() result, a call) is null-terminated, so
// its length is measured with an inline scan before the syscall.
func (c *Codegen) compileWriteString(e Expression) error {
	if lit, ok := e.(*StringLit); ok {
		lit.Label = c.addString(lit.Value)
		c.emit("mov rax, 1")
		c.emit("mov rdi, 1")
		c.emitf("movabs rsi, @%s", lit.Label)
		c.emitf("mov rdx, %d", len(lit.Value))
		c.emit("syscall")
		return nil
	}
	if err := c.compileExpression(e); err != nil {
		return err
	}
	c.emit("mov rsi, rax")
	c.emit("push rsi")
	loop := c.freshLabel("strlen")
	done := c.freshLabel("strlen_done")
	c.emit("xor rcx, rcx")
	c.emit("mov r10, rsi")
	c.emitLabel(loop)
	c.emit("movzx eax, byte [r10]")
	c.emit("test al, al")
	c.emitf("jz %s", done)
	c.emit("inc rcx")
	c.emit("inc r10")
	c.emitf("jmp %s", loop)
	c.emitLabel(done)
	c.emit("mov rdx, rcx")
	c.emit("pop rsi")
	c.emit("mov rax, 1")
	c.emit("mov rdi, 1")
	c.emit("syscall")
	return nil
}

func (c *Codegen) compileWriteBool(e Expression) error {
	if err := c.compileExpression(e); err != nil {
		return err
	}
	trueLbl := c.addString("True")
	falseLbl := c.addString("False")
	falseCase := c.freshLabel("write_bool_false")
	done := c.freshLabel("write_bool_done")

	c.emit("test al, al")
	c.emitf("jz %s", falseCase)
	c.emit("mov rax, 1")
	c.emit("mov rdi, 1")
	c.emitf("movabs rsi, @%s", trueLbl)
	c.emit("mov rdx, 4")
	c.emit("syscall")
	c.emitf("jmp %s", done)
	c.emitLabel(falseCase)
	c.emit("mov rax, 1")
	c.emit("mov rdi, 1")
	c.emitf("movabs rsi, @%s", falseLbl)
	c.emit("mov rdx, 5")
	c.emit("syscall")
	c.emitLabel(done)
	return nil
}

// compileWriteInteger converts the accumulator to decimal ASCII using a
// fixed 21-byte stack buffer (enough for a sign plus 20 digits of a
// 64-bit value) and emits it with a single write syscall, rather than
// the teacher's one-syscall-per-digit loop.
func (c *Codegen) compileWriteInteger(e Expression) error {
	signed := e.Type().IsSigned()
	if err := c.compileExpression(e); err != nil {
		return err
	}
	switch e.Type().Size() {
	case 1:
		if signed {
			c.emit("movsx rax, al")
		}
	case 2:
		if signed {
			c.emit("movsx rax, ax")
		}
	case 4:
		if signed {
			c.emit("movsxd rax, eax")
		}
	}

	c.emit("push rbx")
	c.emit("push r12")
	c.emit("push r13")
	c.emit("push r14")
	c.emit("sub rsp, 24") // 21-byte digit buffer, 16-aligned

	c.emit("mov r12, rsp") // buffer base
	c.emit("mov r13, r12")
	c.emit("add r13, 20")
	c.emit("mov byte [r13], 0") // write cursor starts past the last digit slot
	c.emit("xor r14, r14")      // negative flag

	skipNeg := c.freshLabel("int_skip_neg")
	if signed {
		c.emit("test rax, rax")
		c.emitf("jns %s", skipNeg)
		c.emit("mov r14, 1")
		c.emit("neg rax")
		c.emitLabel(skipNeg)
	}

	digitLoop := c.freshLabel("int_digit_loop")
	c.emitLabel(digitLoop)
	c.emit("xor rdx, rdx")
	c.emit("mov rbx, 10")
	c.emit("div rbx")
	c.emit("add dl, '0'")
	c.emit("dec r13")
	c.emit("mov byte [r13], dl")
	c.emit("test rax, rax")
	c.emitf("jnz %s", digitLoop)

	if signed {
		skipMinus := c.freshLabel("int_skip_minus")
		c.emit("test r14, r14")
		c.emitf("jz %s", skipMinus)
		c.emit("dec r13")
		c.emit("mov byte [r13], '-'")
		c.emitLabel(skipMinus)
	}

	c.emit("mov rsi, r13")
	c.emit("mov rdx, r12")
	c.emit("add rdx, 20")
	c.emit("sub rdx, r13") // length = end - start
	c.emit("mov rax, 1")
	c.emit("mov rdi, 1")
	c.emit("syscall")

	c.emit("add rsp, 24")
	c.emit("pop r14")
	c.emit("pop r13")
	c.emit("pop r12")
	c.emit("pop rbx")
	return nil
}

func (c *Codegen) compileInput(in *InputExpr) error {
	c.needsReadFailed = true
	switch in.Kind {
	case InputRead:
		if in.Type().IsInteger() {
			return c.compileReadlnInteger()
		}
		return c.compileReadStringUntilEOF()
	case InputReadln:
		if in.Type().IsInteger() {
			return c.compileReadlnInteger()
		}
		return c.compileReadlnString()
	case InputReadchar:
		return c.compileReadchar()
	case InputReadFailed:
		c.emit("movabs r11, @_read_failed")
		c.emit("movzx eax, byte [r11]")
		return nil
	default:
		return errors.Errorf("codegen: input kind %v not implemented", in.Kind)
	}
}

func (c *Codegen) emitSetReadFailed(v int) {
	c.emit("movabs r11, @_read_failed")
	c.emitf("mov byte [r11], %d", v)
}

func (c *Codegen) emitSetReadFailedFromAL() {
	c.emit("movabs r11, @_read_failed")
	c.emit("mov byte [r11], al")
}

// compileReadStringUntilEOF mmaps a 4096-byte anonymous buffer and
// drains stdin into it until EOF, returning the pointer in rax.
func (c *Codegen) compileReadStringUntilEOF() error {
	c.emit("push rbx")
	c.emit("push r12")
	c.emit("push r13")
	c.emit("push r14")

	c.emit("mov rax, 9") // mmap
	c.emit("xor rdi, rdi")
	c.emitf("mov rsi, %d", mmapBufferSize)
	c.emit("mov rdx, 3")    // PROT_READ|PROT_WRITE
	c.emit("mov r10, 0x22") // MAP_PRIVATE|MAP_ANONYMOUS
	c.emit("mov r8, -1")
	c.emit("xor r9, r9")
	c.emit("syscall")

	c.emit("mov r12, rax")
	c.emit("mov r13, rax")
	c.emitf("mov r14, %d", mmapBufferSize)

	loop := c.freshLabel("read_loop")
	done := c.freshLabel("read_done")
	c.emitLabel(loop)
	c.emit("xor eax, eax")
	c.emit("xor edi, edi")
	c.emit("mov rsi, r13")
	c.emit("mov rdx, r14")
	c.emit("syscall")
	c.emit("test rax, rax")
	c.emitf("jle %s", done)
	c.emit("add r13, rax")
	c.emit("sub r14, rax")
	c.emit("test r14, r14")
	c.emitf("jnz %s", loop)
	c.emitLabel(done)

	c.emit("mov byte [r13], 0")
	c.emit("mov rax, r13")
	c.emit("sub rax, r12")
	c.emit("test rax, rax")
	nonEmpty := c.freshLabel("read_nonempty")
	c.emit("mov eax, 0") // mov leaves the flags from test intact
	c.emitf("jnz %s", nonEmpty)
	c.emit("mov eax, 1")
	c.emitLabel(nonEmpty)
	c.emitSetReadFailedFromAL()
	c.emit("mov rax, r12")

	c.emit("pop r14")
	c.emit("pop r13")
	c.emit("pop r12")
	c.emit("pop rbx")
	return nil
}

// compileReadlnString reads one line (stripping the trailing newline)
// into an mmap'd buffer, byte at a time.
func (c *Codegen) compileReadlnString() error {
	c.emit("push rbx")
	c.emit("push r12")
	c.emit("push r13")

	c.emit("mov rax, 9")
	c.emit("xor rdi, rdi")
	c.emitf("mov rsi, %d", mmapBufferSize)
	c.emit("mov rdx, 3")
	c.emit("mov r10, 0x22")
	c.emit("mov r8, -1")
	c.emit("xor r9, r9")
	c.emit("syscall")

	c.emit("mov r12, rax")
	c.emit("mov r13, rax")
	c.emit("xor rbx, rbx")

	loop := c.freshLabel("readln_loop")
	eof := c.freshLabel("readln_eof")
	haveData := c.freshLabel("readln_have_data")
	newlineFound := c.freshLabel("readln_nl")
	finish := c.freshLabel("readln_finish")

	c.emitLabel(loop)
	c.emit("xor eax, eax")
	c.emit("xor edi, edi")
	c.emit("mov rsi, r13")
	c.emit("mov edx, 1")
	c.emit("syscall")
	c.emit("test rax, rax")
	c.emitf("jle %s", eof)
	c.emit("movzx eax, byte [r13]")
	c.emit("cmp eax, 10")
	c.emitf("je %s", newlineFound)
	c.emit("inc r13")
	c.emit("inc rbx")
	c.emitf("jmp %s", loop)

	c.emitLabel(eof)
	c.emit("test rbx, rbx")
	c.emit("xor eax, eax")
	c.emitf("jnz %s", haveData)
	c.emit("mov eax, 1")
	c.emitLabel(haveData)
	c.emitSetReadFailedFromAL()
	c.emitf("jmp %s", finish)

	c.emitLabel(newlineFound)
	c.emitSetReadFailed(0)

	c.emitLabel(finish)
	c.emit("mov byte [r13], 0")
	c.emit("mov rax, r12")

	c.emit("pop r13")
	c.emit("pop r12")
	c.emit("pop rbx")
	return nil
}

// compileReadchar reads a single byte via a stack-allocated scratch
// slot, returning it zero-extended in eax, or -1 on EOF/error.
func (c *Codegen) compileReadchar() error {
	c.emit("sub rsp, 8")
	c.emit("xor eax, eax")
	c.emit("xor edi, edi")
	c.emit("mov rsi, rsp")
	c.emit("mov edx, 1")
	c.emit("syscall")

	c.emit("test rax, rax")
	eofLbl := c.freshLabel("readchar_eof")
	done := c.freshLabel("readchar_done")
	c.emitf("jle %s", eofLbl)
	c.emit("movzx eax, byte [rsp]")
	c.emitSetReadFailed(0)
	c.emitf("jmp %s", done)
	c.emitLabel(eofLbl)
	c.emit("mov eax, -1")
	c.emitSetReadFailed(1)
	c.emitLabel(done)
	c.emit("add rsp, 8")
	return nil
}

// compileReadlnInteger reads one line into a stack buffer and parses it
// as a signed or unsigned decimal integer, following
// original_source/code_generator.py's _emit_parse_integer loop.
func (c *Codegen) compileReadlnInteger() error {
	c.emit("push rbx")
	c.emit("push r12")
	c.emit("push r13")
	c.emit("push r14")
	c.emitf("sub rsp, %d", readBufSize)

	c.emit("mov r12, rsp")
	c.emit("mov r13, rsp")
	c.emit("xor r14, r14")

	loop := c.freshLabel("readint_loop")
	parseStart := c.freshLabel("readint_parse")
	eof := c.freshLabel("readint_eof")
	doneAll := c.freshLabel("readint_done")

	c.emitLabel(loop)
	c.emit("xor eax, eax")
	c.emit("xor edi, edi")
	c.emit("mov rsi, r13")
	c.emit("mov edx, 1")
	c.emit("syscall")
	c.emit("test rax, rax")
	c.emitf("jle %s", eof)
	c.emit("movzx eax, byte [r13]")
	c.emit("cmp al, 10")
	c.emitf("je %s", parseStart)
	c.emit("inc r13")
	c.emit("inc r14")
	c.emitf("cmp r14, %d", readBufSize-1)
	c.emitf("jl %s", loop)

	c.emitLabel(eof)
	c.emit("test r14, r14")
	c.emitf("jnz %s", parseStart)
	c.emit("xor eax, eax")
	c.emitSetReadFailed(1)
	c.emitf("jmp %s", doneAll)

	c.emitLabel(parseStart)
	c.emit("mov byte [r13], 0")
	c.emitParseInteger()

	c.emitLabel(doneAll)
	c.emitf("add rsp, %d", readBufSize)
	c.emit("pop r14")
	c.emit("pop r13")
	c.emit("pop r12")
	c.emit("pop rbx")
	return nil
}

// emitParseInteger parses the null-terminated decimal string at r12
// into rax, accepting a leading '-' and clearing _read_failed on
// success or setting it when no digit is present.
func (c *Codegen) emitParseInteger() {
	c.emit("mov rsi, r12")
	c.emit("xor rax, rax")
	c.emit("xor rbx, rbx") // negative flag
	c.emit("xor r14, r14") // digit-seen flag

	notNeg := c.freshLabel("parseint_notneg")
	c.emit("movzx ecx, byte [rsi]")
	c.emit("cmp ecx, '-'")
	c.emitf("jne %s", notNeg)
	c.emit("mov rbx, 1")
	c.emit("inc rsi")
	c.emitLabel(notNeg)

	digitLoop := c.freshLabel("parseint_loop")
	notDigit := c.freshLabel("parseint_notdigit")
	c.emitLabel(digitLoop)
	c.emit("movzx ecx, byte [rsi]")
	c.emit("test ecx, ecx")
	c.emitf("jz %s", notDigit)
	c.emit("cmp ecx, '0'")
	c.emitf("jl %s", notDigit)
	c.emit("cmp ecx, '9'")
	c.emitf("jg %s", notDigit)
	c.emit("mov rdx, 10")
	c.emit("imul rax, rdx")
	c.emit("sub ecx, '0'")
	c.emit("add rax, rcx")
	c.emit("mov r14, 1")
	c.emit("inc rsi")
	c.emitf("jmp %s", digitLoop)
	c.emitLabel(notDigit)

	c.emit("test rbx, rbx")
	skipNeg := c.freshLabel("parseint_skipneg")
	c.emitf("jz %s", skipNeg)
	c.emit("neg rax")
	c.emitLabel(skipNeg)

	c.emit("test r14, r14")
	c.emitSetReadFailedFromALInverse()
}

// emitSetReadFailedFromALInverse sets _read_failed to 1 when the zero
// flag from the preceding test is set (no digits were parsed), 0
// otherwise, without disturbing rax (the parsed value).
func (c *Codegen) emitSetReadFailedFromALInverse() {
	haveDigit := c.freshLabel("parseint_havedigit")
	after := c.freshLabel("parseint_flagdone")
	c.emitf("jnz %s", haveDigit)
	c.emitSetReadFailed(1)
	c.emitf("jmp %s", after)
	c.emitLabel(haveDigit)
	c.emitSetReadFailed(0)
	c.emitLabel(after)
}
