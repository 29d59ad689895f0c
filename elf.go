package main

import (
	"bytes"
	"encoding/binary"
	"os"

	"github.com/pkg/errors"
	"golang.org/x/sys/unix"
)

const (
	elfMagicClass64   = 2
	elfDataLSB        = 1
	elfVersionCurrent = 1
	elfOSABISysV      = 0
	etExec            = 2
	emX8664           = 0x3E

	ptLoad = 1
	pfX    = 1
	pfW    = 2
	pfR    = 4

	baseVaddr         = 0x400000
	pageSize          = 0x1000
	elfHeaderSize     = 64
	programHeaderSize = 56
)

// startStubSource is axis's fixed entry point: exit(main()), with no
// argv/envp handling. Laid out as ordinary Assembly IR so the same
// assembler that lowers user functions resolves "main"'s address,
// rather than hardcoding its file offset the way a linker-free stub
// normally has to.
const startStubSource = `_start:
xor edi, edi
call main
mov edi, eax
mov eax, 60
syscall
`

// BuildExecutable assembles body (the code generator's function text)
// behind the _start stub and composes a freestanding ELF64 executable:
// one R+X segment for code and rodata, plus an optional R+W segment for
// the _read_failed flag byte. Layout and constants are ported from
// original_source/executable_format_generator.py's ELF64Writer.
func BuildExecutable(body string, strTable []struct{ Label, Value string }, needsReadFailed bool) ([]byte, error) {
	unit, err := Assemble(startStubSource + "\n" + body)
	if err != nil {
		return nil, err
	}

	var rodata bytes.Buffer
	rodataOffsets := make(map[string]int, len(strTable))
	for _, s := range strTable {
		rodataOffsets[s.Label] = rodata.Len()
		rodata.WriteString(s.Value)
		rodata.WriteByte(0)
	}

	bssSize := 0
	if needsReadFailed {
		bssSize = 8 // one aligned byte's worth of room, per the fixed BSS memsz
	}
	numPhdrs := 1
	if bssSize > 0 {
		numPhdrs = 2
	}

	headersSize := elfHeaderSize + programHeaderSize*numPhdrs
	codeOffset := pageSize
	paddingSize := codeOffset - headersSize
	if paddingSize < 0 {
		return nil, errors.New("elf: header size exceeds one page")
	}

	rodataOffset := codeOffset + len(unit.Code)
	rodataVaddr := baseVaddr + rodataOffset
	totalFileSize := rodataOffset + rodata.Len()

	var bssVaddr int
	if bssSize > 0 {
		bssVaddr = roundUpInt(rodataVaddr+rodata.Len(), pageSize)
	}

	entryPoint := baseVaddr + codeOffset

	for _, reloc := range unit.Relocations {
		var addr uint64
		if reloc.Label == "_read_failed" {
			if bssSize == 0 {
				return nil, errors.New("elf: relocation to _read_failed with no BSS reserved")
			}
			addr = uint64(bssVaddr)
		} else {
			off, ok := rodataOffsets[reloc.Label]
			if !ok {
				return nil, errors.Errorf("elf: undefined relocation label %q", reloc.Label)
			}
			addr = uint64(rodataVaddr + off)
		}
		if reloc.Offset < 0 || reloc.Offset+8 > len(unit.Code) {
			return nil, errors.Errorf("elf: relocation offset %d out of range", reloc.Offset)
		}
		binary.LittleEndian.PutUint64(unit.Code[reloc.Offset:reloc.Offset+8], addr)
	}

	var out bytes.Buffer
	out.Write(buildELFHeader(entryPoint, elfHeaderSize, numPhdrs))
	out.Write(buildProgramHeader(totalFileSize))
	if bssSize > 0 {
		out.Write(buildBSSProgramHeader(bssVaddr, bssSize))
	}
	out.Write(make([]byte, paddingSize))
	out.Write(unit.Code)
	out.Write(rodata.Bytes())

	if out.Len() != totalFileSize {
		return nil, errors.Errorf("elf: size mismatch: expected %d, got %d", totalFileSize, out.Len())
	}
	return out.Bytes(), nil
}

func buildELFHeader(entry, phoff, numPhdrs int) []byte {
	h := make([]byte, elfHeaderSize)
	copy(h[0:4], []byte{0x7f, 'E', 'L', 'F'})
	h[4] = elfMagicClass64
	h[5] = elfDataLSB
	h[6] = elfVersionCurrent
	h[7] = elfOSABISysV
	binary.LittleEndian.PutUint16(h[16:18], etExec)
	binary.LittleEndian.PutUint16(h[18:20], emX8664)
	binary.LittleEndian.PutUint32(h[20:24], elfVersionCurrent)
	binary.LittleEndian.PutUint64(h[24:32], uint64(entry))
	binary.LittleEndian.PutUint64(h[32:40], uint64(phoff))
	binary.LittleEndian.PutUint16(h[52:54], elfHeaderSize)
	binary.LittleEndian.PutUint16(h[54:56], programHeaderSize)
	binary.LittleEndian.PutUint16(h[56:58], uint16(numPhdrs))
	return h
}

func buildProgramHeader(fileSize int) []byte {
	h := make([]byte, programHeaderSize)
	binary.LittleEndian.PutUint32(h[0:4], ptLoad)
	binary.LittleEndian.PutUint32(h[4:8], pfR|pfX)
	binary.LittleEndian.PutUint64(h[16:24], uint64(baseVaddr))
	binary.LittleEndian.PutUint64(h[24:32], uint64(baseVaddr))
	binary.LittleEndian.PutUint64(h[32:40], uint64(fileSize))
	binary.LittleEndian.PutUint64(h[40:48], uint64(fileSize))
	binary.LittleEndian.PutUint64(h[48:56], pageSize)
	return h
}

func buildBSSProgramHeader(vaddr, memSize int) []byte {
	h := make([]byte, programHeaderSize)
	binary.LittleEndian.PutUint32(h[0:4], ptLoad)
	binary.LittleEndian.PutUint32(h[4:8], pfR|pfW)
	binary.LittleEndian.PutUint64(h[16:24], uint64(vaddr))
	binary.LittleEndian.PutUint64(h[24:32], uint64(vaddr))
	binary.LittleEndian.PutUint64(h[40:48], uint64(memSize))
	binary.LittleEndian.PutUint64(h[48:56], pageSize)
	return h
}

func roundUpInt(n, mult int) int {
	if mult == 0 {
		return n
	}
	if r := n % mult; r != 0 {
		return n + (mult - r)
	}
	return n
}

// WriteExecutable writes data to path and marks it executable, using
// x/sys/unix for the raw chmod rather than the os package's narrower
// permission helpers, matching how the corpus reaches for unix.* for
// POSIX operations that touch file mode bits directly.
func WriteExecutable(path string, data []byte) error {
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return errors.Wrap(err, "elf: write executable")
	}
	if err := unix.Chmod(path, 0o755); err != nil {
		return errors.Wrap(err, "elf: chmod executable")
	}
	return nil
}
