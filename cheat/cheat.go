// Package cheat implements the cheat script codec (C5): a text
// compiler/serializer for cheat-VM opcode lists, plus the capability
// interfaces the codec needs from the host cheat service and network
// provider. See spec §3 and §4.5.
package cheat

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/golang/glog"

	"github.com/tomvita/Breezehand-Overlay-sub000/procmeta"
)

// nameSize is the fixed size of Entry.Name's backing buffer. The
// original source pack retrieved for this port does not include the
// cheat-entry struct definition (only the search/scan subsystem); 0x40
// is Atmosphere's own well-known CheatDefinition name-buffer constant,
// used here for lack of a more specific source.
const nameSize = 0x40

// maxOpcodes is the fixed cheat-opcode capacity (§4.5.1: "the fixed
// capacity (0x100 words)").
const maxOpcodes = 0x100

// Folder and combo-gate sentinel opcodes, per spec §3.
const (
	FolderStart  uint32 = 0x20000000
	FolderEnd    uint32 = 0x20000001
	comboEpilogue uint32 = 0x20000000
)

// Entry is one cheat: an id, a display name, an enabled flag and its
// opcode list. id==0 denotes the master code.
type Entry struct {
	ID      uint32
	Name    string
	Enabled bool
	Opcodes []uint32
}

// IsMaster reports whether e is the master code.
func (e Entry) IsMaster() bool {
	return e.ID == 0
}

// clampName truncates s to the fixed name-buffer size, matching the
// original struct's fixed char[nameSize] storage.
func clampName(s string) string {
	if len(s) > nameSize {
		return s[:nameSize]
	}
	return s
}

// CheatService is the capability the codec mutates against. It is a
// process-global resource (spec §5): the codec never calls its mutate
// operations concurrently, and detach/re-register (rather than
// mutate-in-place) is the only supported edit pattern (§4.6).
type CheatService interface {
	ListCheats(ctx context.Context) ([]Entry, error)
	GetCheat(ctx context.Context, id uint32) (Entry, bool, error)
	AddCheat(ctx context.Context, e Entry) error
	RemoveCheat(ctx context.Context, id uint32) error
	SetMaster(ctx context.Context, e Entry) error
	ToggleCheat(ctx context.Context, id uint32, enabled bool) error

	ForceOpenCheatProcess(ctx context.Context) error
	HasCheatProcess(ctx context.Context) (bool, error)
	GetProcessMetadata(ctx context.Context) (procmeta.Metadata, error)
	ReadProcessMemory(ctx context.Context, addr uint64, buf []byte) error
	QueryProcessMemory(ctx context.Context, addr uint64) (procmeta.MemoryInfo, error)
}

// tokenKind classifies one lexed token from a cheat-text file.
type tokenKind int

const (
	tokenRegularHeader tokenKind = iota
	tokenMasterHeader
	tokenComment
	tokenOpcode
	tokenMalformed
)

type token struct {
	kind tokenKind
	text string // header name, or the raw 8-hex-digit opcode text
}

// tokenize splits a cheat-text buffer per §4.5.1's grammar. Bracketed
// spans ([...], {...}, (...)) are read as one token including any
// interior whitespace; everything else is whitespace-delimited.
func tokenize(text string) []token {
	var tokens []token
	runes := []rune(text)
	i := 0
	for i < len(runes) {
		r := runes[i]
		switch {
		case r == ' ' || r == '\t' || r == '\r' || r == '\n':
			i++
		case r == '[':
			j := i + 1
			for j < len(runes) && runes[j] != ']' {
				j++
			}
			if j >= len(runes) {
				tokens = append(tokens, token{kind: tokenMalformed, text: string(runes[i:])})
				return tokens
			}
			tokens = append(tokens, token{kind: tokenRegularHeader, text: string(runes[i+1 : j])})
			i = j + 1
		case r == '{':
			j := i + 1
			for j < len(runes) && runes[j] != '}' {
				j++
			}
			if j >= len(runes) {
				tokens = append(tokens, token{kind: tokenMalformed, text: string(runes[i:])})
				return tokens
			}
			tokens = append(tokens, token{kind: tokenMasterHeader, text: string(runes[i+1 : j])})
			i = j + 1
		case r == '(':
			j := i + 1
			for j < len(runes) && runes[j] != ')' {
				j++
			}
			if j >= len(runes) {
				tokens = append(tokens, token{kind: tokenMalformed, text: string(runes[i:])})
				return tokens
			}
			tokens = append(tokens, token{kind: tokenComment, text: string(runes[i+1 : j])})
			i = j + 1
		default:
			j := i
			for j < len(runes) && runes[j] != ' ' && runes[j] != '\t' && runes[j] != '\r' && runes[j] != '\n' {
				j++
			}
			word := string(runes[i:j])
			if isOpcodeWord(word) {
				tokens = append(tokens, token{kind: tokenOpcode, text: word})
			} else {
				tokens = append(tokens, token{kind: tokenMalformed, text: word})
				return tokens
			}
			i = j
		}
	}
	return tokens
}

func isOpcodeWord(s string) bool {
	if len(s) != 8 {
		return false
	}
	for _, r := range s {
		if !strings.ContainsRune("0123456789abcdefABCDEF", r) {
			return false
		}
	}
	return true
}

// Compile parses cheat text and registers each complete cheat with svc
// as it is encountered, per §4.5.1. It returns false (with previously
// registered cheats left intact) the moment the input is malformed, an
// opcode appears past the fixed capacity, or a registration call
// fails; it returns true once EOF is reached cleanly.
func Compile(ctx context.Context, svc CheatService, text string) (bool, error) {
	tokens := tokenize(text)

	var current *Entry
	// currentMaster records whether current came from a {name} header;
	// every freshly parsed entry has ID 0, so IsMaster cannot tell.
	var currentMaster bool
	flush := func() error {
		if current == nil || len(current.Opcodes) == 0 {
			current = nil
			return nil
		}
		var err error
		if currentMaster {
			err = svc.SetMaster(ctx, *current)
		} else {
			err = svc.AddCheat(ctx, *current)
		}
		current = nil
		return err
	}

	for _, tok := range tokens {
		switch tok.kind {
		case tokenRegularHeader:
			if err := flush(); err != nil {
				return false, err
			}
			current = &Entry{Name: clampName(tok.text), Enabled: true}
			currentMaster = false
		case tokenMasterHeader:
			if err := flush(); err != nil {
				return false, err
			}
			current = &Entry{ID: 0, Name: clampName(tok.text), Enabled: true}
			currentMaster = true
		case tokenComment:
			// discarded
		case tokenOpcode:
			if current == nil {
				current = &Entry{Enabled: true}
				currentMaster = false
			}
			if len(current.Opcodes) >= maxOpcodes {
				glog.Warningf("cheat: opcode capacity (0x%X) exceeded, flushing and aborting", maxOpcodes)
				if err := flush(); err != nil {
					return false, err
				}
				return false, nil
			}
			v, err := strconv.ParseUint(tok.text, 16, 32)
			if err != nil {
				return false, fmt.Errorf("cheat: unreachable: %q failed hex parse after lexing as opcode: %w", tok.text, err)
			}
			current.Opcodes = append(current.Opcodes, uint32(v))
		case tokenMalformed:
			glog.Warningf("cheat: malformed token %q, flushing current cheat and aborting", tok.text)
			if err := flush(); err != nil {
				return false, err
			}
			return false, nil
		}
	}

	if err := flush(); err != nil {
		return false, err
	}
	return true, nil
}

// InstructionLenFunc groups a flat opcode slice into lines the way
// Serialize needs: a function from (opcodes, index) to the word count
// of the instruction starting at index. annotate.InstructionLength
// satisfies this signature; it is accepted as a parameter here rather
// than imported directly to keep cheat decoupled from the annotator.
type InstructionLenFunc func(opcodes []uint32, i int) int

// Serialize renders svc's current cheat list as cheat-text per §4.5.2:
// a banner line, then one `[name]`/`{name}` header per cheat followed
// by its opcodes grouped one decoded instruction per line, separated
// by a blank line between cheats.
func Serialize(ctx context.Context, svc CheatService, productTag, version string, titleID, buildID uint64, instrLen InstructionLenFunc) (string, error) {
	entries, err := svc.ListCheats(ctx)
	if err != nil {
		return "", err
	}

	var b strings.Builder
	fmt.Fprintf(&b, "[%s %s TID: %016X BID: %016X]\n", productTag, version, titleID, buildID)

	for _, e := range entries {
		b.WriteByte('\n')
		if e.IsMaster() {
			fmt.Fprintf(&b, "{%s}\n", e.Name)
		} else {
			fmt.Fprintf(&b, "[%s]\n", e.Name)
		}
		writeOpcodeLines(&b, e.Opcodes, instrLen)
	}
	return b.String(), nil
}

func writeOpcodeLines(b *strings.Builder, opcodes []uint32, instrLen InstructionLenFunc) {
	for i := 0; i < len(opcodes); {
		n := instrLen(opcodes, i)
		if i+n > len(opcodes) {
			n = len(opcodes) - i
		}
		if n < 1 {
			n = 1
		}
		words := make([]string, n)
		for k := 0; k < n; k++ {
			words[k] = fmt.Sprintf("%08X", opcodes[i+k])
		}
		b.WriteString(strings.Join(words, " "))
		b.WriteByte('\n')
		i += n
	}
}
