package dataset

import (
	"fmt"
	"strconv"
	"sync"
	"time"
)

// FlagType tags rows that took part in an audit analysis
type FlagType string

const (
	FlagZero FlagType = "zero"
	FlagCal  FlagType = "cal"
	FlagMDL  FlagType = "mdl"
	FlagIMet FlagType = "imet"
)

// noFlag marks an untagged row
const noFlag int8 = -1

var flagCodes = map[FlagType]int8{
	FlagZero: 0,
	FlagCal:  1,
	FlagMDL:  2,
	FlagIMet: 3,
}

var codeFlags = map[int8]FlagType{
	0: FlagZero,
	1: FlagCal,
	2: FlagMDL,
	3: FlagIMet,
}

// ParseFlagType validates a flag name
func ParseFlagType(s string) (FlagType, error) {
	f := FlagType(s)
	if _, ok := flagCodes[f]; !ok {
		return "", fmt.Errorf("unknown flag type %q", s)
	}
	return f, nil
}

// Code returns the numeric value written to the "Audit Flag" column
func (f FlagType) Code() int {
	if c, ok := flagCodes[f]; ok {
		return int(c)
	}
	return int(noFlag)
}

// FlagTable holds one optional flag per row of a frame.
// Each Apply tags one or more time ranges; later writes overwrite earlier ones.
type FlagTable struct {
	mu    sync.RWMutex
	times []time.Time
	codes []int8
}

// NewFlagTable creates an untagged table over the given (sorted) row times
func NewFlagTable(times []time.Time) *FlagTable {
	codes := make([]int8, len(times))
	for i := range codes {
		codes[i] = noFlag
	}
	return &FlagTable{times: times, codes: codes}
}

// Apply tags every row inside w and returns how many rows were tagged
func (ft *FlagTable) Apply(w Window, flag FlagType) (int, error) {
	return ft.ApplyWindows(flag, w)
}

// ApplyWindows tags the rows inside any of the windows and leaves rows between
// them untouched. A row covered by several windows is counted once.
func (ft *FlagTable) ApplyWindows(flag FlagType, windows ...Window) (int, error) {
	code, ok := flagCodes[flag]
	if !ok {
		return 0, fmt.Errorf("unknown flag type %q", flag)
	}

	ft.mu.Lock()
	defer ft.mu.Unlock()

	n := 0
	for i, t := range ft.times {
		for _, w := range windows {
			if w.Contains(t) {
				ft.codes[i] = code
				n++
				break
			}
		}
	}
	return n, nil
}

// At returns the flag of row i, if any
func (ft *FlagTable) At(i int) (FlagType, bool) {
	ft.mu.RLock()
	defer ft.mu.RUnlock()

	if i < 0 || i >= len(ft.codes) || ft.codes[i] == noFlag {
		return "", false
	}
	return codeFlags[ft.codes[i]], true
}

// Cell renders row i's flag the way the export writes it; untagged rows are empty
func (ft *FlagTable) Cell(i int) string {
	f, ok := ft.At(i)
	if !ok {
		return ""
	}
	return strconv.Itoa(f.Code())
}

// Summary counts tagged rows per flag type
func (ft *FlagTable) Summary() map[FlagType]int {
	ft.mu.RLock()
	defer ft.mu.RUnlock()

	out := make(map[FlagType]int)
	for _, c := range ft.codes {
		if c != noFlag {
			out[codeFlags[c]]++
		}
	}
	return out
}

// Codes returns a copy of the raw codes, -1 meaning untagged
func (ft *FlagTable) Codes() []int8 {
	ft.mu.RLock()
	defer ft.mu.RUnlock()
	return append([]int8(nil), ft.codes...)
}

// restoreCodes replaces the codes wholesale; used when loading a snapshot
func (ft *FlagTable) restoreCodes(codes []int8) error {
	if len(codes) != len(ft.times) {
		return fmt.Errorf("flag snapshot has %d rows, want %d", len(codes), len(ft.times))
	}
	for _, c := range codes {
		if _, ok := codeFlags[c]; !ok && c != noFlag {
			return fmt.Errorf("invalid flag code %d", c)
		}
	}
	ft.mu.Lock()
	ft.codes = append([]int8(nil), codes...)
	ft.mu.Unlock()
	return nil
}
