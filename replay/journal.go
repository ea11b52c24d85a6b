package replay

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/klauspost/compress/zstd"
)

// A journal is a zstd-compressed stream of JSON lines: one header line holding
// the tape without its steps, then one line per step.
type journalLine struct {
	Header *Tape `json:"header,omitempty"`
	Step   *Step `json:"step,omitempty"`
}

func WriteJournal(w io.Writer, tape *Tape) error {
	if tape == nil {
		return errors.New("replay: nil tape")
	}
	zw, err := zstd.NewWriter(w)
	if err != nil {
		return fmt.Errorf("replay: zstd writer: %w", err)
	}
	enc := json.NewEncoder(zw)

	header := *tape
	header.Steps = nil
	if err := enc.Encode(journalLine{Header: &header}); err != nil {
		zw.Close()
		return fmt.Errorf("replay: write header: %w", err)
	}
	for i := range tape.Steps {
		if err := enc.Encode(journalLine{Step: &tape.Steps[i]}); err != nil {
			zw.Close()
			return fmt.Errorf("replay: write step %d: %w", i, err)
		}
	}
	return zw.Close()
}

func ReadJournal(r io.Reader) (*Tape, error) {
	zr, err := zstd.NewReader(r)
	if err != nil {
		return nil, fmt.Errorf("replay: zstd reader: %w", err)
	}
	defer zr.Close()

	dec := json.NewDecoder(zr)
	var tape *Tape
	for line := 0; ; line++ {
		var jl journalLine
		if err := dec.Decode(&jl); err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return nil, fmt.Errorf("replay: journal line %d: %w", line, err)
		}
		switch {
		case jl.Header != nil:
			if tape != nil {
				return nil, fmt.Errorf("replay: journal line %d: second header", line)
			}
			tape = jl.Header
		case jl.Step != nil:
			if tape == nil {
				return nil, fmt.Errorf("replay: journal line %d: step before header", line)
			}
			tape.Steps = append(tape.Steps, *jl.Step)
		}
	}
	if tape == nil {
		return nil, errors.New("replay: empty journal")
	}
	return tape, nil
}

// SaveFile writes tape as a journal, or as plain JSON when path ends in .json.
func SaveFile(path string, tape *Tape) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if strings.HasSuffix(path, ".json") {
		enc := json.NewEncoder(f)
		enc.SetIndent("", "  ")
		err = enc.Encode(tape)
	} else {
		err = WriteJournal(f, tape)
	}
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	return err
}

// LoadFile reads a tape written by SaveFile.
func LoadFile(path string) (*Tape, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	if strings.HasSuffix(path, ".json") {
		var tape Tape
		if err := json.NewDecoder(f).Decode(&tape); err != nil {
			return nil, fmt.Errorf("replay: parse %s: %w", path, err)
		}
		return &tape, nil
	}
	return ReadJournal(f)
}
