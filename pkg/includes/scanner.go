package includes

import (
	"bufio"
	"bytes"
	"io"
	"strings"
)

// Kind distinguishes the two include shapes
type Kind int

const (
	Quoted Kind = iota // #include "path"
	Angled             // #include <name>
)

func (k Kind) String() string {
	switch k {
	case Quoted:
		return "quoted"
	case Angled:
		return "angled"
	default:
		return "unknown"
	}
}

// Directive is one include directive found in a file
type Directive struct {
	Kind Kind
	Path string // Text between the delimiters
	Line int    // 1-based
}

// Rule extracts a directive from the operand that follows "#include"
type Rule interface {
	Match(operand string) (Directive, bool)
}

type delimited struct {
	kind        Kind
	open, close byte
}

func (r delimited) Match(operand string) (Directive, bool) {
	if len(operand) < 2 || operand[0] != r.open {
		return Directive{}, false
	}
	end := strings.IndexByte(operand[1:], r.close)
	if end <= 0 {
		return Directive{}, false
	}
	return Directive{Kind: r.kind, Path: operand[1 : end+1]}, true
}

// QuotedRule matches "path" operands
var QuotedRule Rule = delimited{kind: Quoted, open: '"', close: '"'}

// AngledRule matches <name> operands
var AngledRule Rule = delimited{kind: Angled, open: '<', close: '>'}

// DefaultRules are the rules used by Scan
var DefaultRules = []Rule{QuotedRule, AngledRule}

// Scan reads r line by line and returns every include directive in order.
// Only the directive syntax is recognised: conditionals, macros and
// comments are not interpreted. Lines have no length limit.
func Scan(r io.Reader) ([]Directive, error) {
	return ScanRules(r, DefaultRules...)
}

// ScanRules is Scan with an explicit rule set
func ScanRules(r io.Reader, rules ...Rule) ([]Directive, error) {
	var (
		directives []Directive
		line       []byte
		skip       bool
		lineNo     int
	)

	reader := bufio.NewReader(r)
	for {
		chunk, more, err := reader.ReadLine()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}

		// Long lines arrive in chunks. Once the opening bytes rule out a
		// directive the rest of the line is discarded without buffering.
		if !skip {
			line = append(line, chunk...)
			if more && !directivePrefix(line) {
				skip = true
			}
		}
		if more {
			continue
		}

		lineNo++
		if !skip {
			if d, ok := match(string(line), rules); ok {
				d.Line = lineNo
				directives = append(directives, d)
			}
		}
		line, skip = line[:0], false
	}

	return directives, nil
}

func match(line string, rules []Rule) (Directive, bool) {
	operand, ok := includeOperand(line)
	if !ok {
		return Directive{}, false
	}
	for _, rule := range rules {
		if d, ok := rule.Match(operand); ok {
			return d, true
		}
	}
	return Directive{}, false
}

// directivePrefix reports whether a partial line can still become an
// include directive
func directivePrefix(b []byte) bool {
	s := bytes.TrimLeft(b, " \t")
	if len(s) == 0 {
		return true
	}
	if s[0] != '#' {
		return false
	}
	s = bytes.TrimLeft(s[1:], " \t")
	n := min(len(s), len("include"))
	return string(s[:n]) == "include"[:n]
}

// includeOperand returns what follows "#include" on a directive line
func includeOperand(line string) (string, bool) {
	s := strings.TrimLeft(line, " \t")
	if !strings.HasPrefix(s, "#") {
		return "", false
	}
	s = strings.TrimLeft(s[1:], " \t")
	if !strings.HasPrefix(s, "include") {
		return "", false
	}
	s = s[len("include"):]
	trimmed := strings.TrimLeft(s, " \t")
	// "#includefoo" is not a directive, "#include<x>" is
	if len(trimmed) == len(s) && (s == "" || (s[0] != '"' && s[0] != '<')) {
		return "", false
	}
	return trimmed, true
}
