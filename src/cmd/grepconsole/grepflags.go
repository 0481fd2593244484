package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"golang.org/x/text/encoding"

	"grepconsole/src/grep"
	"grepconsole/src/source"
)

// grepFlags are the expression and options of the grep console a command opens.
type grepFlags struct {
	expression    string
	caseSensitive bool
	wholeWords    bool
	regex         bool
	exclude       bool
}

func (f *grepFlags) register(cmd *cobra.Command) {
	flags := cmd.Flags()
	flags.StringVarP(&f.expression, "expression", "e", "", "grep expression")
	flags.BoolVarP(&f.caseSensitive, "case-sensitive", "i", false, "match case")
	flags.BoolVarP(&f.wholeWords, "whole-words", "w", false, "match whole words only")
	flags.BoolVarP(&f.regex, "regex", "r", false, "treat the expression as a regular expression")
	flags.BoolVarP(&f.exclude, "exclude", "x", false, "forward the lines that do not match")
}

// set reports whether any grep flag was given.
func (f grepFlags) set() bool {
	return f.expression != "" || f.caseSensitive || f.wholeWords || f.regex || f.exclude
}

func (f grepFlags) model() grep.Model {
	return grep.Model{
		Expression:    f.expression,
		CaseSensitive: f.caseSensitive,
		WholeWords:    f.wholeWords,
		Regex:         f.regex,
		Exclude:       f.exclude,
	}
}

// modelOrNil returns nil when no grep flag was given, leaving the grep console
// empty until an expression is applied.
func (f grepFlags) modelOrNil() *grep.Model {
	if !f.set() {
		return nil
	}
	m := f.model()
	return &m
}

func sourceEncoding(name string) (encoding.Encoding, error) {
	enc, err := source.Encoding(name)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", errUnknownEncoding, err)
	}
	return enc, nil
}
