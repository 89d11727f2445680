package extract

import (
	"regexp"
	"strconv"
	"strings"
)

// Match is a successful extraction.
type Match struct {
	Strategy string
	Value    float64
}

// Strategy is one named extraction rule.
type Strategy struct {
	Name  string
	Match func(text string) (float64, bool)
}

// Chain is an ordered list of strategies, tried until one succeeds.
type Chain []Strategy

// Run returns the first successful match, or false if every strategy missed.
func (c Chain) Run(text string) (Match, bool) {
	for _, s := range c {
		if v, ok := s.Match(text); ok {
			return Match{Strategy: s.Name, Value: v}, true
		}
	}
	return Match{}, false
}

// Names lists the strategy names in order.
func (c Chain) Names() []string {
	out := make([]string, len(c))
	for i, s := range c {
		out[i] = s.Name
	}
	return out
}

// Labeled matches the first occurrence of re and parses its first capture group.
func Labeled(name string, re *regexp.Regexp) Strategy {
	return Strategy{
		Name: name,
		Match: func(text string) (float64, bool) {
			m := re.FindStringSubmatch(text)
			if len(m) < 2 {
				return 0, false
			}
			return parseNumber(m[1])
		},
	}
}

// InRange collects every token matching re and returns the first whose value
// lies in [lo, hi].
func InRange(name string, re *regexp.Regexp, lo, hi float64) Strategy {
	return Strategy{
		Name: name,
		Match: func(text string) (float64, bool) {
			for _, tok := range re.FindAllString(text, -1) {
				v, ok := parseNumber(tok)
				if ok && v >= lo && v <= hi {
					return v, true
				}
			}
			return 0, false
		},
	}
}

// parseNumber parses a decimal token, ignoring thousands separators.
func parseNumber(tok string) (float64, bool) {
	v, err := strconv.ParseFloat(strings.ReplaceAll(tok, ",", ""), 64)
	if err != nil {
		return 0, false
	}
	return v, true
}
