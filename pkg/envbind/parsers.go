// Copyright Mia srl
// SPDX-License-Identifier: AGPL-3.0-only or Commercial

package envbind

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrInvalidBoolean is returned when a value is neither a truthy nor a falsy string.
	ErrInvalidBoolean = errors.New("invalid boolean string")
	// ErrArity is returned when a setter receives an unexpected number of arguments.
	ErrArity = errors.New("unexpected number of arguments")
	// ErrArgumentType is returned when an argument has not the type the setter expects.
	ErrArgumentType = errors.New("unexpected argument type")
)

var (
	// TruthyStrings holds the upper-cased tokens accepted as true.
	TruthyStrings = map[string]struct{}{
		"Y": {}, "YES": {}, "JA": {}, "OUI": {}, "1": {}, "TRUE": {}, "ENABLED": {}, "ACTIVATED": {}, "ARMED": {},
	}
	// FalsyStrings holds the upper-cased tokens accepted as false.
	FalsyStrings = map[string]struct{}{
		"N": {}, "NO": {}, "NEIN": {}, "NON": {}, "0": {}, "FALSE": {}, "DISABLED": {}, "DEACTIVATED": {}, "DISARMED": {},
		"BY CHTULU, NO!": {},
	}
)

// Args holds the positional arguments of a single setter invocation.
type Args []any

// Parser turns a raw environment value into an ordered list of argument tuples.
type Parser func(value string) ([]Args, error)

// Len returns the number of arguments.
func (a Args) Len() int {
	return len(a)
}

// Expect returns ErrArity if the number of arguments is not one of counts.
func (a Args) Expect(counts ...int) error {
	for _, count := range counts {
		if len(a) == count {
			return nil
		}
	}

	return fmt.Errorf("%w: got %d, want %v", ErrArity, len(a), counts)
}

// String returns the i-th argument as a string.
func (a Args) String(i int) (string, error) {
	if i < 0 || i >= len(a) {
		return "", fmt.Errorf("%w: no argument at position %d", ErrArity, i)
	}

	switch v := a[i].(type) {
	case string:
		return v, nil
	case fmt.Stringer:
		return v.String(), nil
	default:
		return "", fmt.Errorf("%w: argument %d is %T", ErrArgumentType, i, a[i])
	}
}

// Bool returns the i-th argument as a bool, parsing it with ParseBool if it is a string.
func (a Args) Bool(i int) (bool, error) {
	if i < 0 || i >= len(a) {
		return false, fmt.Errorf("%w: no argument at position %d", ErrArity, i)
	}

	switch v := a[i].(type) {
	case bool:
		return v, nil
	case string:
		return ParseBool(v)
	default:
		return false, fmt.Errorf("%w: argument %d is %T", ErrArgumentType, i, a[i])
	}
}

// IsTruthy reports whether s is one of the TruthyStrings, ignoring case.
func IsTruthy(s string) bool {
	_, ok := TruthyStrings[strings.ToUpper(strings.TrimSpace(s))]
	return ok
}

// IsFalsy reports whether s is one of the FalsyStrings, ignoring case.
func IsFalsy(s string) bool {
	_, ok := FalsyStrings[strings.ToUpper(strings.TrimSpace(s))]
	return ok
}

// ParseBool converts a truthy or falsy string into a bool.
func ParseBool(s string) (bool, error) {
	switch {
	case IsTruthy(s):
		return true, nil
	case IsFalsy(s):
		return false, nil
	default:
		return false, fmt.Errorf("%w: %q", ErrInvalidBoolean, s)
	}
}

// Default passes the value as the single argument of a single call.
func Default(value string) ([]Args, error) {
	return []Args{{value}}, nil
}

// Comma produces one single-argument call per comma separated token.
func Comma(value string) ([]Args, error) {
	tokens := strings.Split(value, ",")
	result := make([]Args, 0, len(tokens))
	for _, token := range tokens {
		result = append(result, Args{token})
	}

	return result, nil
}

// CommaColon produces one call per comma separated token, whose arguments are
// the colon separated parts of the token: "a:1,b:2" calls the setter with
// ("a", "1") and then with ("b", "2").
func CommaColon(value string) ([]Args, error) {
	tokens := strings.Split(value, ",")
	result := make([]Args, 0, len(tokens))
	for _, token := range tokens {
		parts := strings.Split(token, ":")
		args := make(Args, 0, len(parts))
		for _, part := range parts {
			args = append(args, part)
		}
		result = append(result, args)
	}

	return result, nil
}

// SingleBoolean parses the whole value as a boolean string.
func SingleBoolean(value string) ([]Args, error) {
	parsed, err := ParseBool(value)
	if err != nil {
		return nil, err
	}

	return []Args{{parsed}}, nil
}
