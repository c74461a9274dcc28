package replay

import (
	"fmt"
	"strings"
)

const (
	// DefaultMaxSize is the largest replay the analysis service accepts (1 MiB)
	DefaultMaxSize int64 = 1048576
	// DefaultExtension is the StarCraft 2 replay file extension
	DefaultExtension = ".SC2Replay"
)

// Reason identifies why a file was rejected
type Reason string

const (
	ReasonTooLarge       Reason = "too large"
	ReasonWrongExtension Reason = "wrong extension"
)

// Rules configures client-side file validation
type Rules struct {
	MaxSize   int64
	Extension string
}

// DefaultRules returns the rules for StarCraft 2 replays
func DefaultRules() Rules {
	return Rules{
		MaxSize:   DefaultMaxSize,
		Extension: DefaultExtension,
	}
}

// ValidationError reports a rejected file
type ValidationError struct {
	Name   string
	Size   int64
	Reason Reason
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("replay %q rejected: %s", e.Name, e.Reason)
}

// Validate checks a candidate file's metadata against the rules.
// Size is checked before the extension; the first failing rule wins.
func Validate(size int64, name string, rules Rules) error {
	if size > rules.MaxSize {
		return &ValidationError{Name: name, Size: size, Reason: ReasonTooLarge}
	}
	if !strings.HasSuffix(name, rules.Extension) {
		return &ValidationError{Name: name, Size: size, Reason: ReasonWrongExtension}
	}
	return nil
}
