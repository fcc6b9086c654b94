// Package yamlutil wraps YAML parsing to isolate the external dependency.
// Config loading goes through here so the size limit and strict mode are
// applied in one place.
package yamlutil

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/goccy/go-yaml"
)

// MaxInputSize limits YAML input to prevent memory exhaustion (default 1MB).
var MaxInputSize = 1 << 20

var (
	ErrNilData        = errors.New("yamlutil: nil or empty data")
	ErrNilDestination = errors.New("yamlutil: nil destination pointer")
	ErrInputTooLarge  = errors.New("yamlutil: input exceeds maximum size")
)

// DecodeOption tweaks a single Decode call.
type DecodeOption func(*decodeSettings)

type decodeSettings struct {
	strict bool
}

// Strict rejects keys that do not map to a struct field.
func Strict() DecodeOption {
	return func(s *decodeSettings) { s.strict = true }
}

func validateInput(data []byte, v any) error {
	if len(data) == 0 {
		return ErrNilData
	}
	if len(data) > MaxInputSize {
		return fmt.Errorf("%w: %d bytes (max %d)", ErrInputTooLarge, len(data), MaxInputSize)
	}
	if v == nil {
		return ErrNilDestination
	}
	return nil
}

// Decode parses data into v.
func Decode(data []byte, v any, opts ...DecodeOption) error {
	if err := validateInput(data, v); err != nil {
		return err
	}

	var s decodeSettings
	for _, opt := range opts {
		opt(&s)
	}

	var yopts []yaml.DecodeOption
	if s.strict {
		yopts = append(yopts, yaml.Strict())
	}
	if err := yaml.UnmarshalWithOptions(data, v, yopts...); err != nil {
		return fmt.Errorf("yamlutil: %w", err)
	}
	return nil
}

// DecodeReader reads at most MaxInputSize+1 bytes from r and decodes them.
func DecodeReader(r io.Reader, v any, opts ...DecodeOption) error {
	data, err := io.ReadAll(io.LimitReader(r, int64(MaxInputSize)+1))
	if err != nil {
		return fmt.Errorf("yamlutil: reading input: %w", err)
	}
	return Decode(data, v, opts...)
}

// DecodeFile decodes the YAML file at path.
func DecodeFile(path string, v any, opts ...DecodeOption) error {
	f, err := os.Open(path) // #nosec G304 -- config path is user-provided
	if err != nil {
		return err
	}
	defer f.Close()
	return DecodeReader(f, v, opts...)
}

// Encode serialises v as YAML.
func Encode(v any) ([]byte, error) {
	result, err := yaml.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("yamlutil: %w", err)
	}
	return result, nil
}
