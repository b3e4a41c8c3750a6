package streamform

import (
	"errors"
	"fmt"
)

// ErrNilHook is returned when Register is called without a hook function.
var ErrNilHook = errors.New("nil hook function")

// Register sets fn as the hook of the parts named name.
// fn receives the part content as a stream while the body is being decoded.
// With WithRequiredPart, fn only runs once the required parts have been parsed;
// earlier parts are spooled until then.
func (p *Parser) Register(name string, fn StreamHookFunc, options ...RegisterOption) error {
	if fn == nil {
		return ErrNilHook
	}
	if _, ok := p.hookMap[name]; ok {
		return DuplicateHookNameError{Name: name}
	}

	c := &registerConfig{}
	for _, opt := range options {
		opt(c)
	}

	p.hookMap[name] = streamHook{
		fn:           fn,
		requireParts: c.requireParts,
	}

	return nil
}

type DuplicateHookNameError struct {
	Name string
}

func (e DuplicateHookNameError) Error() string {
	return fmt.Sprintf("duplicate hook name: %s", e.Name)
}

type registerConfig struct {
	requireParts []string
}

type RegisterOption func(*registerConfig)

// WithRequiredPart delays the hook until a part named name has been parsed.
func WithRequiredPart(name string) RegisterOption {
	return func(c *registerConfig) {
		c.requireParts = append(c.requireParts, name)
	}
}
