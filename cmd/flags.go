package cmd

import (
	"github.com/spf13/pflag"

	"linehist/pkg/config"
	"linehist/pkg/history"
)

// sizeValue is a byte size flag such as "64KiB". Unset, it inherits the
// configured limit.
type sizeValue struct {
	size int
	set  bool
}

var _ pflag.Value = (*sizeValue)(nil)

func (s *sizeValue) String() string {
	if !s.set {
		return "inherit"
	}
	return config.FormatSize(s.size)
}

func (s *sizeValue) Set(value string) error {
	size, err := config.ParseSize(value)
	if err != nil {
		return err
	}
	s.size = size
	s.set = true
	return nil
}

func (s *sizeValue) Type() string {
	return "size"
}

// limit returns the value for history.SaveOptions.MaxSize
func (s *sizeValue) limit() int {
	if !s.set {
		return history.Inherit
	}
	return s.size
}

func (s *sizeValue) reset() {
	*s = sizeValue{}
}
