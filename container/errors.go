package container

import (
	"errors"
	"fmt"
)

// ErrReplicated is returned when a distributed-array accessor is used on a
// replicated dataset; ErrDistributed the other way around.
var (
	ErrReplicated  = errors.New("dataset is replicated")
	ErrDistributed = errors.New("dataset is distributed")
)

func errReplicated(path string) error {
	return fmt.Errorf("%s: %w", path, ErrReplicated)
}

func errDistributed(path string) error {
	return fmt.Errorf("%s: %w", path, ErrDistributed)
}
