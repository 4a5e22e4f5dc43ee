package domain

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidInput = errors.New("invalid input")
	ErrTemporary    = errors.New("temporary failure")

	// ErrRetrievalUnavailable marks an external retrieval dependency being
	// down, distinct from "no relevant passages found" (which is an empty,
	// error-free result).
	ErrRetrievalUnavailable = errors.New("retrieval dependency unavailable")

	// ErrGeneration marks golden dataset generation producing no usable
	// examples. A shortfall below the target size is reported, not raised.
	ErrGeneration = errors.New("golden dataset generation failed")

	// ErrScoring marks a metric computation failure for a single
	// strategy/question pair.
	ErrScoring = errors.New("metric scoring failed")

	// ErrConfiguration marks a strategy that cannot run at all, e.g. a
	// missing reranker credential. Fatal for that strategy only.
	ErrConfiguration = errors.New("strategy configuration invalid")
)

// WrapError preserves typed semantic errors with operation context.
func WrapError(kind error, operation string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w: %w", operation, kind, err)
}

func IsKind(err error, kind error) bool {
	return errors.Is(err, kind)
}
