package stn

import "errors"

// ErrInvalidConstraint indicates an empty or malformed interval passed to
// AddConstraint: the lower bound exceeds the upper bound, or the variance
// of a duration is negative.
var ErrInvalidConstraint = errors.New("invalid temporal constraint")

// ErrTaskNotFound indicates a structural query for a task or position that
// is not present in the network.
var ErrTaskNotFound = errors.New("task not found in temporal network")

// ErrUnknownCriterion indicates an unrecognized temporal-metric criterion.
var ErrUnknownCriterion = errors.New("unknown temporal criterion")
