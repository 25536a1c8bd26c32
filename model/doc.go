// Package model contains the data model shared by the optimizer, the
// backends and the data-file store: parameter definitions, the examples
// recorded after each run, and the data-file content tying them together.
//
// # Objective direction
//
// Examples carry either a gain (higher is better) or a loss (lower is
// better). Every consumer in this module reasons in terms of the
// objective returned by [Example.Objective], which is always "lower is
// better": the loss itself, or the negated gain.
//
// # Unit space
//
// Numeric backends do not care whether a parameter is an integer range, a
// log-scaled float or a categorical choice. [ParamSpec.ToUnit] and
// [ParamSpec.FromUnit] map every kind of parameter to and from the closed
// interval [0, 1], so a run becomes a point in the unit hypercube.
package model
