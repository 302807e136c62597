// Package loader turns the BAAC year directories into one multi-year dataset.
//
// Each year runs through a fixed sequence of stages on a bounded worker
// pool. A year that fails is logged and left out; the run only fails when
// no year loaded at all. Results are cached by source file signature.
package loader
