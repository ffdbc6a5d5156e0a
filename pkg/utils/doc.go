// Package utils provides common utility functions for the cartograph
// project: vector math shared by the projector and embedder, a bounded
// concurrency executor, and panic recovery helpers.
package utils
