// Package projection reduces high-dimensional embedding vectors to 2D or
// 3D coordinates with a UMAP-style algorithm.
//
// The projector builds a k-nearest neighbor graph over the input points,
// converts distances to fuzzy membership strengths calibrated per point to
// equalize local density, symmetrizes them with a probabilistic union, and
// optimizes a low-dimensional layout by stochastic gradient descent with
// negative sampling. Progress is reported as a completion fraction after
// bounded batches of epochs, and cancellation is honored cooperatively at
// epoch boundaries: a cancelled projection returns the best layout
// computed so far rather than an error.
//
// Reference: McInnes, L., Healy, J., & Melville, J. (2018). UMAP: Uniform
// Manifold Approximation and Projection for Dimension Reduction.
// https://arxiv.org/abs/1802.03426
package projection
