// Package textutil provides text normalization shared across the pipeline,
// primarily whitespace collapsing of raw source documents before
// segmentation.
package textutil
