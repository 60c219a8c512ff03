// Package segment splits cleaned source text into bounded, overlapping
// content windows. A window is the unit of work for the rest of the pipeline:
// each one is scripted, narrated, and rendered independently, and the window
// order is the narrative order of the final videos.
package segment
