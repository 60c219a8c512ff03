// Command reelsmith turns long-form text into a series of short vertical
// video clips: one clip per content window, each with derived narration,
// word-timed captions, and a generated visual track.
package main
