// Package cache stores synthesized speech so repeated announcements are
// played without running the synthesizer again. A Manager combines an
// in-memory LRU tier with a compressed on-disk tier.
package cache
