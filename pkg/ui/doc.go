// Package ui renders terminal output: colored messages, boxed panels for
// the profile, each post and the final size summary, and a byte progress
// bar for active transfers.
package ui
