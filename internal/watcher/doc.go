// Package watcher reports changes to files with fsnotify, coalescing bursts
// of events (editors often write a file several times when saving) into a
// single batch per quiet window.
package watcher
