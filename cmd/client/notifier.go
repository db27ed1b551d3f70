package main

import (
	"fmt"
	"io"
	"sync"
)

// printNotifier writes notifications as single prefixed lines.
type printNotifier struct {
	mu sync.Mutex
	w  io.Writer
}

func (n *printNotifier) print(prefix, msg string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	fmt.Fprintf(n.w, "%s %s\n", prefix, msg)
}

func (n *printNotifier) Success(msg string) { n.print("✓", msg) }
func (n *printNotifier) Error(msg string)   { n.print("✗", msg) }
func (n *printNotifier) Info(msg string)    { n.print("i", msg) }
