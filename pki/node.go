package pki

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/afero"

	"github.com/I85YL64/n6/internal/sslconf"
)

const (
	fileMode os.FileMode = 0o600
	dirMode  os.FileMode = 0o700
)

// Node is one file or directory of a Sandbox. A node with an empty name is
// the directory rel itself.
type Node struct {
	fs    afero.Fs
	root  string
	rel   string
	name  string
	adapt *adaptOptions

	written bool
	doc     *sslconf.Document
}

// newNode creates a node and materializes its parent directory.
func newNode(fs afero.Fs, root, rel, name string, adapt *adaptOptions) (*Node, error) {
	n := &Node{fs: fs, root: root, rel: rel, name: name, adapt: adapt}
	if err := n.mkdirParent(); err != nil {
		return nil, err
	}
	return n, nil
}

// Path returns the node's absolute path.
func (n *Node) Path() string {
	return filepath.Join(n.root, n.rel, n.name)
}

// Name returns the node's file name ("" for a directory node).
func (n *Node) Name() string {
	return n.name
}

func (n *Node) isDir() bool {
	return n.name == ""
}

func (n *Node) mkdirParent() error {
	dir := filepath.Dir(n.Path())
	if n.isDir() {
		dir = n.Path()
	}
	if err := n.fs.MkdirAll(dir, dirMode); err != nil {
		return fmt.Errorf("creating %s: %w", dir, err)
	}
	return nil
}

// Set writes value to the node. A node can be written only once. The
// configuration node adapts value to the sandbox before writing it.
func (n *Node) Set(value []byte) error {
	if n.written {
		return fmt.Errorf("%w: %s", ErrNodeWritten, n.Path())
	}
	var doc *sslconf.Document
	if n.adapt != nil {
		var err error
		if doc, err = adaptConfig(string(value), *n.adapt); err != nil {
			return err
		}
		value = []byte(doc.String())
	}
	if err := n.mkdirParent(); err != nil {
		return err
	}
	if !n.isDir() {
		if err := afero.WriteFile(n.fs, n.Path(), value, fileMode); err != nil {
			return fmt.Errorf("writing %s: %w", n.Path(), err)
		}
	}
	n.written = true
	n.doc = doc
	return nil
}

// Written reports whether the node has been written.
func (n *Node) Written() bool {
	return n.written
}

// Document returns the adapted configuration of the configuration node, or
// nil for every other node and before the node is written.
func (n *Node) Document() *sslconf.Document {
	return n.doc
}

// Read returns the node's current file content.
func (n *Node) Read() (string, error) {
	b, err := afero.ReadFile(n.fs, n.Path())
	if err != nil {
		return "", fmt.Errorf("reading %s: %w", n.Path(), err)
	}
	return string(b), nil
}
