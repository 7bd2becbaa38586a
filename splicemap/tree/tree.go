// Copyright © 2023-2024 Wei Shen <shenwei356@gmail.com>
//
// Permission is hereby granted, free of charge, to any person obtaining a copy
// of this software and associated documentation files (the "Software"), to deal
// in the Software without restriction, including without limitation the rights
// to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
// copies of the Software, and to permit persons to whom the Software is
// furnished to do so, subject to the following conditions:
//
// The above copyright notice and this permission notice shall be included in
// all copies or substantial portions of the Software.
//
// THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
// IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
// FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
// AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
// LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
// OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN
// THE SOFTWARE.

// Package tree implements a radix tree of fixed-length k-mers,
// where each k-mer leaf holds the genome positions of the k-mer.
package tree

import (
	"math/bits"
	"sync"

	"github.com/shenwei356/SpliceMap/splicemap/util"
)

// leafNode is used to represent a value.
type leafNode struct {
	key uint64   // ALL the bases in the node, the k-mer
	val []uint64 // positions
}

// node represents a node in the tree, it might be the root, inner or leaf node.
type node struct {
	prefix uint64 // prefix of the current node
	k      uint8  // bases length of the prefix

	numChildren uint8
	children    [4]*node // just use an array

	leaf *leafNode // optional
}

// Tree is a radix tree for storing bit-packed k-mers and their positions.
type Tree struct {
	k    uint8 // use a global K
	root *node // root node

	numNodes     int // the number of nodes, including leaf nodes
	numLeafNodes int // the number of leaf nodes
	numValues    int // the number of values
}

// New returns an empty tree for k-mers of size k.
func New(k uint8) *Tree {
	return &Tree{k: k, root: &node{}}
}

// K returns the K value of k-mers.
func (t *Tree) K() int {
	return int(t.k)
}

// NumNodes returns the number of nodes, including leaf nodes.
func (t *Tree) NumNodes() int {
	return t.numNodes
}

// NumLeafNodes returns the number of leaf nodes, i.e., distinct k-mers.
func (t *Tree) NumLeafNodes() int {
	return t.numLeafNodes
}

// NumValues returns the number of values of all k-mers.
func (t *Tree) NumValues() int {
	return t.numValues
}

// Insert adds a position to a k-mer. Returns true if the k-mer existed.
func (t *Tree) Insert(key uint64, v uint64) bool {
	return t.insert(key, []uint64{v}, true)
}

// insert adds positions to a k-mer, or replaces existing ones if appendVals is false.
func (t *Tree) insert(key uint64, v []uint64, appendVals bool) bool {
	t.numValues += len(v)

	n := t.root
	rest, k := key, t.k // unmatched suffix of the key
	var b, common uint8
	var child *node
	for k > 0 {
		b = util.KmerBaseAt(rest, k, 0)
		child = n.children[b]
		if child == nil {
			n.addChild(b, t.newLeaf(rest, k, key, v))
			return false
		}

		common = util.MustKmerLongestPrefix(rest, child.prefix, k, child.k)
		if common < child.k { // the key diverges inside the child
			n.children[b] = t.split(child, common)
			child = n.children[b]
		}
		rest = util.KmerSuffix(rest, k, common)
		k -= common
		n = child
	}

	// the key is exhausted at node n
	if n.leaf == nil {
		n.leaf = &leafNode{key: key, val: v}
		t.numLeafNodes++
		return false
	}
	if appendVals {
		n.leaf.val = append(n.leaf.val, v...)
	} else {
		t.numValues -= len(n.leaf.val)
		n.leaf.val = v
	}
	return true
}

func (n *node) addChild(b uint8, c *node) {
	n.children[b] = c
	n.numChildren++
}

// newLeaf creates a node with a leaf, holding the remaining k bases.
func (t *Tree) newLeaf(prefix uint64, k uint8, key uint64, v []uint64) *node {
	t.numNodes++
	t.numLeafNodes++
	return &node{prefix: prefix, k: k, leaf: &leafNode{key: key, val: v}}
}

// split cuts the prefix of a node after the first n bases,
// and returns the new parent with the node as its only child.
func (t *Tree) split(c *node, n uint8) *node {
	t.numNodes++
	p := &node{prefix: util.KmerPrefix(c.prefix, c.k, n), k: n}
	p.addChild(util.KmerBaseAt(c.prefix, c.k, n), c)
	c.prefix = util.KmerSuffix(c.prefix, c.k, n)
	c.k -= n
	return p
}

// Get returns the values of a k-mer.
func (t *Tree) Get(key uint64) ([]uint64, bool) {
	n := t.root
	search := key
	k := t.k
	for {
		if k == 0 {
			if n.leaf != nil {
				return n.leaf.val, true
			}
			break
		}

		n = n.children[util.KmerBaseAt(search, k, 0)]
		if n == nil {
			break
		}

		if util.MustKmerHasPrefix(search, n.prefix, k, n.k) {
			search = util.KmerSuffix(search, k, n.k)
			k = k - n.k
		} else {
			break
		}
	}
	return nil, false
}

// MatchLen returns the length of the longest prefix of key that is shared
// with any k-mer in the tree. Only the first l bases of key are considered,
// so a query shorter than k could be padded with any bases.
func (t *Tree) MatchLen(key uint64, l uint8) uint8 {
	n := t.root
	search := key
	k := t.k
	var matched, common uint8
	for k > 0 && matched < l {
		n = n.children[util.KmerBaseAt(search, k, 0)]
		if n == nil {
			break
		}

		common = util.MustKmerLongestPrefix(search, n.prefix, k, n.k)
		matched += common
		if common < n.k {
			break
		}
		search = util.KmerSuffix(search, k, n.k)
		k = k - n.k
	}
	if matched > l {
		return l
	}
	return matched
}

// SearchResult records information of a search result.
type SearchResult struct {
	Kmer      uint64   // matched k-mer
	LenPrefix uint8    // length of common prefix between the query and this k-mer
	Values    []uint64 // value of this key
}

var poolSearchResults = &sync.Pool{New: func() interface{} {
	tmp := make([]*SearchResult, 0, 128)
	return &tmp
}}

var poolSearchResult = &sync.Pool{New: func() interface{} {
	return &SearchResult{}
}}

// RecycleSearchResult recycles search results objects.
func RecycleSearchResult(sr *[]*SearchResult) {
	for _, r := range *sr {
		poolSearchResult.Put(r)
	}
	poolSearchResults.Put(sr)
}

// Search finds k-mers sharing prefixes of at least m bases with the key.
// After using the result, do not forget to call RecycleSearchResult().
func (t *Tree) Search(key uint64, m uint8) (*[]*SearchResult, bool) {
	if m < 1 {
		m = 1
	}
	k := t.k
	if m > k {
		m = k
	}
	key0, k0 := key, k
	var target *node
	n := t.root
	search := key
	var lenPrefix, atleast uint8
	for k > 0 {
		n = n.children[util.KmerBaseAt(search, k, 0)]
		if n == nil {
			break
		}

		if util.MustKmerHasPrefix(search, n.prefix, k, n.k) {
			lenPrefix += n.k
			// already matched at least m bases, all leaves below n are hits
			if lenPrefix >= m {
				target = n
				break
			}

			search = util.KmerSuffix(search, k, n.k)
			k = k - n.k
			continue
		}

		// the node is partly matched, check the first m - lenPrefix bases of it
		atleast = m - lenPrefix
		if atleast <= n.k && search>>((k-atleast)<<1) == n.prefix>>((n.k-atleast)<<1) {
			target = n
		}
		break
	}

	if target == nil {
		return nil, false
	}

	results := poolSearchResults.Get().(*[]*SearchResult)
	*results = (*results)[:0]

	shift := int(k0) - 32
	recursiveWalk(target, func(key uint64, v []uint64) bool {
		r := poolSearchResult.Get().(*SearchResult)
		r.Kmer = key
		r.LenPrefix = uint8(bits.LeadingZeros64(key0^key)>>1 + shift)
		if r.LenPrefix > k0 {
			r.LenPrefix = k0
		}
		r.Values = v

		*results = append(*results, r)
		return false
	})

	return results, true
}

// WalkFn is used for walking the tree. Takes a
// key and value, returning if iteration should
// be terminated.
type WalkFn func(key uint64, v []uint64) bool

// Walk visits all k-mers in lexicographic order.
func (t *Tree) Walk(fn WalkFn) {
	recursiveWalk(t.root, fn)
}

// recursiveWalk is used to do a pre-order walk of a node
// recursively. Returns true if the walk should be aborted.
func recursiveWalk(n *node, fn WalkFn) bool {
	if n.leaf != nil && fn(n.leaf.key, n.leaf.val) {
		return true
	}

	for _, child := range n.children {
		if child != nil && recursiveWalk(child, fn) {
			return true
		}
	}

	return false
}
