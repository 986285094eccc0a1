package search

import "sort"

type trieNode struct {
	children map[rune]*trieNode
	terminal bool
}

func newTrieNode() *trieNode {
	return &trieNode{children: make(map[rune]*trieNode)}
}

// trie holds every indexed term for prefix wildcard expansion
type trie struct {
	root *trieNode
	size int
}

func newTrie() *trie {
	return &trie{root: newTrieNode()}
}

func (t *trie) insert(word string) {
	node := t.root
	for _, ch := range word {
		next := node.children[ch]
		if next == nil {
			next = newTrieNode()
			node.children[ch] = next
		}
		node = next
	}
	if !node.terminal {
		node.terminal = true
		t.size++
	}
}

// remove deletes a word and prunes branches left without words
func (t *trie) remove(word string) {
	runes := []rune(word)
	path := make([]*trieNode, 0, len(runes)+1)
	node := t.root
	path = append(path, node)
	for _, ch := range runes {
		node = node.children[ch]
		if node == nil {
			return
		}
		path = append(path, node)
	}
	if !node.terminal {
		return
	}
	node.terminal = false
	t.size--

	for i := len(runes) - 1; i >= 0; i-- {
		child := path[i+1]
		if child.terminal || len(child.children) > 0 {
			break
		}
		delete(path[i].children, runes[i])
	}
}

// withPrefix returns every word starting with prefix, sorted
func (t *trie) withPrefix(prefix string) []string {
	node := t.root
	for _, ch := range prefix {
		node = node.children[ch]
		if node == nil {
			return nil
		}
	}

	var out []string
	var walk func(n *trieNode, acc []rune)
	walk = func(n *trieNode, acc []rune) {
		if n.terminal {
			out = append(out, string(acc))
		}
		for ch, child := range n.children {
			walk(child, append(acc, ch))
		}
	}
	walk(node, []rune(prefix))

	sort.Strings(out)
	return out
}
