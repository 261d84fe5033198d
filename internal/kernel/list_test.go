package kernel

import "testing"

type namedNode struct {
	name string
	n    LinkerNode
}

func newNamedNode(name string) *namedNode {
	nn := &namedNode{name: name}
	nn.n.SetOwner(nn)
	return nn
}

func names(l *List) []string {
	var out []string
	it := l.Iterate()
	for n := it.Next(); n != nil; n = it.Next() {
		out = append(out, n.Owner().(*namedNode).name)
	}
	return out
}

func TestListPushTailAndHead(t *testing.T) {
	var l List
	a, b, c := newNamedNode("a"), newNamedNode("b"), newNamedNode("c")

	l.Push(&a.n, Tail)
	l.Push(&b.n, Tail)
	l.Push(&c.n, Head)

	if got, want := names(&l), []string{"c", "a", "b"}; !equalStrings(got, want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	if l.Len() != 3 {
		t.Fatalf("Len() = %d, want 3", l.Len())
	}
}

func TestListPushIsTransactional(t *testing.T) {
	var src, dst List
	a := newNamedNode("a")
	src.Push(&a.n, Tail)
	if src.Len() != 1 {
		t.Fatalf("src.Len() = %d, want 1", src.Len())
	}

	dst.Push(&a.n, Tail)
	if src.Len() != 0 {
		t.Fatalf("src.Len() after move = %d, want 0", src.Len())
	}
	if dst.Len() != 1 {
		t.Fatalf("dst.Len() = %d, want 1", dst.Len())
	}
}

func TestListRemoveDuringIteration(t *testing.T) {
	var l List
	a, b, c := newNamedNode("a"), newNamedNode("b"), newNamedNode("c")
	l.Push(&a.n, Tail)
	l.Push(&b.n, Tail)
	l.Push(&c.n, Tail)

	it := l.Iterate()
	for n := it.Next(); n != nil; n = it.Next() {
		if n.Owner().(*namedNode).name == "b" {
			Remove(n)
		}
	}
	if got, want := names(&l), []string{"a", "c"}; !equalStrings(got, want) {
		t.Fatalf("got %v, want %v", got, want)
	}
}

func TestListInsertOrderedStableOnTies(t *testing.T) {
	type prioNode struct {
		name string
		prio int
		n    LinkerNode
	}
	less := func(a, b *LinkerNode) bool {
		return a.Owner().(*prioNode).prio < b.Owner().(*prioNode).prio
	}

	var l List
	mk := func(name string, prio int) *prioNode {
		pn := &prioNode{name: name, prio: prio}
		pn.n.SetOwner(pn)
		return pn
	}
	first5 := mk("first5", 5)
	second5 := mk("second5", 5)
	only1 := mk("only1", 1)
	only9 := mk("only9", 9)

	l.InsertOrdered(&first5.n, less)
	l.InsertOrdered(&only9.n, less)
	l.InsertOrdered(&second5.n, less)
	l.InsertOrdered(&only1.n, less)

	var got []string
	it := l.Iterate()
	for n := it.Next(); n != nil; n = it.Next() {
		got = append(got, n.Owner().(*prioNode).name)
	}
	want := []string{"only1", "first5", "second5", "only9"}
	if !equalStrings(got, want) {
		t.Fatalf("got %v, want %v", got, want)
	}
}

func equalStrings(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
