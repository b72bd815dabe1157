package avltree

import (
	"math/rand"
	"testing"
)

func checkBalanced[T any](t *testing.T, n *Node[T]) int {
	t.Helper()
	if n == nil {
		return -1
	}
	lh := checkBalanced(t, n.left)
	rh := checkBalanced(t, n.right)
	bf := lh - rh
	if bf > 1 || bf < -1 {
		t.Fatalf("node key=%d unbalanced: bf=%d", n.key, bf)
	}
	if got := 1 + max(lh, rh); got != n.height {
		t.Fatalf("node key=%d height=%d, want %d", n.key, n.height, got)
	}
	return n.height
}

func TestInsertRemoveBalance(t *testing.T) {
	tr := New[int]()
	rng := rand.New(rand.NewSource(1))
	var nodes []*Node[int]
	for i := 0; i < 500; i++ {
		k := int64(rng.Intn(1000))
		nodes = append(nodes, tr.Insert(k, i))
		checkBalanced[int](t, tr.root)
	}
	rng.Shuffle(len(nodes), func(i, j int) { nodes[i], nodes[j] = nodes[j], nodes[i] })
	for _, n := range nodes {
		tr.Remove(n)
		checkBalanced[int](t, tr.root)
	}
	if tr.Len() != 0 {
		t.Fatalf("Len() = %d, want 0", tr.Len())
	}
}

func TestFindMinMaxSuccessorPredecessor(t *testing.T) {
	tr := New[string]()
	keys := []int64{10, 20, 5, 15, 25, 1}
	for _, k := range keys {
		tr.Insert(k, "v")
	}
	if tr.Min().Key() != 1 {
		t.Fatalf("Min() = %d, want 1", tr.Min().Key())
	}
	if tr.Max().Key() != 25 {
		t.Fatalf("Max() = %d, want 25", tr.Max().Key())
	}
	n10 := tr.Find(10)
	if n10 == nil {
		t.Fatal("Find(10) = nil")
	}
	if succ := Successor(n10); succ == nil || succ.Key() != 15 {
		t.Fatalf("Successor(10) = %v, want 15", succ)
	}
	if pred := Predecessor(n10); pred == nil || pred.Key() != 5 {
		t.Fatalf("Predecessor(10) = %v, want 5", pred)
	}
}

func TestFindGEBestFit(t *testing.T) {
	tr := New[int]()
	for _, k := range []int64{4, 8, 16, 32} {
		tr.Insert(k, int(k))
	}
	if got := tr.FindGE(5); got == nil || got.Key() != 8 {
		t.Fatalf("FindGE(5) = %v, want 8", got)
	}
	if got := tr.FindGE(32); got == nil || got.Key() != 32 {
		t.Fatalf("FindGE(32) = %v, want 32", got)
	}
	if got := tr.FindGE(33); got != nil {
		t.Fatalf("FindGE(33) = %v, want nil", got)
	}
}

func TestUnbalancedThenRebalance(t *testing.T) {
	tr := New[int]()
	for i := int64(0); i < 50; i++ {
		tr.InsertUnbalanced(i, int(i)) // ascending inserts skew into a chain
	}
	tr.RebalanceAll()
	checkBalanced[int](t, tr.root)
	if tr.Len() != 50 {
		t.Fatalf("Len() = %d, want 50", tr.Len())
	}
}
